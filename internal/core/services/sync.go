package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/sercha-nodes/internal/core/domain"
	"github.com/custodia-labs/sercha-nodes/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-nodes/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-nodes/internal/logger"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)

// SyncOrchestrator coordinates node synchronisation from connectors.
type SyncOrchestrator struct {
	nodeStore driven.NodeStore

	// Status tracking
	mu          sync.RWMutex
	activeSyncs map[string]*driving.SyncStatus
}

// NewSyncOrchestrator creates a new sync orchestrator.
func NewSyncOrchestrator(nodeStore driven.NodeStore) *SyncOrchestrator {
	return &SyncOrchestrator{
		nodeStore:   nodeStore,
		activeSyncs: make(map[string]*driving.SyncStatus),
	}
}

// Sync drains the connector's discovery and stores every changed node.
//
// Nodes that break the connector contract (empty IDs, self-referencing
// parents) and per-item connector errors are recorded on the result and
// skipped. Storage failures and cancellation abort the sync. When the
// connector reported no errors, stored nodes it no longer emits are deleted.
func (o *SyncOrchestrator) Sync(ctx context.Context, connector driven.NodeConnector) (*driving.SyncResult, error) {
	dataSourceID := connector.DataSourceID()

	if err := connector.Validate(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConnectorValidation, err)
	}

	status, ok := o.begin(dataSourceID)
	if !ok {
		return nil, fmt.Errorf("data source %s: %w", dataSourceID, domain.ErrSyncInProgress)
	}
	defer o.clearStatus(dataSourceID)

	logger.Section("Sync " + dataSourceID)
	logger.Info("Starting sync for data source %s (%s)", dataSourceID, connector.Type())

	result := &driving.SyncResult{DataSourceID: dataSourceID}
	seen := make(map[string]struct{})
	connectorErrs := 0
	nodesCh, errsCh := connector.Discover(ctx)

	for nodesCh != nil || errsCh != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case err, ok := <-errsCh:
			if !ok {
				errsCh = nil
				continue
			}
			logger.Debug("Connector error: %v", err)
			result.Errors = append(result.Errors, err)
			connectorErrs++
			o.countError(status)

		case node, ok := <-nodesCh:
			if !ok {
				nodesCh = nil
				continue
			}
			if node.DataSourceID() == dataSourceID {
				seen[node.NodeID()] = struct{}{}
			}
			outcome, err := o.apply(ctx, node)
			if err != nil {
				return nil, err
			}
			o.tally(result, status, node, outcome)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if connectorErrs == 0 {
		deleted, err := o.prune(ctx, dataSourceID, seen)
		if err != nil {
			return nil, err
		}
		result.Deleted = deleted
	} else {
		logger.Debug("Keeping unseen nodes of %s: connector reported %d errors", dataSourceID, connectorErrs)
	}

	logger.Info("Sync complete: %d nodes (%d created, %d updated, %d unchanged, %d retyped, %d skipped), "+
		"%d deleted, %d errors",
		result.Total(), result.Created, result.Updated, result.Unchanged, result.Retyped, result.Skipped,
		result.Deleted, len(result.Errors))
	return result, nil
}

// prune deletes the stored nodes of a data source whose IDs are not in seen.
func (o *SyncOrchestrator) prune(ctx context.Context, dataSourceID string, seen map[string]struct{}) (int, error) {
	stored, err := o.nodeStore.List(ctx, dataSourceID)
	if err != nil {
		return 0, fmt.Errorf("list nodes: %w", err)
	}

	var gone []domain.NodeKey
	for _, n := range stored {
		if _, ok := seen[n.NodeID()]; !ok {
			gone = append(gone, n.Key())
		}
	}
	if len(gone) == 0 {
		return 0, nil
	}

	logger.Debug("Deleting %d nodes no longer in %s", len(gone), dataSourceID)
	if err := o.nodeStore.DeleteBatch(ctx, gone); err != nil {
		return 0, fmt.Errorf("delete nodes: %w", err)
	}
	return len(gone), nil
}

// ApplyChange stores a single change event from a watching connector.
// Deleting a node also deletes the stored nodes below it.
func (o *SyncOrchestrator) ApplyChange(ctx context.Context, change domain.NodeChange) (driving.SyncOutcome, error) {
	if change.Type == domain.NodeDeleted {
		removed, err := o.nodeStore.DeleteTree(ctx, change.Node.Key())
		if err != nil {
			return driving.OutcomeSkipped, fmt.Errorf("delete node: %w", err)
		}
		logger.Debug("Deleted %s (%d nodes)", change.Node.Key(), removed)
		return driving.OutcomeDeleted, nil
	}
	outcome, err := o.apply(ctx, change.Node)
	if err != nil {
		return outcome, err
	}
	if outcome == driving.OutcomeSkipped {
		return outcome, change.Node.Validate()
	}
	return outcome, nil
}

// Status returns sync status for a data source.
func (o *SyncOrchestrator) Status(_ context.Context, dataSourceID string) (*driving.SyncStatus, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if status, ok := o.activeSyncs[dataSourceID]; ok {
		// Return a copy to avoid race conditions
		copied := *status
		return &copied, nil
	}

	// Not running - return idle status
	return &driving.SyncStatus{
		DataSourceID: dataSourceID,
		Running:      false,
	}, nil
}

// apply compares node with the stored snapshot and writes it if it changed.
// A changed node type is handled as delete + recreate. Snapshots older than
// the stored one are left alone.
func (o *SyncOrchestrator) apply(ctx context.Context, node domain.Node) (driving.SyncOutcome, error) {
	if err := node.Validate(); err != nil {
		logger.Debug("Skipping %s: %v", node.Key(), err)
		return driving.OutcomeSkipped, nil
	}

	existing, err := o.nodeStore.Get(ctx, node.Key())
	switch {
	case errors.Is(err, domain.ErrNotFound):
		if err := o.nodeStore.Save(ctx, node); err != nil {
			return driving.OutcomeSkipped, fmt.Errorf("save node: %w", err)
		}
		return driving.OutcomeCreated, nil
	case err != nil:
		return driving.OutcomeSkipped, fmt.Errorf("get node: %w", err)
	}

	if existing.Equal(node) {
		return driving.OutcomeUnchanged, nil
	}
	if node.Timestamp() < existing.Timestamp() {
		logger.Debug("Ignoring stale snapshot of %s (%d < %d)", node.Key(), node.Timestamp(), existing.Timestamp())
		return driving.OutcomeUnchanged, nil
	}

	if existing.Type() != node.Type() {
		logger.Debug("Recreating %s: type %s -> %s", node.Key(), existing.Type(), node.Type())
		if err := o.nodeStore.Replace(ctx, node); err != nil {
			return driving.OutcomeSkipped, fmt.Errorf("replace node: %w", err)
		}
		return driving.OutcomeRetyped, nil
	}

	if err := o.nodeStore.Save(ctx, node); err != nil {
		return driving.OutcomeSkipped, fmt.Errorf("save node: %w", err)
	}
	return driving.OutcomeUpdated, nil
}

func (o *SyncOrchestrator) tally(
	result *driving.SyncResult,
	status *driving.SyncStatus,
	node domain.Node,
	outcome driving.SyncOutcome,
) {
	switch outcome {
	case driving.OutcomeCreated:
		result.Created++
	case driving.OutcomeUpdated:
		result.Updated++
	case driving.OutcomeUnchanged:
		result.Unchanged++
	case driving.OutcomeRetyped:
		result.Retyped++
	case driving.OutcomeSkipped:
		result.Skipped++
		result.Errors = append(result.Errors, fmt.Errorf("node %s: %w", node.Key(), node.Validate()))
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	status.NodesProcessed++
	if outcome == driving.OutcomeSkipped {
		status.ErrorCount++
	}
}

func (o *SyncOrchestrator) countError(status *driving.SyncStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	status.ErrorCount++
}

// begin registers a running sync. It returns false if one is already active.
func (o *SyncOrchestrator) begin(dataSourceID string) (*driving.SyncStatus, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, running := o.activeSyncs[dataSourceID]; running {
		return nil, false
	}
	status := &driving.SyncStatus{DataSourceID: dataSourceID, Running: true}
	o.activeSyncs[dataSourceID] = status
	return status, true
}

func (o *SyncOrchestrator) clearStatus(dataSourceID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.activeSyncs, dataSourceID)
}
