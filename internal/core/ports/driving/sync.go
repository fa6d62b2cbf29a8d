package driving

import (
	"context"

	"github.com/custodia-labs/sercha-nodes/internal/core/domain"
	"github.com/custodia-labs/sercha-nodes/internal/core/ports/driven"
)

// SyncOrchestrator brings a data source's stored nodes in line with what its
// connector discovers.
type SyncOrchestrator interface {
	// Sync drains the connector's discovery and stores every changed node.
	// After a discovery without connector errors, stored nodes the connector
	// did not emit are deleted.
	// Returns domain.ErrSyncInProgress if the data source is already syncing.
	Sync(ctx context.Context, connector driven.NodeConnector) (*SyncResult, error)

	// ApplyChange stores a single change event from a watching connector.
	// A deletion removes the node and every stored node below it.
	ApplyChange(ctx context.Context, change domain.NodeChange) (SyncOutcome, error)

	// Status returns the progress of a running sync.
	// Returns an idle status if no sync is running for the data source.
	Status(ctx context.Context, dataSourceID string) (*SyncStatus, error)
}

// SyncOutcome describes what happened to one discovered node.
type SyncOutcome int

const (
	// OutcomeCreated means no snapshot existed for the key.
	OutcomeCreated SyncOutcome = iota

	// OutcomeUpdated means the stored snapshot differed.
	OutcomeUpdated

	// OutcomeUnchanged means the stored snapshot was equal.
	OutcomeUnchanged

	// OutcomeRetyped means the node type changed and the item was deleted
	// and recreated.
	OutcomeRetyped

	// OutcomeDeleted means the item was removed.
	OutcomeDeleted

	// OutcomeSkipped means the node broke the connector contract.
	OutcomeSkipped
)

// String returns a lower-case label for logs and CLI output.
func (o SyncOutcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeRetyped:
		return "retyped"
	case OutcomeDeleted:
		return "deleted"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// SyncResult summarises a completed sync.
type SyncResult struct {
	// DataSourceID identifies the data source.
	DataSourceID string

	// Created, Updated, Unchanged, Retyped and Skipped count outcomes.
	Created   int
	Updated   int
	Unchanged int
	Retyped   int
	Skipped   int

	// Deleted counts stored nodes removed because discovery no longer
	// emitted them.
	Deleted int

	// Errors holds per-item errors from the connector and skipped nodes.
	Errors []error
}

// Total returns the number of nodes the connector emitted.
func (r *SyncResult) Total() int {
	return r.Created + r.Updated + r.Unchanged + r.Retyped + r.Skipped
}

// SyncStatus represents the current state of a sync operation.
type SyncStatus struct {
	// DataSourceID identifies the data source.
	DataSourceID string

	// Running indicates if sync is currently in progress.
	Running bool

	// NodesProcessed is the count of nodes processed so far.
	NodesProcessed int

	// ErrorCount is the number of errors encountered.
	ErrorCount int
}
