package services

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/custodia-labs/sercha-nodes/internal/core/domain"
	"github.com/custodia-labs/sercha-nodes/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-nodes/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-nodes/internal/logger"
)

// Ensure NodeService implements the interface.
var _ driving.NodeService = (*NodeService)(nil)

// maxRecordSize bounds a single JSON-lines record.
const maxRecordSize = 4 * 1024 * 1024

// NodeService reads stored nodes and converts them to and from JSON lines.
type NodeService struct {
	nodeStore driven.NodeStore
}

// NewNodeService creates a new node service.
func NewNodeService(nodeStore driven.NodeStore) *NodeService {
	return &NodeService{nodeStore: nodeStore}
}

// Get retrieves a node by key.
func (s *NodeService) Get(ctx context.Context, key domain.NodeKey) (domain.Node, error) {
	return s.nodeStore.Get(ctx, key)
}

// List returns every node of a data source sorted by node ID.
func (s *NodeService) List(ctx context.Context, dataSourceID string) ([]domain.Node, error) {
	return s.nodeStore.List(ctx, dataSourceID)
}

// ListDataSources returns the IDs of data sources with stored nodes.
func (s *NodeService) ListDataSources(ctx context.Context) ([]string, error) {
	return s.nodeStore.ListDataSources(ctx)
}

// Ancestors resolves a node's parents chain, nearest first.
// Fails with domain.ErrNotFound if any ancestor was never stored.
func (s *NodeService) Ancestors(ctx context.Context, key domain.NodeKey) ([]domain.Node, error) {
	node, err := s.nodeStore.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	parents := node.Parents()
	ancestors := make([]domain.Node, 0, len(parents))
	for _, parentID := range parents {
		parentKey := domain.NodeKey{DataSourceID: key.DataSourceID, NodeID: parentID}
		parent, err := s.nodeStore.Get(ctx, parentKey)
		if err != nil {
			return nil, fmt.Errorf("ancestor %s: %w", parentKey, err)
		}
		ancestors = append(ancestors, parent)
	}
	return ancestors, nil
}

// Children returns the direct children of a node sorted by node ID.
func (s *NodeService) Children(ctx context.Context, key domain.NodeKey) ([]domain.Node, error) {
	if _, err := s.nodeStore.Get(ctx, key); err != nil {
		return nil, err
	}
	nodes, err := s.nodeStore.List(ctx, key.DataSourceID)
	if err != nil {
		return nil, err
	}
	return domain.NewHierarchy(nodes).Children(key), nil
}

// Import decodes JSON-lines node records and stores them in one batch.
// Blank lines are ignored. Nothing is stored if any record is malformed or
// breaks the connector contract.
//
// Records follow the same snapshot rule as sync: per key the greatest
// timestamp wins (ties keep the later line), and a record older than the
// stored snapshot is counted as stale and not written.
func (s *NodeService) Import(ctx context.Context, r io.Reader) (*driving.ImportResult, error) {
	latest := make(map[domain.NodeKey]domain.Node)
	var order []domain.NodeKey
	records := 0
	err := scanRecords(r, func(line int, record []byte) error {
		node, err := domain.DecodeNode(record)
		if err != nil {
			return driving.RecordError{Line: line, Err: err}
		}
		if err := node.Validate(); err != nil {
			return driving.RecordError{Line: line, Err: err}
		}
		records++
		prev, ok := latest[node.Key()]
		if !ok {
			order = append(order, node.Key())
		} else if prev.Timestamp() > node.Timestamp() {
			return nil
		}
		latest[node.Key()] = node
		return nil
	})
	if err != nil {
		return nil, err
	}

	nodes := make([]domain.Node, 0, len(order))
	seen := make(map[string]struct{})
	result := &driving.ImportResult{}
	for _, key := range order {
		node := latest[key]
		if _, ok := seen[key.DataSourceID]; !ok {
			seen[key.DataSourceID] = struct{}{}
			result.DataSources = append(result.DataSources, key.DataSourceID)
		}

		existing, err := s.nodeStore.Get(ctx, key)
		switch {
		case errors.Is(err, domain.ErrNotFound):
		case err != nil:
			return nil, fmt.Errorf("get node: %w", err)
		case node.Timestamp() < existing.Timestamp():
			logger.Debug("Ignoring stale snapshot of %s (%d < %d)", key, node.Timestamp(), existing.Timestamp())
			continue
		}
		nodes = append(nodes, node)
	}
	sort.Strings(result.DataSources)

	if err := s.nodeStore.SaveBatch(ctx, nodes); err != nil {
		return nil, fmt.Errorf("save nodes: %w", err)
	}
	result.Imported = len(nodes)
	result.Stale = records - len(nodes)

	logger.Info("Imported %d nodes from %d data sources (%d stale)",
		result.Imported, len(result.DataSources), result.Stale)
	return result, nil
}

// Export writes every node of a data source as JSON lines and returns the
// number written.
func (s *NodeService) Export(ctx context.Context, dataSourceID string, w io.Writer) (int, error) {
	nodes, err := s.nodeStore.List(ctx, dataSourceID)
	if err != nil {
		return 0, err
	}

	bw := bufio.NewWriter(w)
	for i, n := range nodes {
		if _, err := bw.Write(domain.EncodeNode(n)); err != nil {
			return i, fmt.Errorf("writing node: %w", err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return i, fmt.Errorf("writing node: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("flushing output: %w", err)
	}
	return len(nodes), nil
}

// Check decodes JSON-lines records without storing them.
// The returned slice lists every malformed record; the error is reserved for
// read failures.
func (s *NodeService) Check(r io.Reader) ([]driving.RecordError, error) {
	var problems []driving.RecordError
	err := scanRecords(r, func(line int, record []byte) error {
		if _, err := domain.DecodeNode(record); err != nil {
			problems = append(problems, driving.RecordError{Line: line, Err: err})
		}
		return nil
	})
	return problems, err
}

// scanRecords calls fn for every non-blank line of r, stopping at the first
// error fn returns.
func scanRecords(r io.Reader, fn func(line int, record []byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)

	line := 0
	for scanner.Scan() {
		line++
		record := bytes.TrimSpace(scanner.Bytes())
		if len(record) == 0 {
			continue
		}
		if err := fn(line, record); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading records: %w", err)
	}
	return nil
}
