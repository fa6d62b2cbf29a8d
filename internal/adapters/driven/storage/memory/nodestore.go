package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-nodes/internal/core/domain"
	"github.com/custodia-labs/sercha-nodes/internal/core/ports/driven"
)

// Ensure NodeStore implements the interface.
var _ driven.NodeStore = (*NodeStore)(nil)

// NodeStore is an in-memory implementation of driven.NodeStore.
// Node values are immutable, so they are stored and returned without copying.
type NodeStore struct {
	mu    sync.RWMutex
	nodes map[domain.NodeKey]domain.Node
}

// NewNodeStore creates a new in-memory node store.
func NewNodeStore() *NodeStore {
	return &NodeStore{
		nodes: make(map[domain.NodeKey]domain.Node),
	}
}

// Save stores or replaces a node.
func (s *NodeStore) Save(_ context.Context, node domain.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[node.Key()] = node
	return nil
}

// SaveBatch stores or replaces several nodes.
func (s *NodeStore) SaveBatch(_ context.Context, nodes []domain.Node) error {
	if len(nodes) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, node := range nodes {
		s.nodes[node.Key()] = node
	}
	return nil
}

// Get retrieves a node by key.
func (s *NodeStore) Get(_ context.Context, key domain.NodeKey) (domain.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	node, ok := s.nodes[key]
	if !ok {
		return domain.Node{}, domain.ErrNotFound
	}
	return node, nil
}

// Delete removes a node.
func (s *NodeStore) Delete(_ context.Context, key domain.NodeKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nodes, key)
	return nil
}

// Replace swaps the snapshot stored under node's key for node.
func (s *NodeStore) Replace(_ context.Context, node domain.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nodes, node.Key())
	s.nodes[node.Key()] = node
	return nil
}

// DeleteBatch removes several nodes.
func (s *NodeStore) DeleteBatch(_ context.Context, keys []domain.NodeKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.nodes, key)
	}
	return nil
}

// DeleteTree removes a node and its stored descendants.
func (s *NodeStore) DeleteTree(_ context.Context, key domain.NodeKey) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, node := range s.nodes {
		if k.DataSourceID != key.DataSourceID {
			continue
		}
		if k == key || slices.Contains(node.Parents(), key.NodeID) {
			delete(s.nodes, k)
			removed++
		}
	}
	return removed, nil
}

// List returns every node of a data source sorted by node ID.
func (s *NodeStore) List(_ context.Context, dataSourceID string) ([]domain.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Node
	for key, node := range s.nodes {
		if key.DataSourceID == dataSourceID {
			result = append(result, node)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].NodeID() < result[j].NodeID()
	})
	return result, nil
}

// ListDataSources returns the distinct data source IDs in sorted order.
func (s *NodeStore) ListDataSources(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{})
	for key := range s.nodes {
		seen[key.DataSourceID] = struct{}{}
	}
	result := make([]string, 0, len(seen))
	for id := range seen {
		result = append(result, id)
	}
	sort.Strings(result)
	return result, nil
}
