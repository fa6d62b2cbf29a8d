package mcp

import (
	"context"
	"io"

	"github.com/custodia-labs/sercha-nodes/internal/core/domain"
	"github.com/custodia-labs/sercha-nodes/internal/core/ports/driving"
)

// mockNodeService is a mock implementation of driving.NodeService.
type mockNodeService struct {
	nodes       map[domain.NodeKey]domain.Node
	dataSources []string
	ancestors   []domain.Node
	children    []domain.Node
	ancestorErr error
	err         error
}

var _ driving.NodeService = (*mockNodeService)(nil)

func newMockNodeService(nodes ...domain.Node) *mockNodeService {
	m := &mockNodeService{nodes: make(map[domain.NodeKey]domain.Node)}
	for _, n := range nodes {
		m.nodes[n.Key()] = n
	}
	return m
}

func (m *mockNodeService) Get(_ context.Context, key domain.NodeKey) (domain.Node, error) {
	if m.err != nil {
		return domain.Node{}, m.err
	}
	n, ok := m.nodes[key]
	if !ok {
		return domain.Node{}, domain.ErrNotFound
	}
	return n, nil
}

func (m *mockNodeService) List(_ context.Context, dataSourceID string) ([]domain.Node, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Node
	for _, n := range m.nodes {
		if n.DataSourceID() == dataSourceID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockNodeService) ListDataSources(_ context.Context) ([]string, error) {
	return m.dataSources, m.err
}

func (m *mockNodeService) Ancestors(_ context.Context, _ domain.NodeKey) ([]domain.Node, error) {
	if m.ancestorErr != nil {
		return nil, m.ancestorErr
	}
	return m.ancestors, m.err
}

func (m *mockNodeService) Children(_ context.Context, _ domain.NodeKey) ([]domain.Node, error) {
	return m.children, m.err
}

func (m *mockNodeService) Import(_ context.Context, _ io.Reader) (*driving.ImportResult, error) {
	return nil, m.err
}

func (m *mockNodeService) Export(ctx context.Context, dataSourceID string, w io.Writer) (int, error) {
	nodes, err := m.List(ctx, dataSourceID)
	if err != nil {
		return 0, err
	}
	for _, n := range nodes {
		if _, err := w.Write(append(domain.EncodeNode(n), '\n')); err != nil {
			return 0, err
		}
	}
	return len(nodes), nil
}

func (m *mockNodeService) Check(_ io.Reader) ([]driving.RecordError, error) {
	return nil, m.err
}
