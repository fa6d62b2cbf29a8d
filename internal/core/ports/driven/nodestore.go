package driven

import (
	"context"

	"github.com/custodia-labs/sercha-nodes/internal/core/domain"
)

// NodeStore persists node snapshots, one per logical item.
// Saving a node replaces any snapshot stored under the same key.
type NodeStore interface {
	// Save stores or replaces a node.
	Save(ctx context.Context, node domain.Node) error

	// SaveBatch stores or replaces several nodes atomically where the
	// backend supports it.
	SaveBatch(ctx context.Context, nodes []domain.Node) error

	// Get retrieves a node by key.
	// Returns domain.ErrNotFound if no snapshot exists.
	Get(ctx context.Context, key domain.NodeKey) (domain.Node, error)

	// Replace removes the snapshot stored under node's key and stores node in
	// its place as one atomic step. Used when an item changes type.
	Replace(ctx context.Context, node domain.Node) error

	// Delete removes a node. Deleting a missing node is not an error.
	Delete(ctx context.Context, key domain.NodeKey) error

	// DeleteBatch removes several nodes atomically where the backend
	// supports it. Missing keys are ignored.
	DeleteBatch(ctx context.Context, keys []domain.NodeKey) error

	// DeleteTree removes a node and every node of the same data source whose
	// parents contain its ID. Returns the number of nodes removed.
	DeleteTree(ctx context.Context, key domain.NodeKey) (int, error)

	// List returns every node of a data source sorted by node ID.
	List(ctx context.Context, dataSourceID string) ([]domain.Node, error)

	// ListDataSources returns the distinct data source IDs in sorted order.
	ListDataSources(ctx context.Context) ([]string, error)
}
