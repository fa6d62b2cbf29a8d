package driven

import (
	"context"

	"github.com/custodia-labs/sercha-nodes/internal/core/domain"
)

// NodeConnector discovers nodes from a data source.
// Each connector type (filesystem, ...) implements this interface.
type NodeConnector interface {
	// Type returns the connector type identifier.
	Type() string

	// DataSourceID returns the data source the emitted nodes belong to.
	DataSourceID() string

	// Validate checks the connector can reach its data source.
	// Returns nil if ready to discover, an error describing the problem otherwise.
	Validate(ctx context.Context) error

	// Discover emits a snapshot of every node in the data source.
	// Both channels are closed when discovery ends. Errors on the error
	// channel are per-item and do not stop discovery.
	Discover(ctx context.Context) (<-chan domain.Node, <-chan error)

	// Watch emits changes until ctx is cancelled or the connector is closed.
	Watch(ctx context.Context) (<-chan domain.NodeChange, error)

	// Close releases resources.
	Close() error
}
