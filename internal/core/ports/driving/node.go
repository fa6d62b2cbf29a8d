package driving

import (
	"context"
	"io"
	"strconv"

	"github.com/custodia-labs/sercha-nodes/internal/core/domain"
)

// NodeService reads stored nodes and moves them in and out of the encoded
// JSON-lines form.
type NodeService interface {
	// Get retrieves a node by key.
	Get(ctx context.Context, key domain.NodeKey) (domain.Node, error)

	// List returns every node of a data source sorted by node ID.
	List(ctx context.Context, dataSourceID string) ([]domain.Node, error)

	// ListDataSources returns the IDs of data sources with stored nodes.
	ListDataSources(ctx context.Context) ([]string, error)

	// Ancestors resolves a node's parents chain, nearest first.
	Ancestors(ctx context.Context, key domain.NodeKey) ([]domain.Node, error)

	// Children returns the direct children of a node.
	Children(ctx context.Context, key domain.NodeKey) ([]domain.Node, error)

	// Import decodes JSON-lines node records and stores them.
	// It stops at the first malformed record. Per key only the newest
	// snapshot is kept, and records older than the stored snapshot are
	// skipped.
	Import(ctx context.Context, r io.Reader) (*ImportResult, error)

	// Export writes every node of a data source as JSON lines.
	Export(ctx context.Context, dataSourceID string, w io.Writer) (int, error)

	// Check decodes JSON-lines records without storing them and reports
	// every malformed one.
	Check(r io.Reader) ([]RecordError, error)
}

// ImportResult summarises an import.
type ImportResult struct {
	// Imported is the number of stored nodes.
	Imported int

	// Stale counts records not stored because a newer snapshot of the same
	// key was stored already or appeared elsewhere in the input.
	Stale int

	// DataSources lists the distinct data source IDs seen, sorted.
	DataSources []string
}

// RecordError ties a decoding error to its 1-based line number.
type RecordError struct {
	Line int
	Err  error
}

// Error implements the error interface.
func (e RecordError) Error() string {
	return "line " + strconv.Itoa(e.Line) + ": " + e.Err.Error()
}

// Unwrap returns the decoding error.
func (e RecordError) Unwrap() error {
	return e.Err
}
