package domain

// NodeChangeType represents the kind of change observed for a node.
type NodeChangeType int

const (
	// NodeCreated indicates a node seen for the first time.
	NodeCreated NodeChangeType = iota

	// NodeUpdated indicates a new snapshot of a known node.
	NodeUpdated

	// NodeDeleted indicates the item no longer exists in its data source.
	// Only the key of the attached node is meaningful.
	NodeDeleted
)

// String returns a lower-case label for logs.
func (t NodeChangeType) String() string {
	switch t {
	case NodeCreated:
		return "created"
	case NodeUpdated:
		return "updated"
	case NodeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// NodeChange is a change event emitted by a watching connector.
type NodeChange struct {
	// Type is the kind of change.
	Type NodeChangeType

	// Node is the affected node snapshot.
	Node Node
}
