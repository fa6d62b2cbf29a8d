package domain

import (
	"fmt"
	"slices"
	"unicode/utf8"
)

// NodeType classifies a node within its data source.
// The set of variants is closed: Document, Table and Folder.
type NodeType uint8

const (
	// NodeTypeDocument is a leaf item with a textual or binary body.
	NodeTypeDocument NodeType = iota + 1

	// NodeTypeTable is a leaf item with a tabular body (spreadsheets, CSV).
	NodeTypeTable

	// NodeTypeFolder is a container. It contributes hierarchy, not content.
	NodeTypeFolder
)

var nodeTypeNames = map[NodeType]string{
	NodeTypeDocument: "Document",
	NodeTypeTable:    "Table",
	NodeTypeFolder:   "Folder",
}

// NodeTypes returns every node type in declaration order.
func NodeTypes() []NodeType {
	return []NodeType{NodeTypeDocument, NodeTypeTable, NodeTypeFolder}
}

// ParseNodeType converts a variant name into a NodeType.
// Matching is case-sensitive and unknown names are rejected.
func ParseNodeType(name string) (NodeType, error) {
	for _, t := range NodeTypes() {
		if nodeTypeNames[t] == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown node type %q", ErrUnsupportedType, name)
}

// String returns the variant name.
func (t NodeType) String() string {
	if name, ok := nodeTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("NodeType(%d)", uint8(t))
}

// Valid reports whether t is one of the declared variants.
func (t NodeType) Valid() bool {
	_, ok := nodeTypeNames[t]
	return ok
}

// IsLeaf reports whether nodes of this type carry content.
func (t NodeType) IsLeaf() bool {
	return t == NodeTypeDocument || t == NodeTypeTable
}

// MarshalText implements encoding.TextMarshaler.
func (t NodeType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: node type %d", ErrUnsupportedType, uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *NodeType) UnmarshalText(text []byte) error {
	parsed, err := ParseNodeType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// NodeKey is the global identity of a logical item.
// Two snapshots with the same key describe the same item, possibly at
// different times.
type NodeKey struct {
	DataSourceID string
	NodeID       string
}

// String renders the key as "data_source_id/node_id".
func (k NodeKey) String() string {
	return k.DataSourceID + "/" + k.NodeID
}

// Node is an immutable snapshot of one item in a data source.
//
// Parents lists ancestor node IDs nearest first: Parents()[0] is the direct
// container and the last element is the topmost ancestor. An empty list marks
// a root item. A node's own ID never appears in its parents.
type Node struct {
	dataSourceID string
	nodeID       string
	nodeType     NodeType
	timestamp    uint64
	title        string
	mimeType     string
	parents      []string
}

// NewNode builds a Node from connector metadata.
// It performs no validation and never fails. The parents slice is copied, so
// later changes to the caller's slice do not affect the node.
func NewNode(
	dataSourceID, nodeID string,
	nodeType NodeType,
	timestamp uint64,
	title, mimeType string,
	parents []string,
) Node {
	return Node{
		dataSourceID: dataSourceID,
		nodeID:       nodeID,
		nodeType:     nodeType,
		timestamp:    timestamp,
		title:        title,
		mimeType:     mimeType,
		parents:      slices.Clone(parents),
	}
}

// DataSourceID returns the identifier of the owning data source.
func (n Node) DataSourceID() string { return n.dataSourceID }

// NodeID returns the identifier of the item within its data source.
func (n Node) NodeID() string { return n.nodeID }

// Type returns the node classification.
func (n Node) Type() NodeType { return n.nodeType }

// Timestamp returns the last-known modification time in milliseconds since
// the Unix epoch, or the source's own unit.
func (n Node) Timestamp() uint64 { return n.timestamp }

// Title returns the display name.
func (n Node) Title() string { return n.title }

// MimeType returns the content type hint. Folders usually have none.
func (n Node) MimeType() string { return n.mimeType }

// Parents returns a copy of the ancestor chain, nearest first.
// The result is never nil.
func (n Node) Parents() []string {
	out := make([]string, len(n.parents))
	copy(out, n.parents)
	return out
}

// Key returns the identity key of the logical item.
func (n Node) Key() NodeKey {
	return NodeKey{DataSourceID: n.dataSourceID, NodeID: n.nodeID}
}

// IsRoot reports whether the node has no ancestors.
func (n Node) IsRoot() bool { return len(n.parents) == 0 }

// Parent returns the direct container's ID.
func (n Node) Parent() (string, bool) {
	if len(n.parents) == 0 {
		return "", false
	}
	return n.parents[0], true
}

// Equal reports whether every field of n and other is equal.
// Parents must match in length, elements and order. This is value equality,
// not identity: use Key to compare logical items.
func (n Node) Equal(other Node) bool {
	return n.dataSourceID == other.dataSourceID &&
		n.nodeID == other.nodeID &&
		n.nodeType == other.nodeType &&
		n.timestamp == other.timestamp &&
		n.title == other.title &&
		n.mimeType == other.mimeType &&
		slices.Equal(n.parents, other.parents)
}

// Validate checks the caller contract that NewNode does not enforce:
// non-empty identifiers, a declared node type, text fields that are valid
// UTF-8, and a parents chain free of empty, duplicate or self-referencing IDs.
// Nodes that pass round-trip through EncodeNode and DecodeNode unchanged.
func (n Node) Validate() error {
	if n.dataSourceID == "" {
		return fmt.Errorf("%w: data_source_id is empty", ErrInvalidInput)
	}
	if n.nodeID == "" {
		return fmt.Errorf("%w: node_id is empty", ErrInvalidInput)
	}
	if !n.nodeType.Valid() {
		return fmt.Errorf("%w: node_type %s is not a declared variant", ErrInvalidInput, n.nodeType)
	}
	for _, f := range []struct{ name, value string }{
		{FieldDataSourceID, n.dataSourceID},
		{FieldNodeID, n.nodeID},
		{FieldTitle, n.title},
		{FieldMimeType, n.mimeType},
	} {
		if !utf8.ValidString(f.value) {
			return fmt.Errorf("%w: %s %q is not valid UTF-8", ErrInvalidInput, f.name, f.value)
		}
	}
	seen := make(map[string]struct{}, len(n.parents))
	for i, p := range n.parents {
		switch {
		case p == "":
			return fmt.Errorf("%w: parents[%d] is empty", ErrInvalidInput, i)
		case p == n.nodeID:
			return fmt.Errorf("%w: parents[%d] references the node itself", ErrInvalidInput, i)
		case !utf8.ValidString(p):
			return fmt.Errorf("%w: parents[%d] %q is not valid UTF-8", ErrInvalidInput, i, p)
		}
		if _, dup := seen[p]; dup {
			return fmt.Errorf("%w: parents[%d] %q is repeated", ErrInvalidInput, i, p)
		}
		seen[p] = struct{}{}
	}
	return nil
}
