// Package domain defines the core entities of sercha-nodes.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Node: An immutable snapshot of one item in a data source
//   - NodeType: The closed Document / Table / Folder classification
//   - NodeKey: The (data source, node) identity of a logical item
//   - Hierarchy: Containment tree rebuilt from parents chains
//
// # Encoded Form
//
// A node encodes to a JSON object with the keys data_source_id, node_id,
// node_type, timestamp, title, mime_type and parents. Decoding rejects
// incomplete or ill-typed records with ErrMalformedRecord and ignores
// unknown keys.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
