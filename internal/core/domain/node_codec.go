package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"unicode/utf8"
)

// Encoded field names of a node record.
const (
	FieldDataSourceID = "data_source_id"
	FieldNodeID       = "node_id"
	FieldNodeType     = "node_type"
	FieldTimestamp    = "timestamp"
	FieldTitle        = "title"
	FieldMimeType     = "mime_type"
	FieldParents      = "parents"
)

// MalformedRecordError reports an encoded node that cannot be decoded.
// It matches ErrMalformedRecord with errors.Is.
type MalformedRecordError struct {
	// Field is the offending key. Empty when the record itself is unusable.
	Field string

	// Expected describes what the field should have held.
	Expected string

	// Cause is the underlying parse error, if any.
	Cause error
}

// Error implements the error interface.
func (e *MalformedRecordError) Error() string {
	msg := ErrMalformedRecord.Error()
	if e.Field != "" {
		msg += fmt.Sprintf(": field %q", e.Field)
	}
	msg += ": expected " + e.Expected
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Is reports whether target is ErrMalformedRecord.
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

// Unwrap returns the underlying parse error.
func (e *MalformedRecordError) Unwrap() error {
	return e.Cause
}

func malformed(field, expected string, cause error) *MalformedRecordError {
	return &MalformedRecordError{Field: field, Expected: expected, Cause: cause}
}

// nodeRecord is the wire shape of a node.
type nodeRecord struct {
	DataSourceID string   `json:"data_source_id"`
	NodeID       string   `json:"node_id"`
	NodeType     string   `json:"node_type"`
	Timestamp    uint64   `json:"timestamp"`
	Title        string   `json:"title"`
	MimeType     string   `json:"mime_type"`
	Parents      []string `json:"parents"`
}

// EncodeNode renders n as a JSON object with one key per field.
//
// Only nodes that pass Validate round-trip. A node type outside the declared
// variants is written as "NodeType(n)", which DecodeNode rejects, and invalid
// UTF-8 in a string field is written as U+FFFD.
func EncodeNode(n Node) []byte {
	parents := n.parents
	if parents == nil {
		parents = []string{}
	}
	// Every field is a string, an integer or a string slice, so marshalling
	// cannot fail.
	data, _ := json.Marshal(nodeRecord{
		DataSourceID: n.dataSourceID,
		NodeID:       n.nodeID,
		NodeType:     n.nodeType.String(),
		Timestamp:    n.timestamp,
		Title:        n.title,
		MimeType:     n.mimeType,
		Parents:      parents,
	})
	return data
}

// DecodeNode parses a JSON node record.
// All seven fields are required; unknown keys are ignored. Any violation
// yields a *MalformedRecordError and no node.
func DecodeNode(data []byte) (Node, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Node{}, malformed("", "a JSON object", err)
	}
	if fields == nil {
		return Node{}, malformed("", "a JSON object", nil)
	}

	dataSourceID, err := decodeString(fields, FieldDataSourceID)
	if err != nil {
		return Node{}, err
	}
	nodeID, err := decodeString(fields, FieldNodeID)
	if err != nil {
		return Node{}, err
	}
	typeName, err := decodeString(fields, FieldNodeType)
	if err != nil {
		return Node{}, err
	}
	nodeType, err := ParseNodeType(typeName)
	if err != nil {
		return Node{}, malformed(FieldNodeType, `one of "Document", "Table", "Folder"`, err)
	}
	timestamp, err := decodeTimestamp(fields)
	if err != nil {
		return Node{}, err
	}
	title, err := decodeString(fields, FieldTitle)
	if err != nil {
		return Node{}, err
	}
	mimeType, err := decodeString(fields, FieldMimeType)
	if err != nil {
		return Node{}, err
	}
	parents, err := decodeParents(fields)
	if err != nil {
		return Node{}, err
	}

	return Node{
		dataSourceID: dataSourceID,
		nodeID:       nodeID,
		nodeType:     nodeType,
		timestamp:    timestamp,
		title:        title,
		mimeType:     mimeType,
		parents:      parents,
	}, nil
}

// MarshalJSON implements json.Marshaler.
func (n Node) MarshalJSON() ([]byte, error) {
	return EncodeNode(n), nil
}

// UnmarshalJSON implements json.Unmarshaler.
// On failure n is left untouched.
func (n *Node) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeNode(data)
	if err != nil {
		return err
	}
	*n = decoded
	return nil
}

var jsonNullLiteral = []byte("null")

// lookup returns the raw value for key, treating null as absent.
func lookup(fields map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw, ok := fields[key]
	if !ok {
		return nil, false
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, jsonNullLiteral) {
		return nil, false
	}
	return raw, true
}

func decodeString(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := lookup(fields, key)
	if !ok {
		return "", malformed(key, "a string, field is missing", nil)
	}
	if raw[0] != '"' {
		return "", malformed(key, "a string", nil)
	}
	// encoding/json would silently substitute U+FFFD.
	if !utf8.Valid(raw) {
		return "", malformed(key, "a valid UTF-8 string", nil)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", malformed(key, "a string", err)
	}
	return s, nil
}

func decodeTimestamp(fields map[string]json.RawMessage) (uint64, error) {
	raw, ok := lookup(fields, FieldTimestamp)
	if !ok {
		return 0, malformed(FieldTimestamp, "a non-negative 64-bit integer, field is missing", nil)
	}
	// ParseUint rejects signs, fractions, exponents, quotes and overflow,
	// which is exactly the set of values that are not a uint64 literal.
	ts, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, malformed(FieldTimestamp, "a non-negative 64-bit integer", err)
	}
	return ts, nil
}

func decodeParents(fields map[string]json.RawMessage) ([]string, error) {
	raw, ok := lookup(fields, FieldParents)
	if !ok {
		return nil, malformed(FieldParents, "an array of strings, field is missing", nil)
	}
	var elems []json.RawMessage
	if raw[0] != '[' {
		return nil, malformed(FieldParents, "an array of strings", nil)
	}
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, malformed(FieldParents, "an array of strings", err)
	}

	parents := make([]string, 0, len(elems))
	for i, elem := range elems {
		elem = bytes.TrimSpace(elem)
		if len(elem) == 0 || elem[0] != '"' {
			return nil, malformed(FieldParents, fmt.Sprintf("a string at index %d", i), nil)
		}
		if !utf8.Valid(elem) {
			return nil, malformed(FieldParents, fmt.Sprintf("a valid UTF-8 string at index %d", i), nil)
		}
		var s string
		if err := json.Unmarshal(elem, &s); err != nil {
			return nil, malformed(FieldParents, fmt.Sprintf("a string at index %d", i), err)
		}
		parents = append(parents, s)
	}
	return parents, nil
}
