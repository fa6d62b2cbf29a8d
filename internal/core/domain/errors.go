package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates a value that breaks a caller contract,
	// such as a node with an empty identifier.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMalformedRecord indicates an encoded node that cannot be decoded.
	// Decoding errors are *MalformedRecordError values that match it.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrUnsupportedType indicates an unknown node or connector type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrSyncInProgress indicates a sync is already running for a data source.
	ErrSyncInProgress = errors.New("sync in progress")

	// Connector Errors.

	// ErrConnectorValidation indicates connector validation failed.
	// The data source is misconfigured or unreachable.
	ErrConnectorValidation = errors.New("connector validation failed")

	// ErrConnectorClosed indicates the connector has been closed.
	ErrConnectorClosed = errors.New("connector closed")

	// ErrWatchUnsupported indicates the connector has no change feed.
	ErrWatchUnsupported = errors.New("watch not supported")
)
