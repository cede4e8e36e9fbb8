package eventstore

import (
	"github.com/ItsDanik/rfidisk/internal/foundation/errors"
)

var (
	// ErrDatabaseOpenFailed indicates the SQLite database could not be opened.
	ErrDatabaseOpenFailed = errors.StorageError("could not open event journal").Build()

	// ErrInitializeSchemaFailed indicates the journal schema could not be created.
	ErrInitializeSchemaFailed = errors.StorageError("failed to initialize event journal schema").Build()

	// ErrMarshalPayloadFailed indicates an event payload could not be encoded.
	ErrMarshalPayloadFailed = errors.StorageError("failed to marshal event payload").Build()
)
