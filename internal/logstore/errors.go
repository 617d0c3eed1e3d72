package logstore

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFilter is returned for a malformed filter or level.
	ErrInvalidFilter = errors.New("invalid log filter")

	// ErrUnknownFormat is returned by Export for an unsupported format.
	ErrUnknownFormat = errors.New("unknown export format")

	// ErrInvalidImport is returned when an import blob is not a JSON export.
	ErrInvalidImport = errors.New("invalid log import")
)

// PersistenceError describes a failed save or load. The store records it
// and carries on; it is never returned from Append, Query or Close.
type PersistenceError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("log persistence %s: %v", e.Op, e.Err)
}

// Unwrap returns the backend error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}
