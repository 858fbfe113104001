package store

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable means the storage engine could not be opened at all.
	// Fatal for the session: nothing works until it is resolved.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrNotInitialized means an operation was attempted before Open
	// completed or after Close. This is a sequencing bug in the caller.
	ErrNotInitialized = errors.New("store not initialized")
)

// WriteError reports a failed write. The transaction it belonged to is
// rolled back, so no partial state survives.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("store: %s: %s", e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// ReadError reports a failed read.
type ReadError struct {
	Op  string
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("store: %s: %s", e.Op, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

func writeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &WriteError{Op: op, Err: err}
}

func readErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ReadError{Op: op, Err: err}
}
