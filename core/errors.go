package core

import (
	"errors"
	"fmt"
)

// ErrInvalidIdentity is returned when an operation is attempted with a scope
// whose user id is empty. It always fires before any remote call.
var ErrInvalidIdentity = errors.New("identity scope requires a non-empty user id")

// RetrievalError wraps a failed read (search or list) against a memory store.
// The runner treats it as "no memories available", never as fatal.
type RetrievalError struct {
	Op  string // "search" or "list"
	Err error
}

// Error implements the error interface.
func (e *RetrievalError) Error() string {
	return fmt.Sprintf("memory %s unavailable: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *RetrievalError) Unwrap() error { return e.Err }

// NewRetrievalError wraps err as a RetrievalError for the given operation.
func NewRetrievalError(op string, err error) error {
	return &RetrievalError{Op: op, Err: err}
}

// PersistenceError wraps a failed write (add or delete_all) against a memory
// store. Add failures during a turn are non-fatal; delete_all failures are
// surfaced because deletion is a user-initiated destructive action.
type PersistenceError struct {
	Op  string // "add" or "delete_all"
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("memory %s failed: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *PersistenceError) Unwrap() error { return e.Err }

// NewPersistenceError wraps err as a PersistenceError for the given operation.
func NewPersistenceError(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// GenerationError wraps a failed model completion. The runner converts it
// into a visible error turn rather than letting it cross the turn boundary.
type GenerationError struct {
	Model string
	Err   error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("generation failed: %v", e.Err)
	}
	return fmt.Sprintf("generation failed (model %s): %v", e.Model, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *GenerationError) Unwrap() error { return e.Err }
