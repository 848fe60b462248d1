package chat

import (
	"errors"
	"fmt"
)

// The orchestrator converts every internal failure into one of these kinds
// before it reaches a caller; nothing below it may crash the interactive loop.
var (
	// ErrUnauthenticated marks a caller that reached the orchestrator without
	// a verified identity. Rejected before any state transition.
	ErrUnauthenticated = errors.New("caller is not authenticated")

	// ErrEmptyMessage marks malformed input, rejected before session
	// resolution with no side effects.
	ErrEmptyMessage = errors.New("message text is empty")

	// ErrSessionNotFound marks a caller-supplied session id that does not
	// resolve to a session this caller owns. Missing and foreign sessions
	// produce the same error so session ids cannot be probed.
	ErrSessionNotFound = errors.New("session not found")

	// ErrModelTimeout marks an invocation that exceeded the wall-clock budget.
	ErrModelTimeout = errors.New("model invocation timed out")
)

// StoreError wraps a persistence failure with the operation that caused it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// ModelError wraps a model transport or inference failure.
type ModelError struct {
	Err error
}

func (e *ModelError) Error() string { return fmt.Sprintf("model invocation: %v", e.Err) }
func (e *ModelError) Unwrap() error { return e.Err }
