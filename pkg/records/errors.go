package records

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the store, the HTTP API and the client.
// Typed errors unwrap to one of these so callers can use errors.Is.
var (
	// ErrValidation indicates rejected input.
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates a write that collides with existing data.
	ErrConflict = errors.New("conflict")

	// ErrNotFound indicates a missing record.
	ErrNotFound = errors.New("not found")

	// ErrTransport indicates a network or HTTP level failure.
	ErrTransport = errors.New("transport failure")

	// ErrAuth indicates a missing, invalid or expired credential.
	ErrAuth = errors.New("unauthorized")

	// ErrServer indicates a failure on the serving side, e.g. a malformed cursor.
	ErrServer = errors.New("server failure")

	// ErrRateLimited indicates the caller exceeded its request budget.
	ErrRateLimited = errors.New("rate limited")
)

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
