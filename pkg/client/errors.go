package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Sternrassler/promptdeck/pkg/records"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassTransport represents network and protocol failures.
	ErrorClassTransport ErrorClass = "transport"

	// ErrorClassAuth represents 401/403 responses.
	ErrorClassAuth ErrorClass = "auth"

	// ErrorClassServer represents 5xx responses and unexpected statuses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassValidation represents 400/422 responses.
	ErrorClassValidation ErrorClass = "validation"

	// ErrorClassConflict represents 409 responses.
	ErrorClassConflict ErrorClass = "conflict"

	// ErrorClassNotFound represents 404 responses.
	ErrorClassNotFound ErrorClass = "not_found"

	// ErrorClassRateLimit represents 429 responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"
)

// sentinel maps a class to the shared error taxonomy.
func (c ErrorClass) sentinel() error {
	switch c {
	case ErrorClassTransport:
		return records.ErrTransport
	case ErrorClassAuth:
		return records.ErrAuth
	case ErrorClassValidation:
		return records.ErrValidation
	case ErrorClassConflict:
		return records.ErrConflict
	case ErrorClassNotFound:
		return records.ErrNotFound
	case ErrorClassRateLimit:
		return records.ErrRateLimited
	default:
		return records.ErrServer
	}
}

// APIError is a failed API call. errors.Is matches both the wrapped cause and
// the records sentinel of its class, e.g. records.ErrConflict.
type APIError struct {
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("promptdeck %s error (status %d): %s: %v",
			e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("promptdeck %s error (status %d): %s",
		e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of the error's class.
func (e *APIError) Is(target error) bool {
	return target == e.Class.sentinel()
}

// classifyStatus maps an HTTP status of a failed response to its class.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorClassAuth
	case status == http.StatusNotFound:
		return ErrorClassNotFound
	case status == http.StatusConflict:
		return ErrorClassConflict
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return ErrorClassValidation
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	default:
		return ErrorClassServer
	}
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassTransport, ErrorClassServer, ErrorClassRateLimit:
		return true
	default:
		// Auth, validation, conflict and not found fail the same way again
		return false
	}
}

// isRetryable reports whether err is an APIError of a retryable class.
func isRetryable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && shouldRetry(apiErr.Class)
}
