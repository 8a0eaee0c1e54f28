package domain

import (
	"errors"
	"fmt"
)

// Failure classifications surfaced by the API client and the auth service.
var (
	ErrUnreachable           = errors.New("backend unreachable")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrForbidden             = errors.New("access forbidden")
	ErrNotFound              = errors.New("not found")
	ErrValidationFailed      = errors.New("validation failed")
	ErrRateLimited           = errors.New("rate limited")
	ErrServerError           = errors.New("server error")
	ErrInvalidServerResponse = errors.New("invalid server response")
	ErrMissingCredentials    = errors.New("missing credentials")
)

// ErrTransitionInFlight is returned when a session transition is requested
// while another one for the same browser context has not settled.
var ErrTransitionInFlight = errors.New("session transition already in progress")

// APIError is the structured failure produced for every call to the backend.
// Kind is one of the classification sentinels above, so errors.Is(err,
// ErrUnauthorized) works on any wrapped APIError.
type APIError struct {
	Kind    error
	Status  int
	Message string
	// Fields holds per-field validation messages, keyed by JSON field name.
	Fields  map[string]string
	Timeout bool
	// Local marks failures raised before any backend call.
	Local   bool
	Err     error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	return msg
}

func (e *APIError) Is(target error) bool { return target == e.Kind }

func (e *APIError) Unwrap() error { return e.Err }

// NewValidationError builds a ValidationFailed error with field details.
func NewValidationError(msg string, fields map[string]string) *APIError {
	return &APIError{Kind: ErrValidationFailed, Status: 422, Message: msg, Fields: fields}
}

// Invalid builds an InvalidServerResponse error for a backend protocol violation.
func Invalid(format string, args ...any) *APIError {
	return &APIError{Kind: ErrInvalidServerResponse, Message: fmt.Sprintf(format, args...)}
}

// RejectedLocally reports whether err was raised before any backend call,
// so no session state was touched.
func RejectedLocally(err error) bool {
	ae := AsAPIError(err)
	return ae != nil && ae.Local
}

// AsAPIError extracts the *APIError from err's chain, or nil.
func AsAPIError(err error) *APIError {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}
