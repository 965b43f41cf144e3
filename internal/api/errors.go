package api

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying every API failure. Callers branch with
// errors.Is; the wrapping *Error carries request context and the raw
// response body.
var (
	// ErrTransport indicates a network-level failure.
	ErrTransport = errors.New("transport error")
	// ErrUnauthorized indicates the service rejected the bearer token
	// even after one refresh.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound indicates a 404 for the requested resource.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a 409, e.g. a status transition the service
	// rejected because of concurrent modification.
	ErrConflict = errors.New("conflict")
	// ErrServer indicates a 5xx that persisted through the retry budget.
	ErrServer = errors.New("server error")
	// ErrMalformed indicates a response body that does not match the
	// expected shape.
	ErrMalformed = errors.New("malformed response")
)

// Error wraps a failed API call with enough context to diagnose it. Body
// holds the raw (truncated) response body; the metadata layer inspects it
// to tell an unknown field apart from other 4xx answers.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s: %v (status %d)", e.Method, e.Path, e.Err, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// classifyStatus maps a non-success HTTP status onto a sentinel.
func classifyStatus(status int) error {
	switch {
	case status == 401:
		return ErrUnauthorized
	case status == 404:
		return ErrNotFound
	case status == 409:
		return ErrConflict
	case status >= 500:
		return ErrServer
	default:
		return fmt.Errorf("unexpected response status %d", status)
	}
}
