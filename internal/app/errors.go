package app

import (
	"errors"
	"fmt"
)

// ValidationError is a client-side rejection raised before any network call.
// It never mutates state; the message is shown inline next to the offending
// input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a pre-network validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ServerError is a non-success status or an explicit error payload from the
// backend. Message holds the server-provided text when present and is
// surfaced verbatim; otherwise the error falls back to a status-derived line.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("server error (status %d)", e.Status)
}

// ErrLocationUnsupported is reported when the execution environment has no
// location capability at all. Informational only: the rest of the client
// works without coordinates.
var ErrLocationUnsupported = errors.New("location is not supported in this environment")

// ErrMutationInFlight rejects a second mutation against a goal whose previous
// mutation has not yet been answered by the server.
var ErrMutationInFlight = errors.New("a previous update for this goal is still in flight")
