// Package apperr defines the error kinds shared by every component.
//
// Handlers translate a kind into an HTTP status; services attach a kind
// as close to the failure as possible and wrap the cause with %w.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	// BadInput covers malformed payloads, missing required fields and
	// out-of-range options. Never retried.
	BadInput Kind = "bad_input"
	// NotFound means a referenced id does not exist.
	NotFound Kind = "not_found"
	// Conflict covers uniqueness violations and already-in-flight work.
	Conflict Kind = "conflict"
	// PreconditionFailed covers operations that need state the system
	// is not in, e.g. no active wordbook.
	PreconditionFailed Kind = "precondition_failed"
	// Transient marks database busy/timeout conditions. Retried once
	// by the store; the importer retries a batch once.
	Transient Kind = "transient"
	// Fatal marks invariant violations. Logged with full context.
	Fatal Kind = "fatal"
)

// Error carries a kind, a user-safe message and optional details.
// Details must stay displayable: field names, row numbers, counts.
type Error struct {
	Kind    Kind
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithDetails returns a copy of the error carrying display-safe details.
func (e *Error) WithDetails(details any) *Error {
	out := *e
	out.Details = details
	return &out
}

// KindOf extracts the kind from an error chain. Unclassified errors
// report Fatal so that they surface as 500s rather than disappearing.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Fatal
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error kind to the response status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case BadInput:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict, PreconditionFailed:
		return http.StatusConflict
	case Transient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
