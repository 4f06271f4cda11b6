// Package apperrors defines the error kinds services return to the HTTP edge.
package apperrors

import (
	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific request field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports a missing or malformed input. Never retried.
type ValidationError struct {
	Message string
	Fields  []FieldError
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError builds a ValidationError with optional per-field messages.
func NewValidationError(msg string, fields ...FieldError) error {
	return &ValidationError{Message: msg, Fields: fields}
}

// Kind classifies non-validation failures.
type Kind int

const (
	KindUnauthenticated Kind = iota + 1
	KindForbidden
	KindNotFound
	KindUpstreamBusy
	KindPartialFanout
)

// Error is a classified failure carrying a user-safe message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Unauthenticated(msg string) error { return &Error{Kind: KindUnauthenticated, Message: msg} }

func Forbidden(msg string) error { return &Error{Kind: KindForbidden, Message: msg} }

func NotFound(msg string) error { return &Error{Kind: KindNotFound, Message: msg} }

// UpstreamBusy marks a transient failure of the AI provider; callers should try again later.
func UpstreamBusy(err error) error {
	return &Error{Kind: KindUpstreamBusy, Message: "AI service is busy, please try again", Err: err}
}

// PartialFanout marks a request whose primary write committed but whose
// notification delivery could not be scheduled.
func PartialFanout(err error) error {
	return &Error{Kind: KindPartialFanout, Message: "notification fan-out failed", Err: err}
}

// KindOf returns the Kind of the first classified error in err's chain, or 0.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return 0
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
