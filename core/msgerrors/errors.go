// Package msgerrors defines the framework's error taxonomy: configuration
// errors, validation failures, transient errors, business failures, and
// concurrency conflicts, each tagged with a machine-readable code so
// decorators and dead-letter handlers can classify failures without string
// matching.
package msgerrors

import (
	"errors"
	"fmt"
)

// Code classifies an Error for retry/DLQ decisions.
type Code string

const (
	CodeConfiguration Code = "configuration"
	CodeValidation    Code = "validation"
	CodeTransient     Code = "transient"
	CodeBusiness      Code = "business"
	CodeConcurrency   Code = "concurrency"
	CodeDisposed      Code = "disposed"
)

// Error is the structured error carried through the pipeline.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// WithDetails returns a copy of e with Details set.
func (e *Error) WithDetails(details map[string]any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// New constructs an Error of the given code.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap constructs an Error of the given code around cause.
func Wrap(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Message: msg, Cause: cause}
}

// Is reports whether err carries the given Code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

var (
	// ErrNoHandler is a configuration error for unresolved command/query types.
	ErrNoHandler = New(CodeConfiguration, "no handler registered for message type")
	// ErrDuplicateHandler is a configuration error for conflicting registrations.
	ErrDuplicateHandler = New(CodeConfiguration, "handler already registered for message type")
	// ErrDisposed is returned by a disposed processor for every further send.
	ErrDisposed = New(CodeDisposed, "processor has been disposed")
	// ErrCircuitOpen is returned by the circuit breaker decorator while open.
	ErrCircuitOpen = New(CodeTransient, "circuit breaker is open")
	// ErrRateLimited is returned by the rate limiter decorator on rejection.
	ErrRateLimited = New(CodeTransient, "rate limit exceeded")
)
