// Package errors provides structured error handling with HTTP status code
// mapping for the poll API's error taxonomy.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType is the machine-readable category of an error. Every failure
// the API reports carries exactly one of these.
type ErrorType string

const (
	// TypeValidation indicates malformed or insufficient input (HTTP 400).
	TypeValidation ErrorType = "validation"
	// TypeNotFound indicates the poll or option does not exist (HTTP 404).
	TypeNotFound ErrorType = "not_found"
	// TypeOptionMismatch indicates the option exists but belongs to a
	// different poll (HTTP 404, with a distinct type so clients can tell).
	TypeOptionMismatch ErrorType = "option_mismatch"
	// TypePollInactive indicates a vote outside the poll's active window (HTTP 409).
	TypePollInactive ErrorType = "poll_inactive"
	// TypeInternal indicates an unexpected server-side failure (HTTP 500).
	TypeInternal ErrorType = "internal"
)

// Error is a structured error with type, message, and context fields.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the HTTP status code for this error type.
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeNotFound, TypeOptionMismatch:
		return http.StatusNotFound
	case TypePollInactive:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ValidationError creates a new validation error (HTTP 400).
func ValidationError(message string) *Error {
	return &Error{Type: TypeValidation, Message: message, Context: make(map[string]any)}
}

// NotFoundError creates a new not-found error (HTTP 404).
func NotFoundError(message string) *Error {
	return &Error{Type: TypeNotFound, Message: message, Context: make(map[string]any)}
}

// OptionMismatchError creates an error for an option under the wrong poll.
func OptionMismatchError(message string) *Error {
	return &Error{Type: TypeOptionMismatch, Message: message, Context: make(map[string]any)}
}

// PollInactiveError creates an error for a vote outside the active window.
func PollInactiveError(message string) *Error {
	return &Error{Type: TypePollInactive, Message: message, Context: make(map[string]any)}
}

// InternalError creates a new internal error (HTTP 500). The cause is
// logged server-side; clients only see the generic message.
func InternalError(message string, cause error) *Error {
	return &Error{Type: TypeInternal, Message: message, Cause: cause, Context: make(map[string]any)}
}

// WithField adds a context field to the error (chainable).
func (e *Error) WithField(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// ErrorResponse is the JSON structure sent to clients.
type ErrorResponse struct {
	Error string    `json:"error"`
	Type  ErrorType `json:"type"`
}

// ToResponse converts an Error to its client-facing JSON form. Context
// fields stay server-side; they are for logs, not for clients.
func (e *Error) ToResponse() ErrorResponse {
	message := e.Message
	if e.Type == TypeInternal {
		// Never leak internal detail.
		message = "internal server error"
	}
	return ErrorResponse{Error: message, Type: e.Type}
}

// AsStructuredError converts any error into a structured Error. An
// *Error passes through unchanged; anything else becomes TypeInternal.
func AsStructuredError(err error) *Error {
	if err == nil {
		return nil
	}

	var structuredErr *Error
	if errors.As(err, &structuredErr) {
		return structuredErr
	}

	return InternalError("internal server error", err)
}
