// Package errors provides coded service errors. Causes are wrapped with eris so
// the stack of the original failure survives to the request boundary.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/rotisserie/eris"
)

// Code classifies an error for transport mapping.
type Code string

const (
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeInternal     Code = "INTERNAL"
	ErrCodeUnavailable  Code = "UNAVAILABLE"
)

// Error is a coded service error.
type Error struct {
	Code    Code
	Message string
	Field   string
	orig    error
	cause   error
}

func (e *Error) Error() string {
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.orig)
	}
	return e.Message
}

// Unwrap exposes the original error so errors.Is and errors.As see through
// coded errors.
func (e *Error) Unwrap() error {
	return e.orig
}

// New creates a coded error without an underlying cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message, cause: eris.New(message)}
}

// Wrap attaches a code and message to err. A nil err yields nil.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, orig: err, cause: eris.Wrap(err, message)}
}

// NotFound reports a missing resource.
func NotFound(resource, id string) error {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found: %s", resource, id))
}

// InvalidInput reports a rejected request field.
func InvalidInput(field, message string) error {
	e := New(ErrCodeInvalidInput, fmt.Sprintf("%s: %s", field, message)).(*Error)
	e.Field = field
	return e
}

// CodeOf returns the code of the outermost coded error in the chain, or
// ErrCodeInternal when err carries none.
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// IsNotFound reports whether err is a coded NotFound error.
func IsNotFound(err error) bool {
	return err != nil && CodeOf(err) == ErrCodeNotFound
}

// HTTPStatus maps an error to a response status.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Stack renders the captured eris stack of err for debug logging.
func Stack(err error) string {
	var e *Error
	if stderrors.As(err, &e) && e.cause != nil {
		return eris.ToString(e.cause, true)
	}
	return eris.ToString(err, true)
}
