package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the framework.
type ErrorCode string

// Core orchestration error codes.
const (
	ErrTypeMismatch      ErrorCode = "TYPE_MISMATCH"
	ErrSchemaViolation   ErrorCode = "SCHEMA_VIOLATION"
	ErrMissingDependency ErrorCode = "MISSING_DEPENDENCY"
	ErrTooManyRequests   ErrorCode = "TOO_MANY_REQUESTS"
	ErrTimeout           ErrorCode = "TIMEOUT"
)

// Supporting error codes.
const (
	ErrPortNotFound    ErrorCode = "PORT_NOT_FOUND"
	ErrNotReady        ErrorCode = "NOT_READY"
	ErrConfigInvalid   ErrorCode = "CONFIG_INVALID"
	ErrContextOverflow ErrorCode = "CONTEXT_OVERFLOW"
	ErrInternalError   ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and the identity
// of the port where it originated.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Port       string    `json:"port,omitempty"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message, HTTPStatus: defaultHTTPStatus(code)}
}

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// WithPort records the port the error originated at.
func (e *Error) WithPort(port string) *Error {
	e.Port = port
	return e
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus overrides the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// defaultHTTPStatus maps error codes onto the statuses the API boundary
// reports. Codes without a boundary meaning map to 500.
func defaultHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrTypeMismatch, ErrConfigInvalid, ErrMissingDependency:
		return 500
	case ErrSchemaViolation:
		return 422
	case ErrTooManyRequests:
		return 429
	case ErrTimeout:
		return 408
	case ErrPortNotFound:
		return 404
	default:
		return 500
	}
}

// AsError extracts a structured *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsCode reports whether err's chain contains an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	if e, ok := AsError(err); ok {
		return e.Code == code
	}
	return false
}

// NewTypeMismatchError builds the connect/emit incompatibility error.
func NewTypeMismatchError(outPort string, outKind Kind, inPort string, inKind Kind) *Error {
	return Errorf(ErrTypeMismatch,
		"output %q (kind %s) is not compatible with input %q (kind %s)",
		outPort, outKind, inPort, inKind).WithPort(inPort)
}

// NewTimeoutError builds the request-serializer timeout error.
func NewTimeoutError(endpoint string) *Error {
	return Errorf(ErrTimeout, "request to %q timed out awaiting resolution", endpoint)
}

// NewTooManyRequestsError builds the single-flight rejection error.
func NewTooManyRequestsError(endpoint string) *Error {
	return Errorf(ErrTooManyRequests, "request already in flight for %q", endpoint)
}
