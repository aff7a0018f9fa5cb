// Package errors carries the typed error codes shared by services, the HTTP
// envelope and background workers.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeForbidden         Code = "FORBIDDEN"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeStateConflict     Code = "STATE_CONFLICT"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeInvalidPrice      Code = "INVALID_PRICE"
	CodeIdempotency       Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit         Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal          Code = "INTERNAL_ERROR"
	CodeDependency        Code = "DEPENDENCY_ERROR"
)

// Metadata is how a code surfaces outside the process.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	final     = false
	retryable = true
	private   = false
	detailed  = true
)

var metadataByCode = map[Code]Metadata{
	CodeValidation:        {http.StatusBadRequest, final, "validation failed", detailed},
	CodeUnauthorized:      {http.StatusUnauthorized, final, "authentication required", private},
	CodeForbidden:         {http.StatusForbidden, final, "access denied", private},
	CodeNotFound:          {http.StatusNotFound, final, "resource not found", private},
	CodeConflict:          {http.StatusConflict, final, "conflict detected", private},
	CodeStateConflict:     {http.StatusUnprocessableEntity, final, "state transition disallowed", detailed},
	CodeInvalidTransition: {http.StatusBadRequest, final, "invalid status transition", detailed},
	CodeInvalidPrice:      {http.StatusInternalServerError, final, "catalog price unavailable", private},
	CodeIdempotency:       {http.StatusConflict, final, "idempotency key reused", detailed},
	CodeRateLimit:         {http.StatusTooManyRequests, final, "rate limit exceeded", private},
	CodeInternal:          {http.StatusInternalServerError, retryable, "internal server error", private},
	CodeDependency:        {http.StatusServiceUnavailable, retryable, "dependency unavailable", detailed},
}

// MetadataFor falls back to CodeInternal for codes it does not know.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a code to err. A nil err yields a plain New.
func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches any *Error with the same code, so callers can write
// errors.Is(err, pkgerrors.New(pkgerrors.CodeNotFound, "")).
func (e *Error) Is(target error) bool {
	var other *Error
	if e == nil || !stdErrors.As(target, &other) || other == nil {
		return false
	}
	return e.code == other.code
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries the given typed code anywhere in its chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}

// Retryable reports whether trying the same operation again could succeed.
// Untyped errors are assumed transient.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	typed := As(err)
	if typed == nil {
		return true
	}
	return MetadataFor(typed.Code()).Retryable
}
