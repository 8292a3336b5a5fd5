package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target carries the same code, so clones and wrapped
// copies still match their predefined sentinel.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	var t *Error
	if !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound                    = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrValidation                  = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal                    = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrForbidden                   = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrTooManyRequests             = New("TOO_MANY_REQUESTS", http.StatusTooManyRequests, "too many requests")
	ErrSourceUnavailable           = New("SOURCE_UNAVAILABLE", http.StatusServiceUnavailable, "table source unavailable")
	ErrSchemaMismatch              = New("SCHEMA_MISMATCH", http.StatusBadGateway, "table schema mismatch")
	ErrIndexOutOfRange             = New("INDEX_OUT_OF_RANGE", http.StatusBadRequest, "row index out of range")
	ErrAggregationAssumptionFailed = New("AGGREGATION_ASSUMPTION_VIOLATED", http.StatusInternalServerError, "aggregation category assumption violated")
	ErrSnapshotNotReady            = New("SNAPSHOT_NOT_READY", http.StatusServiceUnavailable, "dataset not loaded yet")
	ErrRefreshSuperseded           = New("REFRESH_SUPERSEDED", http.StatusConflict, "refresh superseded by a newer request")
	ErrCacheMiss                   = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Wrapf clones err with a formatted message and attaches cause.
func Wrapf(err *Error, cause error, format string, args ...interface{}) *Error {
	clone := Clone(err, fmt.Sprintf(format, args...))
	clone.Err = cause
	return clone
}
