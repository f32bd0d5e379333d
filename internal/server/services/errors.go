package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/weightlog/weightlog/internal/common"
)

// Error is a failure meant for the API caller: Message is shown as is and
// Status is the HTTP status to answer with.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

func newError(status int, err error, format string, args ...any) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...), Err: err}
}

func badRequest(err error, format string, args ...any) *Error {
	return newError(http.StatusBadRequest, err, format, args...)
}

func notFound(err error, format string, args ...any) *Error {
	return newError(http.StatusNotFound, err, format, args...)
}

// internal reports an unexpected failure; the result matches both
// common.ErrorInternal and err.
func internal(err error, format string, args ...any) *Error {
	return newError(http.StatusInternalServerError, fmt.Errorf("%w: %w", common.ErrorInternal, err), format, args...)
}

// credentialsError is returned for every authentication failure.
func credentialsError(err error) *Error {
	return newError(http.StatusUnauthorized, err, "Could not validate credentials")
}

// StatusOf returns the HTTP status carried by err, or 500 when err is not
// an *Error.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}
