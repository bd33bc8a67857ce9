package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors, one per error kind the catalog exposes to clients.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal error")
	ErrServiceUnavail = errors.New("service unavailable")
)

// Kind is the fixed set of error codes written to clients.
type Kind string

const (
	KindInvalidInput Kind = "INVALID_INPUT"
	KindValidation   Kind = "VALIDATION_ERROR"
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
	KindUnavailable  Kind = "SERVICE_UNAVAILABLE"
	KindInternal     Kind = "INTERNAL_ERROR"
)

// Status returns the HTTP status code a kind maps to.
func (k Kind) Status() int {
	switch k {
	case KindInvalidInput, KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(kind Kind, message string, err error) *AppError {
	return &AppError{
		Code:    string(kind),
		Message: message,
		Status:  kind.Status(),
		Err:     err,
	}
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return newAppError(KindNotFound, fmt.Sprintf("%s with id %s not found", resource, id), ErrNotFound)
}

// NotFoundBy creates a 404 error for a lookup on a field other than the id.
func NotFoundBy(resource, field, value string) *AppError {
	return newAppError(KindNotFound, fmt.Sprintf("%s with %s %q not found", resource, field, value), ErrNotFound)
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return newAppError(KindInvalidInput, message, ErrInvalidInput)
}

// Conflict creates a 409 error, used for duplicate contributions and stale versions.
func Conflict(message string) *AppError {
	return newAppError(KindConflict, message, ErrConflict)
}

// Unavailable creates a 503 error.
func Unavailable(message string, err error) *AppError {
	if err == nil {
		err = ErrServiceUnavail
	}
	return newAppError(KindUnavailable, message, err)
}

// Internal creates a 500 error. The wrapped error is logged, never exposed.
func Internal(err error) *AppError {
	return newAppError(KindInternal, "an internal error occurred", err)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// KindOf classifies any error into one of the fixed kinds.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return Kind(appErr.Code)
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrServiceUnavail):
		return KindUnavailable
	default:
		return KindInternal
	}
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return KindOf(err).Status()
}
