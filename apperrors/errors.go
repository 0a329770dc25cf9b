// Package apperrors defines the error kinds surfaced by the services and how
// each one maps onto an HTTP status and an error code.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error kinds
var (
	ErrNotFound   = errors.New("resource not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("resource conflict")
	ErrTransient  = errors.New("transient failure")
	ErrInternal   = errors.New("internal server error")
)

// Error codes sent to API clients
const (
	CodeNotFound   = "NOT_FOUND"
	CodeValidation = "VALIDATION_ERROR"
	CodeConflict   = "CONFLICT"
	CodeTransient  = "TRANSIENT_FAILURE"
	CodeInternal   = "INTERNAL_ERROR"
)

// AppError is a classified error carrying a client-facing message
type AppError struct {
	Err        error
	Code       string
	StatusCode int
	Message    string
	Details    any
}

// Error returns the error message
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails attaches structured details (field errors, ids)
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// NotFound creates a not found error for the named resource
func NotFound(resource string, id any) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       CodeNotFound,
		StatusCode: http.StatusNotFound,
		Message:    fmt.Sprintf("%s %v not found", resource, id),
	}
}

// Validation creates an invalid input error
func Validation(message string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       CodeValidation,
		StatusCode: http.StatusBadRequest,
		Message:    message,
	}
}

// Validationf is Validation with formatting
func Validationf(format string, args ...any) *AppError {
	return Validation(fmt.Sprintf(format, args...))
}

// Conflict creates a conflict error
func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       CodeConflict,
		StatusCode: http.StatusConflict,
		Message:    message,
	}
}

// Transient wraps a storage or network failure
func Transient(op string, err error) *AppError {
	return &AppError{
		Err:        fmt.Errorf("%w: %s: %v", ErrTransient, op, err),
		Code:       CodeTransient,
		StatusCode: http.StatusServiceUnavailable,
		Message:    "temporary failure, please retry",
		Details:    op,
	}
}

// Internal wraps an unexpected failure
func Internal(err error) *AppError {
	return &AppError{
		Err:        fmt.Errorf("%w: %v", ErrInternal, err),
		Code:       CodeInternal,
		StatusCode: http.StatusInternalServerError,
		Message:    "internal server error",
	}
}

// From classifies any error. Errors that are not an AppError are reported
// as internal errors unless they wrap one of the standard kinds.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return &AppError{Err: err, Code: CodeNotFound, StatusCode: http.StatusNotFound, Message: err.Error()}
	case errors.Is(err, ErrValidation):
		return &AppError{Err: err, Code: CodeValidation, StatusCode: http.StatusBadRequest, Message: err.Error()}
	case errors.Is(err, ErrConflict):
		return &AppError{Err: err, Code: CodeConflict, StatusCode: http.StatusConflict, Message: err.Error()}
	case errors.Is(err, ErrTransient):
		return &AppError{Err: err, Code: CodeTransient, StatusCode: http.StatusServiceUnavailable, Message: "temporary failure, please retry"}
	default:
		return Internal(err)
	}
}

// IsNotFound reports whether err is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
