package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorType classifies application errors for transport mapping.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeConflict   ErrorType = "CONFLICT"
	ErrorTypeForbidden  ErrorType = "FORBIDDEN"
	ErrorTypeInternal   ErrorType = "INTERNAL"
)

// AppError is an error with a type and a caller-facing message. Field, when
// set, names the input field the message belongs to.
type AppError struct {
	Type    ErrorType
	Message string
	Field   string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewValidationError(message string) *AppError {
	return &AppError{Type: ErrorTypeValidation, Message: message}
}

// NewFieldError creates a validation error attached to a named input field.
func NewFieldError(field, message string) *AppError {
	return &AppError{Type: ErrorTypeValidation, Message: message, Field: field}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Type: ErrorTypeNotFound, Message: message}
}

func NewConflictError(message string) *AppError {
	return &AppError{Type: ErrorTypeConflict, Message: message}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{Type: ErrorTypeForbidden, Message: message}
}

func NewInternalError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeInternal, Message: message, Err: err}
}

// Is reports whether err is an AppError of the given type.
func Is(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

// Message returns the caller-facing message of err. Errors that are not
// AppErrors are reported with a generic message so internals do not leak.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Type == ErrorTypeInternal {
			return "internal server error"
		}
		return appErr.Message
	}
	return "internal server error"
}

// HTTPStatus maps an error to an HTTP status code.
func HTTPStatus(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Type {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// ToHTTP converts err into an echo.HTTPError. Field errors are rendered as
// {"errors": {"<field>": ["<message>"]}}, everything else as
// {"errors": "<message>"}.
func ToHTTP(err error) *echo.HTTPError {
	status := HTTPStatus(err)
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Field != "" {
		return echo.NewHTTPError(status, map[string]interface{}{
			"errors": map[string][]string{appErr.Field: {appErr.Message}},
		}).SetInternal(err)
	}
	return echo.NewHTTPError(status, map[string]interface{}{
		"errors": Message(err),
	}).SetInternal(err)
}
