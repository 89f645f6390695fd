// Package apperror provides structured errors rendered as {code, message, details}.
// Every business failure crossing the service boundary is an *AppError.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal            = "INTERNAL_ERROR"
	CodePoolExhausted       = "POOL_EXHAUSTED"
	CodeDatabaseUnavailable = "DATABASE_UNAVAILABLE"

	// Validation errors (400)
	CodeValidation = "VALIDATION_ERROR"

	// Identity and authorization errors (401, 403)
	CodeUnauthenticated       = "UNAUTHENTICATED"
	CodeUserNotProvisioned    = "USER_NOT_PROVISIONED"
	CodeNoOrganizationContext = "NO_ORGANIZATION_CONTEXT"
	CodeForbidden             = "FORBIDDEN"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict            = "CONFLICT"
	CodeConstraintViolation = "CONSTRAINT_VIOLATION"
)

// AppError is the standard error type for the platform.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field names, constraint names, ids)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewUnauthenticated is returned when no verifiable identity accompanies the request.
func NewUnauthenticated(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthenticated,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewUserNotProvisioned is returned for a verified identity that has no
// application account yet.
func NewUserNotProvisioned(externalUserID string) *AppError {
	return &AppError{
		Code:       CodeUserNotProvisioned,
		Message:    "account is not provisioned yet",
		HTTPStatus: http.StatusForbidden,
		Details:    map[string]any{"external_user_id": externalUserID},
	}
}

// NewNoOrganizationContext is returned when the caller has no usable membership.
func NewNoOrganizationContext() *AppError {
	return &AppError{
		Code:       CodeNoOrganizationContext,
		Message:    "no organization selected",
		HTTPStatus: http.StatusForbidden,
	}
}

// NewForbidden creates an authorization error (403)
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewConstraintViolation wraps a database-level rejection so callers can
// translate it into a domain conflict.
func NewConstraintViolation(constraint string, err error) *AppError {
	return &AppError{
		Code:       CodeConstraintViolation,
		Message:    "request conflicts with existing data",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"constraint": constraint},
		Err:        err,
	}
}

// NewPoolExhausted is returned when no connection became available in time.
func NewPoolExhausted(err error) *AppError {
	return &AppError{
		Code:       CodePoolExhausted,
		Message:    "service temporarily unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewDatabaseUnavailable is returned for connectivity failures.
func NewDatabaseUnavailable(err error) *AppError {
	return &AppError{
		Code:       CodeDatabaseUnavailable,
		Message:    "service temporarily unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// --- Helper functions ---

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether any AppError in the chain carries code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsForbidden checks if error is CodeForbidden
func IsForbidden(err error) bool {
	return HasCode(err, CodeForbidden)
}
