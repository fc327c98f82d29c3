package errors

import (
	"fmt"
	"net/http"
)

// AppError is the standard application error carried up to the HTTP edge.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // original cause, for logs only
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// New builds a fresh AppError.
func New(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// FromError coerces any error into an AppError, defaulting to a generic 500
// that preserves the cause for logging.
func FromError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return ErrInternalServerError.WithCause(err)
}

// WithDetail returns a copy carrying extra detail; the base catalog entries
// are shared and must never be mutated.
func (e *AppError) WithDetail(detail string) *AppError {
	out := *e
	out.Detail = detail
	return &out
}

// WithCause returns a copy carrying the original error.
func (e *AppError) WithCause(err error) *AppError {
	out := *e
	out.Err = err
	return &out
}

// ---- catalog ----

var (
	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "The request is malformed or missing required parameters.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Authentication is required.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTokenInvalid = &AppError{
		Code:       "TOKEN_INVALID",
		Message:    "The access token is invalid or malformed.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTenantClaimMissing = &AppError{
		Code:       "TENANT_CLAIM_MISSING",
		Message:    "The credential carries no tenant claim.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "You do not have permission to perform this action.",
		HTTPStatus: http.StatusForbidden,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "The requested resource was not found.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrTenantNotFound = &AppError{
		Code:       "TENANT_NOT_FOUND",
		Message:    "The tenant does not exist or is inactive.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrInternalServerError = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "An internal server error occurred.",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrControlStoreUnavailable = &AppError{
		Code:       "CONTROL_STORE_UNAVAILABLE",
		Message:    "The control store is not reachable.",
		HTTPStatus: http.StatusServiceUnavailable,
	}

	ErrTenantStoreUnavailable = &AppError{
		Code:       "TENANT_STORE_UNAVAILABLE",
		Message:    "The tenant database is not reachable.",
		HTTPStatus: http.StatusServiceUnavailable,
	}

	ErrServiceUnavailable = &AppError{
		Code:       "SERVICE_UNAVAILABLE",
		Message:    "The service is temporarily unavailable.",
		HTTPStatus: http.StatusServiceUnavailable,
	}
)
