package errors

import (
	"fmt"
	"net/http"
	"time"
)

// AppError define la estructura estándar de errores HTTP.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	// Detail lleva el body crudo del proveedor o el detalle de validación.
	Detail     string        `json:"details,omitempty"`
	HTTPStatus int           `json:"-"`
	RetryAfter time.Duration `json:"-"`
	Err        error         `json:"-"` // causa original, sólo para logs
}

// Error implementa la interfaz error
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap permite acceder al error original
func (e *AppError) Unwrap() error {
	return e.Err
}

// New crea un nuevo AppError
func New(status int, code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
	}
}

// WithDetail devuelve una COPIA con detalle; no muta las variables base.
func (e *AppError) WithDetail(detail string) *AppError {
	newErr := *e
	newErr.Detail = detail
	return &newErr
}

// WithCause devuelve una COPIA con la causa original.
func (e *AppError) WithCause(err error) *AppError {
	newErr := *e
	newErr.Err = err
	return &newErr
}

// =================================================================================
// ERRORES PREDEFINIDOS
// =================================================================================

// 400
var (
	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "request is malformed or missing parameters",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidJSON = &AppError{
		Code:       "INVALID_JSON",
		Message:    "request body is not valid JSON",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrValidation = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "one or more fields are invalid",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrUnsupportedPlatform = &AppError{
		Code:       "UNSUPPORTED_PLATFORM",
		Message:    "platform is not supported",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidState = &AppError{
		Code:       "INVALID_STATE",
		Message:    "state is missing, expired or already used",
		HTTPStatus: http.StatusBadRequest,
	}
)

// 401
var (
	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "missing or invalid service token",
		HTTPStatus: http.StatusUnauthorized,
	}
)

// 404 / 405 / 409 / 429
var (
	ErrNotConnected = &AppError{
		Code:       "NOT_CONNECTED",
		Message:    "no credential for this platform",
		HTTPStatus: http.StatusNotFound,
	}

	ErrRouteNotFound = &AppError{
		Code:       "ROUTE_NOT_FOUND",
		Message:    "route not found",
		HTTPStatus: http.StatusNotFound,
	}

	ErrMethodNotAllowed = &AppError{
		Code:       "METHOD_NOT_ALLOWED",
		Message:    "method not allowed",
		HTTPStatus: http.StatusMethodNotAllowed,
	}

	ErrReconnectRequired = &AppError{
		Code:       "RECONNECT_REQUIRED",
		Message:    "credential was revoked or expired, reconnect required",
		HTTPStatus: http.StatusConflict,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "too many requests",
		HTTPStatus: http.StatusTooManyRequests,
	}
)

// 5xx
var (
	ErrExchangeRejected = &AppError{
		Code:       "EXCHANGE_REJECTED",
		Message:    "provider rejected the authorization code",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrRefreshRejected = &AppError{
		Code:       "REFRESH_REJECTED",
		Message:    "provider rejected the refresh token",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrInternalServerError = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrProviderUnavailable = &AppError{
		Code:       "PROVIDER_UNAVAILABLE",
		Message:    "provider is unavailable, retry later",
		HTTPStatus: http.StatusServiceUnavailable,
		RetryAfter: 5 * time.Second,
	}

	ErrServiceUnavailable = &AppError{
		Code:       "SERVICE_UNAVAILABLE",
		Message:    "service unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
	}
)
