package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/dropDatabas3/socialconnect/internal/credential"
	"github.com/dropDatabas3/socialconnect/internal/oauth"
)

// FromError convierte errores de dominio en AppError. Lo desconocido es 500
// conservando la causa.
func FromError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	details := oauth.DetailsOf(err)
	switch {
	case stderrors.Is(err, oauth.ErrUnsupportedPlatform):
		return ErrUnsupportedPlatform.WithCause(err)
	case stderrors.Is(err, oauth.ErrInvalidState):
		return ErrInvalidState.WithCause(err)
	case stderrors.Is(err, oauth.ErrInvalidInput):
		return ErrValidation.WithDetail(err.Error()).WithCause(err)
	case stderrors.Is(err, credential.ErrNotConnected):
		return ErrNotConnected.WithCause(err)
	// Antes que RefreshRejected: un refresh rechazado ya revocó la credencial.
	case stderrors.Is(err, credential.ErrReconnectRequired):
		return ErrReconnectRequired.WithDetail(details).WithCause(err)
	case stderrors.Is(err, oauth.ErrExchangeRejected):
		return ErrExchangeRejected.WithDetail(details).WithCause(err)
	case stderrors.Is(err, oauth.ErrRefreshRejected):
		return ErrRefreshRejected.WithDetail(details).WithCause(err)
	case stderrors.Is(err, oauth.ErrProviderUnavailable):
		return ErrProviderUnavailable.WithDetail(details).WithCause(err)
	}
	return ErrInternalServerError.WithCause(err)
}

// WriteError escribe {"error","code","details"} con el status del AppError.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	if appErr.RetryAfter > 0 {
		h.Set("Retry-After", strconv.Itoa(int(appErr.RetryAfter.Seconds())))
	}
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(appErr)
}
