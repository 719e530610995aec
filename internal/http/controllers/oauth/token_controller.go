package oauth

import (
	"net/http"
	"strings"

	dto "github.com/dropDatabas3/socialconnect/internal/http/dto/oauth"
	httperrors "github.com/dropDatabas3/socialconnect/internal/http/errors"
	"github.com/dropDatabas3/socialconnect/internal/http/helpers"
	"github.com/dropDatabas3/socialconnect/internal/observability/logger"
)

// TokenController expone refresh y validación sin tocar el store.
type TokenController struct {
	refresher Refresher
	validator Validator
}

// NewTokenController crea el controller de tokens.
func NewTokenController(refresher Refresher, validator Validator) *TokenController {
	return &TokenController{refresher: refresher, validator: validator}
}

// Refresh maneja POST /oauth/{platform}/refresh con body {refresh_token}.
// Si el proveedor no rota el refresh token se devuelve el recibido.
func (c *TokenController) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("TokenController.Refresh"))

	p, err := platformParam(r)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	var req dto.RefreshRequest
	if !helpers.ReadJSON(w, r, &req) || !helpers.Validate(w, req) {
		return
	}

	tok, err := c.refresher.Refresh(ctx, p, req.RefreshToken)
	if err != nil {
		log.Warn("refresh failed", logger.Platform(string(p)), logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.NewTokenResponse(tok))
}

// Validate maneja GET /oauth/{platform}/validate?access_token=
// También acepta el token como Bearer.
func (c *TokenController) Validate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("TokenController.Validate"))

	p, err := platformParam(r)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	token := strings.TrimSpace(r.URL.Query().Get("access_token"))
	if token == "" {
		token = bearerToken(r)
	}

	v, err := c.validator.Validate(ctx, p, token)
	if err != nil {
		log.Warn("validation unavailable", logger.Platform(string(p)), logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.ValidateResponse{Valid: v.Valid, User: v.Profile})
}
