// Package credentials contiene el controller de /credentials.
package credentials

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/socialconnect/internal/credential"
	httperrors "github.com/dropDatabas3/socialconnect/internal/http/errors"
	"github.com/dropDatabas3/socialconnect/internal/http/helpers"
	"github.com/dropDatabas3/socialconnect/internal/oauth"
	"github.com/dropDatabas3/socialconnect/internal/observability/logger"
	"github.com/dropDatabas3/socialconnect/internal/platform"
)

// Manager es la parte del facade de credenciales que usa el controller.
type Manager interface {
	GetCredentials(ctx context.Context, userID string, p platform.Platform) (*credential.Credential, error)
	RevokeCredentials(ctx context.Context, userID string, p platform.Platform) error
	Status(ctx context.Context, userID string, p platform.Platform, validate bool) (credential.StatusView, error)
	Statuses(ctx context.Context, userID string, validate bool) ([]credential.StatusView, error)
}

// TokenResponse es el token utilizable de una credencial.
type TokenResponse struct {
	Platform    string     `json:"platform"`
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type,omitempty"`
	Scope       string     `json:"scope,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// Controller maneja el estado de las credenciales de un usuario.
type Controller struct {
	manager Manager
}

func NewController(m Manager) *Controller {
	return &Controller{manager: m}
}

// List maneja GET /credentials/{userId}
func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := userParam(w, r)
	if !ok {
		return
	}
	views, err := c.manager.Statuses(r.Context(), userID, validateFlag(r))
	if err != nil {
		c.fail(w, r, "Controller.List", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"user_id": userID, "credentials": views})
}

// Get maneja GET /credentials/{userId}/{platform}?validate=1
func (c *Controller) Get(w http.ResponseWriter, r *http.Request) {
	userID, p, ok := params(w, r)
	if !ok {
		return
	}
	v, err := c.manager.Status(r.Context(), userID, p, validateFlag(r))
	if err != nil {
		c.fail(w, r, "Controller.Get", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, v)
}

// Token maneja GET /credentials/{userId}/{platform}/token. Devuelve un token
// utilizable, renovándolo antes si está por vencer. El access token sale en
// claro; la ruta va detrás del service token.
func (c *Controller) Token(w http.ResponseWriter, r *http.Request) {
	userID, p, ok := params(w, r)
	if !ok {
		return
	}
	cred, err := c.manager.GetCredentials(r.Context(), userID, p)
	if err != nil {
		c.fail(w, r, "Controller.Token", err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, TokenResponse{
		Platform:    string(cred.Platform),
		AccessToken: cred.AccessToken,
		TokenType:   cred.TokenType,
		Scope:       cred.Scope,
		ExpiresAt:   cred.ExpiresAt,
	})
}

// Revoke maneja DELETE /credentials/{userId}/{platform}
func (c *Controller) Revoke(w http.ResponseWriter, r *http.Request) {
	userID, p, ok := params(w, r)
	if !ok {
		return
	}
	if err := c.manager.RevokeCredentials(r.Context(), userID, p); err != nil {
		c.fail(w, r, "Controller.Revoke", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *Controller) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	appErr := httperrors.FromError(err)
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op(op))
	if appErr.HTTPStatus >= 500 {
		log.Error("credential request failed", logger.Err(err))
	} else {
		log.Debug("credential request rejected", logger.String("code", appErr.Code))
	}
	httperrors.WriteError(w, appErr)
}

func userParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(chi.URLParam(r, "userId"))
	if userID == "" {
		httperrors.WriteError(w, httperrors.ErrValidation.WithDetail("userId: required"))
		return "", false
	}
	return userID, true
}

func params(w http.ResponseWriter, r *http.Request) (string, platform.Platform, bool) {
	userID, ok := userParam(w, r)
	if !ok {
		return "", "", false
	}
	raw := chi.URLParam(r, "platform")
	p, err := platform.Parse(raw)
	if err != nil {
		httperrors.WriteError(w, fmt.Errorf("%w: %q", oauth.ErrUnsupportedPlatform, raw))
		return "", "", false
	}
	return userID, p, true
}

func validateFlag(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("validate"))
	return v
}
