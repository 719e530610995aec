// Package oauth contiene los DTOs de los endpoints /oauth.
package oauth

import (
	"time"

	"github.com/dropDatabas3/socialconnect/internal/oauth"
)

// StartResponse se devuelve en GET /oauth/{platform}?mode=json en lugar del 302.
type StartResponse struct {
	AuthorizeURL string    `json:"authorize_url"`
	State        string    `json:"state"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// CallbackRequest es el body de POST /oauth/{platform}/callback.
type CallbackRequest struct {
	Code        string `json:"code" validate:"required,max=2048"`
	RedirectURI string `json:"redirect_uri" validate:"omitempty,url"`
	State       string `json:"state" validate:"required,max=512"`
}

// RefreshRequest es el body de POST /oauth/{platform}/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenResponse es la forma normalizada de un token.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	Scope        string `json:"scope,omitempty"`
	// Degraded: el upgrade a long-lived falló y el token es el de corta vida.
	Degraded bool `json:"degraded,omitempty"`
}

// ValidateResponse es la respuesta de GET /oauth/{platform}/validate.
type ValidateResponse struct {
	Valid bool           `json:"valid"`
	User  *oauth.Profile `json:"user,omitempty"`
}

// PlatformItem describe una plataforma configurada.
type PlatformItem struct {
	Platform    string   `json:"platform"`
	RedirectURI string   `json:"redirect_uri"`
	Scopes      []string `json:"scopes"`
	Quirks      []string `json:"quirks"`
}

// NewTokenResponse arma la respuesta desde un TokenSet.
func NewTokenResponse(t oauth.TokenSet) TokenResponse {
	return TokenResponse{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresIn:    t.ExpiresIn,
		TokenType:    t.TokenType,
		Scope:        t.Scope,
	}
}
