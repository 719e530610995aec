// Package oauth contiene los controllers de /oauth.
package oauth

import (
	"context"

	"github.com/dropDatabas3/socialconnect/internal/credential"
	"github.com/dropDatabas3/socialconnect/internal/oauth"
	"github.com/dropDatabas3/socialconnect/internal/platform"
)

// AuthURLBuilder arma la URL de autorización y registra el state.
type AuthURLBuilder interface {
	Build(ctx context.Context, p platform.Platform, userID, state string) (*oauth.Authorization, error)
}

// Connector canjea el code y persiste la credencial.
type Connector interface {
	Connect(ctx context.Context, req oauth.ExchangeRequest) (*credential.ConnectResult, error)
}

// Refresher renueva un access token a partir de un refresh token.
type Refresher interface {
	Refresh(ctx context.Context, p platform.Platform, refreshToken string) (oauth.TokenSet, error)
}

// Validator consulta el endpoint de perfil del proveedor.
type Validator interface {
	Validate(ctx context.Context, p platform.Platform, accessToken string) (oauth.Validation, error)
}

// Deps contiene las dependencias de los controllers OAuth.
type Deps struct {
	Registry  *platform.Registry
	AuthURL   AuthURLBuilder
	Connector Connector
	Refresher Refresher
	Validator Validator
}

// Controllers agrupa los controllers OAuth.
type Controllers struct {
	Flow     *FlowController
	Token    *TokenController
	Platform *PlatformController
}

// NewControllers crea el agregador.
func NewControllers(d Deps) *Controllers {
	return &Controllers{
		Flow:     NewFlowController(d.AuthURL, d.Connector),
		Token:    NewTokenController(d.Refresher, d.Validator),
		Platform: NewPlatformController(d.Registry),
	}
}
