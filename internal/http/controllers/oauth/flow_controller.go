package oauth

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	dto "github.com/dropDatabas3/socialconnect/internal/http/dto/oauth"
	httperrors "github.com/dropDatabas3/socialconnect/internal/http/errors"
	"github.com/dropDatabas3/socialconnect/internal/http/helpers"
	"github.com/dropDatabas3/socialconnect/internal/oauth"
	"github.com/dropDatabas3/socialconnect/internal/observability/logger"
)

// FlowController maneja el inicio del flujo y el callback.
type FlowController struct {
	authURL   AuthURLBuilder
	connector Connector
}

// NewFlowController crea el controller del flujo authorization-code.
func NewFlowController(authURL AuthURLBuilder, connector Connector) *FlowController {
	return &FlowController{authURL: authURL, connector: connector}
}

// Start maneja GET /oauth/{platform}?userId=&state=
// Responde 302 al proveedor; con mode=json devuelve la URL en el body.
func (c *FlowController) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("FlowController.Start"))

	p, err := platformParam(r)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	q := r.URL.Query()
	userID := strings.TrimSpace(q.Get("userId"))
	if userID == "" {
		httperrors.WriteError(w, httperrors.ErrValidation.WithDetail("userId: required"))
		return
	}

	auth, err := c.authURL.Build(ctx, p, userID, q.Get("state"))
	if err != nil {
		c.handleError(w, err, log)
		return
	}

	log.Info("authorization started", logger.Platform(string(p)), logger.UserID(userID))
	if q.Get("mode") == "json" {
		helpers.WriteJSON(w, http.StatusOK, dto.StartResponse{
			AuthorizeURL: auth.URL,
			State:        auth.State,
			ExpiresAt:    auth.ExpiresAt,
		})
		return
	}
	http.Redirect(w, r, auth.URL, http.StatusFound)
}

// Callback maneja POST /oauth/{platform}/callback con body {code, redirect_uri, state}.
func (c *FlowController) Callback(w http.ResponseWriter, r *http.Request) {
	var req dto.CallbackRequest
	if !helpers.ReadJSON(w, r, &req) || !helpers.Validate(w, req) {
		return
	}
	c.connect(w, r, req)
}

// ProviderRedirect maneja GET /oauth/{platform}/callback?code=&state=, que es
// lo que invoca el proveedor. ?error= se reporta como rechazo del canje.
func (c *FlowController) ProviderRedirect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		p, _ := platformParam(r)
		details := q.Get("error_description")
		if details == "" {
			details = e
		}
		httperrors.WriteError(w, &oauth.ProviderError{
			Kind:     oauth.ErrExchangeRejected,
			Platform: p,
			Op:       "authorize",
			Details:  details,
		})
		return
	}
	req := dto.CallbackRequest{Code: q.Get("code"), State: q.Get("state")}
	if !helpers.Validate(w, req) {
		return
	}
	c.connect(w, r, req)
}

func (c *FlowController) connect(w http.ResponseWriter, r *http.Request, req dto.CallbackRequest) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("FlowController.Callback"))

	p, err := platformParam(r)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	res, err := c.connector.Connect(ctx, oauth.ExchangeRequest{
		Platform:    p,
		Code:        req.Code,
		RedirectURI: req.RedirectURI,
		State:       req.State,
	})
	if err != nil {
		c.handleError(w, err, log)
		return
	}

	resp := dto.NewTokenResponse(res.Token)
	resp.Degraded = res.Degraded
	log.Info("platform connected",
		logger.Platform(string(p)),
		logger.UserID(res.Credential.UserID),
		logger.Bool("degraded", res.Degraded),
	)
	helpers.WriteJSON(w, http.StatusOK, resp)
}

func (c *FlowController) handleError(w http.ResponseWriter, err error, log *zap.Logger) {
	appErr := httperrors.FromError(err)
	if appErr.HTTPStatus >= 500 {
		log.Error("oauth flow failed", logger.String("code", appErr.Code), logger.Err(err))
	} else {
		log.Warn("oauth flow rejected", logger.String("code", appErr.Code), logger.Err(err))
	}
	httperrors.WriteError(w, appErr)
}
