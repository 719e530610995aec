// Package router arma la tabla de rutas HTTP.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	credctrl "github.com/dropDatabas3/socialconnect/internal/http/controllers/credentials"
	healthctrl "github.com/dropDatabas3/socialconnect/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/socialconnect/internal/http/controllers/oauth"
	"github.com/dropDatabas3/socialconnect/internal/http/errors"
	mw "github.com/dropDatabas3/socialconnect/internal/http/middlewares"
	"github.com/dropDatabas3/socialconnect/internal/rate"
)

// Deps contiene lo necesario para montar las rutas.
type Deps struct {
	OAuth       *oauthctrl.Controllers
	Credentials *credctrl.Controller
	Health      *healthctrl.HealthController
	// Limiter nil desactiva el rate limit.
	Limiter rate.Limiter
	// Gatherer para /metrics (default: prometheus.DefaultGatherer).
	Gatherer prometheus.Gatherer
	// ServiceToken protege /credentials; vacío => abierto.
	ServiceToken string
}

// New devuelve el handler raíz.
//
// Infra (recover, request id, logging, métricas, security headers) aplica a
// todo. /oauth y /credentials además llevan rate limit y no-store; /healthz,
// /readyz y /metrics no. /credentials entrega access tokens y va detrás del
// service token cuando está configurado.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithMetrics(),
		mw.WithLogging(),
		mw.WithSecurityHeaders(),
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		errors.WriteError(w, errors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		errors.WriteError(w, errors.ErrMethodNotAllowed)
	})

	r.Get("/healthz", d.Health.Healthz)
	r.Get("/readyz", d.Health.Readyz)

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	api := []func(http.Handler) http.Handler{
		mw.WithNoStore(),
		mw.WithRateLimit(mw.RateLimitConfig{Limiter: d.Limiter}),
	}

	r.Route("/oauth", func(r chi.Router) {
		r.Use(api...)
		r.Get("/platforms", d.OAuth.Platform.List)
		r.Get("/{platform}", d.OAuth.Flow.Start)
		r.Get("/{platform}/callback", d.OAuth.Flow.ProviderRedirect)
		r.Post("/{platform}/callback", d.OAuth.Flow.Callback)
		r.Post("/{platform}/refresh", d.OAuth.Token.Refresh)
		r.Get("/{platform}/validate", d.OAuth.Token.Validate)
	})

	r.Route("/credentials/{userId}", func(r chi.Router) {
		r.Use(api...)
		r.Use(mw.WithServiceToken(d.ServiceToken))
		r.Get("/", d.Credentials.List)
		r.Get("/{platform}", d.Credentials.Get)
		r.Delete("/{platform}", d.Credentials.Revoke)
		r.Get("/{platform}/token", d.Credentials.Token)
	})

	return r
}
