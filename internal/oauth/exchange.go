package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/socialconnect/internal/metrics"
	"github.com/dropDatabas3/socialconnect/internal/observability/logger"
	"github.com/dropDatabas3/socialconnect/internal/platform"
)

// ExchangeRequest is the callback input.
type ExchangeRequest struct {
	Platform platform.Platform
	Code     string
	// RedirectURI must equal the one used for the authorize URL. Empty means
	// "the one recorded with the state".
	RedirectURI string
	State       string
}

// ExchangeResult is a successful exchange bound to the user who started the flow.
type ExchangeResult struct {
	Platform platform.Platform
	UserID   string
	Token    TokenSet
	// Degraded is set when the long-lived upgrade failed and Token is the short-lived one.
	Degraded bool
}

// ExchangeHandler turns authorization codes into tokens.
type ExchangeHandler struct {
	registry *platform.Registry
	pending  PendingStore
	tokens   *tokenClient
}

// NewExchangeHandler builds an ExchangeHandler.
// A nil hc gets a client with a 10s timeout.
func NewExchangeHandler(reg *platform.Registry, pending PendingStore, hc *http.Client, clock func() time.Time) *ExchangeHandler {
	return &ExchangeHandler{registry: reg, pending: pending, tokens: newTokenClient(hc, clock)}
}

// Exchange validates the state, redeems the code and, for platforms with the
// long-lived upgrade quirk, upgrades the token. A failed upgrade does not fail
// the exchange.
func (h *ExchangeHandler) Exchange(ctx context.Context, req ExchangeRequest) (*ExchangeResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("oauth.exchange"),
		logger.Platform(string(req.Platform)),
	)

	cfg, err := h.registry.Lookup(req.Platform)
	if err != nil {
		return nil, unsupported(req.Platform)
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, fmt.Errorf("%w: code required", ErrInvalidInput)
	}

	// Single lookup: a failed consume is final, never retried.
	pending, err := h.pending.Consume(ctx, req.State)
	if err != nil {
		log.Warn("state rejected", logger.StateKey(req.State), logger.Err(err))
		return nil, err
	}
	if pending.Platform != req.Platform {
		log.Warn("state bound to another platform", logger.String("state_platform", string(pending.Platform)))
		return nil, fmt.Errorf("%w: platform mismatch", ErrInvalidState)
	}

	redirectURI := req.RedirectURI
	if redirectURI == "" {
		redirectURI = pending.RedirectURI
	}
	if redirectURI != pending.RedirectURI {
		log.Warn("redirect_uri mismatch", logger.String("redirect_uri", redirectURI))
		return nil, &ProviderError{
			Kind:     ErrExchangeRejected,
			Platform: req.Platform,
			Op:       "exchange",
			Details:  "redirect_uri does not match the authorization request",
		}
	}

	ts, err := h.tokens.exchangeCode(ctx, cfg, code, redirectURI, pending.CodeVerifier)
	if err != nil {
		log.Warn("code exchange failed", logger.UserID(pending.UserID), logger.Err(err))
		return nil, err
	}

	res := &ExchangeResult{Platform: req.Platform, UserID: pending.UserID, Token: ts}

	if cfg.Quirks.Has(platform.QuirkLongLivedUpgrade) {
		long, err := h.tokens.upgrade(ctx, cfg, ts.AccessToken, ErrExchangeRejected)
		if err != nil {
			res.Degraded = true
			metrics.ProviderRequests.WithLabelValues(string(req.Platform), "upgrade", "degraded").Inc()
			log.Warn("long-lived upgrade failed, keeping short-lived token",
				logger.UserID(pending.UserID),
				logger.String("details", DetailsOf(err)),
				logger.Err(err),
			)
		} else {
			if long.RefreshToken == "" {
				long.RefreshToken = ts.RefreshToken
			}
			if long.Scope == "" {
				long.Scope = ts.Scope
			}
			res.Token = long
		}
	}

	log.Info("authorization code exchanged",
		logger.UserID(pending.UserID),
		logger.Bool("long_lived", res.Token.LongLived),
		logger.Bool("has_refresh_token", res.Token.RefreshToken != ""),
	)
	return res, nil
}

// IsClientError reports whether err is a caller mistake (400-class) rather
// than a provider outcome.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnsupportedPlatform) || errors.Is(err, ErrInvalidState) || errors.Is(err, ErrInvalidInput)
}
