package oauth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/socialconnect/internal/observability/logger"
	"github.com/dropDatabas3/socialconnect/internal/platform"
)

// RefreshHandler exchanges refresh tokens for new access tokens.
type RefreshHandler struct {
	registry *platform.Registry
	tokens   *tokenClient
}

// NewRefreshHandler builds a RefreshHandler.
func NewRefreshHandler(reg *platform.Registry, hc *http.Client, clock func() time.Time) *RefreshHandler {
	return &RefreshHandler{registry: reg, tokens: newTokenClient(hc, clock)}
}

// Refresh redeems refreshToken. When the provider does not rotate refresh
// tokens the returned set carries the one passed in, so callers can store the
// result as is.
func (h *RefreshHandler) Refresh(ctx context.Context, p platform.Platform, refreshToken string) (TokenSet, error) {
	cfg, err := h.registry.Lookup(p)
	if err != nil {
		return TokenSet{}, unsupported(p)
	}
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return TokenSet{}, fmt.Errorf("%w: refresh token required", ErrInvalidInput)
	}

	ts, err := h.tokens.refresh(ctx, cfg, refreshToken)
	if err != nil {
		logger.From(ctx).Warn("refresh failed",
			logger.Component("oauth.refresh"),
			logger.Platform(string(p)),
			logger.Err(err),
		)
		return TokenSet{}, err
	}
	if ts.RefreshToken == "" {
		ts.RefreshToken = refreshToken
	}
	return ts, nil
}

// CanExtend reports whether p renews tokens by re-running the long-lived
// upgrade instead of a refresh grant.
func (h *RefreshHandler) CanExtend(p platform.Platform) bool {
	cfg, err := h.registry.Lookup(p)
	return err == nil && cfg.Quirks.Has(platform.QuirkLongLivedUpgrade)
}

// Extend renews a still-valid long-lived token through the upgrade grant.
// A provider refusal is reported as ErrRefreshRejected.
func (h *RefreshHandler) Extend(ctx context.Context, p platform.Platform, accessToken string) (TokenSet, error) {
	cfg, err := h.registry.Lookup(p)
	if err != nil {
		return TokenSet{}, unsupported(p)
	}
	if !cfg.Quirks.Has(platform.QuirkLongLivedUpgrade) {
		return TokenSet{}, fmt.Errorf("%w: %s has no long-lived upgrade", ErrInvalidInput, p)
	}
	if accessToken == "" {
		return TokenSet{}, fmt.Errorf("%w: access token required", ErrInvalidInput)
	}
	return h.tokens.upgrade(ctx, cfg, accessToken, ErrRefreshRejected)
}
