package oauth

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/socialconnect/internal/observability/logger"
	"github.com/dropDatabas3/socialconnect/internal/platform"
)

// Authorization is the result of building an authorize redirect.
type Authorization struct {
	URL       string
	State     string
	ExpiresAt time.Time
}

// AuthURLBuilder builds provider authorize URLs and records the pending request.
type AuthURLBuilder struct {
	registry *platform.Registry
	pending  PendingStore
	ttl      time.Duration
	clock    func() time.Time
}

// NewAuthURLBuilder returns a builder. ttl bounds how long an abandoned flow is kept.
func NewAuthURLBuilder(reg *platform.Registry, pending PendingStore, ttl time.Duration, clock func() time.Time) *AuthURLBuilder {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if clock == nil {
		clock = time.Now
	}
	return &AuthURLBuilder{registry: reg, pending: pending, ttl: ttl, clock: clock}
}

// Build constructs the authorize URL for userID on p. When state is empty a
// value of the form "{platform}_{userId}_{random}" is generated.
func (b *AuthURLBuilder) Build(ctx context.Context, p platform.Platform, userID, state string) (*Authorization, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("oauth.authorize"), logger.Platform(string(p)))

	cfg, err := b.registry.Lookup(p)
	if err != nil {
		return nil, unsupported(p)
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", ErrInvalidInput)
	}
	if state == "" {
		state = fmt.Sprintf("%s_%s_%s", p, userID, strings.ReplaceAll(uuid.NewString(), "-", ""))
	}

	now := b.clock()
	req := AuthorizationRequest{
		State:       state,
		Platform:    p,
		UserID:      userID,
		RedirectURI: cfg.RedirectURI,
		CreatedAt:   now,
		ExpiresAt:   now.Add(b.ttl),
	}

	u, err := url.Parse(cfg.AuthorizeURL)
	if err != nil {
		return nil, fmt.Errorf("authorize url for %s: %w", p, err)
	}
	q := u.Query()
	q.Set("client_id", cfg.ClientID)
	q.Set("redirect_uri", cfg.RedirectURI)
	q.Set("scope", strings.Join(cfg.Scopes, " "))
	q.Set("response_type", "code")
	q.Set("state", state)
	if cfg.Quirks.Has(platform.QuirkOfflineAccess) {
		q.Set("access_type", "offline")
		q.Set("prompt", "consent")
	}
	if cfg.Quirks.Has(platform.QuirkClientKey) {
		q.Set("client_key", cfg.ClientID)
	}
	if cfg.Quirks.Has(platform.QuirkPKCE) {
		pair := newPKCE()
		req.CodeVerifier = pair.Verifier
		q.Set("code_challenge", pair.Challenge)
		q.Set("code_challenge_method", "S256")
	}
	u.RawQuery = q.Encode()

	if err := b.pending.Save(ctx, req, b.ttl); err != nil {
		return nil, err
	}

	log.Debug("authorization request recorded", logger.UserID(userID), logger.StateKey(state))
	return &Authorization{URL: u.String(), State: state, ExpiresAt: req.ExpiresAt}, nil
}
