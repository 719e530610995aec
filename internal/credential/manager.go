package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/socialconnect/internal/metrics"
	"github.com/dropDatabas3/socialconnect/internal/oauth"
	"github.com/dropDatabas3/socialconnect/internal/observability/logger"
	"github.com/dropDatabas3/socialconnect/internal/platform"
)

// Exchanger redeems authorization codes.
type Exchanger interface {
	Exchange(ctx context.Context, req oauth.ExchangeRequest) (*oauth.ExchangeResult, error)
}

// Refresher renews access tokens.
type Refresher interface {
	Refresh(ctx context.Context, p platform.Platform, refreshToken string) (oauth.TokenSet, error)
	CanExtend(p platform.Platform) bool
	Extend(ctx context.Context, p platform.Platform, accessToken string) (oauth.TokenSet, error)
}

// Validator checks access tokens live against the provider, skipping any
// cached outcome.
type Validator interface {
	Check(ctx context.Context, p platform.Platform, accessToken string) (oauth.Validation, error)
}

// Deps contiene las dependencias del Manager.
type Deps struct {
	Store     Store
	Registry  *platform.Registry
	Exchanger Exchanger
	Refresher Refresher
	Validator Validator

	RefreshWindow  time.Duration // default 5m
	RefreshTimeout time.Duration // default 5s
	RetryAttempts  int           // default 3
	RetryBase      time.Duration // default 200ms
	Clock          func() time.Time
}

// Manager is the credential status facade. Status is derived lazily on
// access; there is no background refresher.
type Manager struct {
	store     Store
	registry  *platform.Registry
	exchanger Exchanger
	refresher Refresher
	validator Validator

	window    time.Duration
	timeout   time.Duration
	attempts  int
	retryBase time.Duration
	clock     func() time.Time

	// flights serializes refreshes per (user, platform).
	flights singleflight.Group
}

func NewManager(d Deps) *Manager {
	m := &Manager{
		store:     d.Store,
		registry:  d.Registry,
		exchanger: d.Exchanger,
		refresher: d.Refresher,
		validator: d.Validator,
		window:    d.RefreshWindow,
		timeout:   d.RefreshTimeout,
		attempts:  d.RetryAttempts,
		retryBase: d.RetryBase,
		clock:     d.Clock,
	}
	if m.window <= 0 {
		m.window = 5 * time.Minute
	}
	if m.timeout <= 0 {
		m.timeout = 5 * time.Second
	}
	if m.attempts <= 0 {
		m.attempts = 3
	}
	if m.retryBase <= 0 {
		m.retryBase = 200 * time.Millisecond
	}
	if m.clock == nil {
		m.clock = time.Now
	}
	return m
}

func (m *Manager) log(ctx context.Context, op string, userID string, p platform.Platform) *zap.Logger {
	return logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("credential.manager"),
		logger.Op(op),
		logger.UserID(userID),
		logger.Platform(string(p)),
	)
}

func (m *Manager) load(ctx context.Context, userID string, p platform.Platform) (*Credential, error) {
	if _, err := m.registry.Lookup(p); err != nil {
		return nil, fmt.Errorf("%w: %q", oauth.ErrUnsupportedPlatform, p)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user id required", oauth.ErrInvalidInput)
	}
	c, err := m.store.Get(ctx, userID, p)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotConnected
	}
	return c, err
}

// ConnectResult is a completed connect flow.
type ConnectResult struct {
	Credential *Credential
	Token      oauth.TokenSet
	// Degraded: the long-lived upgrade failed and a short-lived token was stored.
	Degraded bool
}

// Connect redeems the callback code and stores the credential for the user
// recorded with the state. Any previous revoked or expired marker is cleared.
func (m *Manager) Connect(ctx context.Context, req oauth.ExchangeRequest) (*ConnectResult, error) {
	res, err := m.exchanger.Exchange(ctx, req)
	if err != nil {
		return nil, err
	}
	log := m.log(ctx, "connect", res.UserID, res.Platform)

	now := m.clock()
	c := &Credential{
		UserID:       res.UserID,
		Platform:     res.Platform,
		AccessToken:  res.Token.AccessToken,
		RefreshToken: res.Token.RefreshToken,
		TokenType:    res.Token.TokenType,
		Scope:        res.Token.Scope,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if !res.Token.ExpiresAt.IsZero() {
		c.ExpiresAt = timePtr(res.Token.ExpiresAt)
	}

	prev, err := m.store.Get(ctx, res.UserID, res.Platform)
	switch {
	case err == nil:
		c.CreatedAt = prev.CreatedAt
		if c.RefreshToken == "" && prev.RevokedAt == nil {
			c.RefreshToken = prev.RefreshToken
		}
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	if err := m.store.Upsert(ctx, c); err != nil {
		log.Error("store credential failed", logger.Err(err))
		return nil, err
	}
	metrics.CredentialTransitions.WithLabelValues(string(c.Platform), string(StatusConnected)).Inc()
	log.Info("credential connected",
		logger.Bool("degraded", res.Degraded),
		logger.Bool("has_refresh_token", c.RefreshToken != ""),
	)
	return &ConnectResult{Credential: c.Clone(), Token: res.Token, Degraded: res.Degraded}, nil
}

// GetCredentials returns a currently usable credential. A credential inside
// the refresh window is renewed first; callers never receive a revoked one.
func (m *Manager) GetCredentials(ctx context.Context, userID string, p platform.Platform) (*Credential, error) {
	c, err := m.load(ctx, userID, p)
	if err != nil {
		return nil, err
	}
	return m.ensureFresh(ctx, c)
}

// HasValidCredentials reports whether a usable token exists, refreshing it
// synchronously when it is about to expire. Missing or unrecoverable
// credentials yield false with a nil error; provider outages yield the error.
func (m *Manager) HasValidCredentials(ctx context.Context, userID string, p platform.Platform) (bool, error) {
	_, err := m.GetCredentials(ctx, userID, p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotConnected), errors.Is(err, ErrReconnectRequired):
		return false, nil
	default:
		return false, err
	}
}

// RevokeCredentials forgets the credential. Provider-side revocation is not attempted.
func (m *Manager) RevokeCredentials(ctx context.Context, userID string, p platform.Platform) error {
	if _, err := m.load(ctx, userID, p); err != nil {
		return err
	}
	if err := m.store.Delete(ctx, userID, p); err != nil {
		return err
	}
	metrics.CredentialTransitions.WithLabelValues(string(p), string(StatusNotConnected)).Inc()
	m.log(ctx, "revoke", userID, p).Info("credential removed")
	return nil
}

func (m *Manager) ensureFresh(ctx context.Context, c *Credential) (*Credential, error) {
	now := m.clock()
	st := Derive(c, now, m.window)
	switch st {
	case StatusConnected:
		return c, nil
	case StatusExpiringSoon:
		if c.RefreshToken == "" && !m.refresher.CanExtend(c.Platform) {
			return c, nil
		}
	case StatusExpired:
		if !renewable(c) {
			return nil, fmt.Errorf("%w: %s", ErrReconnectRequired, st)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrReconnectRequired, st)
	}

	fresh, err := m.refreshShared(ctx, c)
	if err == nil {
		return fresh, nil
	}
	// The old token outlives an unreachable provider until it actually expires.
	if st == StatusExpiringSoon && oauth.Retryable(err) {
		m.log(ctx, "refresh", c.UserID, c.Platform).Warn("refresh unavailable, serving current token",
			logger.CredentialStatus(string(st)), logger.Err(err))
		return c, nil
	}
	return nil, err
}

// refreshShared runs at most one refresh per (user, platform) at a time.
// Concurrent callers wait for the in-flight result; each gives up on its own
// context, while the flight itself is bounded by the refresh timeout.
func (m *Manager) refreshShared(ctx context.Context, c *Credential) (*Credential, error) {
	key := c.UserID + "\x00" + string(c.Platform)
	ch := m.flights.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
		defer cancel()
		return m.refreshOnce(fctx, c.UserID, c.Platform)
	})
	select {
	case <-ctx.Done():
		return nil, &oauth.ProviderError{Kind: oauth.ErrProviderUnavailable, Platform: c.Platform, Op: "refresh", Err: ctx.Err()}
	case r := <-ch:
		if r.Shared {
			metrics.RefreshShared.WithLabelValues(string(c.Platform)).Inc()
		}
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*Credential).Clone(), nil
	}
}

// refreshOnce reloads the record so a flight that starts right after another
// one finished sees the renewed token and makes no upstream call.
func (m *Manager) refreshOnce(ctx context.Context, userID string, p platform.Platform) (*Credential, error) {
	log := m.log(ctx, "refresh", userID, p)

	cur, err := m.store.Get(ctx, userID, p)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, err
	}
	st := Derive(cur, m.clock(), m.window)
	if st == StatusConnected {
		return cur, nil
	}

	var ts oauth.TokenSet
	switch {
	case st != StatusExpiringSoon && !(st == StatusExpired && renewable(cur)):
		return nil, fmt.Errorf("%w: %s", ErrReconnectRequired, st)
	case cur.RefreshToken != "":
		ts, err = m.refresher.Refresh(ctx, p, cur.RefreshToken)
	case st == StatusExpiringSoon && m.refresher.CanExtend(p):
		ts, err = m.refresher.Extend(ctx, p, cur.AccessToken)
	default:
		return nil, fmt.Errorf("%w: %s", ErrReconnectRequired, st)
	}

	now := m.clock()
	if err != nil {
		if errors.Is(err, oauth.ErrRefreshRejected) {
			cur.RevokedAt = timePtr(now)
			cur.UpdatedAt = now
			// Un registro reconectado o borrado mientras tanto no se marca.
			switch perr := m.store.Update(ctx, cur); {
			case errors.Is(perr, ErrConflict), errors.Is(perr, ErrNotFound):
				log.Info("credential changed during refresh, revocation not persisted")
			case perr != nil:
				log.Error("persist revocation failed", logger.Err(perr))
			}
			metrics.CredentialTransitions.WithLabelValues(string(p), string(StatusRevoked)).Inc()
			log.Warn("refresh rejected, credential revoked", logger.String("details", oauth.DetailsOf(err)))
			return nil, fmt.Errorf("%w: %w", ErrReconnectRequired, err)
		}
		if errors.Is(err, context.DeadlineExceeded) && !oauth.Retryable(err) {
			err = &oauth.ProviderError{Kind: oauth.ErrProviderUnavailable, Platform: p, Op: "refresh", Err: err}
		}
		log.Warn("refresh failed", logger.Err(err))
		return nil, err
	}

	fresh, err := m.storeRefreshed(ctx, cur, ts, now)
	if errors.Is(err, ErrNotConnected) {
		log.Info("credential removed during refresh, new tokens discarded")
		return nil, err
	}
	if err != nil {
		log.Error("store refreshed credential failed", logger.Err(err))
		return nil, err
	}
	metrics.CredentialTransitions.WithLabelValues(string(p), string(StatusConnected)).Inc()
	log.Info("credential refreshed", logger.Bool("rotated", ts.RefreshToken != ""))
	return fresh, nil
}

// maxWriteAttempts bounds the re-read loops around Store.Update.
const maxWriteAttempts = 3

// storeRefreshed writes ts over cur. If the record moved on meanwhile, ts is
// applied again over the newer copy while it still holds the grant that was
// redeemed; a reconnected or renewed record wins over ts.
func (m *Manager) storeRefreshed(ctx context.Context, cur *Credential, ts oauth.TokenSet, now time.Time) (*Credential, error) {
	grant, access := cur.RefreshToken, cur.AccessToken
	for attempt := 1; ; attempt++ {
		next := cur.Clone()
		applyTokenSet(next, ts, now)
		err := m.store.Update(ctx, next)
		switch {
		case err == nil:
			return next, nil
		case errors.Is(err, ErrNotFound):
			return nil, ErrNotConnected
		case !errors.Is(err, ErrConflict) || attempt == maxWriteAttempts:
			return nil, err
		}

		latest, err := m.store.Get(ctx, cur.UserID, cur.Platform)
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotConnected
		}
		if err != nil {
			return nil, err
		}
		if latest.RevokedAt != nil || latest.RefreshToken != grant || (grant == "" && latest.AccessToken != access) {
			return m.usable(latest)
		}
		cur = latest
	}
}

func applyTokenSet(c *Credential, ts oauth.TokenSet, now time.Time) {
	c.AccessToken = ts.AccessToken
	if ts.RefreshToken != "" {
		c.RefreshToken = ts.RefreshToken
	}
	if ts.TokenType != "" {
		c.TokenType = ts.TokenType
	}
	if ts.Scope != "" {
		c.Scope = ts.Scope
	}
	c.ExpiresAt = nil
	if !ts.ExpiresAt.IsZero() {
		c.ExpiresAt = timePtr(ts.ExpiresAt)
	}
	c.InvalidatedAt = nil
	c.UpdatedAt = now
}

func (m *Manager) usable(c *Credential) (*Credential, error) {
	if st := Derive(c, m.clock(), m.window); !st.Usable() {
		return nil, fmt.Errorf("%w: %s", ErrReconnectRequired, st)
	}
	return c, nil
}

// Status returns the view of one credential. With validate set, a usable
// credential is also checked live; an unreachable provider is reported as
// StatusError with the prior status and changes nothing.
func (m *Manager) Status(ctx context.Context, userID string, p platform.Platform, validate bool) (StatusView, error) {
	c, err := m.load(ctx, userID, p)
	if errors.Is(err, ErrNotConnected) {
		return viewOf(userID, p, nil, StatusNotConnected), nil
	}
	if err != nil {
		return StatusView{}, err
	}
	st := Derive(c, m.clock(), m.window)
	if !validate || !st.Usable() {
		return viewOf(userID, p, c, st), nil
	}

	var res oauth.Validation
	err = oauth.Retry(ctx, m.attempts, m.retryBase, func(ctx context.Context) error {
		var verr error
		res, verr = m.validator.Check(ctx, p, c.AccessToken)
		return verr
	})
	if err != nil {
		if !oauth.Retryable(err) {
			return StatusView{}, err
		}
		v := viewOf(userID, p, c, StatusError)
		v.PriorStatus = st
		v.Error = err.Error()
		return v, nil
	}
	if !res.Valid {
		return m.invalidate(ctx, c, st)
	}
	v := viewOf(userID, p, c, st)
	v.Profile = res.Profile
	return v, nil
}

// invalidate marks the access token of c dead. The mark is dropped when the
// record was renewed to another token after c was read.
func (m *Manager) invalidate(ctx context.Context, c *Credential, prior Status) (StatusView, error) {
	log := m.log(ctx, "validate", c.UserID, c.Platform)
	token := c.AccessToken
	for attempt := 1; ; attempt++ {
		now := m.clock()
		c.InvalidatedAt = timePtr(now)
		c.UpdatedAt = now
		err := m.store.Update(ctx, c)
		switch {
		case err == nil:
			metrics.CredentialTransitions.WithLabelValues(string(c.Platform), string(StatusExpired)).Inc()
			log.Info("provider reports token invalid", logger.CredentialStatus(string(prior)))
			return viewOf(c.UserID, c.Platform, c, StatusExpired), nil
		case errors.Is(err, ErrNotFound):
			return viewOf(c.UserID, c.Platform, nil, StatusNotConnected), nil
		case !errors.Is(err, ErrConflict) || attempt == maxWriteAttempts:
			return StatusView{}, err
		}

		latest, err := m.store.Get(ctx, c.UserID, c.Platform)
		if errors.Is(err, ErrNotFound) {
			return viewOf(c.UserID, c.Platform, nil, StatusNotConnected), nil
		}
		if err != nil {
			return StatusView{}, err
		}
		if latest.AccessToken != token {
			log.Info("token renewed during validation, invalid mark dropped")
			return viewOf(c.UserID, c.Platform, latest, Derive(latest, m.clock(), m.window)), nil
		}
		c = latest
	}
}

// Statuses returns one view per configured platform.
func (m *Manager) Statuses(ctx context.Context, userID string, validate bool) ([]StatusView, error) {
	out := make([]StatusView, 0, len(m.registry.Platforms()))
	for _, p := range m.registry.Platforms() {
		v, err := m.Status(ctx, userID, p, validate)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Ping checks the backing store.
func (m *Manager) Ping(ctx context.Context) error {
	return m.store.Ping(ctx)
}
