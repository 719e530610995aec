package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dropDatabas3/socialconnect/internal/cache"
	"github.com/dropDatabas3/socialconnect/internal/platform"
)

// AuthorizationRequest is one initiated connect flow. It is created when the
// authorize URL is built and consumed exactly once by the callback.
type AuthorizationRequest struct {
	State        string            `json:"state"`
	Platform     platform.Platform `json:"platform"`
	UserID       string            `json:"user_id"`
	RedirectURI  string            `json:"redirect_uri"`
	CodeVerifier string            `json:"code_verifier,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	ExpiresAt    time.Time         `json:"expires_at"`
}

// PendingStore records pending authorization requests.
type PendingStore interface {
	// Save records req until ttl elapses. It fails if req.State is already pending.
	Save(ctx context.Context, req AuthorizationRequest, ttl time.Duration) error
	// Consume atomically removes and returns the request for state. Missing
	// or expired entries yield ErrInvalidState.
	Consume(ctx context.Context, state string) (*AuthorizationRequest, error)
}

// CachePendingStore keeps pending requests in a cache.Client, using its TTL
// for abandoned flows and Take for single use.
type CachePendingStore struct {
	c     cache.Client
	clock func() time.Time
}

const pendingPrefix = "oauth:state:"

// NewCachePendingStore builds a PendingStore over c.
func NewCachePendingStore(c cache.Client, clock func() time.Time) *CachePendingStore {
	if clock == nil {
		clock = time.Now
	}
	return &CachePendingStore{c: c, clock: clock}
}

func (s *CachePendingStore) Save(ctx context.Context, req AuthorizationRequest, ttl time.Duration) error {
	b, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("pending: encode: %w", err)
	}
	ok, err := s.c.SetNX(ctx, pendingPrefix+req.State, string(b), ttl)
	if err != nil {
		return fmt.Errorf("pending: save: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: state already pending", ErrInvalidState)
	}
	return nil
}

func (s *CachePendingStore) Consume(ctx context.Context, state string) (*AuthorizationRequest, error) {
	if state == "" {
		return nil, fmt.Errorf("%w: empty state", ErrInvalidState)
	}
	raw, err := s.c.Take(ctx, pendingPrefix+state)
	if cache.IsNotFound(err) {
		return nil, fmt.Errorf("%w: unknown or already used", ErrInvalidState)
	}
	if err != nil {
		return nil, fmt.Errorf("pending: consume: %w", err)
	}

	var req AuthorizationRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return nil, fmt.Errorf("%w: corrupt pending request", ErrInvalidState)
	}
	if !req.ExpiresAt.IsZero() && s.clock().After(req.ExpiresAt) {
		return nil, fmt.Errorf("%w: expired", ErrInvalidState)
	}
	return &req, nil
}
