// Package credential drives the lifecycle of per-user provider credentials:
// storage, derived status, lazy refresh and the connect flow.
package credential

import (
	"errors"
	"time"

	"github.com/dropDatabas3/socialconnect/internal/platform"
)

var (
	// ErrNotConnected: no credential exists for (user, platform).
	ErrNotConnected = errors.New("not connected")
	// ErrReconnectRequired: the credential is revoked, invalidated or expired
	// with no way to renew it. Only a new connect flow recovers.
	ErrReconnectRequired = errors.New("reconnect required")
)

// Credential is the persisted token set of one user on one platform.
// (UserID, Platform) is unique.
type Credential struct {
	UserID       string
	Platform     platform.Platform
	AccessToken  string
	RefreshToken string // empty when the provider issued none
	TokenType    string
	ExpiresAt    *time.Time // nil when the provider did not report expiry
	Scope        string

	// RevokedAt is set when the provider rejected the refresh token.
	RevokedAt *time.Time
	// InvalidatedAt is set when the validator reported the access token dead.
	InvalidatedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	// Version grows with every write; Store.Update only applies over the
	// version it was read at.
	Version int64
}

// Clone returns a deep copy.
func (c *Credential) Clone() *Credential {
	if c == nil {
		return nil
	}
	out := *c
	out.ExpiresAt = cloneTime(c.ExpiresAt)
	out.RevokedAt = cloneTime(c.RevokedAt)
	out.InvalidatedAt = cloneTime(c.InvalidatedAt)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func timePtr(t time.Time) *time.Time { return &t }
