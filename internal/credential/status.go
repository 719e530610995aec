package credential

import (
	"time"

	"github.com/dropDatabas3/socialconnect/internal/oauth"
	"github.com/dropDatabas3/socialconnect/internal/platform"
)

// Status is derived from a Credential and the clock. It is never stored.
type Status string

const (
	StatusNotConnected Status = "not_connected"
	StatusConnected    Status = "connected"
	StatusExpiringSoon Status = "expiring_soon"
	StatusExpired      Status = "expired"
	StatusInvalid      Status = "invalid"
	StatusRevoked      Status = "revoked"
	// StatusError is transient: a provider could not be reached while
	// checking. It is reported with the prior status and never persisted.
	StatusError Status = "error"
)

// Usable reports whether a token in this status may be handed out.
func (s Status) Usable() bool {
	return s == StatusConnected || s == StatusExpiringSoon
}

// Derive computes the status of c at now. refreshWindow is how long before
// expiry a credential counts as expiring soon.
func Derive(c *Credential, now time.Time, refreshWindow time.Duration) Status {
	switch {
	case c == nil:
		return StatusNotConnected
	case c.RevokedAt != nil:
		return StatusRevoked
	case c.AccessToken == "":
		return StatusInvalid
	case c.InvalidatedAt != nil:
		return StatusExpired
	case c.ExpiresAt == nil:
		return StatusConnected
	case !now.Before(*c.ExpiresAt):
		return StatusExpired
	case now.After(c.ExpiresAt.Add(-refreshWindow)):
		return StatusExpiringSoon
	default:
		return StatusConnected
	}
}

// renewable reports whether an expired credential may still be recovered
// by a refresh grant (expired by time, not by the validator).
func renewable(c *Credential) bool {
	return c != nil && c.RevokedAt == nil && c.InvalidatedAt == nil &&
		c.AccessToken != "" && c.RefreshToken != ""
}

// StatusView is the public projection of a credential. Tokens are never part of it.
type StatusView struct {
	Platform          platform.Platform `json:"platform"`
	UserID            string            `json:"user_id"`
	Status            Status            `json:"status"`
	ExpiresAt         *time.Time        `json:"expires_at,omitempty"`
	Scope             string            `json:"scope,omitempty"`
	HasRefreshToken   bool              `json:"has_refresh_token"`
	ReconnectRequired bool              `json:"reconnect_required"`
	PriorStatus       Status            `json:"prior_status,omitempty"`
	Profile           *oauth.Profile    `json:"profile,omitempty"`
	Error             string            `json:"error,omitempty"`
}

func viewOf(userID string, p platform.Platform, c *Credential, st Status) StatusView {
	v := StatusView{Platform: p, UserID: userID, Status: st}
	if c != nil {
		v.ExpiresAt = cloneTime(c.ExpiresAt)
		v.Scope = c.Scope
		v.HasRefreshToken = c.RefreshToken != ""
	}
	switch st {
	case StatusRevoked, StatusInvalid:
		v.ReconnectRequired = true
	case StatusExpired:
		v.ReconnectRequired = c == nil || c.RefreshToken == "" || c.InvalidatedAt != nil
	}
	return v
}
