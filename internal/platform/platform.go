// Package platform holds the static, per-provider OAuth configuration.
//
// Each supported social platform is described by one PlatformConfig row. The
// OAuth handlers never branch on the platform name; every provider-specific
// behavior is expressed as a Quirk flag on the row, so adding a provider means
// adding a row to the catalog.
package platform

import (
	"fmt"
	"sort"
	"strings"
)

// Platform identifies a third-party identity provider.
type Platform string

const (
	LinkedIn  Platform = "linkedin"
	Facebook  Platform = "facebook"
	Instagram Platform = "instagram"
	Twitter   Platform = "twitter"
	TikTok    Platform = "tiktok"
	YouTube   Platform = "youtube"
)

// All lists the known platforms in a stable order.
var All = []Platform{LinkedIn, Facebook, Instagram, Twitter, TikTok, YouTube}

// Parse normalizes s and returns the matching Platform.
func Parse(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.Known() {
		return "", fmt.Errorf("platform: unknown %q", s)
	}
	return p, nil
}

// Known reports whether p is one of the built-in platforms.
func (p Platform) Known() bool {
	for _, k := range All {
		if p == k {
			return true
		}
	}
	return false
}

func (p Platform) String() string { return string(p) }

// Quirk is a capability flag describing a provider deviation from plain
// authorization-code OAuth 2.0.
type Quirk uint16

const (
	// QuirkLongLivedUpgrade: the code exchange yields a short-lived token
	// that must be upgraded with a second call to the token endpoint.
	QuirkLongLivedUpgrade Quirk = 1 << iota
	// QuirkFBExchangeGrant: the upgrade uses grant_type=fb_exchange_token.
	QuirkFBExchangeGrant
	// QuirkPKCE: authorization requires code_challenge and the exchange code_verifier.
	QuirkPKCE
	// QuirkOfflineAccess: access_type=offline and prompt=consent are needed
	// for the provider to issue a refresh token.
	QuirkOfflineAccess
	// QuirkClientKey: the client id is also sent as client_key.
	QuirkClientKey
	// QuirkBasicAuth: token endpoint calls also carry HTTP Basic client credentials.
	QuirkBasicAuth
	// QuirkQueryToken: the validator sends the token as the access_token query
	// parameter instead of a bearer header.
	QuirkQueryToken
)

var quirkNames = map[Quirk]string{
	QuirkLongLivedUpgrade: "long_lived_upgrade",
	QuirkFBExchangeGrant:  "fb_exchange_token_grant",
	QuirkPKCE:             "pkce",
	QuirkOfflineAccess:    "offline_access",
	QuirkClientKey:        "client_key",
	QuirkBasicAuth:        "basic_auth",
	QuirkQueryToken:       "query_token",
}

// Has reports whether every flag in f is set on q.
func (q Quirk) Has(f Quirk) bool { return q&f == f }

// Names returns the set flags as sorted strings.
func (q Quirk) Names() []string {
	out := make([]string, 0, len(quirkNames))
	for f, name := range quirkNames {
		if q.Has(f) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
