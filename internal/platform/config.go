package platform

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Config is the immutable configuration of one platform.
type Config struct {
	Platform     Platform
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	AuthorizeURL string
	TokenURL     string
	// ValidateURL is the provider "who am I" endpoint.
	ValidateURL string
	Quirks      Quirk
}

// RedirectURIFor returns the callback URL the service exposes for p.
func RedirectURIFor(baseURL string, p Platform) string {
	return strings.TrimRight(baseURL, "/") + "/oauth/" + string(p) + "/callback"
}

// Validate checks that the row can be used for a flow.
func (c Config) Validate() error {
	if !c.Platform.Known() {
		return fmt.Errorf("platform: unknown %q", c.Platform)
	}
	if strings.TrimSpace(c.ClientID) == "" {
		return fmt.Errorf("platform %s: client_id required", c.Platform)
	}
	if c.RedirectURI == "" {
		return fmt.Errorf("platform %s: redirect_uri required", c.Platform)
	}
	for name, raw := range map[string]string{
		"authorize_url": c.AuthorizeURL,
		"token_url":     c.TokenURL,
		"validate_url":  c.ValidateURL,
		"redirect_uri":  c.RedirectURI,
	} {
		u, err := url.Parse(raw)
		if err != nil || !u.IsAbs() {
			return fmt.Errorf("platform %s: %s must be an absolute URL", c.Platform, name)
		}
	}
	if len(c.Scopes) == 0 {
		return errors.New("platform " + string(c.Platform) + ": at least one scope required")
	}
	return nil
}

// clone returns a deep copy so callers cannot mutate registry state.
func (c Config) clone() Config {
	out := c
	out.Scopes = append([]string(nil), c.Scopes...)
	return out
}
