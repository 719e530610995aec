package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dropDatabas3/socialconnect/internal/metrics"
	"github.com/dropDatabas3/socialconnect/internal/platform"
)

// TokenSet is the normalized result of a token endpoint call.
type TokenSet struct {
	AccessToken  string
	RefreshToken string // empty when the provider issued none
	TokenType    string
	Scope        string
	ExpiresIn    int64     // seconds; 0 when the provider did not report expiry
	ExpiresAt    time.Time // zero when the provider did not report expiry
	LongLived    bool
}

const (
	maxBodyBytes    = 1 << 20
	maxDetailsBytes = 4 << 10
	longLivedTTL    = 60 * 24 * time.Hour
)

// tokenResponse tolerates the shape differences between providers: numeric
// or quoted expires_in, scope as string or list, error as string or object.
type tokenResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	TokenType    string          `json:"token_type"`
	Scope        flexScope       `json:"scope"`
	ExpiresIn    flexInt         `json:"expires_in"`
	Error        json.RawMessage `json:"error"`
}

type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("expires_in: %w", err)
	}
	*f = flexInt(n)
	return nil
}

type flexScope string

func (f *flexScope) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '[' {
		var list []string
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*f = flexScope(strings.Join(list, " "))
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*f = ""
		return nil
	}
	*f = flexScope(s)
	return nil
}

func (r *tokenResponse) hasError() bool {
	e := bytes.TrimSpace(r.Error)
	return len(e) > 0 && !bytes.Equal(e, []byte("null")) && !bytes.Equal(e, []byte(`""`))
}

// tokenClient talks to provider token endpoints.
type tokenClient struct {
	http  *http.Client
	clock func() time.Time
}

func newTokenClient(hc *http.Client, clock func() time.Time) *tokenClient {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	if clock == nil {
		clock = time.Now
	}
	return &tokenClient{http: hc, clock: clock}
}

func clientForm(cfg platform.Config) url.Values {
	form := url.Values{}
	form.Set("client_id", cfg.ClientID)
	if cfg.ClientSecret != "" {
		form.Set("client_secret", cfg.ClientSecret)
	}
	if cfg.Quirks.Has(platform.QuirkClientKey) {
		form.Set("client_key", cfg.ClientID)
	}
	return form
}

func (c *tokenClient) exchangeCode(ctx context.Context, cfg platform.Config, code, redirectURI, verifier string) (TokenSet, error) {
	form := clientForm(cfg)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	if cfg.Quirks.Has(platform.QuirkPKCE) {
		form.Set("code_verifier", verifier)
	}
	return c.call(ctx, cfg, "exchange", http.MethodPost, form, ErrExchangeRejected)
}

func (c *tokenClient) refresh(ctx context.Context, cfg platform.Config, refreshToken string) (TokenSet, error) {
	form := clientForm(cfg)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return c.call(ctx, cfg, "refresh", http.MethodPost, form, ErrRefreshRejected)
}

// upgrade trades a short-lived token for a long-lived one. rejectKind lets
// the caller decide how a provider refusal is classified.
func (c *tokenClient) upgrade(ctx context.Context, cfg platform.Config, accessToken string, rejectKind error) (TokenSet, error) {
	form := clientForm(cfg)
	if cfg.Quirks.Has(platform.QuirkFBExchangeGrant) {
		form.Set("grant_type", "fb_exchange_token")
		form.Set("fb_exchange_token", accessToken)
	} else {
		form.Set("grant_type", "ig_exchange_token")
		form.Set("access_token", accessToken)
	}
	ts, err := c.call(ctx, cfg, "upgrade", http.MethodGet, form, rejectKind)
	if err != nil {
		return TokenSet{}, err
	}
	if ts.ExpiresAt.IsZero() {
		ts.ExpiresIn = int64(longLivedTTL / time.Second)
		ts.ExpiresAt = c.clock().Add(longLivedTTL)
	}
	ts.LongLived = true
	return ts, nil
}

func (c *tokenClient) call(ctx context.Context, cfg platform.Config, op, method string, form url.Values, rejectKind error) (TokenSet, error) {
	perr := func(kind error, status int, body []byte, err error) *ProviderError {
		return &ProviderError{
			Kind:       kind,
			Platform:   cfg.Platform,
			Op:         op,
			StatusCode: status,
			Details:    truncate(body),
			Err:        err,
		}
	}

	req, err := c.newRequest(ctx, cfg, method, form)
	if err != nil {
		return TokenSet{}, fmt.Errorf("%s %s: build request: %w", cfg.Platform, op, err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveProvider(string(cfg.Platform), op, "unavailable", time.Since(start))
		return TokenSet{}, perr(ErrProviderUnavailable, 0, nil, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	elapsed := time.Since(start)
	if err != nil {
		metrics.ObserveProvider(string(cfg.Platform), op, "unavailable", elapsed)
		return TokenSet{}, perr(ErrProviderUnavailable, resp.StatusCode, nil, err)
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		metrics.ObserveProvider(string(cfg.Platform), op, "unavailable", elapsed)
		return TokenSet{}, perr(ErrProviderUnavailable, resp.StatusCode, body, nil)
	case resp.StatusCode >= 400:
		metrics.ObserveProvider(string(cfg.Platform), op, "rejected", elapsed)
		return TokenSet{}, perr(rejectKind, resp.StatusCode, body, nil)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		metrics.ObserveProvider(string(cfg.Platform), op, "unavailable", elapsed)
		return TokenSet{}, perr(ErrProviderUnavailable, resp.StatusCode, body, fmt.Errorf("decode token response: %w", err))
	}
	// Some providers answer 200 with an error document.
	if tr.hasError() || tr.AccessToken == "" {
		metrics.ObserveProvider(string(cfg.Platform), op, "rejected", elapsed)
		return TokenSet{}, perr(rejectKind, resp.StatusCode, body, nil)
	}

	metrics.ObserveProvider(string(cfg.Platform), op, "ok", elapsed)
	ts := TokenSet{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		Scope:        string(tr.Scope),
		ExpiresIn:    int64(tr.ExpiresIn),
	}
	if ts.TokenType == "" {
		ts.TokenType = "Bearer"
	}
	if ts.ExpiresIn > 0 {
		ts.ExpiresAt = c.clock().Add(time.Duration(ts.ExpiresIn) * time.Second)
	}
	return ts, nil
}

func (c *tokenClient) newRequest(ctx context.Context, cfg platform.Config, method string, form url.Values) (*http.Request, error) {
	var req *http.Request
	var err error
	if method == http.MethodGet {
		u, perr := url.Parse(cfg.TokenURL)
		if perr != nil {
			return nil, perr
		}
		q := u.Query()
		for k, vs := range form {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, cfg.TokenURL, strings.NewReader(form.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if cfg.Quirks.Has(platform.QuirkBasicAuth) && cfg.ClientSecret != "" {
		req.SetBasicAuth(url.QueryEscape(cfg.ClientID), url.QueryEscape(cfg.ClientSecret))
	}
	return req, nil
}

func truncate(b []byte) string {
	if len(b) > maxDetailsBytes {
		b = b[:maxDetailsBytes]
	}
	return string(b)
}
