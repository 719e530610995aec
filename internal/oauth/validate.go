package oauth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/dropDatabas3/socialconnect/internal/metrics"
	"github.com/dropDatabas3/socialconnect/internal/platform"
)

// Profile is the normalized identity behind a valid token.
type Profile struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name,omitempty"`
	Username string         `json:"username,omitempty"`
	Raw      map[string]any `json:"raw,omitempty"`
}

// Validation is the outcome of a live token check.
type Validation struct {
	Valid   bool     `json:"valid"`
	Profile *Profile `json:"profile,omitempty"`
}

// Validator asks providers whether an access token still works.
type Validator struct {
	registry *platform.Registry
	http     *http.Client
	cache    *expirable.LRU[string, Validation]
}

// ValidatorOptions tunes a Validator. Zero values disable the result cache.
type ValidatorOptions struct {
	HTTPClient *http.Client
	CacheSize  int
	CacheTTL   time.Duration
}

// NewValidator builds a Validator.
func NewValidator(reg *platform.Registry, opts ValidatorOptions) *Validator {
	v := &Validator{registry: reg, http: opts.HTTPClient}
	if v.http == nil {
		v.http = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.CacheSize > 0 && opts.CacheTTL > 0 {
		v.cache = expirable.NewLRU[string, Validation](opts.CacheSize, nil, opts.CacheTTL)
	}
	return v
}

func cacheKey(p platform.Platform, token string) string {
	sum := sha256.Sum256([]byte(token))
	return string(p) + ":" + hex.EncodeToString(sum[:])
}

// Validate performs a live profile lookup with accessToken. A token the
// provider refuses yields Valid=false with a nil error; a provider that can't
// answer yields ErrProviderUnavailable.
func (v *Validator) Validate(ctx context.Context, p platform.Platform, accessToken string) (Validation, error) {
	cfg, err := v.registry.Lookup(p)
	if err != nil {
		return Validation{}, unsupported(p)
	}
	if accessToken == "" {
		return Validation{Valid: false}, nil
	}

	key := cacheKey(p, accessToken)
	if v.cache != nil {
		if res, ok := v.cache.Get(key); ok {
			return res, nil
		}
	}

	res, err := v.lookup(ctx, cfg, accessToken)
	if err != nil {
		return Validation{}, err
	}
	if v.cache != nil {
		v.cache.Add(key, res)
	}
	return res, nil
}

// Check is Validate without the result cache. The live outcome replaces any
// cached one, so later Validate calls see it too.
func (v *Validator) Check(ctx context.Context, p platform.Platform, accessToken string) (Validation, error) {
	cfg, err := v.registry.Lookup(p)
	if err != nil {
		return Validation{}, unsupported(p)
	}
	if accessToken == "" {
		return Validation{Valid: false}, nil
	}
	res, err := v.lookup(ctx, cfg, accessToken)
	if err != nil {
		return Validation{}, err
	}
	if v.cache != nil {
		v.cache.Add(cacheKey(p, accessToken), res)
	}
	return res, nil
}

// Forget drops any cached outcome for accessToken.
func (v *Validator) Forget(p platform.Platform, accessToken string) {
	if v.cache != nil {
		v.cache.Remove(cacheKey(p, accessToken))
	}
}

func (v *Validator) lookup(ctx context.Context, cfg platform.Config, accessToken string) (Validation, error) {
	u, err := url.Parse(cfg.ValidateURL)
	if err != nil {
		return Validation{}, fmt.Errorf("%s validate url: %w", cfg.Platform, err)
	}
	if cfg.Quirks.Has(platform.QuirkQueryToken) {
		q := u.Query()
		q.Set("access_token", accessToken)
		u.RawQuery = q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Validation{}, fmt.Errorf("%s validate: build request: %w", cfg.Platform, err)
	}
	req.Header.Set("Accept", "application/json")
	if !cfg.Quirks.Has(platform.QuirkQueryToken) {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	unavailable := func(status int, body []byte, err error) error {
		return &ProviderError{
			Kind:       ErrProviderUnavailable,
			Platform:   cfg.Platform,
			Op:         "validate",
			StatusCode: status,
			Details:    truncate(body),
			Err:        err,
		}
	}

	start := time.Now()
	resp, err := v.http.Do(req)
	if err != nil {
		metrics.ObserveProvider(string(cfg.Platform), "validate", "unavailable", time.Since(start))
		return Validation{}, unavailable(0, nil, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	elapsed := time.Since(start)
	if err != nil {
		metrics.ObserveProvider(string(cfg.Platform), "validate", "unavailable", elapsed)
		return Validation{}, unavailable(resp.StatusCode, nil, err)
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		metrics.ObserveProvider(string(cfg.Platform), "validate", "unavailable", elapsed)
		return Validation{}, unavailable(resp.StatusCode, body, nil)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusBadRequest && tokenRejected(body):
		metrics.ObserveProvider(string(cfg.Platform), "validate", "invalid", elapsed)
		return Validation{Valid: false}, nil
	case resp.StatusCode >= 400:
		// 404 y 400 genéricos: la respuesta no dice nada del token.
		metrics.ObserveProvider(string(cfg.Platform), "validate", "unavailable", elapsed)
		return Validation{}, unavailable(resp.StatusCode, body, nil)
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		metrics.ObserveProvider(string(cfg.Platform), "validate", "unavailable", elapsed)
		return Validation{}, unavailable(resp.StatusCode, body, fmt.Errorf("decode profile: %w", err))
	}
	if embeddedError(doc) {
		metrics.ObserveProvider(string(cfg.Platform), "validate", "invalid", elapsed)
		return Validation{Valid: false}, nil
	}

	metrics.ObserveProvider(string(cfg.Platform), "validate", "ok", elapsed)
	return Validation{Valid: true, Profile: normalizeProfile(doc)}, nil
}

// tokenRejected reports whether a 400 body blames the access token. Graph API
// answers dead tokens with 400 and an OAuthException of code 190.
func tokenRejected(body []byte) bool {
	var doc struct {
		Error any `json:"error"`
	}
	if json.Unmarshal(body, &doc) != nil {
		return false
	}
	switch e := doc.Error.(type) {
	case string:
		return e == "invalid_token" || e == "invalid_grant"
	case map[string]any:
		code, _ := e["code"].(float64)
		return code == 190 || code == 102
	}
	return false
}

// embeddedError detects 200 responses that carry a failure, e.g.
// {"error":{"code":"access_token_invalid"}}. TikTok answers every call with
// an error object whose code is "ok" on success.
func embeddedError(doc map[string]any) bool {
	raw, ok := doc["error"]
	if !ok || raw == nil {
		return false
	}
	switch e := raw.(type) {
	case string:
		return e != ""
	case map[string]any:
		code, _ := e["code"].(string)
		return code != "" && code != "ok"
	}
	return true
}

// normalizeProfile unwraps "data" and "data.user" envelopes and picks the
// common identity fields.
func normalizeProfile(doc map[string]any) *Profile {
	node := doc
	if d, ok := node["data"].(map[string]any); ok {
		node = d
		if u, ok := node["user"].(map[string]any); ok {
			node = u
		}
	}
	str := func(keys ...string) string {
		for _, k := range keys {
			if s, ok := node[k].(string); ok && s != "" {
				return s
			}
		}
		return ""
	}
	return &Profile{
		ID:       str("id", "sub", "open_id"),
		Name:     str("name", "display_name", "localizedFirstName"),
		Username: str("username", "email"),
		Raw:      node,
	}
}
