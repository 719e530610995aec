package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialconnect/internal/platform"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, "memory", c.Cache.Kind)
	assert.Equal(t, 10*time.Minute, c.OAuth.StateTTL)
	assert.Equal(t, 5*time.Minute, c.OAuth.RefreshWindow)
	assert.Equal(t, 5*time.Second, c.OAuth.RefreshTimeout)
	assert.Equal(t, 10*time.Second, c.OAuth.HTTPTimeout)
	assert.Equal(t, 30*time.Second, c.OAuth.ValidateCacheTTL)
	assert.Equal(t, 3, c.OAuth.RetryAttempts)
	assert.True(t, c.Rate.Enabled)
	assert.Equal(t, 30, c.Rate.Limit)
	assert.Equal(t, time.Minute, c.Rate.Window)
	require.NoError(t, c.Validate())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
server:
  public_base_url: https://file.example.com
oauth:
  refresh_window: 2m
rate:
  enabled: false
platforms:
  youtube:
    client_id: yt-file
    scopes: [openid]
  tiktok:
    client_id: tt-file
    token_url: https://sandbox.tiktok.example/token
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("PUBLIC_BASE_URL", "https://env.example.com")
	t.Setenv("LINKEDIN_CLIENT_ID", "li-env")
	t.Setenv("LINKEDIN_CLIENT_SECRET", "li-secret")
	t.Setenv("YOUTUBE_CLIENT_ID", "yt-env")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("OAUTH_REFRESH_TIMEOUT", "3s")

	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "https://env.example.com", c.Server.PublicBaseURL)
	assert.Equal(t, 2*time.Minute, c.OAuth.RefreshWindow)
	assert.Equal(t, 3*time.Second, c.OAuth.RefreshTimeout)
	assert.False(t, c.Rate.Enabled)
	assert.Equal(t, "redis", c.Cache.Kind)
	assert.Equal(t, "yt-env", c.Platforms["youtube"].ClientID)
	assert.Equal(t, []string{"openid"}, c.Platforms["youtube"].Scopes)

	reg, err := c.BuildRegistry()
	require.NoError(t, err)
	assert.Equal(t, []platform.Platform{platform.LinkedIn, platform.TikTok, platform.YouTube}, reg.Platforms())

	li, err := reg.Lookup(platform.LinkedIn)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com/oauth/linkedin/callback", li.RedirectURI)
	assert.Equal(t, "li-secret", li.ClientSecret)

	tt, err := reg.Lookup(platform.TikTok)
	require.NoError(t, err)
	assert.Equal(t, "https://sandbox.tiktok.example/token", tt.TokenURL)

	_, err = reg.Lookup(platform.Facebook)
	assert.ErrorIs(t, err, platform.ErrNotConfigured, "no client id, no registry row")
}

func TestValidate_Rejects(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	c.Server.PublicBaseURL = "/relative"
	c.Cache.Kind = "memcached"
	c.Platforms["myspace"] = PlatformConfig{ClientID: "x"}
	err = c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "public_base_url")
	assert.Contains(t, err.Error(), "cache.kind")
	assert.Contains(t, err.Error(), "myspace")
}

func TestValidate_ProdNeedsServiceToken(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	c, err := Load("")
	require.NoError(t, err)
	c.Server.PublicBaseURL = "https://app.example.com"

	err = c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service_token")

	t.Setenv("SERVICE_TOKEN", "s3cret")
	c, err = Load("")
	require.NoError(t, err)
	c.Server.PublicBaseURL = "https://app.example.com"
	require.NoError(t, c.Validate())
	assert.Equal(t, "s3cret", c.Server.ServiceToken)
}
