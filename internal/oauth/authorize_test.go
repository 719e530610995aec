package oauth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/dropDatabas3/socialconnect/internal/platform"
)

func TestAuthURL_EveryPlatformCarriesRequiredParams(t *testing.T) {
	fp := newFakeProvider(t)
	svc := newServices(t, fp, &fixedClock{now: time.Now()})
	ctx := context.Background()

	for _, p := range platform.All {
		t.Run(string(p), func(t *testing.T) {
			auth, err := svc.AuthURL.Build(ctx, p, "user-1", "")
			require.NoError(t, err)

			u, err := url.Parse(auth.URL)
			require.NoError(t, err)
			q := u.Query()
			assert.Equal(t, "cid-"+string(p), q.Get("client_id"))
			assert.Equal(t, "https://app/oauth/"+string(p)+"/callback", q.Get("redirect_uri"))
			assert.Equal(t, auth.State, q.Get("state"))
			assert.Equal(t, "code", q.Get("response_type"))
			assert.True(t, strings.HasPrefix(auth.State, string(p)+"_user-1_"), "state %q", auth.State)

			scopes := strings.Fields(q.Get("scope"))
			for _, s := range platform.Catalog[p].Scopes {
				assert.Contains(t, scopes, s)
			}
		})
	}
}

func TestAuthURL_PlatformQuirks(t *testing.T) {
	fp := newFakeProvider(t)
	svc := newServices(t, fp, &fixedClock{now: time.Now()})
	ctx := context.Background()

	yt, err := svc.AuthURL.Build(ctx, platform.YouTube, "u", "")
	require.NoError(t, err)
	q := mustQuery(t, yt.URL)
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))

	tt, err := svc.AuthURL.Build(ctx, platform.TikTok, "u", "")
	require.NoError(t, err)
	assert.Equal(t, "cid-tiktok", mustQuery(t, tt.URL).Get("client_key"))

	tw, err := svc.AuthURL.Build(ctx, platform.Twitter, "u", "")
	require.NoError(t, err)
	q = mustQuery(t, tw.URL)
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))

	li, err := svc.AuthURL.Build(ctx, platform.LinkedIn, "u", "")
	require.NoError(t, err)
	q = mustQuery(t, li.URL)
	assert.Empty(t, q.Get("code_challenge"))
	assert.Empty(t, q.Get("access_type"))
}

func TestAuthURL_CallerStateIsKept(t *testing.T) {
	fp := newFakeProvider(t)
	svc := newServices(t, fp, &fixedClock{now: time.Now()})

	auth, err := svc.AuthURL.Build(context.Background(), platform.LinkedIn, "u", "my-state")
	require.NoError(t, err)
	assert.Equal(t, "my-state", auth.State)

	_, err = svc.AuthURL.Build(context.Background(), platform.LinkedIn, "u", "my-state")
	assert.ErrorIs(t, err, ErrInvalidState, "a pending state cannot be reused")
}

func TestAuthURL_Rejections(t *testing.T) {
	fp := newFakeProvider(t)
	svc := newServices(t, fp, &fixedClock{now: time.Now()})
	ctx := context.Background()

	_, err := svc.AuthURL.Build(ctx, platform.Platform("myspace"), "u", "")
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)

	_, err = svc.AuthURL.Build(ctx, platform.LinkedIn, "  ", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.False(t, errors.Is(err, ErrUnsupportedPlatform))
}

func TestPKCE_ChallengeMatchesVerifier(t *testing.T) {
	pair := newPKCE()
	assert.GreaterOrEqual(t, len(pair.Verifier), 43)
	assert.Equal(t, oauth2.S256ChallengeFromVerifier(pair.Verifier), pair.Challenge)
	assert.NotEqual(t, pair.Verifier, newPKCE().Verifier)
}

func mustQuery(t *testing.T, raw string) url.Values {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u.Query()
}
