package credential

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialconnect/internal/oauth"
	"github.com/dropDatabas3/socialconnect/internal/platform"
)

func TestHasValid_FacebookInsideWindowIsExtended(t *testing.T) {
	h := newHarness(t, nil)
	var calls atomic.Int32
	h.onToken(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "fb_exchange_token", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "fb-current", r.URL.Query().Get("fb_exchange_token"))
		writeJSON(w, 200, `{"access_token":"fb-renewed","token_type":"bearer","expires_in":5184000}`)
	})
	before := h.clock.Now().Add(2 * time.Minute)
	h.seed(t, &Credential{UserID: "u1", Platform: platform.Facebook, AccessToken: "fb-current", ExpiresAt: &before})

	ok, err := h.mgr.HasValidCredentials(context.Background(), "u1", platform.Facebook)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 1, calls.Load())

	c := h.stored(t, "u1", platform.Facebook)
	assert.Equal(t, "fb-renewed", c.AccessToken)
	require.NotNil(t, c.ExpiresAt)
	assert.True(t, c.ExpiresAt.After(before), "expiresAt %v should move past %v", c.ExpiresAt, before)
}

func TestGetCredentials_RefreshKeepsStoredRefreshToken(t *testing.T) {
	h := newHarness(t, nil)
	h.onToken(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		assert.Equal(t, "yt-refresh", r.PostForm.Get("refresh_token"))
		writeJSON(w, 200, `{"access_token":"yt-2","expires_in":3599,"token_type":"Bearer"}`)
	})
	exp := h.clock.Now().Add(time.Minute)
	h.seed(t, &Credential{UserID: "u1", Platform: platform.YouTube, AccessToken: "yt-1", RefreshToken: "yt-refresh", ExpiresAt: &exp})

	c, err := h.mgr.GetCredentials(context.Background(), "u1", platform.YouTube)
	require.NoError(t, err)
	assert.Equal(t, "yt-2", c.AccessToken)
	assert.Equal(t, "yt-refresh", c.RefreshToken)
	assert.Equal(t, "yt-refresh", h.stored(t, "u1", platform.YouTube).RefreshToken)
}

func TestGetCredentials_ConcurrentCallersShareOneRefresh(t *testing.T) {
	h := newHarness(t, nil)
	var calls atomic.Int32
	release := make(chan struct{})
	h.onToken(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		writeJSON(w, 200, `{"access_token":"tw-2","refresh_token":"tw-rt-2","expires_in":7200}`)
	})
	exp := h.clock.Now().Add(time.Minute)
	h.seed(t, &Credential{UserID: "u1", Platform: platform.Twitter, AccessToken: "tw-1", RefreshToken: "tw-rt-1", ExpiresAt: &exp})

	const n = 12
	var wg sync.WaitGroup
	results := make([]bool, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.mgr.HasValidCredentials(context.Background(), "u1", platform.Twitter)
		}(i)
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load(), "exactly one upstream refresh")
	for i := 0; i < n; i++ {
		assert.NoError(t, errs[i])
		assert.True(t, results[i])
	}
	c := h.stored(t, "u1", platform.Twitter)
	assert.Equal(t, "tw-2", c.AccessToken)
	assert.Equal(t, "tw-rt-2", c.RefreshToken)
}

func TestRefreshRejected_RevokesCredential(t *testing.T) {
	h := newHarness(t, nil)
	var calls atomic.Int32
	h.onToken(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, 400, `{"error":"invalid_grant"}`)
	})
	exp := h.clock.Now().Add(time.Minute)
	h.seed(t, &Credential{UserID: "u1", Platform: platform.LinkedIn, AccessToken: "li", RefreshToken: "li-rt", ExpiresAt: &exp})
	ctx := context.Background()

	_, err := h.mgr.GetCredentials(ctx, "u1", platform.LinkedIn)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReconnectRequired)
	assert.ErrorIs(t, err, oauth.ErrRefreshRejected)
	assert.NotNil(t, h.stored(t, "u1", platform.LinkedIn).RevokedAt)

	ok, err := h.mgr.HasValidCredentials(ctx, "u1", platform.LinkedIn)
	require.NoError(t, err)
	assert.False(t, ok, "a revoked credential is never reported valid")

	_, err = h.mgr.GetCredentials(ctx, "u1", platform.LinkedIn)
	assert.ErrorIs(t, err, ErrReconnectRequired)
	assert.EqualValues(t, 1, calls.Load(), "rejections are not retried")

	v, err := h.mgr.Status(ctx, "u1", platform.LinkedIn, false)
	require.NoError(t, err)
	assert.Equal(t, StatusRevoked, v.Status)
	assert.True(t, v.ReconnectRequired)
}

func TestRefreshUnavailable(t *testing.T) {
	h := newHarness(t, nil)
	h.onToken(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 503, `down`)
	})
	ctx := context.Background()

	soon := h.clock.Now().Add(time.Minute)
	h.seed(t, &Credential{UserID: "u1", Platform: platform.YouTube, AccessToken: "yt", RefreshToken: "rt", ExpiresAt: &soon})
	ok, err := h.mgr.HasValidCredentials(ctx, "u1", platform.YouTube)
	require.NoError(t, err)
	assert.True(t, ok, "token inside the window is still usable while the provider is down")

	past := h.clock.Now().Add(-time.Minute)
	h.seed(t, &Credential{UserID: "u2", Platform: platform.YouTube, AccessToken: "yt", RefreshToken: "rt", ExpiresAt: &past})
	ok, err = h.mgr.HasValidCredentials(ctx, "u2", platform.YouTube)
	assert.False(t, ok)
	assert.ErrorIs(t, err, oauth.ErrProviderUnavailable)
	assert.Nil(t, h.stored(t, "u2", platform.YouTube).RevokedAt, "outages never revoke")
}

func TestRefreshTimeoutIsUnavailable(t *testing.T) {
	h := newHarness(t, func(d *Deps) { d.RefreshTimeout = 50 * time.Millisecond })
	h.onToken(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		writeJSON(w, 200, `{"access_token":"late"}`)
	})
	past := h.clock.Now().Add(-time.Minute)
	h.seed(t, &Credential{UserID: "u1", Platform: platform.TikTok, AccessToken: "tt", RefreshToken: "rt", ExpiresAt: &past})

	_, err := h.mgr.GetCredentials(context.Background(), "u1", platform.TikTok)
	require.Error(t, err)
	assert.ErrorIs(t, err, oauth.ErrProviderUnavailable)
	assert.False(t, errors.Is(err, ErrReconnectRequired))
	assert.Nil(t, h.stored(t, "u1", platform.TikTok).RevokedAt)
}

func TestExpiredWithoutRefreshTokenNeedsReconnect(t *testing.T) {
	h := newHarness(t, nil)
	past := h.clock.Now().Add(-time.Hour)
	h.seed(t, &Credential{UserID: "u1", Platform: platform.Instagram, AccessToken: "ig", ExpiresAt: &past})

	_, err := h.mgr.GetCredentials(context.Background(), "u1", platform.Instagram)
	assert.ErrorIs(t, err, ErrReconnectRequired)
}

func TestGetCredentials_LookupErrors(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.mgr.GetCredentials(ctx, "nobody", platform.LinkedIn)
	assert.ErrorIs(t, err, ErrNotConnected)
	_, err = h.mgr.GetCredentials(ctx, "u", platform.Platform("friendster"))
	assert.ErrorIs(t, err, oauth.ErrUnsupportedPlatform)

	ok, err := h.mgr.HasValidCredentials(ctx, "nobody", platform.LinkedIn)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConnect_StoresAndClearsRevocation(t *testing.T) {
	h := newHarness(t, nil)
	h.onToken(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"access_token":"li-new","refresh_token":"li-rt-new","expires_in":5184000,"scope":"openid profile"}`)
	})
	ctx := context.Background()
	revoked := h.clock.Now().Add(-time.Hour)
	created := h.clock.Now().Add(-48 * time.Hour)
	h.seed(t, &Credential{UserID: "u1", Platform: platform.LinkedIn, AccessToken: "old", RevokedAt: &revoked, CreatedAt: created, UpdatedAt: created})

	auth, err := h.svc.AuthURL.Build(ctx, platform.LinkedIn, "u1", "")
	require.NoError(t, err)
	res, err := h.mgr.Connect(ctx, oauth.ExchangeRequest{Platform: platform.LinkedIn, Code: "code", State: auth.State})
	require.NoError(t, err)
	assert.Equal(t, "li-new", res.Token.AccessToken)
	assert.False(t, res.Degraded)

	c := h.stored(t, "u1", platform.LinkedIn)
	assert.Nil(t, c.RevokedAt)
	assert.Equal(t, "li-rt-new", c.RefreshToken)
	assert.Equal(t, "openid profile", c.Scope)
	assert.Equal(t, created, c.CreatedAt)

	ok, err := h.mgr.HasValidCredentials(ctx, "u1", platform.LinkedIn)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConnect_ExchangeFailureStoresNothing(t *testing.T) {
	h := newHarness(t, nil)
	h.onToken(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 400, `{"error":"invalid_grant"}`)
	})
	ctx := context.Background()

	auth, err := h.svc.AuthURL.Build(ctx, platform.YouTube, "u1", "")
	require.NoError(t, err)
	_, err = h.mgr.Connect(ctx, oauth.ExchangeRequest{Platform: platform.YouTube, Code: "bad", State: auth.State})
	assert.ErrorIs(t, err, oauth.ErrExchangeRejected)

	_, err = h.store.Get(ctx, "u1", platform.YouTube)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatus_Validate(t *testing.T) {
	h := newHarness(t, nil)
	var meCalls atomic.Int32
	h.onMe(func(w http.ResponseWriter, r *http.Request) {
		meCalls.Add(1)
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			writeJSON(w, 200, `{"sub":"123","name":"Grace"}`)
		case "Bearer flaky":
			writeJSON(w, 502, `bad gateway`)
		default:
			writeJSON(w, 401, `{"error":"invalid_token"}`)
		}
	})
	ctx := context.Background()
	exp := h.clock.Now().Add(time.Hour)
	h.seed(t, &Credential{UserID: "good", Platform: platform.YouTube, AccessToken: "good", ExpiresAt: &exp})
	h.seed(t, &Credential{UserID: "dead", Platform: platform.YouTube, AccessToken: "dead", ExpiresAt: &exp})
	h.seed(t, &Credential{UserID: "flaky", Platform: platform.YouTube, AccessToken: "flaky", ExpiresAt: &exp})

	v, err := h.mgr.Status(ctx, "good", platform.YouTube, true)
	require.NoError(t, err)
	assert.Equal(t, StatusConnected, v.Status)
	require.NotNil(t, v.Profile)
	assert.Equal(t, "123", v.Profile.ID)

	v, err = h.mgr.Status(ctx, "dead", platform.YouTube, true)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, v.Status)
	assert.True(t, v.ReconnectRequired)
	assert.NotNil(t, h.stored(t, "dead", platform.YouTube).InvalidatedAt)

	before := meCalls.Load()
	v, err = h.mgr.Status(ctx, "flaky", platform.YouTube, true)
	require.NoError(t, err)
	assert.Equal(t, StatusError, v.Status)
	assert.Equal(t, StatusConnected, v.PriorStatus)
	assert.EqualValues(t, 3, meCalls.Load()-before, "unavailable validations are retried")
	assert.Nil(t, h.stored(t, "flaky", platform.YouTube).InvalidatedAt, "error state is not persisted")

	v, err = h.mgr.Status(ctx, "flaky", platform.YouTube, false)
	require.NoError(t, err)
	assert.Equal(t, StatusConnected, v.Status)
}

func TestStatuses_OnePerPlatformAndRevoke(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.seed(t, &Credential{UserID: "u1", Platform: platform.TikTok, AccessToken: "tt"})

	views, err := h.mgr.Statuses(ctx, "u1", false)
	require.NoError(t, err)
	require.Len(t, views, len(platform.All))
	for _, v := range views {
		want := StatusNotConnected
		if v.Platform == platform.TikTok {
			want = StatusConnected
		}
		assert.Equal(t, want, v.Status, string(v.Platform))
	}

	require.NoError(t, h.mgr.RevokeCredentials(ctx, "u1", platform.TikTok))
	_, err = h.mgr.GetCredentials(ctx, "u1", platform.TikTok)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestStatus_RefreshDuringValidationKeepsRotatedTokens(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.onToken(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, `{"access_token":"tw-2","refresh_token":"tw-rt-2","expires_in":7200}`)
	})
	h.onMe(func(w http.ResponseWriter, r *http.Request) {
		// A consumer renews the token while the provider is still answering
		// for the old one.
		c, err := h.mgr.GetCredentials(ctx, "u1", platform.Twitter)
		assert.NoError(t, err)
		if c != nil {
			assert.Equal(t, "tw-2", c.AccessToken)
		}
		writeJSON(w, 401, `{"title":"Unauthorized"}`)
	})
	exp := h.clock.Now().Add(time.Minute)
	h.seed(t, &Credential{UserID: "u1", Platform: platform.Twitter, AccessToken: "tw-1", RefreshToken: "tw-rt-1", ExpiresAt: &exp})

	v, err := h.mgr.Status(ctx, "u1", platform.Twitter, true)
	require.NoError(t, err)
	assert.Equal(t, StatusConnected, v.Status)
	assert.False(t, v.ReconnectRequired)

	c := h.stored(t, "u1", platform.Twitter)
	assert.Equal(t, "tw-2", c.AccessToken)
	assert.Equal(t, "tw-rt-2", c.RefreshToken)
	assert.Nil(t, c.InvalidatedAt)
}

func TestRefresh_InvalidationDuringRefreshIsSuperseded(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.onMe(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 401, `{"title":"Unauthorized"}`)
	})
	h.onToken(func(w http.ResponseWriter, r *http.Request) {
		v, err := h.mgr.Status(ctx, "u1", platform.Twitter, true)
		assert.NoError(t, err)
		assert.Equal(t, StatusExpired, v.Status)
		writeJSON(w, 200, `{"access_token":"tw-2","refresh_token":"tw-rt-2","expires_in":7200}`)
	})
	exp := h.clock.Now().Add(time.Minute)
	h.seed(t, &Credential{UserID: "u1", Platform: platform.Twitter, AccessToken: "tw-1", RefreshToken: "tw-rt-1", ExpiresAt: &exp})

	c, err := h.mgr.GetCredentials(ctx, "u1", platform.Twitter)
	require.NoError(t, err)
	assert.Equal(t, "tw-2", c.AccessToken)

	stored := h.stored(t, "u1", platform.Twitter)
	assert.Equal(t, "tw-2", stored.AccessToken)
	assert.Equal(t, "tw-rt-2", stored.RefreshToken)
	assert.Nil(t, stored.InvalidatedAt)
}

func TestRevokeDuringRefreshStaysRevoked(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.onToken(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, h.mgr.RevokeCredentials(ctx, "u1", platform.Twitter))
		writeJSON(w, 200, `{"access_token":"tw-2","refresh_token":"tw-rt-2","expires_in":7200}`)
	})
	exp := h.clock.Now().Add(time.Minute)
	h.seed(t, &Credential{UserID: "u1", Platform: platform.Twitter, AccessToken: "tw-1", RefreshToken: "tw-rt-1", ExpiresAt: &exp})

	_, err := h.mgr.GetCredentials(ctx, "u1", platform.Twitter)
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = h.store.Get(ctx, "u1", platform.Twitter)
	assert.ErrorIs(t, err, ErrNotFound, "a disconnected credential is not re-created")

	ok, err := h.mgr.HasValidCredentials(ctx, "u1", platform.Twitter)
	require.NoError(t, err)
	assert.False(t, ok)
}
