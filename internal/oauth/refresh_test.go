package oauth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialconnect/internal/platform"
)

func TestRefresh_KeepsRefreshTokenWhenNotRotated(t *testing.T) {
	fp := newFakeProvider(t)
	var form map[string]string
	fp.onToken(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		form = map[string]string{
			"grant_type":    r.PostForm.Get("grant_type"),
			"refresh_token": r.PostForm.Get("refresh_token"),
			"client_id":     r.PostForm.Get("client_id"),
		}
		writeJSON(w, 200, `{"access_token":"new-at","expires_in":3599}`)
	})
	clock := &fixedClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	svc := newServices(t, fp, clock)

	ts, err := svc.Refresh.Refresh(context.Background(), platform.YouTube, "old-rt")
	require.NoError(t, err)
	assert.Equal(t, "new-at", ts.AccessToken)
	assert.Equal(t, "old-rt", ts.RefreshToken)
	assert.Equal(t, clock.Now().Add(3599*time.Second), ts.ExpiresAt)
	assert.Equal(t, "refresh_token", form["grant_type"])
	assert.Equal(t, "old-rt", form["refresh_token"])
	assert.Equal(t, "cid-youtube", form["client_id"])
}

func TestRefresh_RotatedTokenWins(t *testing.T) {
	fp := newFakeProvider(t)
	var clientKey string
	fp.onToken(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		clientKey = r.PostForm.Get("client_key")
		writeJSON(w, 200, `{"access_token":"new-at","refresh_token":"new-rt","expires_in":86400,"open_id":"x"}`)
	})
	svc := newServices(t, fp, &fixedClock{now: time.Now()})

	ts, err := svc.Refresh.Refresh(context.Background(), platform.TikTok, "old-rt")
	require.NoError(t, err)
	assert.Equal(t, "new-rt", ts.RefreshToken)
	assert.Equal(t, "cid-tiktok", clientKey)
}

func TestRefresh_Rejected(t *testing.T) {
	fp := newFakeProvider(t)
	fp.onToken(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 400, `{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`)
	})
	svc := newServices(t, fp, &fixedClock{now: time.Now()})

	_, err := svc.Refresh.Refresh(context.Background(), platform.YouTube, "rt")
	assert.ErrorIs(t, err, ErrRefreshRejected)
	assert.False(t, Retryable(err))
	assert.Contains(t, DetailsOf(err), "invalid_grant")
}

func TestRefresh_InputErrors(t *testing.T) {
	fp := newFakeProvider(t)
	svc := newServices(t, fp, &fixedClock{now: time.Now()})
	ctx := context.Background()

	_, err := svc.Refresh.Refresh(ctx, platform.YouTube, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Refresh.Refresh(ctx, platform.Platform("orkut"), "rt")
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
	assert.Zero(t, fp.count("/youtube/token"))
}

func TestExtend_LongLivedPlatformsOnly(t *testing.T) {
	fp := newFakeProvider(t)
	fp.onToken(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("fb_exchange_token") == "revoked" {
			writeJSON(w, 400, `{"error":{"code":190}}`)
			return
		}
		writeJSON(w, 200, `{"access_token":"renewed","expires_in":5183944}`)
	})
	clock := &fixedClock{now: time.Now()}
	svc := newServices(t, fp, clock)
	ctx := context.Background()

	assert.True(t, svc.Refresh.CanExtend(platform.Instagram))
	assert.False(t, svc.Refresh.CanExtend(platform.LinkedIn))

	ts, err := svc.Refresh.Extend(ctx, platform.Instagram, "current")
	require.NoError(t, err)
	assert.Equal(t, "renewed", ts.AccessToken)
	assert.True(t, ts.LongLived)
	assert.Equal(t, clock.Now().Add(5183944*time.Second), ts.ExpiresAt)

	_, err = svc.Refresh.Extend(ctx, platform.Facebook, "revoked")
	assert.ErrorIs(t, err, ErrRefreshRejected)

	_, err = svc.Refresh.Extend(ctx, platform.LinkedIn, "tok")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
