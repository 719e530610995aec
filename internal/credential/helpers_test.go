package credential

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dropDatabas3/socialconnect/internal/cache"
	"github.com/dropDatabas3/socialconnect/internal/oauth"
	"github.com/dropDatabas3/socialconnect/internal/platform"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// harness wires a Manager to real oauth services talking to a fake provider.
type harness struct {
	srv   *httptest.Server
	clock *testClock
	store *MemoryStore
	svc   oauth.Services
	mgr   *Manager

	mu    sync.Mutex
	token http.HandlerFunc
	me    http.HandlerFunc
}

func newHarness(t *testing.T, tune func(*Deps)) *harness {
	t.Helper()
	h := &harness{
		clock: &testClock{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)},
		store: NewMemoryStore(),
	}
	h.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		var fn http.HandlerFunc
		switch {
		case strings.HasSuffix(r.URL.Path, "/token"):
			fn = h.token
		case strings.HasSuffix(r.URL.Path, "/me"):
			fn = h.me
		}
		h.mu.Unlock()
		if fn == nil {
			http.Error(w, "unexpected call", http.StatusTeapot)
			return
		}
		fn(w, r)
	}))
	t.Cleanup(h.srv.Close)

	rows := make([]platform.Config, 0, len(platform.All))
	for _, p := range platform.All {
		rows = append(rows, platform.FromCatalog(p, "https://app",
			platform.Credentials{ClientID: "cid", ClientSecret: "secret"},
			platform.Overrides{
				TokenURL:    h.srv.URL + "/" + string(p) + "/token",
				ValidateURL: h.srv.URL + "/" + string(p) + "/me",
			}))
	}
	reg, err := platform.NewRegistry(rows...)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	h.svc = oauth.NewServices(oauth.Deps{
		Registry:   reg,
		Cache:      cache.NewMemory("test", 0),
		HTTPClient: h.srv.Client(),
		Clock:      h.clock.Now,
	})
	d := Deps{
		Store:         h.store,
		Registry:      reg,
		Exchanger:     h.svc.Exchange,
		Refresher:     h.svc.Refresh,
		Validator:     h.svc.Validator,
		RefreshWindow: 5 * time.Minute,
		RetryBase:     time.Millisecond,
		Clock:         h.clock.Now,
	}
	if tune != nil {
		tune(&d)
	}
	h.mgr = NewManager(d)
	return h
}

func (h *harness) onToken(fn http.HandlerFunc) {
	h.mu.Lock()
	h.token = fn
	h.mu.Unlock()
}

func (h *harness) onMe(fn http.HandlerFunc) {
	h.mu.Lock()
	h.me = fn
	h.mu.Unlock()
}

func (h *harness) seed(t *testing.T, c *Credential) {
	t.Helper()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = h.clock.Now().Add(-time.Hour)
		c.UpdatedAt = c.CreatedAt
	}
	if err := h.store.Upsert(context.Background(), c); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func (h *harness) stored(t *testing.T, userID string, p platform.Platform) *Credential {
	t.Helper()
	c, err := h.store.Get(context.Background(), userID, p)
	if err != nil {
		t.Fatalf("stored: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
