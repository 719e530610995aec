package oauth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dropDatabas3/socialconnect/internal/cache"
	"github.com/dropDatabas3/socialconnect/internal/platform"
)

// fakeProvider serves /{platform}/token and /{platform}/me for every platform.
type fakeProvider struct {
	t   *testing.T
	srv *httptest.Server

	mu    sync.Mutex
	token http.HandlerFunc
	me    http.HandlerFunc
	calls map[string]int
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	fp := &fakeProvider{t: t, calls: map[string]int{}}
	fp.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 2 {
			http.NotFound(w, r)
			return
		}
		fp.mu.Lock()
		fp.calls[r.URL.Path]++
		var h http.HandlerFunc
		switch parts[1] {
		case "token":
			h = fp.token
		case "me":
			h = fp.me
		}
		fp.mu.Unlock()
		if h == nil {
			http.Error(w, "no handler", http.StatusNotImplemented)
			return
		}
		h(w, r)
	}))
	t.Cleanup(fp.srv.Close)
	return fp
}

func (fp *fakeProvider) onToken(h http.HandlerFunc) {
	fp.mu.Lock()
	fp.token = h
	fp.mu.Unlock()
}

func (fp *fakeProvider) onMe(h http.HandlerFunc) {
	fp.mu.Lock()
	fp.me = h
	fp.mu.Unlock()
}

func (fp *fakeProvider) count(path string) int {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.calls[path]
}

func (fp *fakeProvider) registry(t *testing.T) *platform.Registry {
	t.Helper()
	rows := make([]platform.Config, 0, len(platform.All))
	for _, p := range platform.All {
		rows = append(rows, platform.FromCatalog(p, "https://app",
			platform.Credentials{ClientID: "cid-" + string(p), ClientSecret: "secret-" + string(p)},
			platform.Overrides{
				AuthorizeURL: fp.srv.URL + "/" + string(p) + "/authorize",
				TokenURL:     fp.srv.URL + "/" + string(p) + "/token",
				ValidateURL:  fp.srv.URL + "/" + string(p) + "/me",
			}))
	}
	reg, err := platform.NewRegistry(rows...)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newServices(t *testing.T, fp *fakeProvider, clock *fixedClock) Services {
	t.Helper()
	return NewServices(Deps{
		Registry:   fp.registry(t),
		Cache:      cache.NewMemory("test", 0),
		HTTPClient: fp.srv.Client(),
		StateTTL:   10 * time.Minute,
		Clock:      clock.Now,
	})
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
