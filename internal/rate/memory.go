package rate

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter es la ventana fija en proceso; sirve cuando no hay Redis.
type MemoryLimiter struct {
	c      *gocache.Cache
	Max    int64
	Window time.Duration
	Clock  func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryLimiter{
		c:      gocache.New(window, 2*window),
		Max:    int64(max),
		Window: window,
		Clock:  time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.Clock().UTC()
	winStart := now.Truncate(l.Window)
	k := fmt.Sprintf("%s:%d", key, winStart.Unix())
	ttl := winStart.Add(l.Window).Sub(now)

	// Add falla si la clave existe; en ese caso se incrementa.
	hits := int64(1)
	if err := l.c.Add(k, hits, ttl); err != nil {
		n, err := l.c.IncrementInt64(k, 1)
		if err != nil {
			// expiró entre Add e Increment: nueva ventana
			l.c.Set(k, hits, ttl)
		} else {
			hits = n
		}
	}

	remaining := l.Max - hits
	if remaining < 0 {
		remaining = 0
	}
	res := Result{
		Allowed:     hits <= l.Max,
		Limit:       l.Max,
		Remaining:   remaining,
		CurrentHits: hits,
		WindowTTL:   ttl,
	}
	if !res.Allowed {
		res.RetryAfter = ttl
	}
	return res, nil
}
