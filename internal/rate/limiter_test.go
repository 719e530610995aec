package rate

import (
	"context"
	"testing"
	"time"

	"github.com/dropDatabas3/socialconnect/internal/testutil"
)

func TestRedisLimiter_FixedWindow(t *testing.T) {
	client := testutil.Redis(t)
	ctx := context.Background()

	now := time.Date(2026, 2, 1, 10, 0, 5, 0, time.UTC)
	l := NewRedisLimiter(client, "rl:test:", 3, time.Minute)
	l.Clock = func() time.Time { return now }

	for i := 1; i <= 3; i++ {
		res, err := l.Allow(ctx, "203.0.113.7")
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if !res.Allowed || res.CurrentHits != int64(i) || res.Remaining != int64(3-i) {
			t.Fatalf("hit %d: %+v", i, res)
		}
	}

	res, err := l.Allow(ctx, "203.0.113.7")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if res.Allowed || res.RetryAfter <= 0 || res.RetryAfter > time.Minute {
		t.Fatalf("fourth hit should be limited with a retry hint: %+v", res)
	}

	other, _ := l.Allow(ctx, "198.51.100.1")
	if !other.Allowed {
		t.Fatal("keys are limited independently")
	}

	now = now.Add(time.Minute)
	next, _ := l.Allow(ctx, "203.0.113.7")
	if !next.Allowed || next.CurrentHits != 1 {
		t.Fatalf("new window should start fresh: %+v", next)
	}
}
