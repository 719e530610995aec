package oauth

import (
	"context"
	"math/rand/v2"
	"time"
)

// Retry runs fn up to attempts times with jittered exponential backoff
// starting at base. Only ErrProviderUnavailable is retried; any other error,
// and the last unavailable one, is returned as is.
func Retry(ctx context.Context, attempts int, base time.Duration, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil || !Retryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		d := base << i
		d += time.Duration(rand.Int64N(int64(d)/2 + 1))
		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
	return err
}
