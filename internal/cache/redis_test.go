package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dropDatabas3/socialconnect/internal/testutil"
)

func TestRedis_TakeIsAtomic(t *testing.T) {
	c := NewRedisFromClient(testutil.Redis(t), "test")
	ctx := context.Background()

	if err := c.Set(ctx, "state:1", "payload", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, err := c.Take(ctx, "state:1"); err == nil && v == "payload" {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()
	if winners.Load() != 1 {
		t.Fatalf("want exactly one Take to succeed, got %d", winners.Load())
	}
	if _, err := c.Get(ctx, "state:1"); !IsNotFound(err) {
		t.Fatalf("Get after Take: want ErrNotFound, got %v", err)
	}
}

func TestRedis_SetNXAndTTL(t *testing.T) {
	c := NewRedisFromClient(testutil.Redis(t), "test")
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "k", "a", 50*time.Millisecond)
	if err != nil || !ok {
		t.Fatalf("first SetNX = %v, %v", ok, err)
	}
	ok, _ = c.SetNX(ctx, "k", "b", time.Minute)
	if ok {
		t.Fatal("second SetNX must not overwrite")
	}
	time.Sleep(120 * time.Millisecond)
	if _, err := c.Get(ctx, "k"); !IsNotFound(err) {
		t.Fatalf("expired key: want ErrNotFound, got %v", err)
	}
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
