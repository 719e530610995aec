package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemory_TakeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("t", time.Minute)

	if err := m.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := m.Take(ctx, "k")
	if err != nil || got != "v" {
		t.Fatalf("first Take = %q, %v", got, err)
	}
	if _, err := m.Take(ctx, "k"); !IsNotFound(err) {
		t.Fatalf("second Take err = %v, want ErrNotFound", err)
	}
}

func TestMemory_TakeConcurrentOnlyOneWinner(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("", 0)
	_ = m.Set(ctx, "state", "payload", time.Minute)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Take(ctx, "state"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Fatalf("winners = %d, want 1", wins.Load())
	}
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("", 0)
	_ = m.Set(ctx, "k", "v", 20*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	if _, err := m.Get(ctx, "k"); !IsNotFound(err) {
		t.Fatalf("expected expired key, got %v", err)
	}
}

func TestMemory_SetNX(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("", 0)
	ok, _ := m.SetNX(ctx, "k", "a", time.Minute)
	if !ok {
		t.Fatal("first SetNX should store")
	}
	ok, _ = m.SetNX(ctx, "k", "b", time.Minute)
	if ok {
		t.Fatal("second SetNX should not overwrite")
	}
	v, _ := m.Get(ctx, "k")
	if v != "a" {
		t.Fatalf("value = %q, want a", v)
	}
}
