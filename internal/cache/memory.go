package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is an in-process Client backed by go-cache. Expired items are
// purged by the go-cache janitor every minute.
type Memory struct {
	prefix string
	c      *gocache.Cache
	// mu serializes Take/SetNX so the read and delete are one step.
	mu     sync.Mutex
	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemory builds a Memory client. defaultTTL applies when Set is called with a negative ttl.
func NewMemory(prefix string, defaultTTL time.Duration) *Memory {
	if defaultTTL <= 0 {
		defaultTTL = gocache.NoExpiration
	}
	return &Memory{
		prefix: prefix,
		c:      gocache.New(defaultTTL, time.Minute),
	}
}

func (m *Memory) key(k string) string {
	if m.prefix == "" {
		return k
	}
	return m.prefix + ":" + k
}

func ttlFor(ttl time.Duration) time.Duration {
	switch {
	case ttl == 0:
		return gocache.NoExpiration
	case ttl < 0:
		return gocache.DefaultExpiration
	default:
		return ttl
	}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	v, ok := m.c.Get(m.key(key))
	if !ok {
		m.misses.Add(1)
		return "", ErrNotFound
	}
	m.hits.Add(1)
	s, _ := v.(string)
	return s, nil
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.c.Set(m.key(key), value, ttlFor(ttl))
	return nil
}

func (m *Memory) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Add fails when a non-expired item exists.
	if err := m.c.Add(m.key(key), value, ttlFor(ttl)); err != nil {
		return false, nil
	}
	return true, nil
}

func (m *Memory) Take(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := m.key(key)
	v, ok := m.c.Get(k)
	if !ok {
		m.misses.Add(1)
		return "", ErrNotFound
	}
	m.c.Delete(k)
	m.hits.Add(1)
	s, _ := v.(string)
	return s, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.c.Delete(m.key(key))
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error {
	m.c.Flush()
	return nil
}

func (m *Memory) Stats(context.Context) (Stats, error) {
	return Stats{
		Driver: "memory",
		Keys:   int64(m.c.ItemCount()),
		Hits:   m.hits.Load(),
		Misses: m.misses.Load(),
	}, nil
}
