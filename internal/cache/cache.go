// Package cache provides short-lived key/value storage with two backends:
// an in-process store for single-node deployments and tests, and Redis for
// deployments with more than one replica.
//
// The service keeps pending OAuth authorization requests here. Entries carry
// a TTL so abandoned flows expire on their own, and Take gives the atomic
// read-and-delete needed for single-use values.
package cache

import (
	"context"
	"errors"
	"time"
)

// Client is the cache contract.
type Client interface {
	// Get returns ErrNotFound when the key is absent or expired.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetNX stores value only if key is absent. It reports whether the value was stored.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Take atomically returns and deletes key. Of two concurrent callers at
	// most one receives the value; the other gets ErrNotFound.
	Take(ctx context.Context, key string) (string, error)

	Delete(ctx context.Context, key string) error

	Ping(ctx context.Context) error

	Close() error

	Stats(ctx context.Context) (Stats, error)
}

// Stats reports backend counters.
type Stats struct {
	Driver string
	Keys   int64
	Hits   int64
	Misses int64
}

// Config selects and configures a backend.
type Config struct {
	Driver     string // "memory" | "redis"
	Addr       string
	Password   string
	DB         int
	Prefix     string
	DefaultTTL time.Duration
}

// ErrNotFound is returned for missing or expired keys.
var ErrNotFound = errors.New("cache: key not found")

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// New builds a client for cfg.Driver. Unknown drivers fall back to memory.
func New(cfg Config) (Client, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedis(cfg)
	default:
		return NewMemory(cfg.Prefix, cfg.DefaultTTL), nil
	}
}
