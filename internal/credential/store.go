package credential

import (
	"context"
	"errors"
	"sync"

	"github.com/dropDatabas3/socialconnect/internal/platform"
)

var (
	// ErrNotFound is returned by Store.Get when no record exists.
	ErrNotFound = errors.New("credential not found")
	// ErrConflict: the record changed since it was read.
	ErrConflict = errors.New("credential changed concurrently")
)

// Store persists credentials keyed by (UserID, Platform).
type Store interface {
	Get(ctx context.Context, userID string, p platform.Platform) (*Credential, error)
	// Upsert inserts or replaces the record for (c.UserID, c.Platform) and
	// sets c.Version to the stored version.
	Upsert(ctx context.Context, c *Credential) error
	// Update replaces an existing record only if it is still at c.Version,
	// then bumps c.Version. A missing record yields ErrNotFound and a newer
	// one ErrConflict; Update never re-creates a deleted record.
	Update(ctx context.Context, c *Credential) error
	// Delete removes the record. Deleting a missing record is not an error.
	Delete(ctx context.Context, userID string, p platform.Platform) error
	Ping(ctx context.Context) error
}

type memKey struct {
	user string
	p    platform.Platform
}

// MemoryStore keeps credentials in process. Used when no database is
// configured and in tests.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[memKey]*Credential
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[memKey]*Credential)}
}

func (s *MemoryStore) Get(_ context.Context, userID string, p platform.Platform) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.rows[memKey{userID, p}]
	if !ok {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

func (s *MemoryStore) Upsert(_ context.Context, c *Credential) error {
	if c == nil || c.UserID == "" || c.Platform == "" {
		return errors.New("credential: user id and platform required")
	}
	k := memKey{c.UserID, c.Platform}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Version = 1
	if prev, ok := s.rows[k]; ok {
		c.Version = prev.Version + 1
	}
	s.rows[k] = c.Clone()
	return nil
}

func (s *MemoryStore) Update(_ context.Context, c *Credential) error {
	if c == nil || c.UserID == "" || c.Platform == "" {
		return errors.New("credential: user id and platform required")
	}
	k := memKey{c.UserID, c.Platform}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.rows[k]
	if !ok {
		return ErrNotFound
	}
	if prev.Version != c.Version {
		return ErrConflict
	}
	c.Version++
	s.rows[k] = c.Clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID string, p platform.Platform) error {
	s.mu.Lock()
	delete(s.rows, memKey{userID, p})
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
