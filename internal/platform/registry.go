package platform

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned by Lookup for a platform without a row.
var ErrNotConfigured = errors.New("platform not configured")

// Registry holds exactly one Config per platform. It is built once and
// never mutated, so it is safe for concurrent use without locking.
type Registry struct {
	rows  map[Platform]Config
	order []Platform
}

// NewRegistry validates rows and builds the registry. Duplicate platforms are rejected.
func NewRegistry(rows ...Config) (*Registry, error) {
	r := &Registry{rows: make(map[Platform]Config, len(rows))}
	for _, row := range rows {
		if err := row.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.rows[row.Platform]; dup {
			return nil, fmt.Errorf("platform %s: configured twice", row.Platform)
		}
		r.rows[row.Platform] = row.clone()
	}
	for _, p := range All {
		if _, ok := r.rows[p]; ok {
			r.order = append(r.order, p)
		}
	}
	return r, nil
}

// Lookup returns a copy of the row for p.
func (r *Registry) Lookup(p Platform) (Config, error) {
	row, ok := r.rows[p]
	if !ok {
		return Config{}, fmt.Errorf("%w: %s", ErrNotConfigured, p)
	}
	return row.clone(), nil
}

// Platforms lists configured platforms in catalog order.
func (r *Registry) Platforms() []Platform {
	return append([]Platform(nil), r.order...)
}
