package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	migrations "github.com/dropDatabas3/socialconnect/migrations/postgres"
)

// MigrationResult resume una corrida de migraciones.
type MigrationResult struct {
	From     int64
	To       int64
	Duration time.Duration
}

func provider(pool *pgxpool.Pool) (*goose.Provider, func() error, error) {
	db := stdlib.OpenDBFromPool(pool)
	p, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("pg: goose provider: %w", err)
	}
	return p, db.Close, nil
}

// Migrate aplica todas las migraciones pendientes.
func Migrate(ctx context.Context, pool *pgxpool.Pool) (MigrationResult, error) {
	start := time.Now()
	p, closeDB, err := provider(pool)
	if err != nil {
		return MigrationResult{}, err
	}
	defer closeDB()

	from, err := p.GetDBVersion(ctx)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("pg: db version: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return MigrationResult{}, fmt.Errorf("pg: migrate up: %w", err)
	}
	to, err := p.GetDBVersion(ctx)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("pg: db version: %w", err)
	}
	return MigrationResult{From: from, To: to, Duration: time.Since(start)}, nil
}

// Down revierte la última migración aplicada.
func Down(ctx context.Context, pool *pgxpool.Pool) (MigrationResult, error) {
	start := time.Now()
	p, closeDB, err := provider(pool)
	if err != nil {
		return MigrationResult{}, err
	}
	defer closeDB()

	from, err := p.GetDBVersion(ctx)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("pg: db version: %w", err)
	}
	if _, err := p.Down(ctx); err != nil {
		return MigrationResult{}, fmt.Errorf("pg: migrate down: %w", err)
	}
	to, err := p.GetDBVersion(ctx)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("pg: db version: %w", err)
	}
	return MigrationResult{From: from, To: to, Duration: time.Since(start)}, nil
}

// MigrationStatus es el estado de una migración.
type MigrationStatus struct {
	Version int64
	Source  string
	Applied bool
}

// Status lista las migraciones conocidas y si están aplicadas.
func Status(ctx context.Context, pool *pgxpool.Pool) ([]MigrationStatus, error) {
	p, closeDB, err := provider(pool)
	if err != nil {
		return nil, err
	}
	defer closeDB()

	st, err := p.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("pg: status: %w", err)
	}
	out := make([]MigrationStatus, 0, len(st))
	for _, s := range st {
		out = append(out, MigrationStatus{
			Version: s.Source.Version,
			Source:  s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}
	return out, nil
}
