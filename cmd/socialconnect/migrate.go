package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/socialconnect/internal/config"
	"github.com/dropDatabas3/socialconnect/internal/store/pg"
)

func migrateCmd(load loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migraciones de Postgres (up|down|status)",
	}

	withPool := func(ctx context.Context, fn func(*pgxpool.Pool) error) error {
		cfg, err := load()
		if err != nil {
			return err
		}
		if cfg.Storage.DSN == "" {
			return errors.New("falta storage.dsn (env STORAGE_DSN)")
		}
		pool, err := pg.Open(ctx, poolConfig(cfg))
		if err != nil {
			return err
		}
		defer pool.Close()
		return fn(pool)
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Aplica las migraciones pendientes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
				res, err := pg.Migrate(cmd.Context(), pool)
				if err != nil {
					return err
				}
				fmt.Printf("migrated %d -> %d in %s\n", res.From, res.To, res.Duration)
				return nil
			})
		},
	}
	down := &cobra.Command{
		Use:   "down",
		Short: "Revierte la última migración",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
				res, err := pg.Down(cmd.Context(), pool)
				if err != nil {
					return err
				}
				fmt.Printf("rolled back %d -> %d\n", res.From, res.To)
				return nil
			})
		},
	}
	status := &cobra.Command{
		Use:   "status",
		Short: "Lista las migraciones y si están aplicadas",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd.Context(), func(pool *pgxpool.Pool) error {
				rows, err := pg.Status(cmd.Context(), pool)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "VERSION\tAPPLIED\tSOURCE")
				for _, r := range rows {
					fmt.Fprintf(tw, "%d\t%t\t%s\n", r.Version, r.Applied, r.Source)
				}
				return tw.Flush()
			})
		},
	}

	cmd.AddCommand(up, down, status)
	return cmd
}

func poolConfig(cfg *config.Config) pg.PoolConfig {
	return pg.PoolConfig{
		DSN:             cfg.Storage.DSN,
		MaxConns:        cfg.Storage.Postgres.MaxConns,
		MinConns:        cfg.Storage.Postgres.MinConns,
		ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
	}
}
