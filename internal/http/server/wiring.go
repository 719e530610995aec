// Package server arma el handler HTTP con todas sus dependencias.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/socialconnect/internal/cache"
	"github.com/dropDatabas3/socialconnect/internal/config"
	"github.com/dropDatabas3/socialconnect/internal/credential"
	credctrl "github.com/dropDatabas3/socialconnect/internal/http/controllers/credentials"
	healthctrl "github.com/dropDatabas3/socialconnect/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/socialconnect/internal/http/controllers/oauth"
	"github.com/dropDatabas3/socialconnect/internal/http/router"
	"github.com/dropDatabas3/socialconnect/internal/metrics"
	"github.com/dropDatabas3/socialconnect/internal/oauth"
	"github.com/dropDatabas3/socialconnect/internal/observability/logger"
	"github.com/dropDatabas3/socialconnect/internal/rate"
	"github.com/dropDatabas3/socialconnect/internal/security/secretbox"
	"github.com/dropDatabas3/socialconnect/internal/store/pg"
)

// App es el resultado del wiring: el handler y lo que hay que cerrar al salir.
type App struct {
	Handler http.Handler
	Manager *credential.Manager
	OAuth   oauth.Services

	closers []func() error
}

// Close libera pool y cache en orden inverso de creación.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Build crea cache, store, services y router desde cfg.
func Build(ctx context.Context, cfg *config.Config, version string) (*App, error) {
	log := logger.L().With(logger.Layer("wiring"))
	app := &App{}
	fail := func(err error) (*App, error) {
		_ = app.Close()
		return nil, err
	}

	registry, err := cfg.BuildRegistry()
	if err != nil {
		return nil, fmt.Errorf("platform registry: %w", err)
	}
	if len(registry.Platforms()) == 0 {
		log.Warn("no platform has a client id; every /oauth request will be rejected")
	}

	// 1. Cache (pending authorization requests)
	var (
		kv      cache.Client
		limiter rate.Limiter
	)
	switch cfg.Cache.Kind {
	case "redis":
		rc, err := cache.NewRedis(cache.Config{
			Driver:   "redis",
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix,
		})
		if err != nil {
			return fail(err)
		}
		kv = rc
		if cfg.Rate.Enabled {
			limiter = rate.NewRedisLimiter(rc.Raw(), cfg.Cache.Redis.Prefix+":rl:", cfg.Rate.Limit, cfg.Rate.Window)
		}
	default:
		kv = cache.NewMemory(cfg.Cache.Redis.Prefix, cfg.OAuth.StateTTL)
		if cfg.Rate.Enabled {
			limiter = rate.NewMemoryLimiter(cfg.Rate.Limit, cfg.Rate.Window)
		}
	}
	app.closers = append(app.closers, kv.Close)

	// 2. Credential store
	var (
		store credential.Store
		pool  *pgxpool.Pool
	)
	if cfg.Storage.DSN == "" {
		log.Warn("storage.dsn empty, credentials are kept in memory")
		store = credential.NewMemoryStore()
	} else {
		pool, err = pg.Open(ctx, pg.PoolConfig{
			DSN:             cfg.Storage.DSN,
			MaxConns:        cfg.Storage.Postgres.MaxConns,
			MinConns:        cfg.Storage.Postgres.MinConns,
			ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
		})
		if err != nil {
			return fail(err)
		}
		app.closers = append(app.closers, func() error { pool.Close(); return nil })

		if cfg.Storage.AutoMigrate {
			res, err := pg.Migrate(ctx, pool)
			if err != nil {
				return fail(fmt.Errorf("migrate: %w", err))
			}
			log.Info("migrations applied", logger.Int("from", int(res.From)), logger.Int("to", int(res.To)))
		}

		var box *secretbox.Box
		if cfg.Storage.SecretboxKey != "" {
			if box, err = secretbox.New(cfg.Storage.SecretboxKey); err != nil {
				return fail(err)
			}
		} else {
			log.Warn("secretbox key not set, tokens are stored unsealed")
		}
		store = credential.NewPGStore(pool, box)
	}

	if err := metrics.Register(nil, pool); err != nil {
		return fail(fmt.Errorf("metrics: %w", err))
	}

	// 3. Services
	app.OAuth = oauth.NewServices(oauth.Deps{
		Registry:          registry,
		Cache:             kv,
		HTTPClient:        &http.Client{Timeout: cfg.OAuth.HTTPTimeout},
		StateTTL:          cfg.OAuth.StateTTL,
		ValidateCacheTTL:  cfg.OAuth.ValidateCacheTTL,
		ValidateCacheSize: cfg.OAuth.ValidateCacheSize,
	})
	app.Manager = credential.NewManager(credential.Deps{
		Store:          store,
		Registry:       registry,
		Exchanger:      app.OAuth.Exchange,
		Refresher:      app.OAuth.Refresh,
		Validator:      app.OAuth.Validator,
		RefreshWindow:  cfg.OAuth.RefreshWindow,
		RefreshTimeout: cfg.OAuth.RefreshTimeout,
		RetryAttempts:  cfg.OAuth.RetryAttempts,
		RetryBase:      cfg.OAuth.RetryBase,
	})

	// 4. Controllers + router
	app.Handler = router.New(router.Deps{
		OAuth: oauthctrl.NewControllers(oauthctrl.Deps{
			Registry:  registry,
			AuthURL:   app.OAuth.AuthURL,
			Connector: app.Manager,
			Refresher: app.OAuth.Refresh,
			Validator: app.OAuth.Validator,
		}),
		Credentials: credctrl.NewController(app.Manager),
		Health: healthctrl.NewHealthController(version, map[string]healthctrl.Pinger{
			"store": app.Manager,
			"cache": kv,
		}),
		Limiter:      limiter,
		ServiceToken: cfg.Server.ServiceToken,
	})
	if cfg.Server.ServiceToken == "" {
		log.Warn("server.service_token empty, /credentials is open; keep it on an internal network")
	}

	log.Info("wiring complete",
		logger.Int("platforms", len(registry.Platforms())),
		logger.String("cache", cfg.Cache.Kind),
		logger.Bool("postgres", pool != nil),
		logger.Bool("rate_limit", limiter != nil),
	)
	return app, nil
}
