package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/socialconnect/internal/cache"
	"github.com/dropDatabas3/socialconnect/internal/config"
	"github.com/dropDatabas3/socialconnect/internal/oauth"
	"github.com/dropDatabas3/socialconnect/internal/platform"
)

// services arma los services OAuth sin store ni servidor HTTP.
func services(cfg *config.Config) (oauth.Services, func() error, error) {
	reg, err := cfg.BuildRegistry()
	if err != nil {
		return oauth.Services{}, nil, err
	}
	kv, err := cache.New(cache.Config{
		Driver:     cfg.Cache.Kind,
		Addr:       cfg.Cache.Redis.Addr,
		Password:   cfg.Cache.Redis.Password,
		DB:         cfg.Cache.Redis.DB,
		Prefix:     cfg.Cache.Redis.Prefix,
		DefaultTTL: cfg.OAuth.StateTTL,
	})
	if err != nil {
		return oauth.Services{}, nil, err
	}
	svcs := oauth.NewServices(oauth.Deps{
		Registry:   reg,
		Cache:      kv,
		HTTPClient: &http.Client{Timeout: cfg.OAuth.HTTPTimeout},
		StateTTL:   cfg.OAuth.StateTTL,
	})
	return svcs, kv.Close, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func authorizeURLCmd(load loader) *cobra.Command {
	var platformName, userID, state string
	cmd := &cobra.Command{
		Use:   "authorize-url",
		Short: "Genera la URL de autorización de una plataforma",
		Long: "Genera la URL de autorización y registra el state. Con cache memory el state\n" +
			"se pierde al salir; para completar el callback en el servidor usar cache redis.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			p, err := platform.Parse(platformName)
			if err != nil {
				return err
			}
			svcs, closeFn, err := services(cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			auth, err := svcs.AuthURL.Build(cmd.Context(), p, userID, state)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"authorize_url": auth.URL,
				"state":         auth.State,
				"expires_at":    auth.ExpiresAt,
			})
		},
	}
	cmd.Flags().StringVar(&platformName, "platform", "", "linkedin|facebook|instagram|twitter|tiktok|youtube")
	cmd.Flags().StringVar(&userID, "user", "", "ID del usuario que conecta la cuenta")
	cmd.Flags().StringVar(&state, "state", "", "State explícito (opcional)")
	_ = cmd.MarkFlagRequired("platform")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func validateCmd(load loader) *cobra.Command {
	var platformName, token string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Valida un access token contra el proveedor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			p, err := platform.Parse(platformName)
			if err != nil {
				return err
			}
			if token == "" {
				token = os.Getenv("ACCESS_TOKEN")
			}
			if token == "" {
				return errors.New("--token es requerido (o env ACCESS_TOKEN)")
			}
			svcs, closeFn, err := services(cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			var res oauth.Validation
			err = oauth.Retry(cmd.Context(), cfg.OAuth.RetryAttempts, cfg.OAuth.RetryBase, func(ctx context.Context) error {
				var verr error
				res, verr = svcs.Validator.Validate(ctx, p, token)
				return verr
			})
			if err != nil {
				return fmt.Errorf("validate %s: %w", p, err)
			}
			if err := printJSON(res); err != nil {
				return err
			}
			if !res.Valid {
				return fmt.Errorf("%s: token inválido", p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&platformName, "platform", "", "Plataforma del token")
	cmd.Flags().StringVar(&token, "token", "", "Access token (o env ACCESS_TOKEN)")
	_ = cmd.MarkFlagRequired("platform")
	return cmd
}
