package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/socialconnect/internal/http/server"
	"github.com/dropDatabas3/socialconnect/internal/observability/logger"
)

func serveCmd(load loader) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := server.Build(ctx, cfg, version)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					logger.L().Warn("cleanup error", logger.Err(err))
				}
			}()

			logger.L().Info("socialconnect starting",
				logger.String("addr", cfg.Server.Addr),
				logger.String("public_base_url", cfg.Server.PublicBaseURL),
			)
			return server.Serve(ctx, cfg.Server.Addr, app.Handler, cfg.Server.ShutdownTimeout)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Dirección de escucha (pisa server.addr)")
	return cmd
}
