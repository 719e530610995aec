package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/socialconnect/internal/config"
	"github.com/dropDatabas3/socialconnect/internal/observability/logger"
)

// version se setea con -ldflags "-X main.version=..."
var version = "dev"

type loader func() (*config.Config, error)

func main() {
	// .env es opcional; las variables del sistema tienen precedencia.
	_ = godotenv.Load()

	var cfgPath string

	root := &cobra.Command{
		Use:           "socialconnect",
		Short:         "Conexión OAuth con LinkedIn, Facebook, Instagram, Twitter, TikTok y YouTube",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", os.Getenv("CONFIG_PATH"), "Archivo YAML de configuración (env CONFIG_PATH)")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config inválida: %w", err)
		}
		logger.Init(logger.Config{
			Env:         cfg.App.Env,
			Level:       cfg.App.LogLevel,
			ServiceName: cfg.App.ServiceName,
			Version:     version,
		})
		return cfg, nil
	}

	root.AddCommand(
		serveCmd(load),
		migrateCmd(load),
		authorizeURLCmd(load),
		validateCmd(load),
		&cobra.Command{
			Use:   "version",
			Short: "Imprime la versión",
			Run:   func(*cobra.Command, []string) { fmt.Println(version) },
		},
	)

	err := root.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
