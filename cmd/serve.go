package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gurukul-labs/gurukul/api"
	"github.com/gurukul-labs/gurukul/internal/app"
	"github.com/gurukul-labs/gurukul/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// runServe initializes the application and serves the JSON API until
// SIGINT or SIGTERM.
func runServe(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.Logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	srv, err := api.NewServer(api.ServerConfig{
		Logger:   a.Logger.With("component", "api"),
		Content:  a.Retrieval,
		DB:       a.Store,
		Degraded: a.Degraded,
		RateRPS:  cfg.RateLimitRPS,
		Burst:    cfg.RateLimitBurst,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	a.Logger.Info("starting HTTP API server", "version", AppVersion, "addr", cfg.ListenAddr)
	if err := srv.Run(ctx, cfg.ListenAddr); err != nil {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}
