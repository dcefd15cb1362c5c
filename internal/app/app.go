// Package app provides application initialization and dependency wiring.
//
// App is the container that holds every long-lived component: configuration,
// logger, database pool, AI client, and the retrieval system. Setup builds
// it; Close releases it in reverse order.
package app

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gurukul-labs/gurukul/internal/azureai"
	"github.com/gurukul-labs/gurukul/internal/config"
	"github.com/gurukul-labs/gurukul/internal/log"
	"github.com/gurukul-labs/gurukul/internal/retrieval"
	"github.com/gurukul-labs/gurukul/internal/store"
)

// App is the core application container.
type App struct {
	Config    *config.Config
	Logger    log.Logger
	DBPool    *pgxpool.Pool
	Store     *store.Postgres
	AI        *azureai.Client
	Retrieval *retrieval.System

	otelShutdown func(context.Context) error
}

// Close releases all resources in reverse initialization order. Safe to call
// after a partially failed Setup.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.DBPool != nil {
		a.DBPool.Close()
	}

	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.otelShutdown(ctx); err != nil && a.Logger != nil {
			a.Logger.Warn("shutting down tracer provider", "error", err)
		}
	}

	return nil
}

// Degraded reports whether the retrieval system is running without its
// vector index; surfaced by the readiness probe.
func (a *App) Degraded() bool {
	if a.Retrieval == nil {
		return false
	}
	return a.Retrieval.Degraded()
}
