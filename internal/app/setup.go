package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/gurukul-labs/gurukul/db"
	"github.com/gurukul-labs/gurukul/internal/azureai"
	"github.com/gurukul-labs/gurukul/internal/config"
	"github.com/gurukul-labs/gurukul/internal/log"
	"github.com/gurukul-labs/gurukul/internal/observability"
	"github.com/gurukul-labs/gurukul/internal/retrieval"
	"github.com/gurukul-labs/gurukul/internal/store"
	"github.com/gurukul-labs/gurukul/internal/textsplit"
)

// Setup creates and initializes the application: logger, tracing, database
// (with migrations), AI client, and the retrieval system. On failure,
// everything already initialized is released before returning.
func Setup(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	logger := provideLogger(cfg)
	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	otelShutdown, err := observability.Setup(ctx, cfg.Tracing, logger)
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}
	a.otelShutdown = otelShutdown

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	a.Store = store.New(pool, logger.With("component", "store"))
	a.AI = azureai.New(azureai.Config{
		Endpoint:        cfg.AzureEndpoint,
		APIKey:          cfg.AzureAPIKey,
		APIVersion:      cfg.AzureAPIVersion,
		EmbedDeployment: cfg.EmbedDeployment,
		ChatDeployment:  cfg.AnswerDeployment,
	}, logger.With("component", "azureai"))

	chunker := textsplit.New(cfg.ChunkMaxChars, cfg.ChunkOverlap)
	a.Retrieval = retrieval.NewSystem(a.Store, a.AI, a.AI, chunker, logger)

	logger.Info("application initialized",
		"listen_addr", cfg.ListenAddr,
		"embed_deployment", cfg.EmbedDeployment,
		"answer_deployment", cfg.AnswerDeployment)

	return a, nil
}

// provideLogger builds the process logger from configuration.
func provideLogger(cfg *config.Config) log.Logger {
	return log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel), JSON: cfg.LogJSON})
}

// provideDBPool runs migrations and creates the PostgreSQL connection pool.
// pgvector types are registered on every new connection so embeddings scan
// directly into pgvector.Vector values.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute
	poolCfg.AfterConnect = pgxvec.RegisterTypes

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}
