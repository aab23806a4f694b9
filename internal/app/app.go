package app

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/spimexpulse/config"
	"github.com/guttosm/spimexpulse/internal/api"
	"github.com/guttosm/spimexpulse/internal/ingestion"
	"github.com/guttosm/spimexpulse/internal/logger"
)

// InitializeApp sets up all application dependencies and returns
// a fully configured Gin router, a cleanup function for graceful shutdown,
// and any error encountered during initialization.
//
// Responsibilities:
//   - Connects to PostgreSQL using InitPostgres().
//   - Connects to the optional Redis cache (an unreachable cache is logged, not fatal).
//   - Wires repository, cache, fetcher, coordinator and services (NewServices).
//   - Configures the Gin router with all API routes.
//   - Registers health and readiness probes.
//   - Provides a cleanup function to close resources (DB and Redis connections).
//
// Returns:
//   - *gin.Engine: the configured Gin HTTP router.
//   - func(): cleanup function to be executed on shutdown.
//   - error: any initialization error that occurred.
func InitializeApp() (*gin.Engine, func(), error) {
	// Load global configuration
	cfg := config.AppConfig

	// Connect to PostgreSQL
	// indirection for unit testing
	db, err := postgresOpener(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	// Redis only backs the read cache and the rate limiter
	rdb, err := redisOpener(cfg)
	if err != nil {
		logger.L().Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, running without cache")
		rdb = nil
	}

	svcs := NewServices(cfg, db, rdb)

	// Initialize HTTP handler layer (business logic to HTTP mapping)
	handler := api.NewHandler(svcs.Results)
	ingest := api.NewIngestionHandler(svcs.Coordinator)

	// Setup Gin router with routes
	router := api.NewRouter(handler, ingest, api.RouterOptions{
		IngestTimeout:  cfg.Ingestion.Timeout,
		RateLimitStore: rdb,
	})

	// Register health and readiness probes
	healthHandler := api.NewHealthHandler(db.Ping, redisPing(rdb))
	healthHandler.Register(router)

	// Cleanup resources on shutdown
	cleanup := func() {
		if rdb != nil {
			_ = rdb.Close()
		}
		_ = db.Close()
	}

	return router, cleanup, nil
}

// InitializeIngestion wires the ingestion pipeline for command-line runs.
//
// Redis is optional here too: when it is reachable, a successful run invalidates the
// cached reads of the API instances sharing it.
func InitializeIngestion(cfg config.Config) (*ingestion.Coordinator, func(), error) {
	db, err := postgresOpener(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	rdb, err := redisOpener(cfg)
	if err != nil {
		logger.L().Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, cached reads will not be invalidated")
		rdb = nil
	}

	svcs := NewServices(cfg, db, rdb)

	cleanup := func() {
		if rdb != nil {
			_ = rdb.Close()
		}
		_ = db.Close()
	}
	return svcs.Coordinator, cleanup, nil
}
