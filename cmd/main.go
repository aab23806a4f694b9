package main

//
//  @title           spimexpulse API
//  @version         1.0
//  @description     SPIMEX oil bulletin ingestion & trading results service.
//  @termsOfService  https://github.com/guttosm/spimexpulse
//  @contact.name    API Support
//  @contact.url     https://github.com/guttosm/spimexpulse
//  @contact.email   support@example.com
//  @license.name    MIT
//  @license.url     https://opensource.org/licenses/MIT
//  @host            localhost:8080
//  @BasePath        /
//  @schemes         http
//
//  @tag.name        trading_results
//  @tag.description Queries over stored trading results
//
//  @tag.name        ingestion
//  @tag.description Bulletin ingestion
//
//  @tag.name        health
//  @tag.description Liveness and readiness probes

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guttosm/spimexpulse/config"
	_ "github.com/guttosm/spimexpulse/docs" // swagger docs
	"github.com/guttosm/spimexpulse/internal/app"
	"github.com/guttosm/spimexpulse/internal/domain/models"
	"github.com/guttosm/spimexpulse/internal/ingestion"
	"github.com/guttosm/spimexpulse/internal/logger"
)

// startServer initializes and starts the HTTP server in a separate goroutine.
//
// Parameters:
//   - router (http.Handler): The HTTP router (Gin Engine) configured with all routes.
//   - port (string): The port where the server will listen for incoming requests.
//   - writeTimeout (time.Duration): must exceed the longest route deadline (ingestion).
//
// Returns:
//   - *http.Server: The initialized HTTP server instance.
func startServer(router http.Handler, port string, writeTimeout time.Duration) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown gracefully terminates the HTTP server and cleans up resources
// when an OS interrupt signal (SIGINT, SIGTERM) is received.
//
// Parameters:
//   - ctx (context.Context): A context with timeout for graceful shutdown.
//   - server (*http.Server): The HTTP server instance to shut down.
//   - cleanup (func()): Cleanup callback to release resources (e.g., DB connections).
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Fatal().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// serverWriteTimeout leaves room for the ingestion route to answer after its own deadline.
func serverWriteTimeout(ingestTimeout time.Duration) time.Duration {
	const floor = 30 * time.Second
	if ingestTimeout <= 0 {
		return floor
	}
	return ingestTimeout + floor
}

// runIngestion performs one command-line ingestion run and logs its summary.
func runIngestion(ctx context.Context, ingestor *ingestion.Coordinator, rawTarget string, force bool) error {
	target, err := models.ParseDate(rawTarget)
	if err != nil {
		return err
	}

	sum, err := ingestor.Run(ctx, target, ingestion.RunOptions{Force: force})
	if err != nil {
		return err
	}

	logger.L().Info().
		Str("window_start", sum.WindowStart.Format(models.DateLayout)).
		Str("window_end", sum.WindowEnd.Format(models.DateLayout)).
		Int("dates_requested", sum.DatesRequested).
		Int("dates_skipped", sum.DatesSkipped).
		Int("bulletins_downloaded", sum.BulletinsDownloaded).
		Int("bulletins_missing", sum.BulletinsMissing).
		Int("records_inserted", sum.RecordsInserted).
		Msg("ingestion completed successfully")
	return nil
}

// main is the entry point of the spimexpulse application.
//
// Modes (selected via --mode flag):
//   - api:     Starts the REST API (reads plus the ingestion endpoint).
//   - ingest:  Downloads and stores every bulletin from today back to --target-date.
//   - migrate: Applies pending database migrations and exits.
//
// Flags:
//   - --mode:        Execution mode ("api", "ingest" or "migrate"). Default: "api".
//   - --target-date: Oldest date to ingest (YYYY-MM-DD), ingest mode only.
//   - --force:       Re-ingest dates that already have records.
//   - --parallel:    Concurrent downloads; overrides BULLETIN_MAX_PARALLEL when > 0.
//   - --port:        Port for the API server. Defaults to value from config (SERVER_PORT).
func main() {
	ctx := context.Background()

	// Load configuration from environment or .env file
	config.LoadConfig()

	// Initialize JSON logger
	logger.Init()

	// Parse CLI flags (override config defaults if provided)
	mode := flag.String("mode", "api", "Mode: api, ingest or migrate")
	targetDate := flag.String("target-date", "", "Oldest date to ingest (YYYY-MM-DD)")
	force := flag.Bool("force", false, "Re-ingest dates that already have records (replaces them)")
	parallel := flag.Int("parallel", 0, "Concurrent bulletin downloads (0 = BULLETIN_MAX_PARALLEL)")
	port := flag.String("port", config.AppConfig.Server.Port, "Port for API mode")
	flag.Parse()

	switch *mode {
	case "ingest":
		logger.L().Info().Str("target_date", *targetDate).Bool("force", *force).Msg("running ingestion")

		cfg := config.AppConfig
		if *parallel > 0 {
			cfg.Bulletin.MaxParallel = *parallel
		}

		coordinator, cleanup, err := app.InitializeIngestion(cfg)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("ingestion init error")
		}

		runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		if cfg.Ingestion.Timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(runCtx, cfg.Ingestion.Timeout)
			defer cancel()
		}

		err = runIngestion(runCtx, coordinator, *targetDate, *force)
		stop()
		cleanup()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("ingestion failed")
		}

	case "migrate":
		db, err := app.InitPostgres(config.AppConfig)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("db connect error")
		}
		defer func() { _ = db.Close() }()

		if err := app.RunMigrations(db); err != nil {
			logger.L().Fatal().Err(err).Msg("migration failed")
		}
		logger.L().Info().Msg("migrations applied")

	case "api":
		// API mode: start the HTTP server
		logger.L().Info().Msg("starting API server")

		router, cleanup, err := app.InitializeApp()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}

		server := startServer(router, *port, serverWriteTimeout(config.AppConfig.Ingestion.Timeout))
		gracefulShutdown(ctx, server, cleanup)

	default:
		logger.L().Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}
