package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/guttosm/spimexpulse/internal/middleware"
)

const (
	defaultReadTimeout   = 10 * time.Second
	defaultIngestTimeout = 5 * time.Minute
)

// RouterOptions tunes NewRouter. Zero values fall back to the defaults.
//
// Fields:
//   - ReadTimeout: deadline of the read endpoints (default 10s).
//   - IngestTimeout: deadline of the ingestion endpoint (default 5m).
//   - RateLimitStore: Redis client sharing rate-limit counters across instances (nil = in-memory).
type RouterOptions struct {
	ReadTimeout    time.Duration
	IngestTimeout  time.Duration
	RateLimitStore *redis.Client
}

// NewRouter creates a Gin engine with routes configured.
// It receives handler instances with all business logic already injected.
//
// Responsibilities:
//   - Registers global middlewares (RequestID, Logger, Recovery, ErrorHandler, RateLimiter).
//   - Adds request timeout handling (reads and ingestion have separate deadlines).
//   - Mounts Swagger docs (/swagger/*any).
//   - Configures API v1 routes (/api/v1).
//
// Note:
//   - Health and readiness endpoints (/healthz, /readyz) are registered in app.InitializeApp().
func NewRouter(handler *Handler, ingest *IngestionHandler, opts RouterOptions) *gin.Engine {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = defaultReadTimeout
	}
	if opts.IngestTimeout <= 0 {
		opts.IngestTimeout = defaultIngestTimeout
	}

	router := gin.New()

	// ─── Middlewares ───────────────────────────────
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.RecoveryMiddleware(),
		middleware.ErrorHandler,
		middleware.RateLimiter(opts.RateLimitStore),
	)

	// ─── Swagger ──────────────────────────────────
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// ─── API v1 ───────────────────────────────────
	v1 := router.Group("/api/v1")
	{
		reads := v1.Group("", middleware.Timeout(opts.ReadTimeout))
		reads.GET("/trading_results_in_period", handler.GetTradingResultsInPeriod)
		reads.GET("/last_trading_results", handler.GetLastTradingResults)
		reads.GET("/last_trading_dates", handler.GetLastTradingDates)

		if ingest != nil {
			v1.GET("/", middleware.Timeout(opts.IngestTimeout), ingest.Ingest)
		}
	}

	return router
}
