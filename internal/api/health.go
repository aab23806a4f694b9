package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler provides liveness and readiness endpoints for the service.
//
// Responsibilities:
//   - /healthz: Basic liveness probe (always returns 200 OK).
//   - /readyz: Readiness probe (depends on database connectivity; the cache is reported
//     but optional).
type HealthHandler struct {
	dbPing    func() error // Function to check database connectivity
	cachePing func() error // nil when no cache is configured
}

// NewHealthHandler constructs a HealthHandler.
//
// Parameters:
//   - dbPing: checks that PostgreSQL is reachable (typically db.Ping).
//   - cachePing: checks that Redis is reachable; nil when caching is disabled.
func NewHealthHandler(dbPing, cachePing func() error) *HealthHandler {
	return &HealthHandler{dbPing: dbPing, cachePing: cachePing}
}

// Register mounts the health and readiness endpoints into the provided Gin router.
//
// Routes:
//   - GET /healthz: Always returns 200 OK.
//   - GET /readyz: 503 when the database is unreachable; 200 otherwise, with
//     "cache": "degraded" when Redis is configured but unreachable.
func (h *HealthHandler) Register(r *gin.Engine) {
	// Liveness probe (just checks if the service is up)
	// @Summary      Liveness probe
	// @Description  Always returns OK if the service is running
	// @Tags         health
	// @Produce      json
	// @Success      200  {object}  map[string]string
	// @Router       /healthz [get]
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness probe (checks DB and cache connections)
	// @Summary      Readiness probe
	// @Description  Returns ready if the service dependencies (DB) are reachable
	// @Tags         health
	// @Produce      json
	// @Success      200  {object}  map[string]string
	// @Failure      503  {object}  map[string]string
	// @Router       /readyz [get]
	r.GET("/readyz", func(c *gin.Context) {
		if h.dbPing != nil && h.dbPing() != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		body := gin.H{"status": "ready"}
		if h.cachePing != nil {
			body["cache"] = "ok"
			if h.cachePing() != nil {
				body["cache"] = "degraded"
			}
		}
		c.JSON(http.StatusOK, body)
	})
}
