package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/guttosm/spimexpulse/internal/logger"
)

// RequestLogger is a Gin middleware that logs one line per request: method, route, status,
// latency and client IP. The request id comes from the request-scoped logger set by RequestID().
//
// Level follows the status: 5xx → error, 4xx → warn, otherwise info.
//
// Usage:
//
//	router := gin.New()
//	router.Use(middleware.RequestID(), middleware.RequestLogger())
//
// Example log output:
//
//	{"level":"info","service":"spimexpulse","request_id":"123e4567-e89b-12d3-a456-426614174000","method":"GET","route":"/api/v1/last_trading_dates","status":200,"latency_ms":15}
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = path
		}

		logger.Ctx(c.Request.Context()).WithLevel(levelFor(status)).
			Str("method", method).
			Str("route", route).
			Str("query", c.Request.URL.RawQuery).
			Int("status", status).
			Int64("latency_ms", time.Since(start).Milliseconds()).
			Str("client_ip", c.ClientIP()).
			Msg("http_request")
	}
}

func levelFor(status int) zerolog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zerolog.ErrorLevel
	case status >= http.StatusBadRequest:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}
