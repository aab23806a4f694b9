package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/guttosm/spimexpulse/internal/logger"
)

const (
	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"
)

// RequestID is a Gin middleware that assigns an identifier to each incoming HTTP request.
//
// Behavior:
//   - Reuses the caller's X-Request-ID when it is a valid UUID, otherwise generates a v4 UUID.
//   - Stores it in the Gin context under the key "request_id".
//   - Attaches a request-scoped logger to the request context (see logger.Ctx), so the
//     ingestion pipeline logs under the id of the request that triggered it.
//   - Adds it to the response headers as "X-Request-ID".
//
// Usage:
//
//	router := gin.New()
//	router.Use(middleware.RequestID())
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		c.Set(RequestIDKey, id)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))
		c.Writer.Header().Set(RequestIDHeader, id)

		c.Next()
	}
}
