package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/spimexpulse/internal/domain/dto"
	"github.com/guttosm/spimexpulse/internal/logger"
)

// ErrorHandler logs the errors attached to the context by the handlers and, when nothing has
// been written yet, answers 500 with a standardized error body.
//
// Usage:
//
//	router.Use(middleware.ErrorHandler)
//	...
//	_ = c.Error(err) // in a handler
func ErrorHandler(c *gin.Context) {
	c.Next()

	if len(c.Errors) == 0 {
		return
	}

	log := logger.Ctx(c.Request.Context())
	for _, e := range c.Errors {
		log.Error().
			Str("path", c.Request.URL.Path).
			Err(e.Err).
			Msg("request error")
	}

	if c.Writer.Written() {
		return
	}
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("Internal server error", c.Errors.Last().Err))
}

// AbortWithError stops the chain and writes a dto.ErrorResponse with the given status.
// err is attached to the context so ErrorHandler logs it; it may be nil.
func AbortWithError(c *gin.Context, status int, message string, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(message, err))
}
