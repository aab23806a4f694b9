package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/guttosm/spimexpulse/internal/logger"
)

func TestLevelFor(t *testing.T) {
	cases := []struct {
		status int
		want   zerolog.Level
	}{
		{http.StatusOK, zerolog.InfoLevel},
		{http.StatusNotModified, zerolog.InfoLevel},
		{http.StatusBadRequest, zerolog.WarnLevel},
		{http.StatusNotFound, zerolog.WarnLevel},
		{http.StatusTooManyRequests, zerolog.WarnLevel},
		{http.StatusInternalServerError, zerolog.ErrorLevel},
		{http.StatusServiceUnavailable, zerolog.ErrorLevel},
	}
	for _, c := range cases {
		if got := levelFor(c.status); got != c.want {
			t.Fatalf("levelFor(%d)=%v, want %v", c.status, got, c.want)
		}
	}
}

func TestRequestLogger_Basic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger.Init()
	router.Use(RequestID())
	router.Use(RequestLogger())
	router.GET("/api/v1/last_trading_dates", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/last_trading_dates?days=3", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", w.Code)
	}
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("missing X-Request-ID header")
	}
}

func TestRequestLogger_WithoutRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger.Init()
	router.Use(RequestLogger())
	router.POST("/echo", func(c *gin.Context) {
		b, _ := io.ReadAll(c.Request.Body)
		c.String(http.StatusOK, string(b))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("hello"))
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "hello" {
		t.Fatalf("status %d body %q", w.Code, w.Body.String())
	}
}
