package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/guttosm/spimexpulse/internal/logger"
)

// client represents a rate-limited client with request count and last seen timestamp.
type client struct {
	lastSeen time.Time
	count    int
}

// In-memory store used when no Redis client is configured.
var (
	clients         = make(map[string]*client)
	window          = time.Minute
	limit           = 60
	rateLimiterLock sync.Mutex
)

const rateLimitKeyPrefix = "ratelimit:"

// RateLimiter limits the number of requests per client IP.
//
// Behavior:
//   - Allows up to `limit` requests per `window` (default: 60 requests per 1 minute).
//   - Identifies clients by their IP address.
//   - With a Redis client the counters are shared by every instance (fixed window per IP);
//     when Redis fails the request is let through.
//   - Without Redis (rdb == nil) counters live in process memory.
//   - If limit exceeded, returns HTTP 429 Too Many Requests.
//
// Usage:
//
//	router := gin.New()
//	router.Use(middleware.RateLimiter(rdb))
//
// Response when limit exceeded:
//
//	HTTP/1.1 429 Too Many Requests
//	{
//	    "error": "rate limit exceeded"
//	}
func RateLimiter(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		var exceeded bool
		if rdb != nil {
			exceeded = exceededShared(c, rdb, ip)
		} else {
			exceeded = exceededLocal(ip, time.Now())
		}

		if exceeded {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		c.Next()
	}
}

func exceededLocal(ip string, now time.Time) bool {
	rateLimiterLock.Lock()
	defer rateLimiterLock.Unlock()

	cl, ok := clients[ip]
	if !ok || now.Sub(cl.lastSeen) > window {
		cl = &client{lastSeen: now, count: 1}
		clients[ip] = cl
	} else {
		cl.count++
		cl.lastSeen = now
	}
	return cl.count > limit
}

func exceededShared(c *gin.Context, rdb *redis.Client, ip string) bool {
	ctx := c.Request.Context()
	key := rateLimitKeyPrefix + ip

	n, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("client_ip", ip).Msg("rate limiter unavailable")
		return false
	}
	if n == 1 {
		// first hit opens the window
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("client_ip", ip).Msg("rate limiter expire failed")
		}
	}
	return n > int64(limit)
}
