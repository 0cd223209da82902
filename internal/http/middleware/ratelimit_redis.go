package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"hunter_trials/internal/logger"
	"hunter_trials/internal/metrics"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// InitRedisRateLimiter initializes a shared Redis client used by the middleware.
// Provide addr (host:port), password and db index. If connection fails, redisClient remains nil
// and middleware will act as fail-open.
func InitRedisRateLimiter(addr, password string, db int) {
	if addr == "" {
		return
	}
	redisClient = redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// on ping failure, disable redis client to keep server available
		logger.Warn("redis unavailable, rate limits fall back", "addr", addr, "error", err)
		redisClient = nil
		return
	}
	logger.Info("redis rate limiter connected", "addr", addr)
}

// RedisEnabled reports whether a Redis client is configured
func RedisEnabled() bool { return redisClient != nil }

// PingRedis checks the shared client. It is a no-op without Redis.
func PingRedis(ctx context.Context) error {
	if redisClient == nil {
		return nil
	}
	return redisClient.Ping(ctx).Err()
}

// RedisRateLimit implements a simple fixed-window rate limiter using Redis INCR/EXPIRE.
// key format: rl:<window_seconds>:<identifier>
func RedisRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := c.ClientIP()
		key := "rl:" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + ident
		if !allow(c, key, maxRequests, window, "ip", "rate limit exceeded") {
			return
		}
		c.Next()
	}
}

// SessionRateLimit limits trial actions per session (not per IP) using Redis.
// Requires JWT middleware to run before this.
func SessionRateLimit(maxActions int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetString(SessionIDKey)
		if sessionID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		key := "session_rl:" + sessionID + ":" + strconv.FormatInt(int64(window.Seconds()), 10)
		c.Header("X-SessionRateLimit-Limit", strconv.Itoa(maxActions))
		if !allow(c, key, maxActions, window, "session", "session rate limit exceeded") {
			return
		}
		c.Next()
	}
}

// allow counts the request and aborts it when over the limit. Without Redis,
// or on a Redis error, the request is let through.
func allow(c *gin.Context, key string, limit int, window time.Duration, scope, msg string) bool {
	if redisClient == nil {
		return true
	}
	ctx := c.Request.Context()

	val, err := redisClient.Incr(ctx, key).Result()
	if err != nil {
		// on Redis error, fail-open (allow) but set header
		c.Header("X-RateLimit-Error", "redis-error")
		return true
	}

	if val == 1 {
		// first increment, set expiry
		redisClient.Expire(ctx, key, window)
	}

	if val > int64(limit) {
		metrics.RLBlocked.WithLabelValues(scope, c.FullPath()).Inc()
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":       msg,
			"retry_after": int(window.Seconds()),
		})
		return false
	}

	metrics.RLRequests.WithLabelValues(scope, c.FullPath()).Inc()
	return true
}
