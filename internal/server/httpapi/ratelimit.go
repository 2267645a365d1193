package httpapi

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/lootshop/internal/common"
	"github.com/dmitrijs2005/lootshop/internal/logging"
	"github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "lootshop:ratelimit:"

// Counter counts hits on key within a fixed window starting at the first hit.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, ttl time.Duration, err error)
}

// RedisCounter is a fixed-window Counter on INCR + EXPIRE.
type RedisCounter struct {
	client redis.Cmdable
}

func NewRedisCounter(c redis.Cmdable) *RedisCounter {
	return &RedisCounter{client: c}
}

func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		if err := c.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, err
		}
		return count, window, nil
	}

	ttl, err := c.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if ttl < 0 {
		// A key without expiry would block the client forever.
		if err := c.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, err
		}
		ttl = window
	}
	return count, ttl, nil
}

// RateLimit rejects a client IP after limit requests per window. It fails
// open: a counter error lets the request through.
func RateLimit(c Counter, limit int, window time.Duration, l logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			count, ttl, err := c.Incr(r.Context(), rateLimitKeyPrefix+ip, window)
			if err != nil {
				l.Warn(r.Context(), "rate limiter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			remaining := limit - int(count)
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if count > int64(limit) {
				wait := int((ttl + time.Second - 1) / time.Second)
				w.Header().Set("Retry-After", strconv.Itoa(wait))
				writeError(w, &common.RetryAfterError{Err: common.ErrRateLimited, Seconds: wait})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP is the host part of RemoteAddr; middleware.RealIP has already
// applied X-Forwarded-For / X-Real-IP.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
