package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-ddd-user-management/pkg/response"
)

// KeyFunc builds a rate-limit key from the request.
type KeyFunc func(c *gin.Context) string

// AllowFunc reports whether a request bypasses the limit.
type AllowFunc func(c *gin.Context) bool

func KeyByIP() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:ip:" + ipFromCtx(c)
	}
}

// KeyByIPAndPath limits each route separately. The route template is used
// when gin matched one, so /users/1 and /users/2 share a bucket.
func KeyByIPAndPath() KeyFunc {
	return func(c *gin.Context) string {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		return "rl:path:" + path + ":ip:" + ipFromCtx(c)
	}
}

// Window is the state of one key after a hit.
type Window struct {
	Count int
	Reset time.Duration
}

// Limiter counts hits per key in fixed windows.
type Limiter interface {
	Hit(ctx context.Context, key string, window time.Duration) (Window, error)
}

// INCR, PEXPIRE on the first hit only, then report the remaining TTL.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

type RedisLimiter struct {
	rdb *redis.Client
}

func NewRedisLimiter(rdb *redis.Client) *RedisLimiter { return &RedisLimiter{rdb: rdb} }

func (l *RedisLimiter) Hit(ctx context.Context, key string, window time.Duration) (Window, error) {
	res, err := fixedWindowScript.Run(ctx, l.rdb, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Window{}, err
	}
	if len(res) != 2 {
		return Window{}, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}
	w := Window{Count: int(res[0])}
	if res[1] > 0 {
		w.Reset = time.Duration(res[1]) * time.Millisecond
	}
	return w, nil
}

// RateLimit limits with Redis. A nil client disables it.
func RateLimit(rdb *redis.Client, maxReq int, window time.Duration, keyFn KeyFunc, allow AllowFunc) gin.HandlerFunc {
	if rdb == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return RateLimitWith(NewRedisLimiter(rdb), maxReq, window, keyFn, allow)
}

// RateLimitWith applies a fixed-window limit per key and sets the
// X-RateLimit-* headers. OPTIONS requests and allowed callers skip it, and a
// failing limiter lets the request through.
func RateLimitWith(l Limiter, maxReq int, window time.Duration, keyFn KeyFunc, allow AllowFunc) gin.HandlerFunc {
	if l == nil || maxReq <= 0 || window <= 0 || keyFn == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || (allow != nil && allow(c)) {
			c.Next()
			return
		}

		w, err := l.Hit(c.Request.Context(), keyFn(c), window)
		if err != nil {
			c.Next()
			return
		}

		reset := strconv.Itoa(int(math.Ceil(w.Reset.Seconds())))
		c.Header("X-RateLimit-Limit", strconv.Itoa(maxReq))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(maxReq-w.Count, 0)))
		c.Header("X-RateLimit-Reset", reset)

		if w.Count > maxReq {
			if w.Reset > 0 {
				c.Header("Retry-After", reset)
			}
			response.Error[any](c, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}
		c.Next()
	}
}
