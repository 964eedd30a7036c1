package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"request_id": c.GetString("request_id"),
			"real_ip":    c.GetString("real_ip"),
		})
	})
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	return r
}

func doGet(r *gin.Engine, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	r := newTestEngine(RequestIDMiddleware())

	w := doGet(r, "/ping", nil)
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Contains(t, w.Body.String(), generated)

	w = doGet(r, "/ping", map[string]string{RequestIDHeader: "abc-123"})
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestRealIP(t *testing.T) {
	r := newTestEngine(RealIP())
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "cloudflare", headers: map[string]string{"CF-Connecting-IP": "203.0.113.7", "X-Forwarded-For": "198.51.100.1"}, want: "203.0.113.7"},
		{name: "forwarded for", headers: map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.1"}, want: "198.51.100.1"},
		{name: "x real ip", headers: map[string]string{"X-Real-IP": "203.0.113.9", "X-Forwarded-For": "198.51.100.1"}, want: "203.0.113.9"},
		{name: "garbage falls back", headers: map[string]string{"X-Forwarded-For": "nope"}, want: "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGet(r, "/ping", tt.headers)
			assert.Contains(t, w.Body.String(), `"real_ip":"`+tt.want+`"`)
		})
	}
}

func TestRealIPCustomHeaders(t *testing.T) {
	r := newTestEngine(RealIP("X-Client-IP"))
	w := doGet(r, "/ping", map[string]string{"X-Client-IP": "203.0.113.4", "CF-Connecting-IP": "203.0.113.7"})
	assert.Contains(t, w.Body.String(), `"real_ip":"203.0.113.4"`)
}

func allowCtx(ip string) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set(RealIPKey, ip)
	return c
}

func TestAllowCIDRs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	allow := AllowCIDRs("203.0.113.0/24", "bogus")
	assert.True(t, allow(allowCtx("203.0.113.200")))
	assert.False(t, allow(allowCtx("198.51.100.1")))
	assert.False(t, allow(allowCtx("unknown")))

	either := AnyAllow(nil, AllowPrivateIP(), allow)
	assert.True(t, either(allowCtx("10.0.0.5")))
	assert.True(t, either(allowCtx("203.0.113.1")))
	assert.False(t, either(allowCtx("8.8.8.8")))
}

func TestAllowPrivateIP(t *testing.T) {
	allow := AllowPrivateIP()
	gin.SetMode(gin.TestMode)
	for ip, want := range map[string]bool{"10.1.2.3": true, "127.0.0.1": true, "8.8.8.8": false} {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Set("real_ip", ip)
		assert.Equal(t, want, allow(c), ip)
	}
}

func TestAccessLog(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	r := newTestEngine(RequestIDMiddleware(), AccessLog(logger))

	doGet(r, "/ping?x=1", nil)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, "/ping?x=1", hook.LastEntry().Data["path"])
	assert.Equal(t, http.StatusOK, hook.LastEntry().Data["status"])
	assert.NotEmpty(t, hook.LastEntry().Data["request_id"])

	doGet(r, "/boom", nil)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestRateLimitDisabledWithoutRedis(t *testing.T) {
	r := newTestEngine(RateLimit(nil, 1, time.Minute, KeyByIP(), nil))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doGet(r, "/ping", nil).Code)
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	r := newTestEngine(RateLimit(rdb, 1, time.Minute, KeyByIPAndPath(), nil))
	for i := 0; i < 3; i++ {
		w := doGet(r, "/ping", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

type countingLimiter struct {
	hits map[string]int
	err  error
}

func (l *countingLimiter) Hit(_ context.Context, key string, window time.Duration) (Window, error) {
	if l.err != nil {
		return Window{}, l.err
	}
	l.hits[key]++
	return Window{Count: l.hits[key], Reset: window / 2}, nil
}

func TestRateLimitWith(t *testing.T) {
	l := &countingLimiter{hits: map[string]int{}}
	r := newTestEngine(RealIP(), RateLimitWith(l, 2, time.Minute, KeyByIP(), AllowCIDRs("203.0.113.0/24")))

	for i, want := range []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests} {
		w := doGet(r, "/ping", map[string]string{"X-Forwarded-For": "198.51.100.1"})
		assert.Equal(t, want, w.Code, "request %d", i+1)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "30", w.Header().Get("X-RateLimit-Reset"))
		if want == http.StatusTooManyRequests {
			assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
			assert.Equal(t, "30", w.Header().Get("Retry-After"))
			assert.Contains(t, w.Body.String(), "rate limit exceeded")
		}
	}
	assert.Equal(t, 3, l.hits["rl:ip:198.51.100.1"])

	// allow-listed and other callers have their own budget
	assert.Equal(t, http.StatusOK, doGet(r, "/ping", map[string]string{"X-Forwarded-For": "203.0.113.5"}).Code)
	assert.Equal(t, http.StatusOK, doGet(r, "/ping", map[string]string{"X-Forwarded-For": "198.51.100.2"}).Code)
	assert.NotContains(t, l.hits, "rl:ip:203.0.113.5")
}

func TestRateLimitWithFailingLimiter(t *testing.T) {
	r := newTestEngine(RateLimitWith(&countingLimiter{err: errors.New("down")}, 1, time.Minute, KeyByIP(), nil))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doGet(r, "/ping", nil).Code)
	}
}
