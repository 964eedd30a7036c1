package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// RealIPKey is the gin context key RealIP writes to.
const RealIPKey = "real_ip"

// DefaultIPHeaders are consulted in order when RealIP gets no headers.
var DefaultIPHeaders = []string{"CF-Connecting-IP", "X-Real-IP", "X-Forwarded-For"}

// RealIP stores the client address under RealIPKey. The first header holding
// a parseable IP wins; for list headers such as X-Forwarded-For the left-most
// entry is used. Without one it falls back to c.ClientIP().
func RealIP(headers ...string) gin.HandlerFunc {
	if len(headers) == 0 {
		headers = DefaultIPHeaders
	}
	return func(c *gin.Context) {
		c.Set(RealIPKey, resolveIP(c, headers))
		c.Next()
	}
}

func resolveIP(c *gin.Context, headers []string) string {
	for _, h := range headers {
		raw := c.GetHeader(h)
		if raw == "" {
			continue
		}
		first, _, _ := strings.Cut(raw, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	return c.ClientIP()
}

// ipFromCtx prefers the RealIP value, then gin's own view, then "unknown".
func ipFromCtx(c *gin.Context) string {
	if ip := c.GetString(RealIPKey); ip != "" {
		return ip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}
