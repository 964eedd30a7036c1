package modules

import (
	"context"
	"expvar"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-user-management/internal/infrastructure/metrics"
	"github.com/oksasatya/go-ddd-user-management/pkg/response"
)

// DebugDeps is what the operational endpoints report on.
type DebugDeps struct {
	AppName    string
	Env        string
	Store      string
	Publishers []string
	Search     bool
	ExposeVars bool
	Metrics    *metrics.Metrics
	CountUsers func(ctx context.Context) (int, error)
	StartedAt  time.Time
}

type DebugModule struct {
	deps DebugDeps
}

func NewDebugModule(deps DebugDeps) *DebugModule { return &DebugModule{deps: deps} }

func (m *DebugModule) Name() string { return "debug" }

// Register mounts the probes. They are meant for the engine root, outside the
// API prefix and its rate limit.
func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rg.GET("/healthz", m.health)
	rg.GET("/debug/info", m.info)
	if m.deps.ExposeVars {
		rg.GET("/debug/vars", gin.WrapH(expvar.Handler()))
	}
	if m.deps.Metrics != nil {
		rg.GET("/metrics", gin.WrapH(m.deps.Metrics.Handler()))
	}
}

func (m *DebugModule) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (m *DebugModule) info(c *gin.Context) {
	info := gin.H{
		"app":        m.deps.AppName,
		"env":        m.deps.Env,
		"store":      m.deps.Store,
		"publishers": m.deps.Publishers,
		"search":     m.deps.Search,
		"go_version": runtime.Version(),
		"goroutines": runtime.NumGoroutine(),
		"uptime":     time.Since(m.deps.StartedAt).Round(time.Second).String(),
	}
	if m.deps.CountUsers != nil {
		if n, err := m.deps.CountUsers(c.Request.Context()); err == nil {
			info["users"] = n
		}
	}
	response.Success(c, http.StatusOK, info, "debug info", nil)
}
