package router

import (
	"time"

	"github.com/oksasatya/go-ddd-user-management/internal/container"
	handlers "github.com/oksasatya/go-ddd-user-management/internal/interface/http"
	"github.com/oksasatya/go-ddd-user-management/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-user-management/internal/router/modules"
)

// InitModules builds every module from the container and adds it to the
// registry. Call once during startup, before RegisterAll.
func InitModules(r *Registry, c *container.Container) {
	if limit := c.Config.RateLimitPerMinute; limit > 0 {
		r.Use(middleware.RateLimit(c.Redis, limit, time.Minute, middleware.KeyByIP(),
			middleware.AnyAllow(middleware.AllowPrivateIP(), middleware.AllowCIDRs(c.Config.RateLimitCIDRs()...))))
	}

	userHandler := handlers.NewUserHandler(c.Users, c.Logger)
	r.Add(modules.NewUserModule(userHandler))

	r.AddRoot(modules.NewDebugModule(modules.DebugDeps{
		AppName:    c.Config.AppName,
		Env:        c.Config.Env,
		Store:      c.Config.StoreDriver,
		Publishers: c.Publisher.Sinks(),
		Search:     c.Index != nil,
		ExposeVars: c.Config.DebugMetricsEnabled,
		Metrics:    c.Metrics,
		CountUsers: c.Users.CountUsers,
		StartedAt:  time.Now(),
	}))
}
