package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-ddd-user-management/internal/interface/http"
)

// UserModule wires the user HTTP handlers into routes under the given group
// (usually /api). /admin routes are operator-only and expected to be
// protected upstream.
type UserModule struct {
	Handler *handlers.UserHandler
}

func NewUserModule(h *handlers.UserHandler) *UserModule {
	return &UserModule{Handler: h}
}

func (m *UserModule) Name() string { return "users" }

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	{
		users.POST("", m.Handler.Create)
		users.GET("", m.Handler.List)
		users.GET("/search", m.Handler.Search)
		users.GET("/:id", m.Handler.Get)
		users.PUT("/:id", m.Handler.Update)
		users.DELETE("/:id", m.Handler.Delete)
		users.PATCH("/:id/activate", m.Handler.Activate)
		users.PATCH("/:id/deactivate", m.Handler.Deactivate)
		users.PUT("/:id/password", m.Handler.ChangePassword)
	}

	admin := rg.Group("/admin")
	admin.DELETE("/users/:id", m.Handler.Purge)
}
