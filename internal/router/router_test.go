package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-user-management/config"
	"github.com/oksasatya/go-ddd-user-management/internal/container"
	"github.com/oksasatya/go-ddd-user-management/pkg/validation"
)

func newTestEngine(t *testing.T, mutate func(*config.Config)) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()
	cfg := &config.Config{
		AppName:             "users",
		Env:                 "test",
		StoreDriver:         container.StoreMemory,
		EventPublishers:     "log",
		UserInitialStatus:   "PENDING",
		MetricsEnabled:      true,
		DebugMetricsEnabled: true,
	}
	if mutate != nil {
		mutate(cfg)
	}
	logger, _ := logtest.NewNullLogger()
	c, err := container.Build(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	engine := gin.New()
	reg := NewRegistry(engine, "")
	InitModules(reg, c)
	require.Equal(t, []string{"debug", "users"}, reg.RegisterAll())
	return engine
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoutesRegistered(t *testing.T) {
	r := newTestEngine(t, nil)

	w := do(r, http.MethodPost, "/api/users", `{"email":"ana@example.com","name":"Ana","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	tests := []struct {
		path string
		want int
		body string
	}{
		{path: "/healthz", want: http.StatusOK, body: `"ok"`},
		{path: "/api/users", want: http.StatusOK, body: "ana@example.com"},
		{path: "/debug/info", want: http.StatusOK, body: `"users":1`},
		{path: "/debug/vars", want: http.StatusOK, body: "memstats"},
		{path: "/metrics", want: http.StatusOK, body: `users_user_operations_total{operation="create",outcome="ok"} 1`},
		{path: "/users", want: http.StatusNotFound},
		{path: "/api/healthz", want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := do(r, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.want, w.Code)
			if tt.body != "" {
				assert.Contains(t, w.Body.String(), tt.body)
			}
		})
	}
}

func TestOptionalDebugRoutes(t *testing.T) {
	r := newTestEngine(t, func(c *config.Config) {
		c.MetricsEnabled = false
		c.DebugMetricsEnabled = false
	})
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/metrics", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/debug/vars", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/healthz", "").Code)
}
