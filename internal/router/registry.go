package router

import "github.com/gin-gonic/gin"

// DefaultAPIPrefix is where API modules are mounted.
const DefaultAPIPrefix = "/api"

// Registry collects modules before the engine starts serving. API modules
// share the API middleware chain; root modules (probes, metrics) do not.
type Registry struct {
	Engine      *gin.Engine
	API         *gin.RouterGroup
	middlewares []gin.HandlerFunc
	modules     []Module
	rootModules []Module
}

func NewRegistry(engine *gin.Engine, prefix string) *Registry {
	if prefix == "" {
		prefix = DefaultAPIPrefix
	}
	return &Registry{Engine: engine, API: engine.Group(prefix)}
}

// Use appends middleware applied to API modules only.
func (r *Registry) Use(mw ...gin.HandlerFunc) {
	r.middlewares = append(r.middlewares, mw...)
}

func (r *Registry) Add(mod Module) {
	r.modules = append(r.modules, mod)
}

func (r *Registry) AddRoot(mod Module) {
	r.rootModules = append(r.rootModules, mod)
}

// RegisterAll mounts every module and returns their names in mount order.
func (r *Registry) RegisterAll() []string {
	names := make([]string, 0, len(r.modules)+len(r.rootModules))
	for _, m := range r.rootModules {
		m.Register(&r.Engine.RouterGroup)
		names = append(names, m.Name())
	}
	if len(r.middlewares) > 0 {
		r.API.Use(r.middlewares...)
	}
	for _, m := range r.modules {
		m.Register(r.API)
		names = append(names, m.Name())
	}
	return names
}
