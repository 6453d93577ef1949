package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
)

// ErrInvalidBasePath is returned when the welcome resource's base path would
// shadow a fixed route or contains gin wildcard syntax.
var ErrInvalidBasePath = errors.New("invalid base path")

// reservedPaths are routed independently of the base path.
var reservedPaths = map[string]bool{
	"/health":      true,
	"/health/deep": true,
	"/ready":       true,
}

// Router wraps a configured Gin engine and exposes it as an http.Handler.
type Router struct {
	engine *gin.Engine
}

// NewRouter constructs a Router with the middleware chain and all routes
// registered. The welcome resource answers on basePath (default "/") and on
// basePath+"welcome", plus the legacy /api/welcome path. Middleware order:
//  1. Recovery — panic → 500
//  2. Tracing — OTEL span per request
//  3. RequestLogger — structured request/response logging
func NewRouter(l lifecycleService, basePath, serviceName string) (*Router, error) {
	paths, err := welcomePaths(basePath)
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(Recovery(slog.Default()))
	engine.Use(Tracing(serviceName))
	engine.Use(RequestLogger(slog.Default()))

	h := &Handler{lifecycle: l}

	for _, p := range paths {
		engine.GET(p, h.Welcome)
	}

	engine.GET("/health", h.Health)
	engine.GET("/health/deep", h.DeepHealth)
	engine.GET("/ready", h.Ready)

	return &Router{engine: engine}, nil
}

// welcomePaths returns the distinct routes the welcome resource is bound to.
// A base path that collides with a reserved route or carries ':' or '*'
// is rejected.
func welcomePaths(basePath string) ([]string, error) {
	if strings.ContainsAny(basePath, ":*") {
		return nil, fmt.Errorf("%w: %q contains a route wildcard", ErrInvalidBasePath, basePath)
	}

	base := path.Clean("/" + basePath)
	candidates := []string{base, path.Join(base, "welcome"), "/api/welcome"}

	seen := make(map[string]bool, len(candidates))
	paths := make([]string, 0, len(candidates))
	for _, p := range candidates {
		if reservedPaths[p] {
			return nil, fmt.Errorf("%w: %q collides with %s", ErrInvalidBasePath, basePath, p)
		}
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// Handler returns the underlying http.Handler for use with net/http servers.
func (r *Router) Handler() http.Handler {
	return r.engine
}
