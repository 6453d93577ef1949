package api

import (
	"context"
	"net/http"

	"erythu/portal/internal/lifecycle"

	"github.com/gin-gonic/gin"
)

// WelcomeMessage is the body served by the welcome resource.
const WelcomeMessage = "Welcome to e-rythu portal"

// lifecycleService is the subset of *lifecycle.Runner used by the HTTP
// handlers. Declaring it as an interface allows test doubles to be injected.
type lifecycleService interface {
	RunDeepHealth(ctx context.Context) map[string]lifecycle.ProbeResult
	IsReady() bool
	IsUnitInProgress() bool
}

// Handler holds the dependencies shared across all HTTP handlers.
type Handler struct {
	lifecycle lifecycleService
}

// Welcome handles GET on the base path. The body is fixed; request headers
// and query parameters are ignored.
func (h *Handler) Welcome(c *gin.Context) {
	c.String(http.StatusOK, WelcomeMessage)
}

// Health handles GET /health.
// It always returns 200 — this is the liveness probe.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"mode":   "shallow",
	})
}

// DeepHealth handles GET /health/deep.
// It probes every persistence dependency and returns 200 only when all are OK.
func (h *Handler) DeepHealth(c *gin.Context) {
	probes := h.lifecycle.RunDeepHealth(c.Request.Context())

	status := "healthy"
	code := http.StatusOK
	for _, p := range probes {
		if !p.OK {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(code, gin.H{
		"status":       status,
		"dependencies": probes,
	})
}

// Ready handles GET /ready.
// It returns 200 once the startup persistence unit has committed; 503 while
// it is still running or after it rolled back.
func (h *Handler) Ready(c *gin.Context) {
	if h.lifecycle.IsReady() {
		c.JSON(http.StatusOK, gin.H{"ready": true})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"ready":      false,
		"inProgress": h.lifecycle.IsUnitInProgress(),
	})
}
