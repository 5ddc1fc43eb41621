package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Manchinn/cslogbook-reconciler/internal/service"
)

// HealthHandler exposes liveness, readiness and metrics endpoints.
type HealthHandler struct {
	metrics *service.MetricsService
}

// NewHealthHandler constructs a health handler.
func NewHealthHandler(metrics *service.MetricsService) *HealthHandler {
	return &HealthHandler{metrics: metrics}
}

// Health responds with a generic OK payload for liveness usage.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready responds once the process is wired up.
func (h *HealthHandler) Ready(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *HealthHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}
