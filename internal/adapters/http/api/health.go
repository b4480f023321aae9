package api

import (
	"github.com/gin-gonic/gin"
	"github.com/okian/trainage/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthHandler serves the Prometheus exposition as the liveness check.
type HealthHandler struct {
	metrics gin.HandlerFunc
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		metrics: gin.WrapH(promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})),
	}
}

// HandleHealth handles GET /healthz requests.
func (h *HealthHandler) HandleHealth(c *gin.Context) {
	h.metrics(c)
}
