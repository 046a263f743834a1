package api

import (
	"context"
	"net/http"

	"github.com/okian/grantfeat/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CountProvider reports how many applications are served.
type CountProvider interface {
	Count(ctx context.Context) int
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	counter CountProvider
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(counter CountProvider) *HealthHandler {
	return &HealthHandler{counter: counter}
}

type healthResponse struct {
	Status       string `json:"status"`
	Applications int    `json:"applications"`
}

// HandleHealth handles GET /healthz requests.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Applications: h.counter.Count(r.Context())})
}

// MetricsHandler serves the custom metrics registry.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
