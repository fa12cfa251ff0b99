package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/faultmap/faultmap-backend/internal/graph"
)

// HealthzHandler handles health check endpoints
type HealthzHandler struct {
	gateway graph.QueryGateway
}

// NewHealthzHandler creates a new healthz handler
func NewHealthzHandler(gw graph.QueryGateway) *HealthzHandler {
	return &HealthzHandler{gateway: gw}
}

// Live handles GET /healthz/live - liveness probe (process is alive)
func (h *HealthzHandler) Live(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /healthz/ready - readiness probe (graph store reachable)
func (h *HealthzHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.gateway != nil {
		if _, err := h.gateway.Version(ctx); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"reason": "graph_unavailable",
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
