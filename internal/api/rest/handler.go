// Package rest exposes the analysis API over HTTP. Handlers parse and
// validate the request, delegate to the analysis service, and translate
// errors; they hold no analysis logic of their own.
package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/faultmap/faultmap-backend/internal/models"
	"github.com/faultmap/faultmap-backend/internal/pkg/logger"
	"github.com/faultmap/faultmap-backend/internal/pkg/validate"
	"github.com/faultmap/faultmap-backend/internal/service"
)

// Handler manages HTTP request handlers
type Handler struct {
	analysisService service.AnalysisService
}

// NewHandler creates a new HTTP handler
func NewHandler(as service.AnalysisService) *Handler {
	return &Handler{analysisService: as}
}

// SetupRoutes configures API routes under /api/v1.
func SetupRoutes(router *mux.Router, h *Handler) {
	// Per-resource analysis
	router.HandleFunc("/resources/{id}/risk", h.GetRisk).Methods("GET")
	router.HandleFunc("/resources/{id}/blast-radius", h.GetBlastRadius).Methods("GET")
	router.HandleFunc("/resources/{id}/downstream", h.GetDownstream).Methods("GET")
	router.HandleFunc("/resources/{id}/upstream", h.GetUpstream).Methods("GET")
	router.HandleFunc("/resources/{id}/simulate", h.Simulate).Methods("POST")
	router.HandleFunc("/resources/{id}/what-if", h.WhatIf).Methods("POST")

	// Graph-wide analysis
	router.HandleFunc("/spof-scan", h.SPOFScan).Methods("GET")
	router.HandleFunc("/risk-summary", h.RiskSummary).Methods("GET")
}

// GetRisk handles GET /resources/{id}/risk
func (h *Handler) GetRisk(w http.ResponseWriter, r *http.Request) {
	id, ok := pathResourceID(w, r)
	if !ok {
		return
	}

	assessment, err := h.analysisService.Risk(r.Context(), id)
	if err != nil {
		respondAnalysisError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, assessment)
}

// GetBlastRadius handles GET /resources/{id}/blast-radius?max_depth=N
func (h *Handler) GetBlastRadius(w http.ResponseWriter, r *http.Request) {
	id, ok := pathResourceID(w, r)
	if !ok {
		return
	}

	maxDepth, ok := intQuery(w, r, "max_depth")
	if !ok {
		return
	}

	result, err := h.analysisService.BlastRadius(r.Context(), id, maxDepth)
	if err != nil {
		respondAnalysisError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetDownstream handles GET /resources/{id}/downstream
func (h *Handler) GetDownstream(w http.ResponseWriter, r *http.Request) {
	id, ok := pathResourceID(w, r)
	if !ok {
		return
	}

	result, err := h.analysisService.Downstream(r.Context(), id)
	if err != nil {
		respondAnalysisError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetUpstream handles GET /resources/{id}/upstream
func (h *Handler) GetUpstream(w http.ResponseWriter, r *http.Request) {
	id, ok := pathResourceID(w, r)
	if !ok {
		return
	}

	result, err := h.analysisService.Upstream(r.Context(), id)
	if err != nil {
		respondAnalysisError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// simulateRequest is the body of POST /simulate and POST /what-if.
type simulateRequest struct {
	ScenarioType models.ScenarioType `json:"scenario_type"`
	Seed         *int64              `json:"seed,omitempty"`
}

// Simulate handles POST /resources/{id}/simulate
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathResourceID(w, r)
	if !ok {
		return
	}

	req, ok := decodeSimulateRequest(w, r)
	if !ok {
		return
	}

	result, err := h.analysisService.Simulate(r.Context(), id, req.ScenarioType, req.Seed)
	if err != nil {
		respondAnalysisError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// WhatIf handles POST /resources/{id}/what-if
func (h *Handler) WhatIf(w http.ResponseWriter, r *http.Request) {
	id, ok := pathResourceID(w, r)
	if !ok {
		return
	}

	req, ok := decodeSimulateRequest(w, r)
	if !ok {
		return
	}

	result, err := h.analysisService.WhatIf(r.Context(), id, req.ScenarioType, req.Seed)
	if err != nil {
		respondAnalysisError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// SPOFScan handles GET /spof-scan?min_dependents=N
func (h *Handler) SPOFScan(w http.ResponseWriter, r *http.Request) {
	threshold, ok := intQuery(w, r, "min_dependents")
	if !ok {
		return
	}

	candidates, err := h.analysisService.SPOFScan(r.Context(), threshold)
	if err != nil {
		respondAnalysisError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"candidates": candidates,
		"count":      len(candidates),
	})
}

// RiskSummary handles GET /risk-summary?top=N
func (h *Handler) RiskSummary(w http.ResponseWriter, r *http.Request) {
	top, ok := intQuery(w, r, "top")
	if !ok {
		return
	}

	summary, err := h.analysisService.RiskSummary(r.Context(), top)
	if err != nil {
		respondAnalysisError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func decodeSimulateRequest(w http.ResponseWriter, r *http.Request) (simulateRequest, bool) {
	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondStructuredError(w, http.StatusBadRequest, ErrCodeInvalidRequest,
			"invalid request body", logger.FromContext(r.Context()), nil)
		return req, false
	}
	if req.ScenarioType == "" {
		req.ScenarioType = models.ScenarioCompleteOutage
	}
	return req, true
}

// pathResourceID extracts and validates the {id} path variable.
func pathResourceID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := mux.Vars(r)["id"]
	if !validate.ResourceID(id) {
		respondStructuredError(w, http.StatusBadRequest, ErrCodeInvalidRequest,
			"invalid resource id", logger.FromContext(r.Context()), nil)
		return "", false
	}
	return id, true
}

// intQuery parses an optional non-negative integer query parameter; a missing
// parameter is 0.
func intQuery(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		respondStructuredError(w, http.StatusBadRequest, ErrCodeInvalidRequest,
			"query parameter "+name+" must be a non-negative integer",
			logger.FromContext(r.Context()), map[string]string{name: raw})
		return 0, false
	}
	return v, true
}
