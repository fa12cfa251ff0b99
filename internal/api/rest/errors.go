package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/faultmap/faultmap-backend/internal/analysis"
	"github.com/faultmap/faultmap-backend/internal/graph"
	"github.com/faultmap/faultmap-backend/internal/pkg/logger"
)

// APIError is the structured error response body.
type APIError struct {
	Error     string            `json:"error"`
	Code      string            `json:"code,omitempty"`
	Message   string            `json:"message"`
	RequestID string            `json:"request_id,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// Error codes for common scenarios
const (
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeInvalidScenario   = "INVALID_SCENARIO"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeTimeout           = "TIMEOUT"
	ErrCodeGraphUnavailable  = "GRAPH_UNAVAILABLE"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondStructuredError sends a structured error response with error code and details.
func respondStructuredError(w http.ResponseWriter, status int, code, message, requestID string, details map[string]string) {
	respondJSON(w, status, APIError{
		Error:     message,
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Details:   details,
	})
}

// respondAnalysisError maps analysis/graph errors onto HTTP statuses. The
// concrete error type decides; unknown errors are a 500 without internals in
// the body.
func respondAnalysisError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := logger.FromContext(r.Context())

	var invalid *analysis.InvalidScenarioError
	switch {
	case graph.IsNotFound(err):
		respondStructuredError(w, http.StatusNotFound, ErrCodeNotFound, err.Error(), requestID, nil)
	case errors.As(err, &invalid):
		respondStructuredError(w, http.StatusBadRequest, ErrCodeInvalidScenario, invalid.Error(), requestID,
			map[string]string{"scenario_type": invalid.Scenario})
	case graph.IsUnavailable(err):
		respondStructuredError(w, http.StatusServiceUnavailable, ErrCodeGraphUnavailable,
			"dependency graph is unavailable", requestID, nil)
	case errors.Is(err, context.DeadlineExceeded):
		respondStructuredError(w, http.StatusGatewayTimeout, ErrCodeTimeout,
			"analysis did not complete in time", requestID, nil)
	default:
		respondStructuredError(w, http.StatusInternalServerError, ErrCodeInternalError,
			"internal error", requestID, nil)
	}
}
