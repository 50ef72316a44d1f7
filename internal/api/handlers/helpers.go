// Handler helper functions shared by the three services.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
)

const (
	defaultRunsLimit = 25
	maxRunsLimit     = 100
)

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
	}
}

// writeError writes a JSON error response with the given status code.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// parseLimitParam extracts and bounds the limit query param.
func parseLimitParam(r *http.Request) int {
	limit := defaultRunsLimit
	if lim, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && lim > 0 {
		if lim > maxRunsLimit {
			lim = maxRunsLimit
		}
		limit = lim
	}
	return limit
}
