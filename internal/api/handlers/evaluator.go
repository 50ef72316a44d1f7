// HTTP handlers for the evaluator service.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/agentify/finbench/internal/evaluator"
	"github.com/agentify/finbench/internal/schema"
)

// EvaluatorHandler handles HTTP requests for the evaluator endpoints.
type EvaluatorHandler struct {
	runner  *evaluator.Runner
	history *evaluator.HistoryStore
}

// NewEvaluatorHandler creates a new EvaluatorHandler instance. history may be
// nil when run persistence is disabled.
func NewEvaluatorHandler(runner *evaluator.Runner, history *evaluator.HistoryStore) *EvaluatorHandler {
	return &EvaluatorHandler{runner: runner, history: history}
}

// AgentCard handles GET /agent_card
func (h *EvaluatorHandler) AgentCard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":     "FinanceGreenAgent",
		"protocol": "a2a-lite-0.2",
		"endpoints": map[string]string{
			"reset":  "/reset",
			"assess": "/assess",
		},
		"capabilities": map[string]bool{
			"progress_updates": true,
			"artifacts":        true,
		},
	})
}

// Assess handles POST /assess
func (h *EvaluatorHandler) Assess(w http.ResponseWriter, r *http.Request) {
	var req schema.AssessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.runner.Assess(r.Context(), req)
	if err != nil {
		writeError(w, assessErrorStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Reset handles POST /reset
func (h *EvaluatorHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.runner.Reset()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ListRuns handles GET /runs
func (h *EvaluatorHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotFound, "run history is not enabled")
		return
	}

	runs, err := h.history.ListRuns(r.Context(), parseLimitParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list runs: %v", err))
		return
	}
	if runs == nil {
		runs = []evaluator.RunRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// assessErrorStatus maps run orchestration errors to HTTP status codes.
// Configuration problems are the caller's fault; everything else (unreachable
// participant or tool hub, malformed answers) surfaces as a bad gateway.
func assessErrorStatus(err error) int {
	switch {
	case errors.Is(err, evaluator.ErrNoParticipantAddress),
		errors.Is(err, evaluator.ErrNoToolHubAddress),
		errors.Is(err, evaluator.ErrNoTasks):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}
