// HTTP handlers for the participant agent service.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/agentify/finbench/internal/participant"
	"github.com/agentify/finbench/internal/schema"
)

// ParticipantHandler handles HTTP requests for the participant endpoints.
type ParticipantHandler struct {
	solver *participant.Solver
}

// NewParticipantHandler creates a new ParticipantHandler instance.
func NewParticipantHandler(solver *participant.Solver) *ParticipantHandler {
	return &ParticipantHandler{solver: solver}
}

// AgentCard handles GET /agent_card
func (h *ParticipantHandler) AgentCard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":     "GenericPurpleAgent",
		"protocol": "a2a-lite-0.1",
		"endpoints": map[string]string{
			"reset": "/reset",
			"task":  "/task",
		},
	})
}

// Task handles POST /task
func (h *ParticipantHandler) Task(w http.ResponseWriter, r *http.Request) {
	var req schema.TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Task.TaskID == "" {
		writeError(w, http.StatusBadRequest, "task.task_id is required")
		return
	}
	req.Task.ApplyDefaults()

	answer, err := h.solver.Solve(r.Context(), req.Task, req.ToolsSpec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to solve task: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, answer)
}

// Reset handles POST /reset. The solver keeps no cross-task state, so reset
// only acknowledges.
func (h *ParticipantHandler) Reset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
