// HTTP handlers for the tool hub service.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/agentify/finbench/internal/schema"
	"github.com/agentify/finbench/internal/toolhub"
)

// ToolHubHandler handles HTTP requests for the tool hub endpoints.
type ToolHubHandler struct {
	hub *toolhub.Hub
}

// NewToolHubHandler creates a new ToolHubHandler instance.
func NewToolHubHandler(hub *toolhub.Hub) *ToolHubHandler {
	return &ToolHubHandler{hub: hub}
}

// Catalog handles GET /tools
func (h *ToolHubHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.hub.Catalog())
}

// Call handles POST /call
func (h *ToolHubHandler) Call(w http.ResponseWriter, r *http.Request) {
	var req schema.ToolCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Tool == "" {
		writeError(w, http.StatusBadRequest, "tool is required")
		return
	}

	result, err := h.hub.Call(r.Context(), req.Tool, req.Args, req.ContextID)
	if err != nil {
		writeError(w, toolErrorStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, schema.ToolCallResponse{OK: true, Result: result})
}

// Reset handles POST /reset
func (h *ToolHubHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.hub.Reset()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// toolErrorStatus maps tool execution errors to HTTP status codes.
func toolErrorStatus(err error) int {
	switch {
	case errors.Is(err, toolhub.ErrUnknownTool):
		return http.StatusNotFound
	case errors.Is(err, toolhub.ErrContextRequired):
		return http.StatusBadRequest
	case errors.Is(err, toolhub.ErrNoSearchBackend):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
