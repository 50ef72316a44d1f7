// Route registration and go-chi router setup for the three harness services.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/agentify/finbench/internal/api/handlers"
	"github.com/agentify/finbench/internal/evaluator"
	"github.com/agentify/finbench/internal/participant"
	"github.com/agentify/finbench/internal/toolhub"
)

// newBaseRouter creates a chi router with the middleware stack shared by all
// three services, plus the unauthenticated health probe.
func newBaseRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check — used by the launcher's wait-ready loop and by probes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	return r
}

// NewToolHubRouter mounts the tool hub service.
func NewToolHubRouter(hub *toolhub.Hub) *chi.Mux {
	r := newBaseRouter()
	h := handlers.NewToolHubHandler(hub)

	r.Get("/tools", h.Catalog) // GET /tools
	r.Post("/call", h.Call)    // POST /call
	r.Post("/reset", h.Reset)  // POST /reset

	return r
}

// NewParticipantRouter mounts the participant agent service.
func NewParticipantRouter(solver *participant.Solver) *chi.Mux {
	r := newBaseRouter()
	h := handlers.NewParticipantHandler(solver)

	r.Get("/agent_card", h.AgentCard) // GET /agent_card
	r.Post("/task", h.Task)           // POST /task
	r.Post("/reset", h.Reset)         // POST /reset

	return r
}

// NewEvaluatorRouter mounts the evaluator service. history may be nil, which
// disables the run-history listing.
func NewEvaluatorRouter(runner *evaluator.Runner, history *evaluator.HistoryStore) *chi.Mux {
	r := newBaseRouter()
	h := handlers.NewEvaluatorHandler(runner, history)

	r.Get("/agent_card", h.AgentCard) // GET /agent_card
	r.Post("/assess", h.Assess)       // POST /assess
	r.Post("/reset", h.Reset)         // POST /reset
	r.Get("/runs", h.ListRuns)        // GET /runs

	return r
}
