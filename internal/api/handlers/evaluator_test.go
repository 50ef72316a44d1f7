package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentify/finbench/internal/api"
	"github.com/agentify/finbench/internal/evaluator"
	"github.com/agentify/finbench/internal/infra/sqlite"
	"github.com/agentify/finbench/internal/participant"
	"github.com/agentify/finbench/internal/schema"
	"github.com/agentify/finbench/internal/toolhub"
)

func newEvaluatorServer(t *testing.T, toolsBaseURL string, history *evaluator.HistoryStore) *httptest.Server {
	t.Helper()
	opts := []evaluator.Option{}
	if history != nil {
		opts = append(opts, evaluator.WithHistory(history))
	}
	runner := evaluator.NewRunner(t.TempDir(), toolsBaseURL, opts...)
	srv := httptest.NewServer(api.NewEvaluatorRouter(runner, history))
	t.Cleanup(srv.Close)
	return srv
}

func newHistory(t *testing.T) *evaluator.HistoryStore {
	t.Helper()
	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "finbench.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := sqlite.MigrateUp(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return evaluator.NewHistoryStore(db)
}

func TestEvaluatorAgentCard(t *testing.T) {
	t.Parallel()

	srv := newEvaluatorServer(t, "http://hub", nil)
	resp, err := http.Get(srv.URL + "/agent_card")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var card struct {
		Name         string          `json:"name"`
		Protocol     string          `json:"protocol"`
		Capabilities map[string]bool `json:"capabilities"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		t.Fatal(err)
	}
	if card.Name != "FinanceGreenAgent" || card.Protocol != "a2a-lite-0.2" {
		t.Fatalf("agent card = %+v", card)
	}
	if !card.Capabilities["progress_updates"] || !card.Capabilities["artifacts"] {
		t.Fatalf("capabilities = %v", card.Capabilities)
	}
}

func TestEvaluatorAssessValidation(t *testing.T) {
	t.Parallel()

	srv := newEvaluatorServer(t, "http://hub", nil)

	resp := postJSON(t, srv.URL+"/assess", `{`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d, want 400", resp.StatusCode)
	}

	// No participant address at all.
	resp = postJSON(t, srv.URL+"/assess", `{"tasks":[{"task_id":"t1"}]}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing participant status = %d, want 400", resp.StatusCode)
	}
}

func TestEvaluatorAssessUnreachableParticipant(t *testing.T) {
	t.Parallel()

	hub := httptest.NewServer(api.NewToolHubRouter(toolhub.New("", nil)))
	t.Cleanup(hub.Close)

	srv := newEvaluatorServer(t, hub.URL, nil)
	resp := postJSON(t, srv.URL+"/assess",
		`{"purple_agent_url":"http://127.0.0.1:1","tasks":[{"task_id":"t1"}]}`)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("unreachable participant status = %d, want 502", resp.StatusCode)
	}
}

func TestEvaluatorRunsWithoutHistory(t *testing.T) {
	t.Parallel()

	srv := newEvaluatorServer(t, "http://hub", nil)
	resp, err := http.Get(srv.URL + "/runs")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET /runs without history = %d, want 404", resp.StatusCode)
	}
}

func TestEvaluatorRunsListsHistory(t *testing.T) {
	t.Parallel()

	history := newHistory(t)
	if err := history.SaveRun(context.Background(), evaluator.RunRecord{
		ID:             "run-1",
		ParticipantURL: "http://agent",
		ToolServer:     "http://hub",
		NumTasks:       1,
		CreatedAt:      time.Now().UTC(),
	}, nil); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	srv := newEvaluatorServer(t, "http://hub", history)
	resp, err := http.Get(srv.URL + "/runs")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /runs = %d, want 200", resp.StatusCode)
	}

	var out struct {
		Runs []evaluator.RunRecord `json:"runs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Runs) != 1 || out.Runs[0].ID != "run-1" {
		t.Fatalf("runs = %+v", out.Runs)
	}
}

// Full harness round trip: evaluator -> participant -> tool hub -> stub page.
func TestEvaluatorAssessEndToEnd(t *testing.T) {
	t.Parallel()

	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>Revenue was $94.9 billion.</body></html>`)) //nolint:errcheck
	}))
	t.Cleanup(page.Close)

	hub := httptest.NewServer(api.NewToolHubRouter(toolhub.New("", nil)))
	t.Cleanup(hub.Close)

	agent := httptest.NewServer(api.NewParticipantRouter(participant.NewSolver()))
	t.Cleanup(agent.Close)

	history := newHistory(t)
	srv := newEvaluatorServer(t, hub.URL, history)

	mustCite := false
	req := schema.AssessRequest{
		PurpleAgentURL: agent.URL,
		Tasks: []schema.Task{{
			TaskID:         "t-rev",
			Category:       "numerical_revenue",
			ContextURLs:    []string{page.URL},
			EvidencePolicy: schema.EvidencePolicy{MustCite: &mustCite},
			Expected:       &schema.Expected{Type: schema.ExpectedNumeric, Value: 94.8, Tolerance: 0.5},
		}},
	}
	body, _ := json.Marshal(req)
	resp := postJSON(t, srv.URL+"/assess", string(body))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("assess status = %d, want 200", resp.StatusCode)
	}

	var result schema.AssessmentResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if len(result.PerTask) != 1 || !result.PerTask[0].Success {
		t.Fatalf("per_task = %+v, want one successful result", result.PerTask)
	}
	if got := result.Summary["accuracy"]; got != 1.0 {
		t.Fatalf("accuracy = %v, want 1.0", got)
	}

	// The run landed in history.
	runs, err := history.ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].NumTasks != 1 {
		t.Fatalf("history runs = %+v", runs)
	}
}
