package participant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/agentify/finbench/internal/schema"
	"github.com/agentify/finbench/internal/toolhub"
)

// stubCaller serves canned tool responses keyed by tool name (and by URL for
// http_fetch), mirroring the hub's wire payloads.
type stubCaller struct {
	pages    map[string]toolhub.FetchResult // url -> fetch result
	fetchErr map[string]error               // url -> forced error
	calls    map[string]int
}

func newStubCaller() *stubCaller {
	return &stubCaller{
		pages:    make(map[string]toolhub.FetchResult),
		fetchErr: make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (s *stubCaller) servePage(url, text string) {
	s.pages[url] = toolhub.FetchResult{Status: 200, ContentType: "text/html", Text: &text}
}

func (s *stubCaller) Call(_ context.Context, tool string, args map[string]any) (json.RawMessage, error) {
	var result any
	switch tool {
	case toolhub.ToolFetch:
		url, _ := args["url"].(string)
		if err := s.fetchErr[url]; err != nil {
			return nil, err
		}
		page, ok := s.pages[url]
		if !ok {
			return nil, fmt.Errorf("fetch %s: status 404", url)
		}
		result = page
	case toolhub.ToolParse:
		rawHTML, _ := args["html"].(string)
		parsed, err := toolhub.ParseHTML(rawHTML)
		if err != nil {
			return nil, err
		}
		result = parsed
	case toolhub.ToolExtract:
		text, _ := args["text"].(string)
		result = toolhub.ExtractFirstBillions(text)
	default:
		return nil, fmt.Errorf("unknown tool %s", tool)
	}
	s.calls[tool]++
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *stubCaller) Stats() map[string]int { return s.calls }

func solverWith(stub *stubCaller) *Solver {
	return &Solver{dial: func(schema.ToolCatalog, string) toolCaller { return stub }}
}

func numericalTask(urls ...string) schema.Task {
	return schema.Task{
		TaskID:      "fin-001",
		Category:    "numerical_revenue",
		Question:    "What was the revenue?",
		ContextURLs: urls,
	}
}

func TestSolver_NumericalCategory_ExtractsBillions(t *testing.T) {
	t.Parallel()

	stub := newStubCaller()
	stub.servePage("https://www.sec.gov/filing", "<p>Revenue was $2.3 billion in Q3.</p>")

	answer, err := solverWith(stub).Solve(context.Background(), numericalTask("https://www.sec.gov/filing"), schema.ToolCatalog{})
	if err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}

	if !strings.HasPrefix(answer.FinalAnswer, "FINAL ANSWER: 2.3 USD billions.") {
		t.Errorf("FinalAnswer = %q", answer.FinalAnswer)
	}
	if len(answer.Sources) != 1 || answer.Sources[0].URL != "https://www.sec.gov/filing" {
		t.Errorf("Sources = %+v", answer.Sources)
	}
	if answer.ToolStats == nil || answer.ToolStats.Calls[toolhub.ToolFetch] != 1 {
		t.Errorf("ToolStats = %+v", answer.ToolStats)
	}
}

func TestSolver_NumericalCategory_NoFigure_UnableToDetermine(t *testing.T) {
	t.Parallel()

	stub := newStubCaller()
	stub.servePage("https://example.com/page", "<p>No numbers here.</p>")

	answer, err := solverWith(stub).Solve(context.Background(), numericalTask("https://example.com/page"), schema.ToolCatalog{})
	if err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}
	if answer.FinalAnswer != "FINAL ANSWER: Unable to determine." {
		t.Errorf("FinalAnswer = %q", answer.FinalAnswer)
	}
}

func TestSolver_BeatCategory(t *testing.T) {
	t.Parallel()

	stub := newStubCaller()
	stub.servePage("https://example.com/e", "<p>The company beat expectations with EPS of $1.45.</p>")

	task := schema.Task{TaskID: "fin-002", Category: "earnings_beat_miss", ContextURLs: []string{"https://example.com/e"}}
	answer, err := solverWith(stub).Solve(context.Background(), task, schema.ToolCatalog{})
	if err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}
	if answer.FinalAnswer != "FINAL ANSWER: Beat. EPS $1.45." {
		t.Errorf("FinalAnswer = %q", answer.FinalAnswer)
	}
}

func TestSolver_MissCategory_PlaceholderEPS(t *testing.T) {
	t.Parallel()

	stub := newStubCaller()
	stub.servePage("https://example.com/e", "<p>Earnings miss reported this quarter.</p>")

	task := schema.Task{TaskID: "fin-003", Category: "earnings_beat_miss", ContextURLs: []string{"https://example.com/e"}}
	answer, err := solverWith(stub).Solve(context.Background(), task, schema.ToolCatalog{})
	if err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}
	if answer.FinalAnswer != "FINAL ANSWER: Miss. EPS $?." {
		t.Errorf("FinalAnswer = %q", answer.FinalAnswer)
	}
}

func TestSolver_BeatWinsWhenBothWordsPresent(t *testing.T) {
	t.Parallel()

	stub := newStubCaller()
	stub.servePage("https://example.com/e",
		"<p>Some said miss, but the company beat consensus. EPS came in at $2.10.</p>")

	task := schema.Task{TaskID: "fin-004", Category: "earnings_beat_miss", ContextURLs: []string{"https://example.com/e"}}
	answer, err := solverWith(stub).Solve(context.Background(), task, schema.ToolCatalog{})
	if err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}
	if !strings.HasPrefix(answer.FinalAnswer, "FINAL ANSWER: Beat.") {
		t.Errorf("FinalAnswer = %q; beat must win over miss", answer.FinalAnswer)
	}
}

func TestSolver_FetchFailure_SkipsAndContinues(t *testing.T) {
	t.Parallel()

	stub := newStubCaller()
	stub.fetchErr["https://down.example.com/x"] = errors.New("connection refused")
	stub.servePage("https://www.sec.gov/good", "<p>Revenue was $4.0 billion.</p>")

	task := numericalTask("https://down.example.com/x", "https://www.sec.gov/good")
	answer, err := solverWith(stub).Solve(context.Background(), task, schema.ToolCatalog{})
	if err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}

	if !strings.HasPrefix(answer.FinalAnswer, "FINAL ANSWER: 4.0 USD billions.") {
		t.Errorf("FinalAnswer = %q; want answer from surviving URL", answer.FinalAnswer)
	}
	if len(answer.Sources) != 1 || answer.Sources[0].URL != "https://www.sec.gov/good" {
		t.Errorf("Sources = %+v; failed URL must not be cited", answer.Sources)
	}

	// The failed fetch still shows up in the trace.
	var sawError bool
	for _, entry := range answer.ToolTrace {
		if entry["url"] == "https://down.example.com/x" && entry["error"] != nil {
			sawError = true
		}
	}
	if !sawError {
		t.Errorf("trace missing failed fetch entry: %+v", answer.ToolTrace)
	}
}

func TestSolver_BinaryPage_NotParsedNotCited(t *testing.T) {
	t.Parallel()

	stub := newStubCaller()
	n := 1024
	stub.pages["https://example.com/report.pdf"] = toolhub.FetchResult{
		Status: 200, ContentType: "application/pdf", BytesLen: &n,
	}

	answer, err := solverWith(stub).Solve(context.Background(), numericalTask("https://example.com/report.pdf"), schema.ToolCatalog{})
	if err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}
	if len(answer.Sources) != 0 {
		t.Errorf("binary page must not be cited: %+v", answer.Sources)
	}
	if stub.calls[toolhub.ToolParse] != 0 {
		t.Errorf("html_parse called %d times for binary content", stub.calls[toolhub.ToolParse])
	}
}

func TestSolver_NoSeedURLs_UnableToDetermine(t *testing.T) {
	t.Parallel()

	answer, err := solverWith(newStubCaller()).Solve(context.Background(),
		schema.Task{TaskID: "fin-005", Category: "earnings_beat_miss"}, schema.ToolCatalog{})
	if err != nil {
		t.Fatalf("Solve returned error: %v", err)
	}
	if answer.FinalAnswer != "FINAL ANSWER: Unable to determine." {
		t.Errorf("FinalAnswer = %q", answer.FinalAnswer)
	}
	if answer.Sources == nil {
		t.Error("Sources must be an empty list, not nil")
	}
}
