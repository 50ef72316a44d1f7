package participant

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/agentify/finbench/internal/schema"
	"github.com/agentify/finbench/internal/toolhub"
)

const answerUnable = "FINAL ANSWER: Unable to determine."

var (
	wordBeatRe = regexp.MustCompile(`(?i)\bbeat\b`)
	wordMissRe = regexp.MustCompile(`(?i)\bmiss\b`)
	epsFigRe   = regexp.MustCompile(`(?i)EPS[^$]*\$(\d+(\.\d+)?)`)
)

// Solver drives evidence gathering and answer construction. It is
// deterministic given identical tool responses: no randomness, no learned
// state.
type Solver struct {
	dial func(catalog schema.ToolCatalog, contextID string) toolCaller
}

// NewSolver returns a Solver that reaches the tool hub over HTTP.
func NewSolver() *Solver {
	return &Solver{
		dial: func(catalog schema.ToolCatalog, contextID string) toolCaller {
			return NewToolClient(catalog, contextID)
		},
	}
}

// Solve gathers evidence from the task's seed URLs and emits the structured
// answer. A fetch or parse failure on one URL is recorded in the trace and the
// loop continues with the remaining URLs (best-effort evidence).
func (s *Solver) Solve(ctx context.Context, task schema.Task, catalog schema.ToolCatalog) (schema.Answer, error) {
	tools := s.dial(catalog, task.TaskID)

	var texts []string
	var sources []schema.SourceItem
	var trace []map[string]any

	for _, url := range task.ContextURLs {
		page, err := fetchPage(ctx, tools, url)
		if err != nil {
			trace = append(trace, map[string]any{"tool": toolhub.ToolFetch, "url": url, "error": err.Error()})
			continue
		}
		trace = append(trace, map[string]any{"tool": toolhub.ToolFetch, "url": url, "status": page.Status})

		if page.Text == nil {
			continue
		}
		parsed, err := parsePage(ctx, tools, *page.Text)
		if err != nil {
			trace = append(trace, map[string]any{"tool": toolhub.ToolParse, "url": url, "error": err.Error()})
			continue
		}
		texts = append(texts, parsed.Text)
		sources = append(sources, schema.SourceItem{URL: url})
		trace = append(trace, map[string]any{"tool": toolhub.ToolParse, "chars": len(parsed.Text)})
	}

	blob := strings.Join(texts, "\n")

	finalAnswer := answerUnable
	if strings.HasPrefix(strings.ToLower(task.Category), "numerical") {
		extraction, err := extractBillions(ctx, tools, blob)
		if err != nil {
			return schema.Answer{}, fmt.Errorf("solve %s: %w", task.TaskID, err)
		}
		if extraction.ValueBillions != nil {
			finalAnswer = fmt.Sprintf("FINAL ANSWER: %.1f USD billions. Evidence: %s",
				*extraction.ValueBillions, derefOr(extraction.Evidence, ""))
		}
	} else {
		finalAnswer = classifyEarnings(blob)
	}

	if sources == nil {
		sources = []schema.SourceItem{}
	}
	return schema.Answer{
		FinalAnswer: finalAnswer,
		Sources:     sources,
		ToolTrace:   trace,
		ToolStats:   &schema.ToolStats{Calls: tools.Stats()},
	}, nil
}

// classifyEarnings applies the beat/miss heuristic to the evidence blob.
// "Beat" is checked before "miss": if both words appear, beat wins.
func classifyEarnings(blob string) string {
	switch {
	case wordBeatRe.MatchString(blob):
		return fmt.Sprintf("FINAL ANSWER: Beat. EPS $%s.", epsFigureOr(blob, "?"))
	case wordMissRe.MatchString(blob):
		return fmt.Sprintf("FINAL ANSWER: Miss. EPS $%s.", epsFigureOr(blob, "?"))
	default:
		return answerUnable
	}
}

// epsFigureOr returns the first EPS dollar figure in blob, or placeholder.
func epsFigureOr(blob, placeholder string) string {
	if m := epsFigRe.FindStringSubmatch(blob); m != nil {
		return m[1]
	}
	return placeholder
}

func fetchPage(ctx context.Context, tools toolCaller, url string) (toolhub.FetchResult, error) {
	raw, err := tools.Call(ctx, toolhub.ToolFetch, map[string]any{"url": url})
	if err != nil {
		return toolhub.FetchResult{}, err
	}
	var page toolhub.FetchResult
	if err := json.Unmarshal(raw, &page); err != nil {
		return toolhub.FetchResult{}, fmt.Errorf("decode fetch result: %w", err)
	}
	return page, nil
}

func parsePage(ctx context.Context, tools toolCaller, rawHTML string) (toolhub.ParseResult, error) {
	raw, err := tools.Call(ctx, toolhub.ToolParse, map[string]any{"html": rawHTML})
	if err != nil {
		return toolhub.ParseResult{}, err
	}
	var parsed toolhub.ParseResult
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return toolhub.ParseResult{}, fmt.Errorf("decode parse result: %w", err)
	}
	return parsed, nil
}

func extractBillions(ctx context.Context, tools toolCaller, blob string) (toolhub.Extraction, error) {
	raw, err := tools.Call(ctx, toolhub.ToolExtract, map[string]any{"text": blob})
	if err != nil {
		return toolhub.Extraction{}, err
	}
	var extraction toolhub.Extraction
	if err := json.Unmarshal(raw, &extraction); err != nil {
		return toolhub.Extraction{}, fmt.Errorf("decode extraction result: %w", err)
	}
	return extraction, nil
}

func derefOr(s *string, fallback string) string {
	if s != nil {
		return *s
	}
	return fallback
}
