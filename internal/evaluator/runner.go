package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentify/finbench/internal/infra/eventbus"
	"github.com/agentify/finbench/internal/schema"
)

// ProgressTopic is the eventbus topic carrying assessment progress events.
const ProgressTopic = "assessment.progress"

const (
	catalogTimeout     = 15 * time.Second
	participantTimeout = 600 * time.Second
)

// Configuration errors are fatal: a run without a reachable participant or
// tool hub cannot produce a meaningful score.
var (
	ErrNoParticipantAddress = errors.New("evaluator: no participant agent address")
	ErrNoToolHubAddress     = errors.New("evaluator: no tool hub address")
	ErrNoTasks              = errors.New("evaluator: no tasks to assess")
)

// Runner orchestrates assessment runs: fetch the tool catalog, dispatch tasks
// to the participant sequentially, grade each answer, persist artifacts and
// emit progress events. Safe for concurrent use; runs themselves execute one
// task at a time.
type Runner struct {
	bus          *eventbus.Bus
	outputDir    string
	toolsBaseURL string
	history      *HistoryStore
	uploader     ArtifactUploader

	catalogClient     *http.Client
	participantClient *http.Client

	mu   sync.Mutex
	runs int
}

// Option configures a Runner.
type Option func(*Runner)

// WithHistory enables run persistence to the given store.
func WithHistory(h *HistoryStore) Option {
	return func(r *Runner) { r.history = h }
}

// WithUploader enables remote artifact upload after each run.
func WithUploader(u ArtifactUploader) Option {
	return func(r *Runner) { r.uploader = u }
}

// NewRunner creates a Runner. outputDir receives summary.json and
// per_task.jsonl after each run; toolsBaseURL is the default tool hub address
// used when an assess request does not carry its own.
func NewRunner(outputDir, toolsBaseURL string, opts ...Option) *Runner {
	r := &Runner{
		bus:               eventbus.New(),
		outputDir:         outputDir,
		toolsBaseURL:      toolsBaseURL,
		catalogClient:     &http.Client{Timeout: catalogTimeout},
		participantClient: &http.Client{Timeout: participantTimeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Bus exposes the progress event bus for in-process subscribers.
func (r *Runner) Bus() *eventbus.Bus { return r.bus }

// Runs reports how many assessments this Runner has started.
func (r *Runner) Runs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

// Reset clears the run counter.
func (r *Runner) Reset() {
	r.mu.Lock()
	r.runs = 0
	r.mu.Unlock()
}

// Assess executes one evaluation run. Participant dispatch failures are fatal
// (the run aborts with an error); grading, progress delivery and artifact
// persistence failures are not.
func (r *Runner) Assess(ctx context.Context, req schema.AssessRequest) (*schema.AssessmentResult, error) {
	participant := req.ParticipantURL()
	if participant == "" {
		return nil, ErrNoParticipantAddress
	}
	toolsBase := req.ToolsBaseURL
	if toolsBase == "" {
		toolsBase = r.toolsBaseURL
	}
	if toolsBase == "" {
		return nil, ErrNoToolHubAddress
	}
	if len(req.Tasks) == 0 {
		return nil, ErrNoTasks
	}

	r.mu.Lock()
	r.runs++
	runSeq := r.runs
	r.mu.Unlock()

	catalog, err := r.fetchCatalog(ctx, toolsBase)
	if err != nil {
		return nil, fmt.Errorf("fetch tool catalog: %w", err)
	}

	notifier := NewNotifier(req.ProgressURL)
	emit := func(payload map[string]any) {
		r.bus.Publish(ProgressTopic, payload)
		notifier.Notify(ctx, payload)
	}

	start := time.Now()
	runID := uuid.NewString()
	log.Printf("evaluator: run %d (%s) started: %d tasks, participant=%s", runSeq, runID, len(req.Tasks), participant)

	emit(map[string]any{
		"event":     schema.EventAssessmentStarted,
		"run_id":    runID,
		"num_tasks": len(req.Tasks),
	})

	perTask := make([]schema.PerTaskResult, 0, len(req.Tasks))
	for _, task := range req.Tasks {
		task.ApplyDefaults()
		emit(map[string]any{
			"event":   schema.EventTaskStarted,
			"task_id": task.TaskID,
		})

		answer, err := r.dispatchTask(ctx, participant, task, catalog)
		if err != nil {
			return nil, fmt.Errorf("dispatch task %s: %w", task.TaskID, err)
		}

		res := Grade(task, answer)
		perTask = append(perTask, res)

		emit(map[string]any{
			"event":   schema.EventTaskFinished,
			"task_id": task.TaskID,
			"success": res.Success,
			"score":   res.Score,
		})
	}

	elapsed := time.Since(start).Seconds()
	acc := accuracy(perTask)
	classMean := classMeanAccuracy(perTask, acc)

	summary := map[string]any{
		"num_tasks":           len(perTask),
		"accuracy":            round3(acc),
		"class_mean_accuracy": round3(classMean),
		"time_used_sec":       round3(elapsed),
		"tool_server":         toolsBase,
	}

	r.persistRun(ctx, RunRecord{
		ID:                runID,
		ParticipantURL:    participant,
		ToolServer:        toolsBase,
		NumTasks:          len(perTask),
		Accuracy:          round3(acc),
		ClassMeanAccuracy: round3(classMean),
		TimeUsedSec:       round3(elapsed),
		CreatedAt:         start,
	}, perTask, summary)

	emit(map[string]any{
		"event":   schema.EventAssessmentFinished,
		"run_id":  runID,
		"summary": summary,
	})
	log.Printf("evaluator: run %d (%s) finished: accuracy=%.3f class_mean=%.3f elapsed=%.1fs", runSeq, runID, acc, classMean, elapsed)

	return &schema.AssessmentResult{
		PurpleAgentURL: participant,
		PerTask:        perTask,
		Summary:        summary,
	}, nil
}

// fetchCatalog retrieves the tool hub's descriptor list once per run.
func (r *Runner) fetchCatalog(ctx context.Context, toolsBase string) (schema.ToolCatalog, error) {
	var catalog schema.ToolCatalog
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, toolsBase+"/tools", nil)
	if err != nil {
		return catalog, err
	}
	resp, err := r.catalogClient.Do(req)
	if err != nil {
		return catalog, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return catalog, fmt.Errorf("tool hub returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&catalog); err != nil {
		return catalog, fmt.Errorf("decode tool catalog: %w", err)
	}
	if catalog.BaseURL == "" {
		catalog.BaseURL = toolsBase
	}
	return catalog, nil
}

// dispatchTask POSTs one task to the participant and decodes its answer.
func (r *Runner) dispatchTask(ctx context.Context, participant string, task schema.Task, catalog schema.ToolCatalog) (schema.Answer, error) {
	var answer schema.Answer
	body, err := json.Marshal(schema.TaskRequest{Task: task, ToolsSpec: catalog})
	if err != nil {
		return answer, fmt.Errorf("marshal task request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, participant+"/task", bytes.NewReader(body))
	if err != nil {
		return answer, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.participantClient.Do(req)
	if err != nil {
		return answer, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return answer, fmt.Errorf("participant returned status %d: %s", resp.StatusCode, msg)
	}
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return answer, fmt.Errorf("decode participant answer: %w", err)
	}
	return answer, nil
}

// persistRun writes local artifacts, saves history and uploads remote copies.
// Each failure is recorded as a note in the summary and logged, never fatal.
func (r *Runner) persistRun(ctx context.Context, rec RunRecord, perTask []schema.PerTaskResult, summary map[string]any) {
	perTaskData, err := renderPerTask(perTask)
	if err != nil {
		summary["artifact_write_error"] = err.Error()
		log.Printf("evaluator: render per-task artifact: %v", err)
		return
	}
	summaryData, err := renderSummary(summary)
	if err != nil {
		summary["artifact_write_error"] = err.Error()
		log.Printf("evaluator: render summary artifact: %v", err)
		return
	}

	if err := writeArtifacts(r.outputDir, summaryData, perTaskData); err != nil {
		summary["artifact_write_error"] = err.Error()
		log.Printf("evaluator: write artifacts: %v", err)
	}

	if r.history != nil {
		if err := r.history.SaveRun(ctx, rec, perTask); err != nil {
			summary["history_write_error"] = err.Error()
			log.Printf("evaluator: save run history: %v", err)
		}
	}

	if r.uploader != nil {
		prefix := rec.ID + "/"
		if err := r.uploader.Upload(ctx, prefix+"summary.json", summaryData); err != nil {
			summary["artifact_upload_error"] = err.Error()
			log.Printf("evaluator: upload summary.json: %v", err)
		} else if err := r.uploader.Upload(ctx, prefix+"per_task.jsonl", perTaskData); err != nil {
			summary["artifact_upload_error"] = err.Error()
			log.Printf("evaluator: upload per_task.jsonl: %v", err)
		}
	}
}

// accuracy is the success fraction over all results.
func accuracy(results []schema.PerTaskResult) float64 {
	if len(results) == 0 {
		return 0
	}
	ok := 0
	for _, res := range results {
		if res.Success {
			ok++
		}
	}
	return float64(ok) / float64(len(results))
}

// classMeanAccuracy is the unweighted mean of per-category success rates, so
// small categories count as much as large ones. Falls back to the raw
// accuracy when no result carries a category.
func classMeanAccuracy(results []schema.PerTaskResult, fallback float64) float64 {
	totals := map[string]int{}
	hits := map[string]int{}
	for _, res := range results {
		if res.Category == "" {
			continue
		}
		totals[res.Category]++
		if res.Success {
			hits[res.Category]++
		}
	}
	if len(totals) == 0 {
		return fallback
	}

	cats := make([]string, 0, len(totals))
	for cat := range totals {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	sum := 0.0
	for _, cat := range cats {
		sum += float64(hits[cat]) / float64(totals[cat])
	}
	return sum / float64(len(cats))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
