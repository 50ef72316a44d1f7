// Package schema defines the wire types shared by the tool hub, the
// participant agent and the evaluator. Field names follow the harness wire
// format (snake_case JSON); YAML tags exist so task files can be authored in
// either format.
package schema

// Expected-result type tags.
const (
	ExpectedNumeric  = "numeric"
	ExpectedBeatMiss = "beat_miss"
)

// DefaultTolerance is the absolute tolerance for the numeric grading branch
// when the task does not override it.
const DefaultTolerance = 0.5

// RubricItem is a named, weighted grading criterion attached to a task.
// Weights are carried for extension; the current grader does not consume them.
type RubricItem struct {
	ID     string  `json:"id" yaml:"id"`
	Desc   string  `json:"desc" yaml:"desc"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// Constraints bounds what the participant may do while solving a task.
type Constraints struct {
	AllowedTools  []string `json:"allowed_tools" yaml:"allowed_tools"`
	MaxSteps      int      `json:"max_steps" yaml:"max_steps"`
	TimeBudgetSec int      `json:"time_budget_sec" yaml:"time_budget_sec"`
}

// EvidencePolicy is a task's rules on citations and acceptable source domains.
// MustCite is a pointer so that an absent field defaults to true.
type EvidencePolicy struct {
	AllowedDomains []string `json:"allowed_domains,omitempty" yaml:"allowed_domains,omitempty"`
	MustCite       *bool    `json:"must_cite,omitempty" yaml:"must_cite,omitempty"`
}

// CitationRequired reports whether the task mandates at least one cited source.
func (p EvidencePolicy) CitationRequired() bool {
	return p.MustCite == nil || *p.MustCite
}

// AnswerContract describes the shape the participant's final answer must take.
type AnswerContract struct {
	FinalPrefix        string `json:"final_prefix" yaml:"final_prefix"`
	RequireSourcesDict *bool  `json:"require_sources_dict,omitempty" yaml:"require_sources_dict,omitempty"`
}

// Expected is the tagged expected-result specification driving the grading
// branch: Type "numeric" uses Value/Tolerance, "beat_miss" uses Result and the
// optional Consensus.
type Expected struct {
	Type      string   `json:"type" yaml:"type"`
	Value     float64  `json:"value,omitempty" yaml:"value,omitempty"`
	Tolerance float64  `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`
	Result    string   `json:"result,omitempty" yaml:"result,omitempty"`
	Consensus *float64 `json:"consensus,omitempty" yaml:"consensus,omitempty"`
}

// ToleranceOrDefault returns the task's numeric tolerance, falling back to
// DefaultTolerance when unset.
func (e Expected) ToleranceOrDefault() float64 {
	if e.Tolerance > 0 {
		return e.Tolerance
	}
	return DefaultTolerance
}

// Task is one finance research question with grading criteria and constraints.
// Immutable once dispatched.
type Task struct {
	TaskID         string         `json:"task_id" yaml:"task_id"`
	Category       string         `json:"category" yaml:"category"`
	Question       string         `json:"question" yaml:"question"`
	Constraints    Constraints    `json:"constraints" yaml:"constraints"`
	EvidencePolicy EvidencePolicy `json:"evidence_policy" yaml:"evidence_policy"`
	AnswerContract AnswerContract `json:"answer_contract" yaml:"answer_contract"`
	Rubrics        []RubricItem   `json:"rubrics" yaml:"rubrics"`
	ContextURLs    []string       `json:"context_urls,omitempty" yaml:"context_urls,omitempty"`
	Expected       *Expected      `json:"expected,omitempty" yaml:"expected,omitempty"`
}

// ApplyDefaults fills zero-valued fields with the harness defaults. Called
// after decoding a task from JSON or YAML.
func (t *Task) ApplyDefaults() {
	if t.Constraints.MaxSteps == 0 {
		t.Constraints.MaxSteps = 50
	}
	if t.Constraints.TimeBudgetSec == 0 {
		t.Constraints.TimeBudgetSec = 600
	}
	if t.AnswerContract.FinalPrefix == "" {
		t.AnswerContract.FinalPrefix = "FINAL ANSWER:"
	}
	for i := range t.Rubrics {
		if t.Rubrics[i].Weight == 0 {
			t.Rubrics[i].Weight = 0.25
		}
	}
}

// SourceItem is one cited source reference.
type SourceItem struct {
	URL  string `json:"url" yaml:"url"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// ToolStats carries per-tool invocation counts for one participant run.
type ToolStats struct {
	Calls map[string]int `json:"calls"`
}

// Answer is the participant's structured output for one task.
type Answer struct {
	FinalAnswer string           `json:"final_answer"`
	Sources     []SourceItem     `json:"sources"`
	WorkNotes   string           `json:"work_notes,omitempty"`
	ToolTrace   []map[string]any `json:"tool_trace,omitempty"`
	ToolStats   *ToolStats       `json:"tool_stats,omitempty"`
}

// PerTaskResult is one graded task: success/score plus the diagnostic detail
// mapping and the embedded answer. Immutable after creation.
type PerTaskResult struct {
	TaskID   string         `json:"task_id"`
	Category string         `json:"category"`
	Success  bool           `json:"success"`
	Score    float64        `json:"score"`
	Details  map[string]any `json:"details"`
	Answer   Answer         `json:"answer"`
}

// AssessmentResult aggregates one evaluation run. PerTask order matches task
// dispatch order.
type AssessmentResult struct {
	PurpleAgentURL string          `json:"purple_agent_url"`
	PerTask        []PerTaskResult `json:"per_task"`
	Summary        map[string]any  `json:"summary"`
}

// ToolDescriptor is one entry in the tool hub catalog.
type ToolDescriptor struct {
	Name string `json:"name"`
	Desc string `json:"desc"`
}

// ToolCatalog is the tool hub's address plus its fixed descriptor list,
// fetched once per run by the evaluator and forwarded to the participant.
type ToolCatalog struct {
	BaseURL string           `json:"base_url"`
	Tools   []ToolDescriptor `json:"tools"`
}

// ToolCallRequest is one tool invocation: name, named arguments and the
// context identifier scoping the key-value store.
type ToolCallRequest struct {
	Tool      string         `json:"tool"`
	Args      map[string]any `json:"args"`
	ContextID string         `json:"context_id,omitempty"`
}

// ToolCallResponse wraps a successful tool result.
type ToolCallResponse struct {
	OK     bool `json:"ok"`
	Result any  `json:"result"`
}

// TaskRequest is the evaluator→participant payload: the task plus the tool
// catalog forwarded verbatim.
type TaskRequest struct {
	Task      Task        `json:"task"`
	ToolsSpec ToolCatalog `json:"tools_spec"`
}

// AssessRequest starts an evaluation run. WhiteAgentURL is a legacy alias for
// PurpleAgentURL kept for backwards compatibility.
type AssessRequest struct {
	PurpleAgentURL string `json:"purple_agent_url,omitempty"`
	WhiteAgentURL  string `json:"white_agent_url,omitempty"`
	Tasks          []Task `json:"tasks"`
	ToolsBaseURL   string `json:"tools_base_url,omitempty"`
	ProgressURL    string `json:"progress_url,omitempty"`
}

// ParticipantURL resolves the participant address, preferring the current
// field name over the legacy alias.
func (r AssessRequest) ParticipantURL() string {
	if r.PurpleAgentURL != "" {
		return r.PurpleAgentURL
	}
	return r.WhiteAgentURL
}

// Progress event names, delivered in this order for a single run.
const (
	EventAssessmentStarted  = "assessment_started"
	EventTaskStarted        = "task_started"
	EventTaskFinished       = "task_finished"
	EventAssessmentFinished = "assessment_finished"
)
