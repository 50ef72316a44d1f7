// Package evaluator grades participant answers and orchestrates assessment
// runs: task dispatch, scoring, progress events and artifact persistence.
package evaluator

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/agentify/finbench/internal/schema"
)

// Answer-text extraction patterns. These operate on free-form model output and
// are kept as pure text-in/value-out helpers so they stay directly testable.
var (
	billionsClaimRe = regexp.MustCompile(`(?i)(\d+(\.\d+)?)\s*(?:USD\s*)?billions?`)
	epsClaimRe      = regexp.MustCompile(`(?i)eps[^$]*\$(\d+(\.\d+)?)`)
)

// parseBillionsClaim extracts the first "<number> [USD] billion(s)" claim from
// answer text, or nil when absent.
func parseBillionsClaim(text string) *float64 {
	m := billionsClaimRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &v
}

// classifyBeatMiss labels answer text "beat", "miss" or "unknown" by literal
// word presence. Beat is checked first: when both words appear, beat wins —
// the participant applies the same tie-break.
func classifyBeatMiss(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "beat"):
		return "beat"
	case strings.Contains(lower, "miss"):
		return "miss"
	default:
		return "unknown"
	}
}

// extractEPSClaim pulls the first "EPS ... $<number>" figure from answer text,
// or nil when absent.
func extractEPSClaim(text string) *float64 {
	m := epsClaimRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &v
}

// Grade scores one answer against the task's expected-result specification and
// evidence policy. Pure function of its inputs: no I/O, no clock, no state.
func Grade(task schema.Task, answer schema.Answer) schema.PerTaskResult {
	success := false
	score := 0.0
	details := map[string]any{}

	switch {
	case task.Expected != nil && task.Expected.Type == schema.ExpectedNumeric:
		success, score = gradeNumeric(*task.Expected, answer, details)
	case task.Expected != nil && task.Expected.Type == schema.ExpectedBeatMiss:
		success, score = gradeBeatMiss(*task.Expected, answer, details)
	}

	score = applyEvidencePenalties(task.EvidencePolicy, answer, score, details)

	return schema.PerTaskResult{
		TaskID:   task.TaskID,
		Category: task.Category,
		Success:  success,
		Score:    score,
		Details:  details,
		Answer:   answer,
	}
}

// gradeNumeric compares the answer's billions claim against the expected value
// within an absolute tolerance. Parsed and expected values are recorded in
// details regardless of outcome.
func gradeNumeric(exp schema.Expected, answer schema.Answer, details map[string]any) (bool, float64) {
	parsed := parseBillionsClaim(answer.FinalAnswer)

	if parsed != nil {
		details["parsed_value_bil"] = *parsed
	} else {
		details["parsed_value_bil"] = nil
	}
	details["expected_value_bil"] = exp.Value

	if parsed != nil && math.Abs(*parsed-exp.Value) <= exp.ToleranceOrDefault() {
		return true, 1.0
	}
	return false, 0.0
}

// gradeBeatMiss checks the classification against the expected result and,
// when both an EPS figure and a consensus exist, the directional agreement.
// A check that cannot be performed does not block success; an explicit
// directional contradiction does.
func gradeBeatMiss(exp schema.Expected, answer schema.Answer, details map[string]any) (bool, float64) {
	want := strings.ToLower(exp.Result)
	classified := classifyBeatMiss(answer.FinalAnswer)
	details["classified"] = classified
	okClass := classified == want

	eps := extractEPSClaim(answer.FinalAnswer)
	var directionOK any
	if eps != nil && exp.Consensus != nil {
		directionOK = ((*eps - *exp.Consensus) > 0) == (want == "beat")
	}
	if eps != nil {
		details["eps"] = *eps
	} else {
		details["eps"] = nil
	}
	if exp.Consensus != nil {
		details["consensus"] = *exp.Consensus
	} else {
		details["consensus"] = nil
	}
	details["direction_ok"] = directionOK

	success := okClass && directionOK != false
	if success {
		return true, 1.0
	}
	return false, 0.0
}

// applyEvidencePenalties multiplies the score by 0.5 for a missing mandatory
// citation and again by 0.5 for any cited URL outside the allow-list, so both
// together leave 0.25 of the base score. The citation check wants at least one
// source with a non-empty URL; the allow-list check runs over every cited
// source as a permissive substring match against the whole URL string, not a
// parsed-host match.
func applyEvidencePenalties(policy schema.EvidencePolicy, answer schema.Answer, score float64, details map[string]any) float64 {
	urlCited := false
	for _, s := range answer.Sources {
		if s.URL != "" {
			urlCited = true
			break
		}
	}

	if policy.CitationRequired() && !urlCited {
		score *= 0.5
		details["penalty_missing_sources"] = true
	}

	if len(policy.AllowedDomains) > 0 && len(answer.Sources) > 0 {
		var bad []string
		for _, s := range answer.Sources {
			if !containsAnyDomain(s.URL, policy.AllowedDomains) {
				bad = append(bad, s.URL)
			}
		}
		if len(bad) > 0 {
			score *= 0.5
			details["penalty_disallowed_domains"] = bad
		}
	}

	return score
}

func containsAnyDomain(url string, domains []string) bool {
	for _, dom := range domains {
		if strings.Contains(url, dom) {
			return true
		}
	}
	return false
}
