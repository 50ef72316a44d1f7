package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentify/finbench/internal/schema"
)

// ArtifactUploader pushes a serialized artifact to remote storage under the
// given object name. Implemented by the object-store adapter; nil disables
// uploads.
type ArtifactUploader interface {
	Upload(ctx context.Context, name string, data []byte) error
}

// renderSummary serializes the run summary as indented JSON.
func renderSummary(summary map[string]any) ([]byte, error) {
	return json.MarshalIndent(summary, "", "  ")
}

// renderPerTask serializes per-task results as JSON Lines, one result per
// line in dispatch order.
func renderPerTask(results []schema.PerTaskResult) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, res := range results {
		if err := enc.Encode(res); err != nil {
			return nil, fmt.Errorf("encode per-task result %s: %w", res.TaskID, err)
		}
	}
	return buf.Bytes(), nil
}

// writeArtifacts persists summary.json and per_task.jsonl under dir, creating
// the directory if needed.
func writeArtifacts(dir string, summary, perTask []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "summary.json"), summary, 0o644); err != nil {
		return fmt.Errorf("write summary.json: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "per_task.jsonl"), perTask, 0o644); err != nil {
		return fmt.Errorf("write per_task.jsonl: %w", err)
	}
	return nil
}
