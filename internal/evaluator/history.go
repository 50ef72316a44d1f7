package evaluator

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agentify/finbench/internal/schema"
)

// RunRecord is the persisted header of one assessment run.
type RunRecord struct {
	ID                string    `json:"id"`
	ParticipantURL    string    `json:"participant_url"`
	ToolServer        string    `json:"tool_server"`
	NumTasks          int       `json:"num_tasks"`
	Accuracy          float64   `json:"accuracy"`
	ClassMeanAccuracy float64   `json:"class_mean_accuracy"`
	TimeUsedSec       float64   `json:"time_used_sec"`
	CreatedAt         time.Time `json:"created_at"`
}

// HistoryStore persists run summaries and per-task results. All writes are
// append-only; runs are never updated after insertion.
type HistoryStore struct {
	db *sql.DB
}

// NewHistoryStore creates a history store over an already-migrated database.
func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// SaveRun inserts one run header plus its per-task rows in a single
// transaction. Row position preserves task dispatch order.
func (s *HistoryStore) SaveRun(ctx context.Context, rec RunRecord, perTask []schema.PerTaskResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save run: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, participant_url, tool_server, num_tasks, accuracy, class_mean_accuracy, time_used_sec, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ParticipantURL, rec.ToolServer, rec.NumTasks,
		rec.Accuracy, rec.ClassMeanAccuracy, rec.TimeUsedSec,
		rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", rec.ID, err)
	}

	for i, res := range perTask {
		details, err := json.Marshal(res.Details)
		if err != nil {
			return fmt.Errorf("marshal details for task %s: %w", res.TaskID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO task_results (run_id, position, task_id, category, success, score, details, final_answer)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, i, res.TaskID, res.Category, res.Success, res.Score,
			string(details), res.Answer.FinalAnswer,
		)
		if err != nil {
			return fmt.Errorf("insert task result %s: %w", res.TaskID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save run: %w", err)
	}
	return nil
}

// ListRuns returns up to limit run headers, newest first.
func (s *HistoryStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, participant_url, tool_server, num_tasks, accuracy, class_mean_accuracy, time_used_sec, created_at
		FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		var createdAt string
		if err := rows.Scan(
			&rec.ID, &rec.ParticipantURL, &rec.ToolServer, &rec.NumTasks,
			&rec.Accuracy, &rec.ClassMeanAccuracy, &rec.TimeUsedSec, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
			rec.CreatedAt = ts
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}
