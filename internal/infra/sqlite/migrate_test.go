package sqlite

import (
	"database/sql"
	"testing"
)

func assertTableExists(t *testing.T, db *sql.DB, tableName string) {
	t.Helper()
	var name string
	err := db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name = ?", tableName,
	).Scan(&name)
	if err != nil {
		t.Fatalf("table %q does not exist: %v", tableName, err)
	}
}

func TestMigrateUpCreatesSchema(t *testing.T) {
	db := mustOpenDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}

	assertTableExists(t, db, "schema_migrations")
	assertTableExists(t, db, "runs")
	assertTableExists(t, db, "task_results")
}

func TestMigrateUpIsIdempotent(t *testing.T) {
	db := mustOpenDB(t)

	if err := MigrateUp(db); err != nil {
		t.Fatalf("first MigrateUp() error = %v", err)
	}
	if err := MigrateUp(db); err != nil {
		t.Fatalf("second MigrateUp() error = %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count != 1 {
		t.Fatalf("schema_migrations has %d rows after double migrate, want 1", count)
	}
}

func TestVersionFromFilename(t *testing.T) {
	cases := map[string]int{
		"001_init_schema.up.sql": 1,
		"012_add_index.up.sql":   12,
		"noprefix.up.sql":        0,
	}
	for name, want := range cases {
		if got := versionFromFilename(name); got != want {
			t.Errorf("versionFromFilename(%q) = %d, want %d", name, got, want)
		}
	}
}

func TestTaskResultsCascadeDelete(t *testing.T) {
	db := mustOpenDB(t)
	if err := MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}

	_, err := db.Exec(`INSERT INTO runs (id, participant_url, tool_server, num_tasks, accuracy, class_mean_accuracy, time_used_sec, created_at)
		VALUES ('r1', 'http://agent', 'http://hub', 1, 1.0, 1.0, 0.5, '2026-08-01T00:00:00Z')`)
	if err != nil {
		t.Fatalf("insert run: %v", err)
	}
	_, err = db.Exec(`INSERT INTO task_results (run_id, position, task_id, category, success, score, details, final_answer)
		VALUES ('r1', 0, 't1', 'numerical', 1, 1.0, '{}', 'FINAL ANSWER: 1.0 USD billions.')`)
	if err != nil {
		t.Fatalf("insert task result: %v", err)
	}

	if _, err := db.Exec("DELETE FROM runs WHERE id = 'r1'"); err != nil {
		t.Fatalf("delete run: %v", err)
	}
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM task_results WHERE run_id = 'r1'").Scan(&count); err != nil {
		t.Fatalf("count task results: %v", err)
	}
	if count != 0 {
		t.Fatalf("task_results rows after cascade delete = %d, want 0", count)
	}
}
