package participant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agentify/finbench/internal/schema"
)

func TestToolClient_Call(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/call" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req schema.ToolCallRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Tool != "kv_put" || req.ContextID != "task-1" {
			t.Errorf("unexpected request: %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok": true, "result": {"ok": true, "keys": ["k"]}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewToolClient(schema.ToolCatalog{BaseURL: srv.URL}, "task-1")

	raw, err := client.Call(context.Background(), "kv_put", map[string]any{"key": "k", "value": "v"})
	if err != nil {
		t.Fatalf("Call returned error: %v", err)
	}

	var result struct {
		OK   bool     `json:"ok"`
		Keys []string `json:"keys"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if !result.OK || len(result.Keys) != 1 {
		t.Errorf("unexpected result: %+v", result)
	}

	if client.Stats()["kv_put"] != 1 {
		t.Errorf("Stats = %v; want kv_put counted once", client.Stats())
	}
}

func TestToolClient_ErrorStatus_NotCounted(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "unknown tool"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewToolClient(schema.ToolCatalog{BaseURL: srv.URL}, "task-1")

	if _, err := client.Call(context.Background(), "no_such_tool", nil); err == nil {
		t.Fatal("expected error for 404 response")
	}
	if len(client.Stats()) != 0 {
		t.Errorf("failed calls must not be counted: %v", client.Stats())
	}
}
