// Package participant implements the agent under test: it gathers evidence
// through the tool hub and produces a structured answer with simple
// text-pattern heuristics.
package participant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/agentify/finbench/internal/schema"
)

const toolCallTimeout = 90 * time.Second

// toolCaller is the solver's view of the tool hub.
type toolCaller interface {
	Call(ctx context.Context, tool string, args map[string]any) (json.RawMessage, error)
	Stats() map[string]int
}

// ToolClient invokes hub tools over HTTP, scoping every call to one context
// identifier and counting invocations per tool name.
type ToolClient struct {
	baseURL    string
	contextID  string
	stats      map[string]int
	httpClient *http.Client
}

// NewToolClient creates a client for the hub advertised in catalog. All calls
// carry contextID so the task's key-value entries stay private to it.
func NewToolClient(catalog schema.ToolCatalog, contextID string) *ToolClient {
	return &ToolClient{
		baseURL:    catalog.BaseURL,
		contextID:  contextID,
		stats:      make(map[string]int),
		httpClient: &http.Client{Timeout: toolCallTimeout},
	}
}

// Call posts one tool invocation and returns the raw result payload.
// Successful calls increment the per-tool counter.
func (c *ToolClient) Call(ctx context.Context, tool string, args map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(schema.ToolCallRequest{Tool: tool, Args: args, ContextID: c.contextID})
	if err != nil {
		return nil, fmt.Errorf("tool call %s: marshal request: %w", tool, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/call", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tool call %s: build request: %w", tool, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tool call %s: %w", tool, err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("tool call %s: status %d", tool, resp.StatusCode)
	}

	var decoded struct {
		OK     bool            `json:"ok"`
		Result json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("tool call %s: decode response: %w", tool, err)
	}

	c.stats[tool]++
	return decoded.Result, nil
}

// Stats returns the per-tool invocation counts accumulated so far.
func (c *ToolClient) Stats() map[string]int {
	return c.stats
}
