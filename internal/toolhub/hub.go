// Package toolhub implements the shared tool service: a fixed catalog of
// evidence-gathering and utility tools dispatched by exact name, plus the
// context-scoped key-value store.
package toolhub

import (
	"context"
	"errors"
	"fmt"

	"github.com/agentify/finbench/internal/schema"
)

var (
	// ErrUnknownTool is returned when the requested tool name is not in the catalog.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrContextRequired is returned by kv operations without a context_id.
	ErrContextRequired = errors.New("context_id required")
	// ErrNoSearchBackend is returned when no search backend is configured.
	ErrNoSearchBackend = errors.New("no search backend available")
)

// Tool names, matched exactly by Call.
const (
	ToolSearch  = "google_search"
	ToolFetch   = "http_fetch"
	ToolParse   = "html_parse"
	ToolKVPut   = "kv_put"
	ToolKVGet   = "kv_get"
	ToolExtract = "finance_calc_extract_first_billions"
)

// handler executes one named tool against its decoded arguments.
type handler func(ctx context.Context, args map[string]any, contextID string) (any, error)

// Hub is the tool service. It holds the only shared mutable state of the
// harness (the key-value store) and dispatches tool calls by name.
type Hub struct {
	baseURL  string
	search   SearchBackend
	fetcher  *Fetcher
	kv       *KVStore
	handlers map[string]handler
}

// New creates a Hub advertising baseURL in its catalog. A nil search backend
// makes google_search fail with ErrNoSearchBackend.
func New(baseURL string, search SearchBackend) *Hub {
	h := &Hub{
		baseURL: baseURL,
		search:  search,
		fetcher: NewFetcher(),
		kv:      NewKVStore(),
	}
	h.handlers = map[string]handler{
		ToolSearch:  h.handleSearch,
		ToolFetch:   h.handleFetch,
		ToolParse:   h.handleParse,
		ToolKVPut:   h.handleKVPut,
		ToolKVGet:   h.handleKVGet,
		ToolExtract: h.handleExtract,
	}
	return h
}

// Catalog returns the fixed tool catalog. No side effects.
func (h *Hub) Catalog() schema.ToolCatalog {
	return schema.ToolCatalog{
		BaseURL: h.baseURL,
		Tools: []schema.ToolDescriptor{
			{Name: ToolSearch, Desc: "Web search (SerpAPI or DDG)"},
			{Name: ToolFetch, Desc: "HTTP GET content"},
			{Name: ToolParse, Desc: "Parse HTML to text/links/tables"},
			{Name: ToolKVPut, Desc: "KV set (per context_id)"},
			{Name: ToolKVGet, Desc: "KV get (per context_id)"},
			{Name: ToolExtract, Desc: "Extract first $X billion/million from text"},
		},
	}
}

// Call dispatches one tool invocation by exact name match.
func (h *Hub) Call(ctx context.Context, tool string, args map[string]any, contextID string) (any, error) {
	fn, ok := h.handlers[tool]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, tool)
	}
	if args == nil {
		args = map[string]any{}
	}
	return fn(ctx, args, contextID)
}

// Reset clears the key-value store back to its initial state. Idempotent.
func (h *Hub) Reset() {
	h.kv.Reset()
}

func (h *Hub) handleSearch(ctx context.Context, args map[string]any, _ string) (any, error) {
	if h.search == nil {
		return nil, ErrNoSearchBackend
	}
	query := argString(args, "query")
	topN := argInt(args, "top_n", 5)
	results, err := h.search.Search(ctx, query, topN)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return results, nil
}

func (h *Hub) handleFetch(ctx context.Context, args map[string]any, _ string) (any, error) {
	url := argString(args, "url")
	if url == "" {
		return nil, fmt.Errorf("fetch: url is required")
	}
	timeout := argInt(args, "timeout", 30)
	return h.fetcher.Fetch(ctx, url, timeout)
}

func (h *Hub) handleParse(_ context.Context, args map[string]any, _ string) (any, error) {
	return ParseHTML(argString(args, "html"))
}

func (h *Hub) handleKVPut(_ context.Context, args map[string]any, contextID string) (any, error) {
	return h.kv.Put(contextID, argString(args, "key"), args["value"])
}

func (h *Hub) handleKVGet(_ context.Context, args map[string]any, contextID string) (any, error) {
	return h.kv.Get(contextID, argString(args, "key"))
}

func (h *Hub) handleExtract(_ context.Context, args map[string]any, _ string) (any, error) {
	return ExtractFirstBillions(argString(args, "text")), nil
}

// argString reads a string argument; missing or non-string values yield "".
func argString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// argInt reads an integer argument, accepting the float64 that JSON decoding
// produces for numbers. Missing or invalid values yield the default.
func argInt(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}
