package toolhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// SearchResult is one search hit in backend-provided rank order.
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// SearchBackend queries a web search provider.
type SearchBackend interface {
	Search(ctx context.Context, query string, topN int) ([]SearchResult, error)
}

const searchTimeout = 30 * time.Second

// ─── SerpAPI (paid) backend ─────────────────────────────────────────────────

// SerpAPIBackend queries SerpAPI's Google engine.
type SerpAPIBackend struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewSerpAPIBackend creates a SerpAPI backend with a 30s timeout.
func NewSerpAPIBackend(apiKey string) *SerpAPIBackend {
	return &SerpAPIBackend{
		apiKey:  apiKey,
		baseURL: "https://serpapi.com",
		client:  &http.Client{Timeout: searchTimeout},
	}
}

type serpAPIResponse struct {
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}

// Search issues GET /search.json and returns up to topN organic results.
func (b *SerpAPIBackend) Search(ctx context.Context, query string, topN int) ([]SearchResult, error) {
	if topN <= 0 {
		topN = 5
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("engine", "google")
	q.Set("api_key", b.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/search.json?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("serpapi: build request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serpapi: status %d", resp.StatusCode)
	}

	var decoded serpAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("serpapi: decode response: %w", err)
	}

	out := make([]SearchResult, 0, topN)
	for _, item := range decoded.OrganicResults {
		if len(out) == topN {
			break
		}
		out = append(out, SearchResult{Title: item.Title, Link: item.Link, Snippet: item.Snippet})
	}
	return out, nil
}

// ─── DuckDuckGo (free fallback) backend ─────────────────────────────────────

// DuckDuckGoBackend scrapes the DuckDuckGo HTML endpoint. Used when no
// SerpAPI key is configured.
type DuckDuckGoBackend struct {
	baseURL string
	client  *http.Client
}

// NewDuckDuckGoBackend creates the free fallback backend.
func NewDuckDuckGoBackend() *DuckDuckGoBackend {
	return &DuckDuckGoBackend{
		baseURL: "https://html.duckduckgo.com",
		client:  &http.Client{Timeout: searchTimeout},
	}
}

// Search issues GET /html/ and extracts result anchors and snippets.
func (b *DuckDuckGoBackend) Search(ctx context.Context, query string, topN int) ([]SearchResult, error) {
	if topN <= 0 {
		topN = 5
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		b.baseURL+"/html/?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: build request: %w", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo: status %d", resp.StatusCode)
	}

	root, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: parse response: %w", err)
	}
	return parseDuckDuckGoResults(root, topN), nil
}

// parseDuckDuckGoResults walks the result page: each hit is an anchor with
// class result__a (title + link), optionally followed by a result__snippet
// element attached to the most recent hit.
func parseDuckDuckGoResults(root *html.Node, topN int) []SearchResult {
	var out []SearchResult
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			class := attrValue(n, "class")
			switch {
			case n.Data == "a" && strings.Contains(class, "result__a"):
				if len(out) >= topN {
					return
				}
				out = append(out, SearchResult{
					Title: nodeText(n),
					Link:  resolveDuckDuckGoHref(attrValue(n, "href")),
				})
			case strings.Contains(class, "result__snippet"):
				if len(out) > 0 && out[len(out)-1].Snippet == "" {
					out[len(out)-1].Snippet = nodeText(n)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

// resolveDuckDuckGoHref unwraps the /l/?uddg= redirect DuckDuckGo wraps
// result links in. Unwrappable hrefs are returned as-is.
func resolveDuckDuckGoHref(href string) string {
	if !strings.Contains(href, "uddg=") {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
