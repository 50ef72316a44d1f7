package toolhub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const fetchUserAgent = "finbench/0.1"

// Fetcher issues outbound GET requests for the http_fetch tool.
// No retry: network and HTTP errors propagate as failures.
type Fetcher struct {
	client *http.Client
}

// NewFetcher returns a Fetcher. Timeouts are applied per call via context so
// the caller-supplied timeout argument is honored.
func NewFetcher() *Fetcher {
	return &Fetcher{client: &http.Client{}}
}

// FetchResult carries either decoded text (text/html content types) or a
// byte-length placeholder (binary content types) — never both, to bound
// payload size.
type FetchResult struct {
	Status      int     `json:"status"`
	ContentType string  `json:"content_type"`
	Text        *string `json:"text,omitempty"`
	BytesLen    *int    `json:"bytes_len,omitempty"`
}

// Fetch issues a GET to rawURL with the given timeout in seconds.
// Non-2xx statuses are failures.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, timeoutSec int) (FetchResult, error) {
	if timeoutSec <= 0 {
		timeoutSec = 30
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return FetchResult{}, fmt.Errorf("fetch %s: build request: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return FetchResult{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return FetchResult{}, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FetchResult{}, fmt.Errorf("fetch %s: read body: %w", rawURL, err)
	}

	result := FetchResult{
		Status:      resp.StatusCode,
		ContentType: strings.ToLower(resp.Header.Get("Content-Type")),
	}
	if strings.Contains(result.ContentType, "html") || strings.Contains(result.ContentType, "text") {
		text := string(body)
		result.Text = &text
	} else {
		n := len(body)
		result.BytesLen = &n
	}
	return result, nil
}
