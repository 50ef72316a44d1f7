package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// progressTimeout bounds a single progress POST. Progress delivery is
// best-effort and must never slow a run down meaningfully.
const progressTimeout = 5 * time.Second

// Notifier POSTs progress payloads to an external listener URL. A Notifier
// with an empty URL is valid and discards everything. Delivery failures are
// logged and swallowed: progress must never fail an assessment.
type Notifier struct {
	url    string
	client *http.Client
}

// NewNotifier returns a Notifier for the given listener URL, which may be
// empty.
func NewNotifier(url string) *Notifier {
	return &Notifier{
		url:    url,
		client: &http.Client{Timeout: progressTimeout},
	}
}

// Notify delivers one progress payload. Never returns an error.
func (n *Notifier) Notify(ctx context.Context, payload map[string]any) {
	if n == nil || n.url == "" {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("progress: marshal failed: %v", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		log.Printf("progress: request build failed: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		log.Printf("progress: delivery to %s failed: %v", n.url, err)
		return
	}
	resp.Body.Close()
}
