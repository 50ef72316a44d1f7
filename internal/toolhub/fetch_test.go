package toolhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetcher_TextContent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "finbench/0.1" {
			t.Errorf("User-Agent = %q", got)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>hello</body></html>")) //nolint:errcheck
	}))
	defer srv.Close()

	got, err := NewFetcher().Fetch(context.Background(), srv.URL, 5)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if got.Status != http.StatusOK {
		t.Errorf("Status = %d", got.Status)
	}
	if got.Text == nil || *got.Text != "<html><body>hello</body></html>" {
		t.Errorf("Text = %v", got.Text)
	}
	if got.BytesLen != nil {
		t.Error("BytesLen must be absent for text responses")
	}
}

func TestFetcher_BinaryContent(t *testing.T) {
	t.Parallel()

	payload := []byte{0x25, 0x50, 0x44, 0x46}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(payload) //nolint:errcheck
	}))
	defer srv.Close()

	got, err := NewFetcher().Fetch(context.Background(), srv.URL, 5)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if got.Text != nil {
		t.Error("Text must be absent for binary responses")
	}
	if got.BytesLen == nil || *got.BytesLen != len(payload) {
		t.Errorf("BytesLen = %v; want %d", got.BytesLen, len(payload))
	}
}

func TestFetcher_NonSuccessStatus_Fails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := NewFetcher().Fetch(context.Background(), srv.URL, 5); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestFetcher_ConnectionRefused_Fails(t *testing.T) {
	t.Parallel()

	// Grab a port that is guaranteed closed.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	if _, err := NewFetcher().Fetch(context.Background(), url, 2); err == nil {
		t.Fatal("expected error for refused connection")
	}
}
