package crawl4ai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mohammad-safakhou/plexy/models"
)

func TestFetch_CompletedAfterPolling(t *testing.T) {
	var polls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "POST" && r.URL.Path == "/crawl":
			if got := r.Header.Get("Authorization"); got != "Bearer tok" {
				t.Errorf("unexpected auth header: %q", got)
			}
			_, _ = w.Write([]byte(`{"task_id": "t1"}`))
		case r.Method == "GET" && r.URL.Path == "/task/t1":
			if atomic.AddInt32(&polls, 1) < 2 {
				_, _ = w.Write([]byte(`{"status": "processing"}`))
				return
			}
			_, _ = w.Write([]byte(`{"status": "completed", "result": {"markdown": "# Page"}}`))
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	f := Fetch{BaseURL: srv.URL, APIToken: "tok", PollInterval: time.Millisecond, Timeout: time.Second}
	text, err := f.Fetch(context.Background(), "http://a.com")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if text != "# Page" {
		t.Fatalf("unexpected text: %q", text)
	}
	if atomic.LoadInt32(&polls) < 2 {
		t.Fatalf("expected at least 2 polls, got %d", polls)
	}
}

func TestFetch_Failed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/crawl" {
			_, _ = w.Write([]byte(`{"task_id": "t1"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status": "failed", "error": "blocked"}`))
	}))
	defer srv.Close()

	f := Fetch{BaseURL: srv.URL, PollInterval: time.Millisecond, Timeout: time.Second}
	_, err := f.Fetch(context.Background(), "http://a.com")
	if !errors.Is(err, models.ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/crawl" {
			_, _ = w.Write([]byte(`{"task_id": "t1"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status": "processing"}`))
	}))
	defer srv.Close()

	f := Fetch{BaseURL: srv.URL, PollInterval: time.Millisecond, Timeout: 20 * time.Millisecond}
	_, err := f.Fetch(context.Background(), "http://a.com")
	if !errors.Is(err, models.ErrFetchTimeout) {
		t.Fatalf("expected ErrFetchTimeout, got %v", err)
	}
}

func TestFetch_EmptyMarkdownIsAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/crawl" {
			_, _ = w.Write([]byte(`{"task_id": "t1"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status": "completed", "result": {}}`))
	}))
	defer srv.Close()

	f := Fetch{BaseURL: srv.URL, PollInterval: time.Millisecond, Timeout: time.Second}
	text, err := f.Fetch(context.Background(), "http://a.com")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty text, got %q", text)
	}
}
