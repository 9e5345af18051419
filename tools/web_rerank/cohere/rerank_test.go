package cohere

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRerank_ReturnsIndices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("unexpected auth header: %q", got)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if req["model"] != "rerank-v3.5" {
			t.Errorf("unexpected model: %v", req["model"])
		}
		if req["top_n"].(float64) != 2 {
			t.Errorf("unexpected top_n: %v", req["top_n"])
		}
		_, _ = w.Write([]byte(`{
			"results": [
				{"index": 2, "relevance_score": 0.98},
				{"index": 0, "relevance_score": 0.52}
			]
		}`))
	}))
	defer srv.Close()

	c := Rerank{APIKey: "key", Model: "rerank-v3.5", BaseURL: srv.URL}
	indices, err := c.Rerank(context.Background(), "q", []string{"a", "b", "c"}, 2)
	if err != nil {
		t.Fatalf("rerank: %v", err)
	}
	if len(indices) != 2 || indices[0] != 2 || indices[1] != 0 {
		t.Fatalf("unexpected indices: %v", indices)
	}
}

func TestRerank_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := Rerank{APIKey: "key", Model: "rerank-v3.5", BaseURL: srv.URL}
	if _, err := c.Rerank(context.Background(), "q", []string{"a"}, 1); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}
