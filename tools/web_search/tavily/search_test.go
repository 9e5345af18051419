package tavily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearch_Normalization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if req["query"] != "go generics" {
			t.Errorf("unexpected query: %v", req["query"])
		}
		if req["include_raw_content"] != true {
			t.Error("expected raw content retrieval to be enabled")
		}
		if req["max_results"].(float64) != 20 {
			t.Errorf("unexpected max_results: %v", req["max_results"])
		}
		_, _ = w.Write([]byte(`{
			"results": [
				{"title": "A", "url": "http://a.com", "content": "snippet", "raw_content": "full text", "score": 0.9},
				{"title": "B", "url": "http://b.com", "content": "only snippet", "score": 0.5},
				{"url": "http://c.com"}
			]
		}`))
	}))
	defer srv.Close()

	s := Search{APIKey: "k", Depth: "advanced", MaxResults: 20, BaseURL: srv.URL}
	docs, err := s.Search(context.Background(), "go generics")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 docs, got %d", len(docs))
	}
	if docs[0].Content != "full text" {
		t.Errorf("raw content should win over snippet, got %q", docs[0].Content)
	}
	if docs[1].Content != "only snippet" {
		t.Errorf("snippet fallback failed, got %q", docs[1].Content)
	}
	if docs[2].Title != "" || docs[2].Content != "" || docs[2].Score != 0 {
		t.Errorf("missing fields should default to zero values: %+v", docs[2])
	}
}

func TestSearch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := Search{APIKey: "k", BaseURL: srv.URL}
	if _, err := s.Search(context.Background(), "x"); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}
