package brave

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mohammad-safakhou/plexy/models"
	"github.com/mohammad-safakhou/plexy/utils"
)

type Search struct {
	APIKey     string
	MaxResults int
	Timeout    time.Duration
	BaseURL    string // used in tests
}

func (s Search) Search(ctx context.Context, q string) ([]models.Document, error) {
	// https://api.search.brave.com/app/documentation/web-search
	base := s.BaseURL
	if base == "" {
		base = "https://api.search.brave.com/res/v1/web/search"
	}
	url := fmt.Sprintf("%s?q=%s&count=%d", base, utils.UrlQuery(q), s.MaxResults)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", s.APIKey)

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave returned status: %d", resp.StatusCode)
	}

	var raw struct {
		Web struct {
			Results []struct {
				Title   string `json:"title"`
				URL     string `json:"url"`
				Snippet string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	var out []models.Document
	for i, r := range raw.Web.Results {
		if s.MaxResults > 0 && i >= s.MaxResults {
			break
		}
		// Brave reports no relevance score; leave it at zero.
		out = append(out, models.Document{Title: r.Title, URL: r.URL, Content: r.Snippet})
	}
	return out, nil
}
