package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mohammad-safakhou/plexy/models"
)

const apiURL = "https://api.tavily.com/search"

type Search struct {
	APIKey     string
	Depth      string // basic or advanced
	MaxResults int
	Timeout    time.Duration
	BaseURL    string // overrides apiURL, used in tests
}

func (s Search) Search(ctx context.Context, q string) ([]models.Document, error) {
	// https://docs.tavily.com/ search endpoint
	payload := map[string]any{
		"api_key":             s.APIKey,
		"query":               q,
		"search_depth":        s.Depth,
		"include_answer":      false,
		"include_raw_content": true,
		"max_results":         s.MaxResults,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := apiURL
	if s.BaseURL != "" {
		url = s.BaseURL
	}
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

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
		return nil, fmt.Errorf("tavily returned status: %d", resp.StatusCode)
	}

	var raw struct {
		Results []struct {
			Title      string  `json:"title"`
			URL        string  `json:"url"`
			Content    string  `json:"content"`
			RawContent string  `json:"raw_content"`
			Score      float64 `json:"score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	out := make([]models.Document, 0, len(raw.Results))
	for _, r := range raw.Results {
		// Prefer full page text over the snippet summary.
		content := r.RawContent
		if content == "" {
			content = r.Content
		}
		out = append(out, models.Document{
			Title:   r.Title,
			URL:     r.URL,
			Content: content,
			Score:   r.Score,
		})
	}
	return out, nil
}
