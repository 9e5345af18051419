package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const apiURL = "https://api.cohere.com/v2/rerank"

type Rerank struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	BaseURL string // used in tests
}

func (c Rerank) Rerank(ctx context.Context, query string, texts []string, topN int) ([]int, error) {
	// https://docs.cohere.com/reference/rerank
	payload := map[string]any{
		"model":     c.Model,
		"query":     query,
		"documents": texts,
		"top_n":     topN,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := apiURL
	if c.BaseURL != "" {
		url = c.BaseURL
	}
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	timeout := c.Timeout
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
		return nil, fmt.Errorf("cohere returned status: %d", resp.StatusCode)
	}

	var raw struct {
		Results []struct {
			Index          int     `json:"index"`
			RelevanceScore float64 `json:"relevance_score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	indices := make([]int, 0, len(raw.Results))
	for _, r := range raw.Results {
		indices = append(indices, r.Index)
	}
	return indices, nil
}
