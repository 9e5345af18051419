package crawl4ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mohammad-safakhou/plexy/models"
)

// Fetch talks to a crawl4ai service: submit a crawl job, then poll its
// status until completion or the deadline.
type Fetch struct {
	BaseURL      string
	APIToken     string
	PollInterval time.Duration
	Timeout      time.Duration
}

func (f Fetch) Fetch(ctx context.Context, url string) (string, error) {
	taskID, err := f.submit(ctx, url)
	if err != nil {
		return "", err
	}

	interval := f.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 240 * time.Second
	}
	deadline := time.Now().Add(timeout)

	for {
		if time.Now().After(deadline) {
			return "", fmt.Errorf("%w: %s", models.ErrFetchTimeout, url)
		}

		status, err := f.poll(ctx, taskID)
		if err != nil {
			return "", err
		}
		switch status.Status {
		case "completed":
			return status.Result.Markdown, nil
		case "failed":
			reason := status.Error
			if reason == "" {
				reason = "unknown"
			}
			return "", fmt.Errorf("%w: %s: %s", models.ErrFetchFailed, url, reason)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (f Fetch) submit(ctx context.Context, url string) (string, error) {
	body, err := json.Marshal(map[string]any{"urls": url, "priority": 10})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", f.BaseURL+"/crawl", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	f.auth(req)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("crawl submit returned status: %d", resp.StatusCode)
	}

	var raw struct {
		TaskID string `json:"task_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if raw.TaskID == "" {
		return "", fmt.Errorf("crawl submit returned no task id")
	}
	return raw.TaskID, nil
}

type taskStatus struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Result struct {
		Markdown string `json:"markdown"`
	} `json:"result"`
}

func (f Fetch) poll(ctx context.Context, taskID string) (taskStatus, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", f.BaseURL+"/task/"+taskID, nil)
	if err != nil {
		return taskStatus{}, fmt.Errorf("failed to create request: %w", err)
	}
	f.auth(req)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return taskStatus{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return taskStatus{}, fmt.Errorf("crawl poll returned status: %d", resp.StatusCode)
	}

	var status taskStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return taskStatus{}, fmt.Errorf("failed to parse response: %w", err)
	}
	return status, nil
}

func (f Fetch) auth(req *http.Request) {
	if f.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIToken)
	}
}
