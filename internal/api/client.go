// Package api implements the client for the external REST/query layer that
// lists and inspects backend runs. The layer itself is an external
// collaborator; only its read surface is consumed here.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/jobsync/internal/interfaces"
	"github.com/ternarybob/jobsync/internal/models"
)

// Client is an HTTP implementation of interfaces.JobAPI.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     arbor.ILogger
}

// NewClient creates a JobAPI client for the given backend base URL.
func NewClient(baseURL, token string, timeout time.Duration, logger arbor.ILogger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// GetJob fetches one run's current status by run ID. A 404 maps to
// interfaces.ErrJobNotFound so callers can distinguish "gone" from "failed".
func (c *Client) GetJob(ctx context.Context, runID string) (*models.RunStatusMessage, error) {
	endpoint := fmt.Sprintf("%s/api/runs/%s", c.baseURL, url.PathEscape(runID))

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var run models.RunStatusMessage
	if err := json.Unmarshal(body, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run status: %w", err)
	}
	if run.RunID == "" {
		run.RunID = runID
	}
	return &run, nil
}

// GetQueueStats fetches the unified queue statistics snapshot.
func (c *Client) GetQueueStats(ctx context.Context) (*models.QueueStats, error) {
	endpoint := fmt.Sprintf("%s/api/queue/stats", c.baseURL)

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var stats models.QueueStats
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal queue stats: %w", err)
	}
	if stats.Timestamp.IsZero() {
		stats.Timestamp = time.Now()
	}
	return &stats, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, interfaces.ErrJobNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}
