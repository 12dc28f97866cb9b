// Package tempo provides a client for interacting with the Grafana Tempo distributed tracing backend.
package tempo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"replaytrace/internal/timeline"
)

// Client implements HTTP interaction with the Tempo API to fetch traces.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limit      int
	logger     *slog.Logger
}

// NewClient creates a new Tempo client. limit caps the number of traces per search.
func NewClient(baseURL string, timeout time.Duration, limit int, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if limit <= 0 {
		limit = 100
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limit:  limit,
		logger: logger,
	}
}

// doRequest performs the HTTP request to Tempo via HTTP API
func (c *Client) doRequest(ctx context.Context, apiPath string, params url.Values) ([]byte, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	u.Path = apiPath
	if params != nil {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tempo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code from tempo: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return body, nil
}

// Search runs a TraceQL query over [start, end] and returns the matching trace summaries.
func (c *Client) Search(ctx context.Context, query string, start, end time.Time) ([]TraceSummary, error) {
	params := url.Values{
		"q":     []string{query},
		"start": []string{strconv.FormatInt(start.Unix(), 10)},
		"end":   []string{strconv.FormatInt(end.Unix(), 10)},
		"limit": []string{strconv.Itoa(c.limit)},
	}

	resp, err := c.doRequest(ctx, "/api/search", params)
	if err != nil {
		c.logger.Error("Failed to search traces", "query", query, "error", err)
		return nil, err
	}

	var searchResult SearchResponse
	if err := json.Unmarshal(resp, &searchResult); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	return searchResult.Traces, nil
}

// SearchReplayTraces fetches the traces started during a replay as trace table
// events. Explicit trace IDs take precedence over the replay ID tag.
func (c *Client) SearchReplayTraces(ctx context.Context, replayID string, traceIDs []string, start, end time.Time) ([]timeline.Event, error) {
	query := BuildReplayQuery(replayID)
	if len(traceIDs) > 0 {
		query = BuildTraceIDsQuery(traceIDs)
	}

	traces, err := c.Search(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	if len(traces) >= c.limit {
		c.logger.Warn("Trace search hit the limit, trace table may be missing traces",
			"replayID", replayID, "limit", c.limit)
	}

	events := make([]timeline.Event, 0, len(traces))
	for _, t := range traces {
		if t.StartNanos() == 0 {
			c.logger.Warn("Skipping trace without start time", "traceID", t.TraceID)
			continue
		}
		events = append(events, t.Event())
	}

	c.logger.Debug("Fetched replay traces", "replayID", replayID, "count", len(events))
	return events, nil
}
