// Package neows fetches feed pages from the NASA NeoWs close-approach API.
package neows

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/lunardrift/neo-tracker/internal/domain"
	"github.com/lunardrift/neo-tracker/internal/observability"
)

// Client issues time-windowed feed requests. It performs no retries;
// the collection driver owns retry policy.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a feed client with the configured timeout and key.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     logger,
		metrics:    metrics,
	}
}

// FetchWindow requests the inclusive calendar range [start, end] and returns
// the decoded page. Any transport failure, non-2xx status, or undecodable
// body is returned as an error; the window is never partially consumed.
func (c *Client) FetchWindow(ctx context.Context, start, end time.Time) (*domain.FeedPage, error) {
	startStr := start.Format(time.DateOnly)
	endStr := end.Format(time.DateOnly)

	params := url.Values{
		"start_date": {startStr},
		"end_date":   {endStr},
		"api_key":    {c.apiKey},
	}

	began := time.Now()
	page, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode())
	c.metrics.FetchDuration.Observe(time.Since(began).Seconds())

	if err != nil {
		c.metrics.FetchRequests.WithLabelValues("error").Inc()
		c.logger.Error("feed fetch failed", "start_date", startStr, "end_date", endStr, "error", err)
		return nil, err
	}

	c.metrics.FetchRequests.WithLabelValues("success").Inc()
	c.logger.Info("fetched feed window",
		"start_date", startStr,
		"end_date", endStr,
		"element_count", page.ElementCount,
	)
	return page, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (*domain.FeedPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("feed API error: status %d: %s", resp.StatusCode, body)
	}

	var page domain.FeedPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode feed page: %w", err)
	}
	return &page, nil
}
