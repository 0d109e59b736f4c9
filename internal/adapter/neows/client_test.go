package neows

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunardrift/neo-tracker/internal/domain"
	"github.com/lunardrift/neo-tracker/internal/observability"
)

const testAPIKey = "test-key"

func testClient(baseURL string) *Client {
	return &Client{
		apiKey:     testAPIKey,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:    observability.NewMetricsForTesting(),
	}
}

func window() (time.Time, time.Time) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 6)
}

func TestClient_FetchWindow_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-01-01", r.URL.Query().Get("start_date"))
		assert.Equal(t, "2024-01-07", r.URL.Query().Get("end_date"))
		assert.Equal(t, testAPIKey, r.URL.Query().Get("api_key"))

		page := domain.FeedPage{
			ElementCount: 1,
			NearEarthObjects: map[string][]domain.RawNEORecord{
				"2024-01-01": {{ID: "3542519", Name: "(2010 PK9)"}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(page))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	start, end := window()
	page, err := c.FetchWindow(context.Background(), start, end)
	require.NoError(t, err)

	assert.Equal(t, 1, page.ElementCount)
	require.Contains(t, page.NearEarthObjects, "2024-01-01")
	assert.Equal(t, "3542519", page.NearEarthObjects["2024-01-01"][0].ID)
}

func TestClient_FetchWindow_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"upstream down"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	start, end := window()
	page, err := c.FetchWindow(context.Background(), start, end)
	require.Error(t, err)
	assert.Nil(t, page)
	assert.Contains(t, err.Error(), "500")
}

func TestClient_FetchWindow_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	start, end := window()
	_, err := c.FetchWindow(context.Background(), start, end)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestClient_FetchWindow_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{not valid json"))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	start, end := window()
	_, err := c.FetchWindow(context.Background(), start, end)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode feed page")
}

func TestClient_FetchWindow_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.httpClient.Timeout = 50 * time.Millisecond
	start, end := window()
	_, err := c.FetchWindow(context.Background(), start, end)
	require.Error(t, err)
}

func TestClient_FetchWindow_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := testClient(srv.URL)
	start, end := window()
	_, err := c.FetchWindow(ctx, start, end)
	require.Error(t, err)
}
