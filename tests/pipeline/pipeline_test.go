// Package pipeline provides integration tests for the full dashboard flow:
// authenticate -> fetch -> normalize -> render, over a real HTTP client
// against a fake Dimensions API.
package pipeline

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aurin/impact-dashboard/internal/dashboard"
	"github.com/aurin/impact-dashboard/internal/dimensions"
	"github.com/aurin/impact-dashboard/internal/observability"
	httpserver "github.com/aurin/impact-dashboard/internal/server/http"
	"github.com/aurin/impact-dashboard/internal/widgets"
)

const validKey = "valid-api-key"

// newFakeDimensions serves the two-step Dimensions protocol: key exchange
// on /api/auth.json, DSL queries on /api/dsl.json.
func newFakeDimensions(t *testing.T, dslCalls *atomic.Int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/api/auth.json", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Key string `json:"key"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Key != validKey {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"token":"jwt-token"}`)
	})

	mux.HandleFunc("/api/dsl.json", func(w http.ResponseWriter, r *http.Request) {
		if dslCalls != nil {
			dslCalls.Add(1)
		}
		if r.Header.Get("Authorization") != "JWT jwt-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"publications": [
				{"id": "pub.1", "title": "Urban Heat Islands", "type": "article", "year": 2024,
				 "date": "2024-04-10", "times_cited": 10,
				 "journal": {"id": "jour.1", "title": "Urban Studies"},
				 "authors": [{"first_name": "Ada", "last_name": "Nguyen"}],
				 "research_orgs": [{"id": "grid.1", "name": "AURIN"}],
				 "research_org_countries": [{"id": "AU", "name": "Australia"}]},
				{"id": "pub.2", "title": "Transit Access", "year": 2023, "date": "2023-11-02", "times_cited": 3},
				{"id": "pub.3", "title": "Housing Supply", "year": 2023, "date": "2023-06-15", "times_cited": 7,
				 "research_orgs": [{"id": "grid.1", "name": "AURIN"}]},
				{"id": "pub.4", "year": 2022, "times_cited": 0},
				{"id": "pub.5", "title": "Water Networks", "year": 2021, "date": "2021-02-01", "times_cited": 25}
			],
			"_stats": {"total_count": 5}
		}`)
	})

	return httptest.NewServer(mux)
}

var metricsSeq atomic.Int64

func newDashboardServer(t *testing.T, baseURL string) *httptest.Server {
	t.Helper()

	client := dimensions.New(dimensions.Config{
		BaseURL:   baseURL,
		Timeout:   5 * time.Second,
		RateLimit: 100,
		BurstSize: 10,
		PageSize:  1000,
	})
	builder := widgets.NewBuilder(widgets.Config{
		TopCitedCount:      5,
		RecentPapersCount:  5,
		RecentWindowMonths: 6,
		TrendGranularity:   "month",
		HistogramBins:      20,
	})
	metrics := observability.NewMetrics(fmt.Sprintf("dashboard_pipeline_test_%d", metricsSeq.Add(1)))
	service := dashboard.NewService(client, builder, metrics, zerolog.Nop())

	// NewServer only builds the router; Start is never called, so the
	// listen address is unused.
	srv := httpserver.NewServer(httpserver.Config{
		Address:      "127.0.0.1:0",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  5 * time.Second,
	}, service, metrics, zerolog.Nop())

	return httptest.NewServer(srv.Router())
}

func TestDashboardPipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	var dslCalls atomic.Int64
	upstream := newFakeDimensions(t, &dslCalls)
	defer upstream.Close()

	api := newDashboardServer(t, upstream.URL)
	defer api.Close()

	t.Run("full load renders all widgets", func(t *testing.T) {
		resp, err := http.Post(api.URL+"/api/v1/sessions", "application/json",
			strings.NewReader(fmt.Sprintf(`{"api_key":%q}`, validKey)))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var session struct {
			SessionID string `json:"session_id"`
			State     string `json:"state"`
			RowCount  int    `json:"row_count"`
			Skipped   int    `json:"skipped_records"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
		assert.Equal(t, "ready", session.State)
		assert.Equal(t, 4, session.RowCount, "the record without a title is dropped")
		assert.Equal(t, 1, session.Skipped)

		req, err := http.NewRequest(http.MethodGet, api.URL+"/api/v1/dashboard", nil)
		require.NoError(t, err)
		req.Header.Set("X-Session-ID", session.SessionID)

		dashResp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer dashResp.Body.Close()
		require.Equal(t, http.StatusOK, dashResp.StatusCode)

		var body struct {
			State    string `json:"state"`
			Elements []struct {
				Kind  string `json:"kind"`
				Title string `json:"title"`
				Tiles []struct {
					Label string `json:"label"`
					Value int    `json:"value"`
				} `json:"tiles"`
				Table *struct {
					Rows [][]string `json:"rows"`
				} `json:"table"`
				Bars []struct {
					Label string `json:"label"`
					Count int    `json:"count"`
				} `json:"bars"`
				Regions []struct {
					ISO3  string `json:"iso3"`
					Count int    `json:"count"`
				} `json:"regions"`
			} `json:"elements"`
		}
		require.NoError(t, json.NewDecoder(dashResp.Body).Decode(&body))
		require.Len(t, body.Elements, 8)

		tiles := body.Elements[0].Tiles
		require.Len(t, tiles, 4)
		assert.Equal(t, 4, tiles[0].Value)
		assert.Equal(t, 45, tiles[1].Value)

		topCited := body.Elements[1].Table
		require.NotNil(t, topCited)
		require.NotEmpty(t, topCited.Rows)
		assert.Equal(t, "Water Networks", topCited.Rows[0][0])

		require.NotEmpty(t, body.Elements[2].Bars)
		assert.Equal(t, "AURIN", body.Elements[2].Bars[0].Label)
		assert.Equal(t, 2, body.Elements[2].Bars[0].Count)

		require.NotEmpty(t, body.Elements[3].Regions)
		assert.Equal(t, "AUS", body.Elements[3].Regions[0].ISO3)
	})

	t.Run("refresh re-queries the source", func(t *testing.T) {
		resp, err := http.Post(api.URL+"/api/v1/sessions", "application/json",
			strings.NewReader(fmt.Sprintf(`{"api_key":%q}`, validKey)))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var session struct {
			SessionID string `json:"session_id"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))

		before := dslCalls.Load()

		req, err := http.NewRequest(http.MethodPost, api.URL+"/api/v1/dashboard/refresh", nil)
		require.NoError(t, err)
		req.Header.Set("X-Session-ID", session.SessionID)

		refreshResp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer refreshResp.Body.Close()
		require.Equal(t, http.StatusOK, refreshResp.StatusCode)

		assert.Equal(t, before+1, dslCalls.Load())
	})

	t.Run("invalid key fails the session with an authentication error", func(t *testing.T) {
		resp, err := http.Post(api.URL+"/api/v1/sessions", "application/json",
			strings.NewReader(`{"api_key":"wrong-key"}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var session struct {
			SessionID string `json:"session_id"`
			State     string `json:"state"`
			ErrorKind string `json:"error_kind"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
		assert.Equal(t, "failed", session.State)
		assert.Equal(t, "authentication", session.ErrorKind)

		req, err := http.NewRequest(http.MethodGet, api.URL+"/api/v1/dashboard", nil)
		require.NoError(t, err)
		req.Header.Set("X-Session-ID", session.SessionID)

		dashResp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer dashResp.Body.Close()
		require.Equal(t, http.StatusOK, dashResp.StatusCode)

		var body struct {
			State    string            `json:"state"`
			Elements []json.RawMessage `json:"elements"`
		}
		require.NoError(t, json.NewDecoder(dashResp.Body).Decode(&body))
		assert.Equal(t, "failed", body.State)
		assert.Empty(t, body.Elements)
	})
}
