package http

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anujsainicse/cloudflare-tunnel/internal/config"
)

func testServer(t *testing.T, rps float64, burst int) *Server {
	t.Helper()

	allowedPath := filepath.Join(t.TempDir(), "allowed_tickers.json")
	require.NoError(t, os.WriteFile(allowedPath,
		[]byte(`{"allowed": [{"asset": "BTC", "expiry": "29DEC23"}]}`), 0o644))

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.AllowedTickersFile = allowedPath
	cfg.RateLimit.RPS = rps
	cfg.RateLimit.Burst = burst

	return NewServer(cfg)
}

func TestServer_RootEndpoint(t *testing.T) {
	s := testServer(t, 100, 100)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Contains(t, rec.Body.String(), "Options Ticker Tunnel API")
	assert.Contains(t, rec.Body.String(), `"available_combinations":1`)
}

func TestServer_UnknownRoute(t *testing.T) {
	s := testServer(t, 100, 100)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	s := testServer(t, 100, 100)

	// Generate one sample first.
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tunnelapi_requests_total")
}

func TestServer_RequestCounting(t *testing.T) {
	s := testServer(t, 100, 100)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	snapshot := s.Metrics().Snapshot()
	assert.Equal(t, 3.0, snapshot["tunnelapi_requests_total{route=/,status=200}"])
}

func TestServer_RateLimiting(t *testing.T) {
	s := testServer(t, 1, 1)

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.9:4000"

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	snapshot := s.Metrics().Snapshot()
	assert.GreaterOrEqual(t, snapshot["tunnelapi_rate_limited_total"], 1.0)
}

func TestServer_CORSPreflight(t *testing.T) {
	s := testServer(t, 100, 100)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest("OPTIONS", "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.True(t, strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), "GET"))
}
