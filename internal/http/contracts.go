// Package http is the public read-only surface: a thin routing shell over
// the allow-list gate and the options database.
package http

import (
	"github.com/anujsainicse/cloudflare-tunnel/internal/options"
	"github.com/anujsainicse/cloudflare-tunnel/internal/policy"
)

// RootResponse is the GET / payload.
type RootResponse struct {
	Service               string            `json:"service"`
	Status                string            `json:"status"`
	Description           string            `json:"description"`
	AvailableCombinations int               `json:"available_combinations"`
	Endpoints             map[string]string `json:"endpoints"`
}

// TickerResponse is the GET /ticker/{asset}/{expiry} payload.
type TickerResponse struct {
	Asset     string           `json:"asset"`
	Expiry    string           `json:"expiry"`
	Timestamp string           `json:"timestamp"`
	Summary   options.Summary  `json:"summary"`
	Options   []options.Record `json:"options"`
}

// ConfigResponse is the GET /config payload.
type ConfigResponse struct {
	Configuration  policy.Document `json:"configuration"`
	DatabaseStatus string          `json:"database_status"`
	DatabaseStats  options.Stats   `json:"database_stats"`
	LastUpdated    string          `json:"last_updated"`
}

// HealthResponse is the GET /health payload.
type HealthResponse struct {
	Status           string `json:"status"`
	Database         string `json:"database"`
	Configuration    string `json:"configuration"`
	AvailableTickers int    `json:"available_tickers"`
	Timestamp        string `json:"timestamp"`
}

// ErrorResponse is the standard error payload for every non-2xx outcome.
type ErrorResponse struct {
	Error     string `json:"error"`
	Detail    string `json:"detail"`
	RequestID string `json:"request_id,omitempty"`
}
