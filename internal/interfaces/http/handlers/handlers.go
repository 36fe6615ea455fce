// Package handlers implements the facade endpoints. Every handler that
// touches the store acquires a fresh request-scoped database and releases it
// on all exit paths.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	httpContracts "github.com/anujsainicse/cloudflare-tunnel/internal/http"
	"github.com/anujsainicse/cloudflare-tunnel/internal/options"
	"github.com/anujsainicse/cloudflare-tunnel/internal/policy"
	"github.com/anujsainicse/cloudflare-tunnel/internal/store"
)

var errStoreUnavailable = errors.New("store unavailable")

// ConnectFunc builds a request-scoped database. The returned Database is
// always non-nil; connectivity is checked separately.
type ConnectFunc func(ctx context.Context) *options.Database

// Config wires the handlers' collaborators.
type Config struct {
	Allowed *policy.AllowList
	Connect ConnectFunc

	// Optional metrics hooks.
	StoreConnects *prometheus.CounterVec
	BreakerOpen   prometheus.Gauge
}

// Handlers manages all HTTP endpoint handlers.
type Handlers struct {
	allowed       *policy.AllowList
	connect       ConnectFunc
	breaker       *gobreaker.CircuitBreaker
	storeConnects *prometheus.CounterVec
	breakerOpen   prometheus.Gauge
}

// New creates the handlers. A nil Connect falls back to the default store
// connection policy with no caller overrides.
func New(cfg Config) *Handlers {
	if cfg.Allowed == nil {
		cfg.Allowed = policy.New("")
	}
	if cfg.Connect == nil {
		cfg.Connect = func(ctx context.Context) *options.Database {
			return options.Connect(ctx, store.Overrides{})
		}
	}

	h := &Handlers{
		allowed:       cfg.Allowed,
		connect:       cfg.Connect,
		storeConnects: cfg.StoreConnects,
		breakerOpen:   cfg.BreakerOpen,
	}

	h.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "store-connect",
		MaxRequests: 1,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("store breaker state change")
			if h.breakerOpen != nil {
				if to == gobreaker.StateOpen {
					h.breakerOpen.Set(1)
				} else {
					h.breakerOpen.Set(0)
				}
			}
		},
	})

	return h
}

// acquire obtains a connected request-scoped database through the circuit
// breaker. Repeated candidate-list exhaustion opens the breaker and later
// requests fail fast without dialing.
func (h *Handlers) acquire(ctx context.Context) (*options.Database, error) {
	db, err := h.breaker.Execute(func() (interface{}, error) {
		db := h.connect(ctx)
		if !db.IsConnected(ctx) {
			db.Close()
			h.countConnect("failure")
			return nil, errStoreUnavailable
		}
		h.countConnect("success")
		return db, nil
	})
	if err != nil {
		return nil, err
	}
	return db.(*options.Database), nil
}

func (h *Handlers) countConnect(outcome string) {
	if h.storeConnects != nil {
		h.storeConnects.WithLabelValues(outcome).Inc()
	}
}

// writeJSON writes a JSON response, falling back to a plain 500 when
// encoding fails.
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("response encoding failed")
		http.Error(w, `{"error":"json_encoding_failed"}`, http.StatusInternalServerError)
	}
}

// writeError writes the standardized error payload.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, detail string) {
	requestID, _ := r.Context().Value("request_id").(string)
	h.writeJSON(w, status, httpContracts.ErrorResponse{
		Error:     http.StatusText(status),
		Detail:    detail,
		RequestID: requestID,
	})
}

// NotFound handles requests for unknown routes.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, http.StatusNotFound, "The requested endpoint does not exist")
}
