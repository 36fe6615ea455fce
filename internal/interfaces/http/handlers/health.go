package handlers

import (
	"net/http"
	"time"

	httpContracts "github.com/anujsainicse/cloudflare-tunnel/internal/http"
)

// Health handles GET /health. Healthy means the store answers a liveness
// probe and the allow-list is non-empty. The check dials the store directly,
// bypassing the circuit breaker, so recovery is observable while the breaker
// is still open.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	db := h.connect(r.Context())
	defer db.Close()

	dbOK := db.IsConnected(r.Context())
	if dbOK {
		h.countConnect("success")
	} else {
		h.countConnect("failure")
	}

	doc := h.allowed.Load()
	configOK := len(doc.Allowed) > 0

	status := "unhealthy"
	if dbOK && configOK {
		status = "healthy"
	}

	database := "disconnected"
	if dbOK {
		database = "connected"
	}
	configuration := "empty"
	if configOK {
		configuration = "loaded"
	}

	h.writeJSON(w, http.StatusOK, httpContracts.HealthResponse{
		Status:           status,
		Database:         database,
		Configuration:    configuration,
		AvailableTickers: len(doc.Allowed),
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
	})
}
