package handlers

import (
	"net/http"
	"time"

	httpContracts "github.com/anujsainicse/cloudflare-tunnel/internal/http"
	"github.com/anujsainicse/cloudflare-tunnel/internal/options"
)

// Config handles GET /config: the current allow-list plus a store
// connectivity and statistics snapshot.
func (h *Handlers) Config(w http.ResponseWriter, r *http.Request) {
	doc := h.allowed.Load()

	status := "disconnected"
	stats := options.Stats{Error: "database not connected"}

	if db, err := h.acquire(r.Context()); err == nil {
		defer db.Close()
		status = "connected"
		stats = db.GetStats(r.Context())
	}

	h.writeJSON(w, http.StatusOK, httpContracts.ConfigResponse{
		Configuration:  doc,
		DatabaseStatus: status,
		DatabaseStats:  stats,
		LastUpdated:    time.Now().UTC().Format(time.RFC3339),
	})
}
