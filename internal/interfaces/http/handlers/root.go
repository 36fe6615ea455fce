package handlers

import (
	"net/http"

	httpContracts "github.com/anujsainicse/cloudflare-tunnel/internal/http"
)

// Root handles GET / with service metadata.
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	doc := h.allowed.Load()

	h.writeJSON(w, http.StatusOK, httpContracts.RootResponse{
		Service:               "Options Ticker Tunnel API",
		Status:                "running",
		Description:           "Public API serving filtered options data",
		AvailableCombinations: len(doc.Allowed),
		Endpoints: map[string]string{
			"ticker":  "/ticker/{asset}/{expiry}",
			"config":  "/config",
			"health":  "/health",
			"metrics": "/metrics",
		},
	})
}
