package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	httpContracts "github.com/anujsainicse/cloudflare-tunnel/internal/http"
	"github.com/anujsainicse/cloudflare-tunnel/internal/options"
)

// Ticker handles GET /ticker/{asset}/{expiry}. The allow-list is consulted
// before any store access: a rejected combination never dials the store.
func (h *Handlers) Ticker(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	asset, expiry := vars["asset"], vars["expiry"]

	if !h.allowed.IsAllowed(asset, expiry) {
		h.writeError(w, r, http.StatusNotFound,
			fmt.Sprintf("Ticker/date combination %s/%s is not available", asset, expiry))
		return
	}

	db, err := h.acquire(r.Context())
	if err != nil {
		h.writeError(w, r, http.StatusServiceUnavailable, "Database connection failed")
		return
	}
	defer db.Close()

	records := db.GetByExpiry(r.Context(), expiry, asset)

	h.writeJSON(w, http.StatusOK, httpContracts.TickerResponse{
		Asset:     strings.ToUpper(asset),
		Expiry:    expiry,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Summary:   options.Summarize(records),
		Options:   records,
	})
}
