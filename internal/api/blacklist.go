package api

import (
	"log/slog"
	"net/http"

	"github.com/Clownyz/rentals-bot/internal/model"
	"github.com/Clownyz/rentals-bot/internal/rental"
)

// BlacklistHandler serves the blacklist endpoint.
type BlacklistHandler struct {
	Rentals *rental.Service
}

// List handles GET /api/blacklist.
func (h *BlacklistHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Rentals.ListBlacklist(r.Context())
	if err != nil {
		slog.Error("failed to list blacklist", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list blacklist")
		return
	}
	if entries == nil {
		entries = []model.BlacklistEntry{}
	}
	jsonResponse(w, http.StatusOK, entries)
}
