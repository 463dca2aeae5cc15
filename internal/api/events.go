package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Clownyz/rentals-bot/internal/model"
	"github.com/Clownyz/rentals-bot/internal/rental"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// EventsHandler serves the rental history and proof queue endpoints.
type EventsHandler struct {
	Rentals *rental.Service
}

// List handles GET /api/events?limit=N, newest first.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		limit = min(n, maxEventLimit)
	}

	events, err := h.Rentals.Events(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list events", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	jsonResponse(w, http.StatusOK, events)
}

// PendingProofs handles GET /api/proofs.
func (h *EventsHandler) PendingProofs(w http.ResponseWriter, r *http.Request) {
	proofs, err := h.Rentals.PendingProofs(r.Context())
	if err != nil {
		slog.Error("failed to list proofs", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list proofs")
		return
	}
	if proofs == nil {
		proofs = []model.Proof{}
	}
	jsonResponse(w, http.StatusOK, proofs)
}
