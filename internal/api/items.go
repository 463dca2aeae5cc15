package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Clownyz/rentals-bot/internal/model"
	"github.com/Clownyz/rentals-bot/internal/rental"
)

// ItemsHandler serves the item listing endpoints.
type ItemsHandler struct {
	Rentals *rental.Service
}

// Listing handles GET /api/listing.
func (h *ItemsHandler) Listing(w http.ResponseWriter, r *http.Request) {
	listing, err := h.Rentals.Listing(r.Context())
	if err != nil {
		slog.Error("failed to build listing", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to build listing")
		return
	}
	jsonResponse(w, http.StatusOK, listing)
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	listing, err := h.Rentals.Listing(r.Context())
	if err != nil {
		slog.Error("failed to list items", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	jsonResponse(w, http.StatusOK, listing.Items)
}

// Get handles GET /api/items/{name}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.Rentals.GetItem(r.Context(), r.PathValue("name"))
	if errors.Is(err, rental.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	if err != nil {
		slog.Error("failed to get item", "item", r.PathValue("name"), "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}

	st := rental.ItemStatus(item, h.Rentals.Now())
	jsonResponse(w, http.StatusOK, rental.ListedItem{
		Item:        item,
		Status:      st.Kind.String(),
		StatusLabel: st.Label(),
		HoursLeft:   st.HoursLeft,
	})
}

// History handles GET /api/items/{name}/history. Deleted items keep their
// history; a name that never had any events is reported as not found.
func (h *ItemsHandler) History(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	events, err := h.Rentals.History(r.Context(), name)
	if err != nil {
		slog.Error("failed to get item history", "item", name, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get item history")
		return
	}
	if len(events) == 0 {
		if _, err := h.Rentals.GetItem(r.Context(), name); errors.Is(err, rental.ErrNotFound) {
			jsonError(w, http.StatusNotFound, "item not found")
			return
		}
		events = []model.Event{}
	}
	jsonResponse(w, http.StatusOK, events)
}
