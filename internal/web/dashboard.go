package web

import (
	"log/slog"
	"net/http"

	"github.com/Clownyz/rentals-bot/internal/api"
	"github.com/Clownyz/rentals-bot/internal/model"
	"github.com/Clownyz/rentals-bot/internal/rental"
)

const recentEvents = 20

type listingPage struct {
	PageData
	Listing rental.Listing
	Proofs  []model.Proof
	Events  []model.Event
}

// Dashboard handles GET /. Admins also see the pending proof queue.
func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	claims := api.GetClaims(r.Context())
	page := &listingPage{PageData: PageData{Title: "Custom Sets", Claims: claims}}

	listing, err := s.Rentals.Listing(r.Context())
	if err != nil {
		slog.Error("failed to build listing for panel", "error", err)
		page.Error = "The listing is unavailable right now."
		s.Templates.Render(w, http.StatusInternalServerError, "listing.html", page)
		return
	}
	page.Listing = listing

	page.Events, err = s.Rentals.Events(r.Context(), recentEvents)
	if err != nil {
		slog.Error("failed to list events for panel", "error", err)
	}

	if claims != nil && claims.Admin {
		page.Proofs, err = s.Rentals.PendingProofs(r.Context())
		if err != nil {
			slog.Error("failed to list proofs for panel", "error", err)
		}
	}

	s.Templates.Render(w, http.StatusOK, "listing.html", page)
}
