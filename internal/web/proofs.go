package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Clownyz/rentals-bot/internal/rental"
)

// ProofImage handles GET /proofs/{id}/image.
func (s *Server) ProofImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	data, mime, err := s.Rentals.ProofImage(r.Context(), id)
	if errors.Is(err, rental.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		slog.Error("failed to get proof image", "proof", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write image response", "error", err)
	}
}
