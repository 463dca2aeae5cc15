package api

import (
	"net/http"

	"github.com/Clownyz/rentals-bot/internal/rental"
)

// NewRouter creates the JSON API router. When public is false every
// endpoint needs a valid panel token.
func NewRouter(rentals *rental.Service, secret string, public bool) http.Handler {
	mux := http.NewServeMux()

	items := &ItemsHandler{Rentals: rentals}
	blacklist := &BlacklistHandler{Rentals: rentals}
	events := &EventsHandler{Rentals: rentals}

	authMW := AuthMiddleware(secret, public)

	mux.Handle("GET /api/listing", authMW(http.HandlerFunc(items.Listing)))
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(items.List)))
	mux.Handle("GET /api/items/{name}", authMW(http.HandlerFunc(items.Get)))
	mux.Handle("GET /api/items/{name}/history", authMW(http.HandlerFunc(items.History)))
	mux.Handle("GET /api/blacklist", authMW(http.HandlerFunc(blacklist.List)))
	mux.Handle("GET /api/events", authMW(http.HandlerFunc(events.List)))

	// Proofs carry renter screenshots.
	mux.Handle("GET /api/proofs", authMW(RequireAdmin(http.HandlerFunc(events.PendingProofs))))

	return mux
}
