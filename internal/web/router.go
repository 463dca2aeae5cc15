package web

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Clownyz/rentals-bot/internal/api"
	"github.com/Clownyz/rentals-bot/internal/rental"
	webembed "github.com/Clownyz/rentals-bot/web"
)

// Server holds all dependencies for page handlers.
type Server struct {
	Rentals   *rental.Service
	Templates *Templates
	Hub       *Hub

	secret string
	public bool
}

// NewServer loads the templates and returns a Server. With public set the
// listing is readable without a panel token.
func NewServer(rentals *rental.Service, hub *Hub, secret string, public bool) (*Server, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}
	return &Server{
		Rentals:   rentals,
		Templates: templates,
		Hub:       hub,
		secret:    secret,
		public:    public,
	}, nil
}

// Handler returns the complete panel: pages, the JSON API under /api/,
// the live event stream, metrics and health check, wrapped in request
// logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/api/", api.NewRouter(s.Rentals, s.secret, s.public))

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS))))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", s.Healthz)

	mux.Handle("GET /{$}", s.PanelAuth(http.HandlerFunc(s.Dashboard)))
	mux.Handle("GET /ws", s.PanelAuth(http.HandlerFunc(s.Hub.ServeWS)))
	mux.Handle("GET /proofs/{id}/image", s.PanelAuth(s.RequireAdmin(http.HandlerFunc(s.ProofImage))))
	mux.HandleFunc("POST /logout", s.Logout)

	return api.LoggingMiddleware(mux)
}

// Healthz handles GET /healthz.
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Rentals.ListItems(r.Context()); err != nil {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}
