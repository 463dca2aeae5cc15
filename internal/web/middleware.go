package web

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/Clownyz/rentals-bot/internal/api"
	"github.com/Clownyz/rentals-bot/internal/auth"
)

// PanelAuth reads the panel token and adds its claims to the context. A
// token passed as ?token= is moved into a cookie and the request redirected
// to the clean URL. Without a valid token a private panel shows the denied
// page.
func (s *Server) PanelAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := r.URL.Query().Get("token"); token != "" {
			claims, err := auth.ValidateToken(s.secret, token)
			if err != nil {
				slog.Warn("rejected panel link", "remote", r.RemoteAddr, "error", err)
				clearAuthCookie(w)
				s.denied(w, "This panel link is invalid or has expired.")
				return
			}
			setAuthCookie(w, token, claims)
			http.Redirect(w, r, withoutToken(r.URL), http.StatusSeeOther)
			return
		}

		claims, err := api.Authenticate(s.secret, r)
		if err != nil {
			clearAuthCookie(w)
			claims = nil
		}
		if claims == nil && !s.public {
			s.denied(w, "")
			return
		}
		next.ServeHTTP(w, r.WithContext(api.WithClaims(r.Context(), claims)))
	})
}

// RequireAdmin rejects requests without an admin panel token.
func (s *Server) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := api.GetClaims(r.Context())
		if claims == nil || !claims.Admin {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) denied(w http.ResponseWriter, msg string) {
	s.Templates.Render(w, http.StatusUnauthorized, "denied.html", &PageData{Title: "Private panel", Error: msg})
}

func withoutToken(u *url.URL) string {
	q := u.Query()
	q.Del("token")
	clean := *u
	clean.RawQuery = q.Encode()
	return clean.RequestURI()
}
