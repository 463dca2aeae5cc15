package web

import (
	"net/http"
	"time"

	"github.com/Clownyz/rentals-bot/internal/api"
	"github.com/Clownyz/rentals-bot/internal/auth"
)

// Logout handles POST /logout.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	clearAuthCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// setAuthCookie stores token until the token itself expires.
func setAuthCookie(w http.ResponseWriter, token string, claims *auth.Claims) {
	maxAge := int(auth.DefaultTokenTTL / time.Second)
	if claims.ExpiresAt != nil {
		maxAge = int(time.Until(claims.ExpiresAt.Time) / time.Second)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     api.TokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// clearAuthCookie clears the authentication cookie with consistent attributes.
func clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     api.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
