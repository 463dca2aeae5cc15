package api

import (
	"net/http"
	"strings"

	"github.com/Clownyz/rentals-bot/internal/auth"
)

// TokenCookie is the cookie the web panel keeps its token in.
const TokenCookie = "token"

// TokenFromRequest returns the panel token from the Authorization header or
// the token cookie, in that order.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := r.Cookie(TokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// Authenticate validates the request's panel token. It returns nil claims
// and no error when the request carries no token.
func Authenticate(secret string, r *http.Request) (*auth.Claims, error) {
	token := TokenFromRequest(r)
	if token == "" {
		return nil, nil
	}
	return auth.ValidateToken(secret, token)
}
