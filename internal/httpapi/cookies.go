package httpapi

import (
	"net/http"
	"time"
)

// CookieConfig describes the session cookie. Issuance and clearing share one
// config so name, path, domain and flags always match; browsers only discard
// a cookie whose attributes match the one that set it.
type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// DefaultCookieConfig returns the production defaults: HTTPS-only and
// SameSite=None so a cross-origin frontend can send the cookie.
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Name:     "jwt_token",
		Path:     "/",
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
}

// Issue attaches the token to the response as an HttpOnly cookie living for
// the token TTL. The token never appears in a response body.
func (c CookieConfig) Issue(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    token,
		Path:     c.Path,
		Domain:   c.Domain,
		MaxAge:   int(ttl / time.Second),
		Expires:  time.Now().Add(ttl),
		Secure:   c.Secure,
		HttpOnly: true,
		SameSite: c.SameSite,
	})
}

// Clear emits a cookie with the same attributes, an empty value and an
// immediate expiry, forcing the client to discard the session cookie.
func (c CookieConfig) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     c.Path,
		Domain:   c.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   c.Secure,
		HttpOnly: true,
		SameSite: c.SameSite,
	})
}

// Token extracts the raw token from the request cookie, if present.
func (c CookieConfig) Token(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(c.Name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
