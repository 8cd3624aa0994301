package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"talenta.dev/internal/auth"
	"talenta.dev/internal/employee"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/login",
	"/register",
	"/metrics",
	"/healthz",
	"/readyz",
}

// cookieToBearer synthesizes an Authorization header from the session cookie
// when no header is present. It runs before any authentication logic so the
// rest of the stack only ever sees a bearer carrier.
func (a *API) cookieToBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(authHeader) == "" {
			if token, ok := a.cookies.Token(r); ok {
				r.Header.Set(authHeader, bearer+token)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// withAuth guards every non-public route: it validates the bearer token and
// attaches the resolved employee and the raw token to the request context.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		// Logout and refresh validate their own token: logout clears the
		// cookie no matter what, and refresh accepts tokens that expired
		// inside the grace window. Full validation here would reject both.
		if r.URL.Path == "/logout" || r.URL.Path == "/refresh" {
			if token, err := extractBearerToken(r.Header.Get(authHeader)); err == nil {
				r = r.WithContext(auth.ContextWithToken(r.Context(), token))
			}
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		emp, err := a.guard.Authenticate(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, employee.ErrNotFound):
				writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			default:
				internalError(w, r, "authentication error", err)
			}
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), emp)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
