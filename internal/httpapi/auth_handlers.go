package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"talenta.dev/internal/audit"
	"talenta.dev/internal/auth"
	"talenta.dev/internal/employee"
	"talenta.dev/internal/obs"
)

type loginRequest struct {
	LoginIdentifier string `json:"login_identifier"`
	Password        string `json:"password"`
}

// userPayload is the non-sensitive profile slice returned next to the
// Set-Cookie. The token itself never enters a response body.
type userPayload struct {
	ID       string `json:"id"`
	Name     string `json:"nama"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "Validation failed",
			"errors":  map[string][]string{"body": {err.Error()}},
		})
		return
	}

	errs := fieldErrors{}
	if strings.TrimSpace(req.LoginIdentifier) == "" {
		errs.add("login_identifier", "login_identifier is required")
	}
	if req.Password == "" {
		errs.add("password", "password is required")
	}
	if !errs.ok() {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "Validation failed",
			"errors":  errs,
		})
		return
	}

	token, emp, err := a.guard.Login(r.Context(), req.LoginIdentifier, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			obs.CountLogin("failure")
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		obs.CountLogin("failure")
		internalError(w, r, "Could not create token", err)
		return
	}

	obs.CountLogin("success")
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{"employee_id": emp.ID})
	a.respondWithCookie(w, token, emp)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	emp, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	// Server-side invalidation is best-effort; the cookie is cleared no
	// matter what.
	if token, ok := auth.TokenFromContext(r.Context()); ok {
		if err := a.guard.Logout(r.Context(), token); err != nil {
			_ = audit.LogEvent(r.Context(), "auth.logout.invalidate_failed", map[string]any{"error": err.Error()})
		} else {
			_ = audit.LogEvent(r.Context(), "auth.logout", nil)
		}
	}
	a.cookies.Clear(w)
	writeMessage(w, http.StatusOK, "Successfully logged out")
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	token, ok := auth.TokenFromContext(r.Context())
	if !ok {
		a.cookies.Clear(w)
		writeMessage(w, http.StatusUnauthorized, "Could not refresh token")
		return
	}
	newToken, emp, err := a.guard.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			// Outside the refresh window: discard the cookie and force a
			// fresh login.
			a.cookies.Clear(w)
			writeMessage(w, http.StatusUnauthorized, "Could not refresh token")
			return
		}
		internalError(w, r, "Refresh failed", err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.refresh", nil)
	a.respondWithCookie(w, newToken, emp)
}

// respondWithCookie sets the session cookie and returns the profile body
// shared by login and refresh.
func (a *API) respondWithCookie(w http.ResponseWriter, token string, emp *employee.Employee) {
	a.cookies.Issue(w, token, a.guard.TokenTTL())
	writeJSON(w, http.StatusOK, map[string]any{
		"user": userPayload{
			ID:       emp.ID,
			Name:     emp.Name,
			Email:    emp.Email,
			Username: emp.Username,
		},
	})
}
