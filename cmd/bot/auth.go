package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/kestrelbot/kestrel/pkg/logging"
	"github.com/kestrelbot/kestrel/pkg/sessions"
)

// Identities used by the stubbed code exchange. A real OAuth handshake would
// resolve these from the provider.
const (
	stubUserId  = "1130709463721050142"
	stubGuildId = "1439165596725022753"
)

// authCallbackResponse is the body returned on a successful login.
type authCallbackResponse struct {
	Success  bool   `json:"success"`
	Redirect string `json:"redirect"`
}

// authCallbackHandler completes a login. The code exchange is stubbed; the
// admin decision comes from the persisted admin policy and is frozen into the
// session at login time.
func (a *App) authCallbackHandler(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		a.writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "No auth code provided",
		})
		return
	}

	isAdmin, err := a.adminPolicy.IsAdmin(r.Context(), stubUserId)
	if err != nil {
		a.Error("Error checking admin policy", slog.String(logging.KeyError, err.Error()))
		isAdmin = false
	}

	session := a.sessions.Create(stubUserId, stubGuildId, isAdmin)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.ID,
		Path:     "/",
		MaxAge:   int(sessions.DefaultTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	a.Info("User authenticated",
		slog.String("user_id", session.UserID),
		slog.Bool("is_admin", session.IsAdmin),
	)

	redirect := "/user"
	if session.IsAdmin {
		redirect = "/admin"
	}
	a.writeJSON(w, http.StatusOK, authCallbackResponse{Success: true, Redirect: redirect})
}

func (a *App) logoutHandler(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		a.sessions.Delete(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	a.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
