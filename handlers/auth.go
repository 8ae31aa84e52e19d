// ABOUTME: Authentication handlers: login, logout, and current-user lookup
// ABOUTME: Upstream tokens stay server-side; the browser only gets cookies

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/prit1626/IndiExport-B2B-sub001/models"
	"github.com/prit1626/IndiExport-B2B-sub001/services"
)

const (
	sessionCookieName = "INDIEXPORT_SESSION"
	csrfCookieName    = "INDIEXPORT_CSRF"
)

// Login authenticates against the upstream API and mints a gateway session.
// The upstream access and refresh tokens never reach the browser; they are
// stored in the session and the browser gets an httpOnly session cookie plus
// a readable CSRF cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		h.writeError(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	result, err := h.market.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if services.IsUnauthorized(err) {
			slog.Info("Login rejected", "email", req.Email)
			h.writeJSON(w, http.StatusUnauthorized, models.LoginResponse{
				Success: false,
				Error:   "Invalid email or password",
			})
			return
		}
		h.writeUpstreamError(w, err)
		return
	}

	// Replace any existing session for this browser before minting a new one.
	if old := h.getSession(r); old != nil {
		h.chats.Drop(old.ID)
		h.sessions.Delete(old.ID)
	}

	sessionID, err := h.sessions.Create(result.Username, result.UserID, result.Role, result.AccessToken, result.RefreshToken)
	if err != nil {
		slog.Error("Failed to create session", "error", err)
		h.writeError(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	session, err := h.sessions.Get(sessionID)
	if err != nil {
		h.writeError(w, "Failed to create session", http.StatusInternalServerError)
		return
	}
	h.setSessionCookies(w, session)

	slog.Info("Login succeeded", "username", result.Username, "role", result.Role)
	h.writeJSON(w, http.StatusOK, models.LoginResponse{
		Success:  true,
		Username: result.Username,
		UserID:   result.UserID,
		Role:     result.Role,
	})
}

// Logout destroys the session and its chat synchronizer and expires the
// cookies. Always succeeds, even with no valid session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		h.chats.Drop(cookie.Value)
		h.sessions.Delete(cookie.Value)
	}

	h.clearSessionCookies(w)
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Me reports whether the request carries a valid session and who it belongs
// to. The frontend calls this on boot to restore login state.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	session := h.getSession(r)
	if session == nil {
		h.writeJSON(w, http.StatusOK, models.UserInfoResponse{Authenticated: false})
		return
	}

	h.writeJSON(w, http.StatusOK, models.UserInfoResponse{
		Authenticated: true,
		Username:      session.Username,
		UserID:        session.UserID,
		Role:          session.Role,
	})
}

func (h *Handler) setSessionCookies(w http.ResponseWriter, session *models.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
	// CSRF cookie is readable by JS so the frontend can echo it in the
	// X-CSRF-Token header (double-submit pattern).
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    session.CSRFToken,
		Path:     "/",
		HttpOnly: false,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}
