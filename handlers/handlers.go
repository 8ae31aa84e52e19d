// ABOUTME: HTTP handler plumbing for the storefront gateway API
// ABOUTME: Holds shared dependencies and JSON response helpers

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prit1626/IndiExport-B2B-sub001/cache"
	"github.com/prit1626/IndiExport-B2B-sub001/config"
	"github.com/prit1626/IndiExport-B2B-sub001/models"
	"github.com/prit1626/IndiExport-B2B-sub001/services"
)

type Handler struct {
	cfg      *config.Config
	cache    *cache.Cache
	sessions *services.SessionService
	market   *services.MarketplaceClient
	chats    *services.ChatManager
}

func NewHandler(cfg *config.Config, c *cache.Cache, sessions *services.SessionService, market *services.MarketplaceClient, chats *services.ChatManager) *Handler {
	return &Handler{
		cfg:      cfg,
		cache:    c,
		sessions: sessions,
		market:   market,
		chats:    chats,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"upstream": h.cfg.UpstreamAPIURL,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	h.writeJSON(w, code, models.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// writeUpstreamError translates an upstream client error for the browser.
// Upstream HTTP errors pass through with their original status and body;
// session invalidation becomes a 401 telling the frontend to re-login;
// transport failures surface as 502.
func (h *Handler) writeUpstreamError(w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrSessionExpired) {
		h.clearSessionCookies(w)
		h.writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{
			Error:   "Session expired, please log in again",
			Code:    http.StatusUnauthorized,
			Details: "login_required",
		})
		return
	}

	var apiErr *services.APIError
	if errors.As(err, &apiErr) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(apiErr.StatusCode)
		if apiErr.Body != "" {
			w.Write([]byte(apiErr.Body))
		} else {
			json.NewEncoder(w).Encode(models.ErrorResponse{Error: http.StatusText(apiErr.StatusCode), Code: apiErr.StatusCode})
		}
		return
	}

	slog.Error("Upstream request failed", "error", err)
	h.writeError(w, "Upstream API request failed", http.StatusBadGateway)
}

// getSession resolves the request's session cookie, or nil if absent/invalid.
func (h *Handler) getSession(r *http.Request) *models.Session {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	session, err := h.sessions.Get(cookie.Value)
	if err != nil {
		return nil
	}
	return session
}

// requireSession resolves the session or writes a 401 and returns nil.
func (h *Handler) requireSession(w http.ResponseWriter, r *http.Request) *models.Session {
	session := h.getSession(r)
	if session == nil {
		h.writeError(w, "Authentication required", http.StatusUnauthorized)
		return nil
	}
	return session
}

// decodeBody decodes a JSON request body into v, writing a 400 on failure.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}
