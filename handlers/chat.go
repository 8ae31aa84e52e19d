// ABOUTME: Chat handlers: transcript snapshot, backward pagination, send, live stream
// ABOUTME: Each session owns one synchronizer; the websocket pushes poll merges down

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/prit1626/IndiExport-B2B-sub001/models"
	"github.com/prit1626/IndiExport-B2B-sub001/services"
)

// transcriptResponse is the chat snapshot returned to the frontend.
type transcriptResponse struct {
	ConversationID string               `json:"conversation_id"`
	Messages       []models.ChatMessage `json:"messages,omitempty"`
	Groups         []models.DayGroup    `json:"groups,omitempty"`
	HasMore        bool                 `json:"has_more"`
}

// sync resolves the session's synchronizer, bound to its credentials.
func (h *Handler) sync(session *models.Session) *services.ChatSynchronizer {
	tokens := h.sessions.Tokens(session.ID)
	return h.chats.For(session.ID, h.market.ChatAPI(tokens))
}

// Messages activates the conversation (switching if needed) and returns the
// current transcript. Pass ?grouped=1 for calendar-day grouping.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	session := h.requireSession(w, r)
	if session == nil {
		return
	}

	conversationID := chi.URLParam(r, "id")
	sync := h.sync(session)

	if err := sync.Switch(r.Context(), conversationID); err != nil {
		h.writeUpstreamError(w, err)
		return
	}

	resp := transcriptResponse{
		ConversationID: conversationID,
		HasMore:        sync.HasMore(),
	}
	if r.URL.Query().Get("grouped") == "1" {
		resp.Groups = sync.Grouped(time.Now(), time.Local)
	} else {
		resp.Messages = sync.Messages()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// OlderMessages loads the next page of older history into the transcript and
// returns the updated snapshot. A load already in flight makes this a no-op.
func (h *Handler) OlderMessages(w http.ResponseWriter, r *http.Request) {
	session := h.requireSession(w, r)
	if session == nil {
		return
	}

	conversationID := chi.URLParam(r, "id")
	sync := h.sync(session)
	if sync.ConversationID() != conversationID {
		if err := sync.Switch(r.Context(), conversationID); err != nil {
			h.writeUpstreamError(w, err)
			return
		}
	}

	added, err := sync.LoadOlder(r.Context())
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, struct {
		transcriptResponse
		Added int `json:"added"`
	}{
		transcriptResponse: transcriptResponse{
			ConversationID: conversationID,
			Messages:       sync.Messages(),
			HasMore:        sync.HasMore(),
		},
		Added: added,
	})
}

// SendMessage posts a message to the active conversation. The confirmed
// message lands in the transcript immediately, ahead of the next poll tick.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	session := h.requireSession(w, r)
	if session == nil {
		return
	}

	conversationID := chi.URLParam(r, "id")
	var req models.SendMessageRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Kind == "" {
		req.Kind = models.MessageText
	}
	if req.Kind == models.MessageText && req.Body == "" {
		h.writeError(w, "Message body is required", http.StatusBadRequest)
		return
	}

	sync := h.sync(session)
	if sync.ConversationID() != conversationID {
		if err := sync.Switch(r.Context(), conversationID); err != nil {
			h.writeUpstreamError(w, err)
			return
		}
	}

	msg, err := sync.Send(r.Context(), req)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, msg)
}

// StreamMessages upgrades to a websocket and pushes transcript additions
// (poll merges and sent messages) as they happen. The browser still drives
// conversation switches over plain HTTP; this is a one-way downstream feed.
func (h *Handler) StreamMessages(w http.ResponseWriter, r *http.Request) {
	session := h.requireSession(w, r)
	if session == nil {
		return
	}

	conversationID := chi.URLParam(r, "id")
	sync := h.sync(session)
	if sync.ConversationID() != conversationID {
		if err := sync.Switch(r.Context(), conversationID); err != nil {
			h.writeUpstreamError(w, err)
			return
		}
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originHostPatterns(h.cfg.CORSAllowedOrigins),
	})
	if err != nil {
		slog.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer ws.Close(websocket.StatusInternalError, "stream closed")

	batches, cancel := sync.Subscribe()
	defer cancel()

	// One-way feed: CloseRead pumps control frames and cancels the context
	// when the client goes away.
	ctx := ws.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			ws.Close(websocket.StatusGoingAway, "client disconnected")
			return
		case batch, ok := <-batches:
			if !ok {
				// Synchronizer closed (logout or session expiry).
				ws.Close(websocket.StatusNormalClosure, "session ended")
				return
			}
			data, err := json.Marshal(batch)
			if err != nil {
				continue
			}
			if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
				if websocket.CloseStatus(err) == -1 {
					slog.Debug("Websocket write failed", "error", err)
				}
				return
			}
		}
	}
}

// originHostPatterns converts configured CORS origins (full URLs) into the
// host patterns the websocket origin check expects.
func originHostPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, origin := range origins {
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, origin)
	}
	return patterns
}
