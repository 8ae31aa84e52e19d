// ABOUTME: Tests for the chat handlers: snapshot, grouping, pagination, send
// ABOUTME: Drives the full path from HTTP request through synchronizer to upstream

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/prit1626/IndiExport-B2B-sub001/models"
)

func chatMsg(id string, at time.Time) models.ChatMessage {
	return models.ChatMessage{
		ID:             id,
		ConversationID: "conv-1",
		SenderID:       "seller-1",
		Kind:           models.MessageText,
		Body:           "message " + id,
		CreatedAt:      at,
	}
}

// fakeChatUpstream serves two pages of history for conv-1 and accepts sends.
func fakeChatUpstream(t *testing.T) http.Handler {
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	pages := []models.MessagePage{
		{Content: []models.ChatMessage{
			chatMsg("m3", base.Add(2*time.Minute)),
			chatMsg("m4", base.Add(3*time.Minute)),
		}, Last: false},
		{Content: []models.ChatMessage{
			chatMsg("m1", base),
			chatMsg("m2", base.Add(time.Minute)),
		}, Last: true},
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chats/conv-1/messages":
			page, _ := strconv.Atoi(r.URL.Query().Get("page"))
			if page >= len(pages) {
				json.NewEncoder(w).Encode(models.MessagePage{Last: true})
				return
			}
			json.NewEncoder(w).Encode(pages[page])
		case "/chats/conv-1/message":
			var req models.SendMessageRequest
			json.NewDecoder(r.Body).Decode(&req)
			json.NewEncoder(w).Encode(models.ChatMessage{
				ID:             "m-sent",
				ConversationID: "conv-1",
				SenderID:       "user-1",
				Kind:           req.Kind,
				Body:           req.Body,
				CreatedAt:      time.Now(),
			})
		default:
			t.Errorf("unexpected upstream path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	})
}

func TestMessages_LoadsTranscript(t *testing.T) {
	g := newTestGateway(t, fakeChatUpstream(t))
	sessionID := g.login(t, "buyer")

	rec := g.request(http.MethodGet, "/api/v1/chats/conv-1/messages", sessionID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ConversationID string               `json:"conversation_id"`
		Messages       []models.ChatMessage `json:"messages"`
		HasMore        bool                 `json:"has_more"`
	}
	decodeJSON(t, rec, &resp)

	if resp.ConversationID != "conv-1" {
		t.Errorf("unexpected conversation: %q", resp.ConversationID)
	}
	if len(resp.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(resp.Messages))
	}
	if resp.Messages[0].ID != "m3" || resp.Messages[1].ID != "m4" {
		t.Errorf("expected chronological [m3 m4], got [%s %s]", resp.Messages[0].ID, resp.Messages[1].ID)
	}
	if !resp.HasMore {
		t.Error("expected more history available")
	}
}

func TestMessages_GroupedMode(t *testing.T) {
	g := newTestGateway(t, fakeChatUpstream(t))
	sessionID := g.login(t, "buyer")

	rec := g.request(http.MethodGet, "/api/v1/chats/conv-1/messages?grouped=1", sessionID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Groups []models.DayGroup `json:"groups"`
	}
	decodeJSON(t, rec, &resp)

	if len(resp.Groups) == 0 {
		t.Fatal("expected at least one day group")
	}
	total := 0
	for _, gr := range resp.Groups {
		if gr.Label == "" {
			t.Error("group missing label")
		}
		total += len(gr.Messages)
	}
	if total != 2 {
		t.Errorf("grouping changed message count: %d", total)
	}
}

func TestOlderMessages_ExtendsTranscript(t *testing.T) {
	g := newTestGateway(t, fakeChatUpstream(t))
	sessionID := g.login(t, "buyer")

	// Activate the conversation first.
	if rec := g.request(http.MethodGet, "/api/v1/chats/conv-1/messages", sessionID, ""); rec.Code != http.StatusOK {
		t.Fatalf("activation failed: %d", rec.Code)
	}

	rec := g.request(http.MethodPost, "/api/v1/chats/conv-1/messages/older", sessionID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Messages []models.ChatMessage `json:"messages"`
		HasMore  bool                 `json:"has_more"`
		Added    int                  `json:"added"`
	}
	decodeJSON(t, rec, &resp)

	if resp.Added != 2 {
		t.Errorf("expected 2 added, got %d", resp.Added)
	}
	if len(resp.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(resp.Messages))
	}
	if resp.Messages[0].ID != "m1" {
		t.Errorf("older messages should lead the transcript, got %s first", resp.Messages[0].ID)
	}
	if resp.HasMore {
		t.Error("final page loaded; expected has_more=false")
	}
}

func TestSendMessage_AppendsImmediately(t *testing.T) {
	g := newTestGateway(t, fakeChatUpstream(t))
	sessionID := g.login(t, "buyer")

	rec := g.request(http.MethodPost, "/api/v1/chats/conv-1/messages", sessionID,
		`{"kind":"text","body":"hello from test"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var sent models.ChatMessage
	decodeJSON(t, rec, &sent)
	if sent.ID != "m-sent" || sent.Body != "hello from test" {
		t.Errorf("unexpected sent message: %+v", sent)
	}

	// The confirmed message is in the snapshot without waiting for a poll.
	rec = g.request(http.MethodGet, "/api/v1/chats/conv-1/messages", sessionID, "")
	var resp struct {
		Messages []models.ChatMessage `json:"messages"`
	}
	decodeJSON(t, rec, &resp)

	found := false
	for _, m := range resp.Messages {
		if m.ID == "m-sent" {
			found = true
		}
	}
	if !found {
		t.Error("sent message missing from transcript snapshot")
	}
}

func TestSendMessage_EmptyBodyRejected(t *testing.T) {
	g := newTestGateway(t, fakeChatUpstream(t))
	sessionID := g.login(t, "buyer")

	rec := g.request(http.MethodPost, "/api/v1/chats/conv-1/messages", sessionID, `{"kind":"text"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestLogout_TearsDownSynchronizer(t *testing.T) {
	g := newTestGateway(t, fakeChatUpstream(t))
	sessionID := g.login(t, "buyer")

	if rec := g.request(http.MethodGet, "/api/v1/chats/conv-1/messages", sessionID, ""); rec.Code != http.StatusOK {
		t.Fatalf("activation failed: %d", rec.Code)
	}
	sync := g.chats.For(sessionID, nil)
	if sync.ConversationID() != "conv-1" {
		t.Fatal("synchronizer should be active before logout")
	}

	g.request(http.MethodPost, "/api/v1/auth/logout", sessionID, "")

	// The old synchronizer is closed; operations on it fail.
	if err := sync.Switch(context.Background(), "conv-2"); err == nil {
		t.Error("synchronizer should be closed after logout")
	}
}
