// ABOUTME: Shared test harness for gateway handlers
// ABOUTME: Spins up a fake upstream marketplace API and a fully wired router

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/prit1626/IndiExport-B2B-sub001/cache"
	"github.com/prit1626/IndiExport-B2B-sub001/config"
	"github.com/prit1626/IndiExport-B2B-sub001/services"
)

// testGateway bundles the wired handler, its router, and direct access to the
// services for session setup.
type testGateway struct {
	handler  *Handler
	router   http.Handler
	sessions *services.SessionService
	chats    *services.ChatManager
}

// newTestGateway wires a gateway against the given fake upstream handler.
// Sessions are cache-only; no SQLite file is involved.
func newTestGateway(t *testing.T, upstream http.Handler) *testGateway {
	t.Helper()

	server := httptest.NewServer(upstream)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		Port:             "0",
		CookieSecure:     false,
		UpstreamAPIURL:   server.URL,
		UpstreamTimeout:  5 * time.Second,
		ChatPollInterval: time.Hour,
		ChatPageSize:     10,
		CatalogCacheTTL:  60,
	}

	c := cache.New(time.Minute)
	sessions := services.NewSessionService(c, nil)
	upstreamClient := services.NewUpstreamClient(cfg)
	market := services.NewMarketplaceClient(upstreamClient)
	chats := services.NewChatManager(cfg.ChatPollInterval, cfg.ChatPageSize)
	sessions.OnInvalidate(chats.Drop)

	h := NewHandler(cfg, c, sessions, market, chats)

	router := chi.NewRouter()
	for _, route := range h.Routes() {
		router.MethodFunc(route.Method, route.Path, route.Handler)
	}

	return &testGateway{handler: h, router: router, sessions: sessions, chats: chats}
}

// login creates a session directly and returns its ID for cookie attachment.
func (g *testGateway) login(t *testing.T, role string) string {
	t.Helper()
	id, err := g.sessions.Create("test@example.com", "user-1", role, "valid-access", "valid-refresh")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return id
}

// request performs a request against the router, optionally authenticated.
func (g *testGateway) request(method, path, sessionID string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: sessionID})
	}
	rec := httptest.NewRecorder()
	g.router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response body: %v (body: %s)", err, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := g.request(http.MethodGet, "/api/v1/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]string
	decodeJSON(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestRequireSession_MissingCookie(t *testing.T) {
	g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unauthenticated request must not reach the upstream")
	}))

	for _, path := range []string{
		"/api/v1/products",
		"/api/v1/cart",
		"/api/v1/orders",
		"/api/v1/chats/conv-1/messages",
	} {
		rec := g.request(http.MethodGet, path, "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, rec.Code)
		}
	}
}
