// ABOUTME: Tests for the auth handlers: login, logout, and session status
// ABOUTME: Verifies cookie issuance and that tokens never reach the browser

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prit1626/IndiExport-B2B-sub001/models"
)

// fakeAuthUpstream serves the login endpoint with one known credential pair.
func fakeAuthUpstream() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" {
			http.NotFound(w, r)
			return
		}
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["email"] != "ravi@exporter.in" || req["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"bad credentials"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"accessToken":  "upstream-access",
			"refreshToken": "upstream-refresh",
			"userId":       "user-7",
			"username":     "ravi@exporter.in",
			"role":         "seller",
		})
	})
}

func cookieByName(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLogin_Success(t *testing.T) {
	g := newTestGateway(t, fakeAuthUpstream())

	rec := g.request(http.MethodPost, "/api/v1/auth/login", "",
		`{"email":"ravi@exporter.in","password":"secret"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp models.LoginResponse
	decodeJSON(t, rec, &resp)
	if !resp.Success || resp.Role != "seller" || resp.UserID != "user-7" {
		t.Errorf("unexpected login response: %+v", resp)
	}

	sessionCookie := cookieByName(rec, sessionCookieName)
	if sessionCookie == nil {
		t.Fatal("session cookie not set")
	}
	if !sessionCookie.HttpOnly {
		t.Error("session cookie must be httpOnly")
	}

	csrfCookie := cookieByName(rec, csrfCookieName)
	if csrfCookie == nil {
		t.Fatal("CSRF cookie not set")
	}
	if csrfCookie.HttpOnly {
		t.Error("CSRF cookie must be readable by the frontend")
	}

	// The upstream tokens must not appear anywhere in the response.
	if strings.Contains(rec.Body.String(), "upstream-access") ||
		strings.Contains(rec.Body.String(), "upstream-refresh") {
		t.Error("upstream tokens leaked to the browser")
	}

	// The minted session holds the tokens server-side.
	session, err := g.sessions.Get(sessionCookie.Value)
	if err != nil {
		t.Fatalf("minted session not retrievable: %v", err)
	}
	if session.AccessToken != "upstream-access" || session.RefreshToken != "upstream-refresh" {
		t.Error("session does not hold the upstream tokens")
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	g := newTestGateway(t, fakeAuthUpstream())

	rec := g.request(http.MethodPost, "/api/v1/auth/login", "",
		`{"email":"ravi@exporter.in","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	var resp models.LoginResponse
	decodeJSON(t, rec, &resp)
	if resp.Success {
		t.Error("expected success=false")
	}
	if cookieByName(rec, sessionCookieName) != nil {
		t.Error("no session cookie should be set on failed login")
	}
}

func TestLogin_MissingFields(t *testing.T) {
	g := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("invalid login must not reach the upstream")
	}))

	rec := g.request(http.MethodPost, "/api/v1/auth/login", "", `{"email":"a@b.c"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestMe_Authenticated(t *testing.T) {
	g := newTestGateway(t, fakeAuthUpstream())
	sessionID := g.login(t, "buyer")

	rec := g.request(http.MethodGet, "/api/v1/auth/me", sessionID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp models.UserInfoResponse
	decodeJSON(t, rec, &resp)
	if !resp.Authenticated || resp.Role != "buyer" {
		t.Errorf("unexpected me response: %+v", resp)
	}
}

func TestMe_Unauthenticated(t *testing.T) {
	g := newTestGateway(t, fakeAuthUpstream())

	rec := g.request(http.MethodGet, "/api/v1/auth/me", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp models.UserInfoResponse
	decodeJSON(t, rec, &resp)
	if resp.Authenticated {
		t.Error("expected authenticated=false without a session")
	}
}

func TestLogout_DestroysSession(t *testing.T) {
	g := newTestGateway(t, fakeAuthUpstream())
	sessionID := g.login(t, "buyer")

	rec := g.request(http.MethodPost, "/api/v1/auth/logout", sessionID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if _, err := g.sessions.Get(sessionID); err == nil {
		t.Error("session should be destroyed after logout")
	}

	sessionCookie := cookieByName(rec, sessionCookieName)
	if sessionCookie == nil || sessionCookie.MaxAge != -1 {
		t.Error("logout should expire the session cookie")
	}
}

func TestLogout_WithoutSession(t *testing.T) {
	g := newTestGateway(t, fakeAuthUpstream())

	rec := g.request(http.MethodPost, "/api/v1/auth/logout", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("logout without a session should still succeed, got %d", rec.Code)
	}
}
