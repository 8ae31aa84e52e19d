// ABOUTME: Tests for the request logging middleware
// ABOUTME: Verifies correlation ID handling and status capture

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLogRequest_GeneratesRequestID(t *testing.T) {
	handler := LogRequest(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	id := rec.Header().Get("X-Request-ID")
	if id == "" {
		t.Fatal("expected generated X-Request-ID")
	}
	if len(id) != 16 {
		t.Errorf("expected 16 hex chars, got %q", id)
	}
}

func TestLogRequest_PreservesIncomingRequestID(t *testing.T) {
	handler := LogRequest(func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "proxy-assigned-id")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "proxy-assigned-id" {
		t.Errorf("expected proxy ID echoed, got %q", got)
	}
}

func TestLogRequest_PassesStatusThrough(t *testing.T) {
	handler := LogRequest(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("middleware altered the status: %d", rec.Code)
	}
}
