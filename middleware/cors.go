// ABOUTME: CORS middleware with a configurable origin allowlist
// ABOUTME: Credentials require exact origin echo, never a wildcard

package middleware

import (
	"net/http"
	"slices"
)

// CORS returns middleware that adds CORS headers for origins in the
// allowlist. An empty allowlist blocks all cross-origin requests (same-origin
// traffic is unaffected). Because the gateway authenticates via cookies,
// Access-Control-Allow-Credentials is set and the matched origin is echoed
// back rather than using a wildcard.
func CORS(allowedOrigins []string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && slices.Contains(allowedOrigins, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-CSRF-Token")
				w.Header().Set("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next(w, r)
		}
	}
}
