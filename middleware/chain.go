// ABOUTME: Middleware chaining utility for composing HTTP middleware
// ABOUTME: Wraps a handler so the first listed middleware runs outermost

package middleware

import "net/http"

// Chain wraps h in the given middleware, outermost first: the first entry
// sees the request before any other, so Chain(h, logging, cors) behaves as
// logging(cors(h)).
func Chain(h http.HandlerFunc, wrap ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	for i := len(wrap) - 1; i >= 0; i-- {
		h = wrap[i](h)
	}
	return h
}
