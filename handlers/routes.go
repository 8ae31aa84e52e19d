// ABOUTME: Declarative route table for the gateway API
// ABOUTME: Defines all routes with method, path, handler, and rate limit class

package handlers

import "net/http"

// LimitClass selects which rate limiter applies to a route.
type LimitClass int

const (
	LimitDefault LimitClass = iota // read endpoints
	LimitAuth                      // credential endpoints, strictest
	LimitWrite                     // state-changing endpoints
)

// Route defines an API endpoint with its HTTP method and handler.
type Route struct {
	Method  string           // HTTP method (GET, POST, etc.)
	Path    string           // URL path pattern (e.g., "/api/v1/products/{id}")
	Handler http.HandlerFunc // Handler function
	Limit   LimitClass       // Rate limit class
}

// Routes returns all API routes for registration.
func (h *Handler) Routes() []Route {
	return []Route{
		// Health & Status
		{Method: http.MethodGet, Path: "/api/v1/health", Handler: h.Health},

		// Auth
		{Method: http.MethodPost, Path: "/api/v1/auth/login", Handler: h.Login, Limit: LimitAuth},
		{Method: http.MethodPost, Path: "/api/v1/auth/logout", Handler: h.Logout, Limit: LimitAuth},
		{Method: http.MethodGet, Path: "/api/v1/auth/me", Handler: h.Me},

		// Catalog
		{Method: http.MethodGet, Path: "/api/v1/products", Handler: h.Products},
		{Method: http.MethodGet, Path: "/api/v1/products/{id}", Handler: h.Product},

		// RFQs & Quotes
		{Method: http.MethodGet, Path: "/api/v1/rfqs", Handler: h.RFQs},
		{Method: http.MethodPost, Path: "/api/v1/rfqs", Handler: h.CreateRFQ, Limit: LimitWrite},
		{Method: http.MethodPost, Path: "/api/v1/rfqs/{id}/quote", Handler: h.SubmitQuote, Limit: LimitWrite},

		// Cart & Orders
		{Method: http.MethodGet, Path: "/api/v1/cart", Handler: h.Cart},
		{Method: http.MethodPost, Path: "/api/v1/cart/items", Handler: h.AddCartItem, Limit: LimitWrite},
		{Method: http.MethodDelete, Path: "/api/v1/cart/items/{itemID}", Handler: h.RemoveCartItem, Limit: LimitWrite},
		{Method: http.MethodPost, Path: "/api/v1/checkout", Handler: h.Checkout, Limit: LimitWrite},
		{Method: http.MethodGet, Path: "/api/v1/orders", Handler: h.Orders},

		// Analytics
		{Method: http.MethodGet, Path: "/api/v1/analytics/sales", Handler: h.SalesAnalytics},

		// Chat
		{Method: http.MethodGet, Path: "/api/v1/chats/{id}/messages", Handler: h.Messages},
		{Method: http.MethodPost, Path: "/api/v1/chats/{id}/messages/older", Handler: h.OlderMessages, Limit: LimitWrite},
		{Method: http.MethodPost, Path: "/api/v1/chats/{id}/messages", Handler: h.SendMessage, Limit: LimitWrite},
		{Method: http.MethodGet, Path: "/api/v1/chats/{id}/stream", Handler: h.StreamMessages},
	}
}
