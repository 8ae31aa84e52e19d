// ABOUTME: Marketplace proxy handlers: catalog, RFQs, quotes, cart, checkout, orders
// ABOUTME: Each handler authenticates via the session and forwards upstream

package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/prit1626/IndiExport-B2B-sub001/models"
)

// Products returns one page of the catalog. Responses are cached briefly per
// page/size/category since the catalog is identical for every buyer.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	session := h.requireSession(w, r)
	if session == nil {
		return
	}

	page := queryInt(r, "page", 0)
	size := queryInt(r, "size", 20)
	category := r.URL.Query().Get("category")

	cacheKey := fmt.Sprintf("products:%d:%d:%s", page, size, category)
	if val, ok := h.cache.Get(cacheKey); ok {
		if cached, ok := val.(*models.ProductPage); ok {
			h.writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	result, err := h.market.Products(r.Context(), h.sessions.Tokens(session.ID), page, size, category)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}

	h.cache.SetWithTTL(cacheKey, result, time.Duration(h.cfg.CatalogCacheTTL)*time.Second)
	h.writeJSON(w, http.StatusOK, result)
}

// Product returns a single catalog listing.
func (h *Handler) Product(w http.ResponseWriter, r *http.Request) {
	session := h.requireSession(w, r)
	if session == nil {
		return
	}

	productID := chi.URLParam(r, "id")
	result, err := h.market.Product(r.Context(), h.sessions.Tokens(session.ID), productID)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// RFQs lists the caller's requests for quotation.
func (h *Handler) RFQs(w http.ResponseWriter, r *http.Request) {
	session := h.requireSession(w, r)
	if session == nil {
		return
	}

	result, err := h.market.RFQs(r.Context(), h.sessions.Tokens(session.ID))
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// CreateRFQ opens a new request for quotation.
func (h *Handler) CreateRFQ(w http.ResponseWriter, r *http.Request) {
	session := h.requireSession(w, r)
	if session == nil {
		return
	}

	var req models.CreateRFQRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.ProductID == "" || req.Quantity <= 0 {
		h.writeError(w, "product_id and a positive quantity are required", http.StatusBadRequest)
		return
	}

	result, err := h.market.CreateRFQ(r.Context(), h.sessions.Tokens(session.ID), req)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, result)
}

// SubmitQuote answers an RFQ with a priced quote (seller side).
func (h *Handler) SubmitQuote(w http.ResponseWriter, r *http.Request) {
	session := h.requireSession(w, r)
	if session == nil {
		return
	}

	rfqID := chi.URLParam(r, "id")
	var req models.SubmitQuoteRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	result, err := h.market.SubmitQuote(r.Context(), h.sessions.Tokens(session.ID), rfqID, req)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, result)
}

// Cart returns the buyer's current cart.
func (h *Handler) Cart(w http.ResponseWriter, r *http.Request) {
	session := h.requireSession(w, r)
	if session == nil {
		return
	}

	result, err := h.market.Cart(r.Context(), h.sessions.Tokens(session.ID))
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// AddCartItem puts a product into the cart.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	session := h.requireSession(w, r)
	if session == nil {
		return
	}

	var req models.AddCartItemRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.ProductID == "" || req.Quantity <= 0 {
		h.writeError(w, "product_id and a positive quantity are required", http.StatusBadRequest)
		return
	}

	result, err := h.market.AddCartItem(r.Context(), h.sessions.Tokens(session.ID), req)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// RemoveCartItem deletes one cart line.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	session := h.requireSession(w, r)
	if session == nil {
		return
	}

	itemID := chi.URLParam(r, "itemID")
	result, err := h.market.RemoveCartItem(r.Context(), h.sessions.Tokens(session.ID), itemID)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// Checkout places an order from the current cart.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	session := h.requireSession(w, r)
	if session == nil {
		return
	}

	var req models.CheckoutRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	result, err := h.market.Checkout(r.Context(), h.sessions.Tokens(session.ID), req)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, result)
}

// Orders lists the caller's placed orders.
func (h *Handler) Orders(w http.ResponseWriter, r *http.Request) {
	session := h.requireSession(w, r)
	if session == nil {
		return
	}

	result, err := h.market.Orders(r.Context(), h.sessions.Tokens(session.ID))
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// SalesAnalytics returns the seller dashboard data.
func (h *Handler) SalesAnalytics(w http.ResponseWriter, r *http.Request) {
	session := h.requireSession(w, r)
	if session == nil {
		return
	}

	result, err := h.market.SalesAnalytics(r.Context(), h.sessions.Tokens(session.ID))
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// queryInt parses an integer query parameter with a default.
func queryInt(r *http.Request, key string, defaultValue int) int {
	if val := r.URL.Query().Get(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n >= 0 {
			return n
		}
	}
	return defaultValue
}
