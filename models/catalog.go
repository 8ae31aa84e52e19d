// ABOUTME: Marketplace domain models: products, RFQs, quotes, cart, orders
// ABOUTME: Mirrors the upstream marketplace API wire format

package models

import "time"

// Product is a catalog listing offered by a seller.
type Product struct {
	ID          string  `json:"id"`
	SellerID    string  `json:"seller_id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category"`
	UnitPrice   float64 `json:"unit_price"`
	Currency    string  `json:"currency"`
	MinOrderQty int     `json:"min_order_qty"`
	Origin      string  `json:"origin,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
}

// ProductPage is one page of catalog results.
type ProductPage struct {
	Content []Product `json:"content"`
	Last    bool      `json:"last"`
}

// RFQ is a buyer-initiated request for quotation.
type RFQ struct {
	ID          string    `json:"id"`
	BuyerID     string    `json:"buyer_id"`
	ProductID   string    `json:"product_id"`
	Quantity    int       `json:"quantity"`
	TargetPrice float64   `json:"target_price,omitempty"`
	Currency    string    `json:"currency"`
	Incoterm    string    `json:"incoterm,omitempty"`
	Destination string    `json:"destination,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateRFQRequest is the payload for opening a new RFQ.
type CreateRFQRequest struct {
	ProductID   string  `json:"product_id"`
	Quantity    int     `json:"quantity"`
	TargetPrice float64 `json:"target_price,omitempty"`
	Currency    string  `json:"currency"`
	Incoterm    string  `json:"incoterm,omitempty"`
	Destination string  `json:"destination,omitempty"`
}

// Quote is a seller's priced response to an RFQ.
type Quote struct {
	ID           string    `json:"id"`
	RFQID        string    `json:"rfq_id"`
	SellerID     string    `json:"seller_id"`
	UnitPrice    float64   `json:"unit_price"`
	Currency     string    `json:"currency"`
	LeadTimeDays int       `json:"lead_time_days"`
	ValidTo      time.Time `json:"valid_to,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// SubmitQuoteRequest is the payload for quoting against an RFQ.
type SubmitQuoteRequest struct {
	UnitPrice    float64   `json:"unit_price"`
	Currency     string    `json:"currency"`
	LeadTimeDays int       `json:"lead_time_days"`
	ValidTo      time.Time `json:"valid_to,omitempty"`
}

// CartItem is one line in the buyer's cart.
type CartItem struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Currency  string  `json:"currency"`
}

// Cart is the buyer's current cart as held by the upstream API.
type Cart struct {
	Items    []CartItem `json:"items"`
	Subtotal float64    `json:"subtotal"`
	Currency string     `json:"currency"`
}

// AddCartItemRequest adds a product to the cart.
type AddCartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CheckoutRequest turns the cart into an order.
type CheckoutRequest struct {
	ShippingAddress string `json:"shipping_address"`
	Incoterm        string `json:"incoterm,omitempty"`
	PaymentMethod   string `json:"payment_method"`
}

// Order is a placed order.
type Order struct {
	ID        string     `json:"id"`
	BuyerID   string     `json:"buyer_id"`
	Items     []CartItem `json:"items"`
	Total     float64    `json:"total"`
	Currency  string     `json:"currency"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

// RevenuePoint is one day of seller revenue for the analytics chart.
type RevenuePoint struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
}

// AnalyticsSummary holds seller sales totals from the upstream API.
type AnalyticsSummary struct {
	TotalRevenue    float64 `json:"total_revenue"`
	Currency        string  `json:"currency"`
	OrderCount      int     `json:"order_count"`
	QuoteCount      int     `json:"quote_count"`
	AcceptedQuotes  int     `json:"accepted_quotes"`
	OpenRFQCount    int     `json:"open_rfq_count"`
	RepeatBuyerRate float64 `json:"repeat_buyer_rate"`
}

// SalesAnalytics combines the summary and revenue series for the seller
// dashboard; the gateway assembles it from multiple upstream calls.
type SalesAnalytics struct {
	Summary AnalyticsSummary `json:"summary"`
	Revenue []RevenuePoint   `json:"revenue"`
}
