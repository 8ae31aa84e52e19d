// ABOUTME: Typed marketplace API client: catalog, RFQs, quotes, cart, orders, chat
// ABOUTME: All calls flow through the authenticated upstream client

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/prit1626/IndiExport-B2B-sub001/models"
)

// MarketplaceClient wraps the upstream client with typed operations for the
// storefront. Credentials arrive per call via the session's TokenSource.
type MarketplaceClient struct {
	api *UpstreamClient
}

// NewMarketplaceClient creates a marketplace client over the given transport.
func NewMarketplaceClient(api *UpstreamClient) *MarketplaceClient {
	return &MarketplaceClient{api: api}
}

// loginResponse is the upstream login payload.
type loginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	UserID       string `json:"userId"`
	Username     string `json:"username"`
	Role         string `json:"role"`
}

// LoginResult carries the tokens and identity from a successful login.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	UserID       string
	Username     string
	Role         string
}

// Login authenticates with the upstream API using credentials. No session
// exists yet, so the request is unauthenticated.
func (m *MarketplaceClient) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	body, err := m.api.Unauthenticated(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse login response: %w", err)
	}

	return &LoginResult{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		UserID:       resp.UserID,
		Username:     resp.Username,
		Role:         resp.Role,
	}, nil
}

// Products fetches one page of the catalog, optionally filtered by category.
func (m *MarketplaceClient) Products(ctx context.Context, tokens TokenSource, page, size int, category string) (*models.ProductPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(size))
	if category != "" {
		query.Set("category", category)
	}

	body, err := m.api.Do(ctx, tokens, http.MethodGet, "/products", nil, WithQuery(query))
	if err != nil {
		return nil, err
	}

	var result models.ProductPage
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse product page: %w", err)
	}
	return &result, nil
}

// Product fetches a single catalog listing.
func (m *MarketplaceClient) Product(ctx context.Context, tokens TokenSource, productID string) (*models.Product, error) {
	body, err := m.api.Do(ctx, tokens, http.MethodGet, "/products/"+productID, nil)
	if err != nil {
		return nil, err
	}

	var result models.Product
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse product: %w", err)
	}
	return &result, nil
}

// RFQs lists the caller's requests for quotation (as buyer or seller,
// depending on the session's role upstream).
func (m *MarketplaceClient) RFQs(ctx context.Context, tokens TokenSource) ([]models.RFQ, error) {
	body, err := m.api.Do(ctx, tokens, http.MethodGet, "/rfqs", nil)
	if err != nil {
		return nil, err
	}

	var result []models.RFQ
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse RFQ list: %w", err)
	}
	return result, nil
}

// CreateRFQ opens a new request for quotation.
func (m *MarketplaceClient) CreateRFQ(ctx context.Context, tokens TokenSource, req models.CreateRFQRequest) (*models.RFQ, error) {
	body, err := m.api.Do(ctx, tokens, http.MethodPost, "/rfqs", req)
	if err != nil {
		return nil, err
	}

	var result models.RFQ
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse RFQ: %w", err)
	}
	return &result, nil
}

// SubmitQuote answers an RFQ with a priced quote.
func (m *MarketplaceClient) SubmitQuote(ctx context.Context, tokens TokenSource, rfqID string, req models.SubmitQuoteRequest) (*models.Quote, error) {
	body, err := m.api.Do(ctx, tokens, http.MethodPost, "/rfqs/"+rfqID+"/quote", req)
	if err != nil {
		return nil, err
	}

	var result models.Quote
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse quote: %w", err)
	}
	return &result, nil
}

// Cart fetches the buyer's current cart.
func (m *MarketplaceClient) Cart(ctx context.Context, tokens TokenSource) (*models.Cart, error) {
	body, err := m.api.Do(ctx, tokens, http.MethodGet, "/cart", nil)
	if err != nil {
		return nil, err
	}

	var result models.Cart
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse cart: %w", err)
	}
	return &result, nil
}

// AddCartItem puts a product into the cart and returns the updated cart.
func (m *MarketplaceClient) AddCartItem(ctx context.Context, tokens TokenSource, req models.AddCartItemRequest) (*models.Cart, error) {
	body, err := m.api.Do(ctx, tokens, http.MethodPost, "/cart/items", req)
	if err != nil {
		return nil, err
	}

	var result models.Cart
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse cart: %w", err)
	}
	return &result, nil
}

// RemoveCartItem deletes a cart line and returns the updated cart.
func (m *MarketplaceClient) RemoveCartItem(ctx context.Context, tokens TokenSource, itemID string) (*models.Cart, error) {
	body, err := m.api.Do(ctx, tokens, http.MethodDelete, "/cart/items/"+itemID, nil)
	if err != nil {
		return nil, err
	}

	var result models.Cart
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse cart: %w", err)
	}
	return &result, nil
}

// Checkout places an order from the current cart. An Idempotency-Key header
// is attached so that a retried checkout (including the post-refresh replay)
// can never double-order.
func (m *MarketplaceClient) Checkout(ctx context.Context, tokens TokenSource, req models.CheckoutRequest) (*models.Order, error) {
	body, err := m.api.Do(ctx, tokens, http.MethodPost, "/checkout", req,
		WithHeader("Idempotency-Key", uuid.NewString()))
	if err != nil {
		return nil, err
	}

	var result models.Order
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse order: %w", err)
	}
	return &result, nil
}

// Orders lists the caller's placed orders.
func (m *MarketplaceClient) Orders(ctx context.Context, tokens TokenSource) ([]models.Order, error) {
	body, err := m.api.Do(ctx, tokens, http.MethodGet, "/orders", nil)
	if err != nil {
		return nil, err
	}

	var result []models.Order
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse order list: %w", err)
	}
	return result, nil
}

// SalesAnalytics assembles the seller dashboard from the summary and revenue
// endpoints, fetched concurrently.
func (m *MarketplaceClient) SalesAnalytics(ctx context.Context, tokens TokenSource) (*models.SalesAnalytics, error) {
	var (
		summary models.AnalyticsSummary
		revenue []models.RevenuePoint
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		body, err := m.api.Do(gctx, tokens, http.MethodGet, "/analytics/summary", nil)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, &summary); err != nil {
			return fmt.Errorf("failed to parse analytics summary: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		body, err := m.api.Do(gctx, tokens, http.MethodGet, "/analytics/revenue", nil)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, &revenue); err != nil {
			return fmt.Errorf("failed to parse revenue series: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.SalesAnalytics{Summary: summary, Revenue: revenue}, nil
}

// Messages fetches one page of conversation history.
func (m *MarketplaceClient) Messages(ctx context.Context, tokens TokenSource, conversationID string, page, size int) (*models.MessagePage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(size))

	body, err := m.api.Do(ctx, tokens, http.MethodGet, "/chats/"+conversationID+"/messages", nil, WithQuery(query))
	if err != nil {
		return nil, err
	}

	var result models.MessagePage
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse message page: %w", err)
	}
	return &result, nil
}

// SendMessage posts a message to a conversation and returns the persisted
// copy with the server-assigned ID and timestamp.
func (m *MarketplaceClient) SendMessage(ctx context.Context, tokens TokenSource, conversationID string, req models.SendMessageRequest) (*models.ChatMessage, error) {
	body, err := m.api.Do(ctx, tokens, http.MethodPost, "/chats/"+conversationID+"/message", req)
	if err != nil {
		return nil, err
	}

	var result models.ChatMessage
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse sent message: %w", err)
	}
	return &result, nil
}

// ChatAPI binds the chat endpoints to one session's credentials for use by
// the transcript synchronizer.
func (m *MarketplaceClient) ChatAPI(tokens TokenSource) ChatAPI {
	return &boundChatAPI{client: m, tokens: tokens}
}

type boundChatAPI struct {
	client *MarketplaceClient
	tokens TokenSource
}

func (b *boundChatAPI) History(ctx context.Context, conversationID string, page, size int) (*models.MessagePage, error) {
	return b.client.Messages(ctx, b.tokens, conversationID, page, size)
}

func (b *boundChatAPI) Send(ctx context.Context, conversationID string, req models.SendMessageRequest) (*models.ChatMessage, error) {
	return b.client.SendMessage(ctx, b.tokens, conversationID, req)
}
