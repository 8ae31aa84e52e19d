// ABOUTME: Chat message models shared between the transcript synchronizer and handlers
// ABOUTME: Mirrors the upstream marketplace chat API wire format

package models

import "time"

// MessageKind discriminates the payload carried by a chat message.
type MessageKind string

const (
	MessageText          MessageKind = "text"
	MessageFile          MessageKind = "file"
	MessagePriceProposal MessageKind = "price_proposal"
	MessageSystem        MessageKind = "system"
)

// PriceProposal is the structured payload of a price_proposal message,
// exchanged during RFQ negotiation.
type PriceProposal struct {
	ProductID string    `json:"product_id"`
	UnitPrice float64   `json:"unit_price"`
	Currency  string    `json:"currency"`
	Quantity  int       `json:"quantity"`
	ValidTo   time.Time `json:"valid_to,omitempty"`
}

// ChatMessage is one message in a conversation. Messages are immutable once
// created; the server assigns ID and CreatedAt.
type ChatMessage struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	SenderID       string         `json:"sender_id"`
	Kind           MessageKind    `json:"kind"`
	Body           string         `json:"body,omitempty"`
	FileURL        string         `json:"file_url,omitempty"`
	Proposal       *PriceProposal `json:"proposal,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// MessagePage is one page of conversation history from the upstream API.
// Page 0 is the most recent page and pages arrive newest-first.
type MessagePage struct {
	Content []ChatMessage `json:"content"`
	Last    bool          `json:"last"`
}

// SendMessageRequest is the payload for sending a message.
type SendMessageRequest struct {
	Kind     MessageKind    `json:"kind"`
	Body     string         `json:"body,omitempty"`
	FileURL  string         `json:"file_url,omitempty"`
	Proposal *PriceProposal `json:"proposal,omitempty"`
}

// DayGroup is a contiguous run of messages sharing a calendar day, labeled
// for display ("Today", "Yesterday", or an explicit date).
type DayGroup struct {
	Label    string        `json:"label"`
	Messages []ChatMessage `json:"messages"`
}
