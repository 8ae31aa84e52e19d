// ABOUTME: Session model holding upstream tokens for a browser session
// ABOUTME: Tokens live server-side only and are never serialized to the client

package models

import "time"

// Session represents a server-side authentication session. The access and
// refresh tokens for the upstream marketplace API are held here; the browser
// only ever sees the opaque session ID in an httpOnly cookie.
type Session struct {
	ID           string    `json:"-"`
	Username     string    `json:"username"`
	UserID       string    `json:"user_id"`
	Role         string    `json:"role"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	CSRFToken    string    `json:"-"`
	TokenExpiry  time.Time `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
