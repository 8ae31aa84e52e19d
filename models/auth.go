// ABOUTME: Request/response models for the auth endpoints
// ABOUTME: Login, logout, and session status payloads exchanged with the browser

package models

// LoginRequest is the browser login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned after a login attempt. Tokens are deliberately
// absent; the session cookie is the only credential the browser receives.
type LoginResponse struct {
	Success  bool   `json:"success"`
	Username string `json:"username,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	Role     string `json:"role,omitempty"`
	Error    string `json:"error,omitempty"`
}

// UserInfoResponse describes the current session for GET /auth/me.
type UserInfoResponse struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	Role          string `json:"role,omitempty"`
}

// ErrorResponse is the standard JSON error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    int    `json:"code"`
}
