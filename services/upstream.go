// ABOUTME: Authenticated HTTP client for the upstream marketplace API
// ABOUTME: Attaches bearer tokens, coordinates 401 refresh via singleflight, replays once

package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/prit1626/IndiExport-B2B-sub001/config"
)

// ErrSessionExpired indicates the refresh exchange failed (or no refresh token
// existed) and the session has been invalidated. Callers must re-authenticate.
var ErrSessionExpired = errors.New("session expired, re-authentication required")

// TokenSource supplies the credentials for one browser session and receives
// token rotations and invalidations. Implementations must return the latest
// stored values on every call, not a snapshot.
type TokenSource interface {
	// Key uniquely identifies the session; concurrent refreshes for the same
	// key are coalesced into a single upstream exchange.
	Key() string
	AccessToken() string
	RefreshToken() string
	// SetTokens persists a rotated access/refresh pair.
	SetTokens(accessToken, refreshToken string)
	// Logout invalidates the session after an irrecoverable refresh failure.
	Logout()
}

// APIError is a non-2xx upstream response passed through to the caller.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// IsUnauthorized reports whether err is an upstream 401.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// RequestOption customizes a single upstream request.
type RequestOption func(*requestSpec)

type requestSpec struct {
	query  url.Values
	header http.Header
}

// WithQuery adds query parameters to the request URL.
func WithQuery(values url.Values) RequestOption {
	return func(s *requestSpec) {
		for k, vs := range values {
			for _, v := range vs {
				s.query.Add(k, v)
			}
		}
	}
}

// WithHeader adds a header to the request (and to its replay after a refresh).
func WithHeader(key, value string) RequestOption {
	return func(s *requestSpec) {
		s.header.Set(key, value)
	}
}

// UpstreamClient performs authenticated calls against the marketplace API.
// One client is shared by all sessions; per-session credentials arrive via
// the TokenSource passed to each call.
type UpstreamClient struct {
	baseURL      string
	httpClient   *http.Client
	refreshGroup singleflight.Group
}

// NewUpstreamClient builds a client from gateway configuration. The HTTP
// client enforces the configured per-request timeout; a timed-out request
// surfaces as a transport error and never enters refresh recovery.
func NewUpstreamClient(cfg *config.Config) *UpstreamClient {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.UpstreamSkipSSLValidation},
	}
	if cfg.UpstreamAllProxy != "" {
		if dial := createSOCKS5DialContextFunc(cfg.UpstreamAllProxy); dial != nil {
			transport.DialContext = dial
		}
	}

	return &UpstreamClient{
		baseURL: strings.TrimRight(cfg.UpstreamAPIURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.UpstreamTimeout,
			Transport: transport,
		},
	}
}

// Do performs an authenticated request and returns the response body.
//
// The access token is read from tokens at send time. A 401 response triggers
// exactly one coordinated refresh per session (concurrent 401s on the same
// session wait on the in-flight exchange) followed by a single replay of the
// original request. A second 401 after the replay is returned to the caller
// as a terminal *APIError. Transport errors and non-401 statuses bypass
// recovery entirely.
func (c *UpstreamClient) Do(ctx context.Context, tokens TokenSource, method, path string, body any, opts ...RequestOption) ([]byte, error) {
	spec := &requestSpec{
		query:  url.Values{},
		header: http.Header{},
	}
	for _, opt := range opts {
		opt(spec)
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	usedToken := tokens.AccessToken()
	respBody, status, err := c.send(ctx, method, path, payload, usedToken, spec)
	if err != nil {
		// Transport-level failure: no response was received, refresh cannot help.
		return nil, err
	}

	if status != http.StatusUnauthorized {
		return checkStatus(respBody, status)
	}

	// Unauthorized: run (or wait on) the session's refresh exchange, then
	// replay the original request once with the rotated token.
	if err := c.refreshTokens(ctx, tokens, usedToken); err != nil {
		tokens.Logout()
		slog.Warn("Token refresh failed, session invalidated", "session", tokens.Key(), "error", err)
		return nil, fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	respBody, status, err = c.send(ctx, method, path, payload, tokens.AccessToken(), spec)
	if err != nil {
		return nil, err
	}

	// A second 401 is terminal; retrying again would loop forever.
	return checkStatus(respBody, status)
}

// Unauthenticated performs a request without attaching credentials, for
// endpoints like login that precede any session.
func (c *UpstreamClient) Unauthenticated(ctx context.Context, method, path string, body any, opts ...RequestOption) ([]byte, error) {
	spec := &requestSpec{
		query:  url.Values{},
		header: http.Header{},
	}
	for _, opt := range opts {
		opt(spec)
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	respBody, status, err := c.send(ctx, method, path, payload, "", spec)
	if err != nil {
		return nil, err
	}
	return checkStatus(respBody, status)
}

// send issues one HTTP request and reads the full response body.
func (c *UpstreamClient) send(ctx context.Context, method, path string, payload []byte, token string, spec *requestSpec) ([]byte, int, error) {
	reqURL := c.baseURL + path
	if len(spec.query) > 0 {
		reqURL += "?" + spec.query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	for k, vs := range spec.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read upstream response: %w", err)
	}

	return respBody, resp.StatusCode, nil
}

// refreshTokenResponse is the upstream token exchange response. The refresh
// token field is optional; when omitted the previous one stays valid.
type refreshTokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// refreshTokens exchanges the session's refresh token for a new token pair.
// Concurrent callers for the same session coalesce onto a single upstream
// exchange; all of them observe that one exchange's outcome. failedToken is
// the access token that just got a 401 -- if the stored token already differs,
// another caller completed a refresh first and no exchange is needed.
func (c *UpstreamClient) refreshTokens(ctx context.Context, tokens TokenSource, failedToken string) error {
	_, err, _ := c.refreshGroup.Do(tokens.Key(), func() (interface{}, error) {
		if tokens.AccessToken() != failedToken {
			return nil, nil
		}

		refreshToken := tokens.RefreshToken()
		if refreshToken == "" {
			return nil, errors.New("no refresh token available")
		}

		body, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
		if err != nil {
			return nil, fmt.Errorf("failed to encode refresh request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/refresh", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create refresh request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("refresh request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("token refresh failed (status %d): %s", resp.StatusCode, string(respBody))
		}

		var tokenResp refreshTokenResponse
		if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
			return nil, fmt.Errorf("failed to parse refresh response: %w", err)
		}
		if tokenResp.AccessToken == "" {
			return nil, errors.New("refresh response missing access token")
		}

		// Server may omit a rotated refresh token; keep the old one then.
		if tokenResp.RefreshToken == "" {
			tokenResp.RefreshToken = refreshToken
		}

		tokens.SetTokens(tokenResp.AccessToken, tokenResp.RefreshToken)
		slog.Debug("Upstream tokens refreshed", "session", tokens.Key())
		return nil, nil
	})
	return err
}

// checkStatus converts non-2xx responses into *APIError.
func checkStatus(body []byte, status int) ([]byte, error) {
	if status >= 200 && status < 300 {
		return body, nil
	}
	return nil, &APIError{StatusCode: status, Body: string(body)}
}
