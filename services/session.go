// ABOUTME: Session management service: server-side sessions holding upstream tokens
// ABOUTME: Durable via the SQLite store, with an in-memory cache on the hot path

package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/prit1626/IndiExport-B2B-sub001/cache"
	"github.com/prit1626/IndiExport-B2B-sub001/models"
	"github.com/prit1626/IndiExport-B2B-sub001/store"
)

// ErrSessionNotFound is returned when a session ID resolves to nothing.
var ErrSessionNotFound = errors.New("session not found")

// SessionService manages server-side authentication sessions. Every lookup
// returns the latest stored token values; the only writers are login, the
// refresh step inside the upstream client, and logout.
type SessionService struct {
	cache      *cache.Cache
	store      *store.SessionStore // optional; nil disables persistence
	invalidate func(sessionID string)
}

// NewSessionService creates a session service. store may be nil, in which
// case sessions live only in memory.
func NewSessionService(c *cache.Cache, s *store.SessionStore) *SessionService {
	return &SessionService{cache: c, store: s}
}

// OnInvalidate registers a hook called whenever a session is destroyed
// (logout or irrecoverable refresh failure), e.g. to tear down the session's
// chat synchronizer.
func (s *SessionService) OnInvalidate(fn func(sessionID string)) {
	s.invalidate = fn
}

// Create generates a new session holding the given upstream tokens and
// returns the cryptographically secure session ID.
func (s *SessionService) Create(username, userID, role, accessToken, refreshToken string) (string, error) {
	sessionID, err := randomToken()
	if err != nil {
		return "", err
	}
	csrfToken, err := randomToken()
	if err != nil {
		return "", err
	}

	session := &models.Session{
		ID:           sessionID,
		Username:     username,
		UserID:       userID,
		Role:         role,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		CSRFToken:    csrfToken,
		TokenExpiry:  accessTokenExpiry(accessToken),
		CreatedAt:    time.Now(),
	}

	if err := s.persist(session); err != nil {
		return "", err
	}

	return sessionID, nil
}

// Get retrieves a session by ID, falling back to the durable store when the
// cache entry has been evicted (e.g. after a restart). The returned session
// is a private snapshot: callers may read or mutate it freely, and concurrent
// token rotation can never race a reader. Writers go through UpdateTokens,
// which swaps a fresh snapshot into the cache.
func (s *SessionService) Get(sessionID string) (*models.Session, error) {
	if val, ok := s.cache.Get(sessionKey(sessionID)); ok {
		if session, ok := val.(*models.Session); ok {
			snapshot := *session
			return &snapshot, nil
		}
	}

	if s.store != nil {
		session, err := s.store.Get(context.Background(), sessionID)
		if err != nil {
			return nil, err
		}
		if session != nil {
			s.cacheSession(session)
			snapshot := *session
			return &snapshot, nil
		}
	}

	return nil, ErrSessionNotFound
}

// Delete removes a session from cache and store.
func (s *SessionService) Delete(sessionID string) {
	s.cache.Clear(sessionKey(sessionID))
	if s.store != nil {
		if err := s.store.Delete(context.Background(), sessionID); err != nil {
			slog.Warn("Failed to delete persisted session", "error", err)
		}
	}
	if s.invalidate != nil {
		s.invalidate(sessionID)
	}
}

// UpdateTokens replaces the tokens for an existing session. Get hands back a
// snapshot, so the rotation mutates a fresh struct and persist swaps it in;
// the previously cached session is never written to.
func (s *SessionService) UpdateTokens(sessionID, accessToken, refreshToken string) error {
	session, err := s.Get(sessionID)
	if err != nil {
		return err
	}

	session.AccessToken = accessToken
	session.RefreshToken = refreshToken
	session.TokenExpiry = accessTokenExpiry(accessToken)

	return s.persist(session)
}

// Tokens returns a TokenSource bound to the session. Reads always resolve
// the latest stored values, never a snapshot taken at bind time.
func (s *SessionService) Tokens(sessionID string) TokenSource {
	return &sessionTokenSource{svc: s, sessionID: sessionID}
}

func (s *SessionService) persist(session *models.Session) error {
	s.cacheSession(session)
	if s.store != nil {
		if err := s.store.Upsert(context.Background(), session); err != nil {
			return err
		}
	}
	return nil
}

func (s *SessionService) cacheSession(session *models.Session) {
	// Cache at least until the access token expires plus refresh headroom;
	// the durable store is authoritative beyond that.
	ttl := time.Until(session.TokenExpiry) + 10*time.Minute
	if ttl < time.Minute {
		ttl = time.Minute
	}
	s.cache.SetWithTTL(sessionKey(session.ID), session, ttl)
}

// sessionKey returns the cache key for a session ID.
func sessionKey(sessionID string) string {
	return "session:" + sessionID
}

// randomToken returns 32 bytes of cryptographically secure random data,
// base64url encoded.
func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// accessTokenExpiry peeks at the exp claim of a JWT access token without
// verifying it; signature verification is the upstream API's job. Opaque
// (non-JWT) tokens get a conservative one-hour bookkeeping expiry.
func accessTokenExpiry(accessToken string) time.Time {
	fallback := time.Now().Add(time.Hour)

	token, _, err := jwt.NewParser().ParseUnverified(accessToken, jwt.MapClaims{})
	if err != nil {
		return fallback
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return fallback
	}
	return exp.Time
}

// sessionTokenSource adapts one session to the upstream client's TokenSource.
type sessionTokenSource struct {
	svc       *SessionService
	sessionID string
}

func (t *sessionTokenSource) Key() string {
	return t.sessionID
}

func (t *sessionTokenSource) AccessToken() string {
	session, err := t.svc.Get(t.sessionID)
	if err != nil {
		return ""
	}
	return session.AccessToken
}

func (t *sessionTokenSource) RefreshToken() string {
	session, err := t.svc.Get(t.sessionID)
	if err != nil {
		return ""
	}
	return session.RefreshToken
}

func (t *sessionTokenSource) SetTokens(accessToken, refreshToken string) {
	if err := t.svc.UpdateTokens(t.sessionID, accessToken, refreshToken); err != nil {
		slog.Error("Failed to persist rotated tokens", "session", t.sessionID, "error", err)
	}
}

func (t *sessionTokenSource) Logout() {
	t.svc.Delete(t.sessionID)
}
