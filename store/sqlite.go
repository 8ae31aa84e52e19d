// ABOUTME: SQLite-backed persistence for authentication sessions
// ABOUTME: Sessions (with upstream tokens) survive gateway restarts

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/prit1626/IndiExport-B2B-sub001/models"
)

// SessionStore persists sessions to SQLite so a gateway restart does not log
// every user out.
type SessionStore struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the session database at dbPath.
func NewSQLite(dbPath string) (*SessionStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SessionStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SessionStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		access_token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		csrf_token TEXT NOT NULL,
		token_expiry INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Get retrieves a session by ID. Returns (nil, nil) when no row exists.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	query := `
		SELECT id, username, user_id, role, access_token, refresh_token,
		       csrf_token, token_expiry, created_at
		FROM sessions WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, sessionID)

	var session models.Session
	var tokenExpiry, createdAt int64

	err := row.Scan(
		&session.ID, &session.Username, &session.UserID, &session.Role,
		&session.AccessToken, &session.RefreshToken,
		&session.CSRFToken, &tokenExpiry, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	session.TokenExpiry = time.Unix(tokenExpiry, 0)
	session.CreatedAt = time.Unix(createdAt, 0)

	return &session, nil
}

// Upsert creates or updates a session record.
func (s *SessionStore) Upsert(ctx context.Context, session *models.Session) error {
	query := `
	INSERT INTO sessions (id, username, user_id, role, access_token, refresh_token,
	                      csrf_token, token_expiry, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		access_token = excluded.access_token,
		refresh_token = excluded.refresh_token,
		token_expiry = excluded.token_expiry,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		session.ID, session.Username, session.UserID, session.Role,
		session.AccessToken, session.RefreshToken,
		session.CSRFToken, session.TokenExpiry.Unix(),
		session.CreatedAt.Unix(), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// Delete removes a session.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteIdle removes sessions not touched within ttl and reports how many.
func (s *SessionStore) DeleteIdle(ctx context.Context, ttl time.Duration) (int64, error) {
	threshold := time.Now().Add(-ttl).Unix()
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("delete idle sessions: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (s *SessionStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
