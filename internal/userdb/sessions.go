package userdb

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"
)

const sessionTokenPrefix = "bujo_s_"

// Session is a signed-in browser or API client.
type Session struct {
	ID         string
	UserID     string
	ExpiresAt  time.Time
	LastSeenAt *time.Time
	CreatedAt  time.Time
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// CreateSession issues a session for userID. The plaintext token is returned
// once; only its hash is stored.
func (db *DB) CreateSession(userID string, expiresAt time.Time) (string, *Session, error) {
	id, err := generateID("s_")
	if err != nil {
		return "", nil, fmt.Errorf("generate session id: %w", err)
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", nil, fmt.Errorf("generate session token: %w", err)
	}
	token := sessionTokenPrefix + base64.RawURLEncoding.EncodeToString(secret)

	now := time.Now().UTC()
	s := &Session{ID: id, UserID: userID, ExpiresAt: expiresAt.UTC(), CreatedAt: now}
	_, err = db.conn.Exec(
		`INSERT INTO sessions (id, user_id, token_hash, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.UserID, hashToken(token), s.ExpiresAt, s.CreatedAt,
	)
	if err != nil {
		return "", nil, fmt.Errorf("insert session: %w", err)
	}
	return token, s, nil
}

// VerifySession returns the session and user for token, or nils when the
// token is unknown or expired.
func (db *DB) VerifySession(token string) (*Session, *User, error) {
	hash := hashToken(token)
	s := &Session{}
	u := &User{}
	err := db.conn.QueryRow(`
		SELECT s.id, s.user_id, s.expires_at, s.last_seen_at, s.created_at,
		       u.id, u.username, u.name, u.email, u.avatar, u.access_token, u.id_token, u.refresh_token,
		       u.token_expires_at, u.created_at, u.last_login_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = ?`, hash,
	).Scan(
		&s.ID, &s.UserID, &s.ExpiresAt, &s.LastSeenAt, &s.CreatedAt,
		&u.ID, &u.Username, &u.Name, &u.Email, &u.Avatar, &u.AccessToken, &u.IDToken, &u.RefreshToken,
		&u.TokenExpiresAt, &u.CreatedAt, &u.LastLoginAt,
	)
	if err == sql.ErrNoRows {
		slog.Debug("session not found", "token_hash_prefix", hash[:8])
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("verify session: %w", err)
	}
	if err := db.openTokens(u); err != nil {
		return nil, nil, fmt.Errorf("verify session: %w", err)
	}
	now := time.Now().UTC()
	if !s.ExpiresAt.After(now) {
		slog.Debug("session expired", "session_id", s.ID, "expires_at", s.ExpiresAt)
		return nil, nil, nil
	}
	if _, err := db.conn.Exec(`UPDATE sessions SET last_seen_at = ? WHERE id = ?`, now, s.ID); err != nil {
		slog.Warn("update session last_seen_at", "session_id", s.ID, "err", err)
	} else {
		s.LastSeenAt = &now
	}
	return s, u, nil
}

// DeleteSession removes the session for token. A missing session is not an error.
func (db *DB) DeleteSession(token string) error {
	if _, err := db.conn.Exec(`DELETE FROM sessions WHERE token_hash = ?`, hashToken(token)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteUserSessions removes every session of userID and returns the count.
func (db *DB) DeleteUserSessions(userID string) (int64, error) {
	res, err := db.conn.Exec(`DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete user sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// CleanupExpiredSessions deletes expired sessions.
func (db *DB) CleanupExpiredSessions() (int64, error) {
	res, err := db.conn.Exec(`DELETE FROM sessions WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("cleanup sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
