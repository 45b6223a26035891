package userdb

import (
	"fmt"
	"time"
)

// Auth event types.
const (
	AuthEventLogin        = "login"
	AuthEventLogout       = "logout"
	AuthEventLoginFailed  = "login_failed"
	AuthEventAdminRevoked = "admin_revoked"
)

// AuthEvent is one row of the login audit log.
type AuthEvent struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	EventType string    `json:"event_type"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// InsertAuthEvent records an auth event.
func (db *DB) InsertAuthEvent(userID, eventType, detail string) error {
	_, err := db.conn.Exec(
		`INSERT INTO auth_events (user_id, event_type, detail, created_at) VALUES (?, ?, ?, ?)`,
		userID, eventType, detail, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert auth event: %w", err)
	}
	return nil
}

// RecentAuthEvents returns up to limit events, newest first. An empty userID
// matches every user.
func (db *DB) RecentAuthEvents(userID string, limit int) ([]AuthEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, user_id, event_type, detail, created_at FROM auth_events`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query auth events: %w", err)
	}
	defer rows.Close()

	var events []AuthEvent
	for rows.Next() {
		var e AuthEvent
		if err := rows.Scan(&e.ID, &e.UserID, &e.EventType, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan auth event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate auth events: %w", err)
	}
	return events, nil
}

// CleanupAuthEvents deletes events older than olderThan.
func (db *DB) CleanupAuthEvents(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := db.conn.Exec(`DELETE FROM auth_events WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup auth events: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
