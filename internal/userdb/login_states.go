package userdb

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LoginStateTTL is how long an OAuth login may take.
const LoginStateTTL = 10 * time.Minute

// LoginState is a pending OAuth authorization.
type LoginState struct {
	ID        string
	State     string
	Redirect  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// CreateLoginState starts a login that returns to redirect.
func (db *DB) CreateLoginState(redirect string) (*LoginState, error) {
	id, err := generateID("ls_")
	if err != nil {
		return nil, fmt.Errorf("generate login state id: %w", err)
	}
	if redirect == "" {
		redirect = "/"
	}
	now := time.Now().UTC()
	ls := &LoginState{
		ID:        id,
		State:     uuid.NewString(),
		Redirect:  redirect,
		ExpiresAt: now.Add(LoginStateTTL),
		CreatedAt: now,
	}
	_, err = db.conn.Exec(
		`INSERT INTO login_states (id, state, redirect, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		ls.ID, ls.State, ls.Redirect, ls.ExpiresAt, ls.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert login state: %w", err)
	}
	return ls, nil
}

// ConsumeLoginState returns and deletes the login state with id. It returns
// nil when the state is missing or expired.
func (db *DB) ConsumeLoginState(id string) (*LoginState, error) {
	ls := &LoginState{}
	err := db.conn.QueryRow(
		`DELETE FROM login_states WHERE id = ? RETURNING id, state, redirect, expires_at, created_at`, id,
	).Scan(&ls.ID, &ls.State, &ls.Redirect, &ls.ExpiresAt, &ls.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("consume login state: %w", err)
	}
	if !ls.ExpiresAt.After(time.Now().UTC()) {
		return nil, nil
	}
	return ls, nil
}

// CleanupExpiredLoginStates deletes expired login states.
func (db *DB) CleanupExpiredLoginStates() (int64, error) {
	res, err := db.conn.Exec(`DELETE FROM login_states WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("cleanup login states: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
