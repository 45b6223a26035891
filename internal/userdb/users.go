package userdb

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// User is a signed-in account. ID is the provider's preferred username, or
// its subject when no username is given.
type User struct {
	ID             string
	Username       string
	Name           string
	Email          string
	Avatar         string
	AccessToken    string
	IDToken        string
	RefreshToken   string
	TokenExpiresAt *time.Time
	CreatedAt      time.Time
	LastLoginAt    *time.Time
}

const userColumns = `id, username, name, email, avatar, access_token, id_token, refresh_token, token_expires_at, created_at, last_login_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner, u *User) error {
	return row.Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.Avatar,
		&u.AccessToken, &u.IDToken, &u.RefreshToken, &u.TokenExpiresAt, &u.CreatedAt, &u.LastLoginAt)
}

// UpsertUser inserts u or updates the stored profile and tokens. CreatedAt of
// an existing user is kept.
func (db *DB) UpsertUser(u *User) error {
	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("user id is required")
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	tokens, err := db.sealTokens(u.AccessToken, u.IDToken, u.RefreshToken)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	_, err = db.conn.Exec(`
		INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			name = excluded.name,
			email = excluded.email,
			avatar = excluded.avatar,
			access_token = excluded.access_token,
			id_token = excluded.id_token,
			refresh_token = excluded.refresh_token,
			token_expires_at = excluded.token_expires_at,
			last_login_at = COALESCE(excluded.last_login_at, users.last_login_at)`,
		u.ID, u.Username, u.Name, u.Email, u.Avatar,
		tokens[0], tokens[1], tokens[2], u.TokenExpiresAt, u.CreatedAt, u.LastLoginAt,
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return db.conn.QueryRow(`SELECT created_at FROM users WHERE id = ?`, u.ID).Scan(&u.CreatedAt)
}

// GetUser returns the user with id, or nil if not found.
func (db *DB) GetUser(id string) (*User, error) {
	u := &User{}
	err := scanUser(db.conn.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id), u)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if err := db.openTokens(u); err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// ListUsers returns all users, oldest first.
func (db *DB) ListUsers() ([]*User, error) {
	rows, err := db.conn.Query(`SELECT ` + userColumns + ` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u := &User{}
		if err := scanUser(rows, u); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		if err := db.openTokens(u); err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: iterate: %w", err)
	}
	return users, nil
}

// TouchLastLogin sets the user's last login time to now.
func (db *DB) TouchLastLogin(id string) error {
	return db.execUser(`UPDATE users SET last_login_at = ? WHERE id = ?`, "touch last login", time.Now().UTC(), id)
}

// ClearTokens empties the stored OAuth tokens and expires them now.
func (db *DB) ClearTokens(id string) error {
	return db.execUser(`UPDATE users SET access_token = '', id_token = '', refresh_token = '', token_expires_at = ? WHERE id = ?`,
		"clear tokens", time.Now().UTC(), id)
}

// IsTokenValid reports whether the user has an access token that has not expired.
func (db *DB) IsTokenValid(id string) (bool, error) {
	u, err := db.GetUser(id)
	if err != nil || u == nil {
		return false, err
	}
	if u.AccessToken == "" || u.TokenExpiresAt == nil {
		return false, nil
	}
	return u.TokenExpiresAt.After(time.Now().UTC()), nil
}

func (db *DB) sealTokens(tokens ...string) ([]string, error) {
	if db.sealer == nil {
		return tokens, nil
	}
	out := make([]string, len(tokens))
	for i, t := range tokens {
		sealed, err := db.sealer.Seal(t)
		if err != nil {
			return nil, fmt.Errorf("seal token: %w", err)
		}
		out[i] = sealed
	}
	return out, nil
}

func (db *DB) openTokens(u *User) error {
	if db.sealer == nil {
		return nil
	}
	for _, t := range []*string{&u.AccessToken, &u.IDToken, &u.RefreshToken} {
		plain, err := db.sealer.Open(*t)
		if err != nil {
			return fmt.Errorf("open token: %w", err)
		}
		*t = plain
	}
	return nil
}

func (db *DB) execUser(query, op string, args ...any) error {
	res, err := db.conn.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: user not found: %v", op, args[len(args)-1])
	}
	return nil
}
