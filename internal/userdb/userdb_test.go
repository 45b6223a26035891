package userdb

import (
	"strings"
	"testing"
	"time"

	"github.com/marcus/bujo/internal/crypto"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *DB, id string) *User {
	t.Helper()
	exp := time.Now().UTC().Add(time.Hour)
	u := &User{ID: id, Username: id, Name: strings.ToUpper(id), AccessToken: "at-" + id, TokenExpiresAt: &exp}
	if err := db.UpsertUser(u); err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	return u
}

func TestOpenSetsSchemaVersion(t *testing.T) {
	db := newTestDB(t)
	if v := db.SchemaVersion(); v != SchemaVersion {
		t.Errorf("schema version = %d, want %d", v, SchemaVersion)
	}
	if n, err := db.RunMigrations(); err != nil || n != 0 {
		t.Errorf("second RunMigrations = %d, %v", n, err)
	}
	if err := db.Ping(); err != nil {
		t.Fatal(err)
	}
}

func TestUpsertUserKeepsCreatedAt(t *testing.T) {
	db := newTestDB(t)
	u := seedUser(t, db, "alice")
	created := u.CreatedAt

	update := &User{ID: "alice", Name: "Alice Liddell", Email: "alice@example.com", CreatedAt: created.Add(48 * time.Hour)}
	if err := db.UpsertUser(update); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetUser("alice")
	if err != nil || got == nil {
		t.Fatalf("GetUser = %v, %v", got, err)
	}
	if got.Name != "Alice Liddell" || got.Email != "alice@example.com" {
		t.Errorf("profile not updated: %+v", got)
	}
	if !got.CreatedAt.Equal(created) || !update.CreatedAt.Equal(created) {
		t.Errorf("created_at changed: %v -> %v", created, got.CreatedAt)
	}

	if err := db.UpsertUser(&User{}); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestGetUserMissing(t *testing.T) {
	db := newTestDB(t)
	u, err := db.GetUser("nobody")
	if err != nil || u != nil {
		t.Errorf("GetUser = %v, %v; want nil, nil", u, err)
	}
}

func TestListUsersAndTouch(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "alice")
	seedUser(t, db, "bob")
	users, err := db.ListUsers()
	if err != nil || len(users) != 2 {
		t.Fatalf("ListUsers = %d, %v", len(users), err)
	}
	if err := db.TouchLastLogin("bob"); err != nil {
		t.Fatal(err)
	}
	bob, _ := db.GetUser("bob")
	if bob.LastLoginAt == nil {
		t.Error("last login not set")
	}
	if err := db.TouchLastLogin("nobody"); err == nil {
		t.Error("expected error for unknown user")
	}
}

func TestTokens(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "alice")
	if ok, err := db.IsTokenValid("alice"); err != nil || !ok {
		t.Fatalf("IsTokenValid = %v, %v", ok, err)
	}
	if err := db.ClearTokens("alice"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := db.IsTokenValid("alice"); ok {
		t.Error("token still valid after ClearTokens")
	}
	u, _ := db.GetUser("alice")
	if u.AccessToken != "" || u.TokenExpiresAt == nil {
		t.Errorf("tokens = %+v", u)
	}
	if ok, err := db.IsTokenValid("nobody"); ok || err != nil {
		t.Errorf("unknown user: %v, %v", ok, err)
	}
}

func TestLoginStates(t *testing.T) {
	db := newTestDB(t)
	ls, err := db.CreateLoginState("")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(ls.ID, "ls_") || len(ls.State) != 36 || ls.Redirect != "/" {
		t.Errorf("login state = %+v", ls)
	}

	got, err := db.ConsumeLoginState(ls.ID)
	if err != nil || got == nil || got.State != ls.State {
		t.Fatalf("ConsumeLoginState = %+v, %v", got, err)
	}
	if again, _ := db.ConsumeLoginState(ls.ID); again != nil {
		t.Error("login state reused")
	}

	expired, _ := db.CreateLoginState("/x")
	db.conn.Exec(`UPDATE login_states SET expires_at = ? WHERE id = ?`, time.Now().UTC().Add(-time.Minute), expired.ID)
	if got, _ := db.ConsumeLoginState(expired.ID); got != nil {
		t.Error("expired login state accepted")
	}

	stale, _ := db.CreateLoginState("/y")
	db.conn.Exec(`UPDATE login_states SET expires_at = ? WHERE id = ?`, time.Now().UTC().Add(-time.Minute), stale.ID)
	if n, err := db.CleanupExpiredLoginStates(); err != nil || n != 1 {
		t.Errorf("cleanup = %d, %v", n, err)
	}
}

func TestSessions(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "alice")

	token, s, err := db.CreateSession("alice", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(token, sessionTokenPrefix) {
		t.Errorf("token = %q", token)
	}
	var stored string
	db.conn.QueryRow(`SELECT token_hash FROM sessions WHERE id = ?`, s.ID).Scan(&stored)
	if stored == token || stored != hashToken(token) {
		t.Error("token not stored as hash")
	}

	gotS, gotU, err := db.VerifySession(token)
	if err != nil || gotS == nil || gotU.ID != "alice" || gotS.LastSeenAt == nil {
		t.Fatalf("VerifySession = %+v, %+v, %v", gotS, gotU, err)
	}
	if s, u, _ := db.VerifySession("bujo_s_bogus"); s != nil || u != nil {
		t.Error("unknown token accepted")
	}

	if err := db.DeleteSession(token); err != nil {
		t.Fatal(err)
	}
	if s, _, _ := db.VerifySession(token); s != nil {
		t.Error("deleted session accepted")
	}
}

func TestExpiredAndBulkSessions(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "alice")

	old, _, _ := db.CreateSession("alice", time.Now().Add(-time.Minute))
	if s, _, _ := db.VerifySession(old); s != nil {
		t.Error("expired session accepted")
	}
	if n, err := db.CleanupExpiredSessions(); err != nil || n != 1 {
		t.Errorf("cleanup = %d, %v", n, err)
	}

	db.CreateSession("alice", time.Now().Add(time.Hour))
	db.CreateSession("alice", time.Now().Add(time.Hour))
	if n, err := db.DeleteUserSessions("alice"); err != nil || n != 2 {
		t.Errorf("DeleteUserSessions = %d, %v", n, err)
	}
}

func TestAuthEvents(t *testing.T) {
	db := newTestDB(t)
	db.InsertAuthEvent("alice", AuthEventLogin, "")
	db.InsertAuthEvent("bob", AuthEventLoginFailed, "state mismatch")
	db.InsertAuthEvent("alice", AuthEventLogout, "")

	all, err := db.RecentAuthEvents("", 10)
	if err != nil || len(all) != 3 || all[0].EventType != AuthEventLogout {
		t.Fatalf("RecentAuthEvents = %+v, %v", all, err)
	}
	alice, _ := db.RecentAuthEvents("alice", 1)
	if len(alice) != 1 || alice[0].UserID != "alice" {
		t.Errorf("alice events = %+v", alice)
	}
	if n, err := db.CleanupAuthEvents(-time.Hour); err != nil || n != 3 {
		t.Errorf("cleanup = %d, %v", n, err)
	}
}

func TestSealedTokens(t *testing.T) {
	sealer, err := crypto.NewSealer("test secret")
	if err != nil {
		t.Fatal(err)
	}
	db, err := Open(":memory:", WithTokenSealer(sealer))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	u := &User{ID: "alice", AccessToken: "at-alice", IDToken: "", RefreshToken: "rt-alice"}
	if err := db.UpsertUser(u); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	var rawAccess, rawID string
	if err := db.conn.QueryRow(`SELECT access_token, id_token FROM users WHERE id = ?`, "alice").Scan(&rawAccess, &rawID); err != nil {
		t.Fatal(err)
	}
	if rawAccess == "at-alice" || !strings.HasPrefix(rawAccess, "v1:") {
		t.Errorf("stored access token not sealed: %q", rawAccess)
	}
	if rawID != "" {
		t.Errorf("empty id token stored as %q", rawID)
	}

	got, err := db.GetUser("alice")
	if err != nil {
		t.Fatal(err)
	}
	if got.AccessToken != "at-alice" || got.RefreshToken != "rt-alice" {
		t.Errorf("tokens = %q, %q", got.AccessToken, got.RefreshToken)
	}
	users, err := db.ListUsers()
	if err != nil || len(users) != 1 || users[0].AccessToken != "at-alice" {
		t.Errorf("ListUsers = %+v, %v", users, err)
	}

	token, _, err := db.CreateSession("alice", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	_, su, err := db.VerifySession(token)
	if err != nil || su == nil {
		t.Fatalf("verify session = %v, %v", su, err)
	}
	if su.AccessToken != "at-alice" || su.RefreshToken != "rt-alice" {
		t.Errorf("session user tokens = %q, %q", su.AccessToken, su.RefreshToken)
	}
}
