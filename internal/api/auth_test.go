package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marcus/bujo/internal/config"
	"github.com/marcus/bujo/internal/journal"
	"github.com/marcus/bujo/internal/oauth"
	"github.com/marcus/bujo/internal/userdb"
)

// fakeProvider accepts the code "good" and always returns alice.
type fakeProvider struct{}

func (fakeProvider) AuthURL(state string) string {
	return "https://id.example/oauth/authorize?state=" + url.QueryEscape(state)
}

func (fakeProvider) Exchange(_ context.Context, code string) (*oauth.Token, error) {
	if code != "good" {
		return nil, &oauth.Error{Op: "token", Status: http.StatusBadRequest, Body: `{"error":"invalid_grant"}`}
	}
	return &oauth.Token{AccessToken: "at", IDToken: "it", ExpiresIn: 3600}, nil
}

func (fakeProvider) UserInfo(_ context.Context, token string) (*oauth.UserInfo, error) {
	return &oauth.UserInfo{Sub: "42", PreferredUsername: "alice", Name: "Alice", Picture: "https://img.example/a.png"}, nil
}

func newOAuthServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServer(t, nil, WithOAuth(fakeProvider{}))
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// startLogin runs GET /login and returns the login cookie and OAuth state.
func startLogin(t *testing.T, srv *testServer, next string) (*http.Cookie, string) {
	t.Helper()
	path := "/login"
	if next != "" {
		path += "?next=" + url.QueryEscape(next)
	}
	w := doRequest(srv, "GET", path, "", nil)
	if w.Code != http.StatusFound {
		t.Fatalf("login: expected 302, got %d", w.Code)
	}
	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil || loc.Host != "id.example" {
		t.Fatalf("login redirect = %q", w.Header().Get("Location"))
	}
	c := findCookie(w, loginCookie)
	if c == nil || !c.HttpOnly {
		t.Fatalf("login cookie = %+v", c)
	}
	return c, loc.Query().Get("state")
}

func callback(srv *testServer, query string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/login/callback?"+query, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return serve(srv, req)
}

// login completes the OAuth flow and returns the session token.
func login(t *testing.T, srv *testServer) string {
	t.Helper()
	c, state := startLogin(t, srv, "")
	w := callback(srv, "code=good&state="+url.QueryEscape(state), c)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("callback: expected 303, got %d: %s", w.Code, w.Body.String())
	}
	sc := findCookie(w, sessionCookie)
	if sc == nil || !strings.HasPrefix(sc.Value, "bujo_s_") {
		t.Fatalf("session cookie = %+v", sc)
	}
	return sc.Value
}

func TestRequiresSignIn(t *testing.T) {
	srv := newOAuthServer(t)

	w := doRequest(srv, "GET", "/v1/entries", "", nil)
	assertError(t, w, http.StatusUnauthorized, ErrCodeUnauthorized, "")

	w = doRequest(srv, "GET", "/v1/entries", "bujo_s_bogus", nil)
	assertError(t, w, http.StatusUnauthorized, ErrCodeUnauthorized, "")

	w = doRequest(srv, "GET", "/", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Sign in with Hugging Face") {
		t.Errorf("index while signed out: %d %s", w.Code, w.Body.String())
	}
}

func TestLoginFlow(t *testing.T) {
	srv := newOAuthServer(t)

	c, state := startLogin(t, srv, "/?tab=chat")
	w := callback(srv, "code=good&state="+url.QueryEscape(state), c)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("callback: expected 303, got %d: %s", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "/?tab=chat" {
		t.Errorf("redirect = %q", loc)
	}
	token := findCookie(w, sessionCookie).Value

	u, err := srv.users.GetUser("alice")
	if err != nil || u == nil {
		t.Fatalf("GetUser: %v %v", u, err)
	}
	if u.Name != "Alice" || u.Avatar != "https://img.example/a.png" || u.AccessToken != "at" || u.LastLoginAt == nil {
		t.Errorf("user = %+v", u)
	}
	dirs, err := journal.UserDirs(srv.config.UsersDir(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	profile, err := dirs.ReadProfile()
	if err != nil {
		t.Fatalf("read profile: %v", err)
	}
	if profile.Name != "Alice" || profile.Avatar != "https://img.example/a.png" || profile.UpdatedAt.IsZero() {
		t.Errorf("profile = %+v", profile)
	}
	if raw, _ := os.ReadFile(dirs.Profile); strings.Contains(string(raw), `"at"`) {
		t.Errorf("profile.json holds the access token: %s", raw)
	}

	w = doRequest(srv, "GET", "/v1/auth/status", token, nil)
	st := decode[authStatusResponse](t, w)
	if !st.Authenticated || st.UserID != "alice" || !st.OAuthEnabled {
		t.Errorf("status = %+v", st)
	}

	w = doRequest(srv, "POST", "/v1/entries/text", token, saveTextRequest{Text: "Signed in", Date: "2026-02-18"})
	if w.Code != http.StatusCreated {
		t.Fatalf("save: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	path := filepath.Join(srv.config.UsersDir(), "alice", "journals", "2026-02", "2026-02-18.json")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("entry file: %v", err)
	}

	// The session cookie works for browser requests too.
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	w = serve(srv, req)
	if !strings.Contains(w.Body.String(), "Text Journal") || !strings.Contains(w.Body.String(), "Alice") {
		t.Errorf("index while signed in: %s", w.Body.String())
	}
}

func TestLoginRejectsOffsiteRedirect(t *testing.T) {
	srv := newOAuthServer(t)
	c, state := startLogin(t, srv, "//evil.example/")
	w := callback(srv, "code=good&state="+url.QueryEscape(state), c)
	if loc := w.Header().Get("Location"); loc != "/" {
		t.Errorf("redirect = %q, want /", loc)
	}
}

func TestLoginCallbackErrors(t *testing.T) {
	srv := newOAuthServer(t)

	w := callback(srv, "state=x", nil)
	assertError(t, w, http.StatusBadRequest, ErrCodeBadRequest, "Missing required parameters")

	w = callback(srv, "code=good&state=x", nil)
	assertError(t, w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid session")

	w = callback(srv, "code=good&state=x", &http.Cookie{Name: loginCookie, Value: "ls_unknown"})
	assertError(t, w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid session")

	c, _ := startLogin(t, srv, "")
	w = callback(srv, "code=good&state=wrong", c)
	assertError(t, w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid state parameter")

	// A login state is single use.
	w = callback(srv, "code=good&state=wrong", c)
	assertError(t, w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid session")

	c, state := startLogin(t, srv, "")
	w = callback(srv, "code=bad&state="+url.QueryEscape(state), c)
	assertError(t, w, http.StatusBadGateway, ErrCodeLoginFailed, "")

	w = callback(srv, "error=access_denied", nil)
	assertError(t, w, http.StatusBadRequest, ErrCodeLoginFailed, "")

	events, err := srv.users.RecentAuthEvents("", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 {
		t.Errorf("login_failed events = %d, want 3", len(events))
	}
}

func TestLogout(t *testing.T) {
	srv := newOAuthServer(t)
	token := login(t, srv)

	w := doRequest(srv, "POST", "/logout", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", w.Code)
	}
	if c := findCookie(w, sessionCookie); c == nil || c.MaxAge >= 0 {
		t.Errorf("session cookie not cleared: %+v", c)
	}

	w = doRequest(srv, "GET", "/v1/entries", token, nil)
	assertError(t, w, http.StatusUnauthorized, ErrCodeUnauthorized, "")

	valid, err := srv.users.IsTokenValid("alice")
	if err != nil || valid {
		t.Errorf("IsTokenValid = %v, %v", valid, err)
	}
	events, _ := srv.users.RecentAuthEvents("alice", 10)
	types := map[string]bool{}
	for _, e := range events {
		types[e.EventType] = true
	}
	if !types[userdb.AuthEventLogin] || !types[userdb.AuthEventLogout] {
		t.Errorf("events = %+v", events)
	}

	// Browser logout redirects home.
	w = doRequest(srv, "POST", "/logout", "", nil)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/" {
		t.Errorf("browser logout: %d %q", w.Code, w.Header().Get("Location"))
	}
}

func TestLocalMode(t *testing.T) {
	srv := newTestServer(t, nil)

	w := doRequest(srv, "GET", "/v1/auth/status", "", nil)
	st := decode[authStatusResponse](t, w)
	if !st.Authenticated || st.OAuthEnabled || st.UserID != LocalUserID {
		t.Errorf("status = %+v", st)
	}

	w = doRequest(srv, "GET", "/login", "", nil)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/" {
		t.Errorf("login without oauth: %d %q", w.Code, w.Header().Get("Location"))
	}
}

func TestLoginRateLimit(t *testing.T) {
	srv := newTestServer(t, func(c *config.Config) { c.RateLimitAuth = 2 }, WithOAuth(fakeProvider{}))
	h := srv.routes()
	for i := range 3 {
		req := httptest.NewRequest("GET", "/login", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		want := http.StatusFound
		if i == 2 {
			want = http.StatusTooManyRequests
		}
		if w.Code != want {
			t.Errorf("request %d: expected %d, got %d", i+1, want, w.Code)
		}
	}
}
