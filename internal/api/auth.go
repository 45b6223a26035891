package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/marcus/bujo/internal/journal"
	"github.com/marcus/bujo/internal/userdb"
)

const (
	sessionCookie = "bujo_session"
	loginCookie   = "bujo_login"
)

// authStatusResponse is the JSON response for GET /v1/auth/status.
type authStatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	OAuthEnabled  bool   `json:"oauth_enabled"`
	UserID        string `json:"user_id,omitempty"`
	Name          string `json:"name,omitempty"`
	Avatar        string `json:"avatar,omitempty"`
}

func (s *Server) secureCookies() bool {
	return strings.HasPrefix(s.config.BaseURL, "https://")
}

func (s *Server) setCookie(w http.ResponseWriter, name, value, path string, expires time.Time) {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		HttpOnly: true,
		Secure:   s.secureCookies(),
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" {
		c.MaxAge = -1
	} else {
		c.Expires = expires
	}
	http.SetCookie(w, c)
}

// localRedirect returns next when it is a same-site path, else "/".
func localRedirect(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

// handleLogin handles GET /login by sending the browser to the provider.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.oauth == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	ls, err := s.users.CreateLoginState(localRedirect(r.URL.Query().Get("next")))
	if err != nil {
		logFor(r.Context()).Error("create login state", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to start login")
		return
	}
	s.setCookie(w, loginCookie, ls.ID, "/login", ls.ExpiresAt)
	http.Redirect(w, r, s.oauth.AuthURL(ls.State), http.StatusFound)
}

// handleLoginCallback handles GET /login/callback from the provider.
func (s *Server) handleLoginCallback(w http.ResponseWriter, r *http.Request) {
	if s.oauth == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	ctx := r.Context()
	q := r.URL.Query()

	if e := q.Get("error"); e != "" {
		s.authEvent(r, "", userdb.AuthEventLoginFailed, "provider: "+e)
		writeError(w, http.StatusBadRequest, ErrCodeLoginFailed, "Login was cancelled or denied")
		return
	}
	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Missing required parameters")
		return
	}
	c, err := r.Cookie(loginCookie)
	if err != nil || c.Value == "" {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid session")
		return
	}
	s.setCookie(w, loginCookie, "", "/login", time.Time{})

	ls, err := s.users.ConsumeLoginState(c.Value)
	if err != nil {
		logFor(ctx).Error("consume login state", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to verify login")
		return
	}
	if ls == nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid session")
		return
	}
	if subtle.ConstantTimeCompare([]byte(ls.State), []byte(state)) != 1 {
		s.authEvent(r, "", userdb.AuthEventLoginFailed, "state mismatch")
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid state parameter")
		return
	}

	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		logFor(ctx).Warn("exchange authorization code", "err", err)
		s.authEvent(r, "", userdb.AuthEventLoginFailed, "token exchange")
		writeError(w, http.StatusBadGateway, ErrCodeLoginFailed, "Failed to exchange authorization code")
		return
	}
	info, err := s.oauth.UserInfo(ctx, tok.AccessToken)
	if err != nil {
		logFor(ctx).Warn("fetch user info", "err", err)
		s.authEvent(r, "", userdb.AuthEventLoginFailed, "userinfo")
		writeError(w, http.StatusBadGateway, ErrCodeLoginFailed, "Failed to fetch user profile")
		return
	}

	now := s.now()
	expires := tok.ExpiresAt(now)
	username := info.PreferredUsername
	if username == "" {
		username = info.ID()
	}
	user := &userdb.User{
		ID:             info.ID(),
		Username:       username,
		Name:           info.Name,
		Email:          info.Email,
		Avatar:         info.Picture,
		AccessToken:    tok.AccessToken,
		IDToken:        tok.IDToken,
		RefreshToken:   tok.RefreshToken,
		TokenExpiresAt: &expires,
	}
	j, err := s.journals.Get(user.ID)
	if err != nil {
		logFor(ctx).Warn("open journal for new login", "user", user.ID, "err", err)
		s.authEvent(r, "", userdb.AuthEventLoginFailed, "unusable user id")
		writeError(w, http.StatusBadRequest, ErrCodeLoginFailed, "This account cannot be used for a journal")
		return
	}
	if err := s.users.UpsertUser(user); err != nil {
		logFor(ctx).Error("store user", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to store user")
		return
	}
	if err := s.users.TouchLastLogin(user.ID); err != nil {
		logFor(ctx).Warn("touch last login", "err", err)
	}
	profile := journal.Profile{
		ID:        user.ID,
		Username:  user.Username,
		Name:      user.Name,
		Email:     user.Email,
		Avatar:    user.Avatar,
		UpdatedAt: now,
	}
	if err := j.Dirs().WriteProfile(profile); err != nil {
		logFor(ctx).Warn("write profile", "uid", user.ID, "err", err)
	}

	sessionExpires := now.Add(s.config.SessionTTL.Std())
	token, _, err := s.users.CreateSession(user.ID, sessionExpires)
	if err != nil {
		logFor(ctx).Error("create session", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to create session")
		return
	}
	s.authEvent(r, user.ID, userdb.AuthEventLogin, "")
	logFor(ctx).Info("user signed in", "uid", user.ID)

	s.setCookie(w, sessionCookie, token, "/", sessionExpires)
	http.Redirect(w, r, ls.Redirect, http.StatusSeeOther)
}

// handleLogout handles POST /logout. Browser requests are redirected to the
// start page; API requests get JSON.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" && s.oauth != nil {
		sess, user, err := s.users.VerifySession(token)
		if err != nil {
			logFor(r.Context()).Error("verify session", "err", err)
		}
		if sess != nil {
			if err := s.users.DeleteSession(token); err != nil {
				logFor(r.Context()).Error("delete session", "err", err)
			}
			if err := s.users.ClearTokens(user.ID); err != nil {
				logFor(r.Context()).Error("clear tokens", "err", err)
			}
			s.authEvent(r, user.ID, userdb.AuthEventLogout, "")
		}
	}
	s.setCookie(w, sessionCookie, "", "/", time.Time{})

	if r.Header.Get("Authorization") != "" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleAuthStatus handles GET /v1/auth/status.
func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	resp := authStatusResponse{OAuthEnabled: s.oauth != nil}
	u, err := s.authenticate(r)
	if err != nil {
		logFor(r.Context()).Error("verify session", "err", err)
	}
	if u != nil {
		resp.Authenticated = true
		resp.UserID = u.UserID
		resp.Name = u.Name
		resp.Avatar = u.Avatar
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) authEvent(r *http.Request, userID, eventType, detail string) {
	if err := s.users.InsertAuthEvent(userID, eventType, detail); err != nil {
		logFor(r.Context()).Error("log auth event", "type", eventType, "err", err)
	}
}
