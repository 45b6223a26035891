// Package oauth is an OpenID Connect authorization code client.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	DefaultProvider     = "https://huggingface.co"
	DefaultUserInfoPath = "/oauth/userinfo"
	DefaultScope        = "openid profile"
	CallbackPath        = "/login/callback"

	defaultExpiresIn = 86400
)

// Error is a non-200 response from the provider.
type Error struct {
	Op     string
	Status int
	Body   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("oauth %s: status %d: %s", e.Op, e.Status, e.Body)
}

// Config configures a Client.
type Config struct {
	ClientID     string
	ClientSecret string
	ProviderURL  string
	UserInfoPath string
	RedirectURL  string
	Scope        string
	HTTPClient   *http.Client
}

// Client talks to one provider.
type Client struct {
	cfg   Config
	http  *http.Client
	oauth *oauth2.Config
}

// New creates a Client, filling defaults for empty fields.
func New(cfg Config) *Client {
	if cfg.ProviderURL == "" {
		cfg.ProviderURL = DefaultProvider
	}
	cfg.ProviderURL = strings.TrimRight(cfg.ProviderURL, "/")
	if cfg.UserInfoPath == "" {
		cfg.UserInfoPath = DefaultUserInfoPath
	}
	if cfg.Scope == "" {
		cfg.Scope = DefaultScope
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		cfg:  cfg,
		http: hc,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       strings.Fields(cfg.Scope),
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.ProviderURL + "/oauth/authorize",
				TokenURL:  cfg.ProviderURL + "/oauth/token",
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
	}
}

// RedirectURL returns the callback URL under baseURL.
func RedirectURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + CallbackPath
}

// AuthURL returns the provider URL that starts a login for state.
func (c *Client) AuthURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Token is the token endpoint response.
type Token struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// ExpiresAt returns when the token expires relative to now.
func (t *Token) ExpiresAt(now time.Time) time.Time {
	return now.Add(time.Duration(t.ExpiresIn) * time.Second)
}

func (c *Client) context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

// Exchange trades an authorization code for tokens. The client id is sent in
// the form as well as the Basic auth header.
func (c *Client) Exchange(ctx context.Context, code string) (*Token, error) {
	tok, err := c.oauth.Exchange(c.context(ctx), code, oauth2.SetAuthURLParam("client_id", c.cfg.ClientID))
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return nil, &Error{Op: "token", Status: re.Response.StatusCode, Body: string(re.Body)}
		}
		return nil, fmt.Errorf("oauth token: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("oauth token: response has no access_token")
	}

	out := &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresIn:    defaultExpiresIn,
	}
	if id, ok := tok.Extra("id_token").(string); ok {
		out.IDToken = id
	}
	if !tok.Expiry.IsZero() {
		if secs := int(time.Until(tok.Expiry).Round(time.Second).Seconds()); secs > 0 {
			out.ExpiresIn = secs
		}
	}
	return out, nil
}

// UserInfo is the provider's profile for the signed-in user.
type UserInfo struct {
	Sub               string `json:"sub"`
	PreferredUsername string `json:"preferred_username"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	Picture           string `json:"picture"`
}

// ID returns the preferred username, or the subject when there is none.
func (u *UserInfo) ID() string {
	if u.PreferredUsername != "" {
		return u.PreferredUsername
	}
	return u.Sub
}

// UserInfo fetches the profile for accessToken.
func (c *Client) UserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.ProviderURL+c.cfg.UserInfoPath, nil)
	if err != nil {
		return nil, fmt.Errorf("create userinfo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	hc := c.oauth.Client(c.context(ctx), &oauth2.Token{AccessToken: accessToken})
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oauth userinfo: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("oauth userinfo: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Op: "userinfo", Status: resp.StatusCode, Body: string(body)}
	}

	var info UserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("oauth userinfo: decode response: %w", err)
	}
	if info.ID() == "" {
		return nil, fmt.Errorf("oauth userinfo: response has no user id")
	}
	return &info, nil
}
