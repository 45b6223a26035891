// Package config loads bujo settings from defaults, an optional YAML file,
// and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the config file when no path is passed to Load.
const EnvConfigPath = "BUJO_CONFIG"

// Duration is a time.Duration that also accepts day counts such as "30d".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	v := parseDaysDuration(n.Value)
	if v <= 0 {
		return fmt.Errorf("line %d: invalid duration %q", n.Line, n.Value)
	}
	*d = Duration(v)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// OAuth holds the OpenID provider settings. An empty ClientID disables login.
type OAuth struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	ProviderURL  string `yaml:"provider_url"`
	UserInfoPath string `yaml:"userinfo_path"`
}

// Config holds every setting used by the CLI and the web server.
type Config struct {
	ListenAddr      string   `yaml:"listen_addr"`
	DataDir         string   `yaml:"data_dir"`
	DBPath          string   `yaml:"db_path"` // default <data_dir>/bujo.db
	BaseURL         string   `yaml:"base_url"`
	LogFormat       string   `yaml:"log_format"` // "json" (default) or "text"
	LogLevel        string   `yaml:"log_level"`  // "debug", "info" (default), "warn", "error"
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	SessionTTL      Duration `yaml:"session_ttl"`
	UploadMaxBytes  int64    `yaml:"upload_max_bytes"`

	RateLimitAuth int `yaml:"rate_limit_auth"` // /login* per IP per minute
	RateLimitAI   int `yaml:"rate_limit_ai"`   // analyzer endpoints per user per minute

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	AuthEventRetention Duration `yaml:"auth_event_retention"`

	GoogleAPIKey   string `yaml:"google_api_key"`
	GeminiModel    string `yaml:"gemini_model"`
	EmbeddingModel string `yaml:"embedding_model"`
	RAGDocuments   string `yaml:"rag_documents"` // YAML corpus path; empty uses the built-in corpus
	WhisperURL     string `yaml:"whisper_url"`   // empty disables the whisper transcriber

	OAuth       OAuth  `yaml:"oauth"`
	TokenSecret string `yaml:"token_secret"` // seals stored OAuth tokens; default oauth.client_secret
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		ListenAddr:         ":7860",
		DataDir:            "./data",
		BaseURL:            "http://localhost:7860",
		LogFormat:          "json",
		LogLevel:           "info",
		ShutdownTimeout:    Duration(30 * time.Second),
		SessionTTL:         Duration(30 * 24 * time.Hour),
		UploadMaxBytes:     25 << 20,
		RateLimitAuth:      10,
		RateLimitAI:        30,
		AuthEventRetention: Duration(90 * 24 * time.Hour),
		OAuth: OAuth{
			ProviderURL:  "https://huggingface.co",
			UserInfoPath: "/oauth/userinfo",
		},
	}
}

// Load builds a Config. An empty path falls back to $BUJO_CONFIG; with neither,
// only defaults and the environment apply. A named file must exist.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, fmt.Errorf("environment: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", filepath.Base(path), err)
	}
	return nil
}

// applyEnv overlays environment variables. Malformed numbers and durations
// are all reported together.
func (c *Config) applyEnv() error {
	var errs []error
	setString(&c.ListenAddr, "BUJO_LISTEN_ADDR")
	setString(&c.DataDir, "BUJO_DATA_DIR")
	setString(&c.DBPath, "BUJO_DB_PATH")
	setString(&c.LogFormat, "BUJO_LOG_FORMAT")
	setString(&c.LogLevel, "BUJO_LOG_LEVEL")

	if host := os.Getenv("SPACE_HOST"); host != "" {
		c.BaseURL = spaceURL(host)
	}
	setString(&c.BaseURL, "BUJO_BASE_URL")

	errs = append(errs,
		setDuration(&c.ShutdownTimeout, "BUJO_SHUTDOWN_TIMEOUT"),
		setDuration(&c.SessionTTL, "BUJO_SESSION_TTL"),
		setDuration(&c.AuthEventRetention, "BUJO_AUTH_EVENT_RETENTION"),
		setInt64(&c.UploadMaxBytes, "BUJO_UPLOAD_MAX_BYTES"),
		setInt(&c.RateLimitAuth, "BUJO_RATE_LIMIT_AUTH"),
		setInt(&c.RateLimitAI, "BUJO_RATE_LIMIT_AI"),
	)

	if v := os.Getenv("BUJO_CORS_ALLOWED_ORIGINS"); v != "" {
		c.CORSAllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.CORSAllowedOrigins = append(c.CORSAllowedOrigins, o)
			}
		}
	}

	setString(&c.GoogleAPIKey, "GOOGLE_API_KEY")
	setString(&c.GeminiModel, "BUJO_GEMINI_MODEL")
	setString(&c.EmbeddingModel, "BUJO_EMBEDDING_MODEL")
	setString(&c.RAGDocuments, "BUJO_RAG_DOCUMENTS")
	setString(&c.WhisperURL, "BUJO_WHISPER_URL")

	setString(&c.OAuth.ClientID, "OAUTH_CLIENT_ID")
	setString(&c.OAuth.ClientSecret, "OAUTH_CLIENT_SECRET")
	setString(&c.OAuth.ProviderURL, "OPENID_PROVIDER_URL")
	setString(&c.OAuth.UserInfoPath, "BUJO_OAUTH_USERINFO_PATH")
	setString(&c.TokenSecret, "BUJO_TOKEN_SECRET")
	return errors.Join(errs...)
}

// spaceURL turns a host[:port] into a base URL; only localhost is served over http.
func spaceURL(host string) string {
	if strings.HasPrefix(host, "localhost") || strings.HasPrefix(host, "127.0.0.1") {
		return "http://" + host
	}
	return "https://" + host
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fmt.Errorf("%s: %q is not a positive integer", key, v)
	}
	*dst = n
	return nil
}

func setInt64(dst *int64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return fmt.Errorf("%s: %q is not a positive integer", key, v)
	}
	*dst = n
	return nil
}

func setDuration(dst *Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d := parseDaysDuration(v)
	if d <= 0 {
		return fmt.Errorf("%s: invalid duration %q", key, v)
	}
	*dst = Duration(d)
	return nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen_addr is required"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("base_url %q must be an absolute http(s) URL", c.BaseURL))
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		errs = append(errs, fmt.Errorf("log_format %q must be json or text", c.LogFormat))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session_ttl must be positive"))
	}
	if c.UploadMaxBytes <= 0 {
		errs = append(errs, errors.New("upload_max_bytes must be positive"))
	}
	if c.RateLimitAuth <= 0 || c.RateLimitAI <= 0 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}
	if c.OAuth.ClientID != "" && c.OAuth.ClientSecret == "" {
		errs = append(errs, errors.New("oauth client_secret is required with client_id"))
	}
	return errors.Join(errs...)
}

// UsersDir is the root of the per-user journal directories.
func (c Config) UsersDir() string { return filepath.Join(c.DataDir, "users") }

// DatabasePath returns DBPath, defaulting under DataDir.
func (c Config) DatabasePath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.DataDir, "bujo.db")
}

// OAuthEnabled reports whether login through the provider is configured.
func (c Config) OAuthEnabled() bool { return c.OAuth.ClientID != "" }

// SealingSecret returns the secret that seals stored tokens, or "" when
// tokens are stored as issued.
func (c Config) SealingSecret() string {
	if c.TokenSecret != "" {
		return c.TokenSecret
	}
	return c.OAuth.ClientSecret
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log_level %q must be debug, info, warn or error", s)
}

// parseDaysDuration parses a string like "90d", "30d" into a time.Duration.
// Falls back to time.ParseDuration for standard Go durations.
func parseDaysDuration(s string) time.Duration {
	s = strings.TrimSpace(s)
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		if n, err := strconv.Atoi(numStr); err == nil && n > 0 {
			return time.Duration(n) * 24 * time.Hour
		}
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return 0
}
