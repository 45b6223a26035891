package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/marcus/bujo/internal/analyzer"
	"github.com/marcus/bujo/internal/bujo"
	"github.com/marcus/bujo/internal/config"
	"github.com/marcus/bujo/internal/oauth"
	"github.com/marcus/bujo/internal/userdb"
)

// OAuthProvider is the OpenID provider used for browser login.
type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth.Token, error)
	UserInfo(ctx context.Context, accessToken string) (*oauth.UserInfo, error)
}

// Server is the HTTP server for the journal web app and JSON API.
type Server struct {
	config      config.Config
	http        *http.Server
	users       *userdb.DB
	app         *bujo.App
	journals    *JournalPool
	oauth       OAuthProvider
	metrics     *Metrics
	rateLimiter *RateLimiter
	logger      *slog.Logger
	now         func() time.Time
	cancel      context.CancelFunc
}

// Option configures a Server.
type Option func(*Server)

// WithOAuth enables login through p. Without it the server is single-user.
func WithOAuth(p OAuthProvider) Option {
	return func(s *Server) { s.oauth = p }
}

// WithLogger sets the base logger for requests.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a new Server with the given config, user store, and app.
func NewServer(cfg config.Config, users *userdb.DB, app *bujo.App, opts ...Option) (*Server, error) {
	if users == nil || app == nil {
		return nil, errors.New("new server: user store and app are required")
	}
	s := &Server{
		config:      cfg,
		users:       users,
		app:         app,
		journals:    NewJournalPool(app, cfg.UsersDir()),
		metrics:     NewMetrics(),
		rateLimiter: NewRateLimiter(),
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if c, ok := app.Analyzer.(*analyzer.Chain); ok {
		prev := c.OnFallback
		c.OnFallback = func(from string, err error) {
			s.metrics.RecordFallback(from, err)
			if prev != nil {
				prev(from, err)
			}
		}
	}
	if s.oauth == nil {
		s.logger.Warn("oauth not configured, serving a single local journal", "user", LocalUserID)
	}

	s.http = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.routes(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Metrics returns the server's counters.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Start begins listening for HTTP requests (non-blocking).
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.logger.Info("listening", "addr", ln.Addr().String(), "base_url", s.config.BaseURL)

	go func() {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server", "err", err)
		}
	}()

	// Periodically drop expired logins, sessions, and rate limit buckets
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("cleanup panic", "panic", r)
			}
		}()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanup()
			}
		}
	}()

	return nil
}

func (s *Server) cleanup() {
	if n, err := s.users.CleanupExpiredLoginStates(); err != nil {
		s.logger.Error("cleanup expired login states", "err", err)
	} else if n > 0 {
		s.logger.Info("cleaned up expired login states", "count", n)
	}
	if n, err := s.users.CleanupExpiredSessions(); err != nil {
		s.logger.Error("cleanup expired sessions", "err", err)
	} else if n > 0 {
		s.logger.Info("cleaned up expired sessions", "count", n)
	}
	if n, err := s.users.CleanupAuthEvents(s.config.AuthEventRetention.Std()); err != nil {
		s.logger.Error("cleanup auth events", "err", err)
	} else if n > 0 {
		s.logger.Info("cleaned up auth events", "count", n)
	}
	s.rateLimiter.cleanup()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	return s.http.Shutdown(ctx)
}

// routes builds the HTTP handler with all routes and middleware.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health & metrics
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /metricz", s.handleMetrics)

	// Auth (public)
	mux.HandleFunc("GET /login", s.handleLogin)
	mux.HandleFunc("GET /login/callback", s.handleLoginCallback)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("GET /v1/auth/status", s.handleAuthStatus)

	// Entries
	mux.HandleFunc("POST /v1/entries/text", s.requireAuth(s.withRateLimit(s.handleSaveText)))
	mux.HandleFunc("POST /v1/entries/audio", s.requireAuth(s.withRateLimit(s.handleSaveAudio)))
	mux.HandleFunc("POST /v1/entries/image", s.requireAuth(s.withRateLimit(s.handleSaveImage)))
	mux.HandleFunc("GET /v1/entries", s.requireAuth(s.handleEntriesByDate))
	mux.HandleFunc("GET /v1/entries/search", s.requireAuth(s.handleSearch))

	// Reflection
	mux.HandleFunc("GET /v1/summary/weekly", s.requireAuth(s.withRateLimit(s.handleWeeklySummary)))
	mux.HandleFunc("POST /v1/chat", s.requireAuth(s.withRateLimit(s.handleChat)))
	mux.HandleFunc("GET /v1/insights", s.requireAuth(s.handleInsights))
	mux.HandleFunc("GET /v1/charts/trend.png", s.requireAuth(s.handleTrendChart))
	mux.HandleFunc("GET /v1/charts/distribution.png", s.requireAuth(s.handleDistributionChart))
	mux.HandleFunc("GET /v1/visualizations/{name}", s.requireAuth(s.handleVisualization))

	// Browser UI
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /ui/text", s.requireUI(s.withRateLimit(s.handleUIText)))
	mux.HandleFunc("POST /ui/voice", s.requireUI(s.withRateLimit(s.handleUIVoice)))
	mux.HandleFunc("POST /ui/photo", s.requireUI(s.withRateLimit(s.handleUIPhoto)))
	mux.HandleFunc("POST /ui/chat", s.requireUI(s.withRateLimit(s.handleUIChat)))
	mux.HandleFunc("GET /ui/review", s.requireUI(s.handleUIReview))
	mux.HandleFunc("GET /ui/summary", s.requireUI(s.withRateLimit(s.handleUISummary)))
	mux.HandleFunc("GET /ui/insights", s.requireUI(s.handleUIInsights))

	return chain(mux,
		recoveryMiddleware,
		requestIDMiddleware,
		loggerMiddleware(s.logger),
		metricsMiddleware(s.metrics),
		loggingMiddleware,
		maxBytesMiddleware(s.config.UploadMaxBytes),
		authRateLimitMiddleware(s.rateLimiter, s.config.RateLimitAuth, s.metrics),
		s.CORSMiddleware,
	)
}

// handleHealth returns a health check response, pinging the user DB.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.users.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "detail": "db unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMetrics returns a snapshot of server metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

// journalFor returns the signed-in user's journal, writing an error when it
// cannot be opened.
func (s *Server) journalFor(w http.ResponseWriter, r *http.Request) (*bujo.Journal, bool) {
	u := getUserFromContext(r.Context())
	j, err := s.journals.Get(u.UserID)
	if err != nil {
		logFor(r.Context()).Error("open journal", "err", err)
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to open journal")
		return nil, false
	}
	return j, true
}
