package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/marcus/bujo/internal/api"
	"github.com/marcus/bujo/internal/bujo"
	"github.com/marcus/bujo/internal/config"
	"github.com/marcus/bujo/internal/crypto"
	"github.com/marcus/bujo/internal/oauth"
	"github.com/marcus/bujo/internal/userdb"
)

func main() {
	// Route to admin subcommands if present
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		runAdmin(os.Args[2:])
		return
	}

	cfg, err := config.Load("")
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.LogFormat) == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	var dbOpts []userdb.Option
	if secret := cfg.SealingSecret(); secret != "" {
		sealer, err := crypto.NewSealer(secret)
		if err != nil {
			slog.Error("create token sealer", "err", err)
			os.Exit(1)
		}
		dbOpts = append(dbOpts, userdb.WithTokenSealer(sealer))
	}

	users, err := userdb.Open(cfg.DatabasePath(), dbOpts...)
	if err != nil {
		slog.Error("open user db", "err", err)
		os.Exit(1)
	}
	defer users.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bujo.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		slog.Error("create app", "err", err)
		os.Exit(1)
	}

	serverOpts := []api.Option{api.WithLogger(logger)}
	if cfg.OAuthEnabled() {
		serverOpts = append(serverOpts, api.WithOAuth(oauth.New(oauth.Config{
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			ProviderURL:  cfg.OAuth.ProviderURL,
			UserInfoPath: cfg.OAuth.UserInfoPath,
			RedirectURL:  oauth.RedirectURL(cfg.BaseURL),
		})))
	}

	srv, err := api.NewServer(cfg, users, app, serverOpts...)
	if err != nil {
		slog.Error("create server", "err", err)
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		slog.Error("start server", "err", err)
		os.Exit(1)
	}
	slog.Info("server started", "addr", cfg.ListenAddr, "base_url", cfg.BaseURL, "oauth", cfg.OAuthEnabled())

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout.Std())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "err", err)
	}
}
