// Package bujo is the journaling application service shared by the CLI and
// the web server. It ties a user's journal store to the analyzers.
package bujo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/marcus/bujo/internal/analyzer"
	"github.com/marcus/bujo/internal/dateparse"
	"github.com/marcus/bujo/internal/journal"
	"github.com/marcus/bujo/internal/transcribe"
	"github.com/marcus/bujo/internal/vision"
)

// User-facing validation errors.
var (
	ErrEmptyText    = errors.New("Journal text cannot be empty")
	ErrInvalidDate  = errors.New("Invalid date format. Use YYYY-MM-DD")
	ErrEmptyMessage = errors.New("Please enter a message to chat with your journal assistant.")
	ErrNoAudio      = errors.New("Please provide an audio recording")
	ErrNoImage      = errors.New("Please provide an image")
)

// ErrNoAnalyzer is returned by operations that need a text analyzer when the
// App was built without one.
var ErrNoAnalyzer = errors.New("no text analyzer configured")

// ImageAnalyzer reads emotion and a description from a photo.
type ImageAnalyzer interface {
	Analyze(ctx context.Context, path string) (*vision.Result, error)
}

// App holds the services shared by every user's journal.
type App struct {
	Analyzer    analyzer.Analyzer
	Transcriber transcribe.Transcriber
	Vision      ImageAnalyzer
	Now         func() time.Time
	Logger      *slog.Logger
}

// Journal is one user's journal bound to the app services.
type Journal struct {
	app    *App
	dirs   journal.Dirs
	store  *journal.Store
	logger *slog.Logger
}

// ForUser opens the journal for dirs, creating its directories.
func (a *App) ForUser(dirs journal.Dirs) (*Journal, error) {
	if err := dirs.Ensure(); err != nil {
		return nil, fmt.Errorf("prepare user dirs: %w", err)
	}
	logger := a.logger().With("uid", dirs.UserID)
	store, err := journal.Open(dirs.Journals, journal.WithClock(a.now), journal.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return &Journal{app: a, dirs: dirs, store: store, logger: logger}, nil
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

// Dirs returns the journal's directory layout.
func (j *Journal) Dirs() journal.Dirs { return j.dirs }

// Store returns the underlying entry store.
func (j *Journal) Store() *journal.Store { return j.store }

func (j *Journal) today() string {
	return dateparse.Format(j.app.now())
}

// resolveDate returns today for "" and validates anything else.
func (j *Journal) resolveDate(date string) (string, error) {
	if date == "" {
		return j.today(), nil
	}
	if !dateparse.Valid(date) {
		return "", ErrInvalidDate
	}
	return date, nil
}

// SaveResult identifies a saved entry.
type SaveResult struct {
	EntryID string `json:"entry_id"`
	Date    string `json:"date"`
}

func saved(e *journal.Entry) SaveResult {
	return SaveResult{EntryID: e.Date, Date: e.Date}
}
