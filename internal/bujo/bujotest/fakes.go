// Package bujotest provides fake services for tests of code built on bujo.App.
package bujotest

import (
	"context"
	"fmt"
	"sync"

	"github.com/marcus/bujo/internal/analyzer"
	"github.com/marcus/bujo/internal/journal"
	"github.com/marcus/bujo/internal/transcribe"
	"github.com/marcus/bujo/internal/vision"
)

// Analyzer is an analyzer.Analyzer with optional function overrides. Without
// overrides it tags every entry "calm".
type Analyzer struct {
	AnalyzeFunc func(ctx context.Context, text string) (journal.Analysis, error)
	SummaryFunc func(ctx context.Context, entries []*journal.Entry) (analyzer.Summary, error)
	ChatFunc    func(ctx context.Context, message string, recent []*journal.Entry) (string, error)

	mu     sync.Mutex
	Texts  []string
	Recent [][]*journal.Entry
}

func (a *Analyzer) Name() string { return "fake" }

func (a *Analyzer) Analyze(ctx context.Context, text string) (journal.Analysis, error) {
	a.mu.Lock()
	a.Texts = append(a.Texts, text)
	a.mu.Unlock()
	if a.AnalyzeFunc != nil {
		return a.AnalyzeFunc(ctx, text)
	}
	return journal.Analysis{
		PrimaryEmotion:   "calm",
		EmotionIntensity: 5,
		EmotionalThemes:  []string{"testing"},
		MoodSummary:      "Your entry suggests you're feeling calm.",
		SuggestedActions: []string{"Keep going"},
	}, nil
}

func (a *Analyzer) WeeklySummary(ctx context.Context, entries []*journal.Entry) (analyzer.Summary, error) {
	if a.SummaryFunc != nil {
		return a.SummaryFunc(ctx, entries)
	}
	return analyzer.Summary{
		Summary:         fmt.Sprintf("%d entries", len(entries)),
		EmotionTrend:    "steady",
		Recommendations: []string{"Rest"},
	}, nil
}

func (a *Analyzer) Chat(ctx context.Context, message string, recent []*journal.Entry) (string, error) {
	a.mu.Lock()
	a.Recent = append(a.Recent, recent)
	a.mu.Unlock()
	if a.ChatFunc != nil {
		return a.ChatFunc(ctx, message, recent)
	}
	return "echo: " + message, nil
}

// Transcriber returns Text for every file, or Err when set.
type Transcriber struct {
	Text string
	Err  error

	mu    sync.Mutex
	Paths []string
}

func (t *Transcriber) Transcribe(_ context.Context, path string, _ transcribe.Options) (*transcribe.Result, error) {
	t.mu.Lock()
	t.Paths = append(t.Paths, path)
	t.mu.Unlock()
	if t.Err != nil {
		return nil, t.Err
	}
	return &transcribe.Result{Text: t.Text, Source: "fake"}, nil
}

// Vision returns Result for every image, or Err when set.
type Vision struct {
	Result *vision.Result
	Err    error
}

func (v *Vision) Analyze(context.Context, string) (*vision.Result, error) {
	if v.Err != nil {
		return nil, v.Err
	}
	return v.Result, nil
}
