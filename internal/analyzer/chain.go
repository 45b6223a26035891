package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/marcus/bujo/internal/journal"
	"github.com/marcus/bujo/internal/llm"
)

// Chain tries each analyzer in order per call and returns the first success.
type Chain struct {
	analyzers []Analyzer
	logger    *slog.Logger

	// OnFallback, if set, is called when an analyzer fails and the next is tried.
	OnFallback func(from string, err error)
}

// NewChain creates a Chain over analyzers.
func NewChain(logger *slog.Logger, analyzers ...Analyzer) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{analyzers: analyzers, logger: logger}
}

// NewDefault builds the standard chain: Gemini when client is non-nil, then
// Keyword, then Minimal.
func NewDefault(client llm.Client, docs []string, logger *slog.Logger) *Chain {
	var as []Analyzer
	if client != nil {
		as = append(as, NewGemini(client, docs, logger))
	}
	as = append(as, NewKeyword(nil), Minimal{})
	return NewChain(logger, as...)
}

// Name reports the analyzers in order, e.g. "gemini>keyword>minimal".
func (c *Chain) Name() string {
	name := ""
	for i, a := range c.analyzers {
		if i > 0 {
			name += ">"
		}
		name += a.Name()
	}
	return name
}

// Primary returns the name of the first analyzer in the chain.
func (c *Chain) Primary() string {
	if len(c.analyzers) == 0 {
		return ""
	}
	return c.analyzers[0].Name()
}

// Analyze implements Analyzer.
func (c *Chain) Analyze(ctx context.Context, text string) (journal.Analysis, error) {
	return run(c, ctx, "analyze", func(a Analyzer) (journal.Analysis, error) {
		return a.Analyze(ctx, text)
	})
}

// WeeklySummary implements Analyzer.
func (c *Chain) WeeklySummary(ctx context.Context, entries []*journal.Entry) (Summary, error) {
	return run(c, ctx, "weekly summary", func(a Analyzer) (Summary, error) {
		return a.WeeklySummary(ctx, entries)
	})
}

// Chat implements Analyzer.
func (c *Chain) Chat(ctx context.Context, message string, recent []*journal.Entry) (string, error) {
	return run(c, ctx, "chat", func(a Analyzer) (string, error) {
		return a.Chat(ctx, message, recent)
	})
}

func run[T any](c *Chain, ctx context.Context, op string, fn func(Analyzer) (T, error)) (T, error) {
	var zero T
	var errs []error
	for _, a := range c.analyzers {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		out, err := fn(a)
		if err == nil {
			return out, nil
		}
		c.logger.Warn("analyzer failed, falling back", "op", op, "analyzer", a.Name(), "err", err)
		if c.OnFallback != nil {
			c.OnFallback(a.Name(), err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", a.Name(), err))
	}
	if len(errs) == 0 {
		return zero, fmt.Errorf("%s: no analyzers configured", op)
	}
	return zero, fmt.Errorf("%s: %w", op, errors.Join(errs...))
}
