// Package llmtest provides a scriptable llm.Client for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/marcus/bujo/internal/llm"
)

// Fake is an llm.Client whose behavior is set by function fields.
// Calls are recorded for assertions.
type Fake struct {
	GenerateFunc func(ctx context.Context, req llm.Request) (string, error)
	EmbedFunc    func(ctx context.Context, texts []string, task string) ([][]float32, error)

	mu       sync.Mutex
	Requests []llm.Request
	Embeds   []string // task type per Embed call
}

// Generate records req and delegates to GenerateFunc.
func (f *Fake) Generate(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.Requests = append(f.Requests, req)
	f.mu.Unlock()
	if f.GenerateFunc == nil {
		return "", llm.ErrEmptyResponse
	}
	return f.GenerateFunc(ctx, req)
}

// Embed records the task and delegates to EmbedFunc.
func (f *Fake) Embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	f.mu.Lock()
	f.Embeds = append(f.Embeds, task)
	f.mu.Unlock()
	if f.EmbedFunc == nil {
		return nil, llm.ErrEmptyResponse
	}
	return f.EmbedFunc(ctx, texts, task)
}

// Calls returns the number of Generate calls so far.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Requests)
}

// LastRequest returns the most recent Generate request.
func (f *Fake) LastRequest() llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Requests) == 0 {
		return llm.Request{}
	}
	return f.Requests[len(f.Requests)-1]
}
