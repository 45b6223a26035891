package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"
)

const (
	DefaultRetryCount = 3
	DefaultBaseDelay  = 1 * time.Second
)

// Retry wraps a Transcriber with exponential backoff.
type Retry struct {
	next      Transcriber
	maxRetry  int
	baseDelay time.Duration
	logger    *slog.Logger
}

// RetryOption configures Retry.
type RetryOption func(*Retry)

// WithRetryCount sets the maximum number of retries after the first attempt.
func WithRetryCount(n int) RetryOption {
	return func(r *Retry) { r.maxRetry = n }
}

// WithBaseDelay sets the first backoff delay. Each retry doubles it.
func WithBaseDelay(d time.Duration) RetryOption {
	return func(r *Retry) { r.baseDelay = d }
}

// WithLogger sets the logger for retry attempts.
func WithLogger(l *slog.Logger) RetryOption {
	return func(r *Retry) { r.logger = l }
}

// NewRetry wraps next with retries.
func NewRetry(next Transcriber, opts ...RetryOption) *Retry {
	r := &Retry{
		next:      next,
		maxRetry:  DefaultRetryCount,
		baseDelay: DefaultBaseDelay,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Transcribe implements Transcriber. Network errors and 5xx responses are
// retried; 4xx responses and context errors are returned at once.
func (r *Retry) Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetry; attempt++ {
		if attempt > 0 {
			delay := r.baseDelay * (1 << (attempt - 1))
			r.logger.Warn("retrying transcription", "attempt", attempt, "max", r.maxRetry, "delay", delay, "err", lastErr)
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}

		res, err := r.next.Transcribe(ctx, audioPath, opts)
		if err == nil {
			return res, nil
		}
		if !isRetryable(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("transcription failed after %d retries: %w", r.maxRetry, lastErr)
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 && apiErr.Status < 600
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "send request:")
}
