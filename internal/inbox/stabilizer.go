package inbox

import (
	"context"
	"errors"
	"os"
	"time"
)

// ErrStabilizationTimeout means the file kept changing until the timeout.
var ErrStabilizationTimeout = errors.New("stabilization timeout: file did not stabilize in time")

// Stabilizer waits for a file to finish writing.
type Stabilizer interface {
	WaitForStable(ctx context.Context, path string) error
}

// PollStabilizer waits until a file's size stays the same for Checks
// consecutive polls.
type PollStabilizer struct {
	Interval time.Duration
	Checks   int
	// Timeout bounds the wait when ctx has no deadline. Zero means no bound.
	Timeout time.Duration
}

// NewPollStabilizer creates a polling stabilizer.
func NewPollStabilizer(interval time.Duration, checks int) *PollStabilizer {
	return &PollStabilizer{Interval: interval, Checks: checks}
}

// WaitForStable implements Stabilizer.
func (s *PollStabilizer) WaitForStable(ctx context.Context, path string) error {
	internal := false
	if s.Timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.Timeout)
			defer cancel()
			internal = true
		}
	}

	t := time.NewTicker(s.Interval)
	defer t.Stop()

	var lastSize int64 = -1
	stable := 0
	for stable < s.Checks {
		select {
		case <-ctx.Done():
			if internal && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrStabilizationTimeout
			}
			return ctx.Err()
		case <-t.C:
		}

		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if size := info.Size(); size == lastSize {
			stable++
		} else {
			stable = 0
			lastSize = size
		}
	}
	return nil
}
