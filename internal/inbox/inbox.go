// Package inbox watches a directory for voice memos and hands each finished
// recording to a handler, then archives it.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/marcus/bujo/internal/transcribe"
)

// Handler processes one stable audio file.
type Handler func(ctx context.Context, path string) error

// Stats counts inbox activity.
type Stats struct {
	Seen      int
	Processed int
	Failed    int
}

// Watcher watches Dir for new audio files.
type Watcher struct {
	dir        string
	handler    Handler
	stabilizer Stabilizer
	archiver   *FileArchiver
	logger     *slog.Logger
	debounce   time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	pending map[string]time.Time
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
	stats   Stats
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithStabilizer replaces the default size-polling stabilizer.
func WithStabilizer(s Stabilizer) Option {
	return func(w *Watcher) { w.stabilizer = s }
}

// WithDebounce sets how long a path must be quiet before it is processed.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New creates a Watcher for dir. Files are archived under dir.
func New(dir string, handler Handler, opts ...Option) *Watcher {
	w := &Watcher{
		dir:        dir,
		handler:    handler,
		stabilizer: &PollStabilizer{Interval: 500 * time.Millisecond, Checks: 2, Timeout: 5 * time.Minute},
		archiver:   NewFileArchiver(dir),
		logger:     slog.Default(),
		debounce:   500 * time.Millisecond,
		pending:    make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It returns once the watch is established; events are
// handled on a background goroutine until Stop or ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.watcher = fw
	w.cancel = cancel
	w.doneCh = make(chan struct{})
	w.running = true
	go w.run(ctx, fw, w.doneCh)
	w.logger.Info("watching inbox", "dir", w.dir)
	return nil
}

// Stop ends watching and waits for in-flight work. It is safe to call more
// than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	cancel, done, fw := w.cancel, w.doneCh, w.watcher
	w.mu.Unlock()

	cancel()
	<-done
	if err := fw.Close(); err != nil {
		w.logger.Warn("close watcher", "err", err)
	}
}

// Stats returns a copy of the activity counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// ScanExisting processes audio files already in the inbox, oldest name first.
func (w *Watcher) ScanExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read inbox: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && transcribe.Supported(e.Name()) {
			paths = append(paths, filepath.Join(w.dir, e.Name()))
		}
	}
	sort.Strings(paths)
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.process(ctx, p)
	}
	return nil
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	tick := time.NewTicker(max(w.debounce/5, 10*time.Millisecond))
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("inbox watcher error", "err", err)
		case <-tick.C:
			for _, p := range w.settled() {
				w.process(ctx, p)
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	if !transcribe.Supported(ev.Name) {
		return
	}
	w.mu.Lock()
	w.pending[ev.Name] = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) settled() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := time.Now()
	var ready []string
	for p, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			ready = append(ready, p)
			delete(w.pending, p)
		}
	}
	sort.Strings(ready)
	return ready
}

func (w *Watcher) process(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	w.mu.Lock()
	w.stats.Seen++
	w.mu.Unlock()

	log := w.logger.With("file", filepath.Base(path))
	if err := w.stabilizer.WaitForStable(ctx, path); err != nil {
		if ctx.Err() == nil {
			log.Warn("file did not stabilize", "err", err)
		}
		return
	}

	err = w.handler(ctx, path)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		log.Error("voice memo failed", "err", err)
	} else {
		log.Info("voice memo saved")
	}

	dest, aerr := w.archiver.Archive(path, err == nil)
	if aerr != nil {
		log.Error("archive voice memo", "err", aerr)
	} else {
		log.Debug("archived voice memo", "to", dest)
	}

	w.mu.Lock()
	if err == nil {
		w.stats.Processed++
	} else {
		w.stats.Failed++
	}
	w.mu.Unlock()
}
