package inbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// genai's opencensus dependency starts a stats worker from init.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

type recorder struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (r *recorder) handle(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, filepath.Base(path))
	return r.err
}

func (r *recorder) handled() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func newTestWatcher(dir string, r *recorder) *Watcher {
	return New(dir, r.handle,
		WithDebounce(20*time.Millisecond),
		WithStabilizer(NewPollStabilizer(10*time.Millisecond, 2)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestWatcherProcessesNewAudio(t *testing.T) {
	dir := t.TempDir()
	r := &recorder{}
	w := newTestWatcher(dir, r)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644)
	os.WriteFile(filepath.Join(dir, "memo.m4a"), []byte("audio"), 0o644)

	waitFor(t, func() bool { return exists(filepath.Join(dir, ProcessedDir, "memo.m4a")) })
	if got := r.handled(); len(got) != 1 || got[0] != "memo.m4a" {
		t.Errorf("handled = %v", got)
	}
	if !exists(filepath.Join(dir, "notes.txt")) {
		t.Error("non-audio file was touched")
	}
	if s := w.Stats(); s.Processed != 1 || s.Failed != 0 {
		t.Errorf("stats = %+v", s)
	}
}

func TestWatcherArchivesFailures(t *testing.T) {
	dir := t.TempDir()
	r := &recorder{err: errors.New("no speech")}
	w := newTestWatcher(dir, r)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	os.WriteFile(filepath.Join(dir, "bad.wav"), []byte("noise"), 0o644)
	waitFor(t, func() bool { return exists(filepath.Join(dir, FailedDir, "bad.wav")) })
	if s := w.Stats(); s.Failed != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestScanExisting(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.mp3", "a.wav", "readme.md"} {
		os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644)
	}
	r := &recorder{}
	w := newTestWatcher(dir, r)
	if err := w.ScanExisting(context.Background()); err != nil {
		t.Fatalf("ScanExisting: %v", err)
	}
	if len(r.paths) != 2 || r.paths[0] != "a.wav" || r.paths[1] != "b.mp3" {
		t.Errorf("handled = %v", r.paths)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	w := newTestWatcher(t.TempDir(), &recorder{})
	w.Stop()
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
}

func TestStopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := newTestWatcher(t.TempDir(), &recorder{})
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	w.Stop()
}

func TestArchiverCollision(t *testing.T) {
	dir := t.TempDir()
	a := NewFileArchiver(dir)
	a.Now = func() time.Time { return time.Date(2026, 2, 18, 10, 0, 0, 0, time.UTC) }

	for range 2 {
		p := filepath.Join(dir, "memo.wav")
		os.WriteFile(p, []byte("x"), 0o644)
		if _, err := a.Archive(p, true); err != nil {
			t.Fatalf("Archive: %v", err)
		}
	}
	if !exists(filepath.Join(dir, ProcessedDir, "memo.wav")) ||
		!exists(filepath.Join(dir, ProcessedDir, "memo-20260218-100000.000.wav")) {
		t.Error("expected original and suffixed archive copies")
	}
}

func TestPollStabilizerTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "growing.wav")
	os.WriteFile(path, nil, 0o644)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		f, _ := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		defer f.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Millisecond):
				f.Write([]byte("x"))
			}
		}
	}()

	s := &PollStabilizer{Interval: 10 * time.Millisecond, Checks: 3, Timeout: 100 * time.Millisecond}
	err := s.WaitForStable(context.Background(), path)
	cancel()
	<-done
	if !errors.Is(err, ErrStabilizationTimeout) {
		t.Errorf("err = %v, want ErrStabilizationTimeout", err)
	}
}
