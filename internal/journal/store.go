package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/marcus/bujo/internal/dateparse"
)

var (
	// ErrNotFound is returned when no entry exists for a date.
	ErrNotFound = errors.New("journal entry not found")
	// ErrInvalidDate is returned for dates not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("invalid date format, use YYYY-MM-DD")
)

// Store reads and writes entries under a single root directory.
type Store struct {
	root   string
	mu     sync.Mutex
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps and default ranges.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for skipped files.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open returns a Store rooted at dir, creating it if needed.
func Open(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	s := &Store{root: dir, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the store's directory.
func (s *Store) Root() string { return s.root }

// Path returns the file path for date.
func (s *Store) Path(date string) string {
	return filepath.Join(s.root, date[:7], date+".json")
}

// Create writes e as the entry for e.Date, replacing any existing file.
func (s *Store) Create(e *Entry) error {
	if !dateparse.Valid(e.Date) {
		return ErrInvalidDate
	}
	return s.withLock(func() error {
		return s.write(e)
	})
}

// Get returns the entry for date.
func (s *Store) Get(date string) (*Entry, error) {
	if !dateparse.Valid(date) {
		return nil, ErrInvalidDate
	}
	return s.read(s.Path(date))
}

// Update applies fn to the stored entry for date and writes the result.
func (s *Store) Update(date string, fn func(*Entry) error) (*Entry, error) {
	if !dateparse.Valid(date) {
		return nil, ErrInvalidDate
	}
	var out *Entry
	err := s.withLock(func() error {
		e, err := s.read(s.Path(date))
		if err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
		e.Date = date
		if err := s.write(e); err != nil {
			return err
		}
		out = e
		return nil
	})
	return out, err
}

// Upsert applies fn to the entry for date, or to the entry returned by create
// when none exists, and writes the result.
func (s *Store) Upsert(date string, create func() *Entry, fn func(*Entry) error) (*Entry, error) {
	if !dateparse.Valid(date) {
		return nil, ErrInvalidDate
	}
	var out *Entry
	err := s.withLock(func() error {
		e, err := s.read(s.Path(date))
		if errors.Is(err, ErrNotFound) {
			e, err = create(), nil
		}
		if err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
		e.Date = date
		if err := s.write(e); err != nil {
			return err
		}
		out = e
		return nil
	})
	return out, err
}

// Record merges e into the existing entry for its date, or creates one.
func (s *Store) Record(e *Entry) (*Entry, error) {
	if !dateparse.Valid(e.Date) {
		return nil, ErrInvalidDate
	}
	var out *Entry
	err := s.withLock(func() error {
		existing, err := s.read(s.Path(e.Date))
		switch {
		case errors.Is(err, ErrNotFound):
			existing = e
		case err != nil:
			return err
		default:
			existing.merge(e)
		}
		if err := s.write(existing); err != nil {
			return err
		}
		out = existing
		return nil
	})
	return out, err
}

// Delete removes the entry for date.
func (s *Store) Delete(date string) error {
	if !dateparse.Valid(date) {
		return ErrInvalidDate
	}
	return s.withLock(func() error {
		err := os.Remove(s.Path(date))
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	})
}

// Query filters entries in Search.
type Query struct {
	Start   string   // inclusive, default first day of the current month
	End     string   // inclusive, default today
	Tags    []string // any-match
	Emotion string   // case-insensitive match on the primary emotion
}

// Search returns entries matching q, sorted by date.
func (s *Store) Search(q Query) ([]*Entry, error) {
	now := s.now()
	if q.Start == "" {
		q.Start = dateparse.Format(time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()))
	}
	if q.End == "" {
		q.End = dateparse.Format(now)
	}
	if !dateparse.Valid(q.Start) || !dateparse.Valid(q.End) {
		return nil, ErrInvalidDate
	}

	all, err := s.scan(q.Start, q.End)
	if err != nil {
		return nil, err
	}

	out := all[:0]
	for _, e := range all {
		if len(q.Tags) > 0 && !hasAnyTag(e, q.Tags) {
			continue
		}
		if q.Emotion != "" && !strings.EqualFold(e.EmotionAnalysis.PrimaryEmotion, q.Emotion) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// All returns every entry in the store, sorted by date.
func (s *Store) All() ([]*Entry, error) {
	return s.scan("", "")
}

func hasAnyTag(e *Entry, tags []string) bool {
	for _, t := range tags {
		if e.HasTag(t) {
			return true
		}
	}
	return false
}

// scan reads every entry file with start <= date <= end. Empty bounds are open.
func (s *Store) scan(start, end string) ([]*Entry, error) {
	var entries []*Entry
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Month directories are YYYY-MM; skip months wholly outside the range.
			name := d.Name()
			if path != s.root && len(name) == 7 {
				if (start != "" && name < start[:7]) || (end != "" && name > end[:7]) {
					return filepath.SkipDir
				}
			}
			return nil
		}
		date, ok := strings.CutSuffix(d.Name(), ".json")
		if !ok || !dateparse.Valid(date) {
			return nil
		}
		if (start != "" && date < start) || (end != "" && date > end) {
			return nil
		}
		e, err := s.read(path)
		if err != nil {
			s.logger.Warn("skip unreadable journal entry", "path", path, "err", err)
			return nil
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan journal: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Date < entries[j].Date })
	return entries, nil
}

func (s *Store) read(path string) (*Entry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read entry: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode entry %s: %w", filepath.Base(path), err)
	}
	e.normalize()
	return &e, nil
}

// write stores e atomically via a temp file and rename. Callers hold the lock.
func (s *Store) write(e *Entry) error {
	now := s.now()
	e.normalize()
	e.Timestamp = now
	e.refreshMetadata(now)

	path := s.Path(e.Date)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create month dir: %w", err)
	}

	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}

	if err := writeAtomic(path, data); err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	return nil
}

// writeAtomic replaces path with data through a temp file in the same directory.
func writeAtomic(path string, data []byte) error {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	tmp, err := os.CreateTemp(filepath.Dir(path), base+"-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func (s *Store) withLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := newWriteLocker(s.root)
	if err := l.acquire(defaultTimeout); err != nil {
		return err
	}
	defer l.release()
	return fn()
}
