package journal

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var testNow = time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	e := &Entry{Date: "2026-02-18", Content: Content{Text: "walked to the river today"}}
	if err := s.Create(e); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := os.Stat(filepath.Join(s.Root(), "2026-02", "2026-02-18.json")); err != nil {
		t.Fatalf("expected day file: %v", err)
	}

	got, err := s.Get("2026-02-18")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Category != CategoryDaily {
		t.Errorf("category = %q, want daily", got.Category)
	}
	if got.Metadata.WordCount != 5 {
		t.Errorf("word count = %d, want 5", got.Metadata.WordCount)
	}
	if !got.Timestamp.Equal(testNow) {
		t.Errorf("timestamp = %v", got.Timestamp)
	}
	if got.Content.Tags == nil || got.Content.Tasks == nil {
		t.Error("expected empty slices, not nil")
	}
}

func TestGetMissingAndInvalid(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get("2026-01-01"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing: got %v, want ErrNotFound", err)
	}
	if _, err := s.Get("01/01/2026"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("invalid: got %v, want ErrInvalidDate", err)
	}
	if err := s.Create(&Entry{Date: "nope"}); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("create invalid: got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	s := newTestStore(t)
	s.Create(&Entry{Date: "2026-02-18", Content: Content{Text: "draft"}})

	got, err := s.Update("2026-02-18", func(e *Entry) error {
		e.Content.AISummary = "a calm day"
		e.Content.Tasks = append(e.Content.Tasks, Task{Task: "call mom", Status: "open", Priority: "high"})
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !got.Metadata.HasAISummary || !got.Metadata.HasTasks {
		t.Errorf("metadata not refreshed: %+v", got.Metadata)
	}

	if _, err := s.Update("2026-02-10", func(*Entry) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Errorf("update missing: got %v", err)
	}

	boom := errors.New("boom")
	if _, err := s.Update("2026-02-18", func(*Entry) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("update fn error: got %v", err)
	}
}

func TestUpsert(t *testing.T) {
	s := newTestStore(t)
	created := 0
	create := func() *Entry {
		created++
		return &Entry{Category: CategoryChat, Content: Content{Tags: []string{"chat"}}}
	}
	appendChat := func(e *Entry) error {
		e.Content.ChatHistory = append(e.Content.ChatHistory, ChatMessage{User: "hi", Assistant: "hello"})
		return nil
	}

	for range 2 {
		if _, err := s.Upsert("2026-02-18", create, appendChat); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	got, err := s.Get("2026-02-18")
	if err != nil {
		t.Fatal(err)
	}
	if created != 1 || len(got.Content.ChatHistory) != 2 || got.Category != CategoryChat {
		t.Errorf("created = %d, entry = %+v", created, got)
	}
	if !got.Metadata.HasChatHistory {
		t.Error("metadata not refreshed")
	}
}

func TestRecordMergesSameDay(t *testing.T) {
	s := newTestStore(t)
	first := &Entry{
		Date: "2026-02-18",
		Content: Content{
			Text: "morning pages",
			Tags: []string{"audio"},
		},
		EmotionAnalysis: Analysis{
			PrimaryEmotion:   "anxious",
			EmotionIntensity: 6,
			EmotionalThemes:  []string{"work"},
			MoodSummary:      "nervous start",
		},
	}
	if _, err := s.Record(first); err != nil {
		t.Fatalf("record first: %v", err)
	}

	second := &Entry{
		Date: "2026-02-18",
		Content: Content{
			Text: "evening reflection",
			Tags: []string{"AUDIO", "image"},
		},
		EmotionAnalysis: Analysis{
			PrimaryEmotion:   "content",
			SuggestedActions: []string{"rest"},
		},
	}
	got, err := s.Record(second)
	if err != nil {
		t.Fatalf("record second: %v", err)
	}

	want := Content{
		Text:        "morning pages\n\nevening reflection",
		Tasks:       []Task{},
		Goals:       []Goal{},
		Tags:        []string{"audio", "image"},
		ChatHistory: []ChatMessage{},
	}
	if diff := cmp.Diff(want, got.Content); diff != "" {
		t.Errorf("merged content mismatch (-want +got):\n%s", diff)
	}

	wantAnalysis := Analysis{
		PrimaryEmotion:   "content",
		EmotionIntensity: 6,
		EmotionalThemes:  []string{"work"},
		MoodSummary:      "nervous start",
		SuggestedActions: []string{"rest"},
	}
	if diff := cmp.Diff(wantAnalysis, got.EmotionAnalysis); diff != "" {
		t.Errorf("merged analysis mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordPromotesChatCategory(t *testing.T) {
	s := newTestStore(t)
	s.Record(&Entry{Date: "2026-02-18", Category: CategoryChat, Content: Content{Tags: []string{"chat"}}})
	got, err := s.Record(&Entry{Date: "2026-02-18", Category: CategoryDaily, Content: Content{Text: "real entry"}})
	if err != nil {
		t.Fatal(err)
	}
	if got.Category != CategoryDaily {
		t.Errorf("category = %q, want daily", got.Category)
	}
}

func TestSearch(t *testing.T) {
	s := newTestStore(t)
	seed := []*Entry{
		{Date: "2026-01-30", Content: Content{Tags: []string{"work"}}, EmotionAnalysis: Analysis{PrimaryEmotion: "sad"}},
		{Date: "2026-02-01", Content: Content{Tags: []string{"audio"}}, EmotionAnalysis: Analysis{PrimaryEmotion: "Happy"}},
		{Date: "2026-02-10", Content: Content{Tags: []string{"image", "work"}}, EmotionAnalysis: Analysis{PrimaryEmotion: "sad"}},
		{Date: "2026-02-18", Content: Content{Tags: []string{"chat"}}, EmotionAnalysis: Analysis{PrimaryEmotion: "neutral"}},
	}
	for _, e := range seed {
		if err := s.Create(e); err != nil {
			t.Fatal(err)
		}
	}

	dates := func(es []*Entry) []string {
		out := []string{}
		for _, e := range es {
			out = append(out, e.Date)
		}
		return out
	}

	tests := []struct {
		name string
		q    Query
		want []string
	}{
		{"default range is current month", Query{}, []string{"2026-02-01", "2026-02-10", "2026-02-18"}},
		{"explicit range", Query{Start: "2026-01-01", End: "2026-02-05"}, []string{"2026-01-30", "2026-02-01"}},
		{"tag any match", Query{Start: "2026-01-01", Tags: []string{"work", "chat"}}, []string{"2026-01-30", "2026-02-10", "2026-02-18"}},
		{"emotion case-insensitive", Query{Start: "2026-01-01", Emotion: "HAPPY"}, []string{"2026-02-01"}},
		{"tag and emotion", Query{Start: "2026-01-01", Tags: []string{"work"}, Emotion: "sad"}, []string{"2026-01-30", "2026-02-10"}},
		{"no match", Query{Start: "2026-01-01", Emotion: "angry"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Search(tt.q)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if diff := cmp.Diff(tt.want, dates(got), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("dates mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := s.Search(Query{Start: "bad"}); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("bad start: got %v", err)
	}
}

func TestSearchSkipsCorruptFiles(t *testing.T) {
	s := newTestStore(t)
	s.Create(&Entry{Date: "2026-02-02"})
	dir := filepath.Join(s.Root(), "2026-02")
	if err := os.WriteFile(filepath.Join(dir, "2026-02-03.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644)

	all, err := s.All()
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 1 || all[0].Date != "2026-02-02" {
		t.Errorf("expected only the valid entry, got %d", len(all))
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	s.Create(&Entry{Date: "2026-02-18"})
	if err := s.Delete("2026-02-18"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete("2026-02-18"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: got %v", err)
	}
}

func TestConcurrentRecord(t *testing.T) {
	s := newTestStore(t)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Record(&Entry{Date: "2026-02-18", Content: Content{Text: "line"}}); err != nil {
				t.Errorf("record: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := s.Get("2026-02-18")
	if err != nil {
		t.Fatal(err)
	}
	if got.Metadata.WordCount != 10 {
		t.Errorf("word count = %d, want 10 (lost writes)", got.Metadata.WordCount)
	}
}

func TestUserDirs(t *testing.T) {
	root := t.TempDir()
	d, err := UserDirs(root, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Ensure(); err != nil {
		t.Fatal(err)
	}
	if d.Journals != filepath.Join(root, "alice", "journals") {
		t.Errorf("journals = %s", d.Journals)
	}
	for _, id := range []string{"", "..", "a/b", `a\b`, ".hidden"} {
		if _, err := UserDirs(root, id); !errors.Is(err, ErrInvalidUserID) {
			t.Errorf("UserDirs(%q): got %v, want ErrInvalidUserID", id, err)
		}
	}
}

func TestProfile(t *testing.T) {
	d, err := UserDirs(t.TempDir(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.ReadProfile(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ReadProfile before write: %v, want ErrNotFound", err)
	}

	want := Profile{ID: "alice", Username: "alice", Name: "Alice", Email: "a@example.com", UpdatedAt: time.Date(2026, 2, 18, 9, 0, 0, 0, time.UTC)}
	if err := d.WriteProfile(want); err != nil {
		t.Fatalf("write: %v", err)
	}
	want.Name = "Alice B."
	if err := d.WriteProfile(want); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	got, err := d.ReadProfile()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}
	files, _ := os.ReadDir(d.Base)
	if len(files) != 1 || files[0].Name() != "profile.json" {
		t.Errorf("user dir = %v, want only profile.json", files)
	}
}
