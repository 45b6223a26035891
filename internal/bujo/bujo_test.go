package bujo

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/marcus/bujo/internal/analyzer"
	"github.com/marcus/bujo/internal/bujo/bujotest"
	"github.com/marcus/bujo/internal/journal"
	"github.com/marcus/bujo/internal/transcribe"
	"github.com/marcus/bujo/internal/vision"
)

var testNow = time.Date(2026, 2, 18, 9, 30, 15, 0, time.Local)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	app      *App
	journal  *Journal
	analyzer *bujotest.Analyzer
	speech   *bujotest.Transcriber
	vision   *bujotest.Vision
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		analyzer: &bujotest.Analyzer{},
		speech:   &bujotest.Transcriber{Text: "spoken words"},
		vision: &bujotest.Vision{Result: &vision.Result{
			Emotions:    vision.Summarize([]map[string]float64{{"happy": 0.74, "neutral": 0.26}}),
			Description: "Two friends laughing outdoors.",
		}},
	}
	h.app = &App{
		Analyzer:    h.analyzer,
		Transcriber: h.speech,
		Vision:      h.vision,
		Now:         func() time.Time { return testNow },
		Logger:      quietLogger(),
	}
	dirs, err := journal.UserDirs(t.TempDir(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	h.journal, err = h.app.ForUser(dirs)
	if err != nil {
		t.Fatalf("ForUser: %v", err)
	}
	return h
}

func TestSaveText(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.journal.SaveText(ctx, "  first thought  ", "")
	if err != nil {
		t.Fatalf("SaveText: %v", err)
	}
	if res.Date != "2026-02-18" || res.EntryID != "2026-02-18" {
		t.Errorf("result = %+v", res)
	}
	if _, err := h.journal.SaveText(ctx, "second thought", "2026-02-18"); err != nil {
		t.Fatal(err)
	}

	got, err := h.journal.Store().Get("2026-02-18")
	if err != nil {
		t.Fatal(err)
	}
	if got.Content.Text != "first thought\n\nsecond thought" {
		t.Errorf("text = %q", got.Content.Text)
	}
	if got.EmotionAnalysis.PrimaryEmotion != "calm" {
		t.Errorf("analysis = %+v", got.EmotionAnalysis)
	}
}

func TestSaveTextValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.journal.SaveText(ctx, "   ", ""); !errors.Is(err, ErrEmptyText) {
		t.Errorf("empty: %v", err)
	}
	if _, err := h.journal.SaveText(ctx, "hi", "18/02/2026"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("bad date: %v", err)
	}
}

func TestSaveTextKeepsEntryWhenAnalysisFails(t *testing.T) {
	h := newHarness(t)
	h.analyzer.AnalyzeFunc = func(context.Context, string) (journal.Analysis, error) {
		return journal.Analysis{}, errors.New("offline")
	}
	if _, err := h.journal.SaveText(context.Background(), "still saved", ""); err != nil {
		t.Fatalf("SaveText: %v", err)
	}
	got, _ := h.journal.Store().Get("2026-02-18")
	if got.Content.Text != "still saved" || got.EmotionAnalysis.PrimaryEmotion != "" {
		t.Errorf("entry = %+v", got)
	}
}

func TestSaveAudio(t *testing.T) {
	h := newHarness(t)
	res, err := h.journal.SaveAudio(context.Background(), "/tmp/memo.wav", "2026-02-17")
	if err != nil {
		t.Fatalf("SaveAudio: %v", err)
	}
	if res.Transcription != "spoken words" || res.Date != "2026-02-17" {
		t.Errorf("result = %+v", res)
	}
	got, _ := h.journal.Store().Get("2026-02-17")
	if !got.HasTag("audio") || len(got.Content.Attachments) != 1 || got.Content.Attachments[0].Kind != journal.AttachmentAudio {
		t.Errorf("entry = %+v", got.Content)
	}
	if h.analyzer.Texts[0] != "spoken words" {
		t.Errorf("analyzed %q", h.analyzer.Texts)
	}
}

func TestSaveAudioFailureSavesNothing(t *testing.T) {
	h := newHarness(t)
	h.speech.Err = transcribe.ErrNoSpeech
	if _, err := h.journal.SaveAudio(context.Background(), "/tmp/memo.wav", ""); !errors.Is(err, transcribe.ErrNoSpeech) {
		t.Fatalf("err = %v", err)
	}
	if _, err := h.journal.Store().Get("2026-02-18"); !errors.Is(err, journal.ErrNotFound) {
		t.Errorf("entry was saved: %v", err)
	}
}

func TestSaveImage(t *testing.T) {
	h := newHarness(t)
	res, err := h.journal.SaveImage(context.Background(), "/tmp/photo.png", "Picnic day", "")
	if err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	if res.Visualization != "emotions_20260218_093015.png" {
		t.Errorf("visualization = %q", res.Visualization)
	}
	f, err := os.Open(filepath.Join(h.journal.Dirs().Visualizations, res.Visualization))
	if err != nil {
		t.Fatalf("open chart: %v", err)
	}
	defer f.Close()
	if _, err := png.DecodeConfig(f); err != nil {
		t.Errorf("chart is not a PNG: %v", err)
	}

	got, _ := h.journal.Store().Get("2026-02-18")
	a := got.EmotionAnalysis
	if a.PrimaryEmotion != "happy" || a.EmotionIntensity != 7 {
		t.Errorf("analysis = %+v", a)
	}
	if a.MoodSummary != "Image analysis: Two friends laughing outdoors." {
		t.Errorf("mood = %q", a.MoodSummary)
	}
	if got.Content.Text != "Picnic day" || !got.HasTag("image") {
		t.Errorf("content = %+v", got.Content)
	}
}

func TestSaveImageWithoutFaces(t *testing.T) {
	h := newHarness(t)
	h.vision.Result = &vision.Result{Emotions: vision.Summarize(nil), Description: "A mountain lake."}
	res, err := h.journal.SaveImage(context.Background(), "/tmp/lake.jpg", "", "")
	if err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	if res.Visualization != "" {
		t.Errorf("visualization = %q, want none", res.Visualization)
	}
	got, _ := h.journal.Store().Get("2026-02-18")
	if got.EmotionAnalysis.PrimaryEmotion != "neutral" || got.EmotionAnalysis.EmotionIntensity != 5 {
		t.Errorf("analysis = %+v", got.EmotionAnalysis)
	}
}

func TestEntriesByDate(t *testing.T) {
	h := newHarness(t)
	got, err := h.journal.EntriesByDate("2026-02-18")
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("empty day = %v, %v", got, err)
	}
	h.journal.SaveText(context.Background(), "hello", "")
	got, _ = h.journal.EntriesByDate("")
	if len(got) != 1 {
		t.Errorf("got %d entries", len(got))
	}
	if _, err := h.journal.EntriesByDate("nope"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("err = %v", err)
	}
}

func TestWeeklySummary(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	w, err := h.journal.WeeklySummary(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if w.Start != "2026-02-12" || w.End != "2026-02-18" || w.Summary.Summary != analyzer.NoEntriesSummary {
		t.Errorf("empty week = %+v", w)
	}

	for _, d := range []string{"2026-02-11", "2026-02-12", "2026-02-18"} {
		h.journal.SaveText(ctx, "entry", d)
	}
	w, err = h.journal.WeeklySummary(ctx, "garbage")
	if err != nil {
		t.Fatal(err)
	}
	if w.EntriesCount != 2 || w.Summary.Summary != "2 entries" {
		t.Errorf("week = %+v", w)
	}

	w, _ = h.journal.WeeklySummary(ctx, "2026-02-05")
	if w.End != "2026-02-11" || w.EntriesCount != 1 {
		t.Errorf("explicit start = %+v", w)
	}
}

func TestChat(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.journal.Chat(ctx, " "); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("err = %v", err)
	}

	res, err := h.journal.Chat(ctx, "how am I?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.Response != "echo: how am I?" {
		t.Errorf("response = %q", res.Response)
	}
	got, _ := h.journal.Store().Get("2026-02-18")
	if got.Category != journal.CategoryChat || !got.HasTag("chat") || got.EmotionAnalysis.MoodSummary != "Chat interaction with journal assistant" {
		t.Errorf("chat-only entry = %+v", got)
	}

	h.journal.SaveText(ctx, "wrote something real", "")
	h.journal.SaveText(ctx, "old", "2026-02-01")
	if _, err := h.journal.Chat(ctx, "again"); err != nil {
		t.Fatal(err)
	}
	got, _ = h.journal.Store().Get("2026-02-18")
	if len(got.Content.ChatHistory) != 2 || got.Category != journal.CategoryDaily {
		t.Errorf("entry = %+v", got)
	}
	if recent := h.analyzer.Recent[1]; len(recent) != 1 {
		t.Errorf("chat context has %d entries, want only this week", len(recent))
	}
}

func TestWithoutAnalyzer(t *testing.T) {
	h := newHarness(t)
	h.app.Analyzer = nil
	ctx := context.Background()

	if _, err := h.journal.SaveText(ctx, "still saved", ""); err != nil {
		t.Fatalf("SaveText: %v", err)
	}
	if _, err := h.journal.Chat(ctx, "hello"); !errors.Is(err, ErrNoAnalyzer) {
		t.Errorf("Chat err = %v, want ErrNoAnalyzer", err)
	}
	if _, err := h.journal.WeeklySummary(ctx, ""); !errors.Is(err, ErrNoAnalyzer) {
		t.Errorf("WeeklySummary err = %v, want ErrNoAnalyzer", err)
	}
}

func TestInsightsAndCharts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	emotions := map[string]string{"2026-02-10": "happy", "2026-02-14": "sad", "2026-02-18": "happy"}
	h.analyzer.AnalyzeFunc = func(_ context.Context, text string) (journal.Analysis, error) {
		return journal.Analysis{PrimaryEmotion: emotions[text[:10]]}, nil
	}
	for d := range emotions {
		h.journal.SaveText(ctx, d+" garden walk", d)
	}

	in, err := h.journal.Insights(ctx, "", "")
	if err != nil {
		t.Fatalf("Insights: %v", err)
	}
	if in.EntriesCount != 3 || in.Predominant != "happy" || in.EmotionCounts["sad"] != 1 {
		t.Errorf("insights = %+v", in)
	}
	if want := (4.2 + 2 + 4.2) / 3; in.AverageScore < want-1e-9 || in.AverageScore > want+1e-9 {
		t.Errorf("average = %v, want %v", in.AverageScore, want)
	}
	if len(in.TopWords) == 0 || in.TopWords[0].Count != 3 {
		t.Errorf("top words = %v", in.TopWords)
	}

	var buf bytes.Buffer
	if err := h.journal.TrendChart(&buf, "2026-02-01", "2026-02-28"); err != nil {
		t.Fatalf("TrendChart: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "\x89PNG") {
		t.Error("trend chart is not a PNG")
	}
	buf.Reset()
	if err := h.journal.DistributionChart(&buf, "", ""); err != nil {
		t.Fatalf("DistributionChart: %v", err)
	}
	if _, err := h.journal.Insights(ctx, "bad", ""); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("err = %v", err)
	}
}
