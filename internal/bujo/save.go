package bujo

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcus/bujo/internal/chart"
	"github.com/marcus/bujo/internal/journal"
	"github.com/marcus/bujo/internal/transcribe"
	"github.com/marcus/bujo/internal/vision"
)

// SaveText analyzes text and merges it into the entry for date.
func (j *Journal) SaveText(ctx context.Context, text, date string) (SaveResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return SaveResult{}, ErrEmptyText
	}
	date, err := j.resolveDate(date)
	if err != nil {
		return SaveResult{}, err
	}

	e, err := j.store.Record(&journal.Entry{
		Date:            date,
		Category:        journal.CategoryDaily,
		Content:         journal.Content{Text: text},
		EmotionAnalysis: j.analyze(ctx, text),
	})
	if err != nil {
		return SaveResult{}, fmt.Errorf("save entry: %w", err)
	}
	j.logger.Info("saved text entry", "date", date, "emotion", e.EmotionAnalysis.PrimaryEmotion)
	return saved(e), nil
}

// AudioResult is a saved voice entry.
type AudioResult struct {
	SaveResult
	Transcription string `json:"transcription"`
}

// SaveAudio transcribes the recording at audioPath and saves the text. Nothing
// is saved when transcription fails.
func (j *Journal) SaveAudio(ctx context.Context, audioPath, date string) (AudioResult, error) {
	if audioPath == "" {
		return AudioResult{}, ErrNoAudio
	}
	date, err := j.resolveDate(date)
	if err != nil {
		return AudioResult{}, err
	}
	if j.app.Transcriber == nil {
		return AudioResult{}, fmt.Errorf("transcribe: no transcriber configured")
	}
	res, err := j.app.Transcriber.Transcribe(ctx, audioPath, transcribe.Options{})
	if err != nil {
		return AudioResult{}, fmt.Errorf("transcribe: %w", err)
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		return AudioResult{}, transcribe.ErrNoSpeech
	}

	e, err := j.store.Record(&journal.Entry{
		Date:     date,
		Category: journal.CategoryDaily,
		Content: journal.Content{
			Text: text,
			Tags: []string{"audio"},
			Attachments: []journal.Attachment{{
				Kind:          journal.AttachmentAudio,
				Path:          audioPath,
				Transcription: text,
				CreatedAt:     j.app.now(),
			}},
		},
		EmotionAnalysis: j.analyze(ctx, text),
	})
	if err != nil {
		return AudioResult{}, fmt.Errorf("save entry: %w", err)
	}
	j.logger.Info("saved voice entry", "date", date, "source", res.Source)
	return AudioResult{SaveResult: saved(e), Transcription: text}, nil
}

// ImageResult is a saved photo entry.
type ImageResult struct {
	SaveResult
	Emotions      vision.Emotions `json:"emotions"`
	Description   string          `json:"description"`
	Visualization string          `json:"visualization,omitempty"`
}

// SaveImage analyzes the photo at imagePath and saves it with notes.
func (j *Journal) SaveImage(ctx context.Context, imagePath, notes, date string) (ImageResult, error) {
	if imagePath == "" {
		return ImageResult{}, ErrNoImage
	}
	date, err := j.resolveDate(date)
	if err != nil {
		return ImageResult{}, err
	}
	if j.app.Vision == nil {
		return ImageResult{}, fmt.Errorf("analyze image: no image analyzer configured")
	}
	res, err := j.app.Vision.Analyze(ctx, imagePath)
	if err != nil {
		return ImageResult{}, fmt.Errorf("analyze image: %w", err)
	}

	var viz string
	if len(res.Emotions.Average) > 0 {
		viz, err = j.writeEmotionBars(res.Emotions.Average)
		if err != nil {
			j.logger.Warn("emotion chart not written", "err", err)
		}
	}

	e, err := j.store.Record(&journal.Entry{
		Date:     date,
		Category: journal.CategoryDaily,
		Content: journal.Content{
			Text: strings.TrimSpace(notes),
			Tags: []string{"image"},
			Attachments: []journal.Attachment{{
				Kind:            journal.AttachmentImage,
				Path:            imagePath,
				Description:     res.Description,
				Emotions:        res.Emotions.Average,
				DominantEmotion: res.Emotions.Dominant,
				Visualization:   viz,
				Simulated:       res.Emotions.Simulated,
				CreatedAt:       j.app.now(),
			}},
		},
		EmotionAnalysis: imageAnalysis(res),
	})
	if err != nil {
		return ImageResult{}, fmt.Errorf("save entry: %w", err)
	}
	j.logger.Info("saved photo entry", "date", date, "dominant", res.Emotions.Dominant, "simulated", res.Emotions.Simulated)
	return ImageResult{
		SaveResult:    saved(e),
		Emotions:      res.Emotions,
		Description:   res.Description,
		Visualization: viz,
	}, nil
}

func (j *Journal) writeEmotionBars(scores map[string]float64) (string, error) {
	name := "emotions_" + j.app.now().Format("20060102_150405") + ".png"
	path := filepath.Join(j.dirs.Visualizations, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create chart: %w", err)
	}
	if err := chart.EmotionBars(f, scores); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close chart: %w", err)
	}
	return name, nil
}

func imageAnalysis(res *vision.Result) journal.Analysis {
	a := journal.Analysis{
		PrimaryEmotion:   "neutral",
		EmotionIntensity: 5,
		EmotionalThemes:  res.Emotions.Top(3),
		MoodSummary:      "Image analysis: " + res.Description,
		SuggestedActions: []string{},
	}
	if res.Emotions.Dominant != "" {
		a.PrimaryEmotion = res.Emotions.Dominant
		a.EmotionIntensity = min(10, max(1, int(math.Round(res.Emotions.DominantScore*10))))
	}
	return a
}

// analyze runs the analyzer, returning an empty analysis on failure so the
// entry is still saved.
func (j *Journal) analyze(ctx context.Context, text string) journal.Analysis {
	if j.app.Analyzer == nil {
		return journal.Analysis{}
	}
	a, err := j.app.Analyzer.Analyze(ctx, text)
	if err != nil {
		j.logger.Warn("analysis failed, saving without it", "err", err)
		return journal.Analysis{}
	}
	return a
}
