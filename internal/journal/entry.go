// Package journal stores journal entries as one JSON file per day under a
// per-user directory tree.
package journal

import (
	"strings"
	"time"
)

// Category values
const (
	CategoryDaily = "daily"
	CategoryChat  = "chat"
)

// Attachment kinds
const (
	AttachmentAudio = "audio"
	AttachmentImage = "image"
)

// Entry is a single day's journal.
type Entry struct {
	Date            string    `json:"date"`
	Timestamp       time.Time `json:"timestamp"`
	Category        string    `json:"category"`
	Content         Content   `json:"content"`
	EmotionAnalysis Analysis  `json:"emotion_analysis"`
	Metadata        Metadata  `json:"metadata"`
}

// Content holds everything the user wrote, said, or attached.
type Content struct {
	Text        string        `json:"text"`
	Tasks       []Task        `json:"tasks"`
	Goals       []Goal        `json:"goals"`
	Tags        []string      `json:"tags"`
	ChatHistory []ChatMessage `json:"chat_history"`
	AISummary   string        `json:"ai_summary,omitempty"`
	Attachments []Attachment  `json:"attachments,omitempty"`
}

// Task is a to-do captured in an entry.
type Task struct {
	Task     string `json:"task"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
}

// Goal is a goal captured in an entry.
type Goal struct {
	Goal      string `json:"goal"`
	Timeframe string `json:"timeframe"`
	Progress  int    `json:"progress"`
}

// ChatMessage is one exchange with the journal assistant.
type ChatMessage struct {
	User      string    `json:"user"`
	Assistant string    `json:"assistant"`
	Timestamp time.Time `json:"timestamp"`
}

// Analysis is the emotional reading of an entry.
type Analysis struct {
	PrimaryEmotion   string   `json:"primary_emotion"`
	EmotionIntensity int      `json:"emotion_intensity"`
	EmotionalThemes  []string `json:"emotional_themes"`
	MoodSummary      string   `json:"mood_summary"`
	SuggestedActions []string `json:"suggested_actions"`
	Affirmation      string   `json:"affirmation,omitempty"`
}

// IsZero reports whether no analysis field is set.
func (a Analysis) IsZero() bool {
	return a.PrimaryEmotion == "" && a.EmotionIntensity == 0 && len(a.EmotionalThemes) == 0 &&
		a.MoodSummary == "" && len(a.SuggestedActions) == 0 && a.Affirmation == ""
}

// Attachment records a media file that produced or accompanies an entry.
type Attachment struct {
	Kind            string             `json:"kind"`
	Path            string             `json:"path"`
	Transcription   string             `json:"transcription,omitempty"`
	Description     string             `json:"description,omitempty"`
	Emotions        map[string]float64 `json:"emotions,omitempty"`
	DominantEmotion string             `json:"dominant_emotion,omitempty"`
	Visualization   string             `json:"visualization,omitempty"`
	Simulated       bool               `json:"simulated,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// Metadata is derived from the entry on every write.
type Metadata struct {
	LastModified   time.Time `json:"last_modified"`
	WordCount      int       `json:"word_count"`
	HasTasks       bool      `json:"has_tasks"`
	HasGoals       bool      `json:"has_goals"`
	HasChatHistory bool      `json:"has_chat_history"`
	HasAISummary   bool      `json:"has_ai_summary"`
	HasAttachments bool      `json:"has_attachments"`
}

// HasTag reports whether the entry carries tag (case-insensitive).
func (e *Entry) HasTag(tag string) bool {
	for _, t := range e.Content.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func (e *Entry) refreshMetadata(now time.Time) {
	e.Metadata = Metadata{
		LastModified:   now,
		WordCount:      len(strings.Fields(e.Content.Text)),
		HasTasks:       len(e.Content.Tasks) > 0,
		HasGoals:       len(e.Content.Goals) > 0,
		HasChatHistory: len(e.Content.ChatHistory) > 0,
		HasAISummary:   e.Content.AISummary != "",
		HasAttachments: len(e.Content.Attachments) > 0,
	}
}

// normalize replaces nil slices so files always carry [] rather than null.
func (e *Entry) normalize() {
	if e.Category == "" {
		e.Category = CategoryDaily
	}
	if e.Content.Tasks == nil {
		e.Content.Tasks = []Task{}
	}
	if e.Content.Goals == nil {
		e.Content.Goals = []Goal{}
	}
	if e.Content.Tags == nil {
		e.Content.Tags = []string{}
	}
	if e.Content.ChatHistory == nil {
		e.Content.ChatHistory = []ChatMessage{}
	}
	if e.EmotionAnalysis.EmotionalThemes == nil {
		e.EmotionAnalysis.EmotionalThemes = []string{}
	}
	if e.EmotionAnalysis.SuggestedActions == nil {
		e.EmotionAnalysis.SuggestedActions = []string{}
	}
}

// merge folds incoming into e following the same-day recording rules.
func (e *Entry) merge(in *Entry) {
	switch {
	case strings.TrimSpace(in.Content.Text) == "":
	case strings.TrimSpace(e.Content.Text) == "":
		e.Content.Text = in.Content.Text
	default:
		e.Content.Text = e.Content.Text + "\n\n" + in.Content.Text
	}

	e.Content.Tasks = append(e.Content.Tasks, in.Content.Tasks...)
	e.Content.Goals = append(e.Content.Goals, in.Content.Goals...)
	e.Content.ChatHistory = append(e.Content.ChatHistory, in.Content.ChatHistory...)
	e.Content.Attachments = append(e.Content.Attachments, in.Content.Attachments...)
	for _, t := range in.Content.Tags {
		if !e.HasTag(t) {
			e.Content.Tags = append(e.Content.Tags, t)
		}
	}
	if in.Content.AISummary != "" {
		e.Content.AISummary = in.Content.AISummary
	}

	a := &e.EmotionAnalysis
	b := in.EmotionAnalysis
	if b.PrimaryEmotion != "" {
		a.PrimaryEmotion = b.PrimaryEmotion
	}
	if b.EmotionIntensity != 0 {
		a.EmotionIntensity = b.EmotionIntensity
	}
	if len(b.EmotionalThemes) > 0 {
		a.EmotionalThemes = b.EmotionalThemes
	}
	if b.MoodSummary != "" {
		a.MoodSummary = b.MoodSummary
	}
	if len(b.SuggestedActions) > 0 {
		a.SuggestedActions = b.SuggestedActions
	}
	if b.Affirmation != "" {
		a.Affirmation = b.Affirmation
	}

	if e.Category == CategoryChat && in.Category != "" && in.Category != CategoryChat {
		e.Category = in.Category
	}
}
