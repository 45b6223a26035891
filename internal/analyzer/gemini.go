package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/marcus/bujo/internal/journal"
	"github.com/marcus/bujo/internal/llm"
)

const ragTopK = 3

// Gemini analyzes entries with a hosted model, grounding its suggestions in
// retrieved guidance documents.
type Gemini struct {
	client    llm.Client
	retriever *Retriever
	logger    *slog.Logger
}

// NewGemini creates a model-backed analyzer. A nil docs slice uses the built-in corpus.
func NewGemini(client llm.Client, docs []string, logger *slog.Logger) *Gemini {
	if docs == nil {
		docs = DefaultDocuments()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gemini{client: client, retriever: NewRetriever(client, docs), logger: logger}
}

// Name implements Analyzer.
func (g *Gemini) Name() string { return "gemini" }

var analysisSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"emotion":     {Type: genai.TypeString},
		"themes":      {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"suggestion":  {Type: genai.TypeString},
		"affirmation": {Type: genai.TypeString},
	},
	Required: []string{"emotion", "themes", "suggestion", "affirmation"},
}

var summarySchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"summary":         {Type: genai.TypeString},
		"emotion_trend":   {Type: genai.TypeString},
		"recommendations": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
	},
	Required: []string{"summary", "emotion_trend", "recommendations"},
}

type modelAnalysis struct {
	Emotion     string   `json:"emotion"`
	Themes      []string `json:"themes"`
	Suggestion  string   `json:"suggestion"`
	Affirmation string   `json:"affirmation"`
}

const analysisPrompt = `You are a supportive AI journaling assistant.
Analyze the user's journal input text and return a structured JSON with the following:
1. Primary emotion (e.g., sad, anxious, hopeful)
2. Up to 3 key themes
3. One CBT-style reflection suggestion
4. One daily affirmation

Use this context to ground your suggestions:
%s

Here are a few examples:

Journal Input Text:
I feel hopeless. Everything I do seems to go wrong.
Response:
{"emotion": "hopeless", "themes": ["self-doubt", "negativity"], "suggestion": "Try writing down three things that went well each day, no matter how small.", "affirmation": "You are resilient and capable of overcoming hard days."}

Journal Input Text:
I felt better today. I went for a walk and saw some friends.
Response:
{"emotion": "grateful", "themes": ["connection", "nature"], "suggestion": "Continue spending time doing things that bring you joy.", "affirmation": "Joy is found in small, simple moments."}

Now analyze the following entry:
%s
`

const summaryPrompt = `You are an AI assistant that helps users reflect on their journaling.
Analyze the collection of journal entries from the past week and provide:
1. A brief summary of the overall week
2. Key emotional patterns observed
3. 2-3 recommendations for the coming week based on the patterns

Context for grounding your recommendations:
%s

Journal entries from the past week:
%s
`

const chatPrompt = `You are a warm, concise journal assistant. Answer the user's message in a
few sentences. Refer to their recent entries when relevant, never invent entries,
and suggest writing a journal entry when they share something worth keeping.

Recent journal entries:
%s

User message:
%s
`

// Analyze implements Analyzer.
func (g *Gemini) Analyze(ctx context.Context, text string) (journal.Analysis, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return journal.Analysis{}, fmt.Errorf("analyze: empty text")
	}

	out, err := g.client.Generate(ctx, llm.Request{
		Prompt:      fmt.Sprintf(analysisPrompt, g.guidance(ctx, text), text),
		Schema:      analysisSchema,
		Temperature: llm.Float32(0.7),
		TopP:        llm.Float32(0.9),
		TopK:        llm.Float32(50),
	})
	if err != nil {
		return journal.Analysis{}, fmt.Errorf("analyze: %w", err)
	}

	var m modelAnalysis
	if err := llm.ParseJSON(out, &m); err != nil {
		return journal.Analysis{}, fmt.Errorf("analyze: %w", err)
	}
	emotion := strings.ToLower(strings.TrimSpace(m.Emotion))
	if emotion == "" {
		return journal.Analysis{}, fmt.Errorf("analyze: model returned no emotion")
	}
	themes := m.Themes
	if len(themes) > 3 {
		themes = themes[:3]
	}

	a := journal.Analysis{
		PrimaryEmotion:   emotion,
		EmotionIntensity: intensityFor(emotion),
		EmotionalThemes:  themes,
		MoodSummary:      fmt.Sprintf("Your entry suggests you're feeling %s.", emotion),
		Affirmation:      strings.TrimSpace(m.Affirmation),
	}
	if s := strings.TrimSpace(m.Suggestion); s != "" {
		a.SuggestedActions = []string{s}
	}
	return a, nil
}

// WeeklySummary implements Analyzer.
func (g *Gemini) WeeklySummary(ctx context.Context, entries []*journal.Entry) (Summary, error) {
	if len(entries) == 0 {
		return Summary{Summary: NoEntriesSummary, Recommendations: []string{}}, nil
	}
	combined := entryTexts(entries)
	if combined == "" {
		return Summary{}, fmt.Errorf("weekly summary: entries have no text")
	}

	out, err := g.client.Generate(ctx, llm.Request{
		Prompt:      fmt.Sprintf(summaryPrompt, g.guidance(ctx, combined), combined),
		Schema:      summarySchema,
		Temperature: llm.Float32(0.7),
	})
	if err != nil {
		return Summary{}, fmt.Errorf("weekly summary: %w", err)
	}

	var s Summary
	if err := llm.ParseJSON(out, &s); err != nil || s.Summary == "" {
		g.logger.Debug("weekly summary not json, using raw text", "err", err)
		return Summary{
			Summary:         out,
			EmotionTrend:    "Unable to analyze emotional trends",
			Recommendations: []string{"Consider maintaining consistent journaling practice"},
		}, nil
	}
	if s.Recommendations == nil {
		s.Recommendations = []string{}
	}
	return s, nil
}

// Chat implements Analyzer.
func (g *Gemini) Chat(ctx context.Context, message string, recent []*journal.Entry) (string, error) {
	history := entryTexts(recent)
	if history == "" {
		history = "(no recent entries)"
	}
	out, err := g.client.Generate(ctx, llm.Request{
		Prompt:      fmt.Sprintf(chatPrompt, history, message),
		Temperature: llm.Float32(0.7),
	})
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	return out, nil
}

// guidance returns retrieved guidance for text, or "" when retrieval fails.
func (g *Gemini) guidance(ctx context.Context, text string) string {
	docs, err := g.retriever.TopK(ctx, text, ragTopK)
	if err != nil {
		g.logger.Warn("retrieval context unavailable", "err", err)
		return ""
	}
	return strings.Join(docs, "\n")
}
