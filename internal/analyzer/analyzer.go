// Package analyzer reads journal text for emotion, themes, and suggestions,
// summarizes weeks of entries, and answers chat messages about the journal.
//
// Three implementations share the Analyzer interface: Gemini (model backed),
// Keyword (local heuristics), and Minimal (constant). A Chain runs them in order
// and returns the first success.
package analyzer

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/marcus/bujo/internal/journal"
)

// Analyzer annotates and summarizes journal entries.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (journal.Analysis, error)
	WeeklySummary(ctx context.Context, entries []*journal.Entry) (Summary, error)
	Chat(ctx context.Context, message string, recent []*journal.Entry) (string, error)
	Name() string
}

// Summary is a reflection over a range of entries.
type Summary struct {
	Summary         string   `json:"summary"`
	EmotionTrend    string   `json:"emotion_trend"`
	Recommendations []string `json:"recommendations"`
}

// NoEntriesSummary is the reply for an empty range.
const NoEntriesSummary = "No entries found for this week."

// emotionScores maps emotions onto a 1 (low) to 5 (high) mood scale.
var emotionScores = map[string]float64{
	"hopeless":   1,
	"angry":      1.5,
	"anxious":    1.7,
	"sad":        2,
	"frustrated": 2.2,
	"confused":   2.5,
	"neutral":    3,
	"okay":       3.2,
	"content":    3.5,
	"hopeful":    4,
	"happy":      4.2,
	"excited":    4.5,
	"grateful":   5,
}

// KnownEmotions returns the emotions with a mood score, sorted.
func KnownEmotions() []string {
	return slices.Sorted(maps.Keys(emotionScores))
}

// EmotionScore returns the mood score for emotion; unknown emotions score 3.
func EmotionScore(emotion string) float64 {
	if s, ok := emotionScores[strings.ToLower(strings.TrimSpace(emotion))]; ok {
		return s
	}
	return 3
}

// intensityFor derives a 1..10 intensity from how far the emotion sits from neutral.
func intensityFor(emotion string) int {
	d := EmotionScore(emotion) - 3
	if d < 0 {
		d = -d
	}
	return min(10, 5+int(d*2.5+0.5))
}

// EmotionCounts tallies primary emotions across entries, skipping blanks and "unknown".
func EmotionCounts(entries []*journal.Entry) map[string]int {
	counts := make(map[string]int)
	for _, e := range entries {
		em := strings.ToLower(strings.TrimSpace(e.EmotionAnalysis.PrimaryEmotion))
		if em == "" || em == "unknown" {
			continue
		}
		counts[em]++
	}
	return counts
}

// Predominant returns the most frequent emotion, breaking ties alphabetically.
// It returns "" when counts is empty.
func Predominant(counts map[string]int) string {
	best, bestN := "", 0
	for _, k := range sortedKeys(counts) {
		if counts[k] > bestN {
			best, bestN = k, counts[k]
		}
	}
	return best
}

// CommonThemes returns up to n themes ordered by frequency.
func CommonThemes(entries []*journal.Entry, n int) []string {
	counts := make(map[string]int)
	for _, e := range entries {
		for _, th := range e.EmotionAnalysis.EmotionalThemes {
			th = strings.ToLower(strings.TrimSpace(th))
			if th != "" {
				counts[th]++
			}
		}
	}
	keys := sortedKeys(counts)
	sort.SliceStable(keys, func(i, j int) bool { return counts[keys[i]] > counts[keys[j]] })
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// entryTexts joins the text of entries for prompts.
func entryTexts(entries []*journal.Entry) string {
	var b strings.Builder
	for _, e := range entries {
		text := strings.TrimSpace(e.Content.Text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(e.Date)
		b.WriteString(": ")
		b.WriteString(text)
	}
	return b.String()
}
