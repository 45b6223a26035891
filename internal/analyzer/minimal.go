package analyzer

import (
	"context"
	"fmt"

	"github.com/marcus/bujo/internal/journal"
)

// Minimal returns fixed placeholder results. It never fails and is the last
// link of a Chain.
type Minimal struct{}

// Name implements Analyzer.
func (Minimal) Name() string { return "minimal" }

// Analyze implements Analyzer.
func (Minimal) Analyze(context.Context, string) (journal.Analysis, error) {
	return journal.Analysis{
		PrimaryEmotion:   "unknown",
		EmotionIntensity: 5,
		EmotionalThemes:  []string{"journaling"},
		MoodSummary:      "No analysis available",
		SuggestedActions: []string{"Continue journaling"},
	}, nil
}

// WeeklySummary implements Analyzer.
func (Minimal) WeeklySummary(_ context.Context, entries []*journal.Entry) (Summary, error) {
	if len(entries) == 0 {
		return Summary{Summary: NoEntriesSummary, Recommendations: []string{}}, nil
	}
	return Summary{
		Summary:         fmt.Sprintf("You made %d journal entries.", len(entries)),
		EmotionTrend:    "Analysis not available",
		Recommendations: []string{"Continue your journaling practice"},
	}, nil
}

// Chat implements Analyzer.
func (Minimal) Chat(context.Context, string, []*journal.Entry) (string, error) {
	return "I'm sorry, but the chat functionality is unavailable in minimal mode. Please try again when the full analyzer is working.", nil
}
