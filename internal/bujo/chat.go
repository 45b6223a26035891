package bujo

import (
	"context"
	"fmt"
	"strings"

	"github.com/marcus/bujo/internal/dateparse"
	"github.com/marcus/bujo/internal/journal"
)

// ChatResult is the assistant's reply and the entry it was recorded on.
type ChatResult struct {
	Response string `json:"response"`
	Date     string `json:"date"`
}

// Chat answers message using the last seven days of entries and records the
// exchange in today's chat history.
func (j *Journal) Chat(ctx context.Context, message string) (ChatResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return ChatResult{}, ErrEmptyMessage
	}
	if j.app.Analyzer == nil {
		return ChatResult{}, ErrNoAnalyzer
	}
	now := j.app.now()
	today := dateparse.Format(now)

	recent, err := j.store.Search(journal.Query{
		Start: dateparse.WeekStart(now),
		End:   today,
	})
	if err != nil {
		return ChatResult{}, err
	}
	reply, err := j.app.Analyzer.Chat(ctx, message, recent)
	if err != nil {
		return ChatResult{}, fmt.Errorf("chat: %w", err)
	}

	_, err = j.store.Upsert(today, chatOnlyEntry, func(e *journal.Entry) error {
		e.Content.ChatHistory = append(e.Content.ChatHistory, journal.ChatMessage{
			User:      message,
			Assistant: reply,
			Timestamp: now,
		})
		return nil
	})
	if err != nil {
		return ChatResult{}, fmt.Errorf("record chat: %w", err)
	}
	return ChatResult{Response: reply, Date: today}, nil
}

func chatOnlyEntry() *journal.Entry {
	return &journal.Entry{
		Category: journal.CategoryChat,
		Content:  journal.Content{Tags: []string{"chat"}},
		EmotionAnalysis: journal.Analysis{
			PrimaryEmotion:   "neutral",
			EmotionIntensity: 5,
			EmotionalThemes:  []string{"chat"},
			MoodSummary:      "Chat interaction with journal assistant",
			SuggestedActions: []string{"Consider writing a journal entry for today"},
		},
	}
}
