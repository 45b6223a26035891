package bujo

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/marcus/bujo/internal/analyzer"
	"github.com/marcus/bujo/internal/chart"
	"github.com/marcus/bujo/internal/dateparse"
	"github.com/marcus/bujo/internal/journal"
)

// insightsDays is the default range for Insights and charts.
const insightsDays = 30

// EntriesByDate returns the entry for date as a one-element slice, or an
// empty slice when there is none.
func (j *Journal) EntriesByDate(date string) ([]*journal.Entry, error) {
	date, err := j.resolveDate(date)
	if err != nil {
		return nil, err
	}
	e, err := j.store.Get(date)
	if errors.Is(err, journal.ErrNotFound) {
		return []*journal.Entry{}, nil
	}
	if err != nil {
		return nil, err
	}
	return []*journal.Entry{e}, nil
}

// Search returns entries matching q.
func (j *Journal) Search(q journal.Query) ([]*journal.Entry, error) {
	if (q.Start != "" && !dateparse.Valid(q.Start)) || (q.End != "" && !dateparse.Valid(q.End)) {
		return nil, ErrInvalidDate
	}
	entries, err := j.store.Search(q)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*journal.Entry{}
	}
	return entries, nil
}

// WeeklySummary is a summary over a seven-day window.
type WeeklySummary struct {
	analyzer.Summary
	Start        string `json:"start_date"`
	End          string `json:"end_date"`
	EntriesCount int    `json:"entries_count"`
}

// WeeklySummary summarizes the seven days starting at start. An empty or
// unparseable start means six days ago.
func (j *Journal) WeeklySummary(ctx context.Context, start string) (WeeklySummary, error) {
	if !dateparse.Valid(start) {
		if start != "" {
			j.logger.Debug("weekly summary start not a date, using last seven days", "start", start)
		}
		start = dateparse.WeekStart(j.app.now())
	}
	end, err := dateparse.AddDays(start, 6)
	if err != nil {
		return WeeklySummary{}, ErrInvalidDate
	}
	w := WeeklySummary{Start: start, End: end}

	entries, err := j.store.Search(journal.Query{Start: w.Start, End: w.End})
	if err != nil {
		return WeeklySummary{}, err
	}
	w.EntriesCount = len(entries)
	if len(entries) == 0 {
		w.Summary = analyzer.Summary{Summary: analyzer.NoEntriesSummary, Recommendations: []string{}}
		return w, nil
	}
	if j.app.Analyzer == nil {
		return WeeklySummary{}, ErrNoAnalyzer
	}
	s, err := j.app.Analyzer.WeeklySummary(ctx, entries)
	if err != nil {
		return WeeklySummary{}, fmt.Errorf("weekly summary: %w", err)
	}
	w.Summary = s
	return w, nil
}

// Insights are aggregate statistics over a range of entries.
type Insights struct {
	Start         string            `json:"start_date"`
	End           string            `json:"end_date"`
	EntriesCount  int               `json:"entries_count"`
	EmotionCounts map[string]int    `json:"emotion_counts"`
	Predominant   string            `json:"predominant_emotion"`
	AverageScore  float64           `json:"average_mood_score"`
	Themes        []string          `json:"common_themes"`
	TopWords      []chart.WordCount `json:"top_words"`
}

// Insights computes statistics for [start, end]. Empty bounds default to the
// last thirty days.
func (j *Journal) Insights(_ context.Context, start, end string) (Insights, error) {
	entries, start, end, err := j.rangeEntries(start, end)
	if err != nil {
		return Insights{}, err
	}
	in := Insights{
		Start:         start,
		End:           end,
		EntriesCount:  len(entries),
		EmotionCounts: analyzer.EmotionCounts(entries),
		Themes:        analyzer.CommonThemes(entries, 5),
		TopWords:      chart.TopWords(entries, 20),
	}
	in.Predominant = analyzer.Predominant(in.EmotionCounts)
	var total float64
	var scored int
	for _, e := range entries {
		if e.EmotionAnalysis.PrimaryEmotion == "" {
			continue
		}
		total += analyzer.EmotionScore(e.EmotionAnalysis.PrimaryEmotion)
		scored++
	}
	if scored > 0 {
		in.AverageScore = total / float64(scored)
	}
	return in, nil
}

// TrendChart writes the mood trend for [start, end] as a PNG.
func (j *Journal) TrendChart(w io.Writer, start, end string) error {
	entries, _, _, err := j.rangeEntries(start, end)
	if err != nil {
		return err
	}
	return chart.EmotionTrend(w, entries)
}

// DistributionChart writes emotion counts for [start, end] as a PNG.
func (j *Journal) DistributionChart(w io.Writer, start, end string) error {
	entries, _, _, err := j.rangeEntries(start, end)
	if err != nil {
		return err
	}
	return chart.EmotionDistribution(w, entries)
}

func (j *Journal) rangeEntries(start, end string) ([]*journal.Entry, string, string, error) {
	now := j.app.now()
	if end == "" {
		end = dateparse.Format(now)
	}
	if start == "" {
		start = dateparse.Format(now.AddDate(0, 0, -(insightsDays - 1)))
	}
	if !dateparse.Valid(start) || !dateparse.Valid(end) {
		return nil, "", "", ErrInvalidDate
	}
	entries, err := j.store.Search(journal.Query{Start: start, End: end})
	if err != nil {
		return nil, "", "", err
	}
	return entries, start, end, nil
}
