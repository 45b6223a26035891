// Package chart renders journal visualizations as PNG images.
package chart

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"

	"github.com/marcus/bujo/internal/analyzer"
	"github.com/marcus/bujo/internal/dateparse"
	"github.com/marcus/bujo/internal/journal"
)

// ErrNoData means there is nothing to plot.
var ErrNoData = errors.New("no data to chart")

const (
	width   = 800
	height  = 400
	maxBars = 10
)

// EmotionBars draws positive emotion scores, highest first.
func EmotionBars(w io.Writer, scores map[string]float64) error {
	labels := make([]string, 0, len(scores))
	for k, v := range scores {
		if v > 0 {
			labels = append(labels, k)
		}
	}
	if len(labels) == 0 {
		return ErrNoData
	}
	sort.Slice(labels, func(i, j int) bool {
		if scores[labels[i]] != scores[labels[j]] {
			return scores[labels[i]] > scores[labels[j]]
		}
		return labels[i] < labels[j]
	})

	bars := make([]gochart.Value, len(labels))
	for i, l := range labels {
		bars[i] = gochart.Value{Label: l, Value: scores[l]}
	}
	c := gochart.BarChart{
		Title:      "Detected Emotions",
		Width:      width,
		Height:     height,
		BarWidth:   50,
		BarSpacing: 40,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40},
		},
		YAxis: gochart.YAxis{Range: &gochart.ContinuousRange{Min: 0, Max: 1}},
		Bars:  bars,
	}
	if err := c.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render emotion bars: %w", err)
	}
	return nil
}

// EmotionTrend plots each entry's mood score over time. Entries with an
// invalid date are skipped; at least two dated entries are required.
func EmotionTrend(w io.Writer, entries []*journal.Entry) error {
	type point struct {
		at    time.Time
		score float64
	}
	var pts []point
	for _, e := range entries {
		t, err := dateparse.Parse(e.Date, time.UTC)
		if err != nil {
			continue
		}
		pts = append(pts, point{t, analyzer.EmotionScore(e.EmotionAnalysis.PrimaryEmotion)})
	}
	if len(pts) < 2 {
		return ErrNoData
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].at.Before(pts[j].at) })

	series := gochart.TimeSeries{
		Name:    "Emotional state",
		XValues: make([]time.Time, len(pts)),
		YValues: make([]float64, len(pts)),
		Style: gochart.Style{
			StrokeWidth: 2,
			DotWidth:    4,
		},
	}
	for i, p := range pts {
		series.XValues[i] = p.at
		series.YValues[i] = p.score
	}
	c := gochart.Chart{
		Title:  "Emotional Trend Over Time",
		Width:  width,
		Height: height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40, Left: 20},
		},
		XAxis: gochart.XAxis{
			Name:           "Date",
			ValueFormatter: gochart.TimeValueFormatterWithFormat(dateparse.Layout),
		},
		YAxis: gochart.YAxis{
			Name:  "Emotional State (1-5)",
			Range: &gochart.ContinuousRange{Min: 1, Max: 5},
			Ticks: []gochart.Tick{
				{Value: 1, Label: "Negative"},
				{Value: 2, Label: ""},
				{Value: 3, Label: "Neutral"},
				{Value: 4, Label: ""},
				{Value: 5, Label: "Positive"},
			},
		},
		Series: []gochart.Series{series},
	}
	if err := c.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render emotion trend: %w", err)
	}
	return nil
}

// EmotionDistribution draws how often each primary emotion occurs.
func EmotionDistribution(w io.Writer, entries []*journal.Entry) error {
	counts := analyzer.EmotionCounts(entries)
	if len(counts) == 0 {
		return ErrNoData
	}
	labels := make([]string, 0, len(counts))
	maxCount := 0
	for k, n := range counts {
		labels = append(labels, k)
		maxCount = max(maxCount, n)
	}
	sort.Slice(labels, func(i, j int) bool {
		if counts[labels[i]] != counts[labels[j]] {
			return counts[labels[i]] > counts[labels[j]]
		}
		return labels[i] < labels[j]
	})

	if len(labels) > maxBars {
		labels = labels[:maxBars]
	}
	bars := make([]gochart.Value, len(labels))
	for i, l := range labels {
		bars[i] = gochart.Value{Label: l, Value: float64(counts[l])}
	}
	c := gochart.BarChart{
		Title:      "Distribution of Emotions in Journal Entries",
		Width:      width,
		Height:     height,
		BarWidth:   40,
		BarSpacing: 20,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 40},
		},
		YAxis: gochart.YAxis{Range: &gochart.ContinuousRange{Min: 0, Max: float64(maxCount) + 1}},
		Bars:  bars,
	}
	if err := c.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render emotion distribution: %w", err)
	}
	return nil
}

// WordCount is a word and how many times it appears.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

var stopwords = map[string]bool{}

func init() {
	for _, w := range strings.Fields(`about above after again against because been before being below
		between both could didn doesn doing down during each from further have having here hers
		herself himself into itself just more most myself once only other ours ourselves over own
		same should some such than that their theirs them themselves then there these they this
		those through under until very were what when where which while whom will with would your
		yours yourself yourselves also really today felt feel like went much still even`) {
		stopwords[w] = true
	}
}

// TopWords counts words across entry text, skipping stopwords and words of
// three or fewer letters. Ties sort alphabetically.
func TopWords(entries []*journal.Entry, n int) []WordCount {
	counts := map[string]int{}
	for _, e := range entries {
		words := strings.FieldsFunc(strings.ToLower(e.Content.Text), func(r rune) bool {
			return !(r >= 'a' && r <= 'z') && r != '\''
		})
		for _, w := range words {
			w = strings.Trim(w, "'")
			if len(w) <= 3 || stopwords[w] {
				continue
			}
			counts[w]++
		}
	}
	out := make([]WordCount, 0, len(counts))
	for w, c := range counts {
		out = append(out, WordCount{w, c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
