package cmd

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marcus/bujo/internal/analyzer"
	"github.com/marcus/bujo/internal/bujo"
	"github.com/marcus/bujo/internal/journal"
	"github.com/marcus/bujo/internal/output"
	"github.com/marcus/bujo/internal/suggest"
)

var showCmd = &cobra.Command{
	Use:     "show [date]",
	Aliases: []string{"view", "get"},
	Short:   "Display the entry for a day",
	Long: `Display the entry for a day, today by default.

Examples:
  bujo show                # today's entry
  bujo show 2026-02-14     # a specific day
  bujo show monday         # the most recent Monday
  bujo show --raw          # markdown without styling`,
	GroupID: "review",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var date string
		if len(args) > 0 {
			d, err := resolveDate(args[0])
			if err != nil {
				return fail(cmd, err)
			}
			date = d
		}

		j, err := openJournal(cmd.Context(), cmd)
		if err != nil {
			return fail(cmd, err)
		}
		entries, err := j.EntriesByDate(date)
		if err != nil {
			return fail(cmd, err)
		}
		if jsonOutput(cmd) {
			return output.JSON(entries)
		}
		if len(entries) == 0 {
			if date == "" {
				date = "today"
			}
			fmt.Printf("No entry for %s\n", date)
			return nil
		}

		raw, _ := cmd.Flags().GetBool("raw")
		for _, e := range entries {
			md := output.EntryMarkdown(e)
			if raw || !output.IsTerminal() {
				fmt.Print(md)
				continue
			}
			rendered, err := output.RenderMarkdown(md)
			if err != nil {
				logger.Debug("render markdown", "err", err)
				rendered = md
			}
			fmt.Println(rendered)
		}
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:     "search",
	Aliases: []string{"list", "ls"},
	Short:   "List entries by date range, tag, or emotion",
	Long: `List entries between two dates, optionally filtered by tag or primary emotion.
The range defaults to the first of the current month through today.

Examples:
  bujo search --from 2026-01-01 --to 2026-01-31
  bujo search --from last-week
  bujo search --tag audio --tag image
  bujo search --emotion anxious`,
	GroupID: "review",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var err error
		q := journal.Query{}
		if q.Start, err = dateFlag(cmd, "from"); err != nil {
			return fail(cmd, err)
		}
		if q.End, err = dateFlag(cmd, "to"); err != nil {
			return fail(cmd, err)
		}
		q.Tags, _ = cmd.Flags().GetStringSlice("tag")
		q.Emotion, _ = cmd.Flags().GetString("emotion")

		j, err := openJournal(cmd.Context(), cmd)
		if err != nil {
			return fail(cmd, err)
		}
		entries, err := j.Search(q)
		if err != nil {
			return fail(cmd, err)
		}
		if jsonOutput(cmd) {
			return output.JSON(entries)
		}
		if len(entries) == 0 {
			fmt.Println("No matching entries")
			if hint := suggest.Closest(q.Emotion, analyzer.KnownEmotions(), 3); len(hint) > 0 {
				output.Info("Did you mean: %s?", strings.Join(hint, ", "))
			}
			return nil
		}
		for _, e := range entries {
			fmt.Println(output.FormatEntryShort(e))
		}
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:     "summary",
	Aliases: []string{"week"},
	Short:   "Summarize a week of entries",
	Long: `Summarize seven days of entries starting at --start. Without --start the
window is the last seven days, ending today.`,
	GroupID: "review",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		start, _ := cmd.Flags().GetString("start")
		// Unparseable starts fall through so the journal picks its default window.
		if d, err := resolveDate(start); err == nil {
			start = d
		}

		j, err := openJournal(cmd.Context(), cmd)
		if err != nil {
			return fail(cmd, err)
		}
		s, err := j.WeeklySummary(cmd.Context(), start)
		if err != nil {
			return fail(cmd, err)
		}
		if jsonOutput(cmd) {
			return output.JSON(s)
		}
		printSummary(os.Stdout, s)
		return nil
	},
}

func printSummary(w io.Writer, s bujo.WeeklySummary) {
	fmt.Fprintf(w, "Week of %s to %s (%d entries)\n\n", s.Start, s.End, s.EntriesCount)
	fmt.Fprintln(w, s.Summary.Summary)
	if s.EmotionTrend != "" {
		fmt.Fprint(w, output.SectionHeader("emotional trend"))
		fmt.Fprintln(w, s.EmotionTrend)
	}
	if len(s.Recommendations) > 0 {
		fmt.Fprint(w, output.SectionHeader("recommendations"))
		fmt.Fprintln(w, strings.Join(output.BulletList(s.Recommendations, 2), "\n"))
	}
}

var chatCmd = &cobra.Command{
	Use:   "chat <message...>",
	Short: "Talk with your journal assistant",
	Long: `Send a message to the journal assistant. It answers from your last week of
entries and the exchange is kept in today's chat history.`,
	GroupID: "review",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := openJournal(cmd.Context(), cmd)
		if err != nil {
			return fail(cmd, err)
		}
		res, err := j.Chat(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return fail(cmd, err)
		}
		if jsonOutput(cmd) {
			return output.JSON(res)
		}
		fmt.Println(res.Response)
		return nil
	},
}

var insightsCmd = &cobra.Command{
	Use:     "insights",
	Aliases: []string{"stats"},
	Short:   "Show mood statistics and charts",
	Long: `Show emotion counts, mood score, common themes, and frequent words for a
date range. The range defaults to the last thirty days.

Examples:
  bujo insights
  bujo insights --from 2026-01-01 --trend trend.png
  bujo insights --distribution emotions.png`,
	GroupID: "review",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := dateFlag(cmd, "from")
		if err != nil {
			return fail(cmd, err)
		}
		to, err := dateFlag(cmd, "to")
		if err != nil {
			return fail(cmd, err)
		}
		trendPath, _ := cmd.Flags().GetString("trend")
		distPath, _ := cmd.Flags().GetString("distribution")

		j, err := openJournal(cmd.Context(), cmd)
		if err != nil {
			return fail(cmd, err)
		}
		in, err := j.Insights(cmd.Context(), from, to)
		if err != nil {
			return fail(cmd, err)
		}

		if trendPath != "" {
			if err := writeChart(trendPath, func(w io.Writer) error { return j.TrendChart(w, from, to) }); err != nil {
				return fail(cmd, err)
			}
		}
		if distPath != "" {
			if err := writeChart(distPath, func(w io.Writer) error { return j.DistributionChart(w, from, to) }); err != nil {
				return fail(cmd, err)
			}
		}

		if jsonOutput(cmd) {
			return output.JSON(in)
		}
		printInsights(os.Stdout, in)
		for _, p := range []string{trendPath, distPath} {
			if p != "" {
				output.Success("Wrote %s", p)
			}
		}
		return nil
	},
}

func printInsights(w io.Writer, in bujo.Insights) {
	fmt.Fprintf(w, "%s to %s: %d entries\n", in.Start, in.End, in.EntriesCount)
	if in.EntriesCount == 0 {
		return
	}
	if in.Predominant != "" {
		fmt.Fprintf(w, "Predominant emotion: %s\n", output.FormatEmotion(in.Predominant, 0))
	}
	fmt.Fprintf(w, "Average mood score: %.1f / 5\n", in.AverageScore)

	if len(in.EmotionCounts) > 0 {
		fmt.Fprint(w, output.SectionHeader("emotions"))
		names := make([]string, 0, len(in.EmotionCounts))
		most := 0
		for name, n := range in.EmotionCounts {
			names = append(names, name)
			most = max(most, n)
		}
		slices.SortFunc(names, func(a, b string) int {
			if d := in.EmotionCounts[b] - in.EmotionCounts[a]; d != 0 {
				return d
			}
			return strings.Compare(a, b)
		})
		for _, name := range names {
			n := in.EmotionCounts[name]
			fmt.Fprintf(w, "  %-12s %3d  %s\n", name, n, output.Bar(float64(n), float64(most), 30))
		}
	}
	if len(in.Themes) > 0 {
		fmt.Fprint(w, output.SectionHeader("common themes"))
		fmt.Fprintln(w, strings.Join(output.BulletList(in.Themes, 2), "\n"))
	}
	if len(in.TopWords) > 0 {
		fmt.Fprint(w, output.SectionHeader("frequent words"))
		words := make([]string, len(in.TopWords))
		for i, wc := range in.TopWords {
			words[i] = fmt.Sprintf("%s (%d)", wc.Word, wc.Count)
		}
		fmt.Fprintf(w, "  %s\n", strings.Join(words, ", "))
	}
}

// writeChart renders into path, removing the file when rendering fails.
func writeChart(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}
	if err := render(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close chart: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(showCmd, searchCmd, summaryCmd, chatCmd, insightsCmd)

	showCmd.Flags().Bool("raw", false, "print markdown without styling")

	searchCmd.Flags().String("from", "", "start date (YYYY-MM-DD, default first of the month)")
	searchCmd.Flags().String("to", "", "end date (YYYY-MM-DD, default today)")
	searchCmd.Flags().StringSliceP("tag", "t", nil, "filter by tag (repeatable or comma-separated)")
	searchCmd.Flags().StringP("emotion", "e", "", "filter by primary emotion")

	summaryCmd.Flags().StringP("start", "s", "", "first day of the week (YYYY-MM-DD)")

	insightsCmd.Flags().String("from", "", "start date (YYYY-MM-DD, default 30 days ago)")
	insightsCmd.Flags().String("to", "", "end date (YYYY-MM-DD, default today)")
	insightsCmd.Flags().String("trend", "", "write the mood trend chart to this PNG file")
	insightsCmd.Flags().String("distribution", "", "write the emotion distribution chart to this PNG file")
}
