package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/marcus/bujo/internal/bujo"
	"github.com/marcus/bujo/internal/input"
	"github.com/marcus/bujo/internal/output"
)

// promptEntry asks for entry text and date, or reads text from in when stdin
// is not a terminal.
var promptEntry = func(cmd *cobra.Command, date string) (string, string, error) {
	if !output.IsTerminal() {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", fmt.Errorf("read entry: %w", err)
		}
		return string(data), date, nil
	}

	var text string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Journal entry").
				Description("How was your day?").
				Value(&text).
				Lines(8).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return bujo.ErrEmptyText
					}
					return nil
				}),
			huh.NewInput().
				Title("Date").
				Placeholder("YYYY-MM-DD, yesterday, monday; empty for today").
				Value(&date).
				Validate(func(s string) error {
					_, err := resolveDate(s)
					return err
				}),
		).Title("New Entry"),
	)
	if err := form.Run(); err != nil {
		return "", "", err
	}
	return text, date, nil
}

var writeCmd = &cobra.Command{
	Use:     "write [text...]",
	Aliases: []string{"w", "add"},
	Short:   "Write a text entry",
	Long: `Write a text entry. The text is analyzed and merged into the entry for the day.

Without text, an editor form opens (or stdin is read when piped). A lone "-"
reads the entry from stdin and "@file" reads it from a file.

Examples:
  bujo write "Long walk by the river, feeling lighter"
  bujo write --date 2026-02-14 "Valentine's dinner with friends"
  echo "Quiet day" | bujo write
  bujo write @draft.txt`,
	GroupID: "capture",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, _ := cmd.Flags().GetString("date")
		text, err := input.ExpandText(args, cmd.InOrStdin())
		if err != nil {
			return fail(cmd, err)
		}
		if strings.TrimSpace(text) == "" && len(args) == 0 {
			text, date, err = promptEntry(cmd, date)
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			if err != nil {
				return fail(cmd, err)
			}
		}
		if date, err = resolveDate(date); err != nil {
			return fail(cmd, err)
		}

		j, err := openJournal(cmd.Context(), cmd)
		if err != nil {
			return fail(cmd, err)
		}
		res, err := j.SaveText(cmd.Context(), text, date)
		if err != nil {
			return fail(cmd, err)
		}
		if jsonOutput(cmd) {
			return output.JSON(res)
		}
		output.Success("Saved entry for %s", res.Date)
		printMood(j, res.Date)
		return nil
	},
}

var voiceCmd = &cobra.Command{
	Use:     "voice <audio-file>",
	Aliases: []string{"audio"},
	Short:   "Transcribe a voice memo into an entry",
	Long: `Transcribe a recording and save the text as an entry. Nothing is saved when
the recording cannot be understood.

Supported formats: wav, mp3, ogg, flac, m4a, webm.`,
	GroupID: "capture",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := dateFlag(cmd, "date")
		if err != nil {
			return fail(cmd, err)
		}

		j, err := openJournal(cmd.Context(), cmd)
		if err != nil {
			return fail(cmd, err)
		}
		var res bujo.AudioResult
		err = output.Spin(cmd.Context(), "Transcribing "+filepath.Base(args[0]), func(ctx context.Context) error {
			r, err := j.SaveAudio(ctx, args[0], date)
			res = r
			return err
		})
		if err != nil {
			return fail(cmd, err)
		}
		if jsonOutput(cmd) {
			return output.JSON(res)
		}
		output.Success("Saved voice entry for %s", res.Date)
		fmt.Printf("\n%s\n", res.Transcription)
		printMood(j, res.Date)
		return nil
	},
}

var photoCmd = &cobra.Command{
	Use:     "photo <image-file>",
	Aliases: []string{"image"},
	Short:   "Read the mood of a photo into an entry",
	GroupID: "capture",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := dateFlag(cmd, "date")
		if err != nil {
			return fail(cmd, err)
		}
		notes, _ := cmd.Flags().GetString("notes")

		j, err := openJournal(cmd.Context(), cmd)
		if err != nil {
			return fail(cmd, err)
		}
		var res bujo.ImageResult
		err = output.Spin(cmd.Context(), "Reading "+filepath.Base(args[0]), func(ctx context.Context) error {
			r, err := j.SaveImage(ctx, args[0], notes, date)
			res = r
			return err
		})
		if err != nil {
			return fail(cmd, err)
		}
		if jsonOutput(cmd) {
			return output.JSON(res)
		}

		output.Success("Saved photo entry for %s", res.Date)
		if res.Description != "" {
			fmt.Printf("\n%s\n", res.Description)
		}
		if res.Emotions.Dominant != "" {
			fmt.Print(output.SectionHeader("emotions"))
			for _, name := range res.Emotions.Top(len(res.Emotions.Average)) {
				score := res.Emotions.Average[name]
				fmt.Printf("  %-10s %5.1f%%  %s\n", name, score*100, output.Bar(score, 1, 30))
			}
		}
		if res.Emotions.Simulated {
			output.Warning("no faces detected, emotions are estimated")
		}
		if res.Visualization != "" {
			fmt.Printf("\nChart: %s\n", res.Visualization)
		}
		return nil
	},
}

// printMood prints the stored analysis for date, if any.
func printMood(j *bujo.Journal, date string) {
	e, err := j.Store().Get(date)
	if err != nil || e.EmotionAnalysis.IsZero() {
		return
	}
	a := e.EmotionAnalysis
	fmt.Printf("Mood: %s\n", output.FormatEmotion(a.PrimaryEmotion, a.EmotionIntensity))
	if len(a.EmotionalThemes) > 0 {
		fmt.Printf("Themes: %s\n", strings.Join(a.EmotionalThemes, ", "))
	}
	if len(a.SuggestedActions) > 0 {
		fmt.Print(output.SectionHeader("suggestions"))
		fmt.Println(strings.Join(output.BulletList(a.SuggestedActions, 2), "\n"))
	}
	if a.Affirmation != "" {
		fmt.Printf("\n%s\n", a.Affirmation)
	}
}

func init() {
	rootCmd.AddCommand(writeCmd, voiceCmd, photoCmd)

	writeCmd.Flags().StringP("date", "d", "", "entry date (YYYY-MM-DD, yesterday, -2d, monday; default today)")
	voiceCmd.Flags().StringP("date", "d", "", "entry date (YYYY-MM-DD, yesterday, -2d, monday; default today)")
	photoCmd.Flags().StringP("date", "d", "", "entry date (YYYY-MM-DD, yesterday, -2d, monday; default today)")
	photoCmd.Flags().StringP("notes", "n", "", "notes to save with the photo")
}
