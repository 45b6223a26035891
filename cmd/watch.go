package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcus/bujo/internal/bujo"
	"github.com/marcus/bujo/internal/inbox"
	"github.com/marcus/bujo/internal/output"
)

var watchCmd = &cobra.Command{
	Use:   "watch <inbox-dir>",
	Short: "Turn voice memos dropped in a folder into entries",
	Long: `Watch a folder for audio files. Each finished recording is copied into the
journal's uploads, transcribed, and saved; the original moves to processed/ or
failed/ under the folder.

Examples:
  bujo watch ~/VoiceMemos
  bujo watch --scan ~/VoiceMemos    # also handle files already there`,
	GroupID: "capture",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scan, _ := cmd.Flags().GetBool("scan")
		debounce, _ := cmd.Flags().GetDuration("debounce")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		j, err := openJournal(ctx, cmd)
		if err != nil {
			return fail(cmd, err)
		}

		w := inbox.New(args[0], voiceMemoHandler(j), inbox.WithDebounce(debounce), inbox.WithLogger(logger))
		if scan {
			if err := w.ScanExisting(ctx); err != nil {
				return fail(cmd, err)
			}
		}
		if err := w.Start(ctx); err != nil {
			return fail(cmd, err)
		}
		output.Info("Watching %s (Ctrl-C to stop)", args[0])

		<-ctx.Done()
		w.Stop()

		st := w.Stats()
		output.Info("Processed %d of %d voice memos (%d failed)", st.Processed, st.Seen, st.Failed)
		return nil
	},
}

// voiceMemoHandler saves each memo as a voice entry for today. The recording
// is copied into uploads first because the inbox archives the original.
func voiceMemoHandler(j *bujo.Journal) inbox.Handler {
	return func(ctx context.Context, path string) error {
		dst, err := copyToUploads(j.Dirs().Uploads, path, time.Now())
		if err != nil {
			return err
		}
		res, err := j.SaveAudio(ctx, dst, "")
		if err != nil {
			os.Remove(dst)
			return err
		}
		output.Success("Saved voice memo %s to %s", filepath.Base(path), res.Date)
		return nil
	}
}

func copyToUploads(dir, src string, now time.Time) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open memo: %w", err)
	}
	defer in.Close()

	dst := filepath.Join(dir, now.Format("20060102_150405")+"_"+filepath.Base(src))
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return "", fmt.Errorf("copy memo: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("close upload: %w", err)
	}
	return dst, nil
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Bool("scan", false, "process audio files already in the folder")
	watchCmd.Flags().Duration("debounce", 500*time.Millisecond, "quiet time before a file is processed")
}
