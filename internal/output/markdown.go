package output

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/marcus/bujo/internal/journal"
)

const (
	defaultMarkdownWidth = 80
	minMarkdownWidth     = 20
)

// TerminalWidth returns the current terminal width or a fallback when unavailable.
func TerminalWidth(fallback int) int {
	if fallback <= 0 {
		fallback = defaultMarkdownWidth
	}
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if parsed, err := strconv.Atoi(cols); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

// IsTerminal reports whether stdout is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// RenderMarkdown renders markdown using Glamour with terminal-aware wrapping.
func RenderMarkdown(text string) (string, error) {
	return RenderMarkdownWithWidth(text, TerminalWidth(defaultMarkdownWidth))
}

// RenderMarkdownWithWidth renders markdown using Glamour with explicit wrapping.
func RenderMarkdownWithWidth(text string, width int) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	width = max(width, minMarkdownWidth)

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	rendered, err := renderer.Render(text)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(rendered, "\n"), nil
}

// EntryMarkdown formats a full entry as a markdown document.
func EntryMarkdown(e *journal.Entry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", e.Date)

	a := e.EmotionAnalysis
	if a.PrimaryEmotion != "" {
		fmt.Fprintf(&sb, "**Mood:** %s (%d/10)\n\n", a.PrimaryEmotion, a.EmotionIntensity)
	}
	if text := strings.TrimSpace(e.Content.Text); text != "" {
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}
	if len(e.Content.Tags) > 0 {
		fmt.Fprintf(&sb, "_Tags: %s_\n\n", strings.Join(e.Content.Tags, ", "))
	}

	if a.MoodSummary != "" || len(a.EmotionalThemes) > 0 {
		sb.WriteString("## Reflection\n\n")
		if a.MoodSummary != "" {
			sb.WriteString(a.MoodSummary + "\n\n")
		}
		if len(a.EmotionalThemes) > 0 {
			fmt.Fprintf(&sb, "**Themes:** %s\n\n", strings.Join(a.EmotionalThemes, ", "))
		}
		for _, s := range a.SuggestedActions {
			fmt.Fprintf(&sb, "- %s\n", s)
		}
		if len(a.SuggestedActions) > 0 {
			sb.WriteString("\n")
		}
		if a.Affirmation != "" {
			fmt.Fprintf(&sb, "> %s\n\n", a.Affirmation)
		}
	}

	if len(e.Content.Attachments) > 0 {
		sb.WriteString("## Attachments\n\n")
		for _, at := range e.Content.Attachments {
			detail := at.Transcription
			if at.Kind == journal.AttachmentImage {
				detail = at.Description
			}
			fmt.Fprintf(&sb, "- **%s** `%s` %s\n", at.Kind, at.Path, Preview(detail, 80))
		}
		sb.WriteString("\n")
	}

	if len(e.Content.ChatHistory) > 0 {
		sb.WriteString("## Chat\n\n")
		for _, m := range e.Content.ChatHistory {
			fmt.Fprintf(&sb, "**You:** %s\n\n**Assistant:** %s\n\n", m.User, m.Assistant)
		}
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}
