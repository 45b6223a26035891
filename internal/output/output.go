// Package output provides styled terminal output helpers (success, error,
// warning, entry formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/marcus/bujo/internal/analyzer"
	"github.com/marcus/bujo/internal/journal"
)

var (
	// Styles
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	tagStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))

	// Mood bands by emotion score, low to high.
	lowStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	uneasyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	neutralStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	goodStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
	brightStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// Success prints a success message
func Success(format string, args ...any) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...any) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...any) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}

// JSON outputs data as JSON
func JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// Error codes for structured JSON output
const (
	ErrCodeNotFound     = "not_found"
	ErrCodeInvalidInput = "invalid_input"
	ErrCodeNoData       = "no_data"
	ErrCodeInternal     = "internal"
)

// JSONError outputs an error as JSON
func JSONError(code, message string) {
	data, _ := json.Marshal(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
	fmt.Println(string(data))
}

// moodStyle picks the band for emotion's score.
func moodStyle(emotion string) lipgloss.Style {
	switch s := analyzer.EmotionScore(emotion); {
	case s < 2:
		return lowStyle
	case s < 3:
		return uneasyStyle
	case s == 3:
		return neutralStyle
	case s < 4:
		return goodStyle
	default:
		return brightStyle
	}
}

// FormatEmotion formats an emotion and optional intensity with its mood color.
func FormatEmotion(emotion string, intensity int) string {
	if emotion == "" {
		return subtleStyle.Render("[unanalyzed]")
	}
	label := emotion
	if intensity > 0 {
		label = fmt.Sprintf("%s %d/10", emotion, intensity)
	}
	return moodStyle(emotion).Render("[" + label + "]")
}

// FormatTags formats tags as "#a #b".
func FormatTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = "#" + t
	}
	return tagStyle.Render(strings.Join(parts, " "))
}

// Preview returns the first line of text cut to width terminal cells.
func Preview(text string, width int) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	if width > 1 {
		return ansi.Truncate(line, width, "…")
	}
	return line
}

// FormatEntryShort formats an entry as a single list line.
func FormatEntryShort(e *journal.Entry) string {
	parts := []string{
		titleStyle.Render(e.Date),
		FormatEmotion(e.EmotionAnalysis.PrimaryEmotion, e.EmotionAnalysis.EmotionIntensity),
	}
	if p := Preview(e.Content.Text, 60); p != "" {
		parts = append(parts, p)
	}
	if tags := FormatTags(e.Content.Tags); tags != "" {
		parts = append(parts, tags)
	}
	parts = append(parts, subtleStyle.Render(fmt.Sprintf("%dw", e.Metadata.WordCount)))
	return strings.Join(parts, "  ")
}

// FormatTimeAgo formats a time as a human-readable "ago" string
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

// SectionHeader returns a formatted section header for CLI output
// e.g., "\nTHEMES:\n"
func SectionHeader(title string) string {
	return fmt.Sprintf("\n%s:\n", strings.ToUpper(title))
}

// BulletList formats items as a bulleted list with optional indentation
func BulletList(items []string, indent int) []string {
	prefix := strings.Repeat(" ", indent)
	result := make([]string, len(items))
	for i, item := range items {
		result[i] = prefix + "- " + item
	}
	return result
}

// Bar renders value in [0, total] as a bar of at most width cells.
func Bar(value, total float64, width int) string {
	if total <= 0 || width <= 0 || value <= 0 {
		return ""
	}
	n := int(value / total * float64(width))
	n = min(width, max(1, n))
	return strings.Repeat("█", n)
}
