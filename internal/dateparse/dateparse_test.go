package dateparse

import (
	"testing"
	"time"
)

// Fixed reference time: Wednesday, 2026-02-18 12:00:00 UTC
var testNow = time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC)

func runCases(t *testing.T, tests []struct {
	input string
	want  string
}) {
	t.Helper()
	for _, tt := range tests {
		got, err := ParseDateFrom(tt.input, testNow)
		if err != nil {
			t.Errorf("ParseDateFrom(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDateFrom(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseDate_ExactDate(t *testing.T) {
	runCases(t, []struct {
		input string
		want  string
	}{
		{"2026-03-01", "2026-03-01"},
		{"2025-12-31", "2025-12-31"},
		{"2026-01-01", "2026-01-01"},
	})
}

func TestParseDate_Keywords(t *testing.T) {
	runCases(t, []struct {
		input string
		want  string
	}{
		{"today", "2026-02-18"},
		{"yesterday", "2026-02-17"},
		{"tomorrow", "2026-02-19"},
		{"last-week", "2026-02-09"}, // Monday of the previous week
		{"  Yesterday ", "2026-02-17"},
	})
}

func TestParseDate_RelativeOffsets(t *testing.T) {
	runCases(t, []struct {
		input string
		want  string
	}{
		{"-0d", "2026-02-18"},
		{"-1d", "2026-02-17"},
		{"-18d", "2026-01-31"},
		{"+1d", "2026-02-19"},
		{"-1w", "2026-02-11"},
		{"-2w", "2026-02-04"},
		{"-1m", "2026-01-18"},
		{"+1m", "2026-03-18"},
	})
}

func TestParseDate_DayNamesLookBackward(t *testing.T) {
	// testNow is Wednesday 2026-02-18
	runCases(t, []struct {
		input string
		want  string
	}{
		{"wednesday", "2026-02-18"}, // today
		{"tuesday", "2026-02-17"},
		{"monday", "2026-02-16"},
		{"sunday", "2026-02-15"},
		{"saturday", "2026-02-14"},
		{"friday", "2026-02-13"},
		{"thursday", "2026-02-12"},
		{"FRIDAY", "2026-02-13"},
	})
}

func TestParseDate_LastWeekOnMonday(t *testing.T) {
	monday := time.Date(2026, 2, 16, 9, 0, 0, 0, time.UTC)
	got, err := ParseDateFrom("last-week", monday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "2026-02-09" {
		t.Errorf("last-week on Monday = %q, want %q", got, "2026-02-09")
	}
}

func TestParseDate_Errors(t *testing.T) {
	invalids := []string{
		"",
		"next year",
		"-3x",
		"notaday",
		"2026/03/01",
		"-d",
		"+w",
		"2026-02-30",
	}
	for _, input := range invalids {
		_, err := ParseDateFrom(input, testNow)
		if err == nil {
			t.Errorf("ParseDateFrom(%q): expected error, got nil", input)
		}
	}
}

func TestParseDate_UsesCurrentTime(t *testing.T) {
	result, err := ParseDate("today")
	if err != nil {
		t.Fatalf("ParseDate('today'): unexpected error: %v", err)
	}
	expected := time.Now().Format(Layout)
	if result != expected {
		t.Errorf("ParseDate('today') = %q, want %q", result, expected)
	}
}

func TestWeekStartAndAddDays(t *testing.T) {
	if got := WeekStart(testNow); got != "2026-02-12" {
		t.Errorf("WeekStart = %q, want 2026-02-12", got)
	}
	got, err := AddDays("2026-02-12", 6)
	if err != nil {
		t.Fatalf("AddDays: %v", err)
	}
	if got != "2026-02-18" {
		t.Errorf("AddDays = %q, want 2026-02-18", got)
	}
	if _, err := AddDays("bogus", 1); err == nil {
		t.Error("expected error for bogus date")
	}
}

func TestValid(t *testing.T) {
	if !Valid("2026-02-18") {
		t.Error("expected valid")
	}
	for _, s := range []string{"", "2026-2-18", "18-02-2026", "today"} {
		if Valid(s) {
			t.Errorf("Valid(%q) = true, want false", s)
		}
	}
}
