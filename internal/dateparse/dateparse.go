// Package dateparse turns relative and absolute journal date input into
// canonical YYYY-MM-DD strings. Journals look backward, so weekday names and
// bare offsets resolve into the past.
package dateparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layout is the canonical journal date layout.
const Layout = "2006-01-02"

// ParseDate parses a date input string and returns an ISO 8601 date (YYYY-MM-DD).
// Uses the current time as the reference point.
//
// Supported formats:
//   - Exact dates: "2026-03-01"
//   - Keywords: "today", "yesterday", "tomorrow", "last-week"
//   - Relative days: "-3d", "+1d"
//   - Relative weeks: "-2w"
//   - Relative months: "-1m"
//   - Day names: "monday", "tuesday", etc. (most recent occurrence)
func ParseDate(input string) (string, error) {
	return ParseDateFrom(input, time.Now())
}

// ParseDateFrom parses a date input string relative to the given reference time.
func ParseDateFrom(input string, now time.Time) (string, error) {
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" {
		return "", fmt.Errorf("empty date input")
	}

	if t, err := time.Parse(Layout, input); err == nil {
		return t.Format(Layout), nil
	}

	switch input {
	case "today":
		return Format(now), nil
	case "yesterday":
		return Format(now.AddDate(0, 0, -1)), nil
	case "tomorrow":
		return Format(now.AddDate(0, 0, 1)), nil
	case "last-week":
		// Monday of the previous week
		sinceMonday := (int(now.Weekday()) - int(time.Monday) + 7) % 7
		return Format(now.AddDate(0, 0, -sinceMonday-7)), nil
	}

	if (strings.HasPrefix(input, "+") || strings.HasPrefix(input, "-")) && len(input) >= 3 {
		sign := 1
		if input[0] == '-' {
			sign = -1
		}
		suffix := input[len(input)-1]
		n, err := strconv.Atoi(input[1 : len(input)-1])
		if err == nil && n >= 0 {
			n *= sign
			switch suffix {
			case 'd':
				return Format(now.AddDate(0, 0, n)), nil
			case 'w':
				return Format(now.AddDate(0, 0, n*7)), nil
			case 'm':
				return Format(now.AddDate(0, n, 0)), nil
			default:
				return "", fmt.Errorf("unknown relative unit %q in %q (use d, w, or m)", string(suffix), input)
			}
		}
	}

	dayMap := map[string]time.Weekday{
		"sunday":    time.Sunday,
		"monday":    time.Monday,
		"tuesday":   time.Tuesday,
		"wednesday": time.Wednesday,
		"thursday":  time.Thursday,
		"friday":    time.Friday,
		"saturday":  time.Saturday,
	}
	if target, ok := dayMap[input]; ok {
		daysBack := (int(now.Weekday()) - int(target) + 7) % 7
		return Format(now.AddDate(0, 0, -daysBack)), nil
	}

	return "", fmt.Errorf("unrecognized date format: %q", input)
}

// Valid reports whether s is a canonical YYYY-MM-DD date.
func Valid(s string) bool {
	_, err := time.Parse(Layout, s)
	return err == nil
}

// Parse parses a canonical date into midnight of that day in loc.
func Parse(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(Layout, s, loc)
}

// WeekStart returns the first day of the seven-day window ending on now.
func WeekStart(now time.Time) string {
	return Format(now.AddDate(0, 0, -6))
}

// AddDays shifts a canonical date by n days.
func AddDays(date string, n int) (string, error) {
	t, err := time.Parse(Layout, date)
	if err != nil {
		return "", err
	}
	return Format(t.AddDate(0, 0, n)), nil
}

// Format renders t in the canonical layout.
func Format(t time.Time) string {
	return t.Format(Layout)
}
