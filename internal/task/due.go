package task

import (
	"strings"
	"time"
)

// DueLayout is the ISO-8601 local instant format used for storage and display.
const DueLayout = "2006-01-02T15:04:05"

// dueLayouts are accepted on input, most specific first.
var dueLayouts = []string{
	DueLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDue parses a due instant. Zone-less values are read in local time.
// An empty string yields the zero time (no due date).
func ParseDue(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(time.Local), nil
	}
	for _, layout := range dueLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, Validation("parse due", "invalid due date %q", s)
}

// JoinDue combines a date (YYYY-MM-DD, required) with an optional clock time
// (HH:MM or HH:MM:SS) into one instant. A missing time means midnight.
func JoinDue(date, clock string) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" {
		return time.Time{}, Validation("join due", "due date is required")
	}
	if clock == "" {
		return ParseDue(date)
	}
	if strings.Count(clock, ":") == 1 {
		clock += ":00"
	}
	return ParseDue(date + "T" + clock)
}

// FormatDue renders t in DueLayout, or "" for the zero time.
func FormatDue(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(time.Local).Format(DueLayout)
}
