package timeutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical calendar-date format used across the API.
const DateLayout = "2006-01-02"

var (
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	clockPattern = regexp.MustCompile(`^\d{1,2}:\d{2}$`)
)

var weekdayNames = []string{"日", "月", "火", "水", "木", "金", "土"}

// ParseDate parses a strict YYYY-MM-DD calendar date.
func ParseDate(raw string) (time.Time, error) {
	if !datePattern.MatchString(raw) {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return t, nil
}

// NormalizeDate coerces loosely formatted date values into YYYY-MM-DD.
// It accepts canonical dates, ISO instants and values carrying a leading
// apostrophe from spreadsheet imports. Unusable values yield "".
func NormalizeDate(raw string) string {
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "'")
	if trimmed == "" {
		return ""
	}
	if datePattern.MatchString(trimmed) {
		return trimmed
	}
	if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
		if t.Year() <= 1900 {
			return ""
		}
		return t.Format(DateLayout)
	}
	if len(trimmed) > len(DateLayout) && datePattern.MatchString(trimmed[:len(DateLayout)]) {
		return trimmed[:len(DateLayout)]
	}
	return ""
}

// FormatDate renders a time as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// MondayOf returns the Monday of the week containing the given date.
func MondayOf(date time.Time) time.Time {
	offset := 1 - int(date.Weekday())
	if date.Weekday() == time.Sunday {
		offset = -6
	}
	return date.AddDate(0, 0, offset)
}

// WeekdayName returns the Japanese single-character weekday label.
func WeekdayName(date time.Time) string {
	return weekdayNames[int(date.Weekday())]
}

// ParseClock converts "H:MM" or "HH:MM" into minutes since midnight.
func ParseClock(raw string) (int, error) {
	if !clockPattern.MatchString(raw) {
		return 0, fmt.Errorf("invalid time %q", raw)
	}
	parts := strings.SplitN(raw, ":", 2)
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", raw, err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", raw, err)
	}
	if hours > 23 || minutes > 59 {
		return 0, fmt.Errorf("invalid time %q", raw)
	}
	return hours*60 + minutes, nil
}

// FormatClock renders minutes since midnight as HH:MM.
func FormatClock(minutes int) string {
	minutes = ((minutes % 1440) + 1440) % 1440
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// MinutesBetween computes worked minutes between an in and an out time.
// Spans crossing midnight are shifted forward by one day.
func MinutesBetween(inMinutes, outMinutes int) int {
	diff := outMinutes - inMinutes
	if diff < 0 {
		diff += 1440
	}
	return diff
}
