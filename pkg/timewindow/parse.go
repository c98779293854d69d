package timewindow

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Admin forms submit dates in a handful of shapes. The explicit layouts cover
// the documented ones; dateparse handles the long tail of browser and locale
// variants the console has produced historically.
var acceptedLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05.000Z0700",
}

// ParseInstant parses a raw date string from an admin form and normalizes it
// to UTC. Layouts without a zone are interpreted as UTC.
func ParseInstant(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty date value")
	}

	for _, layout := range acceptedLayouts {
		if ts, err := time.ParseInLocation(layout, trimmed, time.UTC); err == nil {
			return ts.UTC(), nil
		}
	}

	ts, err := dateparse.ParseIn(trimmed, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized date %q: %w", trimmed, err)
	}
	return ts.UTC(), nil
}

// ParseWindow parses a required start and an optional end into a validated
// half-open window.
func ParseWindow(start, end string) (Window, error) {
	s, err := ParseInstant(start)
	if err != nil {
		return Window{}, fmt.Errorf("window start: %w", err)
	}

	var e *time.Time
	if strings.TrimSpace(end) != "" {
		parsed, err := ParseInstant(end)
		if err != nil {
			return Window{}, fmt.Errorf("window end: %w", err)
		}
		e = &parsed
	}

	w := New(s, e)
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}
