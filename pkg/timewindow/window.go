package timewindow

import (
	"fmt"
	"time"
)

// Window is a half-open validity window [Start, End). A nil End means the
// window never closes.
type Window struct {
	Start time.Time
	End   *time.Time
}

// New builds a window from a start and an optional end, both normalized to UTC.
func New(start time.Time, end *time.Time) Window {
	w := Window{Start: start.UTC()}
	if end != nil {
		e := end.UTC()
		w.End = &e
	}
	return w
}

// Validate rejects windows whose end does not come strictly after the start.
// A zero-length window can never contain an instant under half-open semantics.
func (w Window) Validate() error {
	if w.Start.IsZero() {
		return fmt.Errorf("window start is required")
	}
	if w.End != nil && !w.End.After(w.Start) {
		return fmt.Errorf("window end %s must be after start %s", w.End.Format(time.RFC3339), w.Start.Format(time.RFC3339))
	}
	return nil
}

// Contains reports whether the instant falls inside [Start, End).
func (w Window) Contains(at time.Time) bool {
	if at.Before(w.Start) {
		return false
	}
	if w.End == nil {
		return true
	}
	return at.Before(*w.End)
}

// Overlaps reports whether two half-open windows share at least one instant.
// Touching boundaries (a.End == b.Start) do not overlap.
func (w Window) Overlaps(other Window) bool {
	if w.End != nil && !other.Start.Before(*w.End) {
		return false
	}
	if other.End != nil && !w.Start.Before(*other.End) {
		return false
	}
	return true
}

// ContainsWindow reports whether other lies entirely within w.
func (w Window) ContainsWindow(other Window) bool {
	if other.Start.Before(w.Start) {
		return false
	}
	if w.End == nil {
		return true
	}
	if other.End == nil {
		return false
	}
	return !other.End.After(*w.End)
}

// String renders the window for user-facing conflict messages.
func (w Window) String() string {
	if w.End == nil {
		return fmt.Sprintf("[%s, unbounded)", w.Start.Format(time.RFC3339))
	}
	return fmt.Sprintf("[%s, %s)", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}
