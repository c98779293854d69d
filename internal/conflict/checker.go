package conflict

import (
	"fmt"

	"github.com/google/btree"
	"github.com/google/uuid"

	"github.com/velmora/retail-admin-backend/pkg/enums"
	"github.com/velmora/retail-admin-backend/pkg/timewindow"
)

// Interval is one registered validity window under a conflict-check key.
// Label carries the owning record's display name for user-facing messages.
type Interval struct {
	ID     uuid.UUID
	Label  string
	Window timewindow.Window
}

func lessInterval(a, b Interval) bool {
	if !a.Window.Start.Equal(b.Window.Start) {
		return a.Window.Start.Before(b.Window.Start)
	}
	return a.ID.String() < b.ID.String()
}

// Index holds the active intervals registered under one key, ordered by start.
// The invariant maintained by insert-time checks keeps the intervals pairwise
// disjoint, which makes the conflict probe O(log n + k).
type Index struct {
	tree *btree.BTreeG[Interval]
}

// NewIndex returns an empty interval index.
func NewIndex() *Index {
	return &Index{tree: btree.NewG(8, lessInterval)}
}

// Add registers an interval. Callers must only add intervals that passed
// Conflicting, otherwise later probes may miss overlaps.
func (ix *Index) Add(iv Interval) {
	ix.tree.ReplaceOrInsert(iv)
}

// Len returns the number of registered intervals.
func (ix *Index) Len() int {
	return ix.tree.Len()
}

// Conflicting returns the first registered interval overlapping the candidate
// window, walking backwards from the last interval that starts before the
// candidate ends.
func (ix *Index) Conflicting(w timewindow.Window) (Interval, bool) {
	var (
		hit   Interval
		found bool
	)

	probe := func(item Interval) bool {
		if w.End != nil && !item.Window.Start.Before(*w.End) {
			return true // starts at/after the candidate closes; keep walking down
		}
		if item.Window.Overlaps(w) {
			hit = item
			found = true
			return false
		}
		// Past the candidate start with no overlap; disjointness rules out
		// any earlier interval reaching back over it.
		return item.Window.Start.After(w.Start)
	}

	ix.tree.Descend(probe)
	return hit, found
}

// PriceKey is the serialization/conflict key for unit price mutations.
func PriceKey(productUnitID uuid.UUID) string {
	return fmt.Sprintf("price:%s", productUnitID)
}

// TargetKey is the serialization/conflict key for promotion line mutations.
func TargetKey(targetType enums.PromotionTarget, targetID uuid.UUID) string {
	return fmt.Sprintf("promo:%s:%s", targetType, targetID)
}
