package engine

import (
	"iter"
	"slices"
	"time"
)

// ActiveAt yields the prizes whose window contains now, both bounds inclusive, ordered by
// StartAt ascending. Ranging over the sequence again re-evaluates it against the same inputs.
func ActiveAt(prizes []Prize, now time.Time) iter.Seq[Prize] {
	return func(yield func(Prize) bool) {
		active := make([]Prize, 0, len(prizes))
		for _, p := range prizes {
			if IsActive(p, now) {
				active = append(active, p)
			}
		}
		slices.SortStableFunc(active, func(a, b Prize) int {
			return a.StartAt.Compare(b.StartAt)
		})
		for _, p := range active {
			if !yield(p) {
				return
			}
		}
	}
}

// IsActive reports whether start_at <= now <= end_at.
func IsActive(p Prize, now time.Time) bool {
	return !now.Before(p.StartAt) && !now.After(p.EndAt)
}
