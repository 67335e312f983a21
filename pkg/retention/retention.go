// Package retention decides which snapshots fall outside the retention
// window.
//
// Callers list snapshots newest first (see Newer) and hand the ordered slice
// to SelectForEviction. The package does no I/O.
package retention

import (
	"strings"
	"time"
)

// DefaultLimit is the number of snapshots kept when a type does not say
// otherwise.
const DefaultLimit = 2

// SelectForEviction returns the elements of ordered at position limit and
// beyond. ordered must be sorted newest first. A negative limit is treated
// as zero.
func SelectForEviction[T any](ordered []T, limit int) []T {
	if limit < 0 {
		limit = 0
	}
	if len(ordered) <= limit {
		return nil
	}
	out := make([]T, len(ordered)-limit)
	copy(out, ordered[limit:])
	return out
}

// Newer reports whether (aTime, aID) sorts before (bTime, bID) in the
// newest-first order: creation time descending, then id descending. IDs are
// expected to be monotonic (ULIDs), which breaks ties between snapshots
// committed within the store's timestamp resolution.
func Newer(aTime time.Time, aID string, bTime time.Time, bID string) bool {
	if !aTime.Equal(bTime) {
		return aTime.After(bTime)
	}
	return strings.Compare(aID, bID) > 0
}

// Plan is the outcome of applying a limit to an ordered list.
type Plan[T any] struct {
	Keep  []T
	Evict []T
}

// PlanFor splits ordered into the kept head and the evicted tail.
func PlanFor[T any](ordered []T, limit int) Plan[T] {
	evict := SelectForEviction(ordered, limit)
	keep := ordered[:len(ordered)-len(evict)]
	return Plan[T]{Keep: keep, Evict: evict}
}
