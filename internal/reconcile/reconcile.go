// Package reconcile computes which archive records are missing from the
// live store.
//
// Membership is decided by identity key in a hashed set; sorting only
// fixes the output order. Diff runs in O(n log n).
package reconcile

import (
	"slices"

	"github.com/roach88/recsync/internal/record"
)

// Counts summarises one reconciliation.
type Counts struct {
	Archive int `json:"archive"`
	Live    int `json:"live"`
	Pending int `json:"pending"`
}

// Result is the outcome of Diff.
type Result struct {
	// Archive and Live are the inputs, stably sorted by created_at.
	Archive []record.Record
	Live    []record.Record

	// ToAdd holds archive records whose key is absent from Live,
	// in chronological order.
	ToAdd []record.Record

	Counts Counts
}

// Diff returns the archive records whose identity key does not occur in live.
// The input slices are not modified.
func Diff(archive, live []record.Record) Result {
	sortedArchive := sortByCreatedAt(archive)
	sortedLive := sortByCreatedAt(live)

	present := make(map[record.Key]struct{}, len(sortedLive))
	for _, r := range sortedLive {
		present[r.Key()] = struct{}{}
	}

	toAdd := make([]record.Record, 0)
	for _, r := range sortedArchive {
		if _, ok := present[r.Key()]; !ok {
			toAdd = append(toAdd, r)
		}
	}

	return Result{
		Archive: sortedArchive,
		Live:    sortedLive,
		ToAdd:   toAdd,
		Counts: Counts{
			Archive: len(sortedArchive),
			Live:    len(sortedLive),
			Pending: len(toAdd),
		},
	}
}

func sortByCreatedAt(recs []record.Record) []record.Record {
	out := slices.Clone(recs)
	slices.SortStableFunc(out, record.Record.Compare)
	return out
}
