package reading

import (
	"slices"
	"time"
)

// ReconcileStats describes what Reconcile did with its input.
type ReconcileStats struct {
	Existing   int `json:"existing"`
	Fetched    int `json:"fetched"`
	Duplicates int `json:"duplicates"`
	Expired    int `json:"expired"`
	Invalid    int `json:"invalid"`
	Future     int `json:"future"`
	Kept       int `json:"kept"`
}

// Reconcile merges persisted and freshly fetched readings into a history window.
// See ReconcileWithStats.
func Reconcile(existing, fetched []Reading, retentionStart, now time.Time) []Reading {
	merged, _ := ReconcileWithStats(existing, fetched, retentionStart, now)
	return merged
}

// ReconcileWithStats merges existing and fetched, in that order, then:
//
//  1. drops entries whose timestamp is null or unparseable
//  2. keeps only the first entry for each instant, so persisted data wins
//     over a re-fetched copy
//  3. drops entries not strictly after retentionStart, and entries after now
//  4. sorts the rest ascending by instant (stable)
//
// The result is never nil. Running it again on its own output with no new
// readings returns the same slice contents.
func ReconcileWithStats(existing, fetched []Reading, retentionStart, now time.Time) ([]Reading, ReconcileStats) {
	stats := ReconcileStats{Existing: len(existing), Fetched: len(fetched)}

	type entry struct {
		at time.Time
		r  Reading
	}

	entries := make([]entry, 0, len(existing)+len(fetched))
	seen := make(map[time.Time]struct{}, len(existing)+len(fetched))

	for _, batch := range [][]Reading{existing, fetched} {
		for _, r := range batch {
			at, ok := r.Instant()
			if !ok {
				stats.Invalid++
				continue
			}
			key := at.UTC()
			if _, dup := seen[key]; dup {
				stats.Duplicates++
				continue
			}
			seen[key] = struct{}{}

			if !at.After(retentionStart) {
				stats.Expired++
				continue
			}
			if at.After(now) {
				stats.Future++
				continue
			}
			entries = append(entries, entry{at: at, r: r})
		}
	}

	slices.SortStableFunc(entries, func(a, b entry) int {
		return a.at.Compare(b.at)
	})

	merged := make([]Reading, len(entries))
	for i, e := range entries {
		merged[i] = e.r
	}
	stats.Kept = len(merged)
	return merged, stats
}
