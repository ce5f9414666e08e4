// Package reading holds the air-quality sample model and the history
// reconciliation algorithm.
//
// A Reading is one sensor sample: three particulate-matter concentrations
// (any of which may be null) and the ISO-8601 timestamp the sensor reported.
// The timestamp is kept exactly as received so the output files reproduce
// it byte for byte; every comparison goes through Timestamp.Instant.
//
// # History window invariants
//
// Reconcile produces a slice that is:
//   - ordered by instant, non-decreasing
//   - free of entries sharing an identical instant (first occurrence wins)
//   - bounded to (retentionStart, ∞): older or unparseable entries are dropped
//
// The algorithm never fails. Malformed input degrades to a smaller result.
package reading
