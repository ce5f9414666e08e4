// Package sitedata owns the two JSON files the static site reads:
//
//   - current-data.json: one reading, the latest snapshot
//   - history-data.json: the reconciled history window, oldest first
//
// Both are written atomically (temp file in the target directory, fsync,
// rename) and pretty-printed with a two-space indent.
//
// Reads never fail the caller. A missing or malformed history file loads as
// empty history and is logged. Writes return *WriteError, which callers
// treat as fatal: a half-written output file is worse than a stale one.
//
// EnsureOutputs is the fallback path used after a failed run. It only fills
// in files that are missing or unreadable and never replaces valid data
// from an earlier run.
package sitedata
