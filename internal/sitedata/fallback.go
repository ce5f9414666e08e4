package sitedata

import (
	"log/slog"
	"time"

	"github.com/roach88/aqsync/internal/reading"
)

// FallbackReport records which files EnsureOutputs had to fill in.
type FallbackReport struct {
	CurrentPlaceholder bool `json:"current_placeholder"`
	HistoryPlaceholder bool `json:"history_placeholder"`
}

// Placeholders reports whether any placeholder content was written.
func (r FallbackReport) Placeholders() bool {
	return r.CurrentPlaceholder || r.HistoryPlaceholder
}

// EnsureOutputs leaves both output files in a valid state after a failed run.
//
// Files written earlier in this run, and files that already hold valid data
// from a previous run, are left alone. Only a missing or malformed file is
// replaced: the snapshot with zeroed metrics stamped now, the history with
// an empty list.
func EnsureOutputs(current *CurrentFile, history *HistoryFile, currentWritten, historyWritten bool, now time.Time) (FallbackReport, error) {
	var report FallbackReport

	if !currentWritten {
		if current.Valid() {
			slog.Info("keeping last known snapshot", "path", current.Path)
		} else {
			slog.Warn("writing placeholder snapshot", "path", current.Path)
			if err := current.Save(reading.Placeholder(now)); err != nil {
				return report, err
			}
			report.CurrentPlaceholder = true
		}
	}

	if !historyWritten {
		if history.Valid() {
			slog.Info("keeping last known history", "path", history.Path)
		} else {
			slog.Warn("writing empty history", "path", history.Path)
			if err := history.Save(nil); err != nil {
				return report, err
			}
			report.HistoryPlaceholder = true
		}
	}

	return report, nil
}
