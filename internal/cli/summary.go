package cli

import (
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/aqsync/internal/pipeline"
	"github.com/roach88/aqsync/internal/store"
)

// printer formats counts with digit grouping in text output.
var printer = message.NewPrinter(language.English)

// fetchSummary is the payload printed after a fetch.
type fetchSummary struct {
	*pipeline.Result
	CurrentPath string `json:"current_path"`
	HistoryPath string `json:"history_path"`
}

func (s fetchSummary) String() string {
	var b strings.Builder
	printer.Fprintf(&b, "run %s: %s", s.RunID, s.Status)
	if s.FailedStep != "" {
		printer.Fprintf(&b, " (failed at %s)", s.FailedStep)
	}
	b.WriteString("\n")

	switch {
	case s.Snapshot != nil && s.Snapshot.PM2_5 != nil:
		printer.Fprintf(&b, "current: PM2.5 %.1f at %s -> %s\n", *s.Snapshot.PM2_5, s.Snapshot.Timestamp, s.CurrentPath)
	case s.Snapshot != nil:
		printer.Fprintf(&b, "current: PM2.5 n/a at %s -> %s\n", s.Snapshot.Timestamp, s.CurrentPath)
	case s.Fallback.CurrentPlaceholder:
		printer.Fprintf(&b, "current: placeholder written -> %s\n", s.CurrentPath)
	default:
		printer.Fprintf(&b, "current: kept last known snapshot -> %s\n", s.CurrentPath)
	}

	switch {
	case s.Status == pipeline.StatusOK:
		printer.Fprintf(&b, "history: %d readings (%d fetched, %d duplicates, %d expired, %d invalid) -> %s",
			s.Stats.Kept, s.Stats.Fetched, s.Stats.Duplicates, s.Stats.Expired, s.Stats.Invalid, s.HistoryPath)
	case s.Fallback.HistoryPlaceholder:
		printer.Fprintf(&b, "history: empty history written -> %s", s.HistoryPath)
	default:
		printer.Fprintf(&b, "history: kept last known history -> %s", s.HistoryPath)
	}
	return b.String()
}

// runsSummary is the payload printed by the runs command.
type runsSummary struct {
	Runs           []store.Run `json:"runs"`
	LastSuccessful *store.Run  `json:"last_successful,omitempty"`
}

func (s runsSummary) String() string {
	if len(s.Runs) == 0 {
		return "no runs recorded"
	}

	var b strings.Builder
	for _, r := range s.Runs {
		printer.Fprintf(&b, "%s  %-8s  %s  kept=%d fetched=%d",
			r.StartedAt.UTC().Format(time.RFC3339), r.Status, r.ID, r.Kept, r.Fetched)
		if r.FailedStep != "" {
			printer.Fprintf(&b, "  failed_step=%s", r.FailedStep)
		}
		b.WriteString("\n")
	}
	if s.LastSuccessful != nil {
		printer.Fprintf(&b, "last successful: %s (%s)",
			s.LastSuccessful.StartedAt.UTC().Format(time.RFC3339), s.LastSuccessful.ID)
	} else {
		b.WriteString("last successful: none")
	}
	return b.String()
}
