package pipeline

import (
	"time"

	"github.com/roach88/aqsync/internal/reading"
	"github.com/roach88/aqsync/internal/sitedata"
	"github.com/roach88/aqsync/internal/store"
)

// Status is the outcome of a run.
type Status string

const (
	// StatusOK means both files were refreshed from the remote store.
	StatusOK Status = "ok"

	// StatusDegraded means a remote call failed but valid files from an
	// earlier run were kept.
	StatusDegraded Status = "degraded"

	// StatusFailed means placeholder content had to be written, or a
	// local write failed.
	StatusFailed Status = "failed"
)

// Steps reported in Result.FailedStep.
const (
	StepFetchCurrent = "fetch_current"
	StepFetchHistory = "fetch_history"
	StepWriteCurrent = "write_current"
	StepWriteHistory = "write_history"
	StepFallback     = "fallback"
)

// Result describes one run.
type Result struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     Status    `json:"status"`
	FailedStep string    `json:"failed_step,omitempty"`
	Err        error     `json:"-"`

	// Cursor is the latest history instant known before fetching.
	// Zero when the local history was empty.
	Cursor time.Time `json:"cursor,omitzero"`

	// Snapshot is the fetched current reading, nil when the fetch failed.
	Snapshot *reading.Reading `json:"snapshot,omitempty"`

	Stats    reading.ReconcileStats  `json:"stats"`
	Fallback sitedata.FallbackReport `json:"fallback"`
}

// ErrorMessage returns Err as text, or "" when the run had no error.
func (r *Result) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// ToRun converts the result into a ledger row.
func (r *Result) ToRun() store.Run {
	run := store.Run{
		ID:                 r.RunID,
		StartedAt:          r.StartedAt,
		FinishedAt:         r.FinishedAt,
		Status:             string(r.Status),
		FailedStep:         r.FailedStep,
		Error:              r.ErrorMessage(),
		Existing:           r.Stats.Existing,
		Fetched:            r.Stats.Fetched,
		Duplicates:         r.Stats.Duplicates,
		Expired:            r.Stats.Expired,
		Invalid:            r.Stats.Invalid,
		Future:             r.Stats.Future,
		Kept:               r.Stats.Kept,
		CurrentPlaceholder: r.Fallback.CurrentPlaceholder,
		HistoryPlaceholder: r.Fallback.HistoryPlaceholder,
	}
	if !r.Cursor.IsZero() {
		run.Cursor = r.Cursor.UTC().Format(time.RFC3339Nano)
	}
	return run
}
