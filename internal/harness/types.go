package harness

import (
	"encoding/json"

	"github.com/roach88/aqsync/internal/reading"
	"github.com/roach88/aqsync/internal/sitedata"
)

// TraceEvent records one pipeline run.
type TraceEvent struct {
	Run        int                     `json:"run"`
	RunID      string                  `json:"run_id"`
	Status     string                  `json:"status"`
	FailedStep string                  `json:"failed_step,omitempty"`
	Error      string                  `json:"error,omitempty"`
	Cursor     string                  `json:"cursor,omitempty"`
	Query      *HistoryQuery           `json:"query,omitempty"`
	Stats      reading.ReconcileStats  `json:"stats"`
	Fallback   sitedata.FallbackReport `json:"fallback"`
}

// HistoryQuery is the history request the remote received.
type HistoryQuery struct {
	After string `json:"after"`
	Limit int    `json:"limit"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success.
	// True if every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace contains one event per run, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Current and History hold the files left after the last run.
	Current json.RawMessage `json:"current"`
	History json.RawMessage `json:"history"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddRunTrace appends a run to the trace.
func (r *Result) AddRunTrace(event TraceEvent) {
	r.Trace = append(r.Trace, event)
}
