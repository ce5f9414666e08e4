package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/aqsync/internal/reading"
	"github.com/roach88/aqsync/internal/sitedata"
)

// Remote is the read side of the remote document store.
// *firestore.Client implements it.
type Remote interface {
	FetchCurrent(ctx context.Context) (reading.Reading, error)
	FetchHistorySince(ctx context.Context, cursor, retentionStart time.Time, pageLimit int) ([]reading.Reading, error)
}

// IDGenerator produces run identifiers.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run ids.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if the random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Options configures a Runner.
type Options struct {
	Remote  Remote
	Current *sitedata.CurrentFile
	History *sitedata.HistoryFile

	// Retention is the trailing window of history kept. Defaults to
	// reading.DefaultRetention.
	Retention time.Duration

	// PageLimit caps the number of history documents fetched per run.
	PageLimit int

	// Clock and IDs default to SystemClock and UUIDv7Generator.
	Clock Clock
	IDs   IDGenerator
}

// Runner executes synchronisation passes.
type Runner struct {
	remote    Remote
	current   *sitedata.CurrentFile
	history   *sitedata.HistoryFile
	retention time.Duration
	pageLimit int
	clock     Clock
	ids       IDGenerator
}

// DefaultPageLimit is the history page limit used when none is configured.
const DefaultPageLimit = 10000

// NewRunner returns a Runner for opts.
func NewRunner(opts Options) (*Runner, error) {
	if opts.Remote == nil {
		return nil, errors.New("pipeline: remote is required")
	}
	if opts.Current == nil || opts.History == nil {
		return nil, errors.New("pipeline: both output files are required")
	}

	r := &Runner{
		remote:    opts.Remote,
		current:   opts.Current,
		history:   opts.History,
		retention: opts.Retention,
		pageLimit: opts.PageLimit,
		clock:     opts.Clock,
		ids:       opts.IDs,
	}
	if r.retention <= 0 {
		r.retention = reading.DefaultRetention
	}
	if r.pageLimit <= 0 {
		r.pageLimit = DefaultPageLimit
	}
	if r.clock == nil {
		r.clock = SystemClock{}
	}
	if r.ids == nil {
		r.ids = UUIDv7Generator{}
	}
	return r, nil
}

// Run performs one pass.
//
// The returned Result is never nil. The error is non-nil only when an
// output file could not be written (a *sitedata.WriteError); remote
// failures are reported through Result.Status and Result.Err.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	now := r.clock.Now()
	res := &Result{
		RunID:     r.ids.Generate(),
		StartedAt: now,
		Status:    StatusOK,
	}
	logger := slog.With("run_id", res.RunID)

	existing := r.history.Load()
	if cursor, ok := reading.LatestTimestamp(existing, now); ok {
		res.Cursor = cursor
	}
	retentionStart := reading.RetentionStart(now, r.retention)
	logger.Info("loaded local history", "path", r.history.Path, "readings", len(existing), "cursor", formatCursor(res.Cursor))

	// Both fetches run to completion; a failure in one does not cancel the other.
	var (
		snapshot   reading.Reading
		fetched    []reading.Reading
		currentErr error
		historyErr error
		g          errgroup.Group
	)
	g.Go(func() error {
		snapshot, currentErr = r.remote.FetchCurrent(ctx)
		return nil
	})
	g.Go(func() error {
		fetched, historyErr = r.remote.FetchHistorySince(ctx, res.Cursor, retentionStart, r.pageLimit)
		return nil
	})
	_ = g.Wait()

	currentWritten := false
	if currentErr == nil {
		res.Snapshot = &snapshot
		logger.Info("fetched current reading", "pm2_5", formatMetric(snapshot.PM2_5), "timestamp", snapshot.Timestamp)
		if err := r.current.Save(snapshot); err != nil {
			return r.finish(res, StepWriteCurrent, err), err
		}
		currentWritten = true
	} else {
		logger.Error("fetch failed", "step", StepFetchCurrent, "error", currentErr)
	}
	if historyErr == nil {
		logger.Info("fetched history", "readings", len(fetched))
	} else {
		logger.Error("fetch failed", "step", StepFetchHistory, "error", historyErr)
	}

	if currentErr != nil || historyErr != nil {
		step := StepFetchCurrent
		if currentErr == nil {
			step = StepFetchHistory
		}
		return r.fallback(res, step, errors.Join(currentErr, historyErr), currentWritten)
	}

	merged, stats := reading.ReconcileWithStats(existing, fetched, retentionStart, now)
	res.Stats = stats
	if err := r.history.Save(merged); err != nil {
		return r.finish(res, StepWriteHistory, err), err
	}

	logger.Info("saved history",
		"path", r.history.Path,
		"readings", stats.Kept,
		"new", stats.Fetched-stats.Duplicates,
		"duplicates", stats.Duplicates,
		"expired", stats.Expired,
		"invalid", stats.Invalid,
		"future", stats.Future,
	)
	res.FinishedAt = r.clock.Now()
	return res, nil
}

// fallback leaves both files valid after a remote failure and classifies
// the run as degraded or failed.
func (r *Runner) fallback(res *Result, step string, cause error, currentWritten bool) (*Result, error) {
	report, err := sitedata.EnsureOutputs(r.current, r.history, currentWritten, false, r.clock.Now())
	res.Fallback = report
	if err != nil {
		r.finish(res, StepFallback, errors.Join(cause, err))
		return res, err
	}

	r.finish(res, step, cause)
	if !report.Placeholders() {
		res.Status = StatusDegraded
	}
	return res, nil
}

// finish records a failure on res.
func (r *Runner) finish(res *Result, step string, err error) *Result {
	if sitedata.IsWriteError(err) {
		slog.Error("write failed", "run_id", res.RunID, "step", step, "error", err)
	}
	res.Status = StatusFailed
	res.FailedStep = step
	res.Err = err
	res.FinishedAt = r.clock.Now()
	return res
}

func formatCursor(t time.Time) string {
	if t.IsZero() {
		return "none"
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatMetric(v *float64) any {
	if v == nil {
		return "null"
	}
	return *v
}
