package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Run is one ledger row.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     string    `json:"status"` // "ok" | "degraded" | "failed"
	FailedStep string    `json:"failed_step,omitempty"`
	Error      string    `json:"error,omitempty"`

	// Cursor is the incremental fetch bound used, RFC 3339, empty when none.
	Cursor string `json:"cursor,omitempty"`

	Existing   int `json:"existing"`
	Fetched    int `json:"fetched"`
	Duplicates int `json:"duplicates"`
	Expired    int `json:"expired"`
	Invalid    int `json:"invalid"`
	Future     int `json:"future"`
	Kept       int `json:"kept"`

	CurrentPlaceholder bool `json:"current_placeholder"`
	HistoryPlaceholder bool `json:"history_placeholder"`
}

const runColumns = `id, started_at, finished_at, status, failed_step, error, cursor,
	existing, fetched, duplicates, expired, invalid, future, kept,
	current_placeholder, history_placeholder`

// WriteRun inserts a run record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("write run: empty id")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
		run.Status,
		run.FailedStep,
		run.Error,
		run.Cursor,
		run.Existing,
		run.Fetched,
		run.Duplicates,
		run.Expired,
		run.Invalid,
		run.Future,
		run.Kept,
		run.CurrentPlaceholder,
		run.HistoryPlaceholder,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first.
// Returns an empty slice (not nil) when the ledger is empty.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("list runs: limit must be positive, got %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LastSuccessfulRun returns the most recent run with status "ok".
// found is false when there is none.
func (s *Store) LastSuccessfulRun(ctx context.Context) (run Run, found bool, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE status = 'ok'
		ORDER BY started_at DESC, id COLLATE BINARY DESC
		LIMIT 1
	`)
	run, err = scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, err
	}
	return run, true, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run                 Run
		startedAt, finished string
	)
	err := sc.Scan(
		&run.ID,
		&startedAt,
		&finished,
		&run.Status,
		&run.FailedStep,
		&run.Error,
		&run.Cursor,
		&run.Existing,
		&run.Fetched,
		&run.Duplicates,
		&run.Expired,
		&run.Invalid,
		&run.Future,
		&run.Kept,
		&run.CurrentPlaceholder,
		&run.HistoryPlaceholder,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return Run{}, fmt.Errorf("scan run %s: started_at: %w", run.ID, err)
	}
	if run.FinishedAt, err = parseTime(finished); err != nil {
		return Run{}, fmt.Errorf("scan run %s: finished_at: %w", run.ID, err)
	}
	return run, nil
}

// timeLayout is fixed-width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
