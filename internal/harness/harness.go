package harness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/roach88/aqsync/internal/firestore"
	"github.com/roach88/aqsync/internal/pipeline"
	"github.com/roach88/aqsync/internal/reading"
	"github.com/roach88/aqsync/internal/sitedata"
	"github.com/roach88/aqsync/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs scenarios with a fixed clock and sequential run ids.
type Harness struct {
	base    time.Time
	clock   *testutil.FixedClock
	ids     *testutil.SequenceIDs
	current *sitedata.CurrentFile
	history *sitedata.HistoryFile

	// seeded holds file contents after setup, nil for absent files.
	seeded map[string][]byte
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh temporary directory for isolation.
//
// Execution flow:
// 1. Seed the output files from Setup
// 2. Execute each run against a scripted remote
// 3. Check each run's expect clause
// 4. Evaluate final assertions against the files on disk
func Run(scenario *Scenario) (*Result, error) {
	base, err := time.Parse(time.RFC3339, scenario.Now)
	if err != nil {
		return nil, fmt.Errorf("invalid now: %w", err)
	}

	dir, err := os.MkdirTemp("", "aqsync-harness-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	defer os.RemoveAll(dir)

	h := &Harness{
		base:    base,
		clock:   testutil.NewFixedClock(base),
		ids:     testutil.NewSequenceIDs("run"),
		current: sitedata.NewCurrentFile(filepath.Join(dir, sitedata.DefaultCurrentPath)),
		history: sitedata.NewHistoryFile(filepath.Join(dir, sitedata.DefaultHistoryPath)),
		seeded:  map[string][]byte{},
	}

	if err := h.seed(scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	var retention time.Duration
	if scenario.Retention != "" {
		if retention, err = time.ParseDuration(scenario.Retention); err != nil {
			return nil, fmt.Errorf("invalid retention: %w", err)
		}
	}

	result := NewResult()
	for i, step := range scenario.Runs {
		if err := h.executeRun(i+1, step, retention, scenario.PageLimit, result); err != nil {
			return nil, fmt.Errorf("run %d: %w", i+1, err)
		}
	}

	result.Current = readRaw(h.current.Path)
	result.History = readRaw(h.history.Path)

	for _, errMsg := range h.evaluateAssertions(scenario.Assertions) {
		result.AddError(errMsg)
	}

	return result, nil
}

// seed writes the setup files and remembers their bytes.
func (h *Harness) seed(setup Setup) error {
	switch {
	case setup.CurrentRaw != nil:
		if err := os.WriteFile(h.current.Path, []byte(*setup.CurrentRaw), 0o644); err != nil {
			return err
		}
	case setup.Current != nil:
		r, err := setup.Current.Reading(h.base)
		if err != nil {
			return fmt.Errorf("current: %w", err)
		}
		if err := h.current.Save(r); err != nil {
			return err
		}
	}

	switch {
	case setup.HistoryRaw != nil:
		if err := os.WriteFile(h.history.Path, []byte(*setup.HistoryRaw), 0o644); err != nil {
			return err
		}
	case setup.History != nil:
		readings, err := resolveReadings(setup.History, h.base)
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}
		if err := h.history.Save(readings); err != nil {
			return err
		}
	}

	h.seeded[FileCurrent] = readBytes(h.current.Path)
	h.seeded[FileHistory] = readBytes(h.history.Path)
	return nil
}

// executeRun performs one pipeline run and records it.
// Write failures are recorded as scenario errors, not returned.
func (h *Harness) executeRun(n int, step RunStep, retention time.Duration, pageLimit int, result *Result) error {
	if step.Advance != "" {
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return err
		}
		h.clock.Advance(d)
	}

	remote, err := newScriptedRemote(step, h.base)
	if err != nil {
		return err
	}

	runner, err := pipeline.NewRunner(pipeline.Options{
		Remote:    remote,
		Current:   h.current,
		History:   h.history,
		Retention: retention,
		PageLimit: pageLimit,
		Clock:     h.clock,
		IDs:       h.ids,
	})
	if err != nil {
		return err
	}

	res, runErr := runner.Run(context.Background())
	if runErr != nil {
		result.AddError(fmt.Sprintf("run %d: %v", n, runErr))
	}

	event := TraceEvent{
		Run:        n,
		RunID:      res.RunID,
		Status:     string(res.Status),
		FailedStep: res.FailedStep,
		Error:      res.ErrorMessage(),
		Stats:      res.Stats,
		Fallback:   res.Fallback,
	}
	if !res.Cursor.IsZero() {
		event.Cursor = res.Cursor.UTC().Format(time.RFC3339Nano)
	}
	if q, ok := remote.query(); ok {
		event.Query = &q
	}
	result.AddRunTrace(event)

	for _, errMsg := range h.checkExpect(n, step.Expect, event) {
		result.AddError(errMsg)
	}
	return nil
}

// scriptedRemote answers fetches from a RunStep.
type scriptedRemote struct {
	current    reading.Reading
	currentErr error
	history    []reading.Reading
	historyErr error

	mu      sync.Mutex
	called  bool
	request HistoryQuery
}

func newScriptedRemote(step RunStep, base time.Time) (*scriptedRemote, error) {
	s := &scriptedRemote{}
	if step.CurrentError != "" {
		s.currentErr = &firestore.RemoteError{Op: "fetch_current", Message: step.CurrentError}
	} else {
		r, err := step.Current.Reading(base)
		if err != nil {
			return nil, fmt.Errorf("current: %w", err)
		}
		s.current = r
	}

	if step.HistoryError != "" {
		s.historyErr = &firestore.RemoteError{Op: "fetch_history", Message: step.HistoryError}
	} else {
		readings, err := resolveReadings(step.History, base)
		if err != nil {
			return nil, fmt.Errorf("history: %w", err)
		}
		s.history = readings
	}
	return s, nil
}

func (s *scriptedRemote) FetchCurrent(context.Context) (reading.Reading, error) {
	return s.current, s.currentErr
}

func (s *scriptedRemote) FetchHistorySince(_ context.Context, cursor, retentionStart time.Time, pageLimit int) ([]reading.Reading, error) {
	s.mu.Lock()
	s.called = true
	s.request = HistoryQuery{
		After: firestore.HistoryBound(cursor, retentionStart).UTC().Format(time.RFC3339Nano),
		Limit: pageLimit,
	}
	s.mu.Unlock()

	if s.historyErr != nil {
		return nil, s.historyErr
	}
	if len(s.history) > pageLimit {
		return s.history[:pageLimit], nil
	}
	return s.history, nil
}

func (s *scriptedRemote) query() (HistoryQuery, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.request, s.called
}

// readBytes returns the file content, or nil when it cannot be read.
func readBytes(path string) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return data
}

// readRaw returns the file content for embedding in a snapshot.
// Missing files become JSON null; anything else that is not JSON is quoted.
func readRaw(path string) []byte {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []byte("null")
	}
	if err != nil || !jsonValid(data) {
		return quote(string(data))
	}
	return data
}
