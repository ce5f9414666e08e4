package harness

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/aqsync/internal/reading"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// checkExpect compares a run's trace event with its expect clause.
func (h *Harness) checkExpect(n int, expect *ExpectClause, event TraceEvent) []string {
	if expect == nil {
		return nil
	}

	var errs []string
	if event.Status != expect.Status {
		errs = append(errs, fmt.Sprintf("run %d: expected status %s, got %s (%s)", n, expect.Status, event.Status, event.Error))
	}
	if event.FailedStep != expect.FailedStep {
		errs = append(errs, fmt.Sprintf("run %d: expected failed_step %q, got %q", n, expect.FailedStep, event.FailedStep))
	}
	if expect.Kept != nil && event.Stats.Kept != *expect.Kept {
		errs = append(errs, fmt.Sprintf("run %d: expected %d readings kept, got %d", n, *expect.Kept, event.Stats.Kept))
	}
	if expect.After != "" {
		offset, err := time.ParseDuration(expect.After)
		if err != nil {
			errs = append(errs, fmt.Sprintf("run %d: invalid expect.after %q: %v", n, expect.After, err))
		} else {
			want := h.base.Add(offset).UTC().Format(time.RFC3339Nano)
			switch {
			case event.Query == nil:
				errs = append(errs, fmt.Sprintf("run %d: expected history query after %s, none was made", n, want))
			case event.Query.After != want:
				errs = append(errs, fmt.Sprintf("run %d: expected history query after %s, got %s", n, want, event.Query.After))
			}
		}
	}
	return errs
}

// evaluateAssertions checks the files left after the last run.
// Returns one message per failed assertion.
func (h *Harness) evaluateAssertions(assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertHistoryEquals:
			err = h.assertHistoryEquals(a)
		case AssertCurrentEquals:
			err = h.assertCurrentEquals(a)
		case AssertCurrentPlaceholder:
			err = h.assertCurrentPlaceholder()
		case AssertFileUnchanged:
			err = h.assertFileUnchanged(a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func (h *Harness) assertHistoryEquals(a Assertion) error {
	want, err := resolveReadings(a.Readings, h.base)
	if err != nil {
		return err
	}
	if !h.history.Valid() {
		return &AssertionError{Type: a.Type, Expected: "a valid history file", Actual: "missing or malformed"}
	}
	got := h.history.Load()

	if len(got) != len(want) {
		return &AssertionError{Type: a.Type, Expected: describeAll(want), Actual: describeAll(got)}
	}
	for i := range want {
		if !sameReading(want[i], got[i]) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("[%d] %s", i, describe(want[i])),
				Actual:   fmt.Sprintf("[%d] %s", i, describe(got[i])),
			}
		}
	}
	return nil
}

func (h *Harness) assertCurrentEquals(a Assertion) error {
	want, err := a.Reading.Reading(h.base)
	if err != nil {
		return err
	}
	got, err := h.current.Load()
	if err != nil {
		return &AssertionError{Type: a.Type, Expected: describe(want), Actual: err.Error()}
	}
	if !sameReading(want, got) {
		return &AssertionError{Type: a.Type, Expected: describe(want), Actual: describe(got)}
	}
	return nil
}

func (h *Harness) assertCurrentPlaceholder() error {
	want := reading.Placeholder(h.clock.Now())
	got, err := h.current.Load()
	if err != nil {
		return &AssertionError{Type: AssertCurrentPlaceholder, Expected: describe(want), Actual: err.Error()}
	}
	if !sameReading(want, got) {
		return &AssertionError{Type: AssertCurrentPlaceholder, Expected: describe(want), Actual: describe(got)}
	}
	return nil
}

func (h *Harness) assertFileUnchanged(a Assertion) error {
	path := h.current.Path
	if a.File == FileHistory {
		path = h.history.Path
	}
	before := h.seeded[a.File]
	after := readBytes(path)
	if !bytes.Equal(before, after) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s file unchanged (%d bytes)", a.File, len(before)),
			Actual:   fmt.Sprintf("%d bytes: %s", len(after), strings.TrimSpace(string(after))),
		}
	}
	return nil
}

// sameReading compares instants (so equivalent encodings match) and metrics.
func sameReading(want, got reading.Reading) bool {
	wantAt, wantOK := want.Instant()
	gotAt, gotOK := got.Instant()
	switch {
	case wantOK && gotOK:
		if !wantAt.Equal(gotAt) {
			return false
		}
	case want.Timestamp != got.Timestamp:
		return false
	}
	return sameMetric(want.PM1_0, got.PM1_0) &&
		sameMetric(want.PM2_5, got.PM2_5) &&
		sameMetric(want.PM10, got.PM10)
}

func sameMetric(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func describe(r reading.Reading) string {
	return fmt.Sprintf("{timestamp: %q, pm1_0: %s, pm2_5: %s, pm10: %s}",
		r.Timestamp, metric(r.PM1_0), metric(r.PM2_5), metric(r.PM10))
}

func describeAll(rs []reading.Reading) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = describe(r)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func metric(v *float64) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%g", *v)
}
