package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/aqsync/internal/reading"
)

// Scenario defines an end-to-end sync scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Now is the wall-clock time of the first run, RFC 3339.
	Now string `yaml:"now"`

	// Retention overrides the default seven-day window (Go duration).
	Retention string `yaml:"retention,omitempty"`

	// PageLimit overrides the default history page limit.
	PageLimit int `yaml:"page_limit,omitempty"`

	// Setup seeds the output files before the first run.
	Setup Setup `yaml:"setup,omitempty"`

	// Runs are executed in order against the same files.
	Runs []RunStep `yaml:"runs"`

	// Assertions validate the files left after the last run.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Setup describes the files present before the first run.
// A nil field leaves that file absent. Raw content wins over readings.
type Setup struct {
	Current    *ReadingFixture  `yaml:"current,omitempty"`
	CurrentRaw *string          `yaml:"current_raw,omitempty"`
	History    []ReadingFixture `yaml:"history,omitempty"`
	HistoryRaw *string          `yaml:"history_raw,omitempty"`
}

// RunStep scripts the remote for one run.
type RunStep struct {
	// Advance moves the clock forward before this run (Go duration).
	Advance string `yaml:"advance,omitempty"`

	// Current is the snapshot document. Exactly one of Current and
	// CurrentError is set.
	Current      *ReadingFixture `yaml:"current,omitempty"`
	CurrentError string          `yaml:"current_error,omitempty"`

	// History is returned by the history query unless HistoryError is set.
	History      []ReadingFixture `yaml:"history,omitempty"`
	HistoryError string           `yaml:"history_error,omitempty"`

	// Expect checks the run's outcome. Nil means no check.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a run.
type ExpectClause struct {
	// Status is "ok", "degraded" or "failed".
	Status string `yaml:"status"`

	FailedStep string `yaml:"failed_step,omitempty"`

	// Kept is the expected history length after reconcile.
	Kept *int `yaml:"kept,omitempty"`

	// After is the expected exclusive lower bound of the history query,
	// as an offset from the scenario's now.
	After string `yaml:"after,omitempty"`
}

// ReadingFixture describes a reading relative to the scenario clock.
type ReadingFixture struct {
	// At is an offset from the scenario's now ("-1h").
	At string `yaml:"at,omitempty"`

	// Timestamp is used verbatim when set, for malformed or
	// non-UTC timestamps.
	Timestamp *string `yaml:"timestamp,omitempty"`

	PM1_0 *float64 `yaml:"pm1_0,omitempty"`
	PM2_5 *float64 `yaml:"pm2_5,omitempty"`
	PM10  *float64 `yaml:"pm10,omitempty"`
}

// Reading resolves the fixture against base.
func (s ReadingFixture) Reading(base time.Time) (reading.Reading, error) {
	r := reading.Reading{PM1_0: s.PM1_0, PM2_5: s.PM2_5, PM10: s.PM10}
	switch {
	case s.Timestamp != nil:
		r.Timestamp = reading.Timestamp(*s.Timestamp)
	case s.At != "":
		offset, err := time.ParseDuration(s.At)
		if err != nil {
			return reading.Reading{}, fmt.Errorf("invalid offset %q: %w", s.At, err)
		}
		r.Timestamp = reading.NewTimestamp(base.Add(offset))
	}
	return r, nil
}

func resolveReadings(fixtures []ReadingFixture, base time.Time) ([]reading.Reading, error) {
	out := make([]reading.Reading, 0, len(fixtures))
	for i, s := range fixtures {
		r, err := s.Reading(base)
		if err != nil {
			return nil, fmt.Errorf("reading %d: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// Assertion validates a file left after the last run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// File is "current" or "history" (used by file_unchanged).
	File string `yaml:"file,omitempty"`

	// Readings is the expected history, in order (used by history_equals).
	Readings []ReadingFixture `yaml:"readings,omitempty"`

	// Reading is the expected snapshot (used by current_equals).
	Reading *ReadingFixture `yaml:"reading,omitempty"`
}

// Assertion type constants.
const (
	AssertHistoryEquals      = "history_equals"
	AssertCurrentEquals      = "current_equals"
	AssertCurrentPlaceholder = "current_placeholder"
	AssertFileUnchanged      = "file_unchanged"
)

// File names used by file_unchanged.
const (
	FileCurrent = "current"
	FileHistory = "history"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if _, err := time.Parse(time.RFC3339, s.Now); err != nil {
		return fmt.Errorf("now must be an RFC 3339 time: %w", err)
	}

	if s.Retention != "" {
		if _, err := time.ParseDuration(s.Retention); err != nil {
			return fmt.Errorf("retention: %w", err)
		}
	}

	if s.PageLimit < 0 {
		return fmt.Errorf("page_limit must be non-negative")
	}

	if len(s.Runs) == 0 {
		return fmt.Errorf("runs list is required and must be non-empty")
	}

	for i, step := range s.Runs {
		if step.Advance != "" {
			if _, err := time.ParseDuration(step.Advance); err != nil {
				return fmt.Errorf("runs[%d].advance: %w", i, err)
			}
		}
		if (step.Current == nil) == (step.CurrentError == "") {
			return fmt.Errorf("runs[%d]: exactly one of current and current_error is required", i)
		}
		if step.HistoryError != "" && len(step.History) > 0 {
			return fmt.Errorf("runs[%d]: history and history_error are mutually exclusive", i)
		}
		if step.Expect != nil {
			switch step.Expect.Status {
			case "ok", "degraded", "failed":
			default:
				return fmt.Errorf("runs[%d].expect: unknown status %q", i, step.Expect.Status)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertHistoryEquals:
		// An empty list asserts an empty history.
	case AssertCurrentEquals:
		if a.Reading == nil {
			return fmt.Errorf("assertions[%d]: reading is required for current_equals", index)
		}
	case AssertCurrentPlaceholder:
	case AssertFileUnchanged:
		if a.File != FileCurrent && a.File != FileHistory {
			return fmt.Errorf("assertions[%d]: file must be %q or %q for file_unchanged", index, FileCurrent, FileHistory)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
