package reading

import (
	"encoding/json"
	"time"

	"github.com/relvacode/iso8601"
)

// DefaultRetention is the trailing window of history kept locally.
const DefaultRetention = 7 * 24 * time.Hour

// Reading is one timestamped particulate-matter sample.
// Metrics are nil when the source did not report them.
type Reading struct {
	PM1_0     *float64  `json:"pm1_0"`
	PM2_5     *float64  `json:"pm2_5"`
	PM10      *float64  `json:"pm10"`
	Timestamp Timestamp `json:"timestamp"`
}

// Timestamp is an ISO-8601 timestamp string as reported by the sensor.
// The empty Timestamp represents a null or missing value.
type Timestamp string

// NewTimestamp formats t as an RFC 3339 UTC timestamp with nanosecond precision.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t.UTC().Format(time.RFC3339Nano))
}

// Instant parses the timestamp. ok is false for empty or unparseable values.
func (ts Timestamp) Instant() (t time.Time, ok bool) {
	if ts == "" {
		return time.Time{}, false
	}
	parsed, err := iso8601.ParseString(string(ts))
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// MarshalJSON writes null for the empty timestamp.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(ts))
}

// UnmarshalJSON accepts a string or null. Any other JSON type yields the
// empty timestamp so one bad entry does not poison a whole history file;
// Reconcile drops such entries.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*ts = ""
		return nil
	}
	*ts = Timestamp(s)
	return nil
}

// Instant is shorthand for r.Timestamp.Instant().
func (r Reading) Instant() (time.Time, bool) {
	return r.Timestamp.Instant()
}

// Metric returns a pointer to v, for building readings.
func Metric(v float64) *float64 {
	return &v
}

// Placeholder returns the zeroed snapshot written when no real data is available.
func Placeholder(now time.Time) Reading {
	return Reading{
		PM1_0:     Metric(0),
		PM2_5:     Metric(0),
		PM10:      Metric(0),
		Timestamp: NewTimestamp(now),
	}
}

// RetentionStart returns the exclusive lower bound of the retention window.
func RetentionStart(now time.Time, window time.Duration) time.Time {
	return now.Add(-window)
}

// LatestTimestamp returns the maximum valid instant in readings that is not
// after now.
//
// It scans every entry instead of trusting the last element: a hand-edited
// or partially written history file must not move the incremental cursor.
// Future-dated entries are skipped for the same reason.
func LatestTimestamp(readings []Reading, now time.Time) (time.Time, bool) {
	var (
		latest time.Time
		found  bool
	)
	for _, r := range readings {
		t, ok := r.Instant()
		if !ok || t.After(now) {
			continue
		}
		if !found || t.After(latest) {
			latest = t
			found = true
		}
	}
	return latest, found
}
