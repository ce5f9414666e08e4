package firestore

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/roach88/aqsync/internal/reading"
)

// Value is a sealed interface over the Firestore field variants aqsync reads.
// Only Null, Integer, Double, String and Timestamp implement it.
type Value interface {
	firestoreValue() // Sealed
}

// Null represents an absent, untagged or explicitly null field.
type Null struct{}

func (Null) firestoreValue() {}

// Integer is an integerValue field. Firestore transmits int64 as a JSON string.
type Integer int64

func (Integer) firestoreValue() {}

// Double is a doubleValue field.
type Double float64

func (Double) firestoreValue() {}

// String is a stringValue field.
type String string

func (String) firestoreValue() {}

// Timestamp is a timestampValue field, kept in its RFC 3339 wire form.
type Timestamp string

func (Timestamp) firestoreValue() {}

// wireValue is the tagged-union encoding Firestore uses for every field.
// Exactly one member is populated in practice.
type wireValue struct {
	IntegerValue   json.RawMessage `json:"integerValue,omitempty"`
	DoubleValue    json.RawMessage `json:"doubleValue,omitempty"`
	StringValue    *string         `json:"stringValue,omitempty"`
	TimestampValue *string         `json:"timestampValue,omitempty"`
	NullValue      *string         `json:"nullValue,omitempty"`
}

// Decode unwraps a wire field into a Value.
//
// Tags are tried in priority order integer, double, string, timestamp.
// A tag whose payload is malformed is skipped. A nil or untagged field
// decodes to Null.
func Decode(w *wireValue) Value {
	if w == nil {
		return Null{}
	}
	if w.IntegerValue != nil {
		if v, err := decodeInteger(w.IntegerValue); err == nil {
			return v
		}
	}
	if w.DoubleValue != nil {
		if v, err := decodeDouble(w.DoubleValue); err == nil {
			return v
		}
	}
	if w.StringValue != nil {
		return decodeString(*w.StringValue)
	}
	if w.TimestampValue != nil {
		return decodeTimestamp(*w.TimestampValue)
	}
	return Null{}
}

// decodeInteger accepts the canonical string form ("42") and a bare JSON number.
func decodeInteger(raw json.RawMessage) (Integer, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, fmt.Errorf("integerValue: %w", err)
		}
		s = n.String()
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("integerValue: %w", err)
	}
	return Integer(i), nil
}

// decodeDouble accepts a JSON number or the string forms "NaN", "Infinity"
// and "-Infinity" that proto3 JSON uses for non-finite doubles.
func decodeDouble(raw json.RawMessage) (Double, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return Double(f), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("doubleValue: %w", err)
	}
	switch s {
	case "NaN":
		return Double(math.NaN()), nil
	case "Infinity":
		return Double(math.Inf(1)), nil
	case "-Infinity":
		return Double(math.Inf(-1)), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("doubleValue: %w", err)
	}
	return Double(f), nil
}

func decodeString(s string) String {
	return String(s)
}

func decodeTimestamp(s string) Timestamp {
	return Timestamp(s)
}

// Scalar returns the native Go value held by v: int64, float64, string or nil.
func Scalar(v Value) any {
	switch val := v.(type) {
	case Integer:
		return int64(val)
	case Double:
		return float64(val)
	case String:
		return string(val)
	case Timestamp:
		return string(val)
	default:
		return nil
	}
}

// Number converts a metric field to a reading value.
// Non-finite doubles and non-numeric strings yield nil.
func Number(v Value) *float64 {
	switch val := v.(type) {
	case Integer:
		return reading.Metric(float64(val))
	case Double:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return reading.Metric(f)
	case String:
		f, err := strconv.ParseFloat(string(val), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return reading.Metric(f)
	default:
		return nil
	}
}

// TimestampString converts a timestamp field to a reading timestamp.
// Sensors write either timestampValue or stringValue; both are accepted.
func TimestampString(v Value) reading.Timestamp {
	switch val := v.(type) {
	case Timestamp:
		return reading.Timestamp(val)
	case String:
		return reading.Timestamp(val)
	default:
		return ""
	}
}

// Encoding selects how timestamps are written into query filters.
// It must match how the sensor stores the timestamp field, since Firestore
// only compares values of the same type.
type Encoding string

const (
	EncodingTimestamp Encoding = "timestamp"
	EncodingString    Encoding = "string"
)

// isoMillis is the fixed-width layout JavaScript's toISOString produces.
// String filters compare lexically, so the width must not vary.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// encodeTimestamp builds the filter operand for t.
func encodeTimestamp(t time.Time, enc Encoding) wireValue {
	if enc == EncodingString {
		s := t.UTC().Format(isoMillis)
		return wireValue{StringValue: &s}
	}
	s := t.UTC().Format(time.RFC3339Nano)
	return wireValue{TimestampValue: &s}
}
