package firestore

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aqsync/internal/reading"
)

func parseWire(t *testing.T, s string) *wireValue {
	t.Helper()
	var w wireValue
	require.NoError(t, json.Unmarshal([]byte(s), &w))
	return &w
}

func TestDecode_Variants(t *testing.T) {
	tests := []struct {
		name string
		wire string
		want Value
	}{
		{"integer string", `{"integerValue":"42"}`, Integer(42)},
		{"integer number", `{"integerValue":42}`, Integer(42)},
		{"double", `{"doubleValue":8.25}`, Double(8.25)},
		{"double integral", `{"doubleValue":3}`, Double(3)},
		{"string", `{"stringValue":"hello"}`, String("hello")},
		{"timestamp", `{"timestampValue":"2026-10-19T10:00:00.123456Z"}`, Timestamp("2026-10-19T10:00:00.123456Z")},
		{"null", `{"nullValue":"NULL_VALUE"}`, Null{}},
		{"untagged", `{}`, Null{}},
		{"unknown tag", `{"booleanValue":true}`, Null{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(parseWire(t, tt.wire)))
		})
	}
}

func TestDecode_NilIsNull(t *testing.T) {
	assert.Equal(t, Null{}, Decode(nil))
}

func TestDecode_Priority(t *testing.T) {
	w := parseWire(t, `{"timestampValue":"2026-10-19T10:00:00Z","stringValue":"s","doubleValue":1.5,"integerValue":"7"}`)
	assert.Equal(t, Integer(7), Decode(w))

	w = parseWire(t, `{"timestampValue":"2026-10-19T10:00:00Z","stringValue":"s","doubleValue":1.5}`)
	assert.Equal(t, Double(1.5), Decode(w))

	w = parseWire(t, `{"timestampValue":"2026-10-19T10:00:00Z","stringValue":"s"}`)
	assert.Equal(t, String("s"), Decode(w))
}

func TestDecode_MalformedTagFallsThrough(t *testing.T) {
	w := parseWire(t, `{"integerValue":"twelve","doubleValue":12.0}`)
	assert.Equal(t, Double(12), Decode(w))

	w = parseWire(t, `{"integerValue":"twelve"}`)
	assert.Equal(t, Null{}, Decode(w))
}

func TestDecode_NonFiniteDoubles(t *testing.T) {
	v := Decode(parseWire(t, `{"doubleValue":"NaN"}`))
	d, ok := v.(Double)
	require.True(t, ok)
	assert.True(t, math.IsNaN(float64(d)))

	assert.Equal(t, Double(math.Inf(1)), Decode(parseWire(t, `{"doubleValue":"Infinity"}`)))
	assert.Nil(t, Number(v))
}

func TestScalar(t *testing.T) {
	assert.Equal(t, int64(3), Scalar(Integer(3)))
	assert.Equal(t, 2.5, Scalar(Double(2.5)))
	assert.Equal(t, "x", Scalar(String("x")))
	assert.Equal(t, "2026-10-19T10:00:00Z", Scalar(Timestamp("2026-10-19T10:00:00Z")))
	assert.Nil(t, Scalar(Null{}))
}

func TestNumber(t *testing.T) {
	assert.Equal(t, 12.0, *Number(Integer(12)))
	assert.Equal(t, 12.5, *Number(Double(12.5)))
	assert.Equal(t, 9.75, *Number(String("9.75")))
	assert.Nil(t, Number(String("n/a")))
	assert.Nil(t, Number(Timestamp("2026-10-19T10:00:00Z")))
	assert.Nil(t, Number(Null{}))
}

func TestTimestampString(t *testing.T) {
	assert.Equal(t, reading.Timestamp("2026-10-19T10:00:00Z"), TimestampString(Timestamp("2026-10-19T10:00:00Z")))
	assert.Equal(t, reading.Timestamp("2026-10-19T10:00:00.000Z"), TimestampString(String("2026-10-19T10:00:00.000Z")))
	assert.Equal(t, reading.Timestamp(""), TimestampString(Integer(1)))
	assert.Equal(t, reading.Timestamp(""), TimestampString(Null{}))
}

func TestEncodeTimestamp(t *testing.T) {
	at := time.Date(2026, 10, 12, 10, 0, 0, 0, time.FixedZone("CEST", 2*3600))

	w := encodeTimestamp(at, EncodingTimestamp)
	require.NotNil(t, w.TimestampValue)
	assert.Equal(t, "2026-10-12T08:00:00Z", *w.TimestampValue)
	assert.Nil(t, w.StringValue)

	w = encodeTimestamp(at, EncodingString)
	require.NotNil(t, w.StringValue)
	assert.Equal(t, "2026-10-12T08:00:00.000Z", *w.StringValue)
	assert.Nil(t, w.TimestampValue)
}
