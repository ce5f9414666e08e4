package testutil

import (
	"time"

	"github.com/roach88/aqsync/internal/reading"
)

// Sample builds a reading with all three metrics set.
func Sample(ts string, pm1, pm25, pm10 float64) reading.Reading {
	return reading.Reading{
		PM1_0:     reading.Metric(pm1),
		PM2_5:     reading.Metric(pm25),
		PM10:      reading.Metric(pm10),
		Timestamp: reading.Timestamp(ts),
	}
}

// SampleAt builds a reading offset from Epoch with only PM2.5 set.
// Negative offsets are in the past.
func SampleAt(offset time.Duration, pm25 float64) reading.Reading {
	return reading.Reading{
		PM2_5:     reading.Metric(pm25),
		Timestamp: reading.NewTimestamp(Epoch.Add(offset)),
	}
}

// Timestamps returns the timestamp strings of readings, in order.
func Timestamps(readings []reading.Reading) []string {
	out := make([]string, len(readings))
	for i, r := range readings {
		out[i] = string(r.Timestamp)
	}
	return out
}
