// Package sensor samples the environmental sensor on a fixed cadence and
// keeps a bounded window of recent readings.
package sensor

import "time"

// TimestampLayout is the wall-clock format used in logs and snapshots.
const TimestampLayout = "2006-01-02 15:04:05"

// Sensor reads the current temperature in °C.
type Sensor interface {
	Read() (float64, error)
}

// Func adapts a plain function to the Sensor interface.
type Func func() (float64, error)

// Read calls f.
func (f Func) Read() (float64, error) {
	return f()
}

// Reading is a single timestamped sample.
type Reading struct {
	Time  time.Time
	Value float64
}

// Timestamp returns Time formatted as YYYY-MM-DD HH:MM:SS in local time.
func (r Reading) Timestamp() string {
	return r.Time.Format(TimestampLayout)
}
