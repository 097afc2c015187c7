// Package logbook persists control actions and sensor readings.
//
// Every sink is append-only. The CSV logs are the primary record and keep
// the historical column layout; the SQLite store and the InfluxDB writer
// are optional secondary sinks combined through MultiActionSink and
// MultiReadingSink.
package logbook

import (
	"time"

	"github.com/sweeney/home-controller/internal/device"
	"github.com/sweeney/home-controller/internal/sensor"
)

// Origin records which path caused an action.
type Origin string

const (
	// OriginBus marks a state change received from the message bus.
	OriginBus Origin = "bus"
	// OriginLocal marks a state change requested locally (HTTP, console).
	OriginLocal Origin = "local"
)

// ActionEntry is one effective device state change.
type ActionEntry struct {
	Time     time.Time
	DeviceID string
	Action   device.State
	Origin   Origin
}

// Timestamp returns Time in the log layout.
func (e ActionEntry) Timestamp() string {
	return e.Time.Format(sensor.TimestampLayout)
}

// ActionSink appends action entries.
type ActionSink interface {
	AppendAction(e ActionEntry) error
}

// ActionReader returns the most recent entries, oldest first.
type ActionReader interface {
	RecentActions(limit int) ([]ActionEntry, error)
}

// tail returns the last limit entries of s. A non-positive limit returns all.
func tail[T any](s []T, limit int) []T {
	if limit <= 0 || limit >= len(s) {
		return s
	}
	return s[len(s)-limit:]
}
