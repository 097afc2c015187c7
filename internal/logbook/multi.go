package logbook

import (
	"errors"

	"github.com/sweeney/home-controller/internal/sensor"
)

// MultiActionSink sends each entry to every sink. One failing sink does
// not stop the others; all failures are joined.
type MultiActionSink struct {
	sinks []ActionSink
}

// NewMultiActionSink creates a fan-out over sinks. Nil sinks are skipped.
func NewMultiActionSink(sinks ...ActionSink) *MultiActionSink {
	m := &MultiActionSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Add appends another sink.
func (m *MultiActionSink) Add(s ActionSink) {
	m.sinks = append(m.sinks, s)
}

// AppendAction writes e to every sink.
func (m *MultiActionSink) AppendAction(e ActionEntry) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.AppendAction(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MultiReadingSink sends each reading to every sink.
type MultiReadingSink struct {
	sinks []sensor.ReadingSink
}

// NewMultiReadingSink creates a fan-out over sinks. Nil sinks are skipped.
func NewMultiReadingSink(sinks ...sensor.ReadingSink) *MultiReadingSink {
	m := &MultiReadingSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Add appends another sink.
func (m *MultiReadingSink) Add(s sensor.ReadingSink) {
	m.sinks = append(m.sinks, s)
}

// AppendReading writes r to every sink.
func (m *MultiReadingSink) AppendReading(r sensor.Reading) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.AppendReading(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Compile-time interface satisfaction checks.
var (
	_ ActionSink         = (*MultiActionSink)(nil)
	_ sensor.ReadingSink = (*MultiReadingSink)(nil)
	_ ActionSink         = (*ActionCSV)(nil)
	_ ActionReader       = (*ActionCSV)(nil)
	_ sensor.ReadingSink = (*ReadingCSV)(nil)
	_ ActionSink         = (*SQLiteStore)(nil)
	_ ActionReader       = (*SQLiteStore)(nil)
	_ sensor.ReadingSink = (*SQLiteStore)(nil)
	_ ActionSink         = (*InfluxWriter)(nil)
	_ sensor.ReadingSink = (*InfluxWriter)(nil)
	_ ActionSink         = (*MemoryLog)(nil)
	_ ActionReader       = (*MemoryLog)(nil)
	_ sensor.ReadingSink = (*MemoryLog)(nil)
)
