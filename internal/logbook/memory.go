package logbook

import (
	"sync"

	"github.com/sweeney/home-controller/internal/sensor"
)

// MemoryLog is an in-memory action and reading log for tests and for
// running without a data directory.
type MemoryLog struct {
	mu       sync.Mutex
	actions  []ActionEntry
	readings []sensor.Reading

	// Err, if set, is returned by every append.
	Err error
}

// NewMemoryLog creates an empty MemoryLog.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// AppendAction records e.
func (m *MemoryLog) AppendAction(e ActionEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.actions = append(m.actions, e)
	return nil
}

// AppendReading records r.
func (m *MemoryLog) AppendReading(r sensor.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.readings = append(m.readings, r)
	return nil
}

// RecentActions returns the last limit actions, oldest first.
func (m *MemoryLog) RecentActions(limit int) ([]ActionEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := tail(m.actions, limit)
	out := make([]ActionEntry, len(src))
	copy(out, src)
	return out, nil
}

// Actions returns every recorded action.
func (m *MemoryLog) Actions() []ActionEntry {
	a, _ := m.RecentActions(0)
	return a
}

// Readings returns every recorded reading.
func (m *MemoryLog) Readings() []sensor.Reading {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sensor.Reading, len(m.readings))
	copy(out, m.readings)
	return out
}
