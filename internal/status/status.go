// Package status provides the thread-safe connectivity cell for the controller.
// It is written by the MQTT connection lifecycle and read by any observer.
package status

import (
	"sync"
	"time"
)

// Connectivity is a point-in-time view of bus reachability.
// It is a value type, safe to use after the lock is released.
type Connectivity struct {
	// Reachable is true while the broker session is up.
	Reachable bool
	// MockMode is true when the broker is known unreachable and the
	// controller is operating device-local only.
	MockMode bool
	// Since is when the current Reachable/MockMode combination began.
	Since time.Time
}

// Label returns the display string for the connection state.
func (c Connectivity) Label() string {
	switch {
	case c.Reachable:
		return "Connected"
	case c.MockMode:
		return "Disconnected (Mock Mode)"
	default:
		return "Disconnected"
	}
}

// Monitor holds Connectivity behind an RWMutex. Every read and write takes
// the lock, so readers never observe a partial update.
type Monitor struct {
	mu   sync.RWMutex
	conn Connectivity
	now  func() time.Time
}

// NewMonitor creates a Monitor in the initial state: not reachable, not
// yet in mock mode (no connection attempt has been made).
func NewMonitor() *Monitor {
	return newMonitor(time.Now)
}

func newMonitor(now func() time.Time) *Monitor {
	return &Monitor{
		conn: Connectivity{Since: now()},
		now:  now,
	}
}

// MarkConnected records a successful broker session and leaves mock mode.
func (m *Monitor) MarkConnected() {
	m.set(true, false)
}

// MarkUnreachable records that the broker is unreachable and enters mock mode.
func (m *Monitor) MarkUnreachable() {
	m.set(false, true)
}

func (m *Monitor) set(reachable, mock bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn.Reachable == reachable && m.conn.MockMode == mock {
		return
	}
	m.conn = Connectivity{
		Reachable: reachable,
		MockMode:  mock,
		Since:     m.now(),
	}
}

// Snapshot returns a copy of the current connectivity.
func (m *Monitor) Snapshot() Connectivity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conn
}

// IsConnected reports whether the broker session is up.
func (m *Monitor) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conn.Reachable
}

// MockMode reports whether publishes should be suppressed.
func (m *Monitor) MockMode() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conn.MockMode
}
