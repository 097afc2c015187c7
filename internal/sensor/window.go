package sensor

import "sync"

// DefaultWindowSize is the number of readings kept in memory.
const DefaultWindowSize = 50

// Window is a fixed-capacity FIFO of readings. Once full, each push
// evicts the oldest reading. Safe for concurrent use.
type Window struct {
	mu       sync.RWMutex
	buf      []Reading
	capacity int
	head     int // next write position
	count    int
}

// NewWindow creates a Window. A non-positive capacity uses DefaultWindowSize.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultWindowSize
	}
	return &Window{
		buf:      make([]Reading, capacity),
		capacity: capacity,
	}
}

// Push appends r and reports whether the oldest reading was evicted.
func (w *Window) Push(r Reading) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	evicted := w.count == w.capacity
	// When full, head already points at the oldest entry.
	w.buf[w.head] = r
	w.head = (w.head + 1) % w.capacity
	if !evicted {
		w.count++
	}
	return evicted
}

// Readings returns a copy of the window, oldest first.
func (w *Window) Readings() []Reading {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]Reading, w.count)
	start := (w.head - w.count + w.capacity) % w.capacity
	for i := 0; i < w.count; i++ {
		out[i] = w.buf[(start+i)%w.capacity]
	}
	return out
}

// Latest returns the most recent reading, if any.
func (w *Window) Latest() (Reading, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.count == 0 {
		return Reading{}, false
	}
	return w.buf[(w.head-1+w.capacity)%w.capacity], true
}

// Len returns the number of readings held.
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.count
}

// Cap returns the window capacity.
func (w *Window) Cap() int {
	return w.capacity
}
