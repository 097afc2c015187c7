package gpio

import "sync"

// Call is a single recorded Set.
type Call struct {
	Pin int
	On  bool
}

// FakeDriver is a test double that records Setup and Set calls.
type FakeDriver struct {
	mu sync.Mutex

	// SetupPins contains every pin passed to Setup, in order.
	SetupPins []int

	// Calls contains every Set, in order.
	Calls []Call

	// SetError, if set, will be returned by Set (the call is still recorded).
	SetError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeDriver creates a FakeDriver for testing.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{}
}

// Setup records the pin.
func (f *FakeDriver) Setup(pin int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SetupPins = append(f.SetupPins, pin)
	return nil
}

// Set records the call.
func (f *FakeDriver) Set(pin int, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, Call{Pin: pin, On: on})
	return f.SetError
}

// CallCount returns the number of Set calls.
func (f *FakeDriver) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// Close marks the driver as closed.
func (f *FakeDriver) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Reset clears recorded calls.
func (f *FakeDriver) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SetupPins = nil
	f.Calls = nil
	f.SetError = nil
	f.Closed = false
}
