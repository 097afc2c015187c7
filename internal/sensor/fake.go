package sensor

import (
	"errors"
	"sync"
)

// FakeSensor is a test double that returns scripted values.
type FakeSensor struct {
	mu sync.Mutex

	// Values contains scripted readings. Each call to Read consumes the
	// next value; once exhausted the last value repeats.
	Values []float64

	index int

	// ReadError, if set, will be returned by Read.
	ReadError error

	// Reads counts calls to Read.
	Reads int
}

// NewFakeSensor creates a FakeSensor with the given values.
func NewFakeSensor(values ...float64) *FakeSensor {
	return &FakeSensor{Values: values}
}

// Read returns the next scripted value.
func (f *FakeSensor) Read() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Reads++
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.Values) == 0 {
		return 0, errors.New("no values configured")
	}

	v := f.Values[f.index]
	if f.index < len(f.Values)-1 {
		f.index++
	}
	return v, nil
}
