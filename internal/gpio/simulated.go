package gpio

import (
	"sync"

	"github.com/rs/zerolog"
)

// SimulatedDriver keeps output levels in memory. It is used when no GPIO
// chip is available, so the controller still runs on a laptop.
type SimulatedDriver struct {
	mu   sync.Mutex
	pins map[int]bool
	log  zerolog.Logger
}

// NewSimulatedDriver creates a SimulatedDriver that logs pin changes at debug level.
func NewSimulatedDriver(log zerolog.Logger) *SimulatedDriver {
	return &SimulatedDriver{
		pins: make(map[int]bool),
		log:  log.With().Str("component", "gpio-sim").Logger(),
	}
}

// Setup registers the pin low if it is not already known.
func (d *SimulatedDriver) Setup(pin int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.pins[pin]; !ok {
		d.pins[pin] = false
		d.log.Debug().Int("pin", pin).Msg("setup pin as output")
	}
	return nil
}

// Set records the pin level.
func (d *SimulatedDriver) Set(pin int, on bool) error {
	d.mu.Lock()
	d.pins[pin] = on
	d.mu.Unlock()

	level := "LOW"
	if on {
		level = "HIGH"
	}
	d.log.Debug().Int("pin", pin).Str("level", level).Msg("pin set")
	return nil
}

// Level returns the last level set on pin.
func (d *SimulatedDriver) Level(pin int) (on bool, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	on, ok = d.pins[pin]
	return on, ok
}

// Close is a no-op.
func (d *SimulatedDriver) Close() error {
	return nil
}
