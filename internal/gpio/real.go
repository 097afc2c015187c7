//go:build linux

package gpio

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// LineDriver drives outputs on actual hardware using the Linux GPIO character device.
type LineDriver struct {
	mu    sync.Mutex
	chip  *gpiocdev.Chip
	lines map[int]*gpiocdev.Line
}

// NewLineDriver opens the named GPIO chip (e.g. "gpiochip0").
func NewLineDriver(chipName string) (*LineDriver, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer("home-controller"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}
	return &LineDriver{
		chip:  chip,
		lines: make(map[int]*gpiocdev.Line),
	}, nil
}

// Setup requests the pin as an output, initially low. Calling Setup twice
// for the same pin is a no-op.
func (d *LineDriver) Setup(pin int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.lines[pin]; ok {
		return nil
	}
	line, err := d.chip.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		return fmt.Errorf("request pin %d: %w", pin, err)
	}
	d.lines[pin] = line
	return nil
}

// Set drives the pin. Pins not yet set up are requested on first use.
func (d *LineDriver) Set(pin int, on bool) error {
	if err := d.Setup(pin); err != nil {
		return err
	}

	d.mu.Lock()
	line := d.lines[pin]
	d.mu.Unlock()

	v := 0
	if on {
		v = 1
	}
	if err := line.SetValue(v); err != nil {
		return fmt.Errorf("set pin %d: %w", pin, err)
	}
	return nil
}

// Close releases GPIO resources.
// Reconfigures pins to input with pull-down (matching Pi boot defaults) before
// closing so outputs are not left driven across a restart.
func (d *LineDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for pin, line := range d.lines {
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", pin, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", pin, err))
		}
	}
	d.lines = make(map[int]*gpiocdev.Line)

	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		d.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
