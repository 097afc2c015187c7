//go:build !linux

package gpio

import "errors"

// LineDriver is not available on non-Linux platforms.
type LineDriver struct{}

// NewLineDriver returns an error on non-Linux platforms.
func NewLineDriver(chipName string) (*LineDriver, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Setup is not implemented on non-Linux platforms.
func (d *LineDriver) Setup(pin int) error {
	return errors.New("gpio: not supported")
}

// Set is not implemented on non-Linux platforms.
func (d *LineDriver) Set(pin int, on bool) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (d *LineDriver) Close() error {
	return nil
}
