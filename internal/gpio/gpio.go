// Package gpio drives device outputs with hardware abstraction.
// The line driver uses the Linux GPIO character device.
// The simulated driver keeps pin levels in memory for hosts without GPIO.
// The fake driver records calls for tests.
package gpio

// Driver sets output pin levels.
type Driver interface {
	// Setup configures the pin as an output, initially low.
	Setup(pin int) error

	// Set drives the pin high (on) or low.
	Set(pin int, on bool) error

	// Close releases GPIO resources.
	Close() error
}

// DefaultChip is the GPIO character device on a Raspberry Pi.
const DefaultChip = "gpiochip0"
