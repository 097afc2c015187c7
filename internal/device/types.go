// Package device holds the authoritative state of the controller's devices.
// This package has NO external dependencies (no GPIO, MQTT or filesystem).
package device

import (
	"fmt"
	"strings"
)

// State represents the logical state of a device. It is always one of
// exactly two values.
type State string

const (
	StateOn  State = "ON"
	StateOff State = "OFF"
)

// ParseState converts a wire or user value into a State.
// Surrounding whitespace and letter case are ignored.
func ParseState(s string) (State, error) {
	switch State(strings.ToUpper(strings.TrimSpace(s))) {
	case StateOn:
		return StateOn, nil
	case StateOff:
		return StateOff, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidState, s)
}

// Valid reports whether s is ON or OFF.
func (s State) Valid() bool {
	return s == StateOn || s == StateOff
}

// Toggle returns the opposite state.
func (s State) Toggle() State {
	if s == StateOn {
		return StateOff
	}
	return StateOn
}

// On reports whether the state drives the output high.
func (s State) On() bool {
	return s == StateOn
}

// Class is the capability class of a device.
type Class string

const (
	// ClassActuator is a binary output (light, fan).
	ClassActuator Class = "actuator"
	// ClassSensor is a binary sensor input (door contact).
	ClassSensor Class = "sensor"
)

// Spec is the static description of a device, loaded once at startup.
type Spec struct {
	ID      string
	Address int // BCM pin number
	Name    string
	Icon    string
	Class   Class
}

// Device is a point-in-time copy of a registered device.
type Device struct {
	ID      string
	Address int
	Name    string
	Icon    string
	Class   Class
	State   State
}

// Label returns the human-facing state. Sensor-class devices read
// OPEN/CLOSED instead of ON/OFF.
func (d Device) Label() string {
	if d.Class == ClassSensor {
		if d.State == StateOn {
			return "OPEN"
		}
		return "CLOSED"
	}
	return string(d.State)
}
