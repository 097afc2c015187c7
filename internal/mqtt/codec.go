package mqtt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sweeney/home-controller/internal/device"
)

// commandDelimiter separates the device ID from the action.
const commandDelimiter = ":"

// readingLabel prefixes sensor payloads.
const readingLabel = "Temperature"

// Command is a parsed control-topic message.
type Command struct {
	DeviceID string
	State    device.State
}

// ParseCommand parses "<deviceId>:<ON|OFF>". It does not check that the
// device exists; that is the registry's job.
func ParseCommand(payload []byte) (Command, error) {
	s := strings.TrimSpace(string(payload))
	id, action, ok := strings.Cut(s, commandDelimiter)
	if !ok {
		return Command{}, fmt.Errorf("%w: missing delimiter in %q", ErrMalformedMessage, s)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Command{}, fmt.Errorf("%w: empty device id in %q", ErrMalformedMessage, s)
	}
	state, err := device.ParseState(action)
	if err != nil {
		return Command{}, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	return Command{DeviceID: id, State: state}, nil
}

// FormatCommand builds "<deviceId>:<ON|OFF>".
func FormatCommand(deviceID string, state device.State) []byte {
	return []byte(deviceID + commandDelimiter + string(state))
}

// FormatReading builds "Temperature:<value with 2 decimal places>".
func FormatReading(value float64) []byte {
	return []byte(readingLabel + commandDelimiter + strconv.FormatFloat(value, 'f', 2, 64))
}
