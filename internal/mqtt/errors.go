package mqtt

import "errors"

// Domain-specific errors for bus operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrConnection is returned when the broker is unreachable or rejects
	// the session. It is recoverable: the bus falls back to mock mode.
	ErrConnection = errors.New("mqtt: connection failed")

	// ErrMalformedMessage is returned for inbound payloads that cannot be
	// parsed or that reference an unknown device. Such messages are dropped.
	ErrMalformedMessage = errors.New("mqtt: malformed message")

	// ErrNotConnected is returned when publishing on a closed session.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrInvalidTopic is returned when an empty topic is provided.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")

	// ErrTimeout is returned when a broker operation times out.
	ErrTimeout = errors.New("mqtt: operation timed out")
)
