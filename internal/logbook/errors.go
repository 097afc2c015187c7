package logbook

import "errors"

var (
	// ErrPersistence is returned when a log append or read fails. Callers
	// report it and keep going; it never stops the control loop.
	ErrPersistence = errors.New("logbook: persistence failed")

	// ErrUnavailable is returned when an optional remote sink cannot be
	// reached at startup.
	ErrUnavailable = errors.New("logbook: sink unavailable")

	// ErrMalformedRecord is returned when a stored row cannot be decoded.
	ErrMalformedRecord = errors.New("logbook: malformed record")
)
