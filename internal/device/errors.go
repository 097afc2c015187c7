package device

import "errors"

// Domain errors for the device package. Check with errors.Is.
var (
	// ErrNotFound is returned when a device ID is not registered.
	ErrNotFound = errors.New("device: not found")

	// ErrDuplicate is returned when two specs share an ID.
	ErrDuplicate = errors.New("device: duplicate id")

	// ErrInvalidState is returned for any state other than ON or OFF.
	ErrInvalidState = errors.New("device: invalid state")

	// ErrInvalidSpec is returned when a spec is missing required fields.
	ErrInvalidSpec = errors.New("device: invalid spec")
)
