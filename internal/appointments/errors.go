package appointments

import "errors"

var (
	// ErrNotFound is returned when no appointment has the requested id.
	ErrNotFound = errors.New("appointments: not found")
	// ErrCancelled is returned when a cancelled appointment is rescheduled.
	ErrCancelled = errors.New("appointments: appointment is cancelled")
	// ErrUnknownStatus is returned when a stored row carries a status this service does not handle.
	ErrUnknownStatus = errors.New("appointments: unknown status")
)
