package provisioning

import "errors"

// Domain errors. Use errors.Is() to check.
var (
	// ErrInvalidInput is returned when an input cannot be constructed.
	ErrInvalidInput = errors.New("provisioning: invalid input")

	// ErrInputRead is returned when the button level cannot be sampled.
	ErrInputRead = errors.New("provisioning: input read failed")

	// ErrEventStore is returned when an event cannot be recorded or listed.
	ErrEventStore = errors.New("provisioning: event store failed")
)
