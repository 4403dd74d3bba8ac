package cloud

import "errors"

// Link errors. Use errors.Is() to check.
var (
	// ErrNotConfigured is returned before Configure has been called.
	ErrNotConfigured = errors.New("cloud: link not configured")

	// ErrAlreadyConfigured is returned when Configure is called twice.
	ErrAlreadyConfigured = errors.New("cloud: link already configured")

	// ErrNotConnected is returned when emitting while the link is down.
	ErrNotConnected = errors.New("cloud: not connected")

	// ErrQueueFull is returned when the outbound queue has no room.
	ErrQueueFull = errors.New("cloud: outbound queue full")

	// ErrUnknownEncoding is returned for an unsupported payload encoding.
	ErrUnknownEncoding = errors.New("cloud: unknown encoding")

	// ErrDecode is returned when an inbound payload cannot be decoded.
	ErrDecode = errors.New("cloud: decode failed")
)
