package rpc

import "errors"

// Registry and dispatch errors. Use errors.Is() to check, and Status to
// convert to the code returned to the cloud.
var (
	// ErrDuplicateName is returned when a name is registered twice in one direction.
	ErrDuplicateName = errors.New("rpc: duplicate name")

	// ErrInvalidHandler is returned for an empty name or nil handler.
	ErrInvalidHandler = errors.New("rpc: invalid handler")

	// ErrUnknownName is returned when dispatching a name with no handler.
	ErrUnknownName = errors.New("rpc: unknown name")

	// ErrAccessDenied is returned when a non-owner calls an owner-only handler.
	ErrAccessDenied = errors.New("rpc: access denied")

	// ErrInvalidResult is returned when a JSON handler produces invalid JSON.
	ErrInvalidResult = errors.New("rpc: invalid result")

	// ErrHandlerFailed wraps a handler error or recovered panic.
	ErrHandlerFailed = errors.New("rpc: handler failed")
)
