package runtime

import "errors"

// Scheduler errors. Use errors.Is() to check.
var (
	// ErrStartup wraps the cause of a failed startup step.
	ErrStartup = errors.New("runtime: startup failed")

	// ErrMissingDependency is returned by New when a required collaborator is nil.
	ErrMissingDependency = errors.New("runtime: missing dependency")

	// ErrNotStarted is returned by Run before a successful Startup.
	ErrNotStarted = errors.New("runtime: not started")

	// ErrAlreadyStarted is returned when Startup is called twice.
	ErrAlreadyStarted = errors.New("runtime: already started")
)
