package notification

import "errors"

// Registry errors. Use errors.Is() to check.
var (
	// ErrDuplicateName is returned when registering a name that already exists.
	ErrDuplicateName = errors.New("notification: duplicate name")

	// ErrInvalidNotification is returned for an empty name or topic or a negative arity.
	ErrInvalidNotification = errors.New("notification: invalid definition")

	// ErrInvalidFormat is returned when the template's verb count differs from the arity.
	ErrInvalidFormat = errors.New("notification: format does not match arity")

	// ErrArityMismatch is returned by Update when the parameter count is wrong.
	// Callers treat it as a programming error.
	ErrArityMismatch = errors.New("notification: parameter count mismatch")

	// ErrInvalidHandle is returned for a handle this registry did not issue.
	ErrInvalidHandle = errors.New("notification: invalid handle")
)
