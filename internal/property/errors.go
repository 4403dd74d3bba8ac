package property

import "errors"

// Registry errors. Use errors.Is() to check.
var (
	// ErrDuplicateKey is returned when registering a key that already exists.
	ErrDuplicateKey = errors.New("property: duplicate key")

	// ErrInvalidProperty is returned for an empty key or a non-positive scale or interval.
	ErrInvalidProperty = errors.New("property: invalid definition")

	// ErrInvalidGroup is returned for a non-positive group interval.
	ErrInvalidGroup = errors.New("property: invalid group")

	// ErrAlreadyGrouped is returned when adding a property that already has a group.
	ErrAlreadyGrouped = errors.New("property: already in a group")

	// ErrInvalidHandle is returned for a handle this registry did not issue.
	ErrInvalidHandle = errors.New("property: invalid handle")

	// ErrNotFound is returned by Lookup for an unknown key.
	ErrNotFound = errors.New("property: not found")
)
