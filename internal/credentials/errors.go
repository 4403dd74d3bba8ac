package credentials

import "errors"

// Credential errors. Any of them aborts startup; none is retried.
var (
	// ErrStorageUnavailable is returned when the credential store cannot be read.
	ErrStorageUnavailable = errors.New("credentials: storage unavailable")

	// ErrCredentialsMissing is returned when no credentials are present.
	ErrCredentialsMissing = errors.New("credentials: not present")

	// ErrCredentialsMalformed is returned for undecodable or wrong-length data.
	ErrCredentialsMalformed = errors.New("credentials: malformed")

	// ErrUnknownSource is returned by NewProvider for an unrecognised source.
	ErrUnknownSource = errors.New("credentials: unknown source")
)
