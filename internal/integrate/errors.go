package integrate

import "errors"

var (
	// ErrIntegration wraps every step failure reported by Integrate and Remove.
	ErrIntegration = errors.New("integrate: step failed")

	// ErrNotInstalled is returned when no installation manifest exists in a directory.
	ErrNotInstalled = errors.New("integrate: no installation manifest")
)
