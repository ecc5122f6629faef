package meteogram

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned when the setup fetch fails for any reason.
	// The fetch does not reliably tell "unknown location" apart from
	// "service unreachable", so neither does this error.
	ErrValidation = errors.New("invalid location or connection error")

	// ErrUnexpected wraps any other failure during setup validation.
	ErrUnexpected = errors.New("unexpected error during validation")

	// ErrAlreadyConfigured is returned when an entry with the same unique id exists.
	ErrAlreadyConfigured = errors.New("entry already configured")

	// ErrNotLoaded is returned for entries that have no coordinator set up.
	ErrNotLoaded = errors.New("entry not loaded")
)

// UpdateFailedError is the recoverable error a refresh reports when the fetch
// fails. The cached image is left untouched.
type UpdateFailedError struct {
	Err error
}

func (e *UpdateFailedError) Error() string {
	return fmt.Sprintf("error communicating with API: %v", e.Err)
}

func (e *UpdateFailedError) Unwrap() error {
	return e.Err
}
