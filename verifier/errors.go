package verifier

import (
	"errors"
	"fmt"
)

// The coordinator's error taxonomy. Probe failures are deliberately absent:
// a transient network failure while checking a third-party domain is a
// routine outcome recorded on the record, not an error to surface.
var (
	// ErrNotFound: the referenced company or record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState: the operation is forbidden by the record or company
	// state (already verified, no claimed domain, ceiling reached).
	ErrInvalidState = errors.New("invalid state")
)

func notFound(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, a...))
}

func invalidState(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, a...))
}
