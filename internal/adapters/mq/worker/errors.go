package worker

import (
	"errors"
	"fmt"
)

// ErrNoAttempts is returned when a fetch was never attempted.
var ErrNoAttempts = errors.New("fetch not attempted")

// FetchError records a file that could not be fetched after all attempts.
type FetchError struct {
	Target   string
	RemoteID string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s after %d attempt(s): %v", e.Target, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
