package download

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork marks transient transfer failures. The coordinator never
	// retries internally; retry policy belongs to the caller.
	ErrNetwork = errors.New("network failure")

	// ErrStalled marks transfers auto-cancelled after making no forward
	// progress for the configured interval. It is a network failure.
	ErrStalled = fmt.Errorf("%w: no forward progress", ErrNetwork)

	// ErrNoSession marks pause/resume/cancel requests for a track with no
	// live session.
	ErrNoSession = errors.New("no active download session")
)

func wrapNetwork(operation string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrNetwork, operation, err)
}
