package cachestore

import (
	"errors"
	"fmt"
)

var (
	// ErrDisk marks write-path I/O failures (disk full, permissions). The
	// failed operation aborts without a partial commit.
	ErrDisk = errors.New("disk failure")

	// ErrNotFound marks operations against a track with no cache entry.
	ErrNotFound = errors.New("cache entry not found")

	// ErrEntryBusy marks destructive operations refused because a download
	// session currently owns the entry.
	ErrEntryBusy = errors.New("cache entry has an active download session")
)

func wrapDisk(operation string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDisk, operation, err)
}
