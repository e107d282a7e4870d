package cachestore

import (
	"context"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"

	"audiocache/internal/logging"
)

// WatchExternalPurges blocks watching the cache directory for files removed
// behind the store's back (the host platform reclaiming space). Affected
// entries are re-verified so the next lookup reports an honest miss instead
// of pointing playback at a vanished file. Returns when ctx ends.
func (s *Store) WatchExternalPurges(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("cachestore: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.root); err != nil {
		return fmt.Errorf("cachestore: watch %s: %w", s.root, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if strings.HasSuffix(event.Name, ".tmp") {
				continue
			}
			if trackID, ok := s.trackForPath(event.Name); ok {
				s.logger.Debug("cache file vanished externally; re-verifying entry",
					logging.String(logging.FieldTrackID, trackID),
					logging.String("path", event.Name))
				s.Lookup(trackID)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("cache directory watcher error",
				logging.String(logging.FieldEventType, "cachestore_watch_error"),
				logging.Error(err))
		}
	}
}

// trackForPath resolves which entry a cache file path belongs to.
func (s *Store) trackForPath(path string) (string, bool) {
	for _, id := range s.trackIDs() {
		state, ok := s.state(id)
		if !ok {
			continue
		}
		state.mu.Lock()
		paths := state.paths
		state.mu.Unlock()
		if path == paths.Content || path == paths.Partial || path == paths.Sidecar {
			return id, true
		}
	}
	return "", false
}
