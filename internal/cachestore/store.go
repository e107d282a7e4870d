package cachestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"audiocache/internal/logging"
)

// ProtectFunc reports whether a track is currently in use by the playback
// client and therefore exempt from eviction.
type ProtectFunc func(trackID string) bool

// statfsFunc allows tests to stub filesystem stats.
type statfsFunc func(path string) (total uint64, free uint64, err error)

// Store owns the cache directory: content files, metadata sidecars, and the
// in-memory entry index loaded from them at startup.
type Store struct {
	root    string
	logger  *slog.Logger
	now     func() time.Time
	statfs  statfsFunc
	protect ProtectFunc

	mu      sync.Mutex
	entries map[string]*entryState
}

type entryState struct {
	mu     sync.Mutex
	entry  Entry
	paths  EntryPaths
	leased bool
}

// Option customizes store construction.
type Option func(*Store)

// WithClock injects the time source used for created/accessed stamps, so
// tests age entries without waiting.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithProtect injects the currently-playing veto consulted by eviction.
func WithProtect(protect ProtectFunc) Option {
	return func(s *Store) {
		if protect != nil {
			s.protect = protect
		}
	}
}

// NewStore opens (or creates) the cache directory rooted at root and loads
// the metadata sidecars found there.
func NewStore(root string, logger *slog.Logger, opts ...Option) (*Store, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("cachestore: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, wrapDisk("create cache directory", err)
	}

	s := &Store{
		root:    root,
		logger:  logging.NewComponentLogger(logger, "cachestore"),
		now:     time.Now,
		statfs:  realStatfs,
		protect: func(string) bool { return false },
		entries: make(map[string]*entryState),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.load()
	return s, nil
}

// Root returns the cache directory path.
func (s *Store) Root() string { return s.root }

// load scans the root for metadata sidecars. Unreadable sidecars are skipped
// with a warning; their content files will be reclaimed by the next sweep.
func (s *Store) load() {
	dirEntries, err := os.ReadDir(s.root)
	if err != nil {
		s.logger.Warn("failed to scan cache directory; starting empty",
			logging.String(logging.FieldEventType, "cachestore_scan_failed"),
			logging.Error(err))
		return
	}

	for _, dirEntry := range dirEntries {
		name := dirEntry.Name()
		if dirEntry.IsDir() || !strings.HasSuffix(name, sidecarSuffix) {
			continue
		}
		path := filepath.Join(s.root, name)
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("failed to read metadata sidecar; skipping entry",
				logging.String(logging.FieldEventType, "cachestore_sidecar_unreadable"),
				logging.String("path", path),
				logging.Error(err))
			continue
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil || strings.TrimSpace(entry.TrackID) == "" {
			s.logger.Warn("failed to parse metadata sidecar; skipping entry",
				logging.String(logging.FieldEventType, "cachestore_sidecar_corrupt"),
				logging.String("path", path),
				logging.Error(err))
			continue
		}
		s.entries[entry.TrackID] = &entryState{
			entry: entry,
			paths: entryPathsIn(s.root, entry.TrackID, entry.RemoteContentID),
		}
	}

	if len(s.entries) > 0 {
		s.logger.Debug("loaded cache metadata",
			logging.Int("entry_count", len(s.entries)),
			logging.String("path", s.root))
	}
}

func (s *Store) state(trackID string) (*entryState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.entries[trackID]
	return state, ok
}

// Lookup returns the entry for trackID, verifying that the backing file
// actually holds the bytes the metadata claims. Inconsistent entries are
// reset to empty and reported as such rather than erroring; a miss returns
// ok=false.
func (s *Store) Lookup(trackID string) (Entry, bool) {
	state, ok := s.state(trackID)
	if !ok {
		return Entry{}, false
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	s.verifyLocked(state)
	return state.entry, true
}

// verifyLocked checks metadata claims against the backing file and self-heals
// to empty when they cannot be satisfied. Caller holds state.mu.
func (s *Store) verifyLocked(state *entryState) {
	entry := &state.entry
	if entry.Status == StatusEmpty {
		return
	}
	// The owning download session moves the files around (promoting the
	// partial to the content file, restarting after an ignored range
	// request). Verifying inside those windows would misread them as
	// corruption and destroy a live transfer, so leased entries are taken
	// at their word until the lease is released.
	if state.leased {
		return
	}

	backing := state.paths.Partial
	if entry.Status == StatusComplete {
		backing = state.paths.Content
	}

	info, err := os.Stat(backing)
	need := rangesMaxEnd(entry.CachedRanges)
	if err == nil && info.Size() >= need {
		return
	}

	// Metadata claims bytes the file does not have. Trusting it would hand
	// the playback client a broken local source, so reset and report a miss.
	s.logger.Warn("cache metadata inconsistent with content file; resetting entry",
		logging.String(logging.FieldEventType, "cachestore_entry_reset"),
		logging.String(logging.FieldTrackID, entry.TrackID),
		logging.String("backing_file", backing),
		logging.Int64("claimed_bytes", need),
		logging.String(logging.FieldErrorHint, "the host platform may have purged the cache directory"))

	_ = os.Remove(state.paths.Content)
	_ = os.Remove(state.paths.Partial)
	entry.reset()
	if err := s.persistLocked(state); err != nil {
		s.logger.Warn("failed to persist reset entry",
			logging.String(logging.FieldTrackID, entry.TrackID),
			logging.Error(err))
	}
}

// Allocate creates the entry for trackID or returns the existing one.
// Repeated calls with the same (trackID, remoteContentID) pair are
// idempotent. When remoteContentID differs from the stored one the remote
// content was replaced: the entry resets to empty and the stale files are
// removed.
func (s *Store) Allocate(trackID, remoteContentID, filename string, expectedSizeBytes int64) (Entry, error) {
	trackID = strings.TrimSpace(trackID)
	remoteContentID = strings.TrimSpace(remoteContentID)
	if trackID == "" {
		return Entry{}, errors.New("cachestore: track ID is required")
	}
	if remoteContentID == "" {
		return Entry{}, errors.New("cachestore: remote content ID is required")
	}
	filename = normalizeFilename(filename)

	s.mu.Lock()
	state, ok := s.entries[trackID]
	if !ok {
		state = &entryState{
			entry: Entry{
				TrackID:         trackID,
				RemoteContentID: remoteContentID,
				DisplayFilename: filename,
				TotalSizeBytes:  expectedSizeBytes,
				Status:          StatusEmpty,
				CreatedAt:       s.now().UTC(),
				LastAccessedAt:  s.now().UTC(),
			},
			paths: entryPathsIn(s.root, trackID, remoteContentID),
		}
		s.entries[trackID] = state
	}
	s.mu.Unlock()

	state.mu.Lock()
	defer state.mu.Unlock()

	if state.entry.RemoteContentID != remoteContentID {
		// Remote content replaced: everything cached for the old content is
		// stale, including the file names derived from the old ID.
		_ = os.Remove(state.paths.Content)
		_ = os.Remove(state.paths.Partial)
		_ = os.Remove(state.paths.Sidecar)

		state.entry = Entry{
			TrackID:         trackID,
			RemoteContentID: remoteContentID,
			DisplayFilename: filename,
			TotalSizeBytes:  expectedSizeBytes,
			Status:          StatusEmpty,
			CreatedAt:       s.now().UTC(),
			LastAccessedAt:  s.now().UTC(),
		}
		state.paths = entryPathsIn(s.root, trackID, remoteContentID)
		s.logger.Info("remote content replaced; cache entry reset",
			logging.String(logging.FieldTrackID, trackID),
			logging.String("remote_content_id", remoteContentID))
	} else {
		if filename != "" {
			state.entry.DisplayFilename = filename
		}
		if state.entry.TotalSizeBytes <= 0 && expectedSizeBytes > 0 {
			state.entry.TotalSizeBytes = expectedSizeBytes
		}
	}

	if err := s.persistLocked(state); err != nil {
		return Entry{}, err
	}
	return state.entry, nil
}

// CommitRange merges a durably written byte range into the entry's coverage.
// The status argument is the caller's intent: passing StatusComplete on a
// final commit fixes TotalSizeBytes when the transport never reported one.
// The stored status is always recomputed from the merged ranges.
func (s *Store) CommitRange(trackID string, r ByteRange, status Status) (Entry, error) {
	if !r.valid() {
		return Entry{}, fmt.Errorf("cachestore: invalid range %s", r)
	}
	state, ok := s.state(trackID)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, trackID)
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	updated := state.entry
	updated.CachedRanges = mergeRange(updated.CachedRanges, r)
	if status == StatusComplete && updated.TotalSizeBytes <= 0 {
		updated.TotalSizeBytes = rangesMaxEnd(updated.CachedRanges)
	}
	updated.recomputeStatus()

	// Persist before publishing so a sidecar write failure leaves the
	// in-memory entry untouched.
	previous := state.entry
	state.entry = updated
	if err := s.persistLocked(state); err != nil {
		state.entry = previous
		return Entry{}, err
	}
	return updated, nil
}

// Touch updates the entry's last-access stamp, driving LRU order. It is
// independent of the write path and never changes coverage.
func (s *Store) Touch(trackID string) error {
	state, ok := s.state(trackID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, trackID)
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	previous := state.entry
	state.entry.LastAccessedAt = s.now().UTC()
	if err := s.persistLocked(state); err != nil {
		state.entry = previous
		return err
	}
	return nil
}

// Delete removes the entry and its files. Deletion is refused while a
// download session owns the entry; the caller must cancel first.
func (s *Store) Delete(trackID string) error {
	return s.deleteEntry(trackID, false)
}

// deleteEntry removes an entry and its files all-or-nothing. When force is
// false a leased entry is refused with ErrEntryBusy.
func (s *Store) deleteEntry(trackID string, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.entries[trackID]
	if !ok {
		return nil
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if state.leased && !force {
		return fmt.Errorf("%w: %s", ErrEntryBusy, trackID)
	}

	for _, path := range []string{state.paths.Content, state.paths.Partial, state.paths.Sidecar} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return wrapDisk("remove cache entry", err)
		}
	}
	delete(s.entries, trackID)

	s.logger.Debug("deleted cache entry", logging.String(logging.FieldTrackID, trackID))
	return nil
}

// AcquireLease marks the entry as owned by a download session. Leased
// entries are exempt from eviction and explicit deletion.
func (s *Store) AcquireLease(trackID string) error {
	state, ok := s.state(trackID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, trackID)
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.leased {
		return fmt.Errorf("%w: %s", ErrEntryBusy, trackID)
	}
	state.leased = true
	return nil
}

// ReleaseLease clears the download-session ownership mark.
func (s *Store) ReleaseLease(trackID string) {
	state, ok := s.state(trackID)
	if !ok {
		return
	}
	state.mu.Lock()
	state.leased = false
	state.mu.Unlock()
}

// Paths returns the on-disk file locations for the entry.
func (s *Store) Paths(trackID string) (EntryPaths, bool) {
	state, ok := s.state(trackID)
	if !ok {
		return EntryPaths{}, false
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.paths, true
}

// persistLocked writes the sidecar atomically via temp-file-then-rename so a
// crash never leaves metadata claiming more than the file holds or vice
// versa. Caller holds state.mu.
func (s *Store) persistLocked(state *entryState) error {
	data, err := json.MarshalIndent(state.entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	tmpPath := state.paths.Sidecar + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return wrapDisk("write metadata temp file", err)
	}
	if err := os.Rename(tmpPath, state.paths.Sidecar); err != nil {
		os.Remove(tmpPath)
		return wrapDisk("rename metadata temp file", err)
	}
	return nil
}

// trackIDs snapshots the set of known tracks.
func (s *Store) trackIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	return ids
}
