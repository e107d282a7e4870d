package cachestore

import (
	"errors"
	"os"
	"sort"
	"time"

	"golang.org/x/sys/unix"

	"audiocache/internal/logging"
)

// EvictExpired deletes entries created more than maxAge ago, however
// recently they were played. Protected and leased entries survive. Returns
// the number of entries removed.
func (s *Store) EvictExpired(maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, errors.New("cachestore: eviction age must be positive")
	}

	cutoff := s.now().UTC().Add(-maxAge)
	removed := 0
	for _, candidate := range s.sortedCandidates() {
		if candidate.createdAt.After(cutoff) {
			continue
		}
		if s.protect(candidate.trackID) {
			continue
		}
		err := s.deleteEntry(candidate.trackID, false)
		if errors.Is(err, ErrEntryBusy) {
			continue
		}
		if err != nil {
			return removed, err
		}
		removed++
		s.logger.Info("evicted expired cache entry",
			logging.String(logging.FieldTrackID, candidate.trackID),
			logging.String(logging.FieldEventType, "cachestore_ttl_evict"),
			logging.Duration("age", s.now().UTC().Sub(candidate.createdAt)))
	}
	return removed, nil
}

// EvictUntilUnderBudget enforces the byte budget: when total on-disk bytes
// exceed highWaterBytes, oldest-accessed entries are deleted until usage
// drops to lowWaterBytes. Totals are recomputed from the files themselves on
// every sweep so the figure self-heals after crashes instead of drifting.
func (s *Store) EvictUntilUnderBudget(highWaterBytes, lowWaterBytes int64) (int, error) {
	if highWaterBytes <= 0 || lowWaterBytes <= 0 || lowWaterBytes > highWaterBytes {
		return 0, errors.New("cachestore: water marks must be positive with low <= high")
	}

	candidates := s.sortedCandidates()
	var total int64
	for _, candidate := range candidates {
		total += candidate.sizeBytes
	}
	if total <= highWaterBytes {
		return 0, nil
	}

	removed := 0
	for _, candidate := range candidates {
		if total <= lowWaterBytes {
			break
		}
		if s.protect(candidate.trackID) {
			continue
		}
		err := s.deleteEntry(candidate.trackID, false)
		if errors.Is(err, ErrEntryBusy) {
			continue
		}
		if err != nil {
			return removed, err
		}
		total -= candidate.sizeBytes
		removed++
		s.logger.Info("evicted cache entry over byte budget",
			logging.String(logging.FieldTrackID, candidate.trackID),
			logging.String(logging.FieldEventType, "cachestore_lru_evict"),
			logging.Int64("entry_size_bytes", candidate.sizeBytes),
			logging.Int64("total_bytes_after", total))
	}
	return removed, nil
}

type candidate struct {
	trackID      string
	createdAt    time.Time
	lastAccessed time.Time
	sizeBytes    int64
}

// sortedCandidates snapshots all entries ordered oldest-access-first with
// their current on-disk sizes.
func (s *Store) sortedCandidates() []candidate {
	ids := s.trackIDs()
	candidates := make([]candidate, 0, len(ids))
	for _, id := range ids {
		state, ok := s.state(id)
		if !ok {
			continue
		}
		state.mu.Lock()
		candidates = append(candidates, candidate{
			trackID:      id,
			createdAt:    state.entry.CreatedAt,
			lastAccessed: state.entry.LastAccessedAt,
			sizeBytes:    diskSizeLocked(state),
		})
		state.mu.Unlock()
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].lastAccessed.Before(candidates[j].lastAccessed)
	})
	return candidates
}

// diskSizeLocked sums the bytes the entry currently occupies. Caller holds
// state.mu.
func diskSizeLocked(state *entryState) int64 {
	var size int64
	for _, path := range []string{state.paths.Content, state.paths.Partial} {
		if info, err := os.Stat(path); err == nil {
			size += info.Size()
		}
	}
	return size
}

// Stats describes current cache usage.
type Stats struct {
	Entries      int     `json:"entries"`
	TotalBytes   int64   `json:"total_bytes"`
	FreeBytes    uint64  `json:"free_bytes"`
	TotalFSBytes uint64  `json:"total_fs_bytes"`
	FreeRatio    float64 `json:"free_ratio"`
}

// CurrentStats reports entry counts, summed on-disk bytes, and filesystem
// free space for the cache directory.
func (s *Store) CurrentStats() (Stats, error) {
	var stats Stats
	for _, candidate := range s.sortedCandidates() {
		stats.Entries++
		stats.TotalBytes += candidate.sizeBytes
	}

	total, free, err := s.statfs(s.root)
	if err != nil {
		return stats, wrapDisk("statfs cache directory", err)
	}
	stats.TotalFSBytes = total
	stats.FreeBytes = free
	stats.FreeRatio = 1.0
	if total > 0 {
		stats.FreeRatio = float64(free) / float64(total)
	}
	return stats, nil
}

// List returns a snapshot of all entries sorted oldest-access-first.
func (s *Store) List() []Entry {
	entries := make([]Entry, 0)
	for _, candidate := range s.sortedCandidates() {
		if entry, ok := s.Lookup(candidate.trackID); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

func realStatfs(path string) (uint64, uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}
