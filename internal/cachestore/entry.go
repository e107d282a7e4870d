package cachestore

import "time"

// Status describes how much of a track's content is cached.
type Status string

const (
	StatusEmpty    Status = "empty"
	StatusPartial  Status = "partial"
	StatusComplete Status = "complete"
)

// Entry is the metadata record for one cached track. It is persisted verbatim
// as the JSON sidecar next to the content file.
//
// Invariants: CachedRanges is sorted ascending, non-overlapping, and
// non-adjacent; Status is complete iff CachedRanges is exactly
// [0, TotalSizeBytes), and empty iff CachedRanges is empty.
type Entry struct {
	TrackID         string      `json:"track_id"`
	RemoteContentID string      `json:"remote_content_id"`
	DisplayFilename string      `json:"display_filename"`
	TotalSizeBytes  int64       `json:"total_size_bytes"` // <= 0 until known
	CachedRanges    []ByteRange `json:"cached_ranges,omitempty"`
	Status          Status      `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
	LastAccessedAt  time.Time   `json:"last_accessed_at"`
}

// CachedBytes returns the number of bytes currently covered by CachedRanges.
func (e Entry) CachedBytes() int64 {
	return rangesTotal(e.CachedRanges)
}

// ContiguousPrefix returns the end of the cached prefix starting at byte 0,
// or 0 when the entry has no such prefix. The prefix downloader resumes from
// here.
func (e Entry) ContiguousPrefix() int64 {
	if len(e.CachedRanges) > 0 && e.CachedRanges[0].Start == 0 {
		return e.CachedRanges[0].End
	}
	return 0
}

// CoversPosition reports whether the byte at pos is cached.
func (e Entry) CoversPosition(pos int64) bool {
	return rangesCover(e.CachedRanges, pos)
}

// recomputeStatus derives Status from CachedRanges and TotalSizeBytes.
func (e *Entry) recomputeStatus() {
	switch {
	case len(e.CachedRanges) == 0:
		e.Status = StatusEmpty
	case e.TotalSizeBytes > 0 &&
		len(e.CachedRanges) == 1 &&
		e.CachedRanges[0].Start == 0 &&
		e.CachedRanges[0].End == e.TotalSizeBytes:
		e.Status = StatusComplete
	default:
		e.Status = StatusPartial
	}
}

// reset clears all coverage, returning the entry to the empty state.
func (e *Entry) reset() {
	e.CachedRanges = nil
	e.Status = StatusEmpty
}
