package playback

import (
	"context"

	"audiocache/internal/cachestore"
)

// Track carries the stable identity the track-identity collaborator supplies
// for one audio track. RemoteContentID identifies the backend object and is
// distinct from the short-lived signed URL used to stream it.
type Track struct {
	ID                   string
	RemoteContentID      string
	DisplayFilename      string
	ApproximateSizeBytes int64
}

// ContentResolver obtains a short-lived signed streaming URL for a track.
// The cache never persists these URLs; it re-requests one on every remote
// fallback.
type ContentResolver interface {
	ResolveStreamingURL(ctx context.Context, track Track) (string, error)
}

// PlaybackMonitor reports whether a track is currently playing. Playing
// tracks are protected from eviction.
type PlaybackMonitor interface {
	IsPlaying(trackID string) bool
}

// EvictionProtection adapts the playback monitor into the store's eviction
// veto, for use with cachestore.WithProtect. A nil monitor protects nothing.
func EvictionProtection(monitor PlaybackMonitor) cachestore.ProtectFunc {
	return func(trackID string) bool {
		return monitor != nil && monitor.IsPlaying(trackID)
	}
}
