package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"audiocache/internal/cachestore"
	"audiocache/internal/download"
	"audiocache/internal/logging"
	"audiocache/internal/progress"
)

// SourceKind tells the player where to read the track from.
type SourceKind string

const (
	SourceLocal  SourceKind = "local"
	SourceRemote SourceKind = "remote"
)

// Source is the playback source decision: a local file path or a signed
// streaming URL.
type Source struct {
	Kind      SourceKind
	LocalPath string
	RemoteURL string
}

// Facade is the playback client's entry point to the cache.
type Facade struct {
	store       *cachestore.Store
	coordinator *download.Coordinator
	resolver    ContentResolver
	tracker     *progress.Tracker
	logger      *slog.Logger

	urls singleflight.Group
}

// NewFacade wires the cache components behind the playback API. The tracker
// is optional; when nil, progress snapshots are simply not cleared on
// removal.
func NewFacade(store *cachestore.Store, coordinator *download.Coordinator, resolver ContentResolver, tracker *progress.Tracker, logger *slog.Logger) (*Facade, error) {
	if store == nil || coordinator == nil || resolver == nil {
		return nil, errors.New("playback: store, coordinator, and resolver are required")
	}
	return &Facade{
		store:       store,
		coordinator: coordinator,
		resolver:    resolver,
		tracker:     tracker,
		logger:      logging.NewComponentLogger(logger, "playback"),
	}, nil
}

// ResolvePlaybackSource decides where the player should read the track. The
// answer comes from local metadata plus the content-resolution collaborator;
// it never blocks on a network transfer. Position is accepted for a future
// range-aware variant; v1 serves locally only when the entry is complete.
func (f *Facade) ResolvePlaybackSource(ctx context.Context, track Track, position int64) (Source, error) {
	if entry, ok := f.store.Lookup(track.ID); ok && entry.Status == cachestore.StatusComplete {
		paths, ok := f.store.Paths(track.ID)
		if ok {
			if err := f.store.Touch(track.ID); err != nil {
				f.logger.Warn("failed to touch cache entry on playback",
					logging.String(logging.FieldTrackID, track.ID),
					logging.Error(err))
			}
			return Source{Kind: SourceLocal, LocalPath: paths.Content}, nil
		}
	}

	url, err := f.resolveURL(ctx, track)
	if err != nil {
		return Source{}, fmt.Errorf("resolve streaming url: %w", err)
	}
	return Source{Kind: SourceRemote, RemoteURL: url}, nil
}

// EnsureBackgroundCaching starts a download for the track unless one is
// already active or the entry is complete. It is fire-and-forget and safe to
// call on every playback tick: single-flight makes repeats free, and
// failures are logged without ever disrupting playback, which retains the
// remote fallback.
func (f *Facade) EnsureBackgroundCaching(ctx context.Context, track Track, position int64) {
	if entry, ok := f.store.Lookup(track.ID); ok && entry.Status == cachestore.StatusComplete {
		return
	}
	if f.coordinator.IsActive(track.ID) {
		return
	}

	url, err := f.resolveURL(ctx, track)
	if err != nil {
		f.logger.Warn("background caching skipped; could not resolve streaming url",
			logging.String(logging.FieldTrackID, track.ID),
			logging.String(logging.FieldEventType, "background_caching_skipped"),
			logging.Error(err))
		return
	}

	if _, err := f.coordinator.StartCaching(ctx, download.StartRequest{
		TrackID:           track.ID,
		RemoteContentID:   track.RemoteContentID,
		Filename:          track.DisplayFilename,
		SourceURL:         url,
		ExpectedSizeBytes: track.ApproximateSizeBytes,
	}); err != nil {
		f.logger.Warn("background caching failed to start",
			logging.String(logging.FieldTrackID, track.ID),
			logging.String(logging.FieldEventType, "background_caching_failed"),
			logging.Error(err))
	}
}

// StartOfflineDownload begins an explicit user-requested download and
// surfaces errors so the caller can offer a retry. Returns the transfer
// handle; if a session is already live, its handle.
func (f *Facade) StartOfflineDownload(ctx context.Context, track Track, onProgress download.ProgressFunc) (*download.Handle, error) {
	url, err := f.resolveURL(ctx, track)
	if err != nil {
		return nil, fmt.Errorf("resolve streaming url: %w", err)
	}
	return f.coordinator.StartCaching(ctx, download.StartRequest{
		TrackID:           track.ID,
		RemoteContentID:   track.RemoteContentID,
		Filename:          track.DisplayFilename,
		SourceURL:         url,
		ExpectedSizeBytes: track.ApproximateSizeBytes,
		OnProgress:        onProgress,
	})
}

// RemoveCache cancels any active download for the track, then deletes its
// entry and files.
func (f *Facade) RemoveCache(track Track) error {
	if err := f.coordinator.Cancel(track.ID); err != nil && !errors.Is(err, download.ErrNoSession) {
		return err
	}
	if f.tracker != nil {
		f.tracker.Forget(track.ID)
	}
	if err := f.store.Delete(track.ID); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// CancelCaching aborts the track's download, keeping committed bytes.
func (f *Facade) CancelCaching(trackID string) error {
	err := f.coordinator.Cancel(trackID)
	if errors.Is(err, download.ErrNoSession) {
		return nil
	}
	return err
}

// resolveURL deduplicates concurrent signed-URL requests per track; the URLs
// are short-lived and never persisted.
func (f *Facade) resolveURL(ctx context.Context, track Track) (string, error) {
	result, err, _ := f.urls.Do(track.ID, func() (any, error) {
		return f.resolver.ResolveStreamingURL(ctx, track)
	})
	if err != nil {
		return "", err
	}
	url, _ := result.(string)
	if strings.TrimSpace(url) == "" {
		return "", errors.New("content resolver returned an empty url")
	}
	return url, nil
}
