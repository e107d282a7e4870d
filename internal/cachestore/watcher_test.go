package cachestore

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"audiocache/internal/testsupport"
)

func TestWatchExternalPurgesResetsEntry(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Allocate("track-1", "content-1", "a.mp3", 200); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	paths, _ := store.Paths("track-1")
	testsupport.WriteFile(t, paths.Partial, 100)
	if _, err := store.CommitRange("track-1", ByteRange{Start: 0, End: 100}, StatusPartial); err != nil {
		t.Fatalf("CommitRange: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watcherDone := make(chan error, 1)
	go func() { watcherDone <- store.WatchExternalPurges(ctx) }()

	// Give the watcher a moment to register before purging.
	time.Sleep(100 * time.Millisecond)
	if err := os.Remove(paths.Partial); err != nil {
		t.Fatalf("remove partial: %v", err)
	}

	// The watcher reacts by re-verifying the entry, which rewrites the
	// sidecar as empty. Observe the sidecar directly so the check does not
	// trigger the read-path self-heal itself.
	deadline := time.After(5 * time.Second)
	for {
		data, err := os.ReadFile(paths.Sidecar)
		if err == nil {
			var entry Entry
			if json.Unmarshal(data, &entry) == nil && entry.Status == StatusEmpty {
				break
			}
		}
		select {
		case <-deadline:
			t.Fatal("watcher never reset the purged entry")
		case <-time.After(20 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-watcherDone:
		if err != nil {
			t.Errorf("WatchExternalPurges: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop on context cancellation")
	}
}
