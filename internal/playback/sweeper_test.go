package playback

import (
	"testing"
	"time"

	"audiocache/internal/cachestore"
	"audiocache/internal/logging"
	"audiocache/internal/testsupport"
)

func seedPartialEntry(t *testing.T, store *cachestore.Store, trackID string, size int64) {
	t.Helper()
	if _, err := store.Allocate(trackID, "content-"+trackID, "", size*2); err != nil {
		t.Fatalf("Allocate %s: %v", trackID, err)
	}
	paths, _ := store.Paths(trackID)
	testsupport.WriteFile(t, paths.Partial, size)
	if _, err := store.CommitRange(trackID, cachestore.ByteRange{Start: 0, End: size}, cachestore.StatusPartial); err != nil {
		t.Fatalf("CommitRange %s: %v", trackID, err)
	}
}

func TestRunOnceEvictsExpiredAndOverBudget(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store, err := cachestore.NewStore(t.TempDir(), logging.NewNop(),
		cachestore.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	seedPartialEntry(t, store, "ancient", 100)
	now = now.Add(30 * 24 * time.Hour)
	seedPartialEntry(t, store, "big-old", 150)
	now = now.Add(time.Hour)
	seedPartialEntry(t, store, "recent", 100)

	sweeper := NewSweeper(store, SweepConfig{
		RetentionAge:   10 * 24 * time.Hour,
		HighWaterBytes: 200,
		LowWaterBytes:  100,
		Interval:       time.Minute,
	}, logging.NewNop())

	expired, evicted, err := sweeper.RunOnce()
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if expired != 1 {
		t.Errorf("expired = %d, want 1", expired)
	}
	if evicted != 1 {
		t.Errorf("evicted = %d, want 1", evicted)
	}
	if _, ok := store.Lookup("ancient"); ok {
		t.Error("ancient entry should be gone after the TTL pass")
	}
	if _, ok := store.Lookup("big-old"); ok {
		t.Error("big-old entry should be gone after the budget pass")
	}
	if _, ok := store.Lookup("recent"); !ok {
		t.Error("recent entry should survive")
	}
}

type stubMonitor struct {
	playing string
}

func (m stubMonitor) IsPlaying(trackID string) bool { return trackID == m.playing }

func TestSweepSparesPlayingTrack(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store, err := cachestore.NewStore(t.TempDir(), logging.NewNop(),
		cachestore.WithClock(func() time.Time { return now }),
		cachestore.WithProtect(EvictionProtection(stubMonitor{playing: "playing"})))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	seedPartialEntry(t, store, "playing", 100)
	seedPartialEntry(t, store, "idle", 100)
	now = now.Add(30 * 24 * time.Hour)

	sweeper := NewSweeper(store, SweepConfig{
		RetentionAge:   10 * 24 * time.Hour,
		HighWaterBytes: 100,
		LowWaterBytes:  50,
		Interval:       time.Minute,
	}, logging.NewNop())

	if _, _, err := sweeper.RunOnce(); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if _, ok := store.Lookup("playing"); !ok {
		t.Error("playing track must survive both sweeps even when oldest")
	}
	if _, ok := store.Lookup("idle"); ok {
		t.Error("idle track should be evicted")
	}
}

func TestUpdateChangesNextSweep(t *testing.T) {
	store, err := cachestore.NewStore(t.TempDir(), logging.NewNop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	seedPartialEntry(t, store, "only", 100)

	sweeper := NewSweeper(store, SweepConfig{
		RetentionAge:   10 * 24 * time.Hour,
		HighWaterBytes: 1000,
		LowWaterBytes:  500,
		Interval:       time.Minute,
	}, logging.NewNop())

	if _, evicted, err := sweeper.RunOnce(); err != nil || evicted != 0 {
		t.Fatalf("first sweep: evicted=%d err=%v", evicted, err)
	}

	// Tighten the budget below current usage; the next sweep must react.
	sweeper.Update(SweepConfig{
		RetentionAge:   10 * 24 * time.Hour,
		HighWaterBytes: 50,
		LowWaterBytes:  10,
		Interval:       time.Minute,
	})
	if _, evicted, err := sweeper.RunOnce(); err != nil || evicted != 1 {
		t.Fatalf("tightened sweep: evicted=%d err=%v", evicted, err)
	}
}
