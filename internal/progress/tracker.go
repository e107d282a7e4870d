package progress

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"audiocache/internal/logging"
)

// Observer receives push updates for a subscribed track.
type Observer func(trackID string, cachedBytes, totalBytes int64)

// Token identifies a subscription for later removal.
type Token struct {
	trackID string
	id      uuid.UUID
}

// Snapshot is the last reported progress for a track.
type Snapshot struct {
	CachedBytes int64
	TotalBytes  int64
}

// Tracker maintains progress snapshots and notifies subscribers.
type Tracker struct {
	logger *slog.Logger

	mu          sync.Mutex
	snapshots   map[string]Snapshot
	subscribers map[string]map[uuid.UUID]Observer
	notifying   int
	deferred    []Token
}

// NewTracker constructs an empty tracker.
func NewTracker(logger *slog.Logger) *Tracker {
	return &Tracker{
		logger:      logging.NewComponentLogger(logger, "progress"),
		snapshots:   make(map[string]Snapshot),
		subscribers: make(map[string]map[uuid.UUID]Observer),
	}
}

// Report records the latest progress for a track and notifies subscribers.
// Observers run without the tracker lock held, so they may subscribe,
// report, or unsubscribe freely.
func (t *Tracker) Report(trackID string, cachedBytes, totalBytes int64) {
	if t == nil || trackID == "" {
		return
	}

	t.mu.Lock()
	t.snapshots[trackID] = Snapshot{CachedBytes: cachedBytes, TotalBytes: totalBytes}
	observers := make([]Observer, 0, len(t.subscribers[trackID]))
	for _, observer := range t.subscribers[trackID] {
		observers = append(observers, observer)
	}
	t.notifying++
	t.mu.Unlock()

	for _, observer := range observers {
		observer(trackID, cachedBytes, totalBytes)
	}

	t.mu.Lock()
	t.notifying--
	if t.notifying == 0 && len(t.deferred) > 0 {
		for _, token := range t.deferred {
			t.removeLocked(token)
		}
		t.deferred = nil
	}
	t.mu.Unlock()
}

// Snapshot returns the last reported progress for a track.
func (t *Tracker) Snapshot(trackID string) (Snapshot, bool) {
	if t == nil {
		return Snapshot{}, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	snapshot, ok := t.snapshots[trackID]
	return snapshot, ok
}

// Forget drops the snapshot for a track (after deletion or cancellation).
// Subscriptions stay registered; they simply receive no further updates.
func (t *Tracker) Forget(trackID string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	delete(t.snapshots, trackID)
	t.mu.Unlock()
}

// Subscribe registers an observer for a track and returns its removal token.
func (t *Tracker) Subscribe(trackID string, observer Observer) Token {
	token := Token{trackID: trackID, id: uuid.New()}
	if t == nil || trackID == "" || observer == nil {
		return token
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.subscribers[trackID] == nil {
		t.subscribers[trackID] = make(map[uuid.UUID]Observer)
	}
	t.subscribers[trackID][token.id] = observer
	return token
}

// Unsubscribe removes a subscription. Calls made while a notification pass is
// running (including from an observer's own callback) are deferred to the end
// of that pass.
func (t *Tracker) Unsubscribe(token Token) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.notifying > 0 {
		t.deferred = append(t.deferred, token)
		return
	}
	t.removeLocked(token)
}

func (t *Tracker) removeLocked(token Token) {
	observers, ok := t.subscribers[token.trackID]
	if !ok {
		return
	}
	delete(observers, token.id)
	if len(observers) == 0 {
		delete(t.subscribers, token.trackID)
	}
}

// SubscriberCount reports how many observers a track currently has.
func (t *Tracker) SubscriberCount(trackID string) int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subscribers[trackID])
}
