package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"audiocache/internal/cachestore"
	"audiocache/internal/logging"
)

// HTTPDoer describes the HTTP client used for transfers.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Reporter receives progress updates for fan-out to subscribers.
type Reporter interface {
	Report(trackID string, cachedBytes, totalBytes int64)
}

// ProgressFunc is the caller-supplied per-session progress callback.
type ProgressFunc func(bytesSoFar, totalBytes int64)

// StartRequest describes one caching transfer.
type StartRequest struct {
	TrackID           string
	RemoteContentID   string
	Filename          string
	SourceURL         string
	ExpectedSizeBytes int64
	OnProgress        ProgressFunc
}

// Options configures transfer timing.
type Options struct {
	UserAgent        string
	StallTimeout     time.Duration
	ProgressInterval time.Duration
}

// Coordinator owns all live download sessions and enforces single-flight
// per track.
type Coordinator struct {
	store    *cachestore.Store
	client   HTTPDoer
	reporter Reporter
	logger   *slog.Logger
	opts     Options

	mu       sync.Mutex
	sessions map[string]*session
}

// NewCoordinator constructs a coordinator. A nil client falls back to
// http.DefaultClient; a nil reporter disables fan-out.
func NewCoordinator(store *cachestore.Store, client HTTPDoer, reporter Reporter, logger *slog.Logger, opts Options) *Coordinator {
	if client == nil {
		client = http.DefaultClient
	}
	if opts.StallTimeout <= 0 {
		opts.StallTimeout = 30 * time.Second
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = 250 * time.Millisecond
	}
	return &Coordinator{
		store:    store,
		client:   client,
		reporter: reporter,
		logger:   logging.NewComponentLogger(logger, "download"),
		opts:     opts,
		sessions: make(map[string]*session),
	}
}

// StartCaching begins a background transfer for the track, or returns the
// existing handle when a session is already live. The single-flight
// check-and-insert happens under one lock, so two concurrent callers can
// never both start a transfer.
func (c *Coordinator) StartCaching(ctx context.Context, req StartRequest) (*Handle, error) {
	req.TrackID = strings.TrimSpace(req.TrackID)
	if req.TrackID == "" {
		return nil, errors.New("download: track ID is required")
	}
	if strings.TrimSpace(req.SourceURL) == "" {
		return nil, errors.New("download: source URL is required")
	}

	c.mu.Lock()
	if existing, ok := c.sessions[req.TrackID]; ok {
		c.mu.Unlock()
		return existing.handle, nil
	}

	// The store only reconciles metadata with the filesystem while the
	// entry is unleased, and the resume offset comes from that metadata,
	// so settle any stale claims before taking the lease.
	c.store.Lookup(req.TrackID)

	if _, err := c.store.Allocate(req.TrackID, req.RemoteContentID, req.Filename, req.ExpectedSizeBytes); err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("allocate cache entry: %w", err)
	}
	if err := c.store.AcquireLease(req.TrackID); err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("lease cache entry: %w", err)
	}

	sess := newSession(ctx, req.TrackID)
	sess.handle = &Handle{coordinator: c, sess: sess}
	c.sessions[req.TrackID] = sess
	c.mu.Unlock()

	c.logger.Info("download session started",
		logging.String(logging.FieldTrackID, req.TrackID),
		logging.String(logging.FieldSessionID, sess.id.String()),
		logging.Int64("expected_size_bytes", req.ExpectedSizeBytes))

	go c.run(sess, req)
	return sess.handle, nil
}

// IsActive reports whether a session for the track is live.
func (c *Coordinator) IsActive(trackID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sessions[trackID]
	return ok
}

// Cancel aborts the track's transfer. Unpersisted partial output is
// discarded; bytes already committed stay cached. Waits for the session
// goroutine to finish so no commit or completion can fire afterwards.
func (c *Coordinator) Cancel(trackID string) error {
	c.mu.Lock()
	sess, ok := c.sessions[trackID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNoSession, trackID)
	}
	// Retire the session immediately: any commit racing with this cancel
	// finds itself stale and is discarded rather than applied.
	delete(c.sessions, trackID)
	c.mu.Unlock()

	sess.cancel()
	<-sess.done
	return nil
}

// Pause suspends the transfer without discarding progress.
func (c *Coordinator) Pause(trackID string) error {
	c.mu.Lock()
	sess, ok := c.sessions[trackID]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSession, trackID)
	}
	sess.pause()
	c.logger.Info("download session paused", logging.String(logging.FieldTrackID, trackID))
	return nil
}

// Resume continues a paused transfer from its committed prefix using a range
// request where the transport supports it.
func (c *Coordinator) Resume(trackID string) error {
	c.mu.Lock()
	sess, ok := c.sessions[trackID]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSession, trackID)
	}
	sess.resume()
	c.logger.Info("download session resumed", logging.String(logging.FieldTrackID, trackID))
	return nil
}

// CancelAll aborts every live session and waits for them to wind down.
func (c *Coordinator) CancelAll() {
	c.mu.Lock()
	pending := make([]*session, 0, len(c.sessions))
	for trackID, sess := range c.sessions {
		pending = append(pending, sess)
		delete(c.sessions, trackID)
	}
	c.mu.Unlock()

	for _, sess := range pending {
		sess.cancel()
	}
	for _, sess := range pending {
		<-sess.done
	}
}

// stillCurrent reports whether the session is still the registered one for
// its track. A session retired by cancel fails this check, so late-arriving
// commits and completions from the transfer goroutine are discarded.
func (c *Coordinator) stillCurrent(sess *session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[sess.trackID] == sess
}

// finish retires the session and publishes its outcome.
func (c *Coordinator) finish(sess *session, err error) {
	c.mu.Lock()
	if c.sessions[sess.trackID] == sess {
		delete(c.sessions, sess.trackID)
	}
	c.mu.Unlock()

	c.store.ReleaseLease(sess.trackID)
	sess.finish(err)

	switch {
	case err == nil:
		c.logger.Info("download session complete",
			logging.String(logging.FieldTrackID, sess.trackID),
			logging.String(logging.FieldSessionID, sess.id.String()))
	case errors.Is(err, context.Canceled):
		c.logger.Info("download session cancelled",
			logging.String(logging.FieldTrackID, sess.trackID),
			logging.String(logging.FieldSessionID, sess.id.String()))
	default:
		c.logger.Warn("download session failed",
			logging.String(logging.FieldTrackID, sess.trackID),
			logging.String(logging.FieldSessionID, sess.id.String()),
			logging.String(logging.FieldEventType, "download_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "transfer can be retried; committed bytes are kept"))
	}
}

// session tracks one live transfer.
type session struct {
	trackID   string
	id        uuid.UUID
	startedAt time.Time
	handle    *Handle

	ctx        context.Context
	cancelFunc context.CancelFunc
	done       chan struct{}

	mu             sync.Mutex
	paused         bool
	resumeCh       chan struct{}
	transferCancel context.CancelFunc
	err            error
	finished       bool
}

func newSession(parent context.Context, trackID string) *session {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &session{
		trackID:    trackID,
		id:         uuid.New(),
		startedAt:  time.Now().UTC(),
		ctx:        ctx,
		cancelFunc: cancel,
		done:       make(chan struct{}),
		resumeCh:   make(chan struct{}, 1),
	}
}

func (s *session) cancel() { s.cancelFunc() }

func (s *session) pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		return
	}
	s.paused = true
	if s.transferCancel != nil {
		s.transferCancel()
	}
}

func (s *session) resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused {
		return
	}
	s.paused = false
	select {
	case s.resumeCh <- struct{}{}:
	default:
	}
}

func (s *session) isPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *session) setTransferCancel(cancel context.CancelFunc) {
	s.mu.Lock()
	s.transferCancel = cancel
	s.mu.Unlock()
}

func (s *session) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	s.finished = true
	s.err = err
	close(s.done)
}

// Handle is the owned reference to an in-flight transfer returned from
// StartCaching. Ownership of the transfer is unambiguous across cancellation
// races: whoever holds the handle may cancel, pause, or resume it.
type Handle struct {
	coordinator *Coordinator
	sess        *session
}

// TrackID returns the track this handle transfers.
func (h *Handle) TrackID() string { return h.sess.trackID }

// SessionID returns the unique session identifier, useful for correlation.
func (h *Handle) SessionID() string { return h.sess.id.String() }

// Done is closed when the session finishes for any reason.
func (h *Handle) Done() <-chan struct{} { return h.sess.done }

// Err returns the session outcome once Done is closed; nil means the
// transfer completed and was committed.
func (h *Handle) Err() error {
	select {
	case <-h.sess.done:
	default:
		return nil
	}
	h.sess.mu.Lock()
	defer h.sess.mu.Unlock()
	return h.sess.err
}

// Cancel aborts this handle's transfer.
func (h *Handle) Cancel() {
	_ = h.coordinator.Cancel(h.sess.trackID)
}

// Pause suspends this handle's transfer.
func (h *Handle) Pause() {
	_ = h.coordinator.Pause(h.sess.trackID)
}

// Resume continues this handle's transfer.
func (h *Handle) Resume() {
	_ = h.coordinator.Resume(h.sess.trackID)
}
