package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"audiocache/internal/cachestore"
	"audiocache/internal/logging"
)

const lockFileName = "audiocache.lock"

// SweepConfig carries the retention and budget knobs. All values are
// adjustable at runtime via Sweeper.Update.
type SweepConfig struct {
	RetentionAge   time.Duration
	HighWaterBytes int64
	LowWaterBytes  int64
	Interval       time.Duration
}

// Sweeper runs TTL and LRU eviction sweeps against the store on a cadence,
// holding an exclusive lock on the cache directory so two processes never
// sweep the same cache.
type Sweeper struct {
	store  *cachestore.Store
	logger *slog.Logger
	lock   *flock.Flock

	mu  sync.Mutex
	cfg SweepConfig
}

// NewSweeper constructs a sweeper over the store's cache directory.
func NewSweeper(store *cachestore.Store, cfg SweepConfig, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		store:  store,
		logger: logging.NewComponentLogger(logger, "sweeper"),
		lock:   flock.New(filepath.Join(store.Root(), lockFileName)),
		cfg:    cfg,
	}
}

// Update adjusts the retention window and water marks at runtime. The next
// sweep uses the new values.
func (s *Sweeper) Update(cfg SweepConfig) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

func (s *Sweeper) config() SweepConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Run acquires the cache lock and sweeps on the configured interval until
// ctx ends. It errors immediately when another process owns the cache.
func (s *Sweeper) Run(ctx context.Context) error {
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire cache lock: %w", err)
	}
	if !ok {
		return errors.New("another audiocache process owns the cache directory")
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to release cache lock", logging.Error(err))
		}
	}()

	s.logger.Info("sweeper started", logging.String("lock", s.lock.Path()))
	for {
		interval := s.config().Interval
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return nil
		case <-time.After(interval):
			s.sweep()
		}
	}
}

// RunOnce performs a single sweep, used by the CLI. It takes the cache lock
// for the duration of the sweep.
func (s *Sweeper) RunOnce() (expired, evicted int, err error) {
	ok, lockErr := s.lock.TryLock()
	if lockErr != nil {
		return 0, 0, fmt.Errorf("acquire cache lock: %w", lockErr)
	}
	if !ok {
		return 0, 0, errors.New("another audiocache process owns the cache directory")
	}
	defer func() { _ = s.lock.Unlock() }()

	return s.sweep()
}

func (s *Sweeper) sweep() (expired, evicted int, err error) {
	cfg := s.config()

	expired, err = s.store.EvictExpired(cfg.RetentionAge)
	if err != nil {
		s.logger.Warn("ttl sweep failed",
			logging.String(logging.FieldEventType, "sweep_ttl_failed"),
			logging.Error(err))
		return expired, 0, err
	}

	evicted, err = s.store.EvictUntilUnderBudget(cfg.HighWaterBytes, cfg.LowWaterBytes)
	if err != nil {
		s.logger.Warn("lru sweep failed",
			logging.String(logging.FieldEventType, "sweep_lru_failed"),
			logging.Error(err))
		return expired, evicted, err
	}

	if expired > 0 || evicted > 0 {
		s.logger.Info("sweep complete",
			logging.Int("expired_entries", expired),
			logging.Int("evicted_entries", evicted))
	}
	return expired, evicted, nil
}
