package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"audiocache/internal/cachestore"
	"audiocache/internal/logging"
)

const fetchBufferSize = 128 * 1024

// run drives a session to completion, restarting the transfer after each
// resume. It is the only goroutine that touches the session's partial file.
func (c *Coordinator) run(sess *session, req StartRequest) {
	sampler := logging.NewProgressSampler(10)
	limiter := rate.NewLimiter(rate.Every(c.opts.ProgressInterval), 1)

	for {
		attemptCtx, cancelAttempt := context.WithCancel(sess.ctx)
		sess.setTransferCancel(cancelAttempt)
		err := c.fetchOnce(attemptCtx, sess, req, limiter, sampler)
		cancelAttempt()

		if err == nil {
			c.finish(sess, nil)
			return
		}
		if sess.ctx.Err() != nil {
			c.finish(sess, context.Canceled)
			return
		}
		if sess.isPaused() {
			select {
			case <-sess.resumeCh:
				sampler.Reset()
				continue
			case <-sess.ctx.Done():
				c.finish(sess, context.Canceled)
				return
			}
		}
		c.finish(sess, err)
		return
	}
}

// fetchOnce performs one transfer attempt, resuming from the entry's
// committed prefix. On success the partial file has been promoted to the
// final content file and the entry marked complete.
func (c *Coordinator) fetchOnce(ctx context.Context, sess *session, req StartRequest, limiter *rate.Limiter, sampler *logging.ProgressSampler) error {
	entry, ok := c.store.Lookup(req.TrackID)
	if !ok {
		return fmt.Errorf("%w: %s", cachestore.ErrNotFound, req.TrackID)
	}
	paths, ok := c.store.Paths(req.TrackID)
	if !ok {
		return fmt.Errorf("%w: %s", cachestore.ErrNotFound, req.TrackID)
	}

	// v1 downloads a growing prefix, so the resume point is wherever the
	// committed prefix ends. Lookup already self-healed any stale claims.
	offset := entry.ContiguousPrefix()

	file, err := os.OpenFile(paths.Partial, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open partial file: %w", cachestore.ErrDisk, err)
	}
	defer file.Close()

	// Drop any uncommitted tail left behind by a previous pause or crash.
	if err := file.Truncate(offset); err != nil {
		return fmt.Errorf("%w: truncate partial file: %w", cachestore.ErrDisk, err)
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("%w: seek partial file: %w", cachestore.ErrDisk, err)
	}

	resp, total, err := c.openStream(ctx, req, offset)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if offset > 0 && resp.StatusCode == http.StatusOK {
		// Transport ignored the range request; start over. Still correct,
		// just wasteful.
		offset = 0
		if err := file.Truncate(0); err != nil {
			return fmt.Errorf("%w: truncate partial file: %w", cachestore.ErrDisk, err)
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("%w: seek partial file: %w", cachestore.ErrDisk, err)
		}
	}
	if total <= 0 {
		total = entry.TotalSizeBytes
	}
	if total <= 0 {
		total = req.ExpectedSizeBytes
	}

	// Stall watchdog: auto-cancel the attempt when no bytes arrive for the
	// configured interval.
	var lastProgress atomic.Int64
	var stalled atomic.Bool
	lastProgress.Store(time.Now().UnixNano())
	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	go func() {
		ticker := time.NewTicker(c.opts.StallTimeout / 4)
		defer ticker.Stop()
		for {
			select {
			case <-watchCtx.Done():
				return
			case <-ticker.C:
				idle := time.Duration(time.Now().UnixNano() - lastProgress.Load())
				if idle >= c.opts.StallTimeout {
					stalled.Store(true)
					sess.mu.Lock()
					if sess.transferCancel != nil {
						sess.transferCancel()
					}
					sess.mu.Unlock()
					return
				}
			}
		}
	}()

	written := offset
	committed := offset
	buf := make([]byte, fetchBufferSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := file.Write(buf[:n]); err != nil {
				return fmt.Errorf("%w: write partial file: %w", cachestore.ErrDisk, err)
			}
			written += int64(n)
			lastProgress.Store(time.Now().UnixNano())

			if limiter.Allow() {
				if err := c.commitProgress(sess, req, file, written, total, sampler); err != nil {
					return err
				}
				committed = written
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			// Discard the uncommitted tail before reporting why the read
			// stopped. Committed bytes stay.
			_ = file.Truncate(committed)
			if stalled.Load() {
				return fmt.Errorf("%w after %s", ErrStalled, c.opts.StallTimeout)
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return wrapNetwork("read response body", readErr)
		}
	}

	if err := file.Sync(); err != nil {
		return fmt.Errorf("%w: sync partial file: %w", cachestore.ErrDisk, err)
	}
	if total > 0 && written != total {
		// Commit what arrived, then surface the short read. A body that
		// ended before delivering anything new has nothing to commit.
		if written > committed {
			if err := c.commitProgress(sess, req, file, written, total, sampler); err != nil {
				return err
			}
		}
		return fmt.Errorf("%w: transfer truncated at %d of %d bytes", ErrNetwork, written, total)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: close partial file: %w", cachestore.ErrDisk, err)
	}

	// A session retired by a racing cancel must not promote or commit.
	if !c.stillCurrent(sess) {
		return context.Canceled
	}

	// Atomic completion: verify size, rename into place, then mark complete.
	info, err := os.Stat(paths.Partial)
	if err != nil {
		return fmt.Errorf("%w: stat partial file: %w", cachestore.ErrDisk, err)
	}
	if info.Size() != written {
		return fmt.Errorf("%w: partial file holds %d bytes, expected %d", cachestore.ErrDisk, info.Size(), written)
	}
	if err := os.Rename(paths.Partial, paths.Content); err != nil {
		return fmt.Errorf("%w: promote content file: %w", cachestore.ErrDisk, err)
	}
	if _, err := c.store.CommitRange(req.TrackID, cachestore.ByteRange{Start: 0, End: written}, cachestore.StatusComplete); err != nil {
		return err
	}

	c.emitProgress(req, written, written)
	return nil
}

// openStream issues the GET, requesting a byte range when resuming. Returns
// the response and the total content size when the transport reports one.
func (c *Coordinator) openStream(ctx context.Context, req StartRequest, offset int64) (*http.Response, int64, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.SourceURL, nil)
	if err != nil {
		return nil, 0, wrapNetwork("build request", err)
	}
	if c.opts.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.opts.UserAgent)
	}
	if offset > 0 {
		httpReq.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, wrapNetwork("request content", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp, resp.ContentLength, nil
	case http.StatusPartialContent:
		total := int64(0)
		if resp.ContentLength > 0 {
			total = offset + resp.ContentLength
		}
		return resp, total, nil
	default:
		resp.Body.Close()
		return nil, 0, fmt.Errorf("%w: unexpected status %d", ErrNetwork, resp.StatusCode)
	}
}

// commitProgress makes the written prefix durable, records it in the store,
// and fans the progress out. Commits from a retired session are discarded.
func (c *Coordinator) commitProgress(sess *session, req StartRequest, file *os.File, written, total int64, sampler *logging.ProgressSampler) error {
	if err := file.Sync(); err != nil {
		return fmt.Errorf("%w: sync partial file: %w", cachestore.ErrDisk, err)
	}
	if !c.stillCurrent(sess) {
		return context.Canceled
	}
	if _, err := c.store.CommitRange(req.TrackID, cachestore.ByteRange{Start: 0, End: written}, cachestore.StatusPartial); err != nil {
		return err
	}

	if sampler.ShouldLog(written, total) {
		c.logger.Debug("transfer progress",
			logging.String(logging.FieldTrackID, req.TrackID),
			logging.Int64("cached_bytes", written),
			logging.Int64("total_bytes", total))
	}
	c.emitProgress(req, written, total)
	return nil
}

func (c *Coordinator) emitProgress(req StartRequest, written, total int64) {
	if req.OnProgress != nil {
		req.OnProgress(written, total)
	}
	if c.reporter != nil {
		c.reporter.Report(req.TrackID, written, total)
	}
}
