// Package progress fans download progress out to UI-side subscribers.
//
// The Tracker keeps a per-track snapshot of cached versus total bytes and a
// subscriber registry keyed by explicit tokens, so observers can be attached
// and detached without leaking retained closures. Unsubscribing from inside
// an observer's own callback is safe; the removal is deferred to the end of
// the current notification pass.
package progress
