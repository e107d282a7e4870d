// Package download orchestrates network fetches of remote track content.
//
// The Coordinator enforces single-flight per track: concurrent start requests
// for the same track share one transfer and one handle. Bytes stream into the
// entry's partial file as a growing prefix, are committed to the cachestore
// periodically once durably on disk, and are promoted to the final content
// file with a verify-then-rename on completion. Cancellation discards
// unpersisted output but never rolls back committed bytes, and a session that
// makes no forward progress within the stall timeout is auto-cancelled.
package download
