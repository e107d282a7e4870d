// Package cachestore is the sole authority for cached track content on disk.
//
// Each entry is one binary content file plus one JSON metadata sidecar, both
// named deterministically from the track and remote content identifiers so
// lookup never scans the directory. The Store serializes all mutations per
// entry, persists metadata atomically via temp-file-then-rename, and runs the
// TTL and LRU eviction sweeps.
//
// Metadata is never trusted over the filesystem: when a sidecar claims bytes
// the backing file does not have (a crash, or the host platform purging the
// cache directory under storage pressure), the entry is reset to empty and
// the lookup reports a miss instead of an error.
package cachestore
