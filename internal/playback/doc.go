// Package playback is the cache's single decision point for the player.
//
// The Facade answers "do I have this locally, or must I stream it" from
// local metadata plus the content-resolution collaborator, triggers
// background caching that is safe to request on every playback tick, and
// removes entries on demand. The Sweeper runs the TTL and LRU eviction
// sweeps on a cadence under an exclusive cache-directory lock.
package playback
