// Package logging constructs the slog loggers used across audiocache.
//
// It provides a compact console handler for interactive use, a JSON handler
// for machine consumption, attribute helpers so call sites stay terse, and
// component loggers that stamp every record with the subsystem that emitted
// it. Background sweeps and download sessions log through here; playback
// never sees these failures directly.
package logging
