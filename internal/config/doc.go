// Package config loads, normalizes, and validates audiocache configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob
// the cache and CLI need: cache directory, retention window, eviction water
// marks, download timing, and log output.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
