// Package main hosts the audiocache CLI entrypoint and command graph.
//
// The Cobra-based command tree surfaces cache inspection, explicit offline
// downloads, entry removal, eviction sweeps, and configuration scaffolding.
// It centralizes configuration resolution and structured logging setup so
// subcommands can focus on user experience instead of wiring.
package main
