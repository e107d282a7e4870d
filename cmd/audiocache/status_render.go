package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"audiocache/internal/cachestore"
)

// renderStatus formats the cache inventory as a table plus a usage summary.
func renderStatus(entries []cachestore.Entry, stats cachestore.Stats, styled bool) string {
	writer := table.NewWriter()
	if styled {
		writer.SetStyle(table.StyleLight)
	}
	writer.AppendHeader(table.Row{"TRACK", "NAME", "STATE", "CACHED", "TOTAL", "LAST ACCESS"})

	for _, entry := range entries {
		writer.AppendRow(table.Row{
			entry.TrackID,
			displayName(entry),
			string(entry.Status),
			humanize.IBytes(uint64(entry.CachedBytes())),
			totalLabel(entry),
			accessLabel(entry.LastAccessedAt),
		})
	}

	var b strings.Builder
	if len(entries) == 0 {
		b.WriteString("cache is empty\n")
	} else {
		b.WriteString(writer.Render())
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%d entries, %s on disk, %s free (%.0f%%)",
		stats.Entries,
		humanize.IBytes(uint64(stats.TotalBytes)),
		humanize.IBytes(stats.FreeBytes),
		stats.FreeRatio*100)
	return b.String()
}

func displayName(entry cachestore.Entry) string {
	if name := strings.TrimSpace(entry.DisplayFilename); name != "" {
		return name
	}
	return "-"
}

func totalLabel(entry cachestore.Entry) string {
	if entry.TotalSizeBytes <= 0 {
		return "unknown"
	}
	return humanize.IBytes(uint64(entry.TotalSizeBytes))
}

func accessLabel(at time.Time) string {
	if at.IsZero() {
		return "-"
	}
	return humanize.Time(at)
}
