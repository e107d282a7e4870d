package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestConsoleHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger = NewComponentLogger(logger, "cachestore")
	logger.Info("entry deleted", String(FieldTrackID, "track-1"), Int64("size_bytes", 42))

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, " INFO cachestore: entry deleted") {
		t.Errorf("line missing level/component/message: %q", line)
	}
	if !strings.Contains(line, "track_id=track-1") {
		t.Errorf("line missing attr: %q", line)
	}
	if !strings.Contains(line, "size_bytes=42") {
		t.Errorf("line missing int attr: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, new(slog.LevelVar)))

	logger.Warn("odd value", String("name", "Chapter 01.mp3"))

	if !strings.Contains(buf.String(), `name="Chapter 01.mp3"`) {
		t.Errorf("value with spaces should be quoted: %q", buf.String())
	}
}

func TestConsoleHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)
	handler := newConsoleHandler(&buf, levelVar)

	if handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be filtered at warn level")
	}
	if !handler.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should pass at warn level")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Error("unknown format should be rejected")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatValueDuration(t *testing.T) {
	if got := formatValue(slog.DurationValue(90 * time.Second)); got != "1m30s" {
		t.Errorf("formatValue(duration) = %q", got)
	}
}

func TestProgressSamplerBuckets(t *testing.T) {
	sampler := NewProgressSampler(10)

	if !sampler.ShouldLog(0, 1000) {
		t.Error("first event should log")
	}
	if sampler.ShouldLog(50, 1000) {
		t.Error("same bucket should stay quiet")
	}
	if !sampler.ShouldLog(150, 1000) {
		t.Error("crossing 10% should log")
	}
	if sampler.ShouldLog(180, 1000) {
		t.Error("still inside the 10% bucket")
	}
	if !sampler.ShouldLog(1000, 1000) {
		t.Error("completion should log")
	}

	sampler.Reset()
	if !sampler.ShouldLog(0, 1000) {
		t.Error("reset sampler should log again")
	}
}

func TestProgressSamplerUnknownTotal(t *testing.T) {
	sampler := NewProgressSampler(10)
	if !sampler.ShouldLog(100, 0) {
		t.Error("first event with unknown total should log")
	}
	if sampler.ShouldLog(200, 0) {
		t.Error("later events with unknown total should stay quiet")
	}
}
