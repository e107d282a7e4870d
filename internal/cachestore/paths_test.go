package cachestore

import "testing"

func TestCacheKeyIsDeterministicAndContentSensitive(t *testing.T) {
	a := cacheKey("track-1", "content-1")
	b := cacheKey("track-1", "content-1")
	if a != b {
		t.Errorf("cacheKey not deterministic: %s != %s", a, b)
	}
	if len(a) != 16 {
		t.Errorf("cacheKey length = %d, want 16 hex digits", len(a))
	}

	if cacheKey("track-1", "content-2") == a {
		t.Error("different remote content must yield a different key")
	}
	if cacheKey("track-2", "content-1") == a {
		t.Error("different track must yield a different key")
	}
	// The separator keeps (ab, c) and (a, bc) apart.
	if cacheKey("bc", "a") == cacheKey("c", "ab") {
		t.Error("identifier boundary must be unambiguous")
	}
}

func TestNormalizeFilename(t *testing.T) {
	if got := normalizeFilename("  Chapter 01.mp3 "); got != "Chapter 01.mp3" {
		t.Errorf("normalizeFilename trimmed = %q", got)
	}
	// Decomposed e + combining acute collapses to the precomposed form.
	if got := normalizeFilename("Expose\u0301.mp3"); got != "Expos\u00e9.mp3" {
		t.Errorf("normalizeFilename NFC = %q", got)
	}
}
