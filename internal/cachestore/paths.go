package cachestore

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/unicode/norm"
)

const (
	contentSuffix = ".audio"
	partialSuffix = ".audio.part"
	sidecarSuffix = ".json"
)

// EntryPaths names the on-disk files backing one cache entry.
type EntryPaths struct {
	Content string // fully downloaded content, present only once complete
	Partial string // growing transfer output
	Sidecar string // JSON metadata
}

// cacheKey derives the deterministic file name stem for an entry. Both
// identifiers participate so replacing a track's remote content yields fresh
// file names and the stale pair can be removed wholesale.
func cacheKey(trackID, remoteContentID string) string {
	digest := xxhash.New()
	_, _ = digest.WriteString(remoteContentID)
	_, _ = digest.Write([]byte{0})
	_, _ = digest.WriteString(trackID)
	return fmt.Sprintf("%016x", digest.Sum64())
}

func entryPathsIn(root, trackID, remoteContentID string) EntryPaths {
	key := cacheKey(trackID, remoteContentID)
	return EntryPaths{
		Content: filepath.Join(root, key+contentSuffix),
		Partial: filepath.Join(root, key+partialSuffix),
		Sidecar: filepath.Join(root, key+sidecarSuffix),
	}
}

// normalizeFilename canonicalizes a caller-supplied display filename. NFC
// normalization keeps the stored name stable across platforms that decompose
// unicode differently.
func normalizeFilename(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
