package logging

// ProgressSampler suppresses repetitive transfer-progress log lines while
// preserving signal when percentage buckets advance.
type ProgressSampler struct {
	bucketSize float64
	lastBucket int
}

// NewProgressSampler constructs a sampler that emits when the completed
// percentage crosses bucket boundaries (default 10%).
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether a progress event at the given byte counts should
// be logged. An unknown total (<= 0) logs only the first event.
func (s *ProgressSampler) ShouldLog(cachedBytes, totalBytes int64) bool {
	if s == nil {
		return true
	}
	if totalBytes <= 0 {
		if s.lastBucket < 0 {
			s.lastBucket = 0
			return true
		}
		return false
	}
	percent := float64(cachedBytes) / float64(totalBytes) * 100
	bucket := int(percent / s.bucketSize)
	if percent >= 100 {
		bucket = int(100 / s.bucketSize)
	}
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		return true
	}
	return false
}

// Reset clears the sampler state when a new transfer starts.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastBucket = -1
}
