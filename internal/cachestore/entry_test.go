package cachestore

import "testing"

func TestEntryContiguousPrefix(t *testing.T) {
	tests := []struct {
		name   string
		ranges []ByteRange
		want   int64
	}{
		{name: "no ranges", ranges: nil, want: 0},
		{name: "prefix only", ranges: []ByteRange{{Start: 0, End: 512}}, want: 512},
		{name: "gap before first range", ranges: []ByteRange{{Start: 100, End: 512}}, want: 0},
		{name: "prefix plus island", ranges: []ByteRange{{Start: 0, End: 256}, {Start: 512, End: 1024}}, want: 256},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := Entry{CachedRanges: tt.ranges}
			if got := entry.ContiguousPrefix(); got != tt.want {
				t.Errorf("ContiguousPrefix() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEntryRecomputeStatus(t *testing.T) {
	tests := []struct {
		name   string
		total  int64
		ranges []ByteRange
		want   Status
	}{
		{name: "no ranges is empty", total: 100, want: StatusEmpty},
		{name: "partial prefix", total: 100, ranges: []ByteRange{{Start: 0, End: 50}}, want: StatusPartial},
		{name: "full coverage is complete", total: 100, ranges: []ByteRange{{Start: 0, End: 100}}, want: StatusComplete},
		{name: "full bytes but unknown total stays partial", total: 0, ranges: []ByteRange{{Start: 0, End: 100}}, want: StatusPartial},
		{name: "fragmented coverage of total stays partial", total: 100, ranges: []ByteRange{{Start: 0, End: 40}, {Start: 60, End: 100}}, want: StatusPartial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := Entry{TotalSizeBytes: tt.total, CachedRanges: tt.ranges}
			entry.recomputeStatus()
			if entry.Status != tt.want {
				t.Errorf("recomputeStatus() = %s, want %s", entry.Status, tt.want)
			}
		})
	}
}
