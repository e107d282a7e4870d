package cachestore

import (
	"reflect"
	"testing"
)

func TestMergeRangeCoalesces(t *testing.T) {
	tests := []struct {
		name     string
		existing []ByteRange
		insert   ByteRange
		want     []ByteRange
	}{
		{
			name:   "into empty list",
			insert: ByteRange{Start: 0, End: 10},
			want:   []ByteRange{{Start: 0, End: 10}},
		},
		{
			name:     "growing prefix",
			existing: []ByteRange{{Start: 0, End: 10}},
			insert:   ByteRange{Start: 0, End: 25},
			want:     []ByteRange{{Start: 0, End: 25}},
		},
		{
			name:     "adjacent ranges fuse",
			existing: []ByteRange{{Start: 0, End: 10}},
			insert:   ByteRange{Start: 10, End: 20},
			want:     []ByteRange{{Start: 0, End: 20}},
		},
		{
			name:     "disjoint stays sorted",
			existing: []ByteRange{{Start: 0, End: 10}},
			insert:   ByteRange{Start: 50, End: 60},
			want:     []ByteRange{{Start: 0, End: 10}, {Start: 50, End: 60}},
		},
		{
			name:     "insert before existing",
			existing: []ByteRange{{Start: 50, End: 60}},
			insert:   ByteRange{Start: 0, End: 10},
			want:     []ByteRange{{Start: 0, End: 10}, {Start: 50, End: 60}},
		},
		{
			name:     "bridges two neighbours",
			existing: []ByteRange{{Start: 0, End: 10}, {Start: 20, End: 30}},
			insert:   ByteRange{Start: 5, End: 25},
			want:     []ByteRange{{Start: 0, End: 30}},
		},
		{
			name:     "swallows multiple ranges",
			existing: []ByteRange{{Start: 10, End: 20}, {Start: 30, End: 40}, {Start: 50, End: 60}},
			insert:   ByteRange{Start: 0, End: 100},
			want:     []ByteRange{{Start: 0, End: 100}},
		},
		{
			name:     "fully contained is a no-op",
			existing: []ByteRange{{Start: 0, End: 100}},
			insert:   ByteRange{Start: 10, End: 20},
			want:     []ByteRange{{Start: 0, End: 100}},
		},
		{
			name:     "invalid range ignored",
			existing: []ByteRange{{Start: 0, End: 10}},
			insert:   ByteRange{Start: 20, End: 20},
			want:     []ByteRange{{Start: 0, End: 10}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeRange(tt.existing, tt.insert)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("mergeRange() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRangesCover(t *testing.T) {
	ranges := []ByteRange{{Start: 0, End: 10}, {Start: 20, End: 30}}

	covered := []int64{0, 5, 9, 20, 29}
	for _, pos := range covered {
		if !rangesCover(ranges, pos) {
			t.Errorf("position %d should be covered", pos)
		}
	}

	uncovered := []int64{10, 15, 19, 30, 100}
	for _, pos := range uncovered {
		if rangesCover(ranges, pos) {
			t.Errorf("position %d should not be covered", pos)
		}
	}
}

func TestRangesTotalAndMaxEnd(t *testing.T) {
	ranges := []ByteRange{{Start: 0, End: 10}, {Start: 20, End: 35}}

	if got := rangesTotal(ranges); got != 25 {
		t.Errorf("rangesTotal() = %d, want 25", got)
	}
	if got := rangesMaxEnd(ranges); got != 35 {
		t.Errorf("rangesMaxEnd() = %d, want 35", got)
	}
	if got := rangesTotal(nil); got != 0 {
		t.Errorf("rangesTotal(nil) = %d, want 0", got)
	}
}
