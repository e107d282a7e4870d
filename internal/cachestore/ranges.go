package cachestore

import "fmt"

// ByteRange is a half-open byte interval [Start, End).
type ByteRange struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Len returns the number of bytes the range spans.
func (r ByteRange) Len() int64 { return r.End - r.Start }

func (r ByteRange) valid() bool { return r.Start >= 0 && r.End > r.Start }

func (r ByteRange) String() string { return fmt.Sprintf("[%d,%d)", r.Start, r.End) }

// mergeRange inserts r into a sorted, coalesced range list and returns the
// result, still sorted ascending with overlapping and adjacent ranges fused.
// The contract accepts arbitrary ranges even though v1 downloads only ever
// commit growing [0, n) prefixes; a future sliding-window fetcher reuses it
// unchanged.
func mergeRange(ranges []ByteRange, r ByteRange) []ByteRange {
	if !r.valid() {
		return ranges
	}

	merged := make([]ByteRange, 0, len(ranges)+1)
	inserted := false
	for _, existing := range ranges {
		switch {
		case existing.End < r.Start:
			// Strictly before r, not even adjacent.
			merged = append(merged, existing)
		case r.End < existing.Start:
			// Strictly after r.
			if !inserted {
				merged = append(merged, r)
				inserted = true
			}
			merged = append(merged, existing)
		default:
			// Overlapping or adjacent: fold into r and keep scanning.
			if existing.Start < r.Start {
				r.Start = existing.Start
			}
			if existing.End > r.End {
				r.End = existing.End
			}
		}
	}
	if !inserted {
		merged = append(merged, r)
	}
	return merged
}

// rangesCover reports whether position pos falls inside one of the ranges.
func rangesCover(ranges []ByteRange, pos int64) bool {
	for _, r := range ranges {
		if pos >= r.Start && pos < r.End {
			return true
		}
	}
	return false
}

// rangesTotal sums the bytes covered by a coalesced range list.
func rangesTotal(ranges []ByteRange) int64 {
	var total int64
	for _, r := range ranges {
		total += r.Len()
	}
	return total
}

// rangesMaxEnd returns the largest byte offset any range reaches.
func rangesMaxEnd(ranges []ByteRange) int64 {
	var max int64
	for _, r := range ranges {
		if r.End > max {
			max = r.End
		}
	}
	return max
}
