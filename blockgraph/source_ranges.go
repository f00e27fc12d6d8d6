package blockgraph

import (
	"fmt"
	"sort"

	"github.com/regraft/regraft/errs"
)

// SourceRange maps a sub-range of a block's bytes back to a range of the
// original input address space. Data and source ranges are always the same
// size.
type SourceRange struct {
	// Start is the offset of the range within the block.
	Start int
	// Size is the length of the range in bytes.
	Size int
	// Source is the address of the range in the original image.
	Source RelativeAddress
}

// SourceRanges is an ordered, non-overlapping set of SourceRange entries,
// sorted by Start. It records block provenance for diffing and OMAP
// generation, and is adjusted automatically when block data is spliced.
type SourceRanges struct {
	ranges []SourceRange
}

// Push records that the block bytes [start, start+size) originate from
// [source, source+size) in the original image. It fails if the data range
// overlaps an already recorded range.
func (s *SourceRanges) Push(start, size int, source RelativeAddress) error {
	if start < 0 || size <= 0 {
		return fmt.Errorf("source range [%d, %d): %w", start, start+size, errs.ErrOutOfBounds)
	}

	idx := sort.Search(len(s.ranges), func(i int) bool {
		return s.ranges[i].Start+s.ranges[i].Size > start
	})
	if idx < len(s.ranges) && s.ranges[idx].Start < start+size {
		return fmt.Errorf("source range [%d, %d) overlaps [%d, %d): %w",
			start, start+size, s.ranges[idx].Start, s.ranges[idx].Start+s.ranges[idx].Size,
			errs.ErrSourceRangeOverlap)
	}

	s.ranges = append(s.ranges, SourceRange{})
	copy(s.ranges[idx+1:], s.ranges[idx:])
	s.ranges[idx] = SourceRange{Start: start, Size: size, Source: source}

	return nil
}

// Ranges returns a copy of the recorded ranges in data order.
func (s *SourceRanges) Ranges() []SourceRange {
	out := make([]SourceRange, len(s.ranges))
	copy(out, s.ranges)

	return out
}

// RangeCount returns the number of recorded ranges.
func (s *SourceRanges) RangeCount() int { return len(s.ranges) }

// IsEmpty returns true if no provenance has been recorded.
func (s *SourceRanges) IsEmpty() bool { return len(s.ranges) == 0 }

// EarliestSource returns the numerically smallest source address across all
// ranges, and false if there are none.
func (s *SourceRanges) EarliestSource() (RelativeAddress, bool) {
	if len(s.ranges) == 0 {
		return 0, false
	}

	earliest := s.ranges[0].Source
	for _, r := range s.ranges[1:] {
		if r.Source < earliest {
			earliest = r.Source
		}
	}

	return earliest, true
}

// Equal compares two range sets entry by entry.
func (s *SourceRanges) Equal(other *SourceRanges) bool {
	if len(s.ranges) != len(other.ranges) {
		return false
	}
	for i, r := range s.ranges {
		if r != other.ranges[i] {
			return false
		}
	}

	return true
}

// insertShift adjusts the ranges for numBytes of data spliced in at offset.
// Ranges entirely past the insertion point shift forward; a range spanning
// the insertion point is split around it, preserving the source mapping of
// both halves.
func (s *SourceRanges) insertShift(offset, numBytes int) {
	var out []SourceRange
	for _, r := range s.ranges {
		switch {
		case r.Start >= offset:
			r.Start += numBytes
			out = append(out, r)
		case r.Start+r.Size <= offset:
			out = append(out, r)
		default:
			// Split the range around the insertion point.
			headSize := offset - r.Start
			out = append(out,
				SourceRange{Start: r.Start, Size: headSize, Source: r.Source},
				SourceRange{
					Start:  offset + numBytes,
					Size:   r.Size - headSize,
					Source: r.Source + RelativeAddress(headSize),
				})
		}
	}
	s.ranges = out
}

// coalesce merges runs of adjacent ranges whose source addresses are also
// contiguous, so a splice followed by its inverse restores the original
// range set exactly.
func (s *SourceRanges) coalesce() {
	if len(s.ranges) < 2 {
		return
	}

	out := s.ranges[:1]
	for _, r := range s.ranges[1:] {
		last := &out[len(out)-1]
		if last.Start+last.Size == r.Start && last.Source+RelativeAddress(last.Size) == r.Source {
			last.Size += r.Size
			continue
		}
		out = append(out, r)
	}
	s.ranges = out
}

// removeShift adjusts the ranges for numBytes of data removed at offset.
// Ranges fully inside the removed span disappear; partially covered ranges
// are trimmed; later ranges shift backward.
func (s *SourceRanges) removeShift(offset, numBytes int) {
	end := offset + numBytes

	var out []SourceRange
	for _, r := range s.ranges {
		rEnd := r.Start + r.Size
		switch {
		case rEnd <= offset:
			out = append(out, r)
		case r.Start >= end:
			r.Start -= numBytes
			out = append(out, r)
		case r.Start >= offset && rEnd <= end:
			// Fully removed.
		default:
			// Partial overlap: keep the head before the cut and/or the tail
			// after it.
			if r.Start < offset {
				out = append(out, SourceRange{
					Start:  r.Start,
					Size:   offset - r.Start,
					Source: r.Source,
				})
			}
			if rEnd > end {
				out = append(out, SourceRange{
					Start:  offset,
					Size:   rEnd - end,
					Source: r.Source + RelativeAddress(end-r.Start),
				})
			}
		}
	}
	s.ranges = out
	s.coalesce()
}
