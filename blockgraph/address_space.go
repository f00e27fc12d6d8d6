package blockgraph

import (
	"fmt"
	"iter"
	"strings"

	"github.com/google/btree"

	"github.com/regraft/regraft/errs"
)

// rangeItem is one occupied [start, start+size) range in an address space.
type rangeItem struct {
	start RelativeAddress
	size  int
	block *Block
}

func rangeLess(a, b rangeItem) bool { return a.start < b.start }

const rangeTreeDegree = 16

// AddressSpace maps a subset of a graph's blocks to non-overlapping address
// ranges.
//
// Non-zero-sized blocks occupy a range in an ordered tree; zero-sized blocks
// occupy no range but still have an address, tracked in a side map from
// block to address. A block may be placed in several address spaces at once;
// each space tracks its own address for it.
type AddressSpace struct {
	graph  *Graph
	ranges *btree.BTreeG[rangeItem]
	addrs  map[*Block]RelativeAddress

	// intersectionAttrs propagate to a merged block only when present on
	// every constituent; all other attributes propagate when present on any.
	intersectionAttrs BlockAttributes
}

// DefaultIntersectionAttributes are the attributes MergeIntersectingBlocks
// propagates only if every constituent carries them. A merged block is only
// a gap or padding if all of its inputs were; everything else (PEParsed and
// friends) spreads from any input.
const DefaultIntersectionAttributes = GapBlock | PaddingBlock

// NewAddressSpace creates an empty address space over the given graph.
func NewAddressSpace(graph *Graph) *AddressSpace {
	return &AddressSpace{
		graph:             graph,
		ranges:            btree.NewG(rangeTreeDegree, rangeLess),
		addrs:             make(map[*Block]RelativeAddress),
		intersectionAttrs: DefaultIntersectionAttributes,
	}
}

// Graph returns the graph whose blocks this space places.
func (s *AddressSpace) Graph() *Graph { return s.graph }

// SetIntersectionAttributes replaces the attribute set that propagates to
// merged blocks only when universal among the constituents.
func (s *AddressSpace) SetIntersectionAttributes(attrs BlockAttributes) {
	s.intersectionAttrs = attrs
}

// IntersectionAttributes returns the only-if-universal merge attribute set.
func (s *AddressSpace) IntersectionAttributes() BlockAttributes {
	return s.intersectionAttrs
}

// intersects reports whether [start, start+size) intersects any occupied
// range other than ignore's.
func (s *AddressSpace) intersects(start RelativeAddress, size int, ignore *Block) bool {
	if size <= 0 {
		return false
	}

	// Only the highest-starting range at or below the end of the query can
	// overlap it; everything below that ends even earlier.
	overlap := false
	s.ranges.DescendLessOrEqual(rangeItem{start: start + RelativeAddress(size) - 1}, func(item rangeItem) bool {
		if item.block == ignore {
			return true
		}
		overlap = item.start+RelativeAddress(item.size) > start

		return false
	})

	return overlap
}

// AddBlock atomically creates a block in the owning graph and places it at
// the given address. If the range intersects an existing placed range no
// block is created.
func (s *AddressSpace) AddBlock(blockType BlockType, addr RelativeAddress, size int, name string) (*Block, error) {
	if s.intersects(addr, size, nil) {
		return nil, fmt.Errorf("add block %q at %#x+%#x: %w", name, addr, size, errs.ErrAddressOverlap)
	}

	block := s.graph.AddBlock(blockType, size, name)
	if block == nil {
		return nil, fmt.Errorf("add block %q with size %d: %w", name, size, errs.ErrOutOfBounds)
	}
	if err := s.InsertBlock(addr, block); err != nil {
		// The overlap check above makes this unreachable.
		return nil, err
	}

	return block, nil
}

// InsertBlock places an existing block of the same graph at the given
// address. A zero-sized block may be inserted at any address, including one
// shared with other blocks, since it occupies no range.
func (s *AddressSpace) InsertBlock(addr RelativeAddress, block *Block) error {
	if block == nil || block.graph != s.graph {
		return fmt.Errorf("insert block: %w", errs.ErrNotInGraph)
	}
	if _, placed := s.addrs[block]; placed {
		return fmt.Errorf("insert block %d (%q): %w", block.id, block.name, errs.ErrAlreadyPlaced)
	}
	if s.intersects(addr, block.size, nil) {
		return fmt.Errorf("insert block %d (%q) at %#x+%#x: %w",
			block.id, block.name, addr, block.size, errs.ErrAddressOverlap)
	}

	if block.size > 0 {
		s.ranges.ReplaceOrInsert(rangeItem{start: addr, size: block.size, block: block})
	}
	s.addrs[block] = addr
	block.SetAddress(addr)

	return nil
}

// ResizeBlock changes a placed block's size, updating its occupied range.
// Growing fails if the larger range would overlap the next placed block.
// Shrinking to exactly zero keeps the block's recorded address but frees its
// slot in the occupied-range structure.
func (s *AddressSpace) ResizeBlock(block *Block, newSize int) error {
	addr, placed := s.addrs[block]
	if !placed {
		return fmt.Errorf("resize block %d: %w", block.id, errs.ErrNotPlaced)
	}
	if newSize < 0 {
		return fmt.Errorf("resize block %d to %d: %w", block.id, newSize, errs.ErrOutOfBounds)
	}
	if newSize == block.size {
		return nil
	}
	if newSize > block.size && s.intersects(addr, newSize, block) {
		return fmt.Errorf("resize block %d to %#x+%#x: %w", block.id, addr, newSize, errs.ErrAddressOverlap)
	}

	if block.size > 0 {
		s.ranges.Delete(rangeItem{start: addr})
	}
	if newSize > 0 {
		s.ranges.ReplaceOrInsert(rangeItem{start: addr, size: newSize, block: block})
	}

	block.size = newSize
	if block.dataSize > newSize {
		// Narrow the data view so the data/size invariant holds.
		if _, err := block.ResizeData(newSize); err != nil {
			return err
		}
	}

	return nil
}

// GetBlockByAddress returns the block whose occupied range contains the
// given address, or nil. Zero-sized blocks occupy no range and are never
// returned.
func (s *AddressSpace) GetBlockByAddress(addr RelativeAddress) *Block {
	var found *Block
	s.ranges.DescendLessOrEqual(rangeItem{start: addr}, func(item rangeItem) bool {
		if item.start+RelativeAddress(item.size) > addr {
			found = item.block
		}

		return false
	})

	return found
}

// GetFirstIntersectingBlock returns the lowest-addressed block whose range
// intersects [addr, addr+size) at all, or nil.
func (s *AddressSpace) GetFirstIntersectingBlock(addr RelativeAddress, size int) *Block {
	if size <= 0 {
		return nil
	}

	// A range straddling addr from below is necessarily the lowest match.
	if block := s.GetBlockByAddress(addr); block != nil {
		return block
	}

	var found *Block
	s.ranges.AscendGreaterOrEqual(rangeItem{start: addr}, func(item rangeItem) bool {
		if item.start < addr+RelativeAddress(size) {
			found = item.block
		}

		return false
	})

	return found
}

// GetContainingBlock returns the block whose range contains the entire query
// range, or nil if the query spans multiple blocks or none.
func (s *AddressSpace) GetContainingBlock(addr RelativeAddress, size int) *Block {
	if size <= 0 {
		return nil
	}

	var found *Block
	s.ranges.DescendLessOrEqual(rangeItem{start: addr}, func(item rangeItem) bool {
		if item.start+RelativeAddress(item.size) >= addr+RelativeAddress(size) {
			found = item.block
		}

		return false
	})

	return found
}

// GetAddressOf returns the address assigned to the block in this space. It
// works for zero-sized blocks absent from the occupied-range structure, as
// long as they were placed at some point.
func (s *AddressSpace) GetAddressOf(block *Block) (RelativeAddress, bool) {
	addr, ok := s.addrs[block]
	return addr, ok
}

// ContainsBlock returns true if the block has been placed in this space.
func (s *AddressSpace) ContainsBlock(block *Block) bool {
	_, ok := s.addrs[block]
	return ok
}

// RangeCount returns the number of occupied (non-zero-sized) ranges.
func (s *AddressSpace) RangeCount() int { return s.ranges.Len() }

// BlockCount returns the number of placed blocks, zero-sized included.
func (s *AddressSpace) BlockCount() int { return len(s.addrs) }

// Ranges iterates the occupied ranges in ascending address order.
func (s *AddressSpace) Ranges() iter.Seq2[RelativeAddress, *Block] {
	return func(yield func(RelativeAddress, *Block) bool) {
		s.ranges.Ascend(func(item rangeItem) bool {
			return yield(item.start, item.block)
		})
	}
}

// MergeIntersectingBlocks collapses every block intersecting
// [start, start+size) into one new block spanning their combined extent.
//
// Labels, data, source ranges and references are copied across with offsets
// rebased to the merged block; references between the merging blocks become
// self-references and external references are redirected. Attributes in the
// space's intersection set propagate only if present on every constituent;
// all others propagate if present on any. The constituent blocks are removed
// from the owning graph.
func (s *AddressSpace) MergeIntersectingBlocks(start RelativeAddress, size int) (*Block, error) {
	type constituent struct {
		addr  RelativeAddress
		block *Block
	}

	var parts []constituent
	end := start + RelativeAddress(size)
	s.ranges.AscendGreaterOrEqual(rangeItem{}, func(item rangeItem) bool {
		if item.start >= end {
			return false
		}
		if item.start+RelativeAddress(item.size) > start {
			parts = append(parts, constituent{addr: item.start, block: item.block})
		}

		return true
	})
	if len(parts) == 0 {
		return nil, fmt.Errorf("merge [%#x, %#x): no intersecting blocks: %w", start, end, errs.ErrNotPlaced)
	}

	newStart := parts[0].addr
	newEnd := newStart
	unionAttrs := BlockAttributes(0)
	interAttrs := ^BlockAttributes(0)
	alignment := 1
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if blockEnd := p.addr + RelativeAddress(p.block.size); blockEnd > newEnd {
			newEnd = blockEnd
		}
		unionAttrs |= p.block.attrs
		interAttrs &= p.block.attrs
		if p.block.alignment > alignment {
			alignment = p.block.alignment
		}
		names = append(names, p.block.name)
	}

	merged := s.graph.AddBlock(parts[0].block.blockType, int(newEnd-newStart),
		fmt.Sprintf("merged(%s)", strings.Join(names, ", ")))
	merged.SetSectionID(parts[0].block.sectionID)
	merged.alignment = alignment
	merged.attrs = (unionAttrs &^ s.intersectionAttrs) | (interAttrs & s.intersectionAttrs)

	// Explicit data spans through the end of the last constituent that has
	// any.
	mergedDataSize := 0
	for _, p := range parts {
		if p.block.dataSize == 0 {
			continue
		}
		if dataEnd := int(p.addr-newStart) + p.block.dataSize; dataEnd > mergedDataSize {
			mergedDataSize = dataEnd
		}
	}
	if mergedDataSize > 0 {
		buf, err := merged.AllocateData(mergedDataSize)
		if err != nil {
			return nil, err
		}
		for _, p := range parts {
			if p.block.dataSize == 0 {
				continue
			}
			copy(buf[p.addr-newStart:], p.block.data)
		}
	}

	for _, p := range parts {
		delta := int(p.addr - newStart)

		for offset, label := range p.block.Labels() {
			if _, err := merged.SetLabel(offset+delta, label.Name(), label.Attributes()); err != nil {
				return nil, err
			}
		}
		for _, r := range p.block.srcRanges.ranges {
			if err := merged.srcRanges.Push(r.Start+delta, r.Size, r.Source); err != nil {
				return nil, err
			}
		}
		for offset, ref := range p.block.References() {
			if _, err := merged.SetReference(offset+delta, ref); err != nil {
				return nil, err
			}
		}
		p.block.RemoveAllReferences()
	}

	for _, p := range parts {
		if err := p.block.TransferReferrers(int(p.addr-newStart), merged, TransferAllReferences); err != nil {
			return nil, err
		}
	}

	for _, p := range parts {
		s.ranges.Delete(rangeItem{start: p.addr})
		delete(s.addrs, p.block)
		if err := s.graph.RemoveBlock(p.block); err != nil {
			return nil, err
		}
	}

	if err := s.InsertBlock(newStart, merged); err != nil {
		return nil, err
	}

	return merged, nil
}
