package ordering

import (
	"sort"

	"github.com/regraft/regraft/blockgraph"
)

// Orderer decides the sequence of sections and blocks for layout. It only
// rearranges the ordered graph, never the block graph's content.
type Orderer interface {
	// Name identifies the orderer in diagnostics.
	Name() string
	// OrderBlockGraph rearranges the ordered graph in place. The header
	// block, if any, is moved to the very front of the image.
	OrderBlockGraph(ordered *OrderedGraph, headerBlock *blockgraph.Block) error
}

// OriginalOrderer reproduces the input image's block sequence: blocks sort
// by where their bytes came from, so a pipeline with no reordering
// transforms emits a byte-identical image.
//
// Within each section the comparison chain is, first difference wins:
//  1. both blocks have provenance: smaller earliest source address first
//  2. blocks that are entirely zero bytes with no outgoing references sort
//     last (they can be carved out of zero-initialized space)
//  3. blocks with provenance sort before blocks without
//  4. smaller block ID first
//
// The chain is a strict weak order over deterministic inputs, so the result
// never depends on map iteration or creation interleaving.
type OriginalOrderer struct{}

// Name implements Orderer.
func (OriginalOrderer) Name() string { return "OriginalOrderer" }

// OrderBlockGraph implements Orderer.
func (OriginalOrderer) OrderBlockGraph(ordered *OrderedGraph, headerBlock *blockgraph.Block) error {
	for _, section := range ordered.Sections() {
		blocks := section.blocks
		sort.SliceStable(blocks, func(i, j int) bool {
			return originalOrderLess(blocks[i], blocks[j])
		})
	}

	if headerBlock != nil {
		section := ordered.SectionFor(headerBlock)
		if section == nil {
			section = ordered.OrderedSectionFor(nil)
		}
		ordered.PlaceAtHead(section, headerBlock)
	}

	return nil
}

func originalOrderLess(a, b *blockgraph.Block) bool {
	aSrc, aHasSrc := a.SourceRanges().EarliestSource()
	bSrc, bHasSrc := b.SourceRanges().EarliestSource()
	if aHasSrc && bHasSrc && aSrc != bSrc {
		return aSrc < bSrc
	}

	aZero := zeroInitializable(a)
	bZero := zeroInitializable(b)
	if aZero != bZero {
		return bZero
	}

	if aHasSrc != bHasSrc {
		return aHasSrc
	}

	return a.ID() < b.ID()
}

// zeroInitializable reports whether a block is nothing but zero bytes with
// no outgoing references. Such blocks need no stored content at all.
func zeroInitializable(b *blockgraph.Block) bool {
	if b.ReferenceCount() > 0 {
		return false
	}
	for _, v := range b.Data() {
		if v != 0 {
			return false
		}
	}

	return true
}
