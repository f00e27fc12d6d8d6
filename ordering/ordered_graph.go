package ordering

import (
	"fmt"
	"slices"

	"github.com/regraft/regraft/blockgraph"
	"github.com/regraft/regraft/errs"
)

// OrderedSection is one section's slot in the ordering: the underlying graph
// section plus the ordered list of blocks assigned to it. The section is nil
// for the pseudo-section holding blocks without a section assignment, such
// as the image headers.
type OrderedSection struct {
	section *blockgraph.Section
	blocks  []*blockgraph.Block
}

// Section returns the underlying graph section, or nil for the
// unassigned-blocks pseudo-section.
func (s *OrderedSection) Section() *blockgraph.Section { return s.section }

// Blocks returns the section's blocks in their current order. The slice is
// owned by the ordered graph; callers must not modify it.
func (s *OrderedSection) Blocks() []*blockgraph.Block { return s.blocks }

// BlockCount returns the number of blocks currently assigned to the section.
func (s *OrderedSection) BlockCount() int { return len(s.blocks) }

// OrderedGraph is the mutable scratch structure orderers operate on: every
// section of a graph in a defined sequence, every block slotted into exactly
// one section's list. Building one never mutates the graph itself.
type OrderedGraph struct {
	graph      *blockgraph.Graph
	sections   []*OrderedSection
	unassigned *OrderedSection
	membership map[*blockgraph.Block]*OrderedSection
}

// NewOrderedGraph builds the initial ordering for a graph: the
// unassigned-blocks pseudo-section first, then every graph section in ID
// order, with each section's blocks in block-ID order.
func NewOrderedGraph(g *blockgraph.Graph) *OrderedGraph {
	og := &OrderedGraph{
		graph:      g,
		unassigned: &OrderedSection{},
		membership: make(map[*blockgraph.Block]*OrderedSection, g.BlockCount()),
	}
	og.sections = append(og.sections, og.unassigned)

	bySectionID := make(map[blockgraph.SectionID]*OrderedSection, g.SectionCount())
	for section := range g.Sections() {
		ordered := &OrderedSection{section: section}
		og.sections = append(og.sections, ordered)
		bySectionID[section.ID()] = ordered
	}

	for block := range g.Blocks() {
		ordered, ok := bySectionID[block.SectionID()]
		if !ok {
			ordered = og.unassigned
		}
		ordered.blocks = append(ordered.blocks, block)
		og.membership[block] = ordered
	}

	return og
}

// Graph returns the underlying block graph.
func (og *OrderedGraph) Graph() *blockgraph.Graph { return og.graph }

// Sections returns the ordered sections, the unassigned pseudo-section
// included. The slice is owned by the ordered graph.
func (og *OrderedGraph) Sections() []*OrderedSection { return og.sections }

// SectionFor returns the ordered section a block currently belongs to, or
// nil if the block is not part of this ordering.
func (og *OrderedGraph) SectionFor(block *blockgraph.Block) *OrderedSection {
	return og.membership[block]
}

// OrderedSectionFor returns the slot of the given graph section, or nil.
// Pass a nil section for the unassigned pseudo-section.
func (og *OrderedGraph) OrderedSectionFor(section *blockgraph.Section) *OrderedSection {
	if section == nil {
		return og.unassigned
	}
	for _, ordered := range og.sections {
		if ordered.section == section {
			return ordered
		}
	}

	return nil
}

// CreateSection adds a new section to the underlying graph and appends an
// empty slot for it at the end of the ordering.
func (og *OrderedGraph) CreateSection(name string, characteristics uint32) *OrderedSection {
	ordered := &OrderedSection{section: og.graph.AddSection(name, characteristics)}
	og.sections = append(og.sections, ordered)

	return ordered
}

// PlaceAtHead moves a block to the front of the given section, detaching it
// from wherever it currently sits. A block previously removed from the
// ordering is re-admitted.
func (og *OrderedGraph) PlaceAtHead(section *OrderedSection, block *blockgraph.Block) {
	og.detach(block)
	section.blocks = slices.Insert(section.blocks, 0, block)
	og.membership[block] = section
}

// PlaceAtTail moves a block to the back of the given section.
func (og *OrderedGraph) PlaceAtTail(section *OrderedSection, block *blockgraph.Block) {
	og.detach(block)
	section.blocks = append(section.blocks, block)
	og.membership[block] = section
}

// PlaceBefore moves a block immediately before the anchor block, into the
// anchor's section.
func (og *OrderedGraph) PlaceBefore(anchor, block *blockgraph.Block) error {
	return og.placeRelative(anchor, block, 0)
}

// PlaceAfter moves a block immediately after the anchor block, into the
// anchor's section.
func (og *OrderedGraph) PlaceAfter(anchor, block *blockgraph.Block) error {
	return og.placeRelative(anchor, block, 1)
}

func (og *OrderedGraph) placeRelative(anchor, block *blockgraph.Block, delta int) error {
	section := og.membership[anchor]
	if section == nil {
		return fmt.Errorf("anchor block %d not in ordering: %w", anchor.ID(), errs.ErrNotInGraph)
	}
	if anchor == block {
		return nil
	}
	og.detach(block)

	idx := slices.Index(section.blocks, anchor)
	section.blocks = slices.Insert(section.blocks, idx+delta, block)
	og.membership[block] = section

	return nil
}

// RemoveBlock drops a block from the ordering without touching the graph.
// Unplaced blocks are reconciled by the layout builder afterwards.
func (og *OrderedGraph) RemoveBlock(block *blockgraph.Block) error {
	if og.membership[block] == nil {
		return fmt.Errorf("block not in ordering: %w", errs.ErrNotInGraph)
	}
	og.detach(block)

	return nil
}

func (og *OrderedGraph) detach(block *blockgraph.Block) {
	section := og.membership[block]
	if section == nil {
		return
	}

	idx := slices.Index(section.blocks, block)
	section.blocks = slices.Delete(section.blocks, idx, idx+1)
	delete(og.membership, block)
}
