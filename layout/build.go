package layout

import (
	"fmt"

	"github.com/regraft/regraft/blockgraph"
	"github.com/regraft/regraft/errs"
	"github.com/regraft/regraft/ordering"
)

// BuildOrderedLayout lays out an ordered graph into the given layout:
// unassigned blocks (the image headers) first, then each section in order.
//
// Afterwards the graph is reconciled against the layout: a graph block the
// ordering left out is deleted if it carries the Discardable attribute
// (obsolete structures a writer regenerates), and is a fatal error
// otherwise, since an orderer silently dropping a live block would corrupt
// the output.
func BuildOrderedLayout(ordered *ordering.OrderedGraph, l *ImageLayout, opts ...Option) error {
	builder, err := NewBuilder(l, opts...)
	if err != nil {
		return err
	}

	for _, section := range ordered.Sections() {
		if section.Section() == nil {
			for _, block := range section.Blocks() {
				addr := alignUp(builder.Cursor(), block.Alignment())
				if err := builder.LayoutBlockAt(block, addr); err != nil {
					return err
				}
			}
			continue
		}

		if err := builder.OpenSection(section.Section()); err != nil {
			return err
		}
		for _, block := range section.Blocks() {
			if err := builder.LayoutBlock(block); err != nil {
				return err
			}
		}
		if err := builder.CloseSection(); err != nil {
			return err
		}
	}

	return reconcile(ordered.Graph(), l)
}

// reconcile removes discardable unplaced blocks and rejects any other block
// the layout missed.
func reconcile(g *blockgraph.Graph, l *ImageLayout) error {
	var garbage []*blockgraph.Block
	for block := range g.Blocks() {
		if l.Blocks.ContainsBlock(block) {
			continue
		}
		if block.Attributes()&blockgraph.Discardable == 0 {
			return fmt.Errorf("block %d (%q) missing from layout: %w",
				block.ID(), block.Name(), errs.ErrUnplacedBlock)
		}
		garbage = append(garbage, block)
	}

	// Drop all outgoing references first so garbage blocks referencing each
	// other do not keep each other alive.
	for _, block := range garbage {
		block.RemoveAllReferences()
	}
	for _, block := range garbage {
		if err := g.RemoveBlock(block); err != nil {
			return fmt.Errorf("dropping discardable block %d: %w", block.ID(), err)
		}
	}

	return nil
}
