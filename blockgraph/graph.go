package blockgraph

import (
	"fmt"
	"iter"
	"sort"

	"github.com/regraft/regraft/errs"
)

// Graph is the owning container for all blocks and sections of one binary
// image. It assigns unique IDs and is the single place blocks are created
// and destroyed. All names flowing through the graph are deduplicated by an
// internal string-interning table.
type Graph struct {
	nextBlockID   BlockID
	nextSectionID SectionID
	blocks        map[BlockID]*Block
	sections      map[SectionID]*Section
	intern        *internTable
}

// New creates an empty block graph.
func New() *Graph {
	return &Graph{
		blocks:   make(map[BlockID]*Block),
		sections: make(map[SectionID]*Section),
		intern:   newInternTable(),
	}
}

// AddBlock allocates a new block with a fresh unique ID and default
// attributes, owned by the graph for its entire lifetime. Returns nil for a
// negative size.
func (g *Graph) AddBlock(blockType BlockType, size int, name string) *Block {
	if blockType >= blockTypeMax || size < 0 {
		return nil
	}

	block := g.newBlock(g.nextBlockID, blockType, size, name)
	g.nextBlockID++

	return block
}

// AddBlockWithID allocates a block with an explicit ID. Intended for
// deserializers reconstructing a saved graph; fails if the ID is already in
// use. The graph's ID counter advances past the given ID so later AddBlock
// calls stay unique.
func (g *Graph) AddBlockWithID(id BlockID, blockType BlockType, size int, name string) (*Block, error) {
	if blockType >= blockTypeMax || size < 0 {
		return nil, fmt.Errorf("block %d with type %d size %d: %w", id, blockType, size, errs.ErrOutOfBounds)
	}
	if _, exists := g.blocks[id]; exists {
		return nil, fmt.Errorf("block id %d already in use: %w", id, errs.ErrNotInGraph)
	}

	block := g.newBlock(id, blockType, size, name)
	if id >= g.nextBlockID {
		g.nextBlockID = id + 1
	}

	return block, nil
}

func (g *Graph) newBlock(id BlockID, blockType BlockType, size int, name string) *Block {
	block := &Block{
		id:        id,
		blockType: blockType,
		size:      size,
		alignment: 1,
		name:      g.intern.intern(name),
		sectionID: InvalidSectionID,
		addr:      InvalidAddress,
		referrers: make(map[Referrer]struct{}),
		labels:    make(map[int]Label),
		graph:     g,
	}
	g.blocks[id] = block

	return block
}

// RemoveBlock destroys the given block. It fails if the block does not
// belong to this graph or still has any outgoing reference or incoming
// referrer; dangling edges are never silently created. On success the
// block's ID is permanently retired.
func (g *Graph) RemoveBlock(block *Block) error {
	if block == nil || block.graph != g || g.blocks[block.id] != block {
		return fmt.Errorf("remove block: %w", errs.ErrNotInGraph)
	}

	return g.RemoveBlockByID(block.id)
}

// RemoveBlockByID destroys the block with the given ID, with the same
// constraints as RemoveBlock.
func (g *Graph) RemoveBlockByID(id BlockID) error {
	block, ok := g.blocks[id]
	if !ok {
		return fmt.Errorf("remove block %d: %w", id, errs.ErrNotInGraph)
	}
	if block.ReferenceCount() > 0 || block.ReferrerCount() > 0 {
		return fmt.Errorf("remove block %d (%q): %w", id, block.name, errs.ErrBlockInUse)
	}

	delete(g.blocks, id)
	block.graph = nil

	return nil
}

// BlockByID returns the block with the given ID, or nil.
func (g *Graph) BlockByID(id BlockID) *Block {
	return g.blocks[id]
}

// Blocks iterates all blocks in ID order.
func (g *Graph) Blocks() iter.Seq[*Block] {
	return func(yield func(*Block) bool) {
		ids := make([]BlockID, 0, len(g.blocks))
		for id := range g.blocks {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			if !yield(g.blocks[id]) {
				return
			}
		}
	}
}

// BlockCount returns the number of live blocks.
func (g *Graph) BlockCount() int { return len(g.blocks) }

// AddSection always creates a new section with a fresh unique ID, even if a
// section with the same name already exists.
func (g *Graph) AddSection(name string, characteristics uint32) *Section {
	section := &Section{
		id:              g.nextSectionID,
		name:            g.intern.intern(name),
		characteristics: characteristics,
		graph:           g,
	}
	g.sections[section.id] = section
	g.nextSectionID++

	return section
}

// AddSectionWithID creates a section with an explicit ID. Intended for
// deserializers; fails if the ID is already in use.
func (g *Graph) AddSectionWithID(id SectionID, name string, characteristics uint32) (*Section, error) {
	if _, exists := g.sections[id]; exists {
		return nil, fmt.Errorf("section id %d already in use: %w", id, errs.ErrNotInGraph)
	}

	section := &Section{
		id:              id,
		name:            g.intern.intern(name),
		characteristics: characteristics,
		graph:           g,
	}
	g.sections[id] = section
	if id >= g.nextSectionID {
		g.nextSectionID = id + 1
	}

	return section, nil
}

// FindSection returns the first section (in creation order) with the given
// name, or nil.
func (g *Graph) FindSection(name string) *Section {
	var found *Section
	for section := range g.Sections() {
		if section.name == name {
			found = section
			break
		}
	}

	return found
}

// FindOrAddSection returns the first section with the given name, ignoring
// the requested characteristics, or creates one with them if none exists.
func (g *Graph) FindOrAddSection(name string, characteristics uint32) *Section {
	if section := g.FindSection(name); section != nil {
		return section
	}

	return g.AddSection(name, characteristics)
}

// RemoveSection drops the given section record. Blocks referencing the
// section by ID are not touched; their section IDs simply stop resolving.
func (g *Graph) RemoveSection(section *Section) error {
	if section == nil || g.sections[section.id] != section {
		return fmt.Errorf("remove section: %w", errs.ErrUnknownSection)
	}

	return g.RemoveSectionByID(section.id)
}

// RemoveSectionByID drops the section with the given ID, failing for an
// unknown ID.
func (g *Graph) RemoveSectionByID(id SectionID) error {
	if _, ok := g.sections[id]; !ok {
		return fmt.Errorf("remove section %d: %w", id, errs.ErrUnknownSection)
	}
	delete(g.sections, id)

	return nil
}

// SectionByID returns the section with the given ID, or nil.
func (g *Graph) SectionByID(id SectionID) *Section {
	return g.sections[id]
}

// Sections iterates all sections in ID order.
func (g *Graph) Sections() iter.Seq[*Section] {
	return func(yield func(*Section) bool) {
		ids := make([]SectionID, 0, len(g.sections))
		for id := range g.sections {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			if !yield(g.sections[id]) {
				return
			}
		}
	}
}

// SectionCount returns the number of sections.
func (g *Graph) SectionCount() int { return len(g.sections) }

// NextBlockID returns the ID the next AddBlock call will assign.
func (g *Graph) NextBlockID() BlockID { return g.nextBlockID }

// NextSectionID returns the ID the next AddSection call will assign.
func (g *Graph) NextSectionID() SectionID { return g.nextSectionID }

// ReserveIDs advances the ID counters to at least the given values, so that
// IDs retired before a graph was saved stay retired after it is loaded.
func (g *Graph) ReserveIDs(nextBlock BlockID, nextSection SectionID) {
	if nextBlock > g.nextBlockID {
		g.nextBlockID = nextBlock
	}
	if nextSection > g.nextSectionID {
		g.nextSectionID = nextSection
	}
}

// InternString returns the canonical stored instance of s from the graph's
// interning table, storing it first if new. Identical content always
// returns the identical instance.
func (g *Graph) InternString(s string) string {
	return g.intern.intern(s)
}
