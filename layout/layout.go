// Package layout assigns final addresses to an ordered block graph,
// producing the image layout an external writer serializes.
package layout

import (
	"fmt"

	"github.com/regraft/regraft/blockgraph"
	"github.com/regraft/regraft/errs"
	"github.com/regraft/regraft/internal/options"
)

// SectionInfo records the final placement of one section in the image.
type SectionInfo struct {
	Name            string
	Characteristics uint32
	// Addr is the section's starting address in the laid-out image.
	Addr blockgraph.RelativeAddress
	// Size is the section's full extent, implicit zero tails included.
	Size int
	// DataSize is the extent that carries explicit data and must be
	// present in the file on disk.
	DataSize int
}

// ImageLayout is the output of the layout builder: every placed block with
// its final address, plus the section placement table.
type ImageLayout struct {
	Blocks   *blockgraph.AddressSpace
	Sections []SectionInfo
}

// NewImageLayout creates an empty layout over a fresh address space for the
// given graph.
func NewImageLayout(g *blockgraph.Graph) *ImageLayout {
	return &ImageLayout{Blocks: blockgraph.NewAddressSpace(g)}
}

const defaultSectionAlignment = 0x1000

// Builder walks blocks section by section, advancing an address cursor
// rounded up to each block's alignment. Alignment gaps stay gaps; padding is
// only a block if a transform materialized one.
type Builder struct {
	layout *ImageLayout
	cursor blockgraph.RelativeAddress

	sectionAlignment int

	inSection    bool
	sectionID    blockgraph.SectionID
	sectionStart blockgraph.RelativeAddress
	sectionEnd   blockgraph.RelativeAddress
	dataEnd      blockgraph.RelativeAddress
	current      SectionInfo
}

// Option configures a Builder.
type Option = options.Option[*Builder]

// WithBaseAddress sets the address the first section starts at. Defaults to
// zero, leaving the caller to account for image headers.
func WithBaseAddress(addr blockgraph.RelativeAddress) Option {
	return options.NoError(func(b *Builder) {
		b.cursor = addr
	})
}

// WithSectionAlignment sets the boundary each new section's start is rounded
// up to. Must be a power of two; defaults to 0x1000.
func WithSectionAlignment(alignment int) Option {
	return options.New(func(b *Builder) error {
		if alignment <= 0 || alignment&(alignment-1) != 0 {
			return fmt.Errorf("section alignment %d is not a power of two: %w", alignment, errs.ErrOutOfBounds)
		}
		b.sectionAlignment = alignment

		return nil
	})
}

// NewBuilder creates a builder appending to the given layout.
func NewBuilder(layout *ImageLayout, opts ...Option) (*Builder, error) {
	b := &Builder{
		layout:           layout,
		sectionAlignment: defaultSectionAlignment,
	}
	if err := options.Apply(b, opts...); err != nil {
		return nil, err
	}

	return b, nil
}

// Cursor returns the next unassigned address.
func (b *Builder) Cursor() blockgraph.RelativeAddress { return b.cursor }

// LayoutBlockAt places a single block at an explicit address, moving the
// cursor past it. Used for header blocks that live below the first section.
func (b *Builder) LayoutBlockAt(block *blockgraph.Block, addr blockgraph.RelativeAddress) error {
	if err := b.layout.Blocks.InsertBlock(addr, block); err != nil {
		return err
	}
	if end := addr + blockgraph.RelativeAddress(block.Size()); end > b.cursor {
		b.cursor = end
	}

	return nil
}

// OpenSection starts laying out the given graph section at the cursor
// rounded up to the section alignment. Only one section may be open at a
// time.
func (b *Builder) OpenSection(section *blockgraph.Section) error {
	if b.inSection {
		return fmt.Errorf("section %q still open: %w", b.current.Name, errs.ErrAlreadyPlaced)
	}

	b.cursor = alignUp(b.cursor, b.sectionAlignment)
	b.inSection = true
	b.sectionID = section.ID()
	b.sectionStart = b.cursor
	b.sectionEnd = b.cursor
	b.dataEnd = b.cursor
	b.current = SectionInfo{
		Name:            section.Name(),
		Characteristics: section.Characteristics(),
		Addr:            b.cursor,
	}

	return nil
}

// LayoutBlock places the next block in the open section at the cursor
// rounded up to the block's alignment.
func (b *Builder) LayoutBlock(block *blockgraph.Block) error {
	if !b.inSection {
		return fmt.Errorf("layout block %d outside any section: %w", block.ID(), errs.ErrNotPlaced)
	}

	addr := alignUp(b.cursor, block.Alignment())
	if err := b.layout.Blocks.InsertBlock(addr, block); err != nil {
		return err
	}
	block.SetSectionID(b.sectionID)

	b.cursor = addr + blockgraph.RelativeAddress(block.Size())
	b.sectionEnd = b.cursor
	if block.DataSize() > 0 {
		b.dataEnd = addr + blockgraph.RelativeAddress(block.DataSize())
	}

	return nil
}

// CloseSection finalizes the open section and appends its SectionInfo to the
// layout.
func (b *Builder) CloseSection() error {
	if !b.inSection {
		return fmt.Errorf("no open section: %w", errs.ErrNotPlaced)
	}

	b.current.Size = int(b.sectionEnd - b.sectionStart)
	b.current.DataSize = int(b.dataEnd - b.sectionStart)
	b.layout.Sections = append(b.layout.Sections, b.current)
	b.inSection = false

	return nil
}

func alignUp(addr blockgraph.RelativeAddress, alignment int) blockgraph.RelativeAddress {
	mask := blockgraph.RelativeAddress(alignment - 1)
	return (addr + mask) &^ mask
}
