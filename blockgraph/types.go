package blockgraph

import "strings"

// BlockID uniquely identifies a block within its graph. IDs are assigned
// monotonically at creation and never reused, even after a block is removed.
type BlockID uint32

// SectionID uniquely identifies a section within its graph.
type SectionID uint32

// InvalidSectionID marks a block that belongs to no section (headers and
// other image metadata).
const InvalidSectionID = ^SectionID(0)

// RelativeAddress is an address in the graph's logical address space,
// expressed relative to the image base.
type RelativeAddress uint32

// InvalidAddress marks a block that has not been placed in an address space.
const InvalidAddress = ^RelativeAddress(0)

// BlockType distinguishes code from data content.
type BlockType uint8

const (
	// CodeBlock holds executable instructions.
	CodeBlock BlockType = iota
	// DataBlock holds non-executable content.
	DataBlock

	blockTypeMax
)

func (t BlockType) String() string {
	switch t {
	case CodeBlock:
		return "Code"
	case DataBlock:
		return "Data"
	default:
		return "Unknown"
	}
}

// BlockAttributes is a bag of boolean block properties.
type BlockAttributes uint32

const (
	// SectionContrib marks a block decomposed from a section contribution.
	SectionContrib BlockAttributes = 1 << iota
	// PaddingBlock marks inter-block padding materialized as a block.
	PaddingBlock
	// GapBlock marks a block synthesized to cover an unaccounted gap in the
	// original image.
	GapBlock
	// PEParsed marks a block whose content has been parsed into references
	// by the PE decomposer.
	PEParsed
	// RelocData marks relocation table content that is regenerated at write
	// time.
	RelocData
	// Synthesized marks a block created by a transform rather than
	// decomposed from the original image.
	Synthesized
	// Discardable marks a block that may safely be dropped if an orderer
	// leaves it out of the final layout.
	Discardable
	// Orderable marks a block that orderers are free to move; blocks without
	// it keep their original relative position.
	Orderable
)

var blockAttributeNames = []struct {
	attr BlockAttributes
	name string
}{
	{SectionContrib, "SectionContrib"},
	{PaddingBlock, "Padding"},
	{GapBlock, "Gap"},
	{PEParsed, "PEParsed"},
	{RelocData, "RelocData"},
	{Synthesized, "Synthesized"},
	{Discardable, "Discardable"},
	{Orderable, "Orderable"},
}

func (a BlockAttributes) String() string {
	if a == 0 {
		return "None"
	}

	var parts []string
	for _, entry := range blockAttributeNames {
		if a&entry.attr != 0 {
			parts = append(parts, entry.name)
		}
	}

	return strings.Join(parts, "|")
}
