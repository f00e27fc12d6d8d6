package ordering

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/regraft/regraft/blockgraph"
	"github.com/regraft/regraft/errs"
)

func blockNames(section *OrderedSection) []string {
	names := make([]string, 0, section.BlockCount())
	for _, b := range section.Blocks() {
		names = append(names, b.Name())
	}

	return names
}

func TestNewOrderedGraph(t *testing.T) {
	g := blockgraph.New()
	text := g.AddSection(".text", 0x20)
	data := g.AddSection(".data", 0x40)

	header := g.AddBlock(blockgraph.DataBlock, 0x40, "header")
	code := g.AddBlock(blockgraph.CodeBlock, 0x10, "code")
	code.SetSectionID(text.ID())
	globals := g.AddBlock(blockgraph.DataBlock, 0x10, "globals")
	globals.SetSectionID(data.ID())

	og := NewOrderedGraph(g)
	sections := og.Sections()
	require.Len(t, sections, 3)

	// Unassigned pseudo-section first, then sections in ID order.
	require.Nil(t, sections[0].Section())
	require.Equal(t, []string{"header"}, blockNames(sections[0]))
	require.Equal(t, text, sections[1].Section())
	require.Equal(t, []string{"code"}, blockNames(sections[1]))
	require.Equal(t, data, sections[2].Section())
	require.Equal(t, []string{"globals"}, blockNames(sections[2]))

	require.Equal(t, sections[1], og.SectionFor(code))
	require.Equal(t, sections[0], og.OrderedSectionFor(nil))
	require.Equal(t, sections[2], og.OrderedSectionFor(data))
	require.Equal(t, header, sections[0].Blocks()[0])
}

func TestPlacementOps(t *testing.T) {
	g := blockgraph.New()
	text := g.AddSection(".text", 0x20)
	var blocks []*blockgraph.Block
	for _, name := range []string{"a", "b", "c"} {
		b := g.AddBlock(blockgraph.CodeBlock, 0x10, name)
		b.SetSectionID(text.ID())
		blocks = append(blocks, b)
	}

	og := NewOrderedGraph(g)
	section := og.OrderedSectionFor(text)
	require.Equal(t, []string{"a", "b", "c"}, blockNames(section))

	og.PlaceAtHead(section, blocks[2])
	require.Equal(t, []string{"c", "a", "b"}, blockNames(section))

	og.PlaceAtTail(section, blocks[2])
	require.Equal(t, []string{"a", "b", "c"}, blockNames(section))

	require.NoError(t, og.PlaceBefore(blocks[0], blocks[2]))
	require.Equal(t, []string{"c", "a", "b"}, blockNames(section))

	require.NoError(t, og.PlaceAfter(blocks[1], blocks[2]))
	require.Equal(t, []string{"a", "b", "c"}, blockNames(section))

	// Moving a block across sections.
	other := og.CreateSection(".text2", 0x20)
	og.PlaceAtTail(other, blocks[0])
	require.Equal(t, []string{"b", "c"}, blockNames(section))
	require.Equal(t, []string{"a"}, blockNames(other))
	require.Equal(t, other, og.SectionFor(blocks[0]))

	require.NoError(t, og.RemoveBlock(blocks[1]))
	require.Equal(t, []string{"c"}, blockNames(section))
	require.Nil(t, og.SectionFor(blocks[1]))
	require.ErrorIs(t, og.RemoveBlock(blocks[1]), errs.ErrNotInGraph)

	// A removed block can be placed back in.
	og.PlaceAtHead(section, blocks[1])
	require.Equal(t, []string{"b", "c"}, blockNames(section))

	// A block created after the ordering was built joins via placement.
	late := g.AddBlock(blockgraph.CodeBlock, 4, "late")
	require.NoError(t, og.PlaceBefore(blocks[1], late))
	require.Equal(t, []string{"late", "b", "c"}, blockNames(section))
}

func TestPlaceBeforeUnknownAnchor(t *testing.T) {
	g := blockgraph.New()
	og := NewOrderedGraph(g)

	a := g.AddBlock(blockgraph.CodeBlock, 4, "a")
	b := g.AddBlock(blockgraph.CodeBlock, 4, "b")

	// Neither block existed when the ordering was built.
	require.ErrorIs(t, og.PlaceBefore(a, b), errs.ErrNotInGraph)
}
