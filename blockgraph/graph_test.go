package blockgraph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/regraft/regraft/errs"
)

func TestAddBlockAssignsUniqueIDs(t *testing.T) {
	g := New()

	b1 := g.AddBlock(CodeBlock, 0x10, "b1")
	b2 := g.AddBlock(DataBlock, 0x10, "b2")
	require.NotNil(t, b1)
	require.NotNil(t, b2)
	require.NotEqual(t, b1.ID(), b2.ID())
	require.Equal(t, 2, g.BlockCount())

	require.Nil(t, g.AddBlock(CodeBlock, -1, "bad size"))
	require.Nil(t, g.AddBlock(blockTypeMax, 0x10, "bad type"))
	require.Equal(t, 2, g.BlockCount())
}

func TestRemoveBlockRetiresID(t *testing.T) {
	g := New()

	b := g.AddBlock(CodeBlock, 0x10, "b")
	id := b.ID()
	require.NoError(t, g.RemoveBlock(b))
	require.Nil(t, g.BlockByID(id))

	// A later block never reuses the retired ID.
	next := g.AddBlock(CodeBlock, 0x10, "next")
	require.Greater(t, next.ID(), id)

	require.ErrorIs(t, g.RemoveBlock(b), errs.ErrNotInGraph)
}

// A block with live edges, in either direction, cannot be removed.
func TestRemoveBlockWithLiveEdges(t *testing.T) {
	g := New()
	from := g.AddBlock(CodeBlock, 0x10, "from")
	to := g.AddBlock(DataBlock, 0x10, "to")

	_, err := from.SetReference(0, NewReference(AbsoluteRef, 4, to, 0, 0))
	require.NoError(t, err)

	require.ErrorIs(t, g.RemoveBlock(to), errs.ErrBlockInUse)
	require.ErrorIs(t, g.RemoveBlock(from), errs.ErrBlockInUse)
	require.Equal(t, 2, g.BlockCount())

	from.RemoveAllReferences()
	require.NoError(t, g.RemoveBlock(to))
	require.NoError(t, g.RemoveBlock(from))
	require.Zero(t, g.BlockCount())
}

func TestAddBlockWithID(t *testing.T) {
	g := New()

	b, err := g.AddBlockWithID(7, CodeBlock, 0x10, "seven")
	require.NoError(t, err)
	require.Equal(t, BlockID(7), b.ID())

	_, err = g.AddBlockWithID(7, CodeBlock, 0x10, "dup")
	require.Error(t, err)

	// The counter advanced past the explicit ID.
	next := g.AddBlock(CodeBlock, 0x10, "next")
	require.Equal(t, BlockID(8), next.ID())
}

func TestBlocksIterationOrder(t *testing.T) {
	g := New()
	for i := 0; i < 5; i++ {
		g.AddBlock(CodeBlock, 0x10, "b")
	}

	var prev BlockID
	first := true
	for b := range g.Blocks() {
		if !first {
			require.Greater(t, b.ID(), prev)
		}
		prev = b.ID()
		first = false
	}
}

func TestSections(t *testing.T) {
	g := New()

	text := g.AddSection(".text", 0x60000020)
	require.NotNil(t, text)
	require.Equal(t, ".text", text.Name())
	require.Equal(t, uint32(0x60000020), text.Characteristics())

	// Same name, new ID: AddSection never deduplicates.
	text2 := g.AddSection(".text", 0)
	require.NotEqual(t, text.ID(), text2.ID())
	require.Equal(t, 2, g.SectionCount())

	// FindSection resolves by creation order and ignores characteristics.
	require.Equal(t, text, g.FindSection(".text"))
	require.Nil(t, g.FindSection(".data"))

	data := g.FindOrAddSection(".data", 0xC0000040)
	require.Equal(t, 3, g.SectionCount())
	require.Equal(t, data, g.FindOrAddSection(".data", 0))

	require.NoError(t, g.RemoveSection(text2))
	require.ErrorIs(t, g.RemoveSection(text2), errs.ErrUnknownSection)
	require.Equal(t, 2, g.SectionCount())
}

func TestAddSectionWithID(t *testing.T) {
	g := New()

	s, err := g.AddSectionWithID(3, ".rdata", 0x40000040)
	require.NoError(t, err)
	require.Equal(t, SectionID(3), s.ID())

	_, err = g.AddSectionWithID(3, ".dup", 0)
	require.Error(t, err)

	next := g.AddSection(".next", 0)
	require.Equal(t, SectionID(4), next.ID())
}

func TestSectionMutation(t *testing.T) {
	g := New()
	s := g.AddSection(".text", 0x20)

	s.SetName(".text2")
	require.Equal(t, ".text2", s.Name())

	s.SetCharacteristic(0x40)
	require.Equal(t, uint32(0x60), s.Characteristics())
	s.ClearCharacteristic(0x20)
	require.Equal(t, uint32(0x40), s.Characteristics())
	s.SetCharacteristics(0)
	require.Zero(t, s.Characteristics())
}

// Identical content run through the graph resolves to the identical stored
// string instance.
func TestStringInterning(t *testing.T) {
	g := New()

	name := string([]byte("duplicated"))
	b1 := g.AddBlock(CodeBlock, 0x10, name)
	b2 := g.AddBlock(CodeBlock, 0x10, string([]byte("duplicated")))

	require.Equal(t, b1.Name(), b2.Name())
	require.Equal(t, g.InternString("duplicated"), g.InternString(string([]byte("duplicated"))))
	require.Equal(t, "fresh", g.InternString("fresh"))
}
