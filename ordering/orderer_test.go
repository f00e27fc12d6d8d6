package ordering

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/regraft/regraft/blockgraph"
)

func TestOriginalOrdererName(t *testing.T) {
	require.Equal(t, "OriginalOrderer", OriginalOrderer{}.Name())
}

// Blocks with provenance come first, sorted by earliest source address;
// then sourceless blocks with content; all-zero reference-free blocks last.
func TestOriginalOrdererChain(t *testing.T) {
	g := blockgraph.New()
	text := g.AddSection(".text", 0x20)

	addBlock := func(name string) *blockgraph.Block {
		b := g.AddBlock(blockgraph.CodeBlock, 0x10, name)
		b.SetSectionID(text.ID())

		return b
	}

	// Created deliberately out of source order.
	late := addBlock("late")
	_, err := late.CopyData([]byte{0xC3})
	require.NoError(t, err)
	require.NoError(t, late.SourceRanges().Push(0, 0x10, 0x3000))
	addBlock("zero")
	noSource := addBlock("no source")
	_, err = noSource.CopyData([]byte{1, 2, 3})
	require.NoError(t, err)
	early := addBlock("early")
	_, err = early.CopyData([]byte{0x90})
	require.NoError(t, err)
	require.NoError(t, early.SourceRanges().Push(0, 0x10, 0x1000))

	og := NewOrderedGraph(g)
	require.NoError(t, OriginalOrderer{}.OrderBlockGraph(og, nil))

	require.Equal(t, []string{"early", "late", "no source", "zero"},
		blockNames(og.OrderedSectionFor(text)))
}

// A block that is all zero bytes but carries an outgoing reference is not
// zero-initializable: the reference bytes get patched at write time.
func TestZeroBlockWithReferenceNotDemoted(t *testing.T) {
	g := blockgraph.New()
	text := g.AddSection(".text", 0x20)

	withRef := g.AddBlock(blockgraph.CodeBlock, 0x10, "with ref")
	withRef.SetSectionID(text.ID())
	plain := g.AddBlock(blockgraph.CodeBlock, 0x10, "plain zero")
	plain.SetSectionID(text.ID())

	target := g.AddBlock(blockgraph.DataBlock, 0x10, "target")
	_, err := withRef.SetReference(0, blockgraph.NewReference(blockgraph.AbsoluteRef, 4, target, 0, 0))
	require.NoError(t, err)

	og := NewOrderedGraph(g)
	require.NoError(t, OriginalOrderer{}.OrderBlockGraph(og, nil))

	require.Equal(t, []string{"with ref", "plain zero"}, blockNames(og.OrderedSectionFor(text)))
}

// Two orderings built from graphs whose equivalent blocks were created in
// different orders agree wherever source data distinguishes the blocks.
func TestOrderingDeterminism(t *testing.T) {
	build := func(reversed bool) []string {
		g := blockgraph.New()
		text := g.AddSection(".text", 0x20)

		rows := []struct {
			name string
			src  blockgraph.RelativeAddress
		}{
			{"first", 0x1000},
			{"second", 0x2000},
			{"third", 0x3000},
		}
		if reversed {
			for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
				rows[i], rows[j] = rows[j], rows[i]
			}
		}
		for _, row := range rows {
			b := g.AddBlock(blockgraph.CodeBlock, 0x10, row.name)
			b.SetSectionID(text.ID())
			if err := b.SourceRanges().Push(0, 0x10, row.src); err != nil {
				t.Fatal(err)
			}
		}

		og := NewOrderedGraph(g)
		if err := (OriginalOrderer{}).OrderBlockGraph(og, nil); err != nil {
			t.Fatal(err)
		}

		return blockNames(og.OrderedSectionFor(text))
	}

	require.Equal(t, build(false), build(true))
	require.Equal(t, []string{"first", "second", "third"}, build(true))
}

func TestHeaderBlockMovesToFront(t *testing.T) {
	g := blockgraph.New()
	g.AddBlock(blockgraph.DataBlock, 0x10, "other unassigned")
	header := g.AddBlock(blockgraph.DataBlock, 0x40, "header")

	og := NewOrderedGraph(g)
	require.NoError(t, OriginalOrderer{}.OrderBlockGraph(og, header))

	unassigned := og.OrderedSectionFor(nil)
	require.Equal(t, []string{"header", "other unassigned"}, blockNames(unassigned))
}
