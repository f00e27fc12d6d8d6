package transform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/regraft/regraft/blockgraph"
)

type namedTransform struct {
	name string
	fn   func(*blockgraph.Graph, *blockgraph.Block) error
}

func (t namedTransform) Name() string { return t.name }

func (t namedTransform) TransformBlockGraph(g *blockgraph.Graph, header *blockgraph.Block) error {
	return t.fn(g, header)
}

func TestApplyRunsInOrder(t *testing.T) {
	g := blockgraph.New()
	header := g.AddBlock(blockgraph.DataBlock, 0x40, "header")

	var ran []string
	mk := func(name string) Transform {
		return namedTransform{name: name, fn: func(got *blockgraph.Graph, gotHeader *blockgraph.Block) error {
			require.Equal(t, g, got)
			require.Equal(t, header, gotHeader)
			ran = append(ran, name)

			return nil
		}}
	}

	require.NoError(t, Apply(g, header, mk("first"), mk("second"), mk("third")))
	require.Equal(t, []string{"first", "second", "third"}, ran)
}

func TestApplyStopsOnFailure(t *testing.T) {
	g := blockgraph.New()
	boom := errors.New("boom")

	var ran []string
	ok := namedTransform{name: "ok", fn: func(*blockgraph.Graph, *blockgraph.Block) error {
		ran = append(ran, "ok")
		return nil
	}}
	failing := namedTransform{name: "failing", fn: func(*blockgraph.Graph, *blockgraph.Block) error {
		return boom
	}}
	never := namedTransform{name: "never", fn: func(*blockgraph.Graph, *blockgraph.Block) error {
		ran = append(ran, "never")
		return nil
	}}

	err := Apply(g, nil, ok, failing, never)
	require.ErrorIs(t, err, boom)
	require.ErrorContains(t, err, `transform "failing"`)
	require.Equal(t, []string{"ok"}, ran)
}

// A transform really does get to mutate the graph.
func TestApplyMutation(t *testing.T) {
	g := blockgraph.New()

	addPadding := namedTransform{name: "add padding", fn: func(g *blockgraph.Graph, _ *blockgraph.Block) error {
		b := g.AddBlock(blockgraph.DataBlock, 0x10, "pad")
		b.SetAttribute(blockgraph.PaddingBlock | blockgraph.Synthesized)

		return nil
	}}

	require.NoError(t, Apply(g, nil, addPadding))
	require.Equal(t, 1, g.BlockCount())
}
