// Package transform defines the mutation half of the rewriting protocol:
// passes that change block graph content before ordering and layout run.
package transform

import (
	"fmt"

	"github.com/regraft/regraft/blockgraph"
)

// Transform is one graph-rewriting pass. Implementations may add and remove
// blocks, rewire references and create sections; they run strictly before
// any ordering decisions are made.
type Transform interface {
	// Name identifies the transform in diagnostics.
	Name() string
	// TransformBlockGraph applies the pass to the graph. The header block
	// is the block holding the image headers, when the graph has one.
	TransformBlockGraph(graph *blockgraph.Graph, headerBlock *blockgraph.Block) error
}

// Apply runs the given transforms in order, stopping at the first failure.
// There is no registry or discovery; the caller composes the pipeline as a
// plain slice.
func Apply(graph *blockgraph.Graph, headerBlock *blockgraph.Block, transforms ...Transform) error {
	for _, tx := range transforms {
		if err := tx.TransformBlockGraph(graph, headerBlock); err != nil {
			return fmt.Errorf("transform %q: %w", tx.Name(), err)
		}
	}

	return nil
}
