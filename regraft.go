// Package regraft is a binary-rewriting toolkit core: a block graph that
// models an executable image as typed blocks connected by byte-precise
// references, plus the machinery to reorder and re-address those blocks into
// a new image layout.
//
// # Core Features
//
//   - Blocks with explicit/implicit data, copy-on-write ownership and
//     byte-precise splicing that keeps references, labels and provenance
//     consistent
//   - References with automatic referrer back-edges; removing a live block
//     is impossible by construction
//   - Address spaces mapping blocks to non-overlapping ranges, with
//     intersecting-block merging
//   - Typed overlays (typedblock) reinterpreting block bytes as Go structs
//     and chasing direct references in typed form
//   - Orderer/Transform pipeline and an alignment-aware layout builder
//   - A compressed, checksummed archive format (None, Zstd, S2, LZ4, XZ)
//     with a lossless round-trip guarantee
//
// # Basic Usage
//
// Building a graph and laying it out:
//
//	import "github.com/regraft/regraft"
//
//	g := regraft.NewGraph()
//	text := g.AddSection(".text", 0x60000020)
//	code := g.AddBlock(blockgraph.CodeBlock, 0x40, "code")
//	code.SetSectionID(text.ID())
//
//	ordered := ordering.NewOrderedGraph(g)
//	_ = ordering.OriginalOrderer{}.OrderBlockGraph(ordered, nil)
//
//	l := layout.NewImageLayout(g)
//	_ = layout.BuildOrderedLayout(ordered, l)
//
// Saving and restoring:
//
//	raw, _ := regraft.SaveGraph(g)
//	loaded, _ := regraft.LoadGraph(raw)
//	// blockgraph.Compare(g, loaded) == true
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the blockgraph
// and archive packages, simplifying the most common use cases. For advanced
// usage and fine-grained control, use those packages directly.
package regraft

import (
	"github.com/regraft/regraft/archive"
	"github.com/regraft/regraft/blockgraph"
)

// NewGraph creates an empty block graph.
func NewGraph() *blockgraph.Graph {
	return blockgraph.New()
}

// NewAddressSpace creates an empty address space over a graph.
func NewAddressSpace(g *blockgraph.Graph) *blockgraph.AddressSpace {
	return blockgraph.NewAddressSpace(g)
}

// SaveGraph serializes a graph with the default archive settings
// (little-endian body, zstd compression, nothing omitted).
func SaveGraph(g *blockgraph.Graph, opts ...archive.Option) ([]byte, error) {
	return archive.Save(g, opts...)
}

// LoadGraph restores a graph from archive bytes.
func LoadGraph(data []byte) (*blockgraph.Graph, error) {
	return archive.Load(data)
}
