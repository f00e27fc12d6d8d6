// Package blockgraph provides an in-memory graph representation of a binary
// image: typed, sized blocks of content connected by byte-precise references.
//
// A Graph owns every Block and Section created through its factory methods
// and is the only place blocks are created or destroyed. Blocks carry raw
// bytes (owned or borrowed), outgoing references keyed by source offset,
// automatically maintained referrer back-edges, named labels, and
// source-range provenance mapping block bytes back to the original image.
//
// An AddressSpace maps a subset of a graph's blocks onto non-overlapping
// address ranges. A block may be placed in several address spaces at once;
// each space tracks its own address for the block.
//
// # Invariants
//
// The mutation API enforces the structural invariants a binary rewriter
// depends on:
//
//   - data size never exceeds block size; bytes past the explicit data are
//     implicitly zero
//   - no two references within a block overlap in byte range
//   - the referrer set of a block is always exactly the reverse image of the
//     reference sets of all other blocks
//   - a block cannot be removed while it has live references or referrers
//   - no two placed, non-zero-sized blocks in an address space share an
//     address
//
// Every mutator that can fail returns an error (matched against the
// sentinels in the errs package) and leaves the graph unchanged; no partial
// mutation is ever observable.
//
// # Basic usage
//
//	g := blockgraph.New()
//	text := g.AddSection(".text", 0x60000020)
//
//	fn := g.AddBlock(blockgraph.CodeBlock, 0x20, "my_func")
//	fn.SetSectionID(text.ID())
//	fn.AllocateData(0x20)
//
//	tbl := g.AddBlock(blockgraph.DataBlock, 0x10, "jump_table")
//	created, err := fn.SetReference(4,
//	    blockgraph.NewReference(blockgraph.AbsoluteRef, 4, tbl, 0, 0))
//
// Single-threaded by design: a Graph and everything reachable from it is
// owned and mutated by exactly one pipeline stage at a time.
package blockgraph
