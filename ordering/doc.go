// Package ordering decides the sequence in which sections and blocks are
// laid out in the output image.
//
// An OrderedGraph is a scratch structure over a block graph: an ordered list
// of sections, each holding an ordered list of the blocks assigned to it.
// Orderers rearrange this structure without ever touching the graph's
// content; the layout builder then walks it to assign final addresses.
package ordering
