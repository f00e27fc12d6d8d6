// Package archive serializes block graphs to a compact binary format and
// restores them.
//
// An archive is a 32-byte fixed header followed by one compressed body. The
// header is always little-endian and carries the magic number, format
// version, body byte order, compression type, omit mask, entity counts and
// an xxhash64 checksum of the compressed body. The body holds an interned
// string table, the section table and the block table (shape, provenance,
// labels, data and outgoing references, with reference targets recorded by
// block ID).
//
// Save and Load form a lossless round trip: for any graph g,
// blockgraph.Compare(g, Load(Save(g))) holds, provided no omit bits were
// set. Omit bits deliberately drop payload classes (names, labels, data)
// for smaller archives at the cost of that equality.
package archive
