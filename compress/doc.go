// Package compress provides the compression codecs used by the regraft
// archive format.
//
// Each serialized graph payload (string table, block table, reference table,
// label table, raw block data) is compressed independently through a Codec
// selected by the archive flag word. Five codecs are available:
//
//   - None: pass-through, for already-dense payloads and debugging
//   - Zstd: best ratio, the archive default for block data
//   - S2: fastest, for hot save/load paths
//   - LZ4: balanced block compression
//   - XZ: highest ratio for cold storage of large images
//
// Codecs are stateless value types; all of them are safe for concurrent use.
// The Zstd codec has two implementations selected at build time: a pure-Go
// implementation (klauspost/compress/zstd, the default) and a cgo
// implementation (valyala/gozstd) behind the cgo_zstd build tag.
package compress
