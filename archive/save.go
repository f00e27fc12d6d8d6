package archive

import (
	"fmt"

	"github.com/regraft/regraft/blockgraph"
	"github.com/regraft/regraft/compress"
	"github.com/regraft/regraft/endian"
	"github.com/regraft/regraft/internal/hash"
	"github.com/regraft/regraft/internal/options"
	"github.com/regraft/regraft/internal/pool"
)

// stringTable interns every string written to an archive body, assigning
// dense u32 indexes. Index 0 is always the empty string so omitted names
// cost nothing.
type stringTable struct {
	index   map[string]uint32
	entries []string
}

func newStringTable() *stringTable {
	t := &stringTable{index: make(map[string]uint32)}
	t.add("")

	return t
}

func (t *stringTable) add(s string) uint32 {
	if idx, ok := t.index[s]; ok {
		return idx
	}
	idx := uint32(len(t.entries))
	t.index[s] = idx
	t.entries = append(t.entries, s)

	return idx
}

// Save serializes a graph to archive bytes. The result is self-contained:
// Load needs nothing but the returned slice.
func Save(g *blockgraph.Graph, opts ...Option) ([]byte, error) {
	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}
	codec, err := compress.GetCodec(cfg.compression)
	if err != nil {
		return nil, fmt.Errorf("save archive: %w", err)
	}

	bb := pool.GetArchiveBuffer()
	defer pool.PutArchiveBuffer(bb)

	body := appendBody(bb.Bytes()[:0], g, cfg)
	// Hand any growth back so the pool keeps the enlarged buffer.
	bb.B = body
	compressed, err := codec.Compress(body)
	if err != nil {
		return nil, fmt.Errorf("save archive: %w", err)
	}

	h := header{
		version:       FormatVersion,
		compression:   cfg.compression,
		omit:          cfg.omit,
		sectionCount:  uint32(g.SectionCount()),
		blockCount:    uint32(g.BlockCount()),
		nextBlockID:   g.NextBlockID(),
		nextSectionID: g.NextSectionID(),
		checksum:      hash.Sum(compressed),
	}
	if cfg.engine == endian.GetBigEndianEngine() {
		h.flags |= flagBigEndian
	}

	out := make([]byte, 0, HeaderSize+len(compressed))
	out = h.append(out)
	out = append(out, compressed...)

	return out, nil
}

func appendBody(buf []byte, g *blockgraph.Graph, cfg *config) []byte {
	e := cfg.engine

	// Interning pass: collect every string the tables will reference.
	strings := newStringTable()
	if cfg.omit&OmitNames == 0 {
		for section := range g.Sections() {
			strings.add(section.Name())
		}
		for block := range g.Blocks() {
			strings.add(block.Name())
			strings.add(block.CompilandName())
		}
	}
	if cfg.omit&OmitLabels == 0 {
		for block := range g.Blocks() {
			for _, label := range block.Labels() {
				strings.add(label.Name())
			}
		}
	}

	buf = e.AppendUint32(buf, uint32(len(strings.entries)))
	for _, s := range strings.entries {
		buf = e.AppendUint32(buf, uint32(len(s)))
		buf = append(buf, s...)
	}

	for section := range g.Sections() {
		buf = e.AppendUint32(buf, uint32(section.ID()))
		buf = appendName(buf, e, strings, section.Name(), cfg)
		buf = e.AppendUint32(buf, section.Characteristics())
	}

	for block := range g.Blocks() {
		buf = appendBlock(buf, e, strings, block, cfg)
	}

	// References go last so every target ID resolves on load.
	for block := range g.Blocks() {
		buf = e.AppendUint32(buf, uint32(block.ReferenceCount()))
		for offset, ref := range block.References() {
			buf = e.AppendUint32(buf, uint32(int32(offset)))
			buf = append(buf, uint8(ref.Type()), uint8(ref.Size()))
			buf = e.AppendUint32(buf, uint32(ref.Referenced().ID()))
			buf = e.AppendUint32(buf, uint32(int32(ref.Offset())))
			buf = e.AppendUint32(buf, uint32(int32(ref.Base())))
		}
	}

	return buf
}

func appendName(buf []byte, e endian.EndianEngine, strings *stringTable, name string, cfg *config) []byte {
	if cfg.omit&OmitNames != 0 {
		name = ""
	}

	return e.AppendUint32(buf, strings.add(name))
}

func appendBlock(buf []byte, e endian.EndianEngine, strings *stringTable, block *blockgraph.Block, cfg *config) []byte {
	dataSize := block.DataSize()
	if cfg.omit&OmitData != 0 {
		dataSize = 0
	}

	buf = e.AppendUint32(buf, uint32(block.ID()))
	buf = append(buf, uint8(block.Type()))
	buf = e.AppendUint32(buf, uint32(block.Size()))
	buf = e.AppendUint32(buf, uint32(dataSize))
	buf = e.AppendUint32(buf, uint32(block.Alignment()))
	buf = e.AppendUint32(buf, uint32(block.Address()))
	buf = e.AppendUint32(buf, uint32(block.SectionID()))
	buf = e.AppendUint32(buf, uint32(block.Attributes()))
	buf = appendName(buf, e, strings, block.Name(), cfg)
	buf = appendName(buf, e, strings, block.CompilandName(), cfg)

	ranges := block.SourceRanges().Ranges()
	buf = e.AppendUint32(buf, uint32(len(ranges)))
	for _, r := range ranges {
		buf = e.AppendUint32(buf, uint32(int32(r.Start)))
		buf = e.AppendUint32(buf, uint32(int32(r.Size)))
		buf = e.AppendUint32(buf, uint32(r.Source))
	}

	if cfg.omit&OmitLabels != 0 {
		buf = e.AppendUint32(buf, 0)
	} else {
		buf = e.AppendUint32(buf, uint32(block.LabelCount()))
		for offset, label := range block.Labels() {
			buf = e.AppendUint32(buf, uint32(int32(offset)))
			buf = e.AppendUint32(buf, strings.add(label.Name()))
			buf = e.AppendUint16(buf, uint16(label.Attributes()))
		}
	}

	if dataSize > 0 {
		buf = append(buf, block.Data()...)
	}

	return buf
}
