package archive

import (
	"fmt"

	"github.com/regraft/regraft/blockgraph"
	"github.com/regraft/regraft/compress"
	"github.com/regraft/regraft/endian"
	"github.com/regraft/regraft/errs"
	"github.com/regraft/regraft/internal/hash"
)

// bodyReader decodes the decompressed body sequentially. The first
// out-of-bounds read latches an error and every later read returns zero, so
// decoding loops stay simple and the error surfaces once at the end.
type bodyReader struct {
	data   []byte
	pos    int
	engine endian.EndianEngine
	err    error
}

func (r *bodyReader) fail(what string) {
	if r.err == nil {
		r.err = fmt.Errorf("truncated %s at byte %d: %w", what, r.pos, errs.ErrCorruptArchive)
	}
}

func (r *bodyReader) u8(what string) uint8 {
	if r.err != nil || r.pos+1 > len(r.data) {
		r.fail(what)
		return 0
	}
	v := r.data[r.pos]
	r.pos++

	return v
}

func (r *bodyReader) u16(what string) uint16 {
	if r.err != nil || r.pos+2 > len(r.data) {
		r.fail(what)
		return 0
	}
	v := r.engine.Uint16(r.data[r.pos:])
	r.pos += 2

	return v
}

func (r *bodyReader) u32(what string) uint32 {
	if r.err != nil || r.pos+4 > len(r.data) {
		r.fail(what)
		return 0
	}
	v := r.engine.Uint32(r.data[r.pos:])
	r.pos += 4

	return v
}

func (r *bodyReader) bytes(n int, what string) []byte {
	if r.err != nil || n < 0 || r.pos+n > len(r.data) {
		r.fail(what)
		return nil
	}
	v := r.data[r.pos : r.pos+n]
	r.pos += n

	return v
}

func (r *bodyReader) signed(what string) int {
	return int(int32(r.u32(what)))
}

// Load reconstructs a graph from archive bytes produced by Save.
func Load(data []byte) (*blockgraph.Graph, error) {
	h, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	compressed := data[HeaderSize:]
	if sum := hash.Sum(compressed); sum != h.checksum {
		return nil, fmt.Errorf("body checksum %#016x, header says %#016x: %w",
			sum, h.checksum, errs.ErrChecksumMismatch)
	}

	codec, err := compress.GetCodec(h.compression)
	if err != nil {
		return nil, fmt.Errorf("load archive: %w", err)
	}
	body, err := codec.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("load archive body: %w", err)
	}

	engine := endian.GetLittleEndianEngine()
	if h.bigEndian() {
		engine = endian.GetBigEndianEngine()
	}
	r := &bodyReader{data: body, engine: engine}

	strings, err := readStringTable(r)
	if err != nil {
		return nil, err
	}

	g := blockgraph.New()
	if err := readSections(r, g, strings, int(h.sectionCount)); err != nil {
		return nil, err
	}
	blockOrder, err := readBlocks(r, g, strings, int(h.blockCount))
	if err != nil {
		return nil, err
	}
	if err := readReferences(r, g, blockOrder); err != nil {
		return nil, err
	}
	if r.pos != len(r.data) {
		return nil, fmt.Errorf("%d trailing body bytes: %w", len(r.data)-r.pos, errs.ErrCorruptArchive)
	}

	g.ReserveIDs(h.nextBlockID, h.nextSectionID)

	return g, nil
}

func readStringTable(r *bodyReader) ([]string, error) {
	count := r.u32("string table size")
	table := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		length := r.u32("string length")
		table = append(table, string(r.bytes(int(length), "string bytes")))
	}

	return table, r.err
}

func lookupString(table []string, idx uint32) (string, error) {
	if int(idx) >= len(table) {
		return "", fmt.Errorf("string index %d of %d: %w", idx, len(table), errs.ErrCorruptArchive)
	}

	return table[idx], nil
}

func readSections(r *bodyReader, g *blockgraph.Graph, strings []string, count int) error {
	for i := 0; i < count; i++ {
		id := blockgraph.SectionID(r.u32("section id"))
		nameIdx := r.u32("section name")
		characteristics := r.u32("section characteristics")
		if r.err != nil {
			return r.err
		}

		name, err := lookupString(strings, nameIdx)
		if err != nil {
			return err
		}
		if _, err := g.AddSectionWithID(id, name, characteristics); err != nil {
			return fmt.Errorf("load section: %w", err)
		}
	}

	return nil
}

func readBlocks(r *bodyReader, g *blockgraph.Graph, strings []string, count int) ([]*blockgraph.Block, error) {
	order := make([]*blockgraph.Block, 0, count)
	for i := 0; i < count; i++ {
		id := blockgraph.BlockID(r.u32("block id"))
		blockType := blockgraph.BlockType(r.u8("block type"))
		size := r.signed("block size")
		dataSize := r.signed("block data size")
		alignment := r.signed("block alignment")
		addr := blockgraph.RelativeAddress(r.u32("block address"))
		sectionID := blockgraph.SectionID(r.u32("block section"))
		attrs := blockgraph.BlockAttributes(r.u32("block attributes"))
		nameIdx := r.u32("block name")
		compilandIdx := r.u32("block compiland")
		if r.err != nil {
			return nil, r.err
		}

		name, err := lookupString(strings, nameIdx)
		if err != nil {
			return nil, err
		}
		compiland, err := lookupString(strings, compilandIdx)
		if err != nil {
			return nil, err
		}

		block, err := g.AddBlockWithID(id, blockType, size, name)
		if err != nil {
			return nil, fmt.Errorf("load block: %w", err)
		}
		block.SetCompilandName(compiland)
		block.SetAddress(addr)
		block.SetSectionID(sectionID)
		block.SetAttribute(attrs)
		if err := block.SetAlignment(alignment); err != nil {
			return nil, fmt.Errorf("load block %d: %w", id, err)
		}

		rangeCount := r.u32("source range count")
		for j := uint32(0); j < rangeCount; j++ {
			start := r.signed("source range start")
			rangeSize := r.signed("source range size")
			source := blockgraph.RelativeAddress(r.u32("source range address"))
			if r.err != nil {
				return nil, r.err
			}
			if err := block.SourceRanges().Push(start, rangeSize, source); err != nil {
				return nil, fmt.Errorf("load block %d: %w", id, err)
			}
		}

		labelCount := r.u32("label count")
		for j := uint32(0); j < labelCount; j++ {
			offset := r.signed("label offset")
			labelNameIdx := r.u32("label name")
			labelAttrs := blockgraph.LabelAttributes(r.u16("label attributes"))
			if r.err != nil {
				return nil, r.err
			}
			labelName, err := lookupString(strings, labelNameIdx)
			if err != nil {
				return nil, err
			}
			if _, err := block.SetLabel(offset, labelName, labelAttrs); err != nil {
				return nil, fmt.Errorf("load block %d: %w", id, err)
			}
		}

		if dataSize > 0 {
			data := r.bytes(dataSize, "block data")
			if r.err != nil {
				return nil, r.err
			}
			if _, err := block.CopyData(data); err != nil {
				return nil, fmt.Errorf("load block %d: %w", id, err)
			}
		}

		order = append(order, block)
	}

	return order, nil
}

func readReferences(r *bodyReader, g *blockgraph.Graph, blockOrder []*blockgraph.Block) error {
	for _, block := range blockOrder {
		refCount := r.u32("reference count")
		for j := uint32(0); j < refCount; j++ {
			offset := r.signed("reference offset")
			refType := blockgraph.ReferenceType(r.u8("reference type"))
			size := int(r.u8("reference size"))
			targetID := blockgraph.BlockID(r.u32("reference target"))
			targetOffset := r.signed("reference target offset")
			targetBase := r.signed("reference target base")
			if r.err != nil {
				return r.err
			}

			target := g.BlockByID(targetID)
			if target == nil {
				return fmt.Errorf("reference to unknown block %d: %w", targetID, errs.ErrCorruptArchive)
			}
			ref := blockgraph.NewReference(refType, size, target, targetOffset, targetBase)
			if _, err := block.SetReference(offset, ref); err != nil {
				return fmt.Errorf("load reference in block %d: %w", block.ID(), err)
			}
		}
	}

	return r.err
}
