package archive

import (
	"encoding/binary"
	"fmt"

	"github.com/regraft/regraft/blockgraph"
	"github.com/regraft/regraft/errs"
	"github.com/regraft/regraft/format"
)

// MagicNumber identifies an archive: "RGBF" in ASCII.
const MagicNumber uint32 = 0x46424752

// FormatVersion is the current archive format version.
const FormatVersion uint8 = 1

// HeaderSize is the fixed size of the archive header in bytes.
const HeaderSize = 32

// flagBigEndian marks a body serialized in big-endian byte order.
const flagBigEndian uint8 = 0x01

// OmitMask selects payload classes left out of an archive. An archive saved
// with a non-zero mask does not compare equal to its source after loading.
type OmitMask uint8

const (
	// OmitNames drops block, compiland and section names.
	OmitNames OmitMask = 1 << iota
	// OmitLabels drops all labels.
	OmitLabels
	// OmitData drops explicit block data, keeping only block shapes.
	OmitData
)

// header is the fixed-size archive prelude. All fields are stored
// little-endian regardless of the body byte order.
//
//	offset  size  field
//	0       4     magic "RGBF"
//	4       1     format version
//	5       1     flags (bit 0: big-endian body)
//	6       1     compression type
//	7       1     omit mask
//	8       4     section count
//	12      4     block count
//	16      4     next block ID
//	20      4     next section ID
//	24      8     xxhash64 of the compressed body
type header struct {
	version       uint8
	flags         uint8
	compression   format.CompressionType
	omit          OmitMask
	sectionCount  uint32
	blockCount    uint32
	nextBlockID   blockgraph.BlockID
	nextSectionID blockgraph.SectionID
	checksum      uint64
}

func (h *header) bigEndian() bool { return h.flags&flagBigEndian != 0 }

func (h *header) append(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, MagicNumber)
	buf = append(buf, h.version, h.flags, uint8(h.compression), uint8(h.omit))
	buf = binary.LittleEndian.AppendUint32(buf, h.sectionCount)
	buf = binary.LittleEndian.AppendUint32(buf, h.blockCount)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(h.nextBlockID))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(h.nextSectionID))
	buf = binary.LittleEndian.AppendUint64(buf, h.checksum)

	return buf
}

func parseHeader(data []byte) (header, error) {
	var h header
	if len(data) < HeaderSize {
		return h, fmt.Errorf("%d bytes is smaller than the %d-byte header: %w",
			len(data), HeaderSize, errs.ErrInvalidHeaderSize)
	}
	if magic := binary.LittleEndian.Uint32(data); magic != MagicNumber {
		return h, fmt.Errorf("magic %#08x: %w", magic, errs.ErrInvalidMagicNumber)
	}

	h.version = data[4]
	h.flags = data[5]
	h.compression = format.CompressionType(data[6])
	h.omit = OmitMask(data[7])
	h.sectionCount = binary.LittleEndian.Uint32(data[8:])
	h.blockCount = binary.LittleEndian.Uint32(data[12:])
	h.nextBlockID = blockgraph.BlockID(binary.LittleEndian.Uint32(data[16:]))
	h.nextSectionID = blockgraph.SectionID(binary.LittleEndian.Uint32(data[20:]))
	h.checksum = binary.LittleEndian.Uint64(data[24:])

	if h.version != FormatVersion {
		return h, fmt.Errorf("format version %d: %w", h.version, errs.ErrInvalidHeaderFlags)
	}
	if h.flags&^flagBigEndian != 0 {
		return h, fmt.Errorf("flags %#02x: %w", h.flags, errs.ErrInvalidHeaderFlags)
	}

	return h, nil
}
