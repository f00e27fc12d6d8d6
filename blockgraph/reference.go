package blockgraph

// ReferenceType classifies how a reference's value is encoded into the bytes
// of the referring block.
type ReferenceType uint8

const (
	// AbsoluteRef is an absolute address.
	AbsoluteRef ReferenceType = iota
	// RelativeRef is an address relative to the image base (an RVA).
	RelativeRef
	// PCRelativeRef is an address relative to the end of the referencing
	// instruction.
	PCRelativeRef
	// FileOffsetRef is an offset into the image file on disk.
	FileOffsetRef
	// SectionRef encodes the index of the section containing the target.
	SectionRef
	// SectionOffsetRef encodes the offset of the target within its section.
	SectionOffsetRef

	// Reloc-flavored variants mark references recovered from COFF relocation
	// entries; they encode identically to their plain counterparts but must
	// be re-emitted as relocations when writing an object file.

	RelocAbsoluteRef
	RelocRelativeRef
	RelocPCRelativeRef
	RelocSectionRef
	RelocSectionOffsetRef
)

func (t ReferenceType) String() string {
	switch t {
	case AbsoluteRef:
		return "Absolute"
	case RelativeRef:
		return "Relative"
	case PCRelativeRef:
		return "PCRelative"
	case FileOffsetRef:
		return "FileOffset"
	case SectionRef:
		return "Section"
	case SectionOffsetRef:
		return "SectionOffset"
	case RelocAbsoluteRef:
		return "RelocAbsolute"
	case RelocRelativeRef:
		return "RelocRelative"
	case RelocPCRelativeRef:
		return "RelocPCRelative"
	case RelocSectionRef:
		return "RelocSection"
	case RelocSectionOffsetRef:
		return "RelocSectionOffset"
	default:
		return "Unknown"
	}
}

// Reference is a directed, typed, sized edge from a byte offset in one block
// to a byte offset in another block.
//
// The offset is where the encoded value ultimately points; the base is the
// anchor used to decide whether the reference is direct. A direct reference
// (base == offset) points at exactly the byte it denotes; an indirect one
// points into the middle of a structure whose logical start is the base
// (e.g. a pointer past the end of a jump table).
//
// References are immutable values. They are attached to blocks with
// Block.SetReference, which maintains the referrer back-edges.
type Reference struct {
	refType    ReferenceType
	size       int
	referenced *Block
	offset     int
	base       int
}

// NewReference creates a direct or indirect reference to offset/base within
// referenced.
func NewReference(refType ReferenceType, size int, referenced *Block, offset, base int) Reference {
	return Reference{
		refType:    refType,
		size:       size,
		referenced: referenced,
		offset:     offset,
		base:       base,
	}
}

// Type returns the reference type tag.
func (r Reference) Type() ReferenceType { return r.refType }

// Size returns the width in bytes of the slot the reference is encoded into.
func (r Reference) Size() int { return r.size }

// Referenced returns the target block. The reference never owns the target.
func (r Reference) Referenced() *Block { return r.referenced }

// Offset returns the offset within the target block the encoded value
// ultimately points at.
func (r Reference) Offset() int { return r.offset }

// Base returns the anchor offset within the target block.
func (r Reference) Base() int { return r.base }

// IsDirect returns true iff the reference's base equals its offset.
func (r Reference) IsDirect() bool { return r.base == r.offset }

// IsValid returns true if the reference has a target and a representable
// slot width.
func (r Reference) IsValid() bool {
	if r.referenced == nil {
		return false
	}
	switch r.size {
	case 1, 2, 4, 8:
		return true
	default:
		return false
	}
}

// Equal compares two references by type, size, target identity, offset and
// base.
func (r Reference) Equal(other Reference) bool {
	return r.refType == other.refType &&
		r.size == other.size &&
		r.referenced == other.referenced &&
		r.offset == other.offset &&
		r.base == other.base
}
