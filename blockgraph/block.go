package blockgraph

import (
	"fmt"
	"iter"
	"sort"

	"github.com/regraft/regraft/errs"
)

// Referrer identifies one incoming reference: the referring block and the
// source offset of the reference within it.
type Referrer struct {
	Block  *Block
	Offset int
}

// TransferMode selects which referrers TransferReferrers moves.
type TransferMode uint8

const (
	// TransferAllReferences moves every referrer, including references the
	// block holds to itself.
	TransferAllReferences TransferMode = iota
	// SkipInternalReferences leaves the block's self-references in place and
	// moves only external referrers.
	SkipInternalReferences
)

// refEntry pairs a reference with its source offset. Block references are
// kept sorted by source offset so overlap checks touch only the neighbors
// and iteration is deterministic.
type refEntry struct {
	offset int
	ref    Reference
}

// Block is the core unit of a block graph: a named, typed, sized region of
// logical address space.
//
// A block's size is its virtual length; it may exceed the explicit data
// length, in which case the trailing bytes are implicitly zero. Block data
// is either borrowed from an external buffer (which must outlive the block)
// or owned; mutating operations transparently promote borrowed data to an
// owned copy.
//
// Blocks are created exclusively through Graph.AddBlock and destroyed only
// through Graph.RemoveBlock.
type Block struct {
	id        BlockID
	blockType BlockType
	size      int
	dataSize  int
	data      []byte
	ownsData  bool
	alignment int
	name      string
	compiland string
	attrs     BlockAttributes
	sectionID SectionID
	addr      RelativeAddress

	references []refEntry
	referrers  map[Referrer]struct{}
	labels     map[int]Label
	srcRanges  SourceRanges

	graph *Graph
}

// ID returns the block's process-unique ID.
func (b *Block) ID() BlockID { return b.id }

// Type returns the block's content type.
func (b *Block) Type() BlockType { return b.blockType }

// Size returns the block's virtual size in bytes.
func (b *Block) Size() int { return b.size }

// DataSize returns the length of the block's explicit data. Always at most
// Size; bytes in [DataSize, Size) read as zero.
func (b *Block) DataSize() int { return b.dataSize }

// Data returns the block's explicit data. The slice must not be written
// through unless it was obtained via GetMutableData.
func (b *Block) Data() []byte { return b.data }

// OwnsData returns true if the block owns its data buffer rather than
// borrowing an external one.
func (b *Block) OwnsData() bool { return b.ownsData }

// Alignment returns the block's required alignment, always a power of two.
func (b *Block) Alignment() int { return b.alignment }

// SetAlignment sets the block's required alignment. Values that are not a
// positive power of two are rejected.
func (b *Block) SetAlignment(alignment int) error {
	if alignment <= 0 || alignment&(alignment-1) != 0 {
		return fmt.Errorf("alignment %d is not a power of two: %w", alignment, errs.ErrOutOfBounds)
	}
	b.alignment = alignment

	return nil
}

// Name returns the block's human-readable name.
func (b *Block) Name() string { return b.name }

// SetName renames the block. The name is interned by the owning graph.
func (b *Block) SetName(name string) {
	b.name = b.graph.intern.intern(name)
}

// CompilandName returns the name of the compiland the block came from, if
// known.
func (b *Block) CompilandName() string { return b.compiland }

// SetCompilandName records the block's originating compiland.
func (b *Block) SetCompilandName(name string) {
	b.compiland = b.graph.intern.intern(name)
}

// Attributes returns the block's attribute flags.
func (b *Block) Attributes() BlockAttributes { return b.attrs }

// SetAttribute sets the given attribute flags.
func (b *Block) SetAttribute(attrs BlockAttributes) { b.attrs |= attrs }

// ClearAttribute clears the given attribute flags.
func (b *Block) ClearAttribute(attrs BlockAttributes) { b.attrs &^= attrs }

// HasAttribute returns true if every flag in attrs is set.
func (b *Block) HasAttribute(attrs BlockAttributes) bool { return b.attrs&attrs == attrs }

// SectionID returns the ID of the section the block belongs to, or
// InvalidSectionID for header and meta blocks.
func (b *Block) SectionID() SectionID { return b.sectionID }

// SetSectionID assigns the block to a section.
func (b *Block) SetSectionID(id SectionID) { b.sectionID = id }

// Address returns the address most recently assigned to the block by an
// address space, or InvalidAddress if it has never been placed.
func (b *Block) Address() RelativeAddress { return b.addr }

// HasAddress returns true once the block has been placed in an address
// space.
func (b *Block) HasAddress() bool { return b.addr != InvalidAddress }

// SetAddress records the block's assigned address. Intended for address
// spaces and deserializers; transforms should place blocks through an
// AddressSpace instead.
func (b *Block) SetAddress(addr RelativeAddress) { b.addr = addr }

// SourceRanges returns the block's provenance map for inspection and
// population.
func (b *Block) SourceRanges() *SourceRanges { return &b.srcRanges }

// Graph returns the owning graph.
func (b *Block) Graph() *Graph { return b.graph }

// --- Data ownership and splicing ---

// AllocateData allocates an owned, zero-filled buffer of the given size and
// makes it the block's explicit data. Fails if size exceeds the block size.
func (b *Block) AllocateData(size int) ([]byte, error) {
	if size < 0 || size > b.size {
		return nil, fmt.Errorf("allocate %d bytes in block of size %d: %w", size, b.size, errs.ErrOutOfBounds)
	}

	b.data = make([]byte, size)
	b.dataSize = size
	b.ownsData = true

	return b.data, nil
}

// CopyData copies the given bytes into a freshly allocated owned buffer and
// makes it the block's explicit data.
func (b *Block) CopyData(data []byte) ([]byte, error) {
	buf, err := b.AllocateData(len(data))
	if err != nil {
		return nil, err
	}
	copy(buf, data)

	return buf, nil
}

// SetData borrows the given buffer as the block's explicit data. The caller
// retains ownership and must keep the buffer alive and unchanged for the
// life of the block; the block promotes to an owned copy before any
// mutation.
func (b *Block) SetData(data []byte) error {
	if len(data) > b.size {
		return fmt.Errorf("set %d bytes in block of size %d: %w", len(data), b.size, errs.ErrOutOfBounds)
	}

	b.data = data
	b.dataSize = len(data)
	b.ownsData = false

	return nil
}

// ResizeData changes the explicit data length. Shrinking narrows the
// existing view without copying and without taking ownership of borrowed
// data. Growing always allocates a fresh owned buffer, copies the current
// content and zero-fills the tail.
func (b *Block) ResizeData(newSize int) ([]byte, error) {
	if newSize < 0 || newSize > b.size {
		return nil, fmt.Errorf("resize data to %d in block of size %d: %w", newSize, b.size, errs.ErrOutOfBounds)
	}

	if newSize <= b.dataSize {
		b.data = b.data[:newSize]
		b.dataSize = newSize

		return b.data, nil
	}

	buf := make([]byte, newSize)
	copy(buf, b.data[:b.dataSize])
	b.data = buf
	b.dataSize = newSize
	b.ownsData = true

	return b.data, nil
}

// GetMutableData returns the block's data for writing, promoting borrowed
// data to an owned copy first. Repeat calls return the same buffer without
// re-copying.
func (b *Block) GetMutableData() []byte {
	if !b.ownsData {
		buf := make([]byte, b.dataSize)
		copy(buf, b.data)
		b.data = buf
		b.ownsData = true
	}

	return b.data
}

// InsertData splices numBytes of zero-initialized space into the block at
// offset, growing the block size accordingly.
//
// If offset falls within the explicit data, the data grows with it. If it
// falls in the implicit-zero tail the data is left untouched unless
// alwaysAllocate is set, in which case the data is extended through the end
// of the inserted region.
//
// All references, labels and source ranges at or after offset shift forward
// by numBytes, on both the outgoing and the incoming side.
func (b *Block) InsertData(offset, numBytes int, alwaysAllocate bool) error {
	if offset < 0 || offset > b.size || numBytes < 0 {
		return fmt.Errorf("insert %d bytes at %d in block of size %d: %w",
			numBytes, offset, b.size, errs.ErrOutOfBounds)
	}
	if numBytes == 0 {
		if alwaysAllocate && b.dataSize < offset {
			if _, err := b.resizeWithin(offset); err != nil {
				return err
			}
		}

		return nil
	}

	b.size += numBytes

	switch {
	case offset < b.dataSize:
		buf := make([]byte, b.dataSize+numBytes)
		copy(buf, b.data[:offset])
		copy(buf[offset+numBytes:], b.data[offset:b.dataSize])
		b.data = buf
		b.dataSize += numBytes
		b.ownsData = true
	case alwaysAllocate:
		if _, err := b.resizeWithin(offset + numBytes); err != nil {
			return err
		}
	}

	b.shiftLabels(offset, numBytes)
	b.shiftReferences(offset, numBytes)
	b.shiftReferrers(offset, numBytes)
	b.srcRanges.insertShift(offset, numBytes)

	return nil
}

// RemoveData splices numBytes out of the block at offset, shrinking the
// block size accordingly. It fails, changing nothing, if any reference or
// label lies inside the removed range; those must be removed or relocated
// first.
func (b *Block) RemoveData(offset, numBytes int) error {
	if offset < 0 || numBytes <= 0 || offset+numBytes > b.size {
		return fmt.Errorf("remove %d bytes at %d in block of size %d: %w",
			numBytes, offset, b.size, errs.ErrOutOfBounds)
	}

	end := offset + numBytes

	for labelOffset := range b.labels {
		if labelOffset >= offset && labelOffset < end {
			return fmt.Errorf("label at %d inside removed range [%d, %d): %w",
				labelOffset, offset, end, errs.ErrRangeInUse)
		}
	}
	for _, e := range b.references {
		if e.offset < end && e.offset+e.ref.Size() > offset {
			return fmt.Errorf("reference at %d inside removed range [%d, %d): %w",
				e.offset, offset, end, errs.ErrRangeInUse)
		}
	}
	for r := range b.referrers {
		ref, _ := r.Block.GetReference(r.Offset)
		if (ref.Offset() >= offset && ref.Offset() < end) ||
			(ref.Base() >= offset && ref.Base() < end) {
			return fmt.Errorf("incoming reference targets removed range [%d, %d): %w",
				offset, end, errs.ErrRangeInUse)
		}
	}

	if offset < b.dataSize {
		removed := min(b.dataSize, end) - offset
		buf := make([]byte, b.dataSize-removed)
		copy(buf, b.data[:offset])
		copy(buf[offset:], b.data[offset+removed:b.dataSize])
		b.data = buf
		b.dataSize -= removed
		b.ownsData = true
	}
	b.size -= numBytes

	b.shiftLabels(end, -numBytes)
	b.shiftReferences(end, -numBytes)
	b.shiftReferrers(end, -numBytes)
	b.srcRanges.removeShift(offset, numBytes)

	return nil
}

// InsertOrRemoveData resizes the region [offset, offset+oldLength) to
// newLength bytes: growing splices zero bytes in after the region, shrinking
// removes its tail. Equal lengths change nothing, but alwaysAllocate still
// forces the explicit data to cover the region.
func (b *Block) InsertOrRemoveData(offset, oldLength, newLength int, alwaysAllocate bool) error {
	if offset < 0 || oldLength < 0 || newLength < 0 || offset+oldLength > b.size {
		return fmt.Errorf("replace [%d, %d) in block of size %d: %w",
			offset, offset+oldLength, b.size, errs.ErrOutOfBounds)
	}

	switch {
	case newLength > oldLength:
		if err := b.InsertData(offset+oldLength, newLength-oldLength, alwaysAllocate); err != nil {
			return err
		}
	case newLength < oldLength:
		if err := b.RemoveData(offset+newLength, oldLength-newLength); err != nil {
			return err
		}
	}

	if alwaysAllocate && b.dataSize < offset+newLength {
		if _, err := b.resizeWithin(offset + newLength); err != nil {
			return err
		}
	}

	return nil
}

// resizeWithin grows the explicit data to at least upTo bytes.
func (b *Block) resizeWithin(upTo int) ([]byte, error) {
	if upTo <= b.dataSize {
		return b.data, nil
	}

	return b.ResizeData(upTo)
}

// --- References ---

// findReference locates the entry whose source offset is exactly offset.
func (b *Block) findReference(offset int) (int, bool) {
	idx := sort.Search(len(b.references), func(i int) bool {
		return b.references[i].offset >= offset
	})
	if idx < len(b.references) && b.references[idx].offset == offset {
		return idx, true
	}

	return idx, false
}

// SetReference inserts or overwrites the reference at the given source
// offset. The returned bool is true when a brand-new reference was created,
// false when an existing one was updated in place.
//
// Overwriting is allowed only when the existing reference has the same byte
// width; a different width fails with errs.ErrRefSizeMismatch. A new
// reference whose byte range intersects a neighboring reference fails with
// errs.ErrRefOverlap. Failures leave the block unchanged.
func (b *Block) SetReference(offset int, ref Reference) (bool, error) {
	if !ref.IsValid() {
		return false, fmt.Errorf("reference at %d is malformed: %w", offset, errs.ErrOutOfBounds)
	}
	if ref.Referenced().graph != b.graph {
		return false, fmt.Errorf("reference target %q: %w", ref.Referenced().Name(), errs.ErrNotInGraph)
	}
	if offset < 0 || offset+ref.Size() > b.size {
		return false, fmt.Errorf("reference [%d, %d) in block of size %d: %w",
			offset, offset+ref.Size(), b.size, errs.ErrOutOfBounds)
	}

	idx, found := b.findReference(offset)
	if found {
		old := b.references[idx].ref
		if old.Size() != ref.Size() {
			return false, fmt.Errorf("reference at %d has size %d, new size %d: %w",
				offset, old.Size(), ref.Size(), errs.ErrRefSizeMismatch)
		}

		old.Referenced().removeReferrer(b, offset)
		b.references[idx].ref = ref
		ref.Referenced().addReferrer(b, offset)

		return false, nil
	}

	if idx > 0 {
		prev := b.references[idx-1]
		if prev.offset+prev.ref.Size() > offset {
			return false, fmt.Errorf("reference at %d overlaps reference at %d: %w",
				offset, prev.offset, errs.ErrRefOverlap)
		}
	}
	if idx < len(b.references) && b.references[idx].offset < offset+ref.Size() {
		return false, fmt.Errorf("reference at %d overlaps reference at %d: %w",
			offset, b.references[idx].offset, errs.ErrRefOverlap)
	}

	b.references = append(b.references, refEntry{})
	copy(b.references[idx+1:], b.references[idx:])
	b.references[idx] = refEntry{offset: offset, ref: ref}
	ref.Referenced().addReferrer(b, offset)

	return true, nil
}

// GetReference returns the reference that starts exactly at offset. It never
// performs a containment search.
func (b *Block) GetReference(offset int) (Reference, bool) {
	idx, found := b.findReference(offset)
	if !found {
		return Reference{}, false
	}

	return b.references[idx].ref, true
}

// RemoveReference removes the reference that starts exactly at offset,
// returning false if none exists there.
func (b *Block) RemoveReference(offset int) bool {
	idx, found := b.findReference(offset)
	if !found {
		return false
	}

	b.references[idx].ref.Referenced().removeReferrer(b, offset)
	b.references = append(b.references[:idx], b.references[idx+1:]...)

	return true
}

// RemoveAllReferences clears every outgoing reference, updating the
// referrer sets of all targets.
func (b *Block) RemoveAllReferences() {
	for _, e := range b.references {
		e.ref.Referenced().removeReferrer(b, e.offset)
	}
	b.references = nil
}

// References iterates the block's outgoing references in source offset
// order.
func (b *Block) References() iter.Seq2[int, Reference] {
	return func(yield func(int, Reference) bool) {
		for _, e := range b.references {
			if !yield(e.offset, e.ref) {
				return
			}
		}
	}
}

// ReferenceCount returns the number of outgoing references.
func (b *Block) ReferenceCount() int { return len(b.references) }

// Referrers iterates the block's incoming referrer back-edges in undefined
// order.
func (b *Block) Referrers() iter.Seq[Referrer] {
	return func(yield func(Referrer) bool) {
		for r := range b.referrers {
			if !yield(r) {
				return
			}
		}
	}
}

// ReferrerCount returns the number of incoming references.
func (b *Block) ReferrerCount() int { return len(b.referrers) }

// HasExternalReferrers returns true iff any referrer is a block other than
// this one; self-references do not count.
func (b *Block) HasExternalReferrers() bool {
	for r := range b.referrers {
		if r.Block != b {
			return true
		}
	}

	return false
}

// TransferReferrers rewrites every incoming reference of this block to
// instead target newBlock, with target offset and base shifted by
// newOffset. Indirect references keep their base/offset gap.
//
// The operation is atomic: if any transferred reference would land outside
// newBlock's bounds the call fails with errs.ErrOutOfBounds and no reference
// is changed.
func (b *Block) TransferReferrers(newOffset int, newBlock *Block, mode TransferMode) error {
	if newBlock == nil || newBlock.graph != b.graph {
		return fmt.Errorf("transfer referrers: %w", errs.ErrNotInGraph)
	}

	var moved []Referrer
	for r := range b.referrers {
		if mode == SkipInternalReferences && r.Block == b {
			continue
		}
		moved = append(moved, r)
	}

	// Validate every transfer before mutating anything.
	for _, r := range moved {
		ref, ok := r.Block.GetReference(r.Offset)
		if !ok {
			panic("referrer back-edge without matching reference")
		}
		shifted := ref.Offset() + newOffset
		shiftedBase := ref.Base() + newOffset
		if shifted < 0 || shifted > newBlock.size || shiftedBase < 0 || shiftedBase > newBlock.size {
			return fmt.Errorf("transferred reference from block %d offset %d lands at %d in block of size %d: %w",
				r.Block.id, r.Offset, shifted, newBlock.size, errs.ErrOutOfBounds)
		}
	}

	for _, r := range moved {
		idx, _ := r.Block.findReference(r.Offset)
		old := r.Block.references[idx].ref
		r.Block.references[idx].ref = NewReference(
			old.Type(), old.Size(), newBlock, old.Offset()+newOffset, old.Base()+newOffset)
		b.removeReferrer(r.Block, r.Offset)
		newBlock.addReferrer(r.Block, r.Offset)
	}

	return nil
}

func (b *Block) addReferrer(from *Block, offset int) {
	b.referrers[Referrer{Block: from, Offset: offset}] = struct{}{}
}

func (b *Block) removeReferrer(from *Block, offset int) {
	delete(b.referrers, Referrer{Block: from, Offset: offset})
}

// --- Labels ---

// SetLabel attaches a label at the given offset, returning true if this
// created a new label. If a label already exists there the names are merged
// (distinct names joined, duplicates dropped) and the attributes OR'd, with
// DataLabel taking precedence over CodeLabel.
func (b *Block) SetLabel(offset int, name string, attributes LabelAttributes) (bool, error) {
	if offset < 0 || offset > b.size {
		return false, fmt.Errorf("label at %d in block of size %d: %w", offset, b.size, errs.ErrOutOfBounds)
	}

	name = b.graph.intern.intern(name)
	if existing, ok := b.labels[offset]; ok {
		merged := existing.merge(name, attributes)
		merged.name = b.graph.intern.intern(merged.name)
		b.labels[offset] = merged

		return false, nil
	}

	b.labels[offset] = NewLabel(name, attributes)

	return true, nil
}

// GetLabel returns the label at the given offset.
func (b *Block) GetLabel(offset int) (Label, bool) {
	l, ok := b.labels[offset]
	return l, ok
}

// HasLabel returns true if a label exists at the given offset.
func (b *Block) HasLabel(offset int) bool {
	_, ok := b.labels[offset]
	return ok
}

// RemoveLabel removes the label at the given offset, returning false if none
// exists there.
func (b *Block) RemoveLabel(offset int) bool {
	if _, ok := b.labels[offset]; !ok {
		return false
	}
	delete(b.labels, offset)

	return true
}

// Labels iterates the block's labels in offset order.
func (b *Block) Labels() iter.Seq2[int, Label] {
	return func(yield func(int, Label) bool) {
		offsets := make([]int, 0, len(b.labels))
		for offset := range b.labels {
			offsets = append(offsets, offset)
		}
		sort.Ints(offsets)
		for _, offset := range offsets {
			if !yield(offset, b.labels[offset]) {
				return
			}
		}
	}
}

// LabelCount returns the number of labels on the block.
func (b *Block) LabelCount() int { return len(b.labels) }

// --- Splice fix-up helpers ---

// shiftLabels moves labels at offsets >= offset by delta.
func (b *Block) shiftLabels(offset, delta int) {
	if len(b.labels) == 0 {
		return
	}

	shifted := make(map[int]Label, len(b.labels))
	for labelOffset, label := range b.labels {
		if labelOffset >= offset {
			labelOffset += delta
		}
		shifted[labelOffset] = label
	}
	b.labels = shifted
}

// shiftReferences moves the source offsets of the block's own references at
// offsets >= offset by delta, re-keying the referrer entries held by their
// targets.
func (b *Block) shiftReferences(offset, delta int) {
	idx := sort.Search(len(b.references), func(i int) bool {
		return b.references[i].offset >= offset
	})

	shift := func(i int) {
		e := &b.references[i]
		e.ref.Referenced().removeReferrer(b, e.offset)
		e.offset += delta
		e.ref.Referenced().addReferrer(b, e.offset)
	}

	// When shifting up, walk from the highest offset down so a shifted key
	// never lands on a not-yet-shifted neighbor's referrer entry.
	if delta > 0 {
		for i := len(b.references) - 1; i >= idx; i-- {
			shift(i)
		}
	} else {
		for i := idx; i < len(b.references); i++ {
			shift(i)
		}
	}
}

// shiftReferrers moves the target offset and base of every incoming
// reference pointing at or past offset by delta.
func (b *Block) shiftReferrers(offset, delta int) {
	for r := range b.referrers {
		idx, found := r.Block.findReference(r.Offset)
		if !found {
			panic("referrer back-edge without matching reference")
		}

		old := r.Block.references[idx].ref
		newOffset := old.Offset()
		newBase := old.Base()
		if newOffset >= offset {
			newOffset += delta
		}
		if newBase >= offset {
			newBase += delta
		}
		if newOffset != old.Offset() || newBase != old.Base() {
			r.Block.references[idx].ref = NewReference(old.Type(), old.Size(), b, newOffset, newBase)
		}
	}
}
