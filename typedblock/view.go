package typedblock

import (
	"fmt"
	"unsafe"

	"github.com/regraft/regraft/blockgraph"
	"github.com/regraft/regraft/errs"
)

// Sizeof returns the in-memory size of T in bytes.
func Sizeof[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// View is a typed window over [offset, offset+size) of a block's explicit
// data. The zero value is not usable; construct views with New or
// NewWithSize.
//
// A view holds no pointer into the data buffer itself. Every access resolves
// the buffer afresh, so a view built before a copy-on-write transition stays
// valid after it. Shrinking the block's data below offset+size does
// invalidate the view.
type View[T any] struct {
	block   *blockgraph.Block
	offset  int
	size    int
	mutable bool
}

// New creates a read-only view of exactly one T at the given offset.
func New[T any](block *blockgraph.Block, offset int) (View[T], error) {
	return newView[T](block, offset, Sizeof[T](), false)
}

// NewWithSize creates a read-only view of size bytes at the given offset.
// The size must cover at least one T; any excess is addressable through
// Index as trailing array elements.
func NewWithSize[T any](block *blockgraph.Block, offset, size int) (View[T], error) {
	return newView[T](block, offset, size, false)
}

// NewMutable creates a writable view of exactly one T at the given offset.
func NewMutable[T any](block *blockgraph.Block, offset int) (View[T], error) {
	return newView[T](block, offset, Sizeof[T](), true)
}

// NewMutableWithSize creates a writable view of size bytes at the given
// offset.
func NewMutableWithSize[T any](block *blockgraph.Block, offset, size int) (View[T], error) {
	return newView[T](block, offset, size, true)
}

func newView[T any](block *blockgraph.Block, offset, size int, mutable bool) (View[T], error) {
	if block == nil {
		return View[T]{}, fmt.Errorf("typed view: nil block: %w", errs.ErrNotInGraph)
	}
	if size < Sizeof[T]() {
		return View[T]{}, fmt.Errorf("typed view of %d bytes for a %d-byte element: %w",
			size, Sizeof[T](), errs.ErrViewTooSmall)
	}
	if offset < 0 || offset+size > block.DataSize() {
		return View[T]{}, fmt.Errorf("typed view [%d, %d) exceeds %d data bytes of block %d: %w",
			offset, offset+size, block.DataSize(), block.ID(), errs.ErrOutOfBounds)
	}

	return View[T]{block: block, offset: offset, size: size, mutable: mutable}, nil
}

// Block returns the underlying block.
func (v View[T]) Block() *blockgraph.Block { return v.block }

// Offset returns the view's start offset within the block data.
func (v View[T]) Offset() int { return v.offset }

// Size returns the view's extent in bytes.
func (v View[T]) Size() int { return v.size }

// IsMutable returns true if accesses through this view may write.
func (v View[T]) IsMutable() bool { return v.mutable }

// bytes resolves the current backing buffer, promoting the block to owned
// data first for mutable views.
func (v View[T]) bytes() []byte {
	if v.mutable {
		return v.block.GetMutableData()
	}

	return v.block.Data()
}

// Get returns a pointer to the element at the start of the view. Writes
// through the pointer are only legal on mutable views.
func (v View[T]) Get() *T {
	data := v.bytes()
	return (*T)(unsafe.Pointer(&data[v.offset]))
}

// GetMutable returns a pointer intended for writing, promoting the block to
// owned data first. Fails on a read-only view instead of silently writing
// into a buffer the block merely borrows.
func (v View[T]) GetMutable() (*T, error) {
	if !v.mutable {
		return nil, fmt.Errorf("block %d: %w", v.block.ID(), errs.ErrImmutableView)
	}

	return v.Get(), nil
}

// ElementCount returns how many whole T elements fit between the view's
// offset and the end of the block's explicit data. For views over trailing
// arrays this exceeds the view size's own element count.
func (v View[T]) ElementCount() int {
	return (v.block.DataSize() - v.offset) / Sizeof[T]()
}

// Index returns a pointer to the i-th element past the view's offset,
// bounds-checked against the block's explicit data.
func (v View[T]) Index(i int) (*T, error) {
	if i < 0 || i >= v.ElementCount() {
		return nil, fmt.Errorf("element %d of %d: %w", i, v.ElementCount(), errs.ErrOutOfBounds)
	}

	data := v.bytes()

	return (*T)(unsafe.Pointer(&data[v.offset+i*Sizeof[T]()])), nil
}

// OffsetOf translates a pointer to a field of the view's element into the
// field's byte offset within the block. The pointer must have been derived
// from this view's Get or Index since the last buffer transition.
func OffsetOf[T, F any](v View[T], field *F) (int, error) {
	data := v.bytes()
	base := uintptr(unsafe.Pointer(&data[0]))
	addr := uintptr(unsafe.Pointer(field))
	if addr < base || addr+unsafe.Sizeof(*field) > base+uintptr(len(data)) {
		return 0, fmt.Errorf("field pointer outside block %d data: %w", v.block.ID(), errs.ErrOutOfBounds)
	}

	return int(addr - base), nil
}

// HasReference reports whether a reference of the given size exists at the
// given offset relative to the view.
func (v View[T]) HasReference(offset, size int) bool {
	ref, ok := v.block.GetReference(v.offset + offset)
	return ok && ref.Size() == size
}

// GetReference returns the reference at the given offset relative to the
// view.
func (v View[T]) GetReference(offset int) (blockgraph.Reference, bool) {
	return v.block.GetReference(v.offset + offset)
}

// RemoveReference removes the reference at the given offset relative to the
// view, verifying its recorded size first. A size mismatch indicates the
// caller is operating on a different reference than it believes and fails
// without removing anything.
func (v View[T]) RemoveReference(offset, size int) error {
	ref, ok := v.block.GetReference(v.offset + offset)
	if !ok {
		return fmt.Errorf("no reference at view offset %d: %w", offset, errs.ErrRefNotFound)
	}
	if ref.Size() != size {
		return fmt.Errorf("reference at view offset %d has size %d, not %d: %w",
			offset, ref.Size(), size, errs.ErrRefSizeMismatch)
	}
	v.block.RemoveReference(v.offset + offset)

	return nil
}

// SetReference records a direct reference of the given type and size at
// offset (relative to the source view) pointing at the start of the target
// view. Direct means base equals offset, the only shape typed dereferencing
// can follow back.
func SetReference[T, U any](src View[T], offset int, refType blockgraph.ReferenceType, size int, target View[U]) error {
	ref := blockgraph.NewReference(refType, size, target.Block(), target.Offset(), target.Offset())
	if _, err := src.Block().SetReference(src.Offset()+offset, ref); err != nil {
		return err
	}

	return nil
}

// Dereference follows an already resolved reference to a typed view over
// its target. Only direct references can be followed: for an indirect
// reference the stored offset is not where the reference logically points,
// so a typed view there would silently alias the wrong bytes.
//
// The new view inherits the source view's mutability.
func Dereference[U, T any](src View[T], ref blockgraph.Reference) (View[U], error) {
	return DereferenceWithSize[U](src, ref, Sizeof[U]())
}

// DereferenceWithSize is Dereference with an explicit view size over the
// target.
func DereferenceWithSize[U, T any](src View[T], ref blockgraph.Reference, size int) (View[U], error) {
	if !ref.IsDirect() {
		return View[U]{}, fmt.Errorf("reference with base %d at offset %d: %w",
			ref.Base(), ref.Offset(), errs.ErrIndirectReference)
	}

	return newView[U](ref.Referenced(), ref.Offset(), size, src.mutable)
}

// DereferenceAt follows the reference stored at the given offset relative to
// the source view.
func DereferenceAt[U, T any](src View[T], offset int) (View[U], error) {
	return DereferenceAtWithSize[U](src, offset, Sizeof[U]())
}

// DereferenceAtWithSize is DereferenceAt with an explicit view size over the
// target.
func DereferenceAtWithSize[U, T any](src View[T], offset, size int) (View[U], error) {
	ref, ok := src.GetReference(offset)
	if !ok {
		return View[U]{}, fmt.Errorf("no reference at view offset %d: %w", offset, errs.ErrRefNotFound)
	}

	return DereferenceWithSize[U](src, ref, size)
}
