// Package typedblock overlays Go struct types onto the raw data of a block,
// giving byte-precise structured access without copying.
//
// A View[T] binds a block, an offset into its explicit data, and a size. The
// element pointer is resolved against the block's current data buffer on
// every access, so views stay correct across the block's copy-on-write
// transitions. Mutable views promote the block to owned data before handing
// out pointers; read-only views never trigger a copy.
//
// Views also walk the reference graph in typed form: Dereference follows a
// direct reference (one whose base equals its offset) from inside one view
// to a new view over the referenced block. Indirect references cannot be
// followed this way, since the pointed-at offset is not where the reference
// logically lands.
//
//	header, err := typedblock.New[DosHeader](block, 0)
//	if err != nil {
//		...
//	}
//	ntHeaders, err := typedblock.DereferenceAt[NtHeaders](header, lfanewOffset)
package typedblock
