// Package errs defines the sentinel errors returned by the regraft core.
//
// Every structural violation detected by a mutator (overlapping references,
// overlapping address ranges, deleting a block with live edges, and so on) is
// reported through one of these values, usually wrapped with additional
// context via fmt.Errorf("...: %w", err). Callers match with errors.Is.
package errs

import "errors"

// Block data and reference errors.
var (
	// ErrOutOfBounds indicates an offset or range that does not fit inside the
	// block's size or data size.
	ErrOutOfBounds = errors.New("offset or range out of block bounds")

	// ErrRefSizeMismatch indicates an attempt to overwrite an existing
	// reference with one of a different byte width.
	ErrRefSizeMismatch = errors.New("reference size mismatch at offset")

	// ErrRefOverlap indicates a reference whose byte range intersects an
	// existing reference at a different offset.
	ErrRefOverlap = errors.New("reference overlaps an existing reference")

	// ErrRefNotFound indicates that no reference starts at the given offset.
	ErrRefNotFound = errors.New("no reference at offset")

	// ErrRangeInUse indicates a data removal whose range still contains a
	// reference or label.
	ErrRangeInUse = errors.New("range contains a reference or label")

	// ErrSourceRangeOverlap indicates a source-range push whose data range
	// intersects an already recorded range.
	ErrSourceRangeOverlap = errors.New("source range overlaps an existing range")
)

// Graph membership and lifetime errors.
var (
	// ErrBlockInUse indicates an attempt to remove a block that still has
	// outgoing references or incoming referrers.
	ErrBlockInUse = errors.New("block has live references or referrers")

	// ErrNotInGraph indicates a block or section that does not belong to the
	// graph it was handed to.
	ErrNotInGraph = errors.New("entity does not belong to this graph")

	// ErrUnknownSection indicates a section ID with no section record.
	ErrUnknownSection = errors.New("unknown section id")
)

// Address space errors.
var (
	// ErrAddressOverlap indicates an insertion or resize whose range
	// intersects an already occupied range.
	ErrAddressOverlap = errors.New("address range overlaps a placed block")

	// ErrNotPlaced indicates a block that has never been inserted into the
	// address space.
	ErrNotPlaced = errors.New("block is not placed in this address space")

	// ErrAlreadyPlaced indicates a block inserted into an address space that
	// already contains it.
	ErrAlreadyPlaced = errors.New("block is already placed in this address space")
)

// Typed overlay errors.
var (
	// ErrViewTooSmall indicates a view region smaller than the overlaid type.
	ErrViewTooSmall = errors.New("view region smaller than overlaid type")

	// ErrIndirectReference indicates an attempt to dereference a reference
	// whose base differs from its offset.
	ErrIndirectReference = errors.New("cannot dereference indirect reference")

	// ErrImmutableView indicates a mutation through a read-only view.
	ErrImmutableView = errors.New("view is read-only")
)

// Layout errors.
var (
	// ErrUnplacedBlock indicates a block left out of the layout that does not
	// carry the droppable attribute.
	ErrUnplacedBlock = errors.New("block missing from layout and not droppable")
)

// Archive errors.
var (
	// ErrInvalidMagicNumber indicates a payload that does not start with the
	// regraft archive magic.
	ErrInvalidMagicNumber = errors.New("invalid archive magic number")

	// ErrInvalidHeaderSize indicates an archive shorter than its fixed header.
	ErrInvalidHeaderSize = errors.New("invalid archive header size")

	// ErrInvalidHeaderFlags indicates an unparsable archive flag word.
	ErrInvalidHeaderFlags = errors.New("invalid archive header flags")

	// ErrChecksumMismatch indicates a payload whose stored checksum does not
	// match its content.
	ErrChecksumMismatch = errors.New("archive payload checksum mismatch")

	// ErrCorruptArchive indicates a structurally inconsistent archive
	// (truncated table, dangling block ID, out-of-range offset).
	ErrCorruptArchive = errors.New("corrupt archive")
)
