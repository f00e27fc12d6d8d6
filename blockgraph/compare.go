package blockgraph

import "bytes"

// Compare checks two graphs for structural equality: the same section set,
// the same block count, and for each block by ID the same identity, shape,
// content, labels, references and referrers.
//
// Reference targets are compared by referenced-block ID, never by pointer
// identity; referrer sets are compared as sets of (referrer ID, offset)
// pairs. This is the equality the archive round-trip contract is defined
// against.
func Compare(a, b *Graph) bool {
	if a.SectionCount() != b.SectionCount() || a.BlockCount() != b.BlockCount() {
		return false
	}

	for sectionA := range a.Sections() {
		sectionB := b.SectionByID(sectionA.ID())
		if sectionB == nil ||
			sectionA.Name() != sectionB.Name() ||
			sectionA.Characteristics() != sectionB.Characteristics() {
			return false
		}
	}

	for blockA := range a.Blocks() {
		blockB := b.BlockByID(blockA.ID())
		if blockB == nil || !compareBlocks(blockA, blockB) {
			return false
		}
	}

	return true
}

func compareBlocks(a, b *Block) bool {
	if a.id != b.id ||
		a.blockType != b.blockType ||
		a.size != b.size ||
		a.alignment != b.alignment ||
		a.addr != b.addr ||
		a.sectionID != b.sectionID ||
		a.attrs != b.attrs ||
		a.dataSize != b.dataSize ||
		a.name != b.name ||
		a.compiland != b.compiland {
		return false
	}
	if !a.srcRanges.Equal(&b.srcRanges) {
		return false
	}
	if !bytes.Equal(a.data, b.data) {
		return false
	}

	if len(a.labels) != len(b.labels) {
		return false
	}
	for offset, labelA := range a.labels {
		labelB, ok := b.labels[offset]
		if !ok || labelA != labelB {
			return false
		}
	}

	if len(a.references) != len(b.references) {
		return false
	}
	for i, entryA := range a.references {
		entryB := b.references[i]
		if entryA.offset != entryB.offset || !compareReferences(entryA.ref, entryB.ref) {
			return false
		}
	}

	if len(a.referrers) != len(b.referrers) {
		return false
	}
	type referrerKey struct {
		id     BlockID
		offset int
	}
	keys := make(map[referrerKey]struct{}, len(a.referrers))
	for r := range a.referrers {
		keys[referrerKey{id: r.Block.id, offset: r.Offset}] = struct{}{}
	}
	for r := range b.referrers {
		if _, ok := keys[referrerKey{id: r.Block.id, offset: r.Offset}]; !ok {
			return false
		}
	}

	return true
}

// compareReferences matches the target by block ID rather than pointer
// identity so graphs loaded from an archive compare equal to their source.
func compareReferences(a, b Reference) bool {
	return a.Type() == b.Type() &&
		a.Size() == b.Size() &&
		a.Offset() == b.Offset() &&
		a.Base() == b.Base() &&
		a.Referenced().id == b.Referenced().id
}
