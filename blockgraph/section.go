package blockgraph

// Section groups blocks that share platform-level memory characteristics
// (e.g. ".text", ".data"). Blocks refer to their section by ID; the ID is
// stable across renames.
//
// The characteristics bitmask (readable/writable/executable/discardable and
// friends) is opaque to the graph itself.
type Section struct {
	id              SectionID
	name            string
	characteristics uint32
	graph           *Graph
}

// ID returns the section's unique, stable ID.
func (s *Section) ID() SectionID { return s.id }

// Name returns the section name. Two sections may share a name but never an
// ID.
func (s *Section) Name() string { return s.name }

// SetName renames the section. The ID is unaffected.
func (s *Section) SetName(name string) {
	s.name = s.graph.intern.intern(name)
}

// Characteristics returns the section's characteristics bitmask.
func (s *Section) Characteristics() uint32 { return s.characteristics }

// SetCharacteristics replaces the characteristics bitmask.
func (s *Section) SetCharacteristics(characteristics uint32) {
	s.characteristics = characteristics
}

// SetCharacteristic sets the given bits in the characteristics bitmask.
func (s *Section) SetCharacteristic(flag uint32) {
	s.characteristics |= flag
}

// ClearCharacteristic clears the given bits in the characteristics bitmask.
func (s *Section) ClearCharacteristic(flag uint32) {
	s.characteristics &^= flag
}
