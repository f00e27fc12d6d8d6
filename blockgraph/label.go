package blockgraph

import "strings"

// LabelAttributes is a bitmask of semantic markers attached to a label.
type LabelAttributes uint16

const (
	// CodeLabel marks a code entry point.
	CodeLabel LabelAttributes = 1 << iota
	// DebugStartLabel and DebugEndLabel bracket debuggable code.
	DebugStartLabel
	DebugEndLabel
	// ScopeStartLabel and ScopeEndLabel bracket a lexical scope.
	ScopeStartLabel
	ScopeEndLabel
	// DataLabel marks a data item.
	DataLabel
	// JumpTableLabel marks the start of a jump table. Always paired with
	// DataLabel.
	JumpTableLabel
	// CaseTableLabel marks the start of a case table. Always paired with
	// DataLabel.
	CaseTableLabel
)

// labelAttributeNames maps each single attribute bit to its display name.
var labelAttributeNames = []struct {
	attr LabelAttributes
	name string
}{
	{CodeLabel, "Code"},
	{DebugStartLabel, "DebugStart"},
	{DebugEndLabel, "DebugEnd"},
	{ScopeStartLabel, "ScopeStart"},
	{ScopeEndLabel, "ScopeEnd"},
	{DataLabel, "Data"},
	{JumpTableLabel, "JumpTable"},
	{CaseTableLabel, "CaseTable"},
}

func (a LabelAttributes) String() string {
	if a == 0 {
		return "None"
	}

	var parts []string
	for _, entry := range labelAttributeNames {
		if a&entry.attr != 0 {
			parts = append(parts, entry.name)
		}
	}

	return strings.Join(parts, "|")
}

// labelNameSeparator joins the names of labels merged at the same offset.
const labelNameSeparator = ", "

// Label is a named, attributed marker at an offset within a block.
//
// Labels are immutable values; Block.SetLabel merges labels that land on the
// same offset.
type Label struct {
	name       string
	attributes LabelAttributes
}

// NewLabel creates a label with the given name and attributes.
func NewLabel(name string, attributes LabelAttributes) Label {
	return Label{name: name, attributes: attributes}
}

// Name returns the label name. A merged label carries every original name
// joined with ", ".
func (l Label) Name() string { return l.name }

// Attributes returns the label's attribute bitmask.
func (l Label) Attributes() LabelAttributes { return l.attributes }

// Has returns true if every attribute in attrs is set on the label.
func (l Label) Has(attrs LabelAttributes) bool {
	return l.attributes&attrs == attrs
}

// IsValid checks the label's attribute combination.
//
// The rules are:
//   - a jump table label must be exactly DataLabel|JumpTableLabel
//   - a case table label must be exactly DataLabel|CaseTableLabel
//   - a bare data label must be DataLabel alone
//   - a code label may coexist only with the debug and scope markers
//   - any other non-empty combination of debug/scope markers is valid
//
// Invalid combinations are only used to detect malformed metadata; they are
// not rejected on write.
func (l Label) IsValid() bool {
	const codeCompatible = CodeLabel | DebugStartLabel | DebugEndLabel |
		ScopeStartLabel | ScopeEndLabel

	attrs := l.attributes
	switch {
	case attrs&JumpTableLabel != 0:
		return attrs == DataLabel|JumpTableLabel
	case attrs&CaseTableLabel != 0:
		return attrs == DataLabel|CaseTableLabel
	case attrs&DataLabel != 0:
		return attrs == DataLabel
	case attrs&CodeLabel != 0:
		return attrs&^codeCompatible == 0
	default:
		return attrs != 0
	}
}

// merge combines l with a label being added at the same offset: distinct
// names are concatenated, attributes are OR'd, and DataLabel takes
// precedence over CodeLabel when the merge sets both.
func (l Label) merge(name string, attributes LabelAttributes) Label {
	merged := l

	if name != "" && !containsName(l.name, name) {
		if merged.name == "" {
			merged.name = name
		} else {
			merged.name += labelNameSeparator + name
		}
	}

	merged.attributes |= attributes
	if merged.attributes&DataLabel != 0 {
		merged.attributes &^= CodeLabel
	}

	return merged
}

// containsName reports whether name already appears as a component of the
// compound label name.
func containsName(compound, name string) bool {
	for _, part := range strings.Split(compound, labelNameSeparator) {
		if part == name {
			return true
		}
	}

	return false
}
