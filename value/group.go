package value

// GroupDescriptor is the immutable IR group descriptor a KindGroup Value
// points to: an enum-like closed set of named constant members sharing
// one primitive base type. Descriptors must remain at stable addresses
// across a module's lifetime, since the debug pretty-printer and
// iterator logic hold borrowed pointers into them.
type GroupDescriptor struct {
	Name     string
	BaseKind Kind
	Members  map[string]Value // member name -> literal, sharing BaseKind
}

// groupData is the reference payload of a KindGroup Value: only a pointer
// to the immutable descriptor.
type groupData struct {
	desc *GroupDescriptor
}

func (g *groupData) release() {}

// NewGroup constructs a group Value pointing at desc.
func NewGroup(desc *GroupDescriptor) Value {
	return Value{Kind: KindGroup, rc: newRC(), ref: &groupData{desc: desc}}
}

// GroupDesc returns the descriptor a group Value points to.
func GroupDesc(v Value) *GroupDescriptor { return v.ref.(*groupData).desc }
