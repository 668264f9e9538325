package value

// objSlotState tags an object field slot, mirroring map.go's scheme but
// keyed by byte-string only (object field names).
type objSlotState uint8

const (
	objSlotEmpty objSlotState = iota
	objSlotUsed
	objSlotTombstone
)

type objSlot struct {
	state objSlotState
	name  string
	val   Value
}

// objectData is the reference payload of a KindObject Value.
type objectData struct {
	slots     []objSlot
	count     int
	order     []string
	protoName string
}

func newObjectData(protoName string) *objectData {
	return &objectData{slots: make([]objSlot, 8), protoName: protoName}
}

func (o *objectData) release() {
	for i := range o.slots {
		if o.slots[i].state == objSlotUsed {
			Release(o.slots[i].val)
		}
	}
	o.slots = nil
	o.order = nil
}

// NewObject constructs an empty object Value, optionally naming its
// prototype (used by dispatch hints, never required for correctness).
func NewObject(protoName string) Value {
	return Value{Kind: KindObject, rc: newRC(), ref: newObjectData(protoName)}
}

func (v Value) objectData() *objectData { return v.ref.(*objectData) }

// ProtoName returns the optional prototype name of an object.
func (v Value) ProtoName() string { return v.objectData().protoName }

func fnvStr(s string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

func (o *objectData) maybeGrow() {
	if o.count*2 < len(o.slots) {
		return
	}
	old := o.slots
	o.slots = make([]objSlot, len(old)*2)
	for _, s := range old {
		if s.state == objSlotUsed {
			o.rawInsert(s.name, s.val)
		}
	}
}

func (o *objectData) rawInsert(name string, v Value) {
	n := uint64(len(o.slots))
	idx := fnvStr(name) % n
	for {
		switch o.slots[idx].state {
		case objSlotEmpty, objSlotTombstone:
			o.slots[idx] = objSlot{state: objSlotUsed, name: name, val: v}
			return
		case objSlotUsed:
			if o.slots[idx].name == name {
				o.slots[idx].val = v
				return
			}
		}
		idx = (idx + 1) % n
	}
}

func (o *objectData) find(name string) (int, bool) {
	n := uint64(len(o.slots))
	idx := fnvStr(name) % n
	for i := uint64(0); i < n; i++ {
		s := &o.slots[idx]
		switch s.state {
		case objSlotEmpty:
			return -1, false
		case objSlotUsed:
			if s.name == name {
				return int(idx), true
			}
		}
		idx = (idx + 1) % n
	}
	return -1, false
}

// ObjectSet inserts or updates a named field.
func ObjectSet(obj Value, name string, val Value) {
	o := obj.objectData()
	if idx, ok := o.find(name); ok {
		Release(o.slots[idx].val)
		o.slots[idx].val = Retain(val)
		return
	}
	o.maybeGrow()
	o.rawInsert(name, Retain(val))
	o.count++
	o.order = append(o.order, name)
}

// ObjectGet reads a named field. The bool result is false (with a void
// Value) when absent: reading an absent object field returns an unbound
// value distinguishable from null.
func ObjectGet(obj Value, name string) (Value, bool) {
	o := obj.objectData()
	if idx, ok := o.find(name); ok {
		return o.slots[idx].val, true
	}
	return Value{}, false
}

// ObjectFieldNames returns field names in insertion order.
func ObjectFieldNames(obj Value) []string {
	o := obj.objectData()
	out := make([]string, len(o.order))
	copy(out, o.order)
	return out
}
