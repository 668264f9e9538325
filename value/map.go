package value

import (
	"fmt"
	"hash/fnv"
)

// mapSlotState tags an open-addressed slot.
type mapSlotState uint8

const (
	slotEmpty mapSlotState = iota
	slotUsed
	slotTombstone
)

type mapSlot struct {
	state mapSlotState
	key   Value
	val   Value
	hash  uint64
}

// mapData is the reference payload of a KindMap Value: an open-addressed
// hash table with linear probing (grown when len*2 >= cap), plus a
// parallel `order` vector of keys recording insertion order for iteration
// and keys()/values(). Keys are restricted to hashable scalar kinds
// (bool/int/byte/glyph/string); equal keys update their value in place
// without reordering.
type mapData struct {
	slots []mapSlot
	count int
	order []Value // keys, in insertion order; a removed key is compacted out
}

func newMapData(capHint int) *mapData {
	if capHint < 8 {
		capHint = 8
	}
	return &mapData{slots: make([]mapSlot, capHint)}
}

func (m *mapData) release() {
	for i := range m.slots {
		if m.slots[i].state == slotUsed {
			Release(m.slots[i].key)
			Release(m.slots[i].val)
		}
	}
	m.slots = nil
	for _, k := range m.order {
		Release(k)
	}
	m.order = nil
}

// NewMap constructs an empty map Value.
func NewMap() Value {
	return Value{Kind: KindMap, rc: newRC(), ref: newMapData(8)}
}

func (v Value) mapData() *mapData { return v.ref.(*mapData) }

func hashKey(k Value) (uint64, error) {
	h := fnv.New64a()
	switch k.Kind {
	case KindBool:
		if k.b {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	case KindInt:
		h.Write([]byte{
			byte(k.i), byte(k.i >> 8), byte(k.i >> 16), byte(k.i >> 24),
			byte(k.i >> 32), byte(k.i >> 40), byte(k.i >> 48), byte(k.i >> 56),
		})
	case KindByte:
		h.Write([]byte{k.u8})
	case KindGlyph:
		h.Write([]byte{byte(k.gl), byte(k.gl >> 8), byte(k.gl >> 16), byte(k.gl >> 24)})
	case KindString:
		h.Write(k.raw)
	default:
		return 0, fmt.Errorf("type error: unhashable key kind %s", k.Kind)
	}
	return h.Sum64(), nil
}

func keyEqual(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	return Equal(a, b)
}

func (m *mapData) maybeGrow() {
	if m.count*2 < len(m.slots) {
		return
	}
	old := m.slots
	m.slots = make([]mapSlot, len(old)*2)
	for _, s := range old {
		if s.state == slotUsed {
			m.rawInsert(s.hash, s.key, s.val)
		}
	}
}

// rawInsert places a key/value into the slot array without touching
// count, order, or refcounts (used for both growth rehashing and the
// public Set path).
func (m *mapData) rawInsert(h uint64, k, v Value) {
	n := uint64(len(m.slots))
	idx := h % n
	for {
		switch m.slots[idx].state {
		case slotEmpty, slotTombstone:
			m.slots[idx] = mapSlot{state: slotUsed, key: k, val: v, hash: h}
			return
		case slotUsed:
			if m.slots[idx].hash == h && keyEqual(m.slots[idx].key, k) {
				m.slots[idx].val = v
				return
			}
		}
		idx = (idx + 1) % n
	}
}

func (m *mapData) find(h uint64, k Value) (int, bool) {
	n := uint64(len(m.slots))
	idx := h % n
	for i := uint64(0); i < n; i++ {
		s := &m.slots[idx]
		switch s.state {
		case slotEmpty:
			return -1, false
		case slotUsed:
			if s.hash == h && keyEqual(s.key, k) {
				return int(idx), true
			}
		}
		idx = (idx + 1) % n
	}
	return -1, false
}

// MapSet inserts or updates key->val. Equal keys update the value in
// place without reordering; new keys are appended to the order vector.
func MapSet(m, key, val Value) error {
	md := m.mapData()
	h, err := hashKey(key)
	if err != nil {
		return err
	}
	if idx, ok := md.find(h, key); ok {
		Release(md.slots[idx].val)
		md.slots[idx].val = Retain(val)
		return nil
	}
	md.maybeGrow()
	md.rawInsert(h, Retain(key), Retain(val))
	md.count++
	md.order = append(md.order, Retain(key))
	return nil
}

// MapGet looks up key, raising "missing key" if absent.
func MapGet(m, key Value) (Value, error) {
	md := m.mapData()
	h, err := hashKey(key)
	if err != nil {
		return Value{}, err
	}
	if idx, ok := md.find(h, key); ok {
		return md.slots[idx].val, nil
	}
	return Value{}, fmt.Errorf("missing key")
}

// MapHas reports whether key is present, without raising.
func MapHas(m, key Value) bool {
	md := m.mapData()
	h, err := hashKey(key)
	if err != nil {
		return false
	}
	_, ok := md.find(h, key)
	return ok
}

// MapRemove deletes key if present, returning whether it was removed.
// Uses tombstoning in the slot array and compacts the order vector.
func MapRemove(m, key Value) bool {
	md := m.mapData()
	h, err := hashKey(key)
	if err != nil {
		return false
	}
	idx, ok := md.find(h, key)
	if !ok {
		return false
	}
	Release(md.slots[idx].key)
	Release(md.slots[idx].val)
	md.slots[idx] = mapSlot{state: slotTombstone}
	md.count--
	for i, k := range md.order {
		if keyEqual(k, key) {
			Release(k)
			md.order = append(md.order[:i], md.order[i+1:]...)
			break
		}
	}
	return true
}

// MapLen returns the number of live entries.
func MapLen(m Value) int { return m.mapData().count }

// MapKeys returns keys in insertion order.
func MapKeys(m Value) []Value {
	md := m.mapData()
	out := make([]Value, len(md.order))
	copy(out, md.order)
	return out
}

// MapValues returns values in insertion order (matching MapKeys order).
func MapValues(m Value) []Value {
	md := m.mapData()
	out := make([]Value, 0, len(md.order))
	for _, k := range md.order {
		v, err := MapGet(m, k)
		if err == nil {
			out = append(out, v)
		}
	}
	return out
}
