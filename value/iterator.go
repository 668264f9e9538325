package value

import "fmt"

// IterMode selects what a map iterator yields.
type IterMode uint8

const (
	IterOf IterMode = iota // yields values (lists, strings, views, or map values)
	IterIn                 // yields keys (maps only)
)

// iteratorData is the reference payload of a KindIterator Value: a cursor
// over a list, string, map or view.
type iteratorData struct {
	source Value
	index  int
	mode   IterMode
}

func (it *iteratorData) release() { Release(it.source) }

// NewIterator constructs an iterator over source, retaining it.
func NewIterator(source Value, mode IterMode) Value {
	id := &iteratorData{source: Retain(source), mode: mode}
	return Value{Kind: KindIterator, rc: newRC(), ref: id}
}

func (v Value) iterator() *iteratorData { return v.ref.(*iteratorData) }

// IterHasNext reports whether iteration has more elements. Iterators over
// an invalidated view raise.
func IterHasNext(it Value) (bool, error) {
	id := it.iterator()
	switch id.source.Kind {
	case KindList:
		return id.index < id.source.Len(), nil
	case KindString:
		return id.index < id.source.GlyphLen(), nil
	case KindMap:
		return id.index < MapLen(id.source), nil
	case KindView:
		if !ViewValid(id.source) {
			return false, fmt.Errorf("view invalidated")
		}
		return id.index < ViewLen(id.source), nil
	default:
		return false, fmt.Errorf("type error: not iterable")
	}
}

// IterNext advances the cursor and returns the next yielded value: a list
// item, a string glyph, a map key (mode=in) or value (mode=of), or a view
// element — re-checking view validity on every step.
func IterNext(it Value) (Value, error) {
	id := it.iterator()
	has, err := IterHasNext(it)
	if err != nil {
		return Value{}, err
	}
	if !has {
		return Value{}, fmt.Errorf("internal: iterator exhausted")
	}
	switch id.source.Kind {
	case KindList:
		v, err := ListGet(id.source, id.index)
		id.index++
		return v, err
	case KindString:
		v, err := GlyphAt(id.source, id.index)
		id.index++
		return v, err
	case KindMap:
		keys := MapKeys(id.source)
		k := keys[id.index]
		id.index++
		if id.mode == IterIn {
			return k, nil
		}
		return MapGet(id.source, k)
	case KindView:
		v, err := ViewGet(id.source, id.index)
		id.index++
		return v, err
	default:
		return Value{}, fmt.Errorf("type error: not iterable")
	}
}
