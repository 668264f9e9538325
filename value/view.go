package value

import "fmt"

type viewSourceKind uint8

const (
	viewSourceList viewSourceKind = iota
	viewSourceString
	viewSourceBorrowed
)

// viewData is the reference payload of a KindView Value: a bounded window
// into a list, string, or a borrowed raw item array (used only for
// variadic parameter bindings whose lifetime is the call frame).
type viewData struct {
	srcKind  viewSourceKind
	base     Value   // strong ref to source list/string; zero Value for borrowed
	borrowed []Value // borrowed items; not owned, no refcount traffic
	offset   int
	length   int
	snapshot uint64 // version snapshot of base list at construction time
	readonly bool
	typeHint string
}

func (vd *viewData) release() {
	if vd.srcKind != viewSourceBorrowed {
		Release(vd.base)
	}
	vd.borrowed = nil
}

// NewListView constructs a view over a list, retaining the list.
func NewListView(base Value, offset, length int, readonly bool, typeHint string) Value {
	vd := &viewData{
		srcKind: viewSourceList, base: Retain(base), offset: offset, length: length,
		snapshot: base.list().version, readonly: readonly, typeHint: typeHint,
	}
	return Value{Kind: KindView, rc: newRC(), ref: vd}
}

// NewStringView constructs a view over a string (always readonly: strings
// are immutable, so there is no write-through case to forbid).
func NewStringView(base Value, offset, length int, typeHint string) Value {
	vd := &viewData{
		srcKind: viewSourceString, base: Retain(base), offset: offset, length: length,
		readonly: true, typeHint: typeHint,
	}
	return Value{Kind: KindView, rc: newRC(), ref: vd}
}

// NewBorrowedView constructs a view over a borrowed raw item array (the
// variadic-parameter binding case). The caller is responsible for not
// letting this Value escape the call frame that owns items.
func NewBorrowedView(items []Value, typeHint string) Value {
	vd := &viewData{srcKind: viewSourceBorrowed, borrowed: items, length: len(items), readonly: true, typeHint: typeHint}
	return Value{Kind: KindView, rc: newRC(), ref: vd}
}

// NewComposedView composes a view over an existing view by flattening
// offsets to the base source — a view of a view is always one level.
func NewComposedView(base Value, offset, length int, readonly bool, typeHint string) (Value, error) {
	if base.Kind != KindView {
		return Value{}, fmt.Errorf("type error: expected view")
	}
	bv := base.view()
	switch bv.srcKind {
	case viewSourceBorrowed:
		if offset+length > len(bv.borrowed) {
			return Value{}, fmt.Errorf("index out of bounds")
		}
		return NewBorrowedView(bv.borrowed[offset:offset+length], typeHint), nil
	case viewSourceList:
		return NewListView(bv.base, bv.offset+offset, length, readonly || bv.readonly, typeHint), nil
	case viewSourceString:
		return NewStringView(bv.base, bv.offset+offset, length, typeHint), nil
	default:
		return Value{}, fmt.Errorf("internal: unknown view source kind")
	}
}

func (v Value) view() *viewData { return v.ref.(*viewData) }

// ViewValid reports whether a view may still be used: borrowed and
// string-backed views are always valid; list-backed views are valid iff
// their version snapshot still matches the source list's version.
func ViewValid(v Value) bool {
	vd := v.view()
	switch vd.srcKind {
	case viewSourceBorrowed, viewSourceString:
		return true
	case viewSourceList:
		return vd.snapshot == vd.base.list().version
	default:
		return false
	}
}

// ViewLen returns the view's length.
func ViewLen(v Value) int { return v.view().length }

// ViewReadonly reports whether writes through the view are forbidden.
func ViewReadonly(v Value) bool { return v.view().readonly }

// ViewGet reads source[offset+i] through the view, raising
// RUNTIME_VIEW_INVALID if the view has been invalidated.
func ViewGet(v Value, i int) (Value, error) {
	if !ViewValid(v) {
		return Value{}, fmt.Errorf("view invalidated")
	}
	vd := v.view()
	if i < 0 || i >= vd.length {
		return Value{}, fmt.Errorf("index out of bounds")
	}
	switch vd.srcKind {
	case viewSourceBorrowed:
		return vd.borrowed[i], nil
	case viewSourceList:
		return ListGet(vd.base, vd.offset+i)
	case viewSourceString:
		return GlyphAt(vd.base, vd.offset+i)
	default:
		return Value{}, fmt.Errorf("internal: unknown view source kind")
	}
}

// ViewSet writes through the view. Forbidden when readonly or when the
// source is not a list.
func ViewSet(v Value, i int, val Value) error {
	if !ViewValid(v) {
		return fmt.Errorf("view invalidated")
	}
	vd := v.view()
	if vd.readonly {
		return fmt.Errorf("type error: view is readonly")
	}
	if vd.srcKind != viewSourceList {
		return fmt.Errorf("type error: write through non-list view")
	}
	if i < 0 || i >= vd.length {
		return fmt.Errorf("index out of bounds")
	}
	return ListSet(vd.base, vd.offset+i, val)
}

// ComposeTypeHint builds a "kind<inner-element-type>" diagnostic hint.
// Nothing in this module calls it; type hints are never used for dispatch.
func ComposeTypeHint(kind, inner string) string {
	if inner == "" {
		return kind
	}
	return kind + "<" + inner + ">"
}
