package value

import "fmt"

// listData is the reference payload of a KindList Value: a dynamic array
// with amortized doubling growth, a monotonically increasing version
// counter bumped on every structural mutation, and an optional type-name
// hint used only for diagnostics, never consulted for dispatch.
type listData struct {
	items    []Value
	version  uint64
	typeHint string
}

func (l *listData) release() {
	for _, it := range l.items {
		Release(it)
	}
	l.items = nil
}

// NewList constructs a list Value from items, retaining each.
func NewList(items []Value, typeHint string) Value {
	ld := &listData{items: make([]Value, len(items)), typeHint: typeHint}
	for i, it := range items {
		ld.items[i] = Retain(it)
	}
	return Value{Kind: KindList, rc: newRC(), ref: ld}
}

func (v Value) list() *listData {
	return v.ref.(*listData)
}

// Len returns the number of items in a list.
func (v Value) Len() int { return len(v.list().items) }

// Version returns the list's current mutation version.
func (v Value) Version() uint64 { return v.list().version }

// TypeHint returns the diagnostic-only type-name hint of a list or view.
func (v Value) TypeHint() string {
	switch v.Kind {
	case KindList:
		return v.list().typeHint
	case KindView:
		return v.view().typeHint
	default:
		return ""
	}
}

// ListGet returns the item at index i.
func ListGet(l Value, i int) (Value, error) {
	ld := l.list()
	if i < 0 || i >= len(ld.items) {
		return Value{}, fmt.Errorf("index out of bounds")
	}
	return ld.items[i], nil
}

// ListSet overwrites the item at index i, releasing the old value and
// retaining the new one. Does not bump version (assignment, not
// structural mutation).
func ListSet(l Value, i int, v Value) error {
	ld := l.list()
	if i < 0 || i >= len(ld.items) {
		return fmt.Errorf("index out of bounds")
	}
	Release(ld.items[i])
	ld.items[i] = Retain(v)
	return nil
}

// Push appends v to the list, growing capacity by doubling as needed, and
// bumps the version counter.
func Push(l Value, v Value) {
	ld := l.list()
	ld.items = append(ld.items, Retain(v))
	ld.version++
}

// Pop removes and returns the last item. Empty pop is a range error.
func Pop(l Value) (Value, error) {
	ld := l.list()
	n := len(ld.items)
	if n == 0 {
		return Value{}, fmt.Errorf("empty pop")
	}
	v := ld.items[n-1]
	ld.items = ld.items[:n-1]
	ld.version++
	return v, nil
}

// RemoveLast is an alias for Pop, matching the method name scripts call
// it by; both bump the list's version like push/sort/reverse.
func RemoveLast(l Value) (Value, error) { return Pop(l) }

// Reverse reverses the list in place and bumps the version.
func Reverse(l Value) {
	ld := l.list()
	for i, j := 0, len(ld.items)-1; i < j; i, j = i+1, j-1 {
		ld.items[i], ld.items[j] = ld.items[j], ld.items[i]
	}
	ld.version++
}

// CompareFunc compares two elements for Sort; for object elements the
// caller supplies a compareTo resolver (see interp package), for scalar
// elements Compare is used directly.
type CompareFunc func(a, b Value) (int, error)

// Sort performs an iterative (bottom-up) merge sort, stable on equal
// keys, bumping the version exactly once regardless of element count.
func Sort(l Value, cmp CompareFunc) error {
	ld := l.list()
	items := ld.items
	n := len(items)
	if n < 2 {
		ld.version++
		return nil
	}
	buf := make([]Value, n)
	src := items
	dst := buf
	for width := 1; width < n; width *= 2 {
		for i := 0; i < n; i += 2 * width {
			mid := min(i+width, n)
			hi := min(i+2*width, n)
			if err := merge(src, dst, i, mid, hi, cmp); err != nil {
				return err
			}
		}
		src, dst = dst, src
	}
	copy(items, src)
	ld.version++
	return nil
}

func merge(src, dst []Value, lo, mid, hi int, cmp CompareFunc) error {
	i, j, k := lo, mid, lo
	for i < mid && j < hi {
		c, err := cmp(src[i], src[j])
		if err != nil {
			return err
		}
		if c <= 0 {
			dst[k] = src[i]
			i++
		} else {
			dst[k] = src[j]
			j++
		}
		k++
	}
	for i < mid {
		dst[k] = src[i]
		i++
		k++
	}
	for j < hi {
		dst[k] = src[j]
		j++
		k++
	}
	return nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Items returns the backing slice directly; callers must not retain it
// past the list's next mutation (it is reused and resized in place).
func Items(l Value) []Value { return l.list().items }
