// Package value implements the ProtoScript dynamic value model: a tagged
// variant holding one of bool, int, float, byte, glyph, string, bytes,
// list, map, object, view, iterator, file, exception, group or void, with
// manual reference counting in place of a tracing collector (see
// DESIGN.md: "Do not attempt tracing GC").
package value

import (
	"fmt"
	"math"
	"sync/atomic"
)

// Kind tags the dynamic variant held by a Value.
type Kind uint8

const (
	KindVoid Kind = iota
	KindBool
	KindInt
	KindFloat
	KindByte
	KindGlyph
	KindString
	KindBytes
	KindList
	KindMap
	KindObject
	KindView
	KindIterator
	KindFile
	KindException
	KindGroup
)

func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindByte:
		return "byte"
	case KindGlyph:
		return "glyph"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindObject:
		return "object"
	case KindView:
		return "view"
	case KindIterator:
		return "iterator"
	case KindFile:
		return "file"
	case KindException:
		return "exception"
	case KindGroup:
		return "group"
	default:
		return "unknown"
	}
}

// Value is a tagged variant plus a shared reference count. Values are
// copied by Go value semantics (small struct), but the rc pointer and the
// ref payload (for reference kinds) are shared across copies: retaining or
// releasing any copy affects every copy derived from the same constructor
// call. Scalars (bool/int/float/byte/glyph/void) do not need a live rc —
// Retain/Release on them is a no-op beyond bookkeeping symmetry.
type Value struct {
	Kind Kind
	rc   *int64

	// scalar payloads
	b  bool
	i  int64
	f  float64
	u8 byte
	gl rune

	// string/bytes payload: both use raw bytes; String additionally
	// guarantees UTF-8 validity (enforced at construction, see string.go).
	raw []byte

	// reference payload for list/map/object/view/iterator/file/exception/group
	ref any
}

// refCounted marks payloads that own nested Values and must release them
// when their own refcount reaches zero.
type refCounted interface {
	release()
}

// Void is the canonical void value.
var Void = Value{Kind: KindVoid}

func newRC() *int64 {
	n := int64(1)
	return &n
}

// NewBool constructs a bool Value.
func NewBool(b bool) Value { return Value{Kind: KindBool, b: b} }

// NewInt constructs an int (i64) Value.
func NewInt(i int64) Value { return Value{Kind: KindInt, i: i} }

// NewFloat constructs a float (f64) Value.
func NewFloat(f float64) Value { return Value{Kind: KindFloat, f: f} }

// NewByte constructs a byte (u8) Value. Returns an error if v is outside 0..255,
// mapped by the caller to RUNTIME_BYTE_RANGE.
func NewByte(v int) (Value, error) {
	if v < 0 || v > 255 {
		return Value{}, fmt.Errorf("byte out of range: %d", v)
	}
	return Value{Kind: KindByte, u8: byte(v)}, nil
}

// NewGlyph constructs a glyph (Unicode scalar value) Value. Rejects
// surrogates and code points beyond U+10FFFF per spec.
func NewGlyph(r rune) (Value, error) {
	if r < 0 || (r >= 0xD800 && r <= 0xDFFF) || r > 0x10FFFF {
		return Value{}, fmt.Errorf("invalid glyph: U+%X", r)
	}
	return Value{Kind: KindGlyph, gl: r}, nil
}

// Bool returns the bool payload; callers must check Kind first.
func (v Value) Bool() bool { return v.b }

// Int returns the int payload.
func (v Value) Int() int64 { return v.i }

// Float returns the float payload.
func (v Value) Float() float64 { return v.f }

// Byte returns the byte payload.
func (v Value) Byte() byte { return v.u8 }

// Glyph returns the glyph payload.
func (v Value) Glyph() rune { return v.gl }

// IsNaN reports whether a KindFloat value holds NaN.
func (v Value) IsNaN() bool { return v.Kind == KindFloat && math.IsNaN(v.f) }

// Retain increments the reference count and returns v for chaining, e.g.
// `dst = Retain(src)`.
func Retain(v Value) Value {
	if v.rc != nil {
		atomic.AddInt64(v.rc, 1)
	}
	return v
}

// Release decrements the reference count, freeing the payload's nested
// references when it reaches zero. Releasing a scalar or void Value is a
// no-op.
func Release(v Value) {
	if v.rc == nil {
		return
	}
	if atomic.AddInt64(v.rc, -1) == 0 {
		if rc, ok := v.ref.(refCounted); ok {
			rc.release()
		}
	}
}

// RefCount reports the current reference count, or 0 for values that do
// not carry one (scalars, void).
func (v Value) RefCount() int64 {
	if v.rc == nil {
		return 0
	}
	return atomic.LoadInt64(v.rc)
}

// Equal implements per-kind equality: byte-exact for scalars and strings,
// identity for reference kinds.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindVoid:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt:
		return a.i == b.i
	case KindFloat:
		return a.f == b.f
	case KindByte:
		return a.u8 == b.u8
	case KindGlyph:
		return a.gl == b.gl
	case KindString, KindBytes:
		return string(a.raw) == string(b.raw)
	default:
		// Reference kinds compare by identity: same underlying payload.
		return a.ref == b.ref
	}
}

// Comparable reports whether a Value's kind supports ordering via
// Compare (scalars and strings only; objects are ordered through their
// user-defined compareTo method, handled in the interp package).
func Comparable(k Kind) bool {
	switch k {
	case KindInt, KindFloat, KindByte, KindGlyph, KindBool, KindString:
		return true
	default:
		return false
	}
}

// Compare orders two Values of the same comparable kind. NaN compares
// greater than every non-NaN float (and equal to NaN), giving sort a
// total, deterministic order.
func Compare(a, b Value) (int, error) {
	if a.Kind != b.Kind {
		return 0, fmt.Errorf("cannot compare %s and %s", a.Kind, b.Kind)
	}
	switch a.Kind {
	case KindInt:
		return cmpInt64(a.i, b.i), nil
	case KindByte:
		return cmpInt64(int64(a.u8), int64(b.u8)), nil
	case KindGlyph:
		return cmpInt64(int64(a.gl), int64(b.gl)), nil
	case KindBool:
		return cmpInt64(b2i(a.b), b2i(b.b)), nil
	case KindFloat:
		return cmpFloat(a.f, b.f), nil
	case KindString:
		return cmpBytes(a.raw, b.raw), nil
	default:
		return 0, fmt.Errorf("kind %s is not orderable", a.Kind)
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1
	case bNaN:
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return cmpInt64(int64(len(a)), int64(len(b)))
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
