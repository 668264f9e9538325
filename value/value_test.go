package value

import (
	"math"
	"testing"
)

func TestRetainReleaseIdempotent(t *testing.T) {
	l := NewList([]Value{NewInt(1), NewInt(2)}, "list<int>")
	before := l.RefCount()
	l2 := Retain(l)
	Release(l2)
	if l.RefCount() != before {
		t.Errorf("retain/release pair changed refcount: got %d want %d", l.RefCount(), before)
	}
}

func TestStringUTF8RoundTrip(t *testing.T) {
	s, err := NewStringFromGo("héllo, 世界")
	if err != nil {
		t.Fatalf("NewStringFromGo: %v", err)
	}
	b := ToUtf8Bytes(s)
	s2, err := NewString(b.Bytes())
	if err != nil {
		t.Fatalf("round trip NewString: %v", err)
	}
	if string(s.Bytes()) != string(s2.Bytes()) {
		t.Errorf("round trip mismatch: %q != %q", s.Bytes(), s2.Bytes())
	}
}

func TestInvalidUTF8Rejected(t *testing.T) {
	bad := []byte{0xC0, 0x80} // overlong encoding of NUL
	if _, err := NewString(bad); err == nil {
		t.Error("expected overlong UTF-8 sequence to be rejected")
	}
	surrogate := []byte{0xED, 0xA0, 0x80} // U+D800 encoded
	if _, err := NewString(surrogate); err == nil {
		t.Error("expected surrogate encoding to be rejected")
	}
}

func TestListVersionAndViewInvalidation(t *testing.T) {
	l := NewList([]Value{NewInt(1), NewInt(2), NewInt(3)}, "list<int>")
	v0 := l.Version()
	view := NewListView(l, 0, 3, true, "view<int>")
	if !ViewValid(view) {
		t.Fatal("freshly constructed view should be valid")
	}
	Push(l, NewInt(4))
	if l.Version() <= v0 {
		t.Errorf("expected version to strictly increase, got %d from %d", l.Version(), v0)
	}
	if ViewValid(view) {
		t.Error("view should be invalidated after source mutation")
	}
	if _, err := ViewGet(view, 0); err == nil {
		t.Error("expected RUNTIME_VIEW_INVALID on use of invalidated view")
	}
}

func TestMapInsertionOrderPreservedOnUpdate(t *testing.T) {
	m := NewMap()
	ka, _ := NewStringFromGo("a")
	kb, _ := NewStringFromGo("b")
	kc, _ := NewStringFromGo("c")
	MapSet(m, ka, NewInt(1))
	MapSet(m, kb, NewInt(2))
	MapSet(m, kc, NewInt(3))
	MapSet(m, ka, NewInt(100)) // update existing key: must not reorder

	keys := MapKeys(m)
	want := []string{"a", "b", "c"}
	for i, k := range keys {
		if string(k.Bytes()) != want[i] {
			t.Errorf("key order[%d] = %q, want %q", i, k.Bytes(), want[i])
		}
	}
	got, err := MapGet(m, ka)
	if err != nil || got.Int() != 100 {
		t.Errorf("MapGet(a) = %v, %v; want 100, nil", got, err)
	}
}

func TestMapMissingKeyRaises(t *testing.T) {
	m := NewMap()
	k, _ := NewStringFromGo("missing")
	if _, err := MapGet(m, k); err == nil {
		t.Error("expected missing key error")
	}
}

func TestSortStableByteLexicographic(t *testing.T) {
	mk := func(s string) Value { v, _ := NewStringFromGo(s); return v }
	l := NewList([]Value{mk("banana"), mk("apple"), mk("cherry"), mk("apple")}, "list<string>")
	err := Sort(l, func(a, b Value) (int, error) { return Compare(a, b) })
	if err != nil {
		t.Fatalf("Sort: %v", err)
	}
	items := Items(l)
	want := []string{"apple", "apple", "banana", "cherry"}
	for i, it := range items {
		if string(it.Bytes()) != want[i] {
			t.Errorf("items[%d] = %q, want %q", i, it.Bytes(), want[i])
		}
	}
}

func TestSortFloatNaNSortsLast(t *testing.T) {
	l := NewList([]Value{
		NewFloat(2), NewFloat(math.NaN()), NewFloat(1),
	}, "list<float>")
	if err := Sort(l, func(a, b Value) (int, error) { return Compare(a, b) }); err != nil {
		t.Fatalf("Sort: %v", err)
	}
	items := Items(l)
	if !items[len(items)-1].IsNaN() {
		t.Errorf("expected NaN to sort last, got %v", items)
	}
}

func TestByteRange(t *testing.T) {
	if _, err := NewByte(256); err == nil {
		t.Error("expected byte range error for 256")
	}
	if _, err := NewByte(-1); err == nil {
		t.Error("expected byte range error for -1")
	}
	if _, err := NewByte(255); err != nil {
		t.Errorf("255 should be a valid byte: %v", err)
	}
}
