package interp

import (
	"github.com/protoscript/ps/ir"
	"github.com/protoscript/ps/value"
)

// Frame is one function invocation's state: separate vars/temps
// namespaces addressed by the IR's operand names, a try-handler label
// stack, the most recently caught or thrown exception, and the current
// source location used to annotate raised exceptions.
type Frame struct {
	fn    *ir.Function
	vars  map[string]value.Value
	temps map[string]value.Value

	tryStack      []string
	lastException value.Value

	curFile         string
	curLine, curCol int
}

func newFrame(fn *ir.Function) *Frame {
	return &Frame{
		fn:            fn,
		vars:          map[string]value.Value{},
		temps:         map[string]value.Value{},
		lastException: value.Void,
	}
}

// release drops every Value this frame still owns, on normal return or on
// unwind past it.
func (f *Frame) release() {
	for _, v := range f.vars {
		value.Release(v)
	}
	for _, v := range f.temps {
		value.Release(v)
	}
	if f.lastException.Kind == value.KindException {
		value.Release(f.lastException)
	}
}

// get resolves an operand name against temps first, then vars — the IR
// does not distinguish the two namespaces when naming an operand; an
// instruction's operand is just a string referring to a local temporary,
// a variable, or a literal IR identifier.
func (f *Frame) get(name string) (value.Value, bool) {
	if name == "" {
		return value.Void, false
	}
	if v, ok := f.temps[name]; ok {
		return v, true
	}
	if v, ok := f.vars[name]; ok {
		return v, true
	}
	return value.Void, false
}

// setTemp binds an SSA-style temporary, releasing any previous binding of
// the same name (blocks may legally rebind a temp across a loop backedge
// even though straight-line SSA would not).
func (f *Frame) setTemp(name string, v value.Value) {
	if name == "" {
		return
	}
	if old, ok := f.temps[name]; ok {
		value.Release(old)
	}
	f.temps[name] = value.Retain(v)
}

// declareVar binds a declared variable (or parameter) to v, releasing any
// previous binding of the same name.
func (f *Frame) declareVar(name string, v value.Value) {
	if old, ok := f.vars[name]; ok {
		value.Release(old)
	}
	f.vars[name] = value.Retain(v)
}

// setVar rebinds an existing (or new) variable, as by store_var.
func (f *Frame) setVar(name string, v value.Value) {
	f.declareVar(name, v)
}

func (f *Frame) pushHandler(label string) { f.tryStack = append(f.tryStack, label) }

// popHandler pops and returns the top handler label, and whether the
// stack was non-empty.
func (f *Frame) popHandler() (string, bool) {
	n := len(f.tryStack)
	if n == 0 {
		return "", false
	}
	label := f.tryStack[n-1]
	f.tryStack = f.tryStack[:n-1]
	return label, true
}

func (f *Frame) setLastException(e value.Value) {
	if f.lastException.Kind == value.KindException {
		value.Release(f.lastException)
	}
	f.lastException = value.Retain(e)
}

// zeroValue returns the declared-type zero value for var_decl:
// bool→false, int→0, float→0.0, byte→0, glyph→0, string→""; reference
// types start unbound.
func zeroValue(typeName string) value.Value {
	switch typeName {
	case "bool":
		return value.NewBool(false)
	case "int":
		return value.NewInt(0)
	case "float":
		return value.NewFloat(0)
	case "byte":
		v, _ := value.NewByte(0)
		return v
	case "glyph":
		v, _ := value.NewGlyph(0)
		return v
	case "string":
		v, _ := value.NewStringFromGo("")
		return v
	default:
		// Reference types (list/map/object/view/...) start unbound: void
		// is the observable "nothing here yet" marker until first assign.
		return value.Void
	}
}
