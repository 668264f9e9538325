// Package modreg implements the ProtoScript native-module registry and
// ABI: at most one resident copy of any named module per context,
// loaded on demand from a MODULE_PATH-style search path, with an
// ABI-version handshake against the process's own ABI version.
package modreg

import "github.com/protoscript/ps/value"

// ABIVersion is the native-module ABI version this process implements.
// A loaded module's reported version must equal this exactly.
const ABIVersion = 1

// FuncFlags is the native function descriptor's flags bitfield.
type FuncFlags uint32

const (
	// FlagVariadic marks a native function whose last parameter accepts a
	// variable number of arguments, mirroring the IR-level variadic
	// marker on function parameters.
	FlagVariadic FuncFlags = 1 << iota
	// FlagThrows marks a native function that may leave a pending
	// exception on the Context rather than (or in addition to) setting
	// the last-error slot.
	FlagThrows
)

// NativeContext is the minimal surface a native function needs from the
// interpreter's Context, factored as an interface here so this package
// does not import interp (which itself imports modreg).
type NativeContext interface {
	// Root/Unroot pin a Value against release while only native code
	// holds a reference to it, via the Context's handle-root stack.
	Root(v value.Value)
	Unroot(v value.Value)
}

// NativeFunc is a function pointer in a module descriptor: name, arity
// (or variadic marker via Flags), return-type tag, optional
// parameter-type tags, a flags bitfield, and the Go function itself. It
// receives the Context and an evaluated argument array, and returns a
// value plus a success/error status via the (Value, error) result —
// the idiomatic Go shape for the ABI's out-parameter-plus-status
// calling convention.
type NativeFunc struct {
	Name       string
	Arity      int // -1 when Flags&FlagVariadic is set
	ReturnType string
	ParamTypes []string
	Flags      FuncFlags
	Fn         func(ctx NativeContext, args []value.Value) (value.Value, error)
}

// NativeProto augments the module descriptor with a prototype the native
// module wants to expose to IR; Descriptor.FindProto looks one up by
// name. The interp package does not consult native prototypes: its
// prototype lookups use only the module-local IR.
type NativeProto struct {
	Name    string
	Parent  string
	Sealed  bool
	Fields  []string
	Methods []string
}

// Descriptor is a loaded native module's full surface: its functions and
// any prototypes it augments the IR with.
type Descriptor struct {
	Name       string
	ABIVersion int
	Funcs      map[string]*NativeFunc
	Protos     []NativeProto
}

// Func looks up a native function by name.
func (d *Descriptor) Func(name string) (*NativeFunc, bool) {
	f, ok := d.Funcs[name]
	return f, ok
}

// FindProto looks up a prototype this module augments the IR with.
func (d *Descriptor) FindProto(name string) (*NativeProto, bool) {
	for i := range d.Protos {
		if d.Protos[i].Name == name {
			return &d.Protos[i], true
		}
	}
	return nil, false
}

// InitFunc is the signature every native module must export as
// ps_module_init: given a zeroed descriptor to fill in, it returns the
// descriptor's reported ABI version.
type InitFunc func(desc *Descriptor) int
