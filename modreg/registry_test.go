package modreg

import (
	"testing"

	"github.com/protoscript/ps/value"
)

func TestLoadBuiltin(t *testing.T) {
	RegisterBuiltin("TestRegistryEcho", func(desc *Descriptor) int {
		desc.Funcs = map[string]*NativeFunc{
			"echo": {Name: "echo", Arity: 1, Fn: func(_ NativeContext, args []value.Value) (value.Value, error) {
				return args[0], nil
			}},
		}
		return ABIVersion
	})

	r := NewRegistry()
	desc, err := r.Load("TestRegistryEcho")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := desc.Func("echo"); !ok {
		t.Fatalf("loaded descriptor has no echo function")
	}

	again, err := r.Load("TestRegistryEcho")
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if again != desc {
		t.Fatalf("Load did not return the resident descriptor on the second call")
	}
}

func TestLoadABIVersionMismatch(t *testing.T) {
	RegisterBuiltin("TestRegistryBadABI", func(desc *Descriptor) int {
		return ABIVersion + 1
	})

	r := NewRegistry()
	if _, err := r.Load("TestRegistryBadABI"); err == nil {
		t.Fatalf("Load: expected an ABI version mismatch error")
	}
}

func TestLoadNotFound(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Load("NoSuchModule"); err == nil {
		t.Fatalf("Load: expected an error for an unregistered, unfindable module")
	}
}

func TestCloseAllIgnoresBuiltins(t *testing.T) {
	RegisterBuiltin("TestRegistryCloseAll", func(desc *Descriptor) int {
		desc.Funcs = map[string]*NativeFunc{}
		return ABIVersion
	})

	r := NewRegistry()
	if _, err := r.Load("TestRegistryCloseAll"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	r.CloseAll()
	if len(r.closers) != 0 {
		t.Fatalf("CloseAll: closers not cleared")
	}
}
