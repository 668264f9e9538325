package interp_test

import (
	"bytes"
	"io"
	"math"
	"os"
	"testing"

	"github.com/protoscript/ps/interp"
	"github.com/protoscript/ps/ir"
	"github.com/protoscript/ps/value"

	_ "github.com/protoscript/ps/modules/psmath"
)

func load(t *testing.T, src string) *ir.Module {
	t.Helper()
	mod, diags, err := ir.Load([]byte(src))
	if err != nil {
		t.Fatalf("ir.Load: %s", err)
	}
	for _, d := range diags {
		t.Fatalf("unexpected diagnostic: %s", d.String())
	}
	return mod
}

func TestHelloWorld(t *testing.T) {
	const src = `{
		"ir_version": "1.0.0",
		"format": "ProtoScriptIR",
		"module": {
			"functions": [{
				"name": "main",
				"returnType": "void",
				"blocks": [{
					"label": "entry",
					"instrs": [
						{"op": "const", "dst": "t0", "literalType": "string", "value": "hello, world"},
						{"op": "call_builtin_print", "src": "t0"},
						{"op": "ret_void"}
					]
				}]
			}]
		}
	}`
	mod := load(t, src)
	ctx := interp.NewContext(mod)
	defer ctx.Destroy()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %s", err)
	}
	orig := os.Stdout
	os.Stdout = w
	_, runErr := interp.New().Run(ctx, "main", nil)
	w.Close()
	os.Stdout = orig
	if runErr != nil {
		t.Fatalf("Run: %s", runErr)
	}

	var buf bytes.Buffer
	io.Copy(&buf, r)
	if got := buf.String(); got != "hello, world\n" {
		t.Fatalf("stdout = %q, want %q", got, "hello, world\n")
	}
}

func TestDivisionByZeroCaught(t *testing.T) {
	const src = `{
		"ir_version": "1.0.0",
		"format": "ProtoScriptIR",
		"module": {
			"functions": [{
				"name": "main",
				"returnType": "void",
				"blocks": [
					{
						"label": "entry",
						"instrs": [
							{"op": "const", "dst": "a", "literalType": "int", "value": "10"},
							{"op": "const", "dst": "b", "literalType": "int", "value": "0"},
							{"op": "push_handler", "target": "handler"},
							{"op": "check_div_zero", "divisor": "b"},
							{"op": "bin_op", "dst": "c", "left": "a", "right": "b", "operator": "/"},
							{"op": "pop_handler"},
							{"op": "jump", "target": "done"}
						]
					},
					{
						"label": "handler",
						"instrs": [
							{"op": "get_exception", "dst": "e"},
							{"op": "ret_void"}
						]
					},
					{
						"label": "done",
						"instrs": [{"op": "ret_void"}]
					}
				]
			}]
		}
	}`
	mod := load(t, src)
	ctx := interp.NewContext(mod)
	defer ctx.Destroy()

	if _, err := interp.New().Run(ctx, "main", nil); err != nil {
		t.Fatalf("Run: expected the try handler to swallow the exception, got %s", err)
	}
}

func TestViewInvalidationUnhandled(t *testing.T) {
	const src = `{
		"ir_version": "1.0.0",
		"format": "ProtoScriptIR",
		"module": {
			"functions": [{
				"name": "main",
				"returnType": "void",
				"blocks": [{
					"label": "entry",
					"instrs": [
						{"op": "const", "dst": "n0", "literalType": "int", "value": "1"},
						{"op": "make_list", "dst": "lst", "items": ["n0"], "type": "int"},
						{"op": "make_view", "dst": "v", "source": "lst"},
						{"op": "call_method_static", "dst": "_", "receiver": "lst", "method": "push", "args": ["n0"]},
						{"op": "check_view_bounds", "source": "v"},
						{"op": "ret_void"}
					]
				}]
			}]
		}
	}`
	mod := load(t, src)
	ctx := interp.NewContext(mod)
	defer ctx.Destroy()

	_, err := interp.New().Run(ctx, "main", nil)
	uw, ok := err.(*interp.Unwind)
	if !ok {
		t.Fatalf("Run: expected *interp.Unwind, got %T (%v)", err, err)
	}
	if code := value.ExceptionCode(uw.Exception); code != "R1012" {
		t.Fatalf("exception code = %q, want R1012", code)
	}
}

func TestUnhandledUserException(t *testing.T) {
	const src = `{
		"ir_version": "1.0.0",
		"format": "ProtoScriptIR",
		"module": {
			"functions": [{
				"name": "main",
				"returnType": "void",
				"blocks": [{
					"label": "entry",
					"instrs": [
						{"op": "make_object", "dst": "e", "proto": "MyError"},
						{"op": "throw", "src": "e"}
					]
				}]
			}],
			"prototypes": [
				{"name": "MyError", "parent": "Exception"}
			]
		}
	}`
	mod := load(t, src)
	ctx := interp.NewContext(mod)
	defer ctx.Destroy()

	_, err := interp.New().Run(ctx, "main", nil)
	uw, ok := err.(*interp.Unwind)
	if !ok {
		t.Fatalf("Run: expected *interp.Unwind, got %T (%v)", err, err)
	}
	if name := value.ExceptionTypeName(uw.Exception); name != "MyError" {
		t.Fatalf("exception type = %q, want MyError", name)
	}

	pending := ctx.PendingException()
	if pending.Kind != value.KindException {
		t.Fatalf("Context did not record the escaped exception as pending")
	}
}

func TestListSortSumScenario2(t *testing.T) {
	const src = `{
		"ir_version": "1.0.0",
		"format": "ProtoScriptIR",
		"module": {
			"functions": [{
				"name": "main",
				"returnType": "void",
				"blocks": [
					{
						"label": "entry",
						"instrs": [
							{"op": "const", "dst": "n0", "literalType": "int", "value": "3"},
							{"op": "const", "dst": "n1", "literalType": "int", "value": "1"},
							{"op": "const", "dst": "n2", "literalType": "int", "value": "4"},
							{"op": "const", "dst": "n3", "literalType": "int", "value": "1"},
							{"op": "const", "dst": "n4", "literalType": "int", "value": "5"},
							{"op": "const", "dst": "n5", "literalType": "int", "value": "9"},
							{"op": "const", "dst": "n6", "literalType": "int", "value": "2"},
							{"op": "const", "dst": "n7", "literalType": "int", "value": "6"},
							{"op": "const", "dst": "n8", "literalType": "int", "value": "5"},
							{"op": "const", "dst": "n9", "literalType": "int", "value": "3"},
							{"op": "const", "dst": "n10", "literalType": "int", "value": "5"},
							{"op": "make_list", "dst": "lst", "items": ["n0","n1","n2","n3","n4","n5","n6","n7","n8","n9","n10"], "type": "int"},
							{"op": "call_method_static", "dst": "_", "receiver": "lst", "method": "sort", "args": []},
							{"op": "var_decl", "dst": "sum", "type": "int"},
							{"op": "iter_begin", "dst": "it", "source": "lst", "mode": "of"},
							{"op": "jump", "target": "check"}
						]
					},
					{
						"label": "check",
						"instrs": [
							{"op": "branch_iter_has_next", "iter": "it", "then": "body", "else": "done"}
						]
					},
					{
						"label": "body",
						"instrs": [
							{"op": "iter_next", "dst": "item", "iter": "it"},
							{"op": "load_var", "dst": "curSum", "name": "sum"},
							{"op": "bin_op", "dst": "nextSum", "left": "curSum", "right": "item", "operator": "+"},
							{"op": "store_var", "name": "sum", "src": "nextSum"},
							{"op": "jump", "target": "check"}
						]
					},
					{
						"label": "done",
						"instrs": [
							{"op": "load_var", "dst": "result", "name": "sum"},
							{"op": "call_builtin_print", "src": "result"},
							{"op": "ret_void"}
						]
					}
				]
			}]
		}
	}`
	mod := load(t, src)
	ctx := interp.NewContext(mod)
	defer ctx.Destroy()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %s", err)
	}
	orig := os.Stdout
	os.Stdout = w
	_, runErr := interp.New().Run(ctx, "main", nil)
	w.Close()
	os.Stdout = orig
	if runErr != nil {
		t.Fatalf("Run: %s", runErr)
	}

	var buf bytes.Buffer
	io.Copy(&buf, r)
	if got := buf.String(); got != "44\n" {
		t.Fatalf("stdout = %q, want %q", got, "44\n")
	}
}

func TestNativeMathSqrt(t *testing.T) {
	const src = `{
		"ir_version": "1.0.0",
		"format": "ProtoScriptIR",
		"module": {
			"functions": [{
				"name": "main",
				"returnType": "float",
				"blocks": [{
					"label": "entry",
					"instrs": [
						{"op": "const", "dst": "t0", "literalType": "float", "value": "2.0"},
						{"op": "call_static", "dst": "r", "callee": "Math.sqrt", "args": ["t0"]},
						{"op": "ret", "src": "r"}
					]
				}]
			}]
		}
	}`
	mod := load(t, src)
	ctx := interp.NewContext(mod)
	defer ctx.Destroy()

	result, err := interp.New().Run(ctx, "main", nil)
	if err != nil {
		t.Fatalf("Run: %s", err)
	}
	if result.Kind != value.KindFloat {
		t.Fatalf("result kind = %s, want float", result.Kind)
	}
	if got, want := result.Float(), math.Sqrt(2.0); math.Abs(got-want) > 1e-12 {
		t.Fatalf("Math.sqrt(2.0) = %v, want %v", got, want)
	}
}
