package interp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/protoscript/ps/ir"
	"github.com/protoscript/ps/modreg"
	"github.com/protoscript/ps/value"
)

// callStatic resolves callee in order: (1) module-local function, (2)
// Module.symbol native call. args have already been evaluated
// positionally; a trailing variadic parameter is packed into a
// read-only borrowed view scoped to the callee's frame.
func (in *Interp) callStatic(ctx *Context, callee string, args []value.Value) (value.Value, error) {
	if fn, ok := ctx.Module.Func(callee); ok {
		return in.invoke(ctx, fn, args)
	}
	if dot := strings.IndexByte(callee, '.'); dot >= 0 {
		modName, symbol := callee[:dot], callee[dot+1:]
		desc, err := ctx.Modules().Load(modName)
		if err != nil {
			return value.Value{}, err
		}
		nf, ok := desc.Func(symbol)
		if !ok {
			return value.Value{}, fmt.Errorf("import error: module %q has no symbol %q", modName, symbol)
		}
		return in.callNative(ctx, nf, args)
	}
	return value.Value{}, fmt.Errorf("internal: unknown callee %q", callee)
}

func (in *Interp) callNative(ctx *Context, nf *modreg.NativeFunc, args []value.Value) (value.Value, error) {
	if nf.Flags&modreg.FlagVariadic == 0 && nf.Arity >= 0 && len(args) != nf.Arity {
		return value.Value{}, fmt.Errorf("type error: %s expects %d arguments, got %d", nf.Name, nf.Arity, len(args))
	}
	return nf.Fn(ctx, args)
}

// invoke runs fn as a fresh frame, packing a trailing variadic parameter
// into a borrowed read-only view.
func (in *Interp) invoke(ctx *Context, fn *ir.Function, args []value.Value) (value.Value, error) {
	f := newFrame(fn)
	defer f.release()

	fixed := fn.Params
	variadic := false
	if n := len(fixed); n > 0 && fixed[n-1].Variadic {
		variadic = true
		fixed = fixed[:n-1]
	}
	for i, p := range fixed {
		if i < len(args) {
			f.declareVar(p.Name, args[i])
		} else {
			f.declareVar(p.Name, zeroValue(p.Type))
		}
	}
	if variadic {
		name := fn.Params[len(fn.Params)-1].Name
		rest := args[min(len(fixed), len(args)):]
		view := value.NewBorrowedView(rest, "")
		f.declareVar(name, view)
		defer value.Release(view)
	}

	return in.run(ctx, f)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// callMethodStatic dispatches on the receiver's dynamic tag: object/
// exception member calls are expected to already be lowered by the
// front end to call_static against a mangled name, so this only
// implements the primitive-kind method surface (list.sort is the one
// exception, since it needs to call back into user-defined compareTo
// methods on object elements).
func (in *Interp) callMethodStatic(ctx *Context, recv value.Value, method string, args []value.Value) (value.Value, error) {
	switch recv.Kind {
	case value.KindInt:
		return intMethod(recv, method, args)
	case value.KindFloat:
		return floatMethod(recv, method, args)
	case value.KindByte:
		return byteMethod(recv, method)
	case value.KindGlyph:
		return glyphMethod(recv, method)
	case value.KindString:
		return stringMethod(recv, method, args)
	case value.KindBytes:
		return bytesMethod(recv, method)
	case value.KindList:
		return in.listMethod(ctx, recv, method, args)
	case value.KindMap:
		return mapMethod(recv, method, args)
	case value.KindView:
		return viewMethod(recv, method, args)
	case value.KindFile:
		return fileMethod(recv, method, args)
	case value.KindException:
		return exceptionMethod(recv, method, args)
	default:
		return value.Value{}, fmt.Errorf("type error: %s has no method %q", recv.Kind, method)
	}
}

func intMethod(recv value.Value, method string, args []value.Value) (value.Value, error) {
	switch method {
	case "toFloat":
		return value.NewFloat(float64(recv.Int())), nil
	case "toString":
		return value.NewStringFromGo(strconv.FormatInt(recv.Int(), 10))
	default:
		return value.Value{}, fmt.Errorf("type error: int has no method %q", method)
	}
}

func floatMethod(recv value.Value, method string, args []value.Value) (value.Value, error) {
	switch method {
	case "toInt":
		return value.NewInt(int64(recv.Float())), nil
	case "isNaN":
		return value.NewBool(recv.IsNaN()), nil
	case "toString":
		return value.NewStringFromGo(strconv.FormatFloat(recv.Float(), 'g', -1, 64))
	default:
		return value.Value{}, fmt.Errorf("type error: float has no method %q", method)
	}
}

func byteMethod(recv value.Value, method string) (value.Value, error) {
	switch method {
	case "toInt":
		return value.NewInt(int64(recv.Byte())), nil
	case "toString":
		return value.NewStringFromGo(strconv.Itoa(int(recv.Byte())))
	default:
		return value.Value{}, fmt.Errorf("type error: byte has no method %q", method)
	}
}

func glyphMethod(recv value.Value, method string) (value.Value, error) {
	switch method {
	case "toInt":
		return value.NewInt(int64(recv.Glyph())), nil
	case "toUtf8Bytes":
		s, err := value.GlyphToUtf8(recv)
		if err != nil {
			return value.Value{}, err
		}
		return value.ToUtf8Bytes(s), nil
	default:
		return value.Value{}, fmt.Errorf("type error: glyph has no method %q", method)
	}
}

func stringMethod(recv value.Value, method string, args []value.Value) (value.Value, error) {
	switch method {
	case "length":
		return value.NewInt(int64(recv.GlyphLen())), nil
	case "toUtf8Bytes":
		return value.ToUtf8Bytes(recv), nil
	case "toUpperASCII":
		return value.ToUpperASCII(recv)
	case "toLowerASCII":
		return value.ToLowerASCII(recv)
	case "startsWith":
		if len(args) != 1 {
			return value.Value{}, fmt.Errorf("type error: startsWith expects 1 argument")
		}
		return value.NewBool(value.StartsWith(recv, args[0])), nil
	case "endsWith":
		if len(args) != 1 {
			return value.Value{}, fmt.Errorf("type error: endsWith expects 1 argument")
		}
		return value.NewBool(value.EndsWith(recv, args[0])), nil
	case "toString":
		return recv, nil
	default:
		return value.Value{}, fmt.Errorf("type error: string has no method %q", method)
	}
}

func bytesMethod(recv value.Value, method string) (value.Value, error) {
	switch method {
	case "length":
		return value.NewInt(int64(recv.ByteLen())), nil
	default:
		return value.Value{}, fmt.Errorf("type error: bytes has no method %q", method)
	}
}

func (in *Interp) listMethod(ctx *Context, recv value.Value, method string, args []value.Value) (value.Value, error) {
	switch method {
	case "length":
		return value.NewInt(int64(recv.Len())), nil
	case "push":
		if len(args) != 1 {
			return value.Value{}, fmt.Errorf("type error: push expects 1 argument")
		}
		value.Push(recv, args[0])
		return value.Void, nil
	case "pop", "removeLast":
		return value.Pop(recv)
	case "reverse":
		value.Reverse(recv)
		return value.Void, nil
	case "sort":
		err := value.Sort(recv, func(a, b value.Value) (int, error) {
			return in.compareElements(ctx, a, b)
		})
		if err != nil {
			return value.Value{}, err
		}
		return value.Void, nil
	default:
		return value.Value{}, fmt.Errorf("type error: list has no method %q", method)
	}
}

// compareElements orders two list elements for sort: scalar kinds compare
// directly via value.Compare, object elements dispatch to their
// prototype's compareTo method resolved through the inheritance chain.
func (in *Interp) compareElements(ctx *Context, a, b value.Value) (int, error) {
	if value.Comparable(a.Kind) {
		return value.Compare(a, b)
	}
	if a.Kind == value.KindObject {
		fn, ok := in.resolveUserMethod(ctx, a.ProtoName(), "compareTo")
		if !ok {
			return 0, fmt.Errorf("type error: %s has no compareTo method", a.ProtoName())
		}
		result, err := in.invoke(ctx, fn, []value.Value{a, b})
		if err != nil {
			return 0, err
		}
		if result.Kind != value.KindInt {
			return 0, fmt.Errorf("type error: compareTo must return int, got %s", result.Kind)
		}
		return int(result.Int()), nil
	}
	return 0, fmt.Errorf("type error: %s is not orderable", a.Kind)
}

// resolveUserMethod looks up method against protoName's prototype chain,
// keyed the same way callStatic keys native module symbols: "Proto.method".
func (in *Interp) resolveUserMethod(ctx *Context, protoName, method string) (*ir.Function, bool) {
	for _, name := range ctx.Module.ProtoChain(protoName) {
		if fn, ok := ctx.Module.Func(name + "." + method); ok {
			return fn, true
		}
	}
	return nil, false
}

func mapMethod(recv value.Value, method string, args []value.Value) (value.Value, error) {
	switch method {
	case "length":
		return value.NewInt(int64(value.MapLen(recv))), nil
	case "containsKey":
		if len(args) != 1 {
			return value.Value{}, fmt.Errorf("type error: containsKey expects 1 argument")
		}
		return value.NewBool(value.MapHas(recv, args[0])), nil
	case "remove":
		if len(args) != 1 {
			return value.Value{}, fmt.Errorf("type error: remove expects 1 argument")
		}
		return value.NewBool(value.MapRemove(recv, args[0])), nil
	default:
		return value.Value{}, fmt.Errorf("type error: map has no method %q", method)
	}
}

func viewMethod(recv value.Value, method string, args []value.Value) (value.Value, error) {
	switch method {
	case "length":
		if !value.ViewValid(recv) {
			return value.Value{}, fmt.Errorf("view invalidated")
		}
		return value.NewInt(int64(value.ViewLen(recv))), nil
	default:
		return value.Value{}, fmt.Errorf("type error: view has no method %q", method)
	}
}

func fileMethod(recv value.Value, method string, args []value.Value) (value.Value, error) {
	switch method {
	case "close":
		if err := value.FileClose(recv); err != nil {
			return value.Value{}, err
		}
		return value.Void, nil
	default:
		return value.Value{}, fmt.Errorf("type error: file has no method %q", method)
	}
}

func exceptionMethod(recv value.Value, method string, args []value.Value) (value.Value, error) {
	switch method {
	case "toString":
		return value.NewStringFromGo(value.ExceptionCode(recv) + " " + value.ExceptionCategory(recv) + ": " + value.ExceptionMessage(recv))
	default:
		return value.Value{}, fmt.Errorf("type error: exception has no method %q", method)
	}
}

// toDisplayString renders v for call_builtin_print / call_builtin_tostring.
// Reference kinds print a short tag; the front end is expected to lower
// user-defined toString calls to call_static against a mangled
// Proto.toString instead of relying on this default.
func toDisplayString(v value.Value) string {
	switch v.Kind {
	case value.KindVoid:
		return "void"
	case value.KindBool:
		if v.Bool() {
			return "true"
		}
		return "false"
	case value.KindInt:
		return strconv.FormatInt(v.Int(), 10)
	case value.KindFloat:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case value.KindByte:
		return strconv.Itoa(int(v.Byte()))
	case value.KindGlyph:
		return string(v.Glyph())
	case value.KindString:
		return string(v.Bytes())
	case value.KindBytes:
		return fmt.Sprintf("bytes(%d)", v.ByteLen())
	case value.KindList:
		return fmt.Sprintf("list(%d)", v.Len())
	case value.KindMap:
		return fmt.Sprintf("map(%d)", value.MapLen(v))
	case value.KindObject:
		return fmt.Sprintf("object(%s)", v.ProtoName())
	case value.KindView:
		return fmt.Sprintf("view(%d)", value.ViewLen(v))
	case value.KindException:
		return value.ExceptionTypeName(v) + ": " + value.ExceptionMessage(v)
	case value.KindFile:
		return fmt.Sprintf("file(%s)", value.FilePath(v))
	case value.KindGroup:
		return fmt.Sprintf("group(%s)", value.GroupDesc(v).Name)
	default:
		return "<" + v.Kind.String() + ">"
	}
}
