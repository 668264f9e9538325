package interp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/protoscript/ps/ir"
	"github.com/protoscript/ps/value"
)

// Interp is the stateless instruction-dispatch engine: all mutable state
// for one call lives in the Context and the current Frame. Execution is
// single-threaded and purely synchronous.
type Interp struct{}

// New constructs an Interp.
func New() *Interp { return &Interp{} }

// Unwind is returned by invoke when an exception escapes a frame with no
// try handler left to catch it. A calling frame passes the same exception
// on to its own handler, or returns it unchanged; when it escapes main,
// Run attaches it to the Context and the embedding CLI formats it.
type Unwind struct {
	Exception value.Value
}

func (u *Unwind) Error() string {
	return fmt.Sprintf("%s:%d:%d %s %s: %s",
		value.ExceptionFile(u.Exception), value.ExceptionLine(u.Exception), value.ExceptionCol(u.Exception),
		value.ExceptionCode(u.Exception), value.ExceptionCategory(u.Exception), value.ExceptionMessage(u.Exception))
}

// Run looks up funcName in ctx.Module and executes it as the top-level
// invocation, recording an escaped exception on ctx before returning it.
func (in *Interp) Run(ctx *Context, funcName string, args []value.Value) (value.Value, error) {
	fn, ok := ctx.Module.Func(funcName)
	if !ok {
		return value.Value{}, fmt.Errorf("internal: no function %q", funcName)
	}
	result, err := in.invoke(ctx, fn, args)
	if uw, ok := err.(*Unwind); ok {
		ctx.SetPendingException(uw.Exception)
	}
	return result, err
}

// run executes fn's blocks starting at its entry block until a
// terminator returns, or the exception escapes f entirely.
func (in *Interp) run(ctx *Context, f *Frame) (value.Value, error) {
	if len(f.fn.Blocks) == 0 {
		return value.Void, nil
	}
	blockIdx := 0
	ip := 0
	ctx.tracef("call %s", f.fn.Name)

	for {
		blk := f.fn.Blocks[blockIdx]
		if ip >= len(blk.Instrs) {
			return value.Value{}, fmt.Errorf("internal: block %q fell off the end without a terminator", blk.Label)
		}
		instr := &blk.Instrs[ip]
		if instr.File != "" {
			f.curFile, f.curLine, f.curCol = instr.File, instr.Line, instr.Col
		}
		if ctx.TraceIR && ctx.Logger != nil {
			ctx.Logger.Printf("%s/%s[%d] %s", f.fn.Name, blk.Label, ip, instr.Op)
		}

		result, ctrl, err := in.step(ctx, f, instr)
		if err != nil {
			var exc value.Value
			if uw, ok := err.(*Unwind); ok {
				exc = uw.Exception
			} else {
				exc = materializeError(ctx, f, err)
			}
			label, handled := f.popHandler()
			if !handled {
				return value.Value{}, &Unwind{Exception: exc}
			}
			f.setLastException(exc)
			nb, ok := blockIndexOf(f.fn, label)
			if !ok {
				return value.Value{}, fmt.Errorf("internal: unknown handler label %q", label)
			}
			blockIdx, ip = nb, 0
			continue
		}

		switch ctrl.kind {
		case ctrlNext:
			ip++
		case ctrlJump:
			nb, ok := blockIndexOf(f.fn, ctrl.label)
			if !ok {
				return value.Value{}, fmt.Errorf("internal: unknown block label %q", ctrl.label)
			}
			blockIdx, ip = nb, 0
		case ctrlReturn:
			return result, nil
		case ctrlThrow:
			label, handled := f.popHandler()
			if !handled {
				return value.Value{}, &Unwind{Exception: ctrl.exception}
			}
			f.setLastException(ctrl.exception)
			nb, ok := blockIndexOf(f.fn, label)
			if !ok {
				return value.Value{}, fmt.Errorf("internal: unknown handler label %q", label)
			}
			blockIdx, ip = nb, 0
		}
	}
}

func blockIndexOf(fn *ir.Function, label string) (int, bool) {
	for i, b := range fn.Blocks {
		if b.Label == label {
			return i, true
		}
	}
	return 0, false
}

type ctrlKind uint8

const (
	ctrlNext ctrlKind = iota
	ctrlJump
	ctrlReturn
	ctrlThrow
)

type control struct {
	kind      ctrlKind
	label     string
	exception value.Value
}

// step executes one instruction, returning the value it produced (its
// dst value, or for ret the value being returned), a control-flow
// directive, and an error for the failure-injection path (handled
// uniformly by run's try-stack logic above).
func (in *Interp) step(ctx *Context, f *Frame, instr *ir.Instr) (value.Value, control, error) {
	switch instr.Op {
	case "var_decl":
		f.declareVar(instr.Dst, zeroValue(instr.Type))
		return value.Void, control{kind: ctrlNext}, nil

	case "const":
		v, err := evalConst(ctx, instr)
		if err != nil {
			return value.Value{}, control{}, err
		}
		f.setTemp(instr.Dst, v)
		return v, control{kind: ctrlNext}, nil

	case "copy":
		v, ok := f.get(instr.Src)
		if !ok {
			return value.Value{}, control{}, fmt.Errorf("internal: undefined operand %q", instr.Src)
		}
		f.setTemp(instr.Dst, v)
		return v, control{kind: ctrlNext}, nil

	case "load_var":
		v, ok := f.get(instr.Name)
		if !ok {
			return value.Value{}, control{}, fmt.Errorf("internal: undefined variable %q", instr.Name)
		}
		f.setTemp(instr.Dst, v)
		return v, control{kind: ctrlNext}, nil

	case "store_var":
		v, ok := f.get(instr.Src)
		if !ok {
			return value.Value{}, control{}, fmt.Errorf("internal: undefined operand %q", instr.Src)
		}
		f.setVar(instr.Name, v)
		return value.Void, control{kind: ctrlNext}, nil

	case "bin_op":
		l, ok1 := f.get(instr.Left)
		r, ok2 := f.get(instr.Right)
		if !ok1 || !ok2 {
			return value.Value{}, control{}, fmt.Errorf("internal: undefined operand in bin_op")
		}
		v, err := binOp(instr.Operator, l, r)
		if err != nil {
			return value.Value{}, control{}, err
		}
		f.setTemp(instr.Dst, v)
		return v, control{kind: ctrlNext}, nil

	case "unary_op":
		s, ok := f.get(instr.Src)
		if !ok {
			return value.Value{}, control{}, fmt.Errorf("internal: undefined operand %q", instr.Src)
		}
		v, err := unaryOp(instr.Operator, s)
		if err != nil {
			return value.Value{}, control{}, err
		}
		f.setTemp(instr.Dst, v)
		return v, control{kind: ctrlNext}, nil

	case "select":
		cond, ok := f.get(instr.Cond)
		if !ok || cond.Kind != value.KindBool {
			return value.Value{}, control{}, fmt.Errorf("type error: select condition must be bool")
		}
		thenV, ok1 := f.get(instr.ThenValue)
		elseV, ok2 := f.get(instr.ElseValue)
		if !ok1 || !ok2 {
			return value.Value{}, control{}, fmt.Errorf("internal: undefined operand in select")
		}
		v := elseV
		if cond.Bool() {
			v = thenV
		}
		f.setTemp(instr.Dst, v)
		return v, control{kind: ctrlNext}, nil

	case "check_div_zero":
		d, ok := f.get(instr.Divisor)
		if !ok {
			return value.Value{}, control{}, fmt.Errorf("internal: undefined operand %q", instr.Divisor)
		}
		if (d.Kind == value.KindInt && d.Int() == 0) || (d.Kind == value.KindFloat && d.Float() == 0) {
			return value.Value{}, control{}, fmt.Errorf("division by zero")
		}
		return value.Void, control{kind: ctrlNext}, nil

	case "check_int_overflow_unary_minus":
		s, ok := f.get(instr.Src)
		if !ok {
			return value.Value{}, control{}, fmt.Errorf("internal: undefined operand %q", instr.Src)
		}
		if s.Kind == value.KindInt && s.Int() == minInt64 {
			return value.Value{}, control{}, fmt.Errorf("integer overflow")
		}
		return value.Void, control{kind: ctrlNext}, nil

	case "check_int_overflow":
		l, ok1 := f.get(instr.Left)
		r, ok2 := f.get(instr.Right)
		if !ok1 || !ok2 || l.Kind != value.KindInt || r.Kind != value.KindInt {
			return value.Void, control{kind: ctrlNext}, nil
		}
		if checkIntOverflow(instr.Operator, l.Int(), r.Int()) {
			return value.Value{}, control{}, fmt.Errorf("integer overflow")
		}
		return value.Void, control{kind: ctrlNext}, nil

	case "check_shift_range":
		shift, ok1 := f.get(instr.Shift)
		if !ok1 || shift.Kind != value.KindInt {
			return value.Value{}, control{}, fmt.Errorf("internal: undefined shift operand")
		}
		width := int64(instr.Width)
		if width == 0 {
			width = 64
		}
		if shift.Int() < 0 || shift.Int() >= width {
			return value.Value{}, control{}, fmt.Errorf("invalid shift")
		}
		return value.Void, control{kind: ctrlNext}, nil

	case "check_index_bounds":
		src, ok1 := f.get(instr.Source)
		idx, ok2 := f.get(instr.Index)
		if !ok1 || !ok2 || idx.Kind != value.KindInt {
			return value.Value{}, control{}, fmt.Errorf("internal: undefined operand in check_index_bounds")
		}
		n, err := containerLen(src)
		if err != nil {
			return value.Value{}, control{}, err
		}
		if idx.Int() < 0 || idx.Int() >= int64(n) {
			return value.Value{}, control{}, fmt.Errorf("index out of bounds")
		}
		return value.Void, control{kind: ctrlNext}, nil

	case "check_view_bounds":
		src, ok := f.get(instr.Source)
		if !ok || src.Kind != value.KindView {
			return value.Value{}, control{}, fmt.Errorf("internal: undefined view operand")
		}
		if !value.ViewValid(src) {
			return value.Value{}, control{}, fmt.Errorf("view invalidated")
		}
		return value.Void, control{kind: ctrlNext}, nil

	case "check_map_has_key":
		m, ok1 := f.get(instr.Map)
		k, ok2 := f.get(instr.Key)
		if !ok1 || !ok2 {
			return value.Value{}, control{}, fmt.Errorf("internal: undefined operand in check_map_has_key")
		}
		if !value.MapHas(m, k) {
			return value.Value{}, control{}, fmt.Errorf("missing key")
		}
		return value.Void, control{kind: ctrlNext}, nil

	case "make_list":
		items := make([]value.Value, 0, len(instr.Items))
		for _, name := range instr.Items {
			v, ok := f.get(name)
			if !ok {
				return value.Value{}, control{}, fmt.Errorf("internal: undefined list item %q", name)
			}
			items = append(items, v)
		}
		v := value.NewList(items, instr.Type)
		f.setTemp(instr.Dst, v)
		return v, control{kind: ctrlNext}, nil

	case "make_map":
		m := value.NewMap()
		for _, p := range instr.Pairs {
			k, ok1 := f.get(p.Key)
			val, ok2 := f.get(p.Value)
			if !ok1 || !ok2 {
				value.Release(m)
				return value.Value{}, control{}, fmt.Errorf("internal: undefined map pair operand")
			}
			if err := value.MapSet(m, k, val); err != nil {
				value.Release(m)
				return value.Value{}, control{}, err
			}
		}
		f.setTemp(instr.Dst, m)
		return m, control{kind: ctrlNext}, nil

	case "make_view":
		v, err := evalMakeView(f, instr)
		if err != nil {
			return value.Value{}, control{}, err
		}
		f.setTemp(instr.Dst, v)
		return v, control{kind: ctrlNext}, nil

	case "index_get":
		src, ok1 := f.get(instr.Source)
		idx, ok2 := f.get(instr.Index)
		if !ok1 || !ok2 {
			return value.Value{}, control{}, fmt.Errorf("internal: undefined operand in index_get")
		}
		v, err := indexGet(src, idx)
		if err != nil {
			return value.Value{}, control{}, err
		}
		f.setTemp(instr.Dst, v)
		return v, control{kind: ctrlNext}, nil

	case "index_set":
		src, ok1 := f.get(instr.Source)
		idx, ok2 := f.get(instr.Index)
		val, ok3 := f.get(instr.Value)
		if !ok1 || !ok2 || !ok3 {
			return value.Value{}, control{}, fmt.Errorf("internal: undefined operand in index_set")
		}
		if err := indexSet(src, idx, val); err != nil {
			return value.Value{}, control{}, err
		}
		return value.Void, control{kind: ctrlNext}, nil

	case "member_get":
		v, err := memberGet(f, instr)
		if err != nil {
			return value.Value{}, control{}, err
		}
		f.setTemp(instr.Dst, v)
		return v, control{kind: ctrlNext}, nil

	case "member_set":
		if err := memberSet(f, instr); err != nil {
			return value.Value{}, control{}, err
		}
		return value.Void, control{kind: ctrlNext}, nil

	case "make_object":
		v, err := makeObject(ctx, f, instr)
		if err != nil {
			return value.Value{}, control{}, err
		}
		f.setTemp(instr.Dst, v)
		return v, control{kind: ctrlNext}, nil

	case "iter_begin":
		src, ok := f.get(instr.Source)
		if !ok {
			return value.Value{}, control{}, fmt.Errorf("internal: undefined operand %q", instr.Source)
		}
		mode := value.IterOf
		if instr.Mode == "in" {
			mode = value.IterIn
		}
		it := value.NewIterator(src, mode)
		f.setTemp(instr.Dst, it)
		return it, control{kind: ctrlNext}, nil

	case "branch_iter_has_next":
		it, ok := f.get(instr.Iter)
		if !ok {
			return value.Value{}, control{}, fmt.Errorf("internal: undefined operand %q", instr.Iter)
		}
		has, err := value.IterHasNext(it)
		if err != nil {
			return value.Value{}, control{}, err
		}
		label := instr.Else
		if has {
			label = instr.Then
		}
		return value.Void, control{kind: ctrlJump, label: label}, nil

	case "iter_next":
		it, ok := f.get(instr.Iter)
		if !ok {
			return value.Value{}, control{}, fmt.Errorf("internal: undefined operand %q", instr.Iter)
		}
		v, err := value.IterNext(it)
		if err != nil {
			return value.Value{}, control{}, err
		}
		f.setTemp(instr.Dst, v)
		return v, control{kind: ctrlNext}, nil

	case "call_static":
		args, err := gatherArgs(f, instr.Args)
		if err != nil {
			return value.Value{}, control{}, err
		}
		v, err := in.callStatic(ctx, instr.Callee, args)
		if err != nil {
			return value.Value{}, control{}, err
		}
		f.setTemp(instr.Dst, v)
		return v, control{kind: ctrlNext}, nil

	case "call_method_static":
		recv, ok := f.get(instr.Receiver)
		if !ok {
			return value.Value{}, control{}, fmt.Errorf("internal: undefined receiver %q", instr.Receiver)
		}
		args, err := gatherArgs(f, instr.Args)
		if err != nil {
			return value.Value{}, control{}, err
		}
		v, err := in.callMethodStatic(ctx, recv, instr.Method, args)
		if err != nil {
			return value.Value{}, control{}, err
		}
		f.setTemp(instr.Dst, v)
		return v, control{kind: ctrlNext}, nil

	case "call_builtin_print":
		v, err := printArg(f, instr)
		if err != nil {
			return value.Value{}, control{}, err
		}
		w := value.FileWriter(ctx.StdStream("stdout"))
		fmt.Fprintln(w, toDisplayString(v))
		return value.Void, control{kind: ctrlNext}, nil

	case "call_builtin_tostring":
		v, err := printArg(f, instr)
		if err != nil {
			return value.Value{}, control{}, err
		}
		s, err := value.NewStringFromGo(toDisplayString(v))
		if err != nil {
			return value.Value{}, control{}, err
		}
		f.setTemp(instr.Dst, s)
		return s, control{kind: ctrlNext}, nil

	case "jump":
		return value.Void, control{kind: ctrlJump, label: instr.Target}, nil

	case "branch_if":
		cond, ok := f.get(instr.Cond)
		if !ok || cond.Kind != value.KindBool {
			return value.Value{}, control{}, fmt.Errorf("type error: branch_if condition must be bool")
		}
		label := instr.Else
		if cond.Bool() {
			label = instr.Then
		}
		return value.Void, control{kind: ctrlJump, label: label}, nil

	case "ret":
		v, ok := f.get(instr.Src)
		if !ok {
			return value.Value{}, control{}, fmt.Errorf("internal: undefined operand %q", instr.Src)
		}
		return v, control{kind: ctrlReturn}, nil

	case "ret_void":
		return value.Void, control{kind: ctrlReturn}, nil

	case "push_handler":
		f.pushHandler(instr.Target)
		return value.Void, control{kind: ctrlNext}, nil

	case "pop_handler":
		f.popHandler()
		return value.Void, control{kind: ctrlNext}, nil

	case "get_exception":
		exc := f.lastException
		if exc.Kind != value.KindException {
			if lastErr := ctx.LastError(); lastErr != nil {
				exc = materializeError(ctx, f, lastErr)
				f.setLastException(exc)
				ctx.ClearLastError()
			}
		}
		f.setTemp(instr.Dst, exc)
		return exc, control{kind: ctrlNext}, nil

	case "exception_is":
		exc, ok := f.get(instr.Src)
		if !ok || exc.Kind != value.KindException {
			return value.Value{}, control{}, fmt.Errorf("type error: exception_is requires an exception operand")
		}
		b := value.NewBool(exceptionIs(ctx.Module, exc, instr.Proto))
		f.setTemp(instr.Dst, b)
		return b, control{kind: ctrlNext}, nil

	case "throw":
		exc, ok := f.get(instr.Src)
		if !ok || exc.Kind != value.KindException {
			return value.Value{}, control{}, fmt.Errorf("type error: throw requires an exception value")
		}
		exc = overrideLocation(exc, f.curFile, f.curLine, f.curCol)
		return value.Void, control{kind: ctrlThrow, exception: exc}, nil

	case "rethrow":
		if f.lastException.Kind != value.KindException {
			return value.Value{}, control{}, fmt.Errorf("internal: rethrow with no active exception")
		}
		return value.Void, control{kind: ctrlThrow, exception: f.lastException}, nil

	default:
		return value.Value{}, control{}, fmt.Errorf("internal: unknown opcode %q", instr.Op)
	}
}

const minInt64 = -1 << 63

func gatherArgs(f *Frame, names []string) ([]value.Value, error) {
	args := make([]value.Value, 0, len(names))
	for _, name := range names {
		v, ok := f.get(name)
		if !ok {
			return nil, fmt.Errorf("internal: undefined argument %q", name)
		}
		args = append(args, v)
	}
	return args, nil
}

func printArg(f *Frame, instr *ir.Instr) (value.Value, error) {
	name := instr.Src
	if name == "" && len(instr.Args) > 0 {
		name = instr.Args[0]
	}
	v, ok := f.get(name)
	if !ok {
		return value.Value{}, fmt.Errorf("internal: undefined operand %q", name)
	}
	return v, nil
}

func containerLen(v value.Value) (int, error) {
	switch v.Kind {
	case value.KindList:
		return v.Len(), nil
	case value.KindString:
		return v.GlyphLen(), nil
	case value.KindView:
		if !value.ViewValid(v) {
			return 0, fmt.Errorf("view invalidated")
		}
		return value.ViewLen(v), nil
	default:
		return 0, fmt.Errorf("type error: %s has no length", v.Kind)
	}
}

func indexGet(src, idx value.Value) (value.Value, error) {
	switch src.Kind {
	case value.KindList:
		if idx.Kind != value.KindInt {
			return value.Value{}, fmt.Errorf("type error: list index must be int")
		}
		return value.ListGet(src, int(idx.Int()))
	case value.KindString:
		if idx.Kind != value.KindInt {
			return value.Value{}, fmt.Errorf("type error: string index must be int")
		}
		return value.GlyphAt(src, int(idx.Int()))
	case value.KindView:
		if idx.Kind != value.KindInt {
			return value.Value{}, fmt.Errorf("type error: view index must be int")
		}
		return value.ViewGet(src, int(idx.Int()))
	case value.KindMap:
		return value.MapGet(src, idx)
	default:
		return value.Value{}, fmt.Errorf("type error: %s is not indexable", src.Kind)
	}
}

func indexSet(src, idx, val value.Value) error {
	switch src.Kind {
	case value.KindList:
		if idx.Kind != value.KindInt {
			return fmt.Errorf("type error: list index must be int")
		}
		return value.ListSet(src, int(idx.Int()), val)
	case value.KindView:
		if idx.Kind != value.KindInt {
			return fmt.Errorf("type error: view index must be int")
		}
		return value.ViewSet(src, int(idx.Int()), val)
	case value.KindMap:
		return value.MapSet(src, idx, val)
	default:
		return fmt.Errorf("type error: cannot write through %s", src.Kind)
	}
}

func evalConst(ctx *Context, instr *ir.Instr) (value.Value, error) {
	switch instr.LiteralType {
	case "bool":
		return value.NewBool(instr.Value == "true"), nil
	case "int":
		n, err := strconv.ParseInt(instr.Value, 10, 64)
		if err != nil {
			return value.Value{}, fmt.Errorf("internal: bad int literal %q", instr.Value)
		}
		return value.NewInt(n), nil
	case "float":
		n, err := strconv.ParseFloat(instr.Value, 64)
		if err != nil {
			return value.Value{}, fmt.Errorf("internal: bad float literal %q", instr.Value)
		}
		return value.NewFloat(n), nil
	case "byte":
		n, err := strconv.Atoi(instr.Value)
		if err != nil {
			return value.Value{}, fmt.Errorf("internal: bad byte literal %q", instr.Value)
		}
		return value.NewByte(n)
	case "glyph":
		n, err := strconv.Atoi(instr.Value)
		if err != nil {
			return value.Value{}, fmt.Errorf("internal: bad glyph literal %q", instr.Value)
		}
		return value.NewGlyph(rune(n))
	case "string":
		return value.NewStringFromGo(instr.Value)
	case "bytes":
		return value.NewBytes([]byte(instr.Value)), nil
	case "group":
		parts := strings.SplitN(instr.Value, ".", 2)
		if len(parts) != 2 {
			return value.Value{}, fmt.Errorf("internal: malformed group literal %q", instr.Value)
		}
		g, ok := ctx.Module.Groups[parts[0]]
		if !ok {
			return value.Value{}, fmt.Errorf("internal: unknown group %q", parts[0])
		}
		member, ok := g.Members[parts[1]]
		if !ok {
			return value.Value{}, fmt.Errorf("internal: unknown group member %q.%q", parts[0], parts[1])
		}
		return literalToValue(g.BaseType, member)
	case "file":
		return ctx.StdStream(instr.Value), nil
	case "eof":
		return ctx.EOF(), nil
	case "void", "null", "":
		return value.Void, nil
	default:
		return value.Value{}, fmt.Errorf("internal: unknown literalType %q", instr.LiteralType)
	}
}

func literalToValue(baseType string, v any) (value.Value, error) {
	switch baseType {
	case "int":
		switch n := v.(type) {
		case float64:
			return value.NewInt(int64(n)), nil
		case int64:
			return value.NewInt(n), nil
		}
	case "float":
		if n, ok := v.(float64); ok {
			return value.NewFloat(n), nil
		}
	case "byte":
		if n, ok := v.(float64); ok {
			return value.NewByte(int(n))
		}
	case "string":
		if s, ok := v.(string); ok {
			return value.NewStringFromGo(s)
		}
	case "bool":
		if b, ok := v.(bool); ok {
			return value.NewBool(b), nil
		}
	}
	return value.Value{}, fmt.Errorf("internal: group member does not match base type %q", baseType)
}

func evalMakeView(f *Frame, instr *ir.Instr) (value.Value, error) {
	src, ok := f.get(instr.Source)
	if !ok {
		return value.Value{}, fmt.Errorf("internal: undefined operand %q", instr.Source)
	}
	offset, length, err := viewBounds(f, instr, src)
	if err != nil {
		return value.Value{}, err
	}
	switch src.Kind {
	case value.KindView:
		return value.NewComposedView(src, offset, length, instr.Readonly, instr.Kind)
	case value.KindList:
		return value.NewListView(src, offset, length, instr.Readonly, instr.Kind), nil
	case value.KindString:
		return value.NewStringView(src, offset, length, instr.Kind), nil
	default:
		return value.Value{}, fmt.Errorf("type error: cannot view a %s", src.Kind)
	}
}

func viewBounds(f *Frame, instr *ir.Instr, src value.Value) (int, int, error) {
	offset := 0
	if instr.Offset != "" {
		v, ok := f.get(instr.Offset)
		if !ok || v.Kind != value.KindInt {
			return 0, 0, fmt.Errorf("internal: undefined view offset operand")
		}
		offset = int(v.Int())
	}
	length := 0
	if instr.Len != "" {
		v, ok := f.get(instr.Len)
		if !ok || v.Kind != value.KindInt {
			return 0, 0, fmt.Errorf("internal: undefined view length operand")
		}
		length = int(v.Int())
	} else {
		n, err := containerLen(src)
		if err != nil {
			return 0, 0, err
		}
		length = n - offset
	}
	return offset, length, nil
}

func memberGet(f *Frame, instr *ir.Instr) (value.Value, error) {
	obj, ok := f.get(instr.Src)
	if !ok {
		return value.Value{}, fmt.Errorf("internal: undefined operand %q", instr.Src)
	}
	switch obj.Kind {
	case value.KindObject:
		v, present := value.ObjectGet(obj, instr.Name)
		if !present {
			return value.Void, nil
		}
		return v, nil
	case value.KindException:
		return exceptionMemberGet(obj, instr.Name)
	default:
		return value.Value{}, fmt.Errorf("type error: %s has no members", obj.Kind)
	}
}

func exceptionMemberGet(e value.Value, name string) (value.Value, error) {
	switch name {
	case "file":
		return value.NewStringFromGo(value.ExceptionFile(e))
	case "line":
		return value.NewInt(int64(value.ExceptionLine(e))), nil
	case "column":
		return value.NewInt(int64(value.ExceptionCol(e))), nil
	case "message":
		return value.NewStringFromGo(value.ExceptionMessage(e))
	case "cause":
		return value.ExceptionCause(e), nil
	case "code":
		return value.NewStringFromGo(value.ExceptionCode(e))
	case "category":
		return value.NewStringFromGo(value.ExceptionCategory(e))
	default:
		v, present := value.ObjectGet(value.ExceptionFields(e), name)
		if !present {
			return value.Void, nil
		}
		return v, nil
	}
}

func memberSet(f *Frame, instr *ir.Instr) error {
	obj, ok := f.get(instr.Src)
	if !ok {
		return fmt.Errorf("internal: undefined operand %q", instr.Src)
	}
	val, ok := f.get(instr.Value)
	if !ok {
		return fmt.Errorf("internal: undefined operand %q", instr.Value)
	}
	switch obj.Kind {
	case value.KindObject:
		value.ObjectSet(obj, instr.Name, val)
		return nil
	case value.KindException:
		if value.IsExceptionNamedSlot(instr.Name) {
			return fmt.Errorf("type error: exception named slot %q is read-only", instr.Name)
		}
		value.ObjectSet(value.ExceptionFields(obj), instr.Name, val)
		return nil
	default:
		return fmt.Errorf("type error: %s has no members", obj.Kind)
	}
}

// makeObject builds an object or — when proto's chain includes
// "Exception" — an exception: make_object with a prototype in the
// Exception chain constructs an exception instead of a plain object.
func makeObject(ctx *Context, f *Frame, instr *ir.Instr) (value.Value, error) {
	if instr.Proto != "" && protoIsException(ctx, instr.Proto) {
		exc := value.NewException(value.ExceptionSpec{
			IsRuntime:  false,
			TypeName:   instr.Proto,
			ParentName: parentOf(ctx, instr.Proto),
			File:       f.curFile, Line: f.curLine, Col: f.curCol,
		})
		for _, p := range instr.Pairs {
			v, ok := f.get(p.Value)
			if !ok {
				value.Release(exc)
				return value.Value{}, fmt.Errorf("internal: undefined field operand %q", p.Value)
			}
			if value.IsExceptionNamedSlot(p.Key) {
				continue
			}
			value.ObjectSet(value.ExceptionFields(exc), p.Key, v)
		}
		return exc, nil
	}
	obj := value.NewObject(instr.Proto)
	for _, p := range instr.Pairs {
		v, ok := f.get(p.Value)
		if !ok {
			value.Release(obj)
			return value.Value{}, fmt.Errorf("internal: undefined field operand %q", p.Value)
		}
		value.ObjectSet(obj, p.Key, v)
	}
	return obj, nil
}

// protoIsException reports whether name's prototype parent chain passes
// through "Exception" — the trigger for make_object to build an
// exception instead of a plain object.
func protoIsException(ctx *Context, name string) bool {
	if name == "Exception" {
		return true
	}
	for _, n := range ctx.Module.ProtoChain(name) {
		if n == "Exception" {
			return true
		}
	}
	return false
}

func parentOf(ctx *Context, name string) string {
	chain := ctx.Module.ProtoChain(name)
	if len(chain) > 1 {
		return chain[1]
	}
	return "Exception"
}

func overrideLocation(exc value.Value, file string, line, col int) value.Value {
	spec := value.ExceptionSpec{
		IsRuntime: value.ExceptionIsRuntime(exc), TypeName: value.ExceptionTypeName(exc),
		ParentName: value.ExceptionParentName(exc), File: file, Line: line, Col: col,
		Message: value.ExceptionMessage(exc), Cause: value.ExceptionCause(exc),
		Code: value.ExceptionCode(exc), Category: value.ExceptionCategory(exc),
	}
	fresh := value.NewException(spec)
	for _, name := range value.ObjectFieldNames(value.ExceptionFields(exc)) {
		v, _ := value.ObjectGet(value.ExceptionFields(exc), name)
		value.ObjectSet(value.ExceptionFields(fresh), name, v)
	}
	return fresh
}
