// Package psmath is ProtoScript's built-in Math native module, exposing a
// handful of floating-point functions against the modreg ABI. It
// registers itself as an in-process builtin rather than shipping as a
// separate psmod_math.so, since this repository builds one binary.
package psmath

import (
	"fmt"
	"math"

	"github.com/protoscript/ps/modreg"
	"github.com/protoscript/ps/value"
)

func init() {
	modreg.RegisterBuiltin("Math", initModule)
}

func initModule(desc *modreg.Descriptor) int {
	desc.Funcs = map[string]*modreg.NativeFunc{
		"sqrt":  {Name: "sqrt", Arity: 1, ReturnType: "float", ParamTypes: []string{"float"}, Fn: unary(math.Sqrt)},
		"abs":   {Name: "abs", Arity: 1, ReturnType: "float", ParamTypes: []string{"float"}, Fn: unary(math.Abs)},
		"floor": {Name: "floor", Arity: 1, ReturnType: "float", ParamTypes: []string{"float"}, Fn: unary(math.Floor)},
		"ceil":  {Name: "ceil", Arity: 1, ReturnType: "float", ParamTypes: []string{"float"}, Fn: unary(math.Ceil)},
		"isNaN": {Name: "isNaN", Arity: 1, ReturnType: "bool", ParamTypes: []string{"float"}, Fn: isNaN},
		"pow":   {Name: "pow", Arity: 2, ReturnType: "float", ParamTypes: []string{"float", "float"}, Fn: pow},
	}
	return modreg.ABIVersion
}

func unary(fn func(float64) float64) func(modreg.NativeContext, []value.Value) (value.Value, error) {
	return func(_ modreg.NativeContext, args []value.Value) (value.Value, error) {
		x, err := floatArg(args, 0)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewFloat(fn(x)), nil
	}
}

func isNaN(_ modreg.NativeContext, args []value.Value) (value.Value, error) {
	x, err := floatArg(args, 0)
	if err != nil {
		return value.Value{}, err
	}
	return value.NewBool(math.IsNaN(x)), nil
}

func pow(_ modreg.NativeContext, args []value.Value) (value.Value, error) {
	x, err := floatArg(args, 0)
	if err != nil {
		return value.Value{}, err
	}
	y, err := floatArg(args, 1)
	if err != nil {
		return value.Value{}, err
	}
	return value.NewFloat(math.Pow(x, y)), nil
}

func floatArg(args []value.Value, i int) (float64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("type error: missing argument %d", i)
	}
	v := args[i]
	switch v.Kind {
	case value.KindFloat:
		return v.Float(), nil
	case value.KindInt:
		return float64(v.Int()), nil
	default:
		return 0, fmt.Errorf("type error: argument %d must be numeric, got %s", i, v.Kind)
	}
}
