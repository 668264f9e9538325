package interp

import (
	"fmt"

	"github.com/protoscript/ps/value"
)

// promote widens a, b to a common numeric kind: mixed int/byte promotes
// to int, mixed with float promotes to float. Returns their values as
// (float64, float64, isFloat) or (int64, int64, false).
func promote(a, b value.Value) (af, bf float64, ai, bi int64, isFloat bool, err error) {
	toF := func(v value.Value) (float64, bool) {
		switch v.Kind {
		case value.KindFloat:
			return v.Float(), true
		case value.KindInt:
			return float64(v.Int()), false
		case value.KindByte:
			return float64(v.Byte()), false
		default:
			return 0, false
		}
	}
	toI := func(v value.Value) (int64, bool) {
		switch v.Kind {
		case value.KindInt:
			return v.Int(), true
		case value.KindByte:
			return int64(v.Byte()), true
		default:
			return 0, false
		}
	}
	if a.Kind == value.KindFloat || b.Kind == value.KindFloat {
		af, _ = toF(a)
		bf, _ = toF(b)
		if !(a.Kind == value.KindFloat || a.Kind == value.KindInt || a.Kind == value.KindByte) ||
			!(b.Kind == value.KindFloat || b.Kind == value.KindInt || b.Kind == value.KindByte) {
			return 0, 0, 0, 0, false, fmt.Errorf("type error: cannot combine %s and %s", a.Kind, b.Kind)
		}
		return af, bf, 0, 0, true, nil
	}
	var ok1, ok2 bool
	ai, ok1 = toI(a)
	bi, ok2 = toI(b)
	if !ok1 || !ok2 {
		return 0, 0, 0, 0, false, fmt.Errorf("type error: cannot combine %s and %s", a.Kind, b.Kind)
	}
	return 0, 0, ai, bi, false, nil
}

// binOp evaluates a bin_op instruction. Boolean &&/|| are eager;
// short-circuiting is the front end's job, emitted as branches.
func binOp(operator string, l, r value.Value) (value.Value, error) {
	switch operator {
	case "&&":
		if l.Kind != value.KindBool || r.Kind != value.KindBool {
			return value.Value{}, fmt.Errorf("type error: && requires bool operands")
		}
		return value.NewBool(l.Bool() && r.Bool()), nil
	case "||":
		if l.Kind != value.KindBool || r.Kind != value.KindBool {
			return value.Value{}, fmt.Errorf("type error: || requires bool operands")
		}
		return value.NewBool(l.Bool() || r.Bool()), nil
	case "==":
		return value.NewBool(value.Equal(l, r)), nil
	case "!=":
		return value.NewBool(!value.Equal(l, r)), nil
	case "<", "<=", ">", ">=":
		return compareOp(operator, l, r)
	case "+":
		if l.Kind == value.KindString && r.Kind == value.KindString {
			return value.Concat(l, r)
		}
	}

	if l.Kind == value.KindInt && r.Kind == value.KindInt {
		switch operator {
		case "&", "|", "^", "<<", ">>":
			return intBitOp(operator, l.Int(), r.Int())
		}
	}

	af, bf, ai, bi, isFloat, err := promote(l, r)
	if err != nil {
		return value.Value{}, err
	}
	if isFloat {
		switch operator {
		case "+":
			return value.NewFloat(af + bf), nil
		case "-":
			return value.NewFloat(af - bf), nil
		case "*":
			return value.NewFloat(af * bf), nil
		case "/":
			return value.NewFloat(af / bf), nil
		default:
			return value.Value{}, fmt.Errorf("type error: unsupported float operator %q", operator)
		}
	}
	switch operator {
	case "+":
		return value.NewInt(ai + bi), nil
	case "-":
		return value.NewInt(ai - bi), nil
	case "*":
		return value.NewInt(ai * bi), nil
	case "/":
		if bi == 0 {
			return value.Value{}, fmt.Errorf("division by zero")
		}
		return value.NewInt(ai / bi), nil
	case "%":
		if bi == 0 {
			return value.Value{}, fmt.Errorf("division by zero")
		}
		return value.NewInt(ai % bi), nil
	default:
		return value.Value{}, fmt.Errorf("type error: unsupported operator %q", operator)
	}
}

func intBitOp(operator string, a, b int64) (value.Value, error) {
	switch operator {
	case "&":
		return value.NewInt(a & b), nil
	case "|":
		return value.NewInt(a | b), nil
	case "^":
		return value.NewInt(a ^ b), nil
	case "<<":
		return value.NewInt(a << uint64(b)), nil
	case ">>":
		return value.NewInt(a >> uint64(b)), nil
	default:
		return value.Value{}, fmt.Errorf("internal: unknown bit operator %q", operator)
	}
}

func compareOp(operator string, l, r value.Value) (value.Value, error) {
	if !value.Comparable(l.Kind) {
		return value.Value{}, fmt.Errorf("type error: %s is not orderable", l.Kind)
	}
	c, err := value.Compare(l, r)
	if err != nil {
		return value.Value{}, err
	}
	switch operator {
	case "<":
		return value.NewBool(c < 0), nil
	case "<=":
		return value.NewBool(c <= 0), nil
	case ">":
		return value.NewBool(c > 0), nil
	case ">=":
		return value.NewBool(c >= 0), nil
	default:
		return value.Value{}, fmt.Errorf("internal: unknown comparison operator %q", operator)
	}
}

// unaryOp evaluates a unary_op instruction.
func unaryOp(operator string, v value.Value) (value.Value, error) {
	switch operator {
	case "-":
		switch v.Kind {
		case value.KindInt:
			return value.NewInt(-v.Int()), nil
		case value.KindFloat:
			return value.NewFloat(-v.Float()), nil
		default:
			return value.Value{}, fmt.Errorf("type error: unary - requires int or float")
		}
	case "!":
		if v.Kind != value.KindBool {
			return value.Value{}, fmt.Errorf("type error: unary ! requires bool")
		}
		return value.NewBool(!v.Bool()), nil
	case "~":
		if v.Kind != value.KindInt {
			return value.Value{}, fmt.Errorf("type error: unary ~ requires int")
		}
		return value.NewInt(^v.Int()), nil
	default:
		return value.Value{}, fmt.Errorf("type error: unsupported unary operator %q", operator)
	}
}

// checkIntOverflow reports whether applying operator to a, b overflows
// int64, backing the check_int_overflow instruction.
func checkIntOverflow(operator string, a, b int64) bool {
	switch operator {
	case "+":
		s := a + b
		return (b > 0 && s < a) || (b < 0 && s > a)
	case "-":
		s := a - b
		return (b < 0 && s < a) || (b > 0 && s > a)
	case "*":
		if a == 0 || b == 0 {
			return false
		}
		if (a == -1 && b == minInt64) || (b == -1 && a == minInt64) {
			return true
		}
		p := a * b
		return p/b != a
	default:
		return false
	}
}
