package bytecode

import "math"

// compute applies a math op to operands of type t. It reports false for
// integer division by zero.
func compute(op Op, t Type, a, b Value) (Value, bool) {
	switch t {
	case F32:
		x, y := a.F32(), b.F32()
		var r float32
		switch op {
		case OpAdd:
			r = x + y
		case OpSub:
			r = x - y
		case OpMul:
			r = x * y
		case OpDiv:
			r = x / y
		}
		return MakeF32(r), true
	case F64:
		x, y := a.F64(), b.F64()
		var r float64
		switch op {
		case OpAdd:
			r = x + y
		case OpSub:
			r = x - y
		case OpMul:
			r = x * y
		case OpDiv:
			r = x / y
		}
		return MakeF64(r), true
	}

	if op == OpDiv && b.Truncate(t) == 0 {
		return 0, false
	}
	if t.IsSigned() {
		x, y := signExtend(a, t), signExtend(b, t)
		var r int64
		switch op {
		case OpAdd:
			r = x + y
		case OpSub:
			r = x - y
		case OpMul:
			r = x * y
		case OpDiv:
			r = x / y
		}
		return Value(r).Truncate(t), true
	}
	x, y := uint64(a.Truncate(t)), uint64(b.Truncate(t))
	var r uint64
	switch op {
	case OpAdd:
		r = x + y
	case OpSub:
		r = x - y
	case OpMul:
		r = x * y
	case OpDiv:
		r = x / y
	}
	return Value(r).Truncate(t), true
}

// compare evaluates c on operands of type t and returns 0 or 1.
func compare(c Cmp, t Type, a, b Value) Value {
	var lt, eq bool
	switch {
	case t == F32:
		x, y := a.F32(), b.F32()
		lt, eq = x < y, x == y
		if math.IsNaN(float64(x)) || math.IsNaN(float64(y)) {
			return boolValue(c == NE)
		}
	case t == F64:
		x, y := a.F64(), b.F64()
		lt, eq = x < y, x == y
		if math.IsNaN(x) || math.IsNaN(y) {
			return boolValue(c == NE)
		}
	case t.IsSigned():
		x, y := signExtend(a, t), signExtend(b, t)
		lt, eq = x < y, x == y
	default:
		x, y := uint64(a.Truncate(t)), uint64(b.Truncate(t))
		lt, eq = x < y, x == y
	}
	switch c {
	case LT:
		return boolValue(lt)
	case GE:
		return boolValue(!lt)
	case GT:
		return boolValue(!lt && !eq)
	case LE:
		return boolValue(lt || eq)
	case EQ:
		return boolValue(eq)
	case NE:
		return boolValue(!eq)
	}
	return 0
}

func signExtend(v Value, t Type) int64 {
	switch t {
	case S8:
		return int64(v.S8())
	case S16:
		return int64(v.S16())
	case S32:
		return int64(v.S32())
	}
	return v.S64()
}

func boolValue(b bool) Value {
	if b {
		return 1
	}
	return 0
}
