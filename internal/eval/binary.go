package eval

import (
	"cmp"
	"math"

	"github.com/you-not-fish/kai/internal/number"
	"github.com/you-not-fish/kai/internal/syntax"
	"github.com/you-not-fish/kai/internal/types"
	"github.com/you-not-fish/kai/internal/value"
)

// binaryValue computes a binary operation on constant operands. The
// checker gave both operands the same type.
func (e *evaluator) binaryValue(x *syntax.Binary) (value.Value, error) {
	l, err := e.valueOf(x.X)
	if err != nil {
		return value.Value{}, err
	}
	switch x.Op {
	case syntax.AndAnd:
		if !l.Bool() {
			return l, nil
		}
		return e.valueOf(x.Y)
	case syntax.OrOr:
		if l.Bool() {
			return l, nil
		}
		return e.valueOf(x.Y)
	}
	r, err := e.valueOf(x.Y)
	if err != nil {
		return value.Value{}, err
	}

	t := e.types[x.X]
	if x.Op.IsComparison() {
		c, ok := compareValues(l, r, t, x.Op)
		if !ok {
			return value.Value{}, e.unsupported(x, "operator %s on %s", x.Op, t)
		}
		return value.Bool(c), nil
	}

	switch t := t.(type) {
	case *types.Int:
		return e.intOp(x, t, l, r)
	case *types.Float:
		if t.Bits() == 32 {
			f, ok := floatOp(x.Op, l.Float32(), r.Float32())
			if ok {
				return value.F32(f), nil
			}
		} else if f, ok := floatOp(x.Op, l.Float64(), r.Float64()); ok {
			return value.F64(f), nil
		}
	}
	if t == types.Number {
		return e.numberOp(x, l.Number, r.Number)
	}
	return value.Value{}, e.unsupported(x, "operator %s on %s", x.Op, t)
}

// intOp computes an integer operation. Results wrap to the width of t.
func (e *evaluator) intOp(x *syntax.Binary, t *types.Int, l, r value.Value) (value.Value, error) {
	switch x.Op {
	case syntax.Div, syntax.Rem:
		if r.Scalar == 0 {
			return value.Value{}, e.errorf(x, "division by zero")
		}
	case syntax.Shl, syntax.Shr:
		if t.Signed() && r.Int64(t) < 0 {
			return value.Value{}, e.errorf(x.Y, "negative shift count %d", r.Int64(t))
		}
	}

	if t.Signed() {
		a, b := l.Int64(t), r.Int64(t)
		var v int64
		switch x.Op {
		case syntax.Add:
			v = a + b
		case syntax.Sub:
			v = a - b
		case syntax.Mul:
			v = a * b
		case syntax.Div:
			v = a / b
		case syntax.Rem:
			v = a % b
		case syntax.And:
			v = a & b
		case syntax.Or:
			v = a | b
		case syntax.Xor:
			v = a ^ b
		case syntax.Shl:
			v = a << uint64(b)
		case syntax.Shr:
			v = a >> uint64(b)
		default:
			return value.Value{}, e.unsupported(x, "operator %s on %s", x.Op, t)
		}
		return value.Int(t, v), nil
	}

	a, b := l.Scalar, r.Scalar
	var v uint64
	switch x.Op {
	case syntax.Add:
		v = a + b
	case syntax.Sub:
		v = a - b
	case syntax.Mul:
		v = a * b
	case syntax.Div:
		v = a / b
	case syntax.Rem:
		v = a % b
	case syntax.And:
		v = a & b
	case syntax.Or:
		v = a | b
	case syntax.Xor:
		v = a ^ b
	case syntax.Shl:
		v = a << b
	case syntax.Shr:
		v = a >> b
	default:
		return value.Value{}, e.unsupported(x, "operator %s on %s", x.Op, t)
	}
	return value.Uint(t, v), nil
}

func floatOp[F float32 | float64](op syntax.Operator, a, b F) (F, bool) {
	switch op {
	case syntax.Add:
		return a + b, true
	case syntax.Sub:
		return a - b, true
	case syntax.Mul:
		return a * b, true
	case syntax.Div:
		return a / b, true
	}
	return 0, false
}

func (e *evaluator) numberOp(x *syntax.Binary, a, b number.Number) (value.Value, error) {
	var n number.Number
	switch x.Op {
	case syntax.Add:
		n = number.Add(a, b)
	case syntax.Sub:
		n = number.Sub(a, b)
	case syntax.Mul:
		n = number.Mul(a, b)
	case syntax.Div:
		if b.IsZero() {
			return value.Value{}, e.errorf(x, "division by zero")
		}
		n = number.Div(a, b)
	case syntax.Shl, syntax.Shr:
		k, ok := b.ToInt64()
		if !ok || k < math.MinInt32 || k > math.MaxInt32 {
			return value.Value{}, e.errorf(x.Y, "invalid shift count %s", b)
		}
		if x.Op == syntax.Shr {
			n = a.Shr(int32(k))
		} else {
			n = a.Shl(int32(k))
		}
	default:
		return e.intNumberOp(x, a, b)
	}
	if err := n.Check(); err != nil {
		d := e.errorf(x, "constant %s: %v", describe(x), err)
		d.Err = err
		return value.Value{}, d
	}
	return value.OfNumber(n), nil
}

// intNumberOp evaluates the operators defined on integral numbers only.
func (e *evaluator) intNumberOp(x *syntax.Binary, a, b number.Number) (value.Value, error) {
	i, ok1 := a.ToInt64()
	j, ok2 := b.ToInt64()
	if !ok1 || !ok2 {
		return value.Value{}, e.errorf(x, "operator %s needs integer operands, have %s and %s", x.Op, a, b)
	}
	var v int64
	switch x.Op {
	case syntax.Rem:
		if j == 0 {
			return value.Value{}, e.errorf(x, "division by zero")
		}
		v = i % j
	case syntax.And:
		v = i & j
	case syntax.Or:
		v = i | j
	case syntax.Xor:
		v = i ^ j
	default:
		return value.Value{}, e.unsupported(x, "operator %s on %s", x.Op, types.Number)
	}
	return value.OfNumber(number.FromInt64(v)), nil
}

// compareValues evaluates a comparison of two values of type t. It
// reports false if t has no such comparison.
func compareValues(l, r value.Value, t types.Type, op syntax.Operator) (bool, bool) {
	var c int
	switch tt := t.(type) {
	case *types.Int:
		if tt.Signed() {
			c = cmp.Compare(l.Int64(tt), r.Int64(tt))
		} else {
			c = cmp.Compare(l.Scalar, r.Scalar)
		}
	case *types.Float:
		a, b := l.Float64(), r.Float64()
		if tt.Bits() == 32 {
			a, b = float64(l.Float32()), float64(r.Float32())
		}
		if math.IsNaN(a) || math.IsNaN(b) {
			return op == syntax.Neq, true
		}
		c = cmp.Compare(a, b)
	case *types.Pointer:
		c = cmp.Compare(l.Scalar, r.Scalar)
	default:
		switch t {
		case types.Number:
			c = number.Compare(l.Number, r.Number)
		case types.Bool, types.TypeType:
			if op != syntax.Eql && op != syntax.Neq {
				return false, false
			}
			if value.Equal(l, r, t) {
				c = 0
			} else {
				c = 1
			}
		default:
			return false, false
		}
	}
	switch op {
	case syntax.Eql:
		return c == 0, true
	case syntax.Neq:
		return c != 0, true
	case syntax.Lss:
		return c < 0, true
	case syntax.Leq:
		return c <= 0, true
	case syntax.Gtr:
		return c > 0, true
	case syntax.Geq:
		return c >= 0, true
	}
	return false, false
}
