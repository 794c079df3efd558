// Package value defines the values computed by the Kai evaluator and
// their byte encoding in a program's data section.
package value

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/you-not-fish/kai/internal/number"
	"github.com/you-not-fish/kai/internal/syntax"
	"github.com/you-not-fish/kai/internal/types"
)

// Errors returned by conversions.
var (
	ErrRange    = errors.New("value out of range")
	ErrInexact  = errors.New("value is not an integer")
	ErrConvert  = errors.New("invalid conversion")
	ErrHostType = errors.New("unsupported host value")
)

// Value is a compile-time value. Which fields are meaningful depends on its
// type, which the value does not carry:
//
//	integer, float, bool, pointer  Scalar (bits, truncated to the type size)
//	#Number                        Number
//	type                           Type
//	procedure                      Proc
//	string                         Str
//	struct, array                  Elems, one per field or element
type Value struct {
	Scalar uint64
	Number number.Number
	Type   types.Type
	Proc   *Procedure
	Str    string
	Elems  []Value
}

// Procedure is the value of a procedure literal or a native import.
type Procedure struct {
	Name string
	Node *syntax.Proc // nil for imports
	Type *types.Proc

	// Loc is the bytecode location of the body when HasCode is set.
	Loc     uint32
	HasCode bool

	// Native is the index in the native table, or -1.
	Native int
}

// IsNative reports whether p is implemented by the host.
func (p *Procedure) IsNative() bool { return p.Native >= 0 }

func (p *Procedure) String() string {
	if p.Name == "" {
		return "procedure"
	}
	return p.Name
}

// Int returns the value of integer type t holding v.
func Int(t *types.Int, v int64) Value {
	return Value{Scalar: truncate(uint64(v), int(t.Bits()))}
}

// Uint returns the value of integer type t holding v.
func Uint(t *types.Int, v uint64) Value {
	return Value{Scalar: truncate(v, int(t.Bits()))}
}

// F32 returns an f32 value.
func F32(f float32) Value { return Value{Scalar: uint64(math.Float32bits(f))} }

// F64 returns an f64 value.
func F64(f float64) Value { return Value{Scalar: math.Float64bits(f)} }

// Bool returns a bool value.
func Bool(b bool) Value {
	if b {
		return Value{Scalar: 1}
	}
	return Value{}
}

// OfNumber returns a #Number value.
func OfNumber(n number.Number) Value { return Value{Number: n} }

// OfType returns a value of type type.
func OfType(t types.Type) Value { return Value{Type: t} }

// OfString returns a string value.
func OfString(s string) Value { return Value{Str: s} }

// OfProc returns a procedure value.
func OfProc(p *Procedure) Value { return Value{Proc: p} }

func truncate(v uint64, bits int) uint64 {
	if bits >= 64 {
		return v
	}
	return v & (1<<bits - 1)
}

// Int64 returns v as a signed integer of type t.
func (v Value) Int64(t *types.Int) int64 {
	bits := int(t.Bits())
	if !t.Signed() || bits >= 64 {
		return int64(v.Scalar)
	}
	shift := 64 - bits
	return int64(v.Scalar<<shift) >> shift
}

// Float32 returns the f32 held by v.
func (v Value) Float32() float32 { return math.Float32frombits(uint32(v.Scalar)) }

// Float64 returns the f64 held by v.
func (v Value) Float64() float64 { return math.Float64frombits(v.Scalar) }

// Bool reports whether the bool held by v is true.
func (v Value) Bool() bool { return v.Scalar != 0 }

// Zero returns the zero value of t.
func Zero(t types.Type) Value {
	switch t := t.(type) {
	case *types.Struct:
		if t.Kind() == types.KindString {
			return Value{}
		}
		elems := make([]Value, t.NumFields())
		for i, f := range t.Fields() {
			elems[i] = Zero(f.Type)
		}
		return Value{Elems: elems}
	case *types.Array:
		elems := make([]Value, t.Len())
		for i := range elems {
			elems[i] = Zero(t.Elem())
		}
		return Value{Elems: elems}
	case *types.Basic:
		if t.Kind() == types.KindNumber {
			return OfNumber(number.Zero)
		}
	}
	return Value{}
}

// ToNumber returns the exact number held by v of type t. It supports
// integers, floats and #Number.
func ToNumber(v Value, t types.Type) (number.Number, bool) {
	switch t := t.(type) {
	case *types.Int:
		if t.Signed() {
			return number.FromInt64(v.Int64(t)), true
		}
		return number.FromUint64(v.Scalar), true
	case *types.Float:
		f := v.Float64()
		if t.Bits() == 32 {
			f = float64(v.Float32())
		}
		return number.FromFloat64(f)
	}
	if t == types.Number {
		return v.Number, true
	}
	return number.Zero, false
}

// FromNumber converts n to numeric type t. Integers must be integral and
// in range; floats round to nearest.
func FromNumber(n number.Number, t types.Type) (Value, error) {
	switch t := t.(type) {
	case *types.Int:
		if !n.IsInteger() {
			return Value{}, fmt.Errorf("%w: %s", ErrInexact, n)
		}
		if t.Signed() {
			i, ok := n.ToInt64()
			if !ok || !fitsSigned(i, int(t.Bits())) {
				return Value{}, fmt.Errorf("%w: %s overflows %s", ErrRange, n, t)
			}
			return Int(t, i), nil
		}
		u, ok := n.ToUint64()
		if !ok || !fitsUnsigned(u, int(t.Bits())) {
			return Value{}, fmt.Errorf("%w: %s overflows %s", ErrRange, n, t)
		}
		return Uint(t, u), nil
	case *types.Float:
		if t.Bits() == 32 {
			return F32(n.ToF32()), nil
		}
		return F64(n.ToF64()), nil
	}
	if t == types.Number {
		return OfNumber(n), nil
	}
	return Value{}, fmt.Errorf("%w: #Number to %s", ErrConvert, t)
}

func fitsSigned(v int64, bits int) bool {
	if bits >= 64 {
		return true
	}
	lim := int64(1) << (bits - 1)
	return v >= -lim && v < lim
}

func fitsUnsigned(v uint64, bits int) bool {
	return bits >= 64 || v < 1<<bits
}

// Convert converts v from type from to type to. Identical types convert
// trivially; numeric types and #Number convert between each other. Integer
// to integer conversions wrap like a cast.
func Convert(v Value, from, to types.Type) (Value, error) {
	if types.Identical(from, to) {
		return v, nil
	}
	if from == types.Number {
		return FromNumber(v.Number, to)
	}
	if !types.IsNumeric(from) || !(types.IsNumeric(to) || to == types.Number) {
		return Value{}, fmt.Errorf("%w: %s to %s", ErrConvert, from, to)
	}
	if fi, ok := from.(*types.Int); ok {
		if ti, ok := to.(*types.Int); ok {
			if fi.Signed() {
				return Int(ti, v.Int64(fi)), nil
			}
			return Uint(ti, v.Scalar), nil
		}
	}
	n, ok := ToNumber(v, from)
	if !ok {
		return Value{}, fmt.Errorf("%w: %s cannot be represented exactly", ErrConvert, Format(v, from))
	}
	if ti, ok := to.(*types.Int); ok && !n.IsInteger() {
		// float to integer truncates toward zero
		f := n.ToF64()
		n, _ = number.FromFloat64(math.Trunc(f))
		return FromNumber(n, ti)
	}
	return FromNumber(n, to)
}

// Equal reports whether a and b, both of type t, are equal.
func Equal(a, b Value, t types.Type) bool {
	switch t := t.(type) {
	case *types.Float:
		if t.Bits() == 32 {
			return a.Float32() == b.Float32()
		}
		return a.Float64() == b.Float64()
	case *types.Struct:
		if t.Kind() == types.KindString {
			return a.Str == b.Str
		}
		for i, f := range t.Fields() {
			if !Equal(elem(a, i), elem(b, i), f.Type) {
				return false
			}
		}
		return true
	case *types.Array:
		for i := range t.Len() {
			if !Equal(elem(a, i), elem(b, i), t.Elem()) {
				return false
			}
		}
		return true
	case *types.Proc:
		return a.Proc == b.Proc
	}
	switch t {
	case types.Number:
		return number.Equal(a.Number, b.Number)
	case types.TypeType:
		return a.Type == b.Type
	}
	return a.Scalar == b.Scalar
}

func elem(v Value, i int) Value {
	if i < len(v.Elems) {
		return v.Elems[i]
	}
	return Value{}
}

// Format renders v, of type t, as Kai source would spell it.
func Format(v Value, t types.Type) string {
	var b strings.Builder
	format(&b, v, t)
	return b.String()
}

func format(b *strings.Builder, v Value, t types.Type) {
	switch t := t.(type) {
	case *types.Int:
		if t.Signed() {
			b.WriteString(strconv.FormatInt(v.Int64(t), 10))
		} else {
			b.WriteString(strconv.FormatUint(v.Scalar, 10))
		}
		return
	case *types.Float:
		if t.Bits() == 32 {
			b.WriteString(strconv.FormatFloat(float64(v.Float32()), 'g', -1, 32))
		} else {
			b.WriteString(strconv.FormatFloat(v.Float64(), 'g', -1, 64))
		}
		return
	case *types.Pointer:
		fmt.Fprintf(b, "0x%x", v.Scalar)
		return
	case *types.Proc:
		if v.Proc == nil {
			b.WriteString("[null]")
		} else {
			b.WriteString(v.Proc.String())
		}
		return
	case *types.Struct:
		if t.Kind() == types.KindString {
			b.WriteString(strconv.Quote(v.Str))
			return
		}
		b.WriteString(".{")
		for i, f := range t.Fields() {
			if i > 0 {
				b.WriteString(", ")
			}
			format(b, elem(v, i), f.Type)
		}
		b.WriteString("}")
		return
	case *types.Array:
		b.WriteString(".{")
		for i := range t.Len() {
			if i > 0 {
				b.WriteString(", ")
			}
			format(b, elem(v, i), t.Elem())
		}
		b.WriteString("}")
		return
	}
	switch t {
	case types.Bool:
		b.WriteString(strconv.FormatBool(v.Bool()))
	case types.Number:
		b.WriteString(v.Number.String())
	case types.TypeType:
		if v.Type == nil {
			b.WriteString("[null]")
		} else {
			b.WriteString(v.Type.String())
		}
	case types.Void:
		b.WriteString("void")
	default:
		fmt.Fprintf(b, "0x%x", v.Scalar)
	}
}
