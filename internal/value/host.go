package value

import (
	"fmt"

	"github.com/you-not-fish/kai/internal/number"
	"github.com/you-not-fish/kai/internal/types"
)

// FromGo converts a host value to a value of type t. Go integers and
// floats convert to any numeric type or #Number as long as the value is
// representable. Structs and arrays take a []any with one entry per field
// or element.
func FromGo(x any, t types.Type) (Value, error) {
	if n, ok := hostNumber(x); ok {
		if !types.IsNumeric(t) && t != types.Number {
			return Value{}, fmt.Errorf("%w: %T to %s", ErrHostType, x, t)
		}
		if f, ok := x.(float32); ok && t == types.F32 {
			return F32(f), nil
		}
		return FromNumber(n, t)
	}
	switch x := x.(type) {
	case bool:
		if t == types.Bool {
			return Bool(x), nil
		}
	case string:
		if t == types.String {
			return OfString(x), nil
		}
	case number.Number:
		return FromNumber(x, t)
	case types.Type:
		if t == types.TypeType {
			return OfType(x), nil
		}
	case *Procedure:
		if _, ok := t.(*types.Proc); ok {
			return OfProc(x), nil
		}
	case []any:
		return fromList(x, t)
	}
	return Value{}, fmt.Errorf("%w: %T to %s", ErrHostType, x, t)
}

func hostNumber(x any) (number.Number, bool) {
	switch x := x.(type) {
	case int:
		return number.FromInt64(int64(x)), true
	case int8:
		return number.FromInt64(int64(x)), true
	case int16:
		return number.FromInt64(int64(x)), true
	case int32:
		return number.FromInt64(int64(x)), true
	case int64:
		return number.FromInt64(x), true
	case uint:
		return number.FromUint64(uint64(x)), true
	case uint8:
		return number.FromUint64(uint64(x)), true
	case uint16:
		return number.FromUint64(uint64(x)), true
	case uint32:
		return number.FromUint64(uint64(x)), true
	case uint64:
		return number.FromUint64(x), true
	case float32:
		return number.FromFloat64(float64(x))
	case float64:
		return number.FromFloat64(x)
	}
	return number.Zero, false
}

func fromList(list []any, t types.Type) (Value, error) {
	var elemType func(int) types.Type
	n := 0
	switch t := t.(type) {
	case *types.Struct:
		if t.Kind() == types.KindString {
			break
		}
		n = t.NumFields()
		elemType = func(i int) types.Type { return t.Field(i).Type }
	case *types.Array:
		n = t.Len()
		elemType = func(int) types.Type { return t.Elem() }
	}
	if elemType == nil {
		return Value{}, fmt.Errorf("%w: list to %s", ErrHostType, t)
	}
	if len(list) != n {
		return Value{}, fmt.Errorf("%w: %d values for %s, want %d", ErrHostType, len(list), t, n)
	}
	elems := make([]Value, n)
	for i, x := range list {
		v, err := FromGo(x, elemType(i))
		if err != nil {
			return Value{}, err
		}
		elems[i] = v
	}
	return Value{Elems: elems}, nil
}

// ToGo converts v, of type t, to the natural host value: int64 or uint64
// for integers, float32 or float64, bool, string, number.Number,
// types.Type, *Procedure, uintptr for pointers and []any for structs and
// arrays. void converts to nil.
func ToGo(v Value, t types.Type) any {
	switch t := t.(type) {
	case *types.Int:
		if t.Signed() {
			return v.Int64(t)
		}
		return v.Scalar
	case *types.Float:
		if t.Bits() == 32 {
			return v.Float32()
		}
		return v.Float64()
	case *types.Pointer:
		return uintptr(v.Scalar)
	case *types.Proc:
		return v.Proc
	case *types.Struct:
		if t.Kind() == types.KindString {
			return v.Str
		}
		list := make([]any, t.NumFields())
		for i, f := range t.Fields() {
			list[i] = ToGo(elem(v, i), f.Type)
		}
		return list
	case *types.Array:
		list := make([]any, t.Len())
		for i := range list {
			list[i] = ToGo(elem(v, i), t.Elem())
		}
		return list
	}
	switch t {
	case types.Bool:
		return v.Bool()
	case types.Number:
		return v.Number
	case types.TypeType:
		return v.Type
	}
	return nil
}
