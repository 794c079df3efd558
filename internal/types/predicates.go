package types

// Identical reports whether x and y are the same type. Builtins are
// singletons; every other type is only identical to itself.
func Identical(x, y Type) bool {
	return x == y
}

// Equivalent reports whether x and y have the same structure. It is what
// hosts use to match signatures they spelled out themselves; the checker
// uses Identical.
func Equivalent(x, y Type) bool {
	if x == y {
		return true
	}
	if x == nil || y == nil || x.Kind() != y.Kind() {
		return false
	}
	switch x := x.(type) {
	case *Pointer:
		return Equivalent(x.elem, y.(*Pointer).elem)
	case *Proc:
		y := y.(*Proc)
		return equivalentList(x.in, y.in) && equivalentList(x.out, y.out)
	case *Array:
		y := y.(*Array)
		return x.rows == y.rows && x.cols == y.cols && Equivalent(x.elem, y.elem)
	case *Struct:
		y := y.(*Struct)
		if len(x.fields) != len(y.fields) {
			return false
		}
		for i, f := range x.fields {
			if f.Name != y.fields[i].Name || !Equivalent(f.Type, y.fields[i].Type) {
				return false
			}
		}
		return true
	}
	return false
}

func equivalentList(x, y []Type) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if !Equivalent(x[i], y[i]) {
			return false
		}
	}
	return true
}

// IsInteger reports whether t is a fixed-width integer type.
func IsInteger(t Type) bool { return t != nil && t.Kind() == KindInt }

// IsFloat reports whether t is f32 or f64.
func IsFloat(t Type) bool { return t != nil && t.Kind() == KindFloat }

// IsNumeric reports whether t is an integer or float type. #Number is not
// numeric in this sense; it has no runtime representation of its own.
func IsNumeric(t Type) bool { return IsInteger(t) || IsFloat(t) }

// IsNumber reports whether t is the untyped #Number.
func IsNumber(t Type) bool { return t == Number }

// IsType reports whether t is the type of types.
func IsType(t Type) bool { return t == TypeType }

// IsBoolean reports whether t is bool.
func IsBoolean(t Type) bool { return t == Bool }

// AssignableTo reports whether a value of type v may initialize or be
// assigned to a location of type t. #Number converts to any numeric type;
// whether the particular value fits is checked when it is converted.
func AssignableTo(v, t Type) bool {
	if Identical(v, t) {
		return true
	}
	return IsNumber(v) && IsNumeric(t)
}

// Comparable reports whether values of t support == and !=.
func Comparable(t Type) bool {
	switch t.Kind() {
	case KindInt, KindFloat, KindBool, KindNumber, KindType, KindPointer:
		return true
	}
	return false
}

// Ordered reports whether values of t support < <= > >=.
func Ordered(t Type) bool {
	switch t.Kind() {
	case KindInt, KindFloat, KindNumber:
		return true
	}
	return false
}
