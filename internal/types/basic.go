package types

import "strconv"

// Basic is a type without parameters: type, void, bool and #Number.
type Basic struct {
	typ
	kind Kind
	name string
}

// Kind implements Type.
func (b *Basic) Kind() Kind { return b.kind }

// String implements Type.
func (b *Basic) String() string { return b.name }

// Int is a fixed-width integer type.
type Int struct {
	typ
	bits   uint8
	signed bool
}

// Kind implements Type.
func (*Int) Kind() Kind { return KindInt }

// Bits returns the width of the integer: 8, 16, 32 or 64.
func (i *Int) Bits() uint8 { return i.bits }

// Signed reports whether the integer is two's complement signed.
func (i *Int) Signed() bool { return i.signed }

// String implements Type.
func (i *Int) String() string {
	if i.signed {
		return "s" + strconv.Itoa(int(i.bits))
	}
	return "u" + strconv.Itoa(int(i.bits))
}

// Float is an IEEE 754 floating point type.
type Float struct {
	typ
	bits uint8
}

// Kind implements Type.
func (*Float) Kind() Kind { return KindFloat }

// Bits returns 32 or 64.
func (f *Float) Bits() uint8 { return f.bits }

// String implements Type.
func (f *Float) String() string { return "f" + strconv.Itoa(int(f.bits)) }
