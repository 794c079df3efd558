package types

// Builtin types. They are shared by every program.
var (
	TypeType = &Basic{kind: KindType, name: "type"}
	Void     = &Basic{kind: KindVoid, name: "void"}

	S8  = &Int{bits: 8, signed: true}
	S16 = &Int{bits: 16, signed: true}
	S32 = &Int{bits: 32, signed: true}
	S64 = &Int{bits: 64, signed: true}
	U8  = &Int{bits: 8}
	U16 = &Int{bits: 16}
	U32 = &Int{bits: 32}
	U64 = &Int{bits: 64}

	F32 = &Float{bits: 32}
	F64 = &Float{bits: 64}

	Bool   = &Basic{kind: KindBool, name: "bool"}
	Number = &Basic{kind: KindNumber, name: "#Number"}

	// String is struct { count: u64; data: *u8; }.
	String = newString()
)

func newString() *Struct {
	s := &Struct{
		kind: KindString,
		name: "string",
		fields: []Field{
			{Name: "count", Type: U64},
			{Name: "data", Type: NewPointer(U8)},
		},
	}
	s.layout()
	return s
}

// Builtins lists the builtin types at their fixed node indices. The order
// is relied upon by the dependency graph and must not change.
var Builtins = [...]Type{
	TypeType, Void,
	S8, S16, S32, S64,
	U8, U16, U32, U64,
	F32, F64,
	Bool, Number, String,
}

// NumBuiltins is the number of builtin types.
const NumBuiltins = len(Builtins)

// Indices of builtins.
const (
	IndexType = iota
	IndexVoid
	IndexS8
	IndexS16
	IndexS32
	IndexS64
	IndexU8
	IndexU16
	IndexU32
	IndexU64
	IndexF32
	IndexF64
	IndexBool
	IndexNumber
	IndexString
)

// IntType returns the builtin integer type with the given width and
// signedness, or nil.
func IntType(bits uint8, signed bool) *Int {
	for _, t := range [...]*Int{S8, S16, S32, S64, U8, U16, U32, U64} {
		if t.bits == bits && t.signed == signed {
			return t
		}
	}
	return nil
}
