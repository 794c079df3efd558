// Package bytecode implements Kai's register bytecode: an encoder that
// writes the instruction tape, an interpreter that runs it with frame
// relative registers, and printers for debugging.
//
// Every operand is little-endian. Registers are 32-bit indices relative to
// the base register of the current call frame.
package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Type is the primitive type an instruction operates on.
type Type uint8

const (
	U8 Type = iota
	U16
	U32
	U64
	S8
	S16
	S32
	S64
	F32
	F64

	numTypes

	// immediate is or-ed into the type byte of math and compare
	// instructions whose right operand is a value instead of a register.
	immediate Type = 0x80
)

var typeNames = [...]string{"u8", "u16", "u32", "u64", "s8", "s16", "s32", "s64", "f32", "f64"}
var typeSizes = [...]uint32{1, 2, 4, 8, 1, 2, 4, 8, 4, 8}
var typeC = [...]string{"uint8_t", "uint16_t", "uint32_t", "uint64_t", "int8_t", "int16_t", "int32_t", "int64_t", "float", "double"}

func (t Type) valid() bool { return t < numTypes }

// Size returns the size in bytes of a value of type t.
func (t Type) Size() uint32 {
	if !t.valid() {
		return 0
	}
	return typeSizes[t]
}

func (t Type) String() string {
	if !t.valid() {
		return fmt.Sprintf("type(%d)", uint8(t))
	}
	return typeNames[t]
}

// IsSigned reports whether t is a signed integer type.
func (t Type) IsSigned() bool { return t >= S8 && t <= S64 }

// IsFloat reports whether t is f32 or f64.
func (t Type) IsFloat() bool { return t == F32 || t == F64 }

// Op is an instruction opcode.
type Op uint8

const (
	OpNop          Op = 0  // nop
	OpLoadConstant Op = 1  // %0 <- load_constant.u32 8
	OpAdd          Op = 2  // %2 <- add.u32 %0, %1
	OpSub          Op = 3  // %7 <- sub.u32 %0, %1
	OpMul          Op = 4  // %8 <- mul.u32 %0, %1
	OpDiv          Op = 5  // %9 <- div.u32 %0, %1
	OpCompare      Op = 6  // %3 <- compare.gt.s64 %0, 0
	OpBranch       Op = 7  // branch %5 {0x43}
	OpJump         Op = 8  // jump {0x43}
	OpCall         Op = 9  // %4, %5 <- call {0x34} (%1, %2)
	OpReturn       Op = 10 // ret %1, %2
	OpNativeCall   Op = 11 // %4 <- native_call {print} (%1, %2)
	OpLoad         Op = 12 // %5 <- load.u64 [%1 + 0x24]
	OpStore        Op = 13 // store.u32 [%2 + 0x8] <- %5
	OpStackAlloc   Op = 14 // %6 <- stack_alloc 48
	OpStackFree    Op = 15 // stack_free 48
	OpCheckAddress Op = 99 // check_address.u32 [%1 + 0x8]
)

var opNames = map[Op]string{
	OpNop:          "nop",
	OpLoadConstant: "load_constant",
	OpAdd:          "add",
	OpSub:          "sub",
	OpMul:          "mul",
	OpDiv:          "div",
	OpCompare:      "compare",
	OpBranch:       "branch",
	OpJump:         "jump",
	OpCall:         "call",
	OpReturn:       "ret",
	OpNativeCall:   "native_call",
	OpLoad:         "load",
	OpStore:        "store",
	OpStackAlloc:   "stack_alloc",
	OpStackFree:    "stack_free",
	OpCheckAddress: "check_address",
}

func (op Op) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

func (op Op) isMath() bool { return op >= OpAdd && op <= OpDiv }

// Cmp is the comparison performed by COMPARE.
type Cmp uint8

const (
	LT Cmp = iota
	GE
	GT
	LE
	EQ
	NE
)

var cmpNames = [...]string{"lt", "ge", "gt", "le", "eq", "ne"}
var cmpSymbols = [...]string{"<", ">=", ">", "<=", "==", "!="}

func (c Cmp) String() string {
	if int(c) < len(cmpNames) {
		return cmpNames[c]
	}
	return fmt.Sprintf("cmp(%d)", uint8(c))
}

// Reg names a register relative to the current frame.
type Reg uint32

// Placeholder is written where a jump target is not known yet.
const Placeholder = 0xFFFFFFFF

// Value is the contents of a register: the bits of any primitive type,
// zero extended to 64 bits.
type Value uint64

func MakeS8(v int8) Value     { return Value(uint8(v)) }
func MakeS16(v int16) Value   { return Value(uint16(v)) }
func MakeS32(v int32) Value   { return Value(uint32(v)) }
func MakeS64(v int64) Value   { return Value(v) }
func MakeF32(v float32) Value { return Value(math.Float32bits(v)) }
func MakeF64(v float64) Value { return Value(math.Float64bits(v)) }

func (v Value) U8() uint8    { return uint8(v) }
func (v Value) U16() uint16  { return uint16(v) }
func (v Value) U32() uint32  { return uint32(v) }
func (v Value) U64() uint64  { return uint64(v) }
func (v Value) S8() int8     { return int8(v) }
func (v Value) S16() int16   { return int16(v) }
func (v Value) S32() int32   { return int32(v) }
func (v Value) S64() int64   { return int64(v) }
func (v Value) F32() float32 { return math.Float32frombits(uint32(v)) }
func (v Value) F64() float64 { return math.Float64frombits(uint64(v)) }

// Truncate keeps only the bytes of v that belong to type t.
func (v Value) Truncate(t Type) Value {
	switch t.Size() {
	case 1:
		return v & 0xFF
	case 2:
		return v & 0xFFFF
	case 4:
		return v & 0xFFFFFFFF
	}
	return v
}

// Format renders v as a literal of type t.
func (v Value) Format(t Type) string {
	switch t {
	case U8, U16, U32, U64:
		return fmt.Sprint(uint64(v.Truncate(t)))
	case S8:
		return fmt.Sprint(v.S8())
	case S16:
		return fmt.Sprint(v.S16())
	case S32:
		return fmt.Sprint(v.S32())
	case S64:
		return fmt.Sprint(v.S64())
	case F32:
		return fmt.Sprint(v.F32())
	case F64:
		return fmt.Sprint(v.F64())
	}
	return fmt.Sprintf("0x%x", uint64(v))
}

func putValue(b []byte, t Type, v Value) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	return append(b, buf[:t.Size()]...)
}

func readValue(b []byte, t Type) Value {
	var buf [8]byte
	copy(buf[:], b[:t.Size()])
	return Value(binary.LittleEndian.Uint64(buf[:]))
}

func storeValue(b []byte, t Type, v Value) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	copy(b[:t.Size()], buf[:])
}
