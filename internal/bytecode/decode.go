package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrTruncated is returned by Decode when an instruction runs past the
	// end of the code.
	ErrTruncated = errors.New("bytecode: truncated instruction")
	// ErrUnknownOp is returned by Decode for an unknown opcode.
	ErrUnknownOp = errors.New("bytecode: unknown opcode")
)

// Inst is a decoded instruction. Which fields are meaningful depends on Op.
type Inst struct {
	PC     uint32
	Op     Op
	Type   Type
	Imm    bool // right operand is Value rather than register B
	Cmp    Cmp
	Dst    Reg // destination, or source for stores
	HasDst bool
	A, B   Reg // operands; A is the address register of memory operations
	Value  Value
	Loc    uint32 // branch, jump or call target
	Rets   []Reg
	Args   []Reg
	Native uint64
	Offset uint32 // memory offset, or size for stack operations
}

type decoder struct {
	code []byte
	pc   uint32
	err  error
}

func (d *decoder) need(n uint32) bool {
	if d.err != nil {
		return false
	}
	if uint64(d.pc)+uint64(n) > uint64(len(d.code)) {
		d.err = ErrTruncated
		return false
	}
	return true
}

func (d *decoder) u8() uint8 {
	if !d.need(1) {
		return 0
	}
	v := d.code[d.pc]
	d.pc++
	return v
}

func (d *decoder) u32() uint32 {
	if !d.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(d.code[d.pc:])
	d.pc += 4
	return v
}

func (d *decoder) u64() uint64 {
	if !d.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(d.code[d.pc:])
	d.pc += 8
	return v
}

func (d *decoder) reg() Reg { return Reg(d.u32()) }

func (d *decoder) typ() Type {
	t := Type(d.u8())
	if d.err == nil && !(t &^ immediate).valid() {
		d.err = fmt.Errorf("bytecode: invalid type %d at 0x%04x", uint8(t), d.pc-1)
	}
	return t
}

func (d *decoder) value(t Type) Value {
	if !d.need(t.Size()) {
		return 0
	}
	v := readValue(d.code[d.pc:], t)
	d.pc += t.Size()
	return v
}

func (d *decoder) regs(n uint8) []Reg {
	if n == 0 {
		return nil
	}
	list := make([]Reg, n)
	for i := range list {
		list[i] = d.reg()
	}
	return list
}

// Decode decodes the instruction at pc and returns it with the location of
// the next instruction.
func Decode(code []byte, pc uint32) (Inst, uint32, error) {
	d := &decoder{code: code, pc: pc}
	in := Inst{PC: pc, Op: Op(d.u8())}

	switch in.Op {
	case OpNop:
	case OpLoadConstant:
		in.Dst, in.HasDst = d.reg(), true
		in.Type = d.typ()
		in.Value = d.value(in.Type)
	case OpAdd, OpSub, OpMul, OpDiv, OpCompare:
		in.Dst, in.HasDst = d.reg(), true
		t := d.typ()
		in.Imm, in.Type = t&immediate != 0, t&^immediate
		if in.Op == OpCompare {
			in.Cmp = Cmp(d.u8())
		}
		in.A = d.reg()
		if in.Imm {
			in.Value = d.value(in.Type)
		} else {
			in.B = d.reg()
		}
	case OpBranch:
		in.Loc = d.u32()
		in.A = d.reg()
	case OpJump:
		in.Loc = d.u32()
	case OpCall:
		in.Loc = d.u32()
		rets, args := d.u8(), d.u8()
		in.Rets = d.regs(rets)
		in.Args = d.regs(args)
	case OpReturn:
		in.Args = d.regs(d.u8())
	case OpNativeCall:
		in.Native = d.u64()
		if d.u8() != 0 {
			in.Dst, in.HasDst = d.reg(), true
		}
		in.Args = d.regs(d.u8())
	case OpLoad, OpStore:
		in.Dst, in.HasDst = d.reg(), in.Op == OpLoad
		in.Type = d.typ()
		in.A = d.reg()
		in.Offset = d.u32()
	case OpCheckAddress:
		in.Type = d.typ()
		in.A = d.reg()
		in.Offset = d.u32()
	case OpStackAlloc:
		in.Dst, in.HasDst = d.reg(), true
		in.Offset = d.u32()
	case OpStackFree:
		in.Offset = d.u32()
	default:
		if d.err == nil {
			d.err = fmt.Errorf("%w %d at 0x%04x", ErrUnknownOp, uint8(in.Op), pc)
		}
	}
	return in, d.pc, d.err
}
