package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrBranch is returned by SetBranch for a patch site outside the stream.
	ErrBranch = errors.New("bytecode: branch patch outside of stream")
	// ErrOperands is recorded when an instruction has more than 255
	// return or argument registers.
	ErrOperands = errors.New("bytecode: too many operands")
)

// Stream encodes instructions. Emit methods never fail individually; the
// first encoding error is kept and reported by Err.
//
// Instructions whose target is not known yet (Branch, Jump, Call) write a
// Placeholder and return the offset of that operand, to be fixed with
// SetBranch once the target is emitted.
type Stream struct {
	code []byte
	err  error // first encoding error
}

// Bytes returns the encoded instructions. The slice aliases the stream.
func (s *Stream) Bytes() []byte { return s.code }

// Len returns the current length, which is also the location of the next
// instruction.
func (s *Stream) Len() uint32 { return uint32(len(s.code)) }

// Err returns the first error encountered while encoding.
func (s *Stream) Err() error { return s.err }

// Reset empties the stream.
func (s *Stream) Reset() {
	s.code = s.code[:0]
	s.err = nil
}

// Truncate drops every instruction from n on and clears the error. It is
// used to abandon a procedure whose body could not be encoded.
func (s *Stream) Truncate(n uint32) {
	if n < s.Len() {
		s.code = s.code[:n]
	}
	s.err = nil
}

func (s *Stream) u8(v uint8) { s.code = append(s.code, v) }

func (s *Stream) u32(v uint32) { s.code = binary.LittleEndian.AppendUint32(s.code, v) }

func (s *Stream) reg(r Reg) { s.u32(uint32(r)) }

func (s *Stream) value(t Type, v Value) { s.code = putValue(s.code, t, v) }

func (s *Stream) count(n int) uint8 {
	if n > 0xFF {
		if s.err == nil {
			s.err = fmt.Errorf("%w: %d", ErrOperands, n)
		}
		return 0xFF
	}
	return uint8(n)
}

func (s *Stream) setErr(err error) {
	if s.err == nil {
		s.err = err
	}
}

func (s *Stream) checkType(t Type) {
	if !t.valid() {
		s.setErr(fmt.Errorf("bytecode: invalid type %d", uint8(t)))
	}
}

// LoadConstant encodes
//
//	[op] [dst]:32 [type]:8 [value]:size(type)
func (s *Stream) LoadConstant(t Type, dst Reg, v Value) {
	s.checkType(t)
	s.u8(uint8(OpLoadConstant))
	s.reg(dst)
	s.u8(uint8(t))
	s.value(t, v)
}

// Math encodes a register to register operation. op is one of OpAdd,
// OpSub, OpMul or OpDiv.
//
//	[op] [dst]:32 [type]:8 [left]:32 [right]:32
func (s *Stream) Math(op Op, t Type, dst, left, right Reg) {
	s.checkMath(op, t)
	s.u8(uint8(op))
	s.reg(dst)
	s.u8(uint8(t))
	s.reg(left)
	s.reg(right)
}

// MathValue encodes an operation whose right operand is an immediate.
//
//	[op] [dst]:32 [0x80|type]:8 [left]:32 [value]:size(type)
func (s *Stream) MathValue(op Op, t Type, dst, left Reg, v Value) {
	s.checkMath(op, t)
	s.u8(uint8(op))
	s.reg(dst)
	s.u8(uint8(t | immediate))
	s.reg(left)
	s.value(t, v)
}

func (s *Stream) checkMath(op Op, t Type) {
	s.checkType(t)
	if !op.isMath() {
		s.setErr(fmt.Errorf("bytecode: %s is not an arithmetic operation", op))
	}
}

// Compare encodes a comparison writing 0 or 1 into dst.
//
//	[op] [dst]:32 [type]:8 [cmp]:8 [left]:32 [right]:32
func (s *Stream) Compare(t Type, c Cmp, dst, left, right Reg) {
	s.checkType(t)
	s.u8(uint8(OpCompare))
	s.reg(dst)
	s.u8(uint8(t))
	s.u8(uint8(c))
	s.reg(left)
	s.reg(right)
}

// CompareValue encodes a comparison against an immediate.
//
//	[op] [dst]:32 [0x80|type]:8 [cmp]:8 [left]:32 [value]:size(type)
func (s *Stream) CompareValue(t Type, c Cmp, dst, left Reg, v Value) {
	s.checkType(t)
	s.u8(uint8(OpCompare))
	s.reg(dst)
	s.u8(uint8(t | immediate))
	s.u8(uint8(c))
	s.reg(left)
	s.value(t, v)
}

// BranchTo encodes a branch to loc taken when the low byte of src is not
// zero.
//
//	[op] [location]:32 [src]:32
func (s *Stream) BranchTo(loc uint32, src Reg) {
	s.u8(uint8(OpBranch))
	s.u32(loc)
	s.reg(src)
}

// Branch encodes a branch with an unknown target and returns the patch
// site.
func (s *Stream) Branch(src Reg) uint32 {
	s.u8(uint8(OpBranch))
	patch := s.Len()
	s.u32(Placeholder)
	s.reg(src)
	return patch
}

// JumpTo encodes an unconditional jump.
//
//	[op] [location]:32
func (s *Stream) JumpTo(loc uint32) {
	s.u8(uint8(OpJump))
	s.u32(loc)
}

// Jump encodes a jump with an unknown target and returns the patch site.
func (s *Stream) Jump() uint32 {
	s.u8(uint8(OpJump))
	patch := s.Len()
	s.u32(Placeholder)
	return patch
}

// CallTo encodes a call of the procedure at loc. The callee's results are
// written to rets in the caller's frame.
//
//	[op] [location]:32 [ret count]:8 [arg count]:8 [ret]:32... [arg]:32...
func (s *Stream) CallTo(loc uint32, rets, args []Reg) {
	s.u8(uint8(OpCall))
	s.u32(loc)
	s.callOperands(rets, args)
}

// Call encodes a call with an unknown target and returns the patch site.
func (s *Stream) Call(rets, args []Reg) uint32 {
	s.u8(uint8(OpCall))
	patch := s.Len()
	s.u32(Placeholder)
	s.callOperands(rets, args)
	return patch
}

func (s *Stream) callOperands(rets, args []Reg) {
	s.u8(s.count(len(rets)))
	s.u8(s.count(len(args)))
	for _, r := range rets {
		s.reg(r)
	}
	for _, r := range args {
		s.reg(r)
	}
}

// Return encodes a return of regs to the caller.
//
//	[op] [count]:8 [src]:32...
func (s *Stream) Return(regs ...Reg) {
	s.u8(uint8(OpReturn))
	s.u8(s.count(len(regs)))
	for _, r := range regs {
		s.reg(r)
	}
}

// NativeCall encodes a call of the host procedure at index native of the
// interpreter's native table. When hasDst is false the result is dropped.
//
//	[op] [native]:64 [use dst]:8 ([dst]:32) [count]:8 [src]:32...
func (s *Stream) NativeCall(native uint64, hasDst bool, dst Reg, args []Reg) {
	s.u8(uint8(OpNativeCall))
	s.code = binary.LittleEndian.AppendUint64(s.code, native)
	if hasDst {
		s.u8(1)
		s.reg(dst)
	} else {
		s.u8(0)
	}
	s.u8(s.count(len(args)))
	for _, r := range args {
		s.reg(r)
	}
}

// Load encodes a read of type t from the scratch stack at addr+offset.
//
//	[op] [dst]:32 [type]:8 [addr]:32 [offset]:32
func (s *Stream) Load(dst Reg, t Type, addr Reg, offset uint32) {
	s.memory(OpLoad, dst, t, addr, offset)
}

// Store encodes a write of src to the scratch stack at addr+offset.
//
//	[op] [src]:32 [type]:8 [addr]:32 [offset]:32
func (s *Stream) Store(src Reg, t Type, addr Reg, offset uint32) {
	s.memory(OpStore, src, t, addr, offset)
}

func (s *Stream) memory(op Op, r Reg, t Type, addr Reg, offset uint32) {
	s.checkType(t)
	s.u8(uint8(op))
	s.reg(r)
	s.u8(uint8(t))
	s.reg(addr)
	s.u32(offset)
}

// CheckAddress encodes a bounds check of a t-sized access at addr+offset.
//
//	[op] [type]:8 [addr]:32 [offset]:32
func (s *Stream) CheckAddress(t Type, addr Reg, offset uint32) {
	s.checkType(t)
	s.u8(uint8(OpCheckAddress))
	s.u8(uint8(t))
	s.reg(addr)
	s.u32(offset)
}

// StackAlloc reserves size bytes of scratch stack and writes their address
// to dst.
//
//	[op] [dst]:32 [size]:32
func (s *Stream) StackAlloc(dst Reg, size uint32) {
	s.u8(uint8(OpStackAlloc))
	s.reg(dst)
	s.u32(size)
}

// StackFree releases the last size bytes of scratch stack.
//
//	[op] [size]:32
func (s *Stream) StackFree(size uint32) {
	s.u8(uint8(OpStackFree))
	s.u32(size)
}

// Nop encodes an instruction that does nothing.
func (s *Stream) Nop() { s.u8(uint8(OpNop)) }

// SetBranch writes loc into the patch site returned by Branch, Jump or
// Call.
func (s *Stream) SetBranch(patch, loc uint32) error {
	if patch >= s.Len() || s.Len()-patch < 4 {
		return ErrBranch
	}
	binary.LittleEndian.PutUint32(s.code[patch:], loc)
	return nil
}
