package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Flags report why an interpreter stopped. They are sticky until Reset.
type Flags uint32

const (
	// Done is set when the outermost frame returned.
	Done Flags = 1 << iota
	// Overflow is set when the program counter left the code.
	Overflow
	// Incomplete is set when an instruction could not be fully read or
	// its opcode is unknown.
	Incomplete
	// Invalid is set when an instruction named a register, frame or stack
	// address outside the interpreter's limits.
	Invalid
)

func (f Flags) String() string {
	if f == 0 {
		return "running"
	}
	var parts []string
	for i, name := range []string{"done", "overflow", "incomplete", "invalid"} {
		if f&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// ErrStepLimit is returned by Run when the step limit ran out.
var ErrStepLimit = errors.New("bytecode: step limit reached")

// HaltError reports an interpreter that stopped without finishing.
type HaltError struct {
	Flags Flags
	PC    uint32
}

func (e *HaltError) Error() string {
	return fmt.Sprintf("bytecode: halted at 0x%04x (%s)", e.PC, e.Flags)
}

// Limits size an interpreter. They are fixed at creation; exceeding one
// halts execution with the Invalid flag.
type Limits struct {
	Registers int // register file size
	Frames    int // call depth
	Returns   int // pending return registers across all frames
	Stack     int // scratch stack bytes for LOAD and STORE
}

// DefaultLimits are used for zero fields of Limits.
var DefaultLimits = Limits{Registers: 4096, Frames: 1024, Returns: 1024, Stack: 64 << 10}

type frame struct {
	base       uint32 // base register
	ret        uint32 // return address
	maxWritten uint32 // caller's high-water mark, restored on return
}

// Interpreter runs bytecode. It is not safe for concurrent use.
type Interpreter struct {
	code  []byte
	pc    uint32
	flags Flags

	registers  []Value
	maxWritten uint32 // highest register written in the current frame

	frames  []frame
	returns []Reg // destinations of pending returns

	natives []Native
	args    []Value // scratch for native arguments

	stack     []byte
	stackSize uint32
}

// NewInterpreter returns an interpreter with the given limits and native
// table.
func NewInterpreter(lim Limits, natives []Native) *Interpreter {
	if lim.Registers <= 0 {
		lim.Registers = DefaultLimits.Registers
	}
	if lim.Frames <= 0 {
		lim.Frames = DefaultLimits.Frames
	}
	if lim.Returns <= 0 {
		lim.Returns = DefaultLimits.Returns
	}
	if lim.Stack <= 0 {
		lim.Stack = DefaultLimits.Stack
	}
	return &Interpreter{
		registers: make([]Value, lim.Registers),
		frames:    make([]frame, 0, lim.Frames),
		returns:   make([]Reg, 0, lim.Returns),
		natives:   natives,
		args:      make([]Value, 0, 255),
		stack:     make([]byte, lim.Stack),
	}
}

// Load sets the code to execute. The interpreter keeps a reference.
func (in *Interpreter) Load(code []byte) { in.code = code }

// SetNatives replaces the native procedure table.
func (in *Interpreter) SetNatives(natives []Native) { in.natives = natives }

// Reset prepares a run starting at pc in a single outermost frame with
// base register zero.
func (in *Interpreter) Reset(pc uint32) {
	in.pc = pc
	in.flags = 0
	in.returns = in.returns[:0]
	in.maxWritten = 0
	in.stackSize = 0
	in.frames = append(in.frames[:0], frame{})
}

// SetInput writes the absolute register index. Inputs of the outermost
// frame are its registers 0..n-1.
func (in *Interpreter) SetInput(index uint32, v Value) bool {
	if int(index) >= len(in.registers) {
		return false
	}
	in.registers[index] = v
	if index > in.maxWritten {
		in.maxWritten = index
	}
	return true
}

// PushOutput names the register receiving the next value returned by the
// outermost frame. Push one register per result.
func (in *Interpreter) PushOutput(r Reg) bool {
	if len(in.returns) == cap(in.returns) {
		return false
	}
	in.returns = append(in.returns, r)
	return true
}

// Register returns the absolute register index.
func (in *Interpreter) Register(index uint32) Value {
	if int(index) >= len(in.registers) {
		return 0
	}
	return in.registers[index]
}

// Flags returns the halt flags.
func (in *Interpreter) Flags() Flags { return in.flags }

// PC returns the program counter.
func (in *Interpreter) PC() uint32 { return in.pc }

// Run steps until the interpreter halts or maxSteps instructions have
// executed. It returns the number of steps taken. A run that ends without
// the Done flag returns ErrStepLimit or a *HaltError.
func (in *Interpreter) Run(maxSteps int) (int, error) {
	steps := 0
	for steps < maxSteps {
		steps++
		if !in.Step() {
			if in.flags&Done != 0 {
				return steps, nil
			}
			return steps, &HaltError{Flags: in.flags, PC: in.pc}
		}
	}
	return steps, ErrStepLimit
}

func (in *Interpreter) halt(f Flags) bool {
	in.flags |= f
	return false
}

func (in *Interpreter) u8() (uint8, bool) {
	if uint64(in.pc)+1 > uint64(len(in.code)) {
		return 0, in.halt(Incomplete)
	}
	v := in.code[in.pc]
	in.pc++
	return v, true
}

func (in *Interpreter) u32() (uint32, bool) {
	if uint64(in.pc)+4 > uint64(len(in.code)) {
		return 0, in.halt(Incomplete)
	}
	v := binary.LittleEndian.Uint32(in.code[in.pc:])
	in.pc += 4
	return v, true
}

func (in *Interpreter) u64() (uint64, bool) {
	if uint64(in.pc)+8 > uint64(len(in.code)) {
		return 0, in.halt(Incomplete)
	}
	v := binary.LittleEndian.Uint64(in.code[in.pc:])
	in.pc += 8
	return v, true
}

func (in *Interpreter) value(t Type) (Value, bool) {
	if !t.valid() {
		return 0, in.halt(Invalid)
	}
	n := t.Size()
	if uint64(in.pc)+uint64(n) > uint64(len(in.code)) {
		return 0, in.halt(Incomplete)
	}
	v := readValue(in.code[in.pc:], t)
	in.pc += n
	return v, true
}

func (in *Interpreter) reg() (Reg, bool) {
	if uint64(in.pc)+4 > uint64(len(in.code)) {
		return 0, in.halt(Incomplete)
	}
	r := binary.LittleEndian.Uint32(in.code[in.pc:])
	if int(r) >= len(in.registers) {
		return 0, in.halt(Invalid)
	}
	in.pc += 4
	return Reg(r), true
}

func (in *Interpreter) base() uint32 { return in.frames[len(in.frames)-1].base }

func (in *Interpreter) read(r Reg) (Value, bool) {
	i := uint64(in.base()) + uint64(r)
	if i >= uint64(len(in.registers)) {
		return 0, in.halt(Invalid)
	}
	return in.registers[i], true
}

func (in *Interpreter) write(r Reg, v Value) bool {
	i := uint64(in.base()) + uint64(r)
	if i >= uint64(len(in.registers)) {
		return in.halt(Invalid)
	}
	in.use(r)
	in.registers[i] = v
	return true
}

func (in *Interpreter) use(r Reg) {
	if uint32(r) > in.maxWritten {
		in.maxWritten = uint32(r)
	}
}

// Step executes one instruction. It returns false once the interpreter has
// halted; Flags tells why.
func (in *Interpreter) Step() bool {
	if in.flags != 0 {
		return false
	}
	if len(in.frames) == 0 {
		return in.halt(Invalid)
	}
	if in.pc >= uint32(len(in.code)) {
		return in.halt(Overflow)
	}
	op := Op(in.code[in.pc])
	in.pc++

	switch op {
	case OpNop:

	case OpLoadConstant:
		dst, ok := in.reg()
		if !ok {
			return false
		}
		t, ok := in.u8()
		if !ok {
			return false
		}
		v, ok := in.value(Type(t))
		if !ok {
			return false
		}
		return in.write(dst, v)

	case OpAdd, OpSub, OpMul, OpDiv:
		dst, t, _, a, b, ok := in.binaryOperands(false)
		if !ok {
			return false
		}
		v, ok := compute(op, t, a, b)
		if !ok {
			return in.halt(Invalid)
		}
		return in.write(dst, v)

	case OpCompare:
		dst, t, c, a, b, ok := in.binaryOperands(true)
		if !ok {
			return false
		}
		if c > NE {
			return in.halt(Invalid)
		}
		return in.write(dst, compare(c, t, a, b))

	case OpBranch:
		loc, ok := in.u32()
		if !ok {
			return false
		}
		src, ok := in.reg()
		if !ok {
			return false
		}
		v, ok := in.read(src)
		if !ok {
			return false
		}
		if v.U8() != 0 {
			in.pc = loc
		}

	case OpJump:
		loc, ok := in.u32()
		if !ok {
			return false
		}
		in.pc = loc

	case OpCall:
		return in.call()

	case OpReturn:
		return in.ret()

	case OpNativeCall:
		return in.nativeCall()

	case OpLoad, OpStore:
		r, ok := in.reg()
		if !ok {
			return false
		}
		t, ok := in.u8()
		if !ok {
			return false
		}
		addr, off, ok := in.address(Type(t))
		if !ok {
			return false
		}
		if op == OpLoad {
			return in.write(r, readValue(in.stack[addr+off:], Type(t)))
		}
		v, ok := in.read(r)
		if !ok {
			return false
		}
		storeValue(in.stack[addr+off:], Type(t), v)

	case OpCheckAddress:
		t, ok := in.u8()
		if !ok {
			return false
		}
		if _, _, ok := in.address(Type(t)); !ok {
			return false
		}

	case OpStackAlloc:
		dst, ok := in.reg()
		if !ok {
			return false
		}
		size, ok := in.u32()
		if !ok {
			return false
		}
		if uint64(in.stackSize)+uint64(size) > uint64(len(in.stack)) {
			return in.halt(Invalid)
		}
		addr := in.stackSize
		in.stackSize += size
		return in.write(dst, Value(addr))

	case OpStackFree:
		size, ok := in.u32()
		if !ok {
			return false
		}
		if size > in.stackSize {
			return in.halt(Invalid)
		}
		in.stackSize -= size

	default:
		return in.halt(Incomplete)
	}
	return true
}

// binaryOperands decodes the shared layout of math and compare
// instructions. For compare the comparison byte follows the type.
func (in *Interpreter) binaryOperands(isCompare bool) (dst Reg, t Type, c Cmp, a, b Value, ok bool) {
	if dst, ok = in.reg(); !ok {
		return
	}
	var raw uint8
	if raw, ok = in.u8(); !ok {
		return
	}
	imm := Type(raw)&immediate != 0
	t = Type(raw) &^ immediate
	if !t.valid() {
		ok = in.halt(Invalid)
		return
	}
	if isCompare {
		var raw uint8
		if raw, ok = in.u8(); !ok {
			return
		}
		c = Cmp(raw)
	}
	var r Reg
	if r, ok = in.reg(); !ok {
		return
	}
	if a, ok = in.read(r); !ok {
		return
	}
	if imm {
		b, ok = in.value(t)
		return
	}
	if r, ok = in.reg(); !ok {
		return
	}
	b, ok = in.read(r)
	return
}

// address decodes [addr]:32 [offset]:32 and checks that a t-sized access
// fits in the allocated part of the scratch stack.
func (in *Interpreter) address(t Type) (addr, off uint32, ok bool) {
	if !t.valid() {
		return 0, 0, in.halt(Invalid)
	}
	r, ok := in.reg()
	if !ok {
		return 0, 0, false
	}
	off, ok = in.u32()
	if !ok {
		return 0, 0, false
	}
	v, ok := in.read(r)
	if !ok {
		return 0, 0, false
	}
	end := v.U64() + uint64(off) + uint64(t.Size())
	if end > uint64(in.stackSize) {
		return 0, 0, in.halt(Invalid)
	}
	return uint32(v.U64()), off, true
}

func (in *Interpreter) call() bool {
	loc, ok := in.u32()
	if !ok {
		return false
	}
	retCount, ok := in.u8()
	if !ok {
		return false
	}
	argCount, ok := in.u8()
	if !ok {
		return false
	}
	if len(in.frames) == cap(in.frames) || len(in.returns)+int(retCount) > cap(in.returns) {
		return in.halt(Invalid)
	}

	// Results are popped in order by RETURN, so the first result register
	// goes on top of the stack.
	n := len(in.returns)
	in.returns = in.returns[:n+int(retCount)]
	for i := range int(retCount) {
		r, ok := in.reg()
		if !ok {
			return false
		}
		in.returns[n+int(retCount)-1-i] = r
		in.use(r)
	}

	base := in.base()
	procBase := uint64(base) + uint64(in.maxWritten) + 1
	if procBase+uint64(argCount) > uint64(len(in.registers)) {
		return in.halt(Invalid)
	}
	for i := range uint64(argCount) {
		r, ok := in.reg()
		if !ok {
			return false
		}
		v, ok := in.read(r)
		if !ok {
			return false
		}
		in.registers[procBase+i] = v
	}

	in.frames = append(in.frames, frame{base: uint32(procBase), ret: in.pc, maxWritten: in.maxWritten})
	in.maxWritten = 0
	if argCount > 0 {
		in.maxWritten = uint32(argCount) - 1
	}
	in.pc = loc
	return true
}

func (in *Interpreter) ret() bool {
	count, ok := in.u8()
	if !ok {
		return false
	}
	var retBase uint32
	if len(in.frames) > 1 {
		retBase = in.frames[len(in.frames)-2].base
	}
	for range int(count) {
		src, ok := in.reg()
		if !ok {
			return false
		}
		v, ok := in.read(src)
		if !ok {
			return false
		}
		if len(in.returns) == 0 {
			return in.halt(Invalid)
		}
		dst := in.returns[len(in.returns)-1]
		in.returns = in.returns[:len(in.returns)-1]
		i := uint64(retBase) + uint64(dst)
		if i >= uint64(len(in.registers)) {
			return in.halt(Invalid)
		}
		in.registers[i] = v
	}

	top := in.frames[len(in.frames)-1]
	in.frames = in.frames[:len(in.frames)-1]
	if len(in.frames) == 0 {
		return in.halt(Done)
	}
	in.maxWritten = top.maxWritten
	in.pc = top.ret
	return true
}

func (in *Interpreter) nativeCall() bool {
	index, ok := in.u64()
	if !ok {
		return false
	}
	useDst, ok := in.u8()
	if !ok {
		return false
	}
	var dst Reg
	if useDst != 0 {
		if dst, ok = in.reg(); !ok {
			return false
		}
	}
	count, ok := in.u8()
	if !ok {
		return false
	}
	in.args = in.args[:0]
	for range int(count) {
		r, ok := in.reg()
		if !ok {
			return false
		}
		v, ok := in.read(r)
		if !ok {
			return false
		}
		in.args = append(in.args, v)
	}
	if index >= uint64(len(in.natives)) || in.natives[index].Func == nil {
		return in.halt(Invalid)
	}
	result := in.natives[index].Func(in.args)
	if useDst != 0 {
		return in.write(dst, result)
	}
	return true
}
