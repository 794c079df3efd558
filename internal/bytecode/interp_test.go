package bytecode

import (
	"errors"
	"math"
	"testing"

	"github.com/nalgeon/be"
)

// fibCode returns a recursive fibonacci procedure at location zero taking
// an s32 in register 0.
func fibCode(t *testing.T) []byte {
	t.Helper()
	var s Stream
	s.CompareValue(S32, GT, 1, 0, MakeS32(2))
	patch := s.Branch(1)
	s.LoadConstant(S32, 2, MakeS32(1))
	s.Return(2)
	be.Err(t, s.SetBranch(patch, s.Len()), nil)
	s.MathValue(OpSub, S32, 3, 0, MakeS32(1))
	s.CallTo(0, []Reg{4}, []Reg{3})
	s.MathValue(OpSub, S32, 5, 0, MakeS32(2))
	s.CallTo(0, []Reg{6}, []Reg{5})
	s.Math(OpAdd, S32, 7, 4, 6)
	s.Return(7)
	be.Err(t, s.Err(), nil)
	return s.Bytes()
}

// run executes code from location zero with the given inputs and one
// output in register 0.
func run(t *testing.T, in *Interpreter, code []byte, inputs ...Value) (Value, error) {
	t.Helper()
	in.Load(code)
	in.Reset(0)
	be.True(t, in.PushOutput(0))
	for i, v := range inputs {
		be.True(t, in.SetInput(uint32(i), v))
	}
	_, err := in.Run(1000)
	return in.Register(0), err
}

func TestFibonacci(t *testing.T) {
	code := fibCode(t)
	in := NewInterpreter(Limits{}, nil)
	want := []int32{1, 1, 2, 3, 5, 8, 13, 21}
	for i, w := range want {
		n := int32(i + 1)
		got, err := run(t, in, code, MakeS32(n))
		be.Err(t, err, nil)
		be.Equal(t, in.Flags(), Done)
		if got.S32() != w {
			t.Errorf("fib(%d) = %d, want %d", n, got.S32(), w)
		}
	}
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name string
		t    Type
		op   Op
		a, b Value
		want Value
	}{
		{"add u8 wraps", U8, OpAdd, 250, 10, 4},
		{"sub u32 wraps", U32, OpSub, 0, 1, 0xFFFFFFFF},
		{"mul s16", S16, OpMul, MakeS16(-3), MakeS16(7), MakeS16(-21)},
		{"div s32 truncates", S32, OpDiv, MakeS32(-7), MakeS32(2), MakeS32(-3)},
		{"div u64", U64, OpDiv, 1 << 40, 1 << 8, 1 << 32},
		{"add s8 wraps", S8, OpAdd, MakeS8(127), MakeS8(1), MakeS8(-128)},
		{"mul f32", F32, OpMul, MakeF32(1.5), MakeF32(2), MakeF32(3)},
		{"div f64", F64, OpDiv, MakeF64(1), MakeF64(4), MakeF64(0.25)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Stream
			s.LoadConstant(tt.t, 1, tt.a)
			s.MathValue(tt.op, tt.t, 2, 1, tt.b)
			s.Return(2)
			got, err := run(t, NewInterpreter(Limits{}, nil), s.Bytes())
			be.Err(t, err, nil)
			be.Equal(t, got.Truncate(tt.t), tt.want.Truncate(tt.t))
		})
	}
}

func TestCompare(t *testing.T) {
	nan := MakeF64(math.NaN())
	tests := []struct {
		name string
		t    Type
		c    Cmp
		a, b Value
		want Value
	}{
		{"signed lt", S32, LT, MakeS32(-1), MakeS32(1), 1},
		{"unsigned lt", U32, LT, MakeS32(-1), 1, 0},
		{"ge equal", S64, GE, 5, 5, 1},
		{"gt", U8, GT, 9, 3, 1},
		{"le", S8, LE, MakeS8(-4), MakeS8(-5), 0},
		{"eq f32", F32, EQ, MakeF32(0.5), MakeF32(0.5), 1},
		{"ne", U16, NE, 1, 2, 1},
		{"nan eq", F64, EQ, nan, nan, 0},
		{"nan ne", F64, NE, nan, nan, 1},
		{"nan lt", F64, LT, nan, MakeF64(1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Stream
			s.LoadConstant(tt.t, 1, tt.a)
			s.LoadConstant(tt.t, 2, tt.b)
			s.Compare(tt.t, tt.c, 3, 1, 2)
			s.Return(3)
			got, err := run(t, NewInterpreter(Limits{}, nil), s.Bytes())
			be.Err(t, err, nil)
			be.Equal(t, got, tt.want)
		})
	}
}

func TestDivideByZero(t *testing.T) {
	var s Stream
	s.LoadConstant(S32, 1, MakeS32(1))
	s.MathValue(OpDiv, S32, 2, 1, 0)
	s.Return(2)
	in := NewInterpreter(Limits{}, nil)
	_, err := run(t, in, s.Bytes())

	var halt *HaltError
	be.True(t, errors.As(err, &halt))
	be.Equal(t, halt.Flags, Invalid)
	be.Equal(t, in.Flags()&Done, Flags(0))
}

func TestScratchStack(t *testing.T) {
	var s Stream
	s.StackAlloc(1, 16)
	s.LoadConstant(U32, 2, 0xdeadbeef)
	s.Store(2, U32, 1, 4)
	s.CheckAddress(U64, 1, 8)
	s.Load(3, U32, 1, 4)
	s.Load(4, U8, 1, 5)
	s.Math(OpAdd, U32, 0, 3, 4)
	s.StackFree(16)
	s.Return(0)
	got, err := run(t, NewInterpreter(Limits{}, nil), s.Bytes())
	be.Err(t, err, nil)
	be.Equal(t, got, Value(0xdeadbeef+0xbe))
}

func TestScratchStackBounds(t *testing.T) {
	tests := []struct {
		name string
		emit func(s *Stream)
	}{
		{"load past allocation", func(s *Stream) {
			s.StackAlloc(1, 16)
			s.Load(2, U64, 1, 12)
		}},
		{"store without allocation", func(s *Stream) {
			s.LoadConstant(U32, 1, 0)
			s.Store(1, U8, 1, 0)
		}},
		{"check address", func(s *Stream) {
			s.StackAlloc(1, 4)
			s.CheckAddress(U32, 1, 1)
		}},
		{"allocate past limit", func(s *Stream) {
			s.StackAlloc(1, 128)
		}},
		{"free more than allocated", func(s *Stream) {
			s.StackAlloc(1, 8)
			s.StackFree(9)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Stream
			tt.emit(&s)
			s.Return()
			in := NewInterpreter(Limits{Stack: 64}, nil)
			_, err := run(t, in, s.Bytes())
			be.True(t, err != nil)
			be.Equal(t, in.Flags(), Invalid)
		})
	}
}

func TestNativeCall(t *testing.T) {
	var printed []Value
	natives := []Native{
		{Name: "add", Func: func(args []Value) Value { return args[0] + args[1] }},
		{Name: "print", Func: func(args []Value) Value {
			printed = append(printed, args...)
			return 0
		}},
	}

	var s Stream
	s.LoadConstant(U64, 1, 40)
	s.LoadConstant(U64, 2, 2)
	s.NativeCall(0, true, 3, []Reg{1, 2})
	s.NativeCall(1, false, 0, []Reg{3})
	s.Return(3)
	got, err := run(t, NewInterpreter(Limits{}, natives), s.Bytes())
	be.Err(t, err, nil)
	be.Equal(t, got, Value(42))
	be.Equal(t, printed, []Value{42})

	s.Reset()
	s.NativeCall(7, false, 0, nil)
	s.Return()
	in := NewInterpreter(Limits{}, natives)
	_, err = run(t, in, s.Bytes())
	be.True(t, err != nil)
	be.Equal(t, in.Flags(), Invalid)
}

func TestHaltFlags(t *testing.T) {
	t.Run("overflow", func(t *testing.T) {
		var s Stream
		s.LoadConstant(U8, 1, 1)
		in := NewInterpreter(Limits{}, nil)
		_, err := run(t, in, s.Bytes())
		be.Err(t, err, "overflow")
		be.Equal(t, in.Flags(), Overflow)
	})
	t.Run("truncated", func(t *testing.T) {
		in := NewInterpreter(Limits{}, nil)
		_, err := run(t, in, []byte{byte(OpLoadConstant), 0})
		be.True(t, err != nil)
		be.Equal(t, in.Flags(), Incomplete)
	})
	t.Run("unknown opcode", func(t *testing.T) {
		in := NewInterpreter(Limits{}, nil)
		_, err := run(t, in, []byte{200})
		be.True(t, err != nil)
		be.Equal(t, in.Flags(), Incomplete)
	})
	t.Run("register limit", func(t *testing.T) {
		var s Stream
		s.LoadConstant(U8, 10, 1)
		in := NewInterpreter(Limits{Registers: 4}, nil)
		_, err := run(t, in, s.Bytes())
		be.True(t, err != nil)
		be.Equal(t, in.Flags(), Invalid)
	})
	t.Run("frame limit", func(t *testing.T) {
		var s Stream
		s.CallTo(0, nil, nil)
		in := NewInterpreter(Limits{Frames: 4}, nil)
		_, err := run(t, in, s.Bytes())
		be.True(t, err != nil)
		be.Equal(t, in.Flags(), Invalid)
	})
	t.Run("flags are sticky until reset", func(t *testing.T) {
		in := NewInterpreter(Limits{}, nil)
		in.Load([]byte{200})
		in.Reset(0)
		be.True(t, !in.Step())
		be.True(t, !in.Step())
		be.Equal(t, in.Flags(), Incomplete)
		in.Load([]byte{byte(OpNop)})
		in.Reset(0)
		be.Equal(t, in.Flags(), Flags(0))
		be.True(t, in.Step())
	})
}

func TestStepLimit(t *testing.T) {
	var s Stream
	s.JumpTo(0)
	in := NewInterpreter(Limits{}, nil)
	in.Load(s.Bytes())
	in.Reset(0)
	steps, err := in.Run(10)
	be.Err(t, err, ErrStepLimit)
	be.Equal(t, steps, 10)
	be.Equal(t, in.Flags(), Flags(0))
}

func TestMultipleResults(t *testing.T) {
	// swap returns its two arguments in reverse order.
	var s Stream
	entry := s.Jump()
	swap := s.Len()
	s.Return(1, 0)
	be.Err(t, s.SetBranch(entry, s.Len()), nil)
	s.LoadConstant(U32, 0, 1)
	s.LoadConstant(U32, 1, 2)
	s.CallTo(swap, []Reg{2, 3}, []Reg{0, 1})
	s.Math(OpSub, U32, 4, 2, 3)
	s.Return(4)

	got, err := run(t, NewInterpreter(Limits{}, nil), s.Bytes())
	be.Err(t, err, nil)
	be.Equal(t, got, Value(1))
}

func TestFlagsString(t *testing.T) {
	be.Equal(t, Flags(0).String(), "running")
	be.Equal(t, (Done | Invalid).String(), "done|invalid")
}
