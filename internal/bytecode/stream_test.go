package bytecode

import (
	"bytes"
	"errors"
	"testing"

	"github.com/nalgeon/be"
)

func TestStreamLayout(t *testing.T) {
	tests := []struct {
		name string
		emit func(s *Stream)
		want []byte
	}{
		{
			name: "load_constant",
			emit: func(s *Stream) { s.LoadConstant(S32, 2, MakeS32(-1)) },
			want: []byte{1, 2, 0, 0, 0, 6, 0xff, 0xff, 0xff, 0xff},
		},
		{
			name: "math registers",
			emit: func(s *Stream) { s.Math(OpAdd, U16, 7, 4, 6) },
			want: []byte{2, 7, 0, 0, 0, 1, 4, 0, 0, 0, 6, 0, 0, 0},
		},
		{
			name: "math immediate",
			emit: func(s *Stream) { s.MathValue(OpSub, S32, 3, 0, MakeS32(1)) },
			want: []byte{3, 3, 0, 0, 0, 0x86, 0, 0, 0, 0, 1, 0, 0, 0},
		},
		{
			name: "compare",
			emit: func(s *Stream) { s.Compare(U8, EQ, 1, 2, 3) },
			want: []byte{6, 1, 0, 0, 0, 0, 4, 2, 0, 0, 0, 3, 0, 0, 0},
		},
		{
			name: "compare immediate",
			emit: func(s *Stream) { s.CompareValue(U8, LT, 1, 0, 9) },
			want: []byte{6, 1, 0, 0, 0, 0x80, 0, 0, 0, 0, 0, 9},
		},
		{
			name: "jump",
			emit: func(s *Stream) { s.JumpTo(0x0102) },
			want: []byte{8, 2, 1, 0, 0},
		},
		{
			name: "call",
			emit: func(s *Stream) { s.CallTo(0, []Reg{4}, []Reg{3, 5}) },
			want: []byte{9, 0, 0, 0, 0, 1, 2, 4, 0, 0, 0, 3, 0, 0, 0, 5, 0, 0, 0},
		},
		{
			name: "return",
			emit: func(s *Stream) { s.Return(7) },
			want: []byte{10, 1, 7, 0, 0, 0},
		},
		{
			name: "native_call",
			emit: func(s *Stream) { s.NativeCall(3, true, 2, []Reg{0, 1}) },
			want: []byte{11, 3, 0, 0, 0, 0, 0, 0, 0, 1, 2, 0, 0, 0, 2, 0, 0, 0, 0, 1, 0, 0, 0},
		},
		{
			name: "native_call without result",
			emit: func(s *Stream) { s.NativeCall(0, false, 0, nil) },
			want: []byte{11, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		},
		{
			name: "store",
			emit: func(s *Stream) { s.Store(1, U32, 0, 4) },
			want: []byte{13, 1, 0, 0, 0, 2, 0, 0, 0, 0, 4, 0, 0, 0},
		},
		{
			name: "check_address",
			emit: func(s *Stream) { s.CheckAddress(U64, 2, 8) },
			want: []byte{99, 3, 2, 0, 0, 0, 8, 0, 0, 0},
		},
		{
			name: "stack",
			emit: func(s *Stream) { s.StackAlloc(1, 16); s.StackFree(16) },
			want: []byte{14, 1, 0, 0, 0, 16, 0, 0, 0, 15, 16, 0, 0, 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Stream
			tt.emit(&s)
			be.Err(t, s.Err(), nil)
			be.Equal(t, s.Bytes(), tt.want)
		})
	}
}

func TestStreamBranchPatch(t *testing.T) {
	var s Stream
	patch := s.Branch(5)
	be.Equal(t, patch, uint32(1))
	be.Equal(t, s.Bytes(), []byte{7, 0xff, 0xff, 0xff, 0xff, 5, 0, 0, 0})

	be.Err(t, s.SetBranch(patch, 0x10), nil)
	be.Equal(t, s.Bytes()[:5], []byte{7, 0x10, 0, 0, 0})

	be.Err(t, s.SetBranch(s.Len(), 0), ErrBranch)
	be.Err(t, s.SetBranch(s.Len()-1, 0), ErrBranch)
}

func TestStreamErrors(t *testing.T) {
	var s Stream
	s.Call(nil, make([]Reg, 300))
	if !errors.Is(s.Err(), ErrOperands) {
		t.Errorf("Err() = %v, want ErrOperands", s.Err())
	}

	s.Reset()
	be.Equal(t, s.Len(), uint32(0))
	be.Err(t, s.Err(), nil)

	s.Math(OpCompare, S32, 0, 1, 2)
	be.Err(t, s.Err(), "not an arithmetic operation")

	s.Reset()
	s.LoadConstant(Type(12), 0, 0)
	be.Err(t, s.Err(), "invalid type")
}

func TestDecode(t *testing.T) {
	var s Stream
	s.CompareValue(S32, GT, 1, 0, MakeS32(2))
	s.Call([]Reg{4}, []Reg{3})
	s.Load(2, U16, 0, 6)

	code := s.Bytes()
	in, next, err := Decode(code, 0)
	be.Err(t, err, nil)
	be.Equal(t, in.Op, OpCompare)
	be.Equal(t, in.Type, S32)
	be.Equal(t, in.Cmp, GT)
	be.True(t, in.Imm)
	be.Equal(t, in.Value.S32(), int32(2))

	in, next, err = Decode(code, next)
	be.Err(t, err, nil)
	be.Equal(t, in.Op, OpCall)
	be.Equal(t, in.Loc, uint32(Placeholder))
	be.Equal(t, in.Rets, []Reg{4})
	be.Equal(t, in.Args, []Reg{3})

	in, next, err = Decode(code, next)
	be.Err(t, err, nil)
	be.Equal(t, in.Op, OpLoad)
	be.Equal(t, in.Dst, Reg(2))
	be.Equal(t, in.Offset, uint32(6))
	be.Equal(t, next, s.Len())

	_, _, err = Decode(code[:len(code)-1], in.PC)
	be.Err(t, err, ErrTruncated)
	_, _, err = Decode([]byte{200}, 0)
	be.Err(t, err, ErrUnknownOp)
}

func TestDisassemble(t *testing.T) {
	code := fibCode(t)
	var buf bytes.Buffer
	be.Err(t, Disassemble(&buf, code, nil), nil)
	want := "" +
		"0000  %1 <- compare.gt.s32 %0, 2\n" +
		"000f  branch %1 {0x0028}\n" +
		"0018  %2 <- load_constant.s32 1\n" +
		"0022  ret %2\n" +
		"0028  %3 <- sub.s32 %0, 1\n" +
		"0036  %4 <- call {0x0000} (%3)\n" +
		"0045  %5 <- sub.s32 %0, 2\n" +
		"0053  %6 <- call {0x0000} (%5)\n" +
		"0062  %7 <- add.s32 %4, %6\n" +
		"0070  ret %7\n"
	be.Equal(t, buf.String(), want)

	buf.Reset()
	err := Disassemble(&buf, []byte{1, 0}, nil)
	be.Err(t, err, ErrTruncated)
}

func TestDisassembleNatives(t *testing.T) {
	var s Stream
	s.NativeCall(0, true, 2, []Reg{0, 1})
	s.NativeCall(5, false, 0, nil)
	var buf bytes.Buffer
	be.Err(t, Disassemble(&buf, s.Bytes(), []Native{{Name: "print"}}), nil)
	be.Equal(t, buf.String(), ""+
		"0000  %2 <- native_call {print} (%0, %1)\n"+
		"0017  native_call {#5} ()\n")
}

func TestWriteC(t *testing.T) {
	var buf bytes.Buffer
	err := WriteC(&buf, Def{
		Name: "fib",
		Code: fibCode(t),
		In:   []Type{S32},
		Out:  []Type{S32},
	})
	be.Err(t, err, nil)
	want := "" +
		"int32_t fib(int32_t __0) {\n" +
		"    uint8_t __1;\n" +
		"    int32_t __2;\n" +
		"    int32_t __3;\n" +
		"    int32_t __4;\n" +
		"    int32_t __5;\n" +
		"    int32_t __6;\n" +
		"    int32_t __7;\n" +
		"    __1 = __0 > 2;\n" +
		"    if (__1) goto __loc_0;\n" +
		"    __2 = 1;\n" +
		"    return __2;\n" +
		"__loc_0:\n" +
		"    __3 = __0 - 1;\n" +
		"    __4 = fib(__3);\n" +
		"    __5 = __0 - 2;\n" +
		"    __6 = fib(__5);\n" +
		"    __7 = __4 + __6;\n" +
		"    return __7;\n" +
		"}\n"
	be.Equal(t, buf.String(), want)
}
