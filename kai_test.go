package kai

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/you-not-fish/kai/internal/bytecode"
	"github.com/you-not-fish/kai/internal/diag"
	"github.com/you-not-fish/kai/internal/types"
)

func compile(t *testing.T, src string, imports ...Import) (*Program, error) {
	t.Helper()
	return CreateProgram([]Source{{Name: "test.kai", Contents: []byte(src)}}, imports, DefaultOptions())
}

func mustCompile(t *testing.T, src string, imports ...Import) *Program {
	t.Helper()
	p, err := compile(t, src, imports...)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return p
}

func TestImportedIntegers(t *testing.T) {
	p := mustCompile(t, "result: s32 : A + B;",
		Import{Name: "A", Type: "s32", Value: 2},
		Import{Name: "B", Type: "s32", Value: 3})

	data, typ, ok := p.FindVariable("result")
	be.True(t, ok)
	be.True(t, typ == types.S32)
	be.Equal(t, len(data), 4)
	be.Equal(t, int32(binary.LittleEndian.Uint32(data)), int32(5))

	v, err := p.Value("result")
	be.Err(t, err, nil)
	be.Equal(t, v, any(int64(5)))

	_, _, ok = p.FindVariable("A")
	be.True(t, !ok)
}

func TestImportedFloat(t *testing.T) {
	p := mustCompile(t, "result: f32 : pi + 0.8584073464102069;",
		Import{Name: "pi", Type: "f32", Value: float32(3.1415926535897931)})
	data, typ, ok := p.FindVariable("result")
	be.True(t, ok)
	be.True(t, typ == types.F32)
	be.Equal(t, math.Float32frombits(binary.LittleEndian.Uint32(data)), float32(4.0))
}

func TestVariables(t *testing.T) {
	p := mustCompile(t, `
b :: 2;
a: s64 : b * 3;
name :: "kai";
`)
	be.Equal(t, p.Variables(), []string{"a", "b", "name"})
	v, err := p.Value("a")
	be.Err(t, err, nil)
	be.Equal(t, v, any(int64(6)))
	v, err = p.Value("name")
	be.Err(t, err, nil)
	be.Equal(t, v, any("kai"))

	_, err = p.Value("missing")
	be.True(t, errors.Is(err, ErrNotFound))
}

const fibSource = `
fib :: (n: s64) -> s64 {
	if n < 2 ret n;
	ret fib(n - 1) + fib(n - 2);
}
x :: fib(10);
`

func TestFindProcedure(t *testing.T) {
	p := mustCompile(t, fibSource)

	proc, err := p.FindProcedure("fib", "(s64) -> s64")
	be.Err(t, err, nil)
	be.Equal(t, proc.Name, "fib")
	be.True(t, proc.HasCode)

	_, err = p.FindProcedure("fib", "(s32) -> s32")
	be.True(t, errors.Is(err, ErrNotFound))
	_, err = p.FindProcedure("fob", "(s64) -> s64")
	be.True(t, errors.Is(err, ErrNotFound))
	_, err = p.FindProcedure("x", "(s64) -> s64")
	be.True(t, errors.Is(err, ErrNotFound))

	found, err := p.FindProcedure("fib", "")
	be.Err(t, err, nil)
	be.True(t, found == proc)
	_, err = p.FindProcedure("fob", "")
	be.True(t, errors.Is(err, ErrNotFound))
}

func TestTypeHash(t *testing.T) {
	p := mustCompile(t, fibSource)
	proc, err := p.FindProcedure("fib", "")
	be.Err(t, err, nil)

	h, err := p.TypeHash("(s64) -> s64")
	be.Err(t, err, nil)
	be.Equal(t, h, types.Hash(proc.Type))

	other, err := p.TypeHash("(s32) -> s32")
	be.Err(t, err, nil)
	be.True(t, other != h)

	_, err = p.TypeHash("(s64 ->")
	be.Equal(t, diag.KindOf(err), diag.Syntax)
}

func TestCall(t *testing.T) {
	p := mustCompile(t, fibSource)
	v, err := p.Value("x")
	be.Err(t, err, nil)
	be.Equal(t, v, any(int64(55)))

	v, err = p.Call("fib", 12)
	be.Err(t, err, nil)
	be.Equal(t, v, any(int64(144)))

	_, err = p.Call("fib")
	be.True(t, err != nil)
	_, err = p.Call("fib", "twenty")
	be.True(t, err != nil)
}

func TestCallStepLimit(t *testing.T) {
	p := mustCompile(t, fibSource)
	_, err := p.Call("fib", 30)
	be.True(t, errors.Is(err, bytecode.ErrStepLimit))

	opts := DefaultOptions()
	opts.MaxSteps = 1 << 24
	p, err = CreateProgram([]Source{{Name: "test.kai", Contents: []byte(fibSource)}}, nil, opts)
	be.Err(t, err, nil)
	v, err := p.Call("fib", 20)
	be.Err(t, err, nil)
	be.Equal(t, v, any(int64(6765)))
}

func TestNativeOption(t *testing.T) {
	opts := DefaultOptions()
	opts.Natives = map[string]bytecode.NativeFunc{
		"triple": func(args []bytecode.Value) bytecode.Value {
			return bytecode.MakeS32(args[0].S32() * 3)
		},
	}
	p, err := CreateProgram([]Source{{Name: "n.kai", Contents: []byte(`
triple :: (x: s32) -> s32 #native;
nine :: triple(3);
`)}}, nil, opts)
	be.Err(t, err, nil)
	v, err := p.Value("nine")
	be.Err(t, err, nil)
	be.Equal(t, v, any(int64(9)))
}

func TestCodeGenerationRequested(t *testing.T) {
	opts := DefaultOptions()
	opts.Flags &^= NoCodeGen
	_, err := CreateProgram([]Source{{Name: "a.kai", Contents: []byte("x :: 1;")}}, nil, opts)
	be.True(t, err != nil)
	be.Equal(t, diag.KindOf(err), diag.Fatal)
	be.True(t, strings.Contains(err.Error(), "Code generation not currently supported"))
}

func TestSyntaxError(t *testing.T) {
	_, err := compile(t, "x :: (1 + ;")
	be.True(t, err != nil)
	be.Equal(t, diag.KindOf(err), diag.Syntax)

	_, err = compile(t, "x :: A;", Import{Name: "A", Type: "s32 +", Value: 1})
	be.True(t, err != nil)
	be.Equal(t, diag.KindOf(err), diag.Syntax)
}

func TestSemanticError(t *testing.T) {
	_, err := compile(t, "x: bool : 1 + 2;")
	be.True(t, err != nil)
	be.Equal(t, diag.KindOf(err), diag.Semantic)
}

func TestListings(t *testing.T) {
	p := mustCompile(t, fibSource)

	var asm bytes.Buffer
	be.Err(t, p.Disassemble(&asm), nil)
	be.True(t, strings.Contains(asm.String(), "fib (s64) -> (s64)"))
	be.True(t, strings.Contains(asm.String(), "ret"))

	var c bytes.Buffer
	be.Err(t, p.WriteC(&c), nil)
	be.True(t, strings.Contains(c.String(), "int64_t fib(int64_t __0) {"))
}

func TestMultipleSources(t *testing.T) {
	p, err := CreateProgram([]Source{
		{Name: "a.kai", Contents: []byte("a: s64 : b + 1;")},
		{Name: "b.kai", Contents: []byte("b :: 41;")},
	}, nil, DefaultOptions())
	be.Err(t, err, nil)
	v, err := p.Value("a")
	be.Err(t, err, nil)
	be.Equal(t, v, any(int64(42)))
	be.Equal(t, len(p.Trees()), 2)
}
