package syntax

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func mustParse(t *testing.T, src string) *Tree {
	t.Helper()
	tree, err := Parse("test.kai", []byte(src), nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return tree
}

func decls(t *testing.T, tree *Tree) []*Decl {
	t.Helper()
	var out []*Decl
	for _, s := range tree.Root.Stmts {
		d, ok := s.(*Decl)
		if !ok {
			t.Fatalf("top-level %T is not a declaration", s)
		}
		out = append(out, d)
	}
	return out
}

func TestParseExpressions(t *testing.T) {
	src := `
E0 :: identifier;
E1 :: **unary;
E2 :: a + (b + c) * (d + e) -> f;
E3 :: 3.14e23 + 0xFF_AB__23_00 + 0b1100_1000 + "string";
E4 :: base.member.member[index + index];
E5 :: function(call(1, 2, 3), 1, 2, 3);
E6 :: #type (A, B, C) -> (A, B);
E7 :: -x * !y || a && b == c;
E8 :: cast(s32) value + 1;
E9 :: .{1, two};
E10 :: #size([4]u8) << 2;
`
	want := []string{
		"identifier",
		"(*(*unary))",
		"(a + ((b + c) * ((d + e) -> f)))",
		`(((314000000000000000000000 + 4289405696) + 200) + "string")`,
		"base.member.member[(index + index)]",
		"function(call(1, 2, 3), 1, 2, 3)",
		"(A, B, C) -> (A, B)",
		"((((-x) * (!y)) || a) && (b == c))",
		"((value -> s32) + 1)",
		".{1, two}",
		"(#size([4]u8) << 2)",
	}
	ds := decls(t, mustParse(t, src))
	be.Equal(t, len(ds), len(want))
	for i, d := range ds {
		t.Run(d.Name, func(t *testing.T) {
			be.True(t, d.IsConst())
			be.Equal(t, String(d.Value), want[i])
		})
	}
}

func TestParseProcedure(t *testing.T) {
	src := `S0 :: () {
	constant :: 1 + 2 + ok();
	variable := ok();
	variable = assignment + ok();
	if 1 + 2 { print("Hi"); }
	for i: 0..10 { print("Bye"); }
	{ something(); { nested(); } }
	ret EXPR;
}`
	ds := decls(t, mustParse(t, src))
	be.Equal(t, len(ds), 1)

	proc, ok := ds[0].Value.(*Proc)
	be.True(t, ok)
	be.Equal(t, len(proc.Params), 0)
	body, ok := proc.Body.(*Compound)
	be.True(t, ok)
	be.Equal(t, len(body.Stmts), 7)

	c := body.Stmts[0].(*Decl)
	be.Equal(t, c.Name, "constant")
	be.True(t, c.IsConst())
	be.Equal(t, c.Flags&Export, Flags(0))

	v := body.Stmts[1].(*Decl)
	be.True(t, !v.IsConst())

	_, ok = body.Stmts[2].(*Assign)
	be.True(t, ok)

	iff := body.Stmts[3].(*If)
	be.Equal(t, String(iff.Cond), "(1 + 2)")
	be.True(t, iff.Else == nil)

	loop := body.Stmts[4].(*For)
	be.Equal(t, loop.Iter, "i")
	be.Equal(t, String(loop.To), "10")

	nested := body.Stmts[5].(*Compound)
	be.Equal(t, len(nested.Stmts), 2)

	ret := body.Stmts[6].(*Return)
	be.Equal(t, String(ret.Result), "EXPR")
}

func TestParseDeclarations(t *testing.T) {
	src := `
A :: 1;
B : s32 : 2;
C := 3;
D : f32 = 4;
E : u8;
add :: (a: s32, b: s32) -> s32 { ret a + b; }
Point :: struct { x: s32; y: s32; }
Color :: enum u8 { Red; Green = 4; Blue; }
Grid :: [4, 4]f32;
print :: (value: s32) #native;
F : (s32, s32) -> s32 : add;
@hash(0x10) @inline G :: *u8;
`
	ds := decls(t, mustParse(t, src))
	be.Equal(t, len(ds), 12)
	for _, d := range ds {
		be.True(t, d.Flags&Export != 0)
	}

	be.True(t, ds[0].Type == nil)
	be.Equal(t, String(ds[1].Type), "s32")
	be.True(t, ds[1].IsConst())
	be.True(t, !ds[2].IsConst())
	be.True(t, !ds[3].IsConst())
	be.True(t, ds[4].Value == nil)

	add := ds[5].Value.(*Proc)
	be.Equal(t, len(add.Params), 2)
	be.Equal(t, add.Params[1].Name, "b")
	be.Equal(t, String(add.Out[0]), "s32")

	st := ds[6].Value.(*Struct)
	be.Equal(t, len(st.Fields), 2)
	be.Equal(t, st.Fields[1].Name, "y")
	be.Equal(t, st.Fields[1].Flags&Export, Flags(0))

	en := ds[7].Value.(*Enum)
	be.Equal(t, String(en.Type), "u8")
	be.Equal(t, len(en.Fields), 3)
	be.Equal(t, String(en.Fields[1].Value), "4")

	arr := ds[8].Value.(*ArrayType)
	be.Equal(t, String(arr), "[4, 4]f32")

	native := ds[9].Value.(*Proc)
	be.True(t, native.Flags&Native != 0)
	be.True(t, native.Body == nil)

	be.Equal(t, String(ds[10].Type), "(s32, s32) -> (s32)")

	g := ds[11]
	be.Equal(t, len(g.Tags), 2)
	be.Equal(t, g.Tags[0].Name, "hash")
	be.Equal(t, String(g.Tags[0].Value), "16")
	be.Equal(t, g.Tags[1].Name, "inline")
	be.True(t, g.Tags[1].Value == nil)
}

func TestParseStatements(t *testing.T) {
	src := `main :: () {
	x : s32 = 0;
	while x < 10 { x = x + 1; if x == 5 break; else continue; }
	defer cleanup();
	fallthrough;
}`
	ds := decls(t, mustParse(t, src))
	body := ds[0].Value.(*Proc).Body.(*Compound)
	be.Equal(t, len(body.Stmts), 4)

	w := body.Stmts[1].(*While)
	be.Equal(t, String(w.Cond), "(x < 10)")
	inner := w.Body.(*Compound)
	iff := inner.Stmts[1].(*If)
	be.Equal(t, iff.Then.(*Control).Kind, Break)
	be.Equal(t, iff.Else.(*Control).Kind, Continue)

	d := body.Stmts[2].(*Control)
	be.Equal(t, d.Kind, Defer)
	_, ok := d.Stmt.(*ExprStmt)
	be.True(t, ok)

	be.Equal(t, body.Stmts[3].(*Control).Kind, Fallthrough)
}

func TestParseSpans(t *testing.T) {
	tree := mustParse(t, "value :: alpha + beta * 2;")
	d := decls(t, tree)[0]
	be.Equal(t, d.Span(), "value :: alpha + beta * 2;")
	be.Equal(t, d.Value.Span(), "alpha + beta * 2")
	b := d.Value.(*Binary)
	be.Equal(t, b.Y.Span(), "beta * 2")
	be.Equal(t, b.X.Pos().Col(), uint32(10))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"missing value", "a :: ;", "expected expression"},
		{"missing semicolon", "a :: 1 + 2", `expected ";"`},
		{"statement at file scope", "print(1);", "expected a declaration"},
		{"unknown directive", "a :: #bogus;", "unknown directive #bogus"},
		{"bad number", "a :: 0b102;", "invalid number literal"},
		{"huge number", "a :: 1e60000;", "out of range"},
		{"dangling tag", "@tag ret 1;", "tags must precede a declaration"},
		{"two returns", "f :: (a: s32) -> (s32, s32) { ret a; }", "at most one value"},
		{"unterminated block", "f :: () { ret 1;", `expected "}"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reported []string
			p := NewParser("bad.kai", []byte(tt.src), nil, func(pos Pos, msg string) {
				reported = append(reported, msg)
			})
			p.Parse()
			err := p.FirstError()
			be.True(t, err != nil)
			be.True(t, strings.Contains(err.Error(), tt.want))
			be.Equal(t, p.Errors(), 1)
			be.Equal(t, len(reported), 1)
		})
	}
}

func TestParseExprString(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"s32", "s32"},
		{"*u8", "(*u8)"},
		{"(s32, s32) -> s32", "(s32, s32) -> (s32)"},
		{"[3]f64", "[3]f64"},
		{"(s32)", "s32"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			x, err := ParseExpr("import", []byte(tt.src), nil)
			be.Err(t, err, nil)
			be.Equal(t, String(x), tt.want)
		})
	}

	_, err := ParseExpr("import", []byte("s32 s32"), nil)
	be.Err(t, err, "unexpected identifier")
}

func TestFprint(t *testing.T) {
	tree := mustParse(t, "f :: (a: s32) -> s32 { ret a * 2; }")
	var buf bytes.Buffer
	Fprint(&buf, tree.Root)
	out := buf.String()
	for _, want := range []string{
		"compound",
		`declaration "f" (constant export)`,
		`parameter "a"`,
		"return",
		`binary "*"`,
		"number 2",
	} {
		be.True(t, strings.Contains(out, want))
	}
}

func TestWalk(t *testing.T) {
	tree := mustParse(t, "f :: (a: s32) -> s32 { x := a + 1; ret x * a; }")
	idents := map[string]int{}
	Inspect(tree.Root, func(n Node) bool {
		if id, ok := n.(*Ident); ok {
			idents[id.Name]++
		}
		return true
	})
	be.Equal(t, idents["a"], 2)
	be.Equal(t, idents["x"], 1)
	be.Equal(t, idents["s32"], 2)
}
