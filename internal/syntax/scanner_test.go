package syntax

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/you-not-fish/kai/internal/table"
)

type tok struct {
	tok Token
	lit string
}

func scanAll(t *testing.T, src string) ([]tok, []string) {
	t.Helper()
	var errs []string
	s := NewScanner("test.kai", []byte(src), nil, func(pos Pos, msg string) {
		errs = append(errs, pos.String()+": "+msg)
	})
	var toks []tok
	for {
		s.Next()
		if s.Token() == _EOF {
			return toks, errs
		}
		toks = append(toks, tok{s.Token(), s.Literal()})
	}
}

func TestScanTokens(t *testing.T) {
	tests := []struct {
		src  string
		want []tok
	}{
		{"name :: 42;", []tok{{_Name, "name"}, {_Colon, ""}, {_Colon, ""}, {_Number, "42"}, {_Semi, ""}}},
		{"x := 3.14e-2", []tok{{_Name, "x"}, {_Colon, ""}, {_Assign, ""}, {_Number, "3.14e-2"}}},
		{"0..10", []tok{{_Number, "0"}, {_DotDot, ""}, {_Number, "10"}}},
		{"0xFF_AB 0b10", []tok{{_Number, "0xFF_AB"}, {_Number, "0b10"}}},
		{"a -> b", []tok{{_Name, "a"}, {_Arrow, ""}, {_Name, "b"}}},
		{"<= << < >= >> > == != ! && || & |", []tok{
			{_Leq, ""}, {_Shl, ""}, {_Lss, ""}, {_Geq, ""}, {_Shr, ""}, {_Gtr, ""},
			{_Eql, ""}, {_Neq, ""}, {_Not, ""}, {_AndAnd, ""}, {_OrOr, ""}, {_And, ""}, {_Or, ""},
		}},
		{"#type #Number", []tok{{_Directive, "type"}, {_Directive, "Number"}}},
		{"ret if else while for struct", []tok{{_Ret, "ret"}, {_If, "if"}, {_Else, "else"}, {_While, "while"}, {_For, "for"}, {_Struct, "struct"}}},
		{`"a\n\"b\"\x41"`, []tok{{_String, "a\n\"b\"A"}}},
		{"a // comment\nb", []tok{{_Name, "a"}, {_Name, "b"}}},
		{"a /* x /* nested */ y */ b", []tok{{_Name, "a"}, {_Name, "b"}}},
		{"@tag", []tok{{_At, ""}, {_Name, "tag"}}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, errs := scanAll(t, tt.src)
			be.Equal(t, len(errs), 0)
			be.Equal(t, got, tt.want)
		})
	}
}

func TestScanErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`"open`, "string not terminated"},
		{"1e", "exponent has no digits"},
		{"$", "unexpected character"},
		{`"\q"`, "unknown escape sequence"},
		{"/* open", "comment not terminated"},
		{"# x", "expected directive name"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, errs := scanAll(t, tt.src)
			be.True(t, len(errs) > 0)
			be.True(t, strings.Contains(errs[0], tt.want))
		})
	}
}

func TestScanPositions(t *testing.T) {
	s := NewScanner("f.kai", []byte("a\n  bb"), nil, nil)
	s.Next()
	be.Equal(t, s.Pos().String(), "f.kai:1:1")
	s.Next()
	be.Equal(t, s.Pos().String(), "f.kai:2:3")
	be.Equal(t, s.Pos().Offset(), 4)
	be.Equal(t, s.End(), 6)
}

func TestScanInterns(t *testing.T) {
	var names table.Interner
	s := NewScanner("f.kai", []byte("foo bar foo"), &names, nil)
	for s.Next(); s.Token() != _EOF; s.Next() {
	}
	be.Equal(t, names.Len(), 2)
}
