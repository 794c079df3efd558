package diag

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/you-not-fish/kai/internal/syntax"
)

func TestErrorChain(t *testing.T) {
	pos := syntax.NewPos("main.kai", 3, 5)
	orig := syntax.NewPos("main.kai", 1, 1)
	err := Errorf(Semantic, pos, "redefinition of %q", "x").
		Note(orig, "previous definition is here")

	be.Equal(t, err.Len(), 2)
	be.Equal(t, err.Error(),
		"main.kai:3:5: redefinition of \"x\"\nmain.kai:1:1: info: previous definition is here")

	var kinds []Kind
	for d := range err.All() {
		kinds = append(kinds, d.Kind)
	}
	be.Equal(t, kinds, []Kind{Semantic, Info})
}

func TestErrorContext(t *testing.T) {
	err := Errorf(Fatal, syntax.Pos{}, "bad state")
	err.Context = "while scheduling"
	be.Equal(t, err.Error(), "fatal error: bad state (while scheduling)")
}

func TestUnsupported(t *testing.T) {
	err := Unsupported(syntax.NewPos("f.kai", 2, 1), "enum evaluation")
	be.True(t, errors.Is(err, ErrUnsupported))
	be.Equal(t, KindOf(err), Semantic)

	wrapped := fmt.Errorf("compile: %w", err)
	be.True(t, errors.Is(wrapped, ErrUnsupported))
	d, ok := As(wrapped)
	be.True(t, ok)
	be.Equal(t, d.Msg, "enum evaluation")
}

func TestKindOf(t *testing.T) {
	be.Equal(t, KindOf(nil), Success)
	be.Equal(t, KindOf(errors.New("boom")), Internal)
	be.Equal(t, KindOf(Errorf(Syntax, syntax.Pos{}, "x")), Syntax)
	be.Equal(t, Kind(42).String(), "Kind(42)")
}

func TestPrinter(t *testing.T) {
	src := []byte("a :: 1;\nb :: a + c;\n")
	p := &Printer{Sources: func(name string) []byte {
		if name == "main.kai" {
			return src
		}
		return nil
	}}
	err := Errorf(Semantic, syntax.NewPos("main.kai", 2, 10), "undeclared identifier %q", "c")
	err.Span = "c"

	var buf bytes.Buffer
	p.Fprint(&buf, err)
	want := "main.kai:2:10: error: undeclared identifier \"c\"\n" +
		"    2 | b :: a + c;\n" +
		"      |          ^\n"
	be.Equal(t, buf.String(), want)
}

func TestPrinterColorAndForeign(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{Color: true}
	p.Fprint(&buf, Errorf(Info, syntax.Pos{}, "note"))
	be.True(t, strings.Contains(buf.String(), ansiCyan+"info:"+ansiReset))

	buf.Reset()
	p.Fprint(&buf, errors.New("plain"))
	be.Equal(t, buf.String(), "plain\n")
}
