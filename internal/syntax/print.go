package syntax

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Fprint writes an indented dump of the tree rooted at node to w.
func Fprint(w io.Writer, node Node) {
	p := &printer{w: w}
	p.print(node)
}

type printer struct {
	w      io.Writer
	indent int
}

func (p *printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, "%s%s\n", strings.Repeat("  ", p.indent), fmt.Sprintf(format, args...))
}

func (p *printer) child(label string, n Node) {
	if n == nil {
		return
	}
	p.indent++
	if label != "" {
		p.printf("%s:", label)
		p.indent++
	}
	p.print(n)
	if label != "" {
		p.indent--
	}
	p.indent--
}

func (p *printer) exprs(label string, list []Expr) {
	if len(list) == 0 {
		return
	}
	p.indent++
	p.printf("%s:", label)
	for _, x := range list {
		p.child("", x)
	}
	p.indent--
}

func (p *printer) print(node Node) {
	switch n := node.(type) {
	case *Ident:
		p.printf("identifier %q", n.Name)
	case *NumberLit:
		p.printf("number %s", n.Value)
	case *StringLit:
		p.printf("string %q", n.Value)
	case *BoolLit:
		p.printf("bool %t", n.Value)
	case *Literal:
		p.printf("literal")
		p.exprs("elements", n.Elems)
	case *Unary:
		p.printf("unary %q", n.Op)
		p.child("", n.X)
	case *Binary:
		p.printf("binary %q", n.Op)
		p.child("", n.X)
		p.child("", n.Y)
	case *ProcType:
		p.printf("procedure type")
		p.exprs("in", n.In)
		p.exprs("out", n.Out)
	case *Call:
		p.printf("call")
		p.child("", n.Fun)
		p.exprs("arguments", n.Args)
	case *Param:
		p.printf("parameter %q", n.Name)
		p.child("", n.Type)
	case *Proc:
		if n.Flags&Native != 0 {
			p.printf("procedure #native")
		} else {
			p.printf("procedure")
		}
		for _, par := range n.Params {
			p.child("", par)
		}
		p.exprs("out", n.Out)
		p.child("", n.Body)
	case *Struct:
		p.printf("struct")
		for _, f := range n.Fields {
			p.child("", f)
		}
	case *Enum:
		p.printf("enum")
		p.child("type", n.Type)
		for _, f := range n.Fields {
			p.child("", f)
		}
	case *EnumField:
		p.printf("field %q", n.Name)
		p.child("", n.Value)
	case *ArrayType:
		p.printf("array type")
		p.child("rows", n.Rows)
		p.child("cols", n.Cols)
		p.child("element", n.Elem)
	case *Directive:
		p.printf("directive #%s", n.Name)
		p.exprs("arguments", n.Args)

	case *Tag:
		p.printf("tag %q", n.Name)
		p.child("", n.Value)
	case *Decl:
		kind := "variable"
		if n.IsConst() {
			kind = "constant"
		}
		if n.Flags&Export != 0 {
			kind += " export"
		}
		p.printf("declaration %q (%s)", n.Name, kind)
		for _, t := range n.Tags {
			p.child("", t)
		}
		p.child("type", n.Type)
		p.child("value", n.Value)
	case *Assign:
		p.printf("assignment")
		p.child("", n.Lhs)
		p.child("", n.Rhs)
	case *ExprStmt:
		p.printf("expression")
		p.child("", n.X)
	case *Return:
		p.printf("return")
		p.child("", n.Result)
	case *Compound:
		p.printf("compound")
		for _, s := range n.Stmts {
			p.child("", s)
		}
	case *If:
		p.printf("if")
		p.child("condition", n.Cond)
		p.child("then", n.Then)
		p.child("else", n.Else)
	case *While:
		p.printf("while")
		p.child("condition", n.Cond)
		p.child("body", n.Body)
	case *For:
		p.printf("for %q", n.Iter)
		p.child("from", n.From)
		p.child("to", n.To)
		p.child("body", n.Body)
	case *Control:
		p.printf("%s", n.Kind)
		p.child("", n.Stmt)
	default:
		p.printf("%T", n)
	}
}

// String formats x on one line, parenthesizing every operation so the
// structure the parser chose is visible.
func String(x Expr) string {
	var b strings.Builder
	writeExpr(&b, x)
	return b.String()
}

func writeExpr(b *strings.Builder, x Expr) {
	switch x := x.(type) {
	case nil:
		b.WriteString("<nil>")
	case *Ident:
		b.WriteString(x.Name)
	case *NumberLit:
		b.WriteString(x.Value.String())
	case *StringLit:
		b.WriteString(strconv.Quote(x.Value))
	case *BoolLit:
		b.WriteString(strconv.FormatBool(x.Value))
	case *Literal:
		b.WriteString(".{")
		writeList(b, x.Elems)
		b.WriteString("}")
	case *Unary:
		b.WriteString("(")
		b.WriteString(x.Op.String())
		writeExpr(b, x.X)
		b.WriteString(")")
	case *Binary:
		switch x.Op {
		case Dot:
			writeExpr(b, x.X)
			b.WriteString(".")
			writeExpr(b, x.Y)
		case Index:
			writeExpr(b, x.X)
			b.WriteString("[")
			writeExpr(b, x.Y)
			b.WriteString("]")
		default:
			b.WriteString("(")
			writeExpr(b, x.X)
			b.WriteString(" " + x.Op.String() + " ")
			writeExpr(b, x.Y)
			b.WriteString(")")
		}
	case *ProcType:
		b.WriteString("(")
		writeList(b, x.In)
		b.WriteString(") -> (")
		writeList(b, x.Out)
		b.WriteString(")")
	case *Call:
		writeExpr(b, x.Fun)
		b.WriteString("(")
		writeList(b, x.Args)
		b.WriteString(")")
	case *Proc:
		b.WriteString("(")
		for i, p := range x.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.Name + ": ")
			writeExpr(b, p.Type)
		}
		b.WriteString(")")
		if len(x.Out) > 0 {
			b.WriteString(" -> ")
			writeExpr(b, x.Out[0])
		}
		if x.Flags&Native != 0 {
			b.WriteString(" #native")
		} else {
			b.WriteString(" {...}")
		}
	case *Struct:
		b.WriteString("struct {")
		for _, f := range x.Fields {
			b.WriteString(" " + f.Name + ": ")
			writeExpr(b, f.Type)
			b.WriteString(";")
		}
		b.WriteString(" }")
	case *Enum:
		b.WriteString("enum {")
		for _, f := range x.Fields {
			b.WriteString(" " + f.Name + ";")
		}
		b.WriteString(" }")
	case *ArrayType:
		b.WriteString("[")
		writeExpr(b, x.Rows)
		if x.Cols != nil {
			b.WriteString(", ")
			writeExpr(b, x.Cols)
		}
		b.WriteString("]")
		writeExpr(b, x.Elem)
	case *Directive:
		b.WriteString("#" + x.Name + "(")
		writeList(b, x.Args)
		b.WriteString(")")
	default:
		fmt.Fprintf(b, "%T", x)
	}
}

func writeList(b *strings.Builder, list []Expr) {
	for i, x := range list {
		if i > 0 {
			b.WriteString(", ")
		}
		writeExpr(b, x)
	}
}
