package syntax

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/you-not-fish/kai/internal/number"
	"github.com/you-not-fish/kai/internal/table"
)

// Kai stops at the first syntax error in a file.
const maxErrors = 1

// SyntaxError is a parse failure.
type SyntaxError struct {
	Pos  Pos
	Msg  string
	Span string // text of the offending token
}

func (e *SyntaxError) Error() string {
	return e.Pos.String() + ": " + e.Msg
}

// Parser builds a Tree from Kai source.
type Parser struct {
	scanner Scanner
	tree    *Tree

	// current token, cached from the scanner
	tok Token
	lit string
	pos Pos

	prevEnd int // byte offset after the previously consumed token

	errh   func(pos Pos, msg string)
	errcnt int
	first  *SyntaxError
	abort  bool

	pnest int // procedure nesting depth
	bnest int // block nesting depth outside procedures
}

// NewParser returns a parser for src. Errors are also reported to errh when
// it is non-nil. Identifiers are interned in names when it is non-nil.
func NewParser(filename string, src []byte, names *table.Interner, errh func(pos Pos, msg string)) *Parser {
	p := &Parser{
		tree: &Tree{Filename: filename, Source: src},
		errh: errh,
	}
	p.scanner = *NewScanner(filename, src, names, func(pos Pos, msg string) {
		p.syntaxErrorAt(pos, msg)
	})
	p.next()
	return p
}

// Parse parses the whole file. It returns the first syntax error, if any,
// together with the statements parsed before it.
func Parse(filename string, src []byte, names *table.Interner) (*Tree, error) {
	p := NewParser(filename, src, names, nil)
	t := p.Parse()
	if err := p.FirstError(); err != nil {
		return t, err
	}
	return t, nil
}

// ParseExpr parses a single expression such as a host-supplied type string.
func ParseExpr(filename string, src []byte, names *table.Interner) (Expr, error) {
	p := NewParser(filename, src, names, nil)
	x := p.typeExpr()
	if !p.abort && p.tok != _EOF {
		p.syntaxError(fmt.Sprintf("unexpected %s after expression", p.tok))
	}
	if err := p.FirstError(); err != nil {
		return nil, err
	}
	return x, nil
}

// ----------------------------------------------------------------------------
// Token navigation

func (p *Parser) next() {
	p.prevEnd = p.scanner.End()
	p.scanner.Next()
	p.tok = p.scanner.Token()
	p.lit = p.scanner.Literal()
	p.pos = p.scanner.Pos()
	if p.tok == _Error && !p.abort {
		p.syntaxError("invalid token")
	}
	if p.abort {
		p.tok = _EOF
	}
}

func (p *Parser) got(tok Token) bool {
	if p.tok == tok {
		p.next()
		return true
	}
	return false
}

func (p *Parser) want(tok Token) {
	if !p.got(tok) {
		p.syntaxError(fmt.Sprintf("expected %q but found %s", tok, p.describe()))
	}
}

func (p *Parser) describe() string {
	switch p.tok {
	case _Name, _Number:
		return fmt.Sprintf("%s %q", p.tok, p.lit)
	case _String:
		return "string literal"
	case _Directive:
		return "#" + p.lit
	case _EOF:
		return "end of file"
	}
	return fmt.Sprintf("%q", p.tok)
}

// peek reports the token after the current one without consuming anything.
func (p *Parser) peek() Token {
	saved := p.scanner
	p.scanner.errh = nil
	p.scanner.Next()
	tok := p.scanner.Token()
	p.scanner = saved
	return tok
}

// isProcedureNext reports whether the '(' at the current token opens a
// procedure literal rather than a parenthesized expression. A procedure
// starts with "()", "(using" or "(name:".
func (p *Parser) isProcedureNext() bool {
	if p.tok != _Lparen {
		return false
	}
	s := p.scanner
	s.errh = nil
	s.Next()
	switch s.Token() {
	case _Rparen, _Using:
		return true
	case _Name:
		s.Next()
		return s.Token() == _Colon
	}
	return false
}

// finish sets the source span of n to the text from start to the end of the
// last consumed token.
func (p *Parser) finish(n interface{ setSpan(string) }, start Pos) {
	if end := p.prevEnd; end >= start.offset && end <= len(p.tree.Source) {
		n.setSpan(string(p.tree.Source[start.offset:end]))
	}
}

// ----------------------------------------------------------------------------
// Error handling

func (p *Parser) syntaxError(msg string) { p.syntaxErrorAt(p.pos, msg) }

func (p *Parser) syntaxErrorAt(pos Pos, msg string) {
	if p.abort {
		return
	}
	if p.errcnt == 0 {
		span := ""
		if pos == p.pos {
			span = p.lit
		}
		p.first = &SyntaxError{Pos: pos, Msg: msg, Span: span}
	}
	p.errcnt++
	if p.errh != nil {
		p.errh(pos, msg)
	}
	if p.errcnt >= maxErrors {
		p.abort = true
		p.tok = _EOF
	}
}

// Errors returns the number of syntax errors.
func (p *Parser) Errors() int { return p.errcnt }

// FirstError returns the first syntax error, or nil.
func (p *Parser) FirstError() error {
	if p.first == nil {
		return nil
	}
	return p.first
}

// ----------------------------------------------------------------------------
// Files and statements

// Parse parses every top-level statement of the file.
func (p *Parser) Parse() *Tree {
	root := &Compound{}
	root.pos = p.pos
	for p.tok != _EOF {
		if p.got(_Semi) {
			continue
		}
		s := p.stmt()
		if s == nil {
			break
		}
		if _, ok := s.(*Decl); !ok && !p.abort {
			p.syntaxErrorAt(s.Pos(), "expected a declaration at file scope")
			break
		}
		root.Stmts = append(root.Stmts, s)
	}
	p.tree.Root = root
	return p.tree
}

func (p *Parser) stmt() Stmt {
	start := p.pos
	switch p.tok {
	case _At:
		tags := p.tags()
		if p.tok != _Name || p.peek() != _Colon {
			p.syntaxError("tags must precede a declaration")
			return nil
		}
		d := p.decl()
		if d != nil {
			d.Tags = tags
		}
		return d

	case _Lbrace:
		return p.compound()

	case _Ret:
		s := &Return{}
		s.pos = start
		p.next()
		if p.tok != _Semi {
			s.Result = p.expr()
		}
		p.want(_Semi)
		p.finish(s, start)
		return s

	case _If:
		s := &If{}
		s.pos = start
		p.next()
		s.Cond = p.expr()
		s.Then = p.stmt()
		if p.got(_Else) {
			s.Else = p.stmt()
		}
		p.finish(s, start)
		return s

	case _While:
		s := &While{}
		s.pos = start
		p.next()
		s.Cond = p.expr()
		s.Body = p.stmt()
		p.finish(s, start)
		return s

	case _For:
		s := &For{}
		s.pos = start
		p.next()
		s.Iter = p.name()
		p.want(_Colon)
		s.From = p.expr()
		p.want(_DotDot)
		s.To = p.expr()
		s.Body = p.stmt()
		p.finish(s, start)
		return s

	case _Break, _Continue, _Fallthrough:
		s := &Control{}
		s.pos = start
		switch p.tok {
		case _Break:
			s.Kind = Break
		case _Continue:
			s.Kind = Continue
		default:
			s.Kind = Fallthrough
		}
		p.next()
		p.want(_Semi)
		p.finish(s, start)
		return s

	case _Defer:
		s := &Control{Kind: Defer}
		s.pos = start
		p.next()
		s.Stmt = p.stmt()
		p.finish(s, start)
		return s

	case _Name:
		if p.peek() == _Colon {
			return p.decl()
		}
	}

	if p.tok == _EOF {
		return nil
	}

	x := p.expr()
	if p.got(_Assign) {
		s := &Assign{Lhs: x}
		s.pos = start
		s.Rhs = p.expr()
		p.want(_Semi)
		p.finish(s, start)
		return s
	}
	s := &ExprStmt{X: x}
	s.pos = start
	p.want(_Semi)
	p.finish(s, start)
	return s
}

func (p *Parser) compound() *Compound {
	s := &Compound{}
	s.pos = p.pos
	p.want(_Lbrace)
	if p.pnest == 0 {
		p.bnest++
		defer func() { p.bnest-- }()
	}
	for p.tok != _Rbrace && p.tok != _EOF {
		if p.got(_Semi) {
			continue
		}
		st := p.stmt()
		if st == nil {
			break
		}
		s.Stmts = append(s.Stmts, st)
	}
	p.want(_Rbrace)
	p.finish(s, s.pos)
	return s
}

// tags parses one or more @name or @name(expr) annotations.
func (p *Parser) tags() []*Tag {
	var tags []*Tag
	for p.tok == _At {
		t := &Tag{}
		t.pos = p.pos
		p.next()
		t.Name = p.name()
		if p.got(_Lparen) {
			t.Value = p.expr()
			p.want(_Rparen)
		}
		p.finish(t, t.pos)
		tags = append(tags, t)
	}
	return tags
}

// decl parses a declaration; the current token is its name.
func (p *Parser) decl() *Decl {
	d := &Decl{}
	d.pos = p.pos
	d.Name = p.name()
	p.want(_Colon)

	switch p.tok {
	case _Colon:
		p.next()
		d.Flags |= Const
		d.Value = p.expr()
	case _Assign:
		p.next()
		d.Value = p.expr()
	default:
		d.Type = p.typeExpr()
		switch {
		case p.got(_Colon):
			d.Flags |= Const
			d.Value = p.expr()
		case p.got(_Assign):
			d.Value = p.expr()
		}
	}
	if p.pnest == 0 && p.bnest == 0 {
		d.Flags |= Export
	}

	if selfTerminating(d.Value) {
		p.got(_Semi)
	} else {
		p.want(_Semi)
	}
	p.finish(d, d.pos)
	return d
}

// selfTerminating reports whether x ends in a closing brace and so needs no
// semicolon after it.
func selfTerminating(x Expr) bool {
	switch x := x.(type) {
	case *Proc:
		_, ok := x.Body.(*Compound)
		return ok
	case *Struct, *Enum:
		return true
	}
	return false
}

func (p *Parser) name() string {
	if p.tok != _Name {
		p.syntaxError(fmt.Sprintf("expected identifier but found %s", p.describe()))
		return "_"
	}
	s := p.lit
	p.next()
	return s
}

// ----------------------------------------------------------------------------
// Expressions

func (p *Parser) expr() Expr { return p.binaryExpr(0) }

// binaryExpr parses operators that bind tighter than prec.
func (p *Parser) binaryExpr(prec int) Expr {
	start := p.pos
	x := p.unaryExpr()
	for {
		tprec := p.tok.Precedence()
		if tprec <= prec {
			return x
		}
		op := tokenOps[p.tok]
		p.next()
		y := p.binaryExpr(tprec)
		b := p.tree.binaries.New()
		b.pos, b.Op, b.X, b.Y = start, op, x, y
		p.finish(b, start)
		x = b
	}
}

func (p *Parser) unaryExpr() Expr {
	start := p.pos
	var op Operator
	switch p.tok {
	case _Sub:
		op = Sub
	case _Add:
		op = Add
	case _Not:
		op = Not
	case _Mul:
		op = Mul
	case _And:
		op = And
	case _Cast:
		// cast(T) x
		p.next()
		p.want(_Lparen)
		t := p.typeExpr()
		p.want(_Rparen)
		x := p.unaryExpr()
		b := p.tree.binaries.New()
		b.pos, b.Op, b.X, b.Y = start, Cast, x, t
		p.finish(b, start)
		return b
	default:
		return p.primaryExpr()
	}
	p.next()
	u := &Unary{Op: op, X: p.unaryExpr()}
	u.pos = start
	p.finish(u, start)
	return u
}

// primaryExpr parses an operand followed by calls, index expressions and
// member accesses.
func (p *Parser) primaryExpr() Expr {
	start := p.pos
	x := p.operand()
	for {
		switch p.tok {
		case _Lparen:
			c := &Call{Fun: x}
			c.pos = start
			p.next()
			c.Args = p.exprList(_Rparen)
			p.want(_Rparen)
			p.finish(c, start)
			x = c
		case _Lbrack:
			p.next()
			b := p.tree.binaries.New()
			b.pos, b.Op, b.X = start, Index, x
			b.Y = p.expr()
			p.want(_Rbrack)
			p.finish(b, start)
			x = b
		case _Dot:
			p.next()
			m := p.ident()
			b := p.tree.binaries.New()
			b.pos, b.Op, b.X, b.Y = start, Dot, x, m
			p.finish(b, start)
			x = b
		default:
			return x
		}
	}
}

func (p *Parser) ident() *Ident {
	id := p.tree.idents.New()
	id.pos = p.pos
	id.Name = p.name()
	p.finish(id, id.pos)
	return id
}

func (p *Parser) operand() Expr {
	start := p.pos
	switch p.tok {
	case _Name:
		return p.ident()

	case _Number:
		v, err := number.Parse(p.lit)
		switch {
		case errors.Is(err, number.ErrRange):
			p.syntaxError(fmt.Sprintf("number literal %q out of range", p.lit))
		case err != nil:
			p.syntaxError(fmt.Sprintf("invalid number literal %q", p.lit))
		}
		n := p.tree.numbers.New()
		n.pos, n.Value = start, v
		p.next()
		p.finish(n, start)
		return n

	case _String:
		s := &StringLit{Value: p.lit}
		s.pos = start
		p.next()
		p.finish(s, start)
		return s

	case _True, _False:
		b := &BoolLit{Value: p.tok == _True}
		b.pos = start
		p.next()
		p.finish(b, start)
		return b

	case _Lparen:
		if p.isProcedureNext() {
			return p.procLit()
		}
		p.next()
		x := p.expr()
		p.want(_Rparen)
		return x

	case _Lbrack:
		return p.arrayType()

	case _Struct:
		return p.structType()

	case _Enum:
		return p.enumType()

	case _Dot:
		// .{a, b}
		p.next()
		l := &Literal{}
		l.pos = start
		p.want(_Lbrace)
		l.Elems = p.exprList(_Rbrace)
		p.want(_Rbrace)
		p.finish(l, start)
		return l

	case _Directive:
		return p.directive()
	}

	p.syntaxError(fmt.Sprintf("expected expression but found %s", p.describe()))
	return p.bad(start)
}

// bad returns a placeholder for an expression that failed to parse.
func (p *Parser) bad(pos Pos) Expr {
	id := p.tree.idents.New()
	id.pos, id.Name = pos, "_"
	return id
}

func (p *Parser) directive() Expr {
	start := p.pos
	name := p.lit
	p.next()
	switch name {
	case "type":
		return p.typeExpr()
	case "Number":
		id := p.tree.idents.New()
		id.pos, id.Name = start, "#Number"
		p.finish(id, start)
		return id
	case "char":
		if p.tok != _String {
			p.syntaxError("#char expects a string literal")
			return p.bad(start)
		}
		r, _ := utf8.DecodeRuneInString(p.lit)
		p.next()
		n := p.tree.numbers.New()
		n.pos, n.Value = start, number.FromInt64(int64(r))
		p.finish(n, start)
		return n
	case "size":
		d := &Directive{Name: name}
		d.pos = start
		p.want(_Lparen)
		d.Args = []Expr{p.typeExpr()}
		p.want(_Rparen)
		p.finish(d, start)
		return d
	}
	p.syntaxErrorAt(start, fmt.Sprintf("unknown directive #%s", name))
	return p.bad(start)
}

// exprList parses comma separated expressions up to, but not including, end.
func (p *Parser) exprList(end Token) []Expr {
	var list []Expr
	for p.tok != end && p.tok != _EOF {
		list = append(list, p.expr())
		if !p.got(_Comma) {
			break
		}
	}
	return list
}

// ----------------------------------------------------------------------------
// Procedures and types

// typeExpr parses an expression in type position, where a parenthesized
// list is a procedure type.
func (p *Parser) typeExpr() Expr {
	if p.tok == _Lparen {
		return p.procType()
	}
	return p.unaryType()
}

// unaryType parses a type operand with its prefix operators, but no binary
// operators, so a following ':' '=' or '{' ends it.
func (p *Parser) unaryType() Expr {
	if p.tok == _Mul {
		start := p.pos
		p.next()
		u := &Unary{Op: Mul, X: p.typeExpr()}
		u.pos = start
		p.finish(u, start)
		return u
	}
	return p.primaryExpr()
}

// procType parses (A, B) -> C or (A, B) -> (C, D). A single parenthesized
// type without an arrow is just that type.
func (p *Parser) procType() Expr {
	start := p.pos
	p.want(_Lparen)
	var in []Expr
	for p.tok != _Rparen && p.tok != _EOF {
		in = append(in, p.typeExpr())
		if !p.got(_Comma) {
			break
		}
	}
	p.want(_Rparen)

	t := &ProcType{In: in}
	t.pos = start
	if p.got(_Arrow) {
		t.Out = p.returnTypes()
	} else if len(in) == 1 {
		return in[0]
	}
	p.finish(t, start)
	return t
}

func (p *Parser) returnTypes() []Expr {
	if p.tok != _Lparen {
		return []Expr{p.unaryType()}
	}
	p.next()
	var out []Expr
	for p.tok != _Rparen && p.tok != _EOF {
		out = append(out, p.typeExpr())
		if !p.got(_Comma) {
			break
		}
	}
	p.want(_Rparen)
	return out
}

// procLit parses (a: T, b: U) -> R body
func (p *Parser) procLit() *Proc {
	start := p.pos
	proc := &Proc{}
	proc.pos = start
	p.want(_Lparen)
	for p.tok != _Rparen && p.tok != _EOF {
		par := &Param{}
		par.pos = p.pos
		if p.got(_Using) {
			par.Flags |= Using
		}
		par.Name = p.name()
		p.want(_Colon)
		par.Type = p.typeExpr()
		p.finish(par, par.pos)
		proc.Params = append(proc.Params, par)
		if !p.got(_Comma) {
			break
		}
	}
	p.want(_Rparen)

	if p.got(_Arrow) {
		proc.Out = p.returnTypes()
		if len(proc.Out) > 1 {
			p.syntaxErrorAt(proc.Out[1].Pos(), "procedures may return at most one value")
		}
	}

	if p.tok == _Directive && p.lit == "native" {
		p.next()
		proc.Flags |= Native
		p.finish(proc, start)
		return proc
	}

	p.pnest++
	proc.Body = p.stmt()
	p.pnest--
	p.finish(proc, start)
	return proc
}

// arrayType parses [N]T or [R, C]T.
func (p *Parser) arrayType() Expr {
	a := &ArrayType{}
	a.pos = p.pos
	p.want(_Lbrack)
	a.Rows = p.expr()
	if p.got(_Comma) {
		a.Cols = p.expr()
	}
	p.want(_Rbrack)
	a.Elem = p.typeExpr()
	p.finish(a, a.pos)
	return a
}

// structType parses struct { name: T; ... }
func (p *Parser) structType() Expr {
	s := &Struct{}
	s.pos = p.pos
	p.want(_Struct)
	p.want(_Lbrace)
	p.pnest++ // fields are never exported
	for p.tok != _Rbrace && p.tok != _EOF {
		if p.got(_Semi) {
			continue
		}
		if p.tok != _Name {
			p.syntaxError("expected field declaration")
			break
		}
		f := p.decl()
		if f.Value != nil || f.Type == nil {
			p.syntaxErrorAt(f.Pos(), "struct fields need a type and no value")
		}
		s.Fields = append(s.Fields, f)
	}
	p.pnest--
	p.want(_Rbrace)
	p.finish(s, s.pos)
	return s
}

// enumType parses enum [T] { A; B = expr; }
func (p *Parser) enumType() Expr {
	e := &Enum{}
	e.pos = p.pos
	p.want(_Enum)
	if p.tok != _Lbrace {
		e.Type = p.typeExpr()
	}
	p.want(_Lbrace)
	for p.tok != _Rbrace && p.tok != _EOF {
		if p.got(_Semi) {
			continue
		}
		f := &EnumField{}
		f.pos = p.pos
		f.Name = p.name()
		if p.got(_Assign) {
			f.Value = p.expr()
		}
		p.finish(f, f.pos)
		e.Fields = append(e.Fields, f)
		if p.tok != _Rbrace {
			p.want(_Semi)
		}
	}
	p.want(_Rbrace)
	p.finish(e, e.pos)
	return e
}
