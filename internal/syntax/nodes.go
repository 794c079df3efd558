// Package syntax implements the Kai scanner, parser and syntax tree.
package syntax

import (
	"github.com/you-not-fish/kai/internal/arena"
	"github.com/you-not-fish/kai/internal/number"
)

// ----------------------------------------------------------------------------
// Interfaces
//
// Kai has two classes of nodes, expressions and statements. Declarations are
// statements; procedures and types are expressions.

// Node is implemented by every syntax tree node.
type Node interface {
	Pos() Pos     // position of the first character of the node
	Span() string // source text covered by the node
	aNode()
}

// Expr is implemented by expression nodes.
type Expr interface {
	Node
	aExpr()
}

// Stmt is implemented by statement nodes.
type Stmt interface {
	Node
	aStmt()
}

// ----------------------------------------------------------------------------
// Base node types

// Flags annotate declarations and procedures.
type Flags uint8

const (
	Const  Flags = 1 << iota // declared with a second ':'
	Export                   // visible to the host through the program
	Native                   // procedure body is provided by the host
	Using                    // parameter members are brought into scope
)

type node struct {
	pos  Pos
	span string
}

func (n *node) Pos() Pos         { return n.pos }
func (n *node) Span() string     { return n.span }
func (*node) aNode()             {}
func (n *node) setSpan(s string) { n.span = s }

type expr struct{ node }

func (*expr) aExpr() {}

type stmt struct{ node }

func (*stmt) aStmt() {}

// ----------------------------------------------------------------------------
// Trees

// Tree is the parsed form of one source file.
type Tree struct {
	Filename string
	Source   []byte
	Root     *Compound // top-level statements

	idents   arena.Slab[Ident]
	numbers  arena.Slab[NumberLit]
	binaries arena.Slab[Binary]
}

// ----------------------------------------------------------------------------
// Expressions

// Ident is a name reference, including builtin names such as #Number.
type Ident struct {
	expr
	Name string
}

// NumberLit is a number literal, already converted to its exact value.
type NumberLit struct {
	expr
	Value number.Number
}

// StringLit is a string literal with escapes decoded.
type StringLit struct {
	expr
	Value string
}

// BoolLit is true or false.
type BoolLit struct {
	expr
	Value bool
}

// Literal is an aggregate literal: .{a, b}
// Its type comes from context.
type Literal struct {
	expr
	Elems []Expr
}

// Unary is a prefix operation: -x, +x, !x, *T (pointer type or dereference).
type Unary struct {
	expr
	Op Operator
	X  Expr
}

// Binary is an infix operation. It also covers casts (X -> Y), member access
// (X.Y where Y is an *Ident naming the member) and indexing (X[Y]).
type Binary struct {
	expr
	Op   Operator
	X, Y Expr
}

// ProcType is a procedure type: (A, B) -> C
type ProcType struct {
	expr
	In  []Expr
	Out []Expr
}

// Call is a procedure call: Fun(Args...)
type Call struct {
	expr
	Fun  Expr
	Args []Expr
}

// Param is a named procedure parameter.
type Param struct {
	node
	Name  string
	Type  Expr
	Flags Flags
}

// Proc is a procedure literal: (a: T, b: U) -> R { ... }
// Body is nil for #native procedures.
type Proc struct {
	expr
	Params []*Param
	Out    []Expr // at most one return type
	Body   Stmt
	Flags  Flags
}

// Struct is a struct type: struct { a: T; b: U; }
type Struct struct {
	expr
	Fields []*Decl
}

// EnumField is a member of an enum; Value may be nil.
type EnumField struct {
	node
	Name  string
	Value Expr
}

// Enum is an enum type: enum T { A; B = 2; }
// Type is nil when no underlying type is given.
type Enum struct {
	expr
	Type   Expr
	Fields []*EnumField
}

// ArrayType is [N]T or [R, C]T. Cols is nil for one-dimensional arrays.
type ArrayType struct {
	expr
	Rows Expr
	Cols Expr
	Elem Expr
}

// Directive is a #name(args...) expression such as #size(T).
type Directive struct {
	expr
	Name string
	Args []Expr
}

// ----------------------------------------------------------------------------
// Statements

// Tag is an annotation placed before a declaration: @name or @name(expr)
type Tag struct {
	node
	Name  string
	Value Expr
}

// Decl declares a name.
//
//	name : T : value    constant with explicit type
//	name :: value       constant with inferred type
//	name : T = value    variable
//	name := value       variable with inferred type
//	name : T;           variable with zero value
type Decl struct {
	stmt
	Name  string
	Type  Expr // nil if inferred
	Value Expr // nil for name : T;
	Tags  []*Tag
	Flags Flags
}

// IsConst reports whether d declares a constant.
func (d *Decl) IsConst() bool { return d.Flags&Const != 0 }

// Assign is an assignment: Lhs = Rhs;
type Assign struct {
	stmt
	Lhs, Rhs Expr
}

// ExprStmt is an expression evaluated for its effects.
type ExprStmt struct {
	stmt
	X Expr
}

// Return is ret expr; Result is nil for a bare ret.
type Return struct {
	stmt
	Result Expr
}

// Compound is a braced statement list.
type Compound struct {
	stmt
	Stmts []Stmt
}

// If is if cond then [else els]. Else is nil when absent.
type If struct {
	stmt
	Cond Expr
	Then Stmt
	Else Stmt
}

// While is while cond body.
type While struct {
	stmt
	Cond Expr
	Body Stmt
}

// For is for name: from..to body.
type For struct {
	stmt
	Iter     string
	From, To Expr
	Body     Stmt
}

// ControlKind distinguishes the control statements.
type ControlKind uint8

const (
	Break ControlKind = iota
	Continue
	Defer
	Fallthrough
)

func (k ControlKind) String() string {
	switch k {
	case Break:
		return "break"
	case Continue:
		return "continue"
	case Defer:
		return "defer"
	}
	return "fallthrough"
}

// Control is break, continue, fallthrough or defer stmt.
type Control struct {
	stmt
	Kind ControlKind
	Stmt Stmt // deferred statement
}
