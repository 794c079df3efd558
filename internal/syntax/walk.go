package syntax

// Visitor is called for each node during Walk.
// If it returns false, the children of the node are not visited.
type Visitor func(node Node) bool

// Walk traverses a syntax tree in depth-first order.
func Walk(node Node, v Visitor) {
	if node == nil || !v(node) {
		return
	}

	switch n := node.(type) {
	case *Unary:
		Walk(n.X, v)
	case *Binary:
		Walk(n.X, v)
		Walk(n.Y, v)
	case *Literal:
		walkList(n.Elems, v)
	case *ProcType:
		walkList(n.In, v)
		walkList(n.Out, v)
	case *Call:
		Walk(n.Fun, v)
		walkList(n.Args, v)
	case *Param:
		Walk(n.Type, v)
	case *Proc:
		for _, p := range n.Params {
			Walk(p, v)
		}
		walkList(n.Out, v)
		Walk(n.Body, v)
	case *Struct:
		for _, f := range n.Fields {
			Walk(f, v)
		}
	case *Enum:
		Walk(n.Type, v)
		for _, f := range n.Fields {
			Walk(f, v)
		}
	case *EnumField:
		Walk(n.Value, v)
	case *ArrayType:
		Walk(n.Rows, v)
		Walk(n.Cols, v)
		Walk(n.Elem, v)
	case *Directive:
		walkList(n.Args, v)

	case *Tag:
		Walk(n.Value, v)
	case *Decl:
		for _, t := range n.Tags {
			Walk(t, v)
		}
		Walk(n.Type, v)
		Walk(n.Value, v)
	case *Assign:
		Walk(n.Lhs, v)
		Walk(n.Rhs, v)
	case *ExprStmt:
		Walk(n.X, v)
	case *Return:
		Walk(n.Result, v)
	case *Compound:
		for _, s := range n.Stmts {
			Walk(s, v)
		}
	case *If:
		Walk(n.Cond, v)
		Walk(n.Then, v)
		Walk(n.Else, v)
	case *While:
		Walk(n.Cond, v)
		Walk(n.Body, v)
	case *For:
		Walk(n.From, v)
		Walk(n.To, v)
		Walk(n.Body, v)
	case *Control:
		Walk(n.Stmt, v)
	}
	// Ident, NumberLit, StringLit and BoolLit are leaves.
}

func walkList(list []Expr, v Visitor) {
	for _, x := range list {
		Walk(x, v)
	}
}

// Inspect is Walk with a plain function.
func Inspect(node Node, f func(Node) bool) {
	Walk(node, Visitor(f))
}
