package depgraph

import (
	"slices"

	"github.com/you-not-fish/kai/internal/syntax"
)

// insertDeps computes both dependency lists of node i.
func (b *builder) insertDeps(i uint32) error {
	g := b.g
	info := &g.Infos[i]

	vd := &g.Values[i].Deps
	add(vd, NodeRef{Kind: Type, Index: i})
	if info.Expr != nil {
		if err := b.valueDeps(vd, info.Scope, info.Expr, false); err != nil {
			return err
		}
	}

	td := &g.Types[i].Deps
	if info.TypeExpr != nil {
		if err := b.valueDeps(td, info.Scope, info.TypeExpr, false); err != nil {
			return err
		}
	}
	if info.Expr != nil {
		return b.typeDeps(td, info.Scope, info.Expr)
	}
	return nil
}

func add(deps *[]NodeRef, r NodeRef) {
	if !slices.Contains(*deps, r) {
		*deps = append(*deps, r)
	}
}

// valueDeps adds the vertices needed to compute the value of n. Inside a
// procedure body (inProc) locals are in scope and calls only need the
// type of the callee, since the call happens at run time.
func (b *builder) valueDeps(deps *[]NodeRef, scope int, n syntax.Node, inProc bool) error {
	g := b.g
	switch n := n.(type) {
	case nil:
		return nil
	case *syntax.Ident:
		r, ok := g.Lookup(n.Name, scope, inProc)
		if !ok {
			return notDeclared(n)
		}
		if !r.IsLocal() {
			add(deps, NodeRef{Kind: Value, Index: r.Index})
		}
	case *syntax.NumberLit, *syntax.StringLit, *syntax.BoolLit:
	case *syntax.Literal:
		return b.valueList(deps, scope, n.Elems, inProc)
	case *syntax.Unary:
		return b.valueDeps(deps, scope, n.X, inProc)
	case *syntax.Binary:
		if err := b.valueDeps(deps, scope, n.X, inProc); err != nil {
			return err
		}
		if n.Op == syntax.Dot {
			return nil
		}
		return b.valueDeps(deps, scope, n.Y, inProc)
	case *syntax.Call:
		var err error
		if inProc {
			err = b.typeDeps(deps, scope, n.Fun)
		} else {
			err = b.valueDeps(deps, scope, n.Fun, inProc)
		}
		if err != nil {
			return err
		}
		return b.valueList(deps, scope, n.Args, inProc)
	case *syntax.ProcType:
		if err := b.valueList(deps, scope, n.In, inProc); err != nil {
			return err
		}
		return b.valueList(deps, scope, n.Out, inProc)
	case *syntax.Proc:
		return b.procDeps(deps, scope, n, inProc)
	case *syntax.Struct:
		for _, f := range n.Fields {
			if err := b.valueDeps(deps, scope, f.Type, inProc); err != nil {
				return err
			}
			if err := b.valueDeps(deps, scope, f.Value, inProc); err != nil {
				return err
			}
		}
	case *syntax.Enum:
		if err := b.valueDeps(deps, scope, n.Type, inProc); err != nil {
			return err
		}
		for _, f := range n.Fields {
			if err := b.valueDeps(deps, scope, f.Value, inProc); err != nil {
				return err
			}
		}
	case *syntax.ArrayType:
		if err := b.valueDeps(deps, scope, n.Rows, inProc); err != nil {
			return err
		}
		if err := b.valueDeps(deps, scope, n.Cols, inProc); err != nil {
			return err
		}
		return b.valueDeps(deps, scope, n.Elem, inProc)
	case *syntax.Directive:
		return b.valueList(deps, scope, n.Args, inProc)

	case *syntax.Decl:
		if n.IsConst() {
			// owns a node
			return nil
		}
		if err := b.valueDeps(deps, scope, n.Type, true); err != nil {
			return err
		}
		if err := b.valueDeps(deps, scope, n.Value, true); err != nil {
			return err
		}
		return b.bindLocal(scope, n.Name, n.Pos())
	case *syntax.Assign:
		if err := b.valueDeps(deps, scope, n.Lhs, true); err != nil {
			return err
		}
		return b.valueDeps(deps, scope, n.Rhs, true)
	case *syntax.ExprStmt:
		return b.valueDeps(deps, scope, n.X, true)
	case *syntax.Return:
		return b.valueDeps(deps, scope, n.Result, true)
	case *syntax.Compound:
		inner, ok := g.scopeOf[n]
		if !ok {
			inner = scope
		}
		for _, s := range n.Stmts {
			if err := b.valueDeps(deps, inner, s, true); err != nil {
				return err
			}
		}
		if inner != scope {
			g.Scopes[inner].removeLocals()
		}
	case *syntax.If:
		if err := b.valueDeps(deps, scope, n.Cond, true); err != nil {
			return err
		}
		if err := b.valueDeps(deps, scope, n.Then, true); err != nil {
			return err
		}
		return b.valueDeps(deps, scope, n.Else, true)
	case *syntax.While:
		if err := b.valueDeps(deps, scope, n.Cond, true); err != nil {
			return err
		}
		return b.valueDeps(deps, scope, n.Body, true)
	case *syntax.For:
		if err := b.valueDeps(deps, scope, n.From, true); err != nil {
			return err
		}
		if err := b.valueDeps(deps, scope, n.To, true); err != nil {
			return err
		}
		inner := g.scopeOf[n]
		if err := b.bindLocal(inner, n.Iter, n.Pos()); err != nil {
			return err
		}
		err := b.valueDeps(deps, inner, n.Body, true)
		g.Scopes[inner].removeLocals()
		return err
	case *syntax.Control:
		return b.valueDeps(deps, scope, n.Stmt, true)
	}
	return nil
}

func (b *builder) valueList(deps *[]NodeRef, scope int, list []syntax.Expr, inProc bool) error {
	for _, x := range list {
		if err := b.valueDeps(deps, scope, x, inProc); err != nil {
			return err
		}
	}
	return nil
}

// procDeps binds the parameters of p as locals of its scope, walks the
// body and unbinds them again.
func (b *builder) procDeps(deps *[]NodeRef, scope int, p *syntax.Proc, inProc bool) error {
	g := b.g
	for _, par := range p.Params {
		if err := b.valueDeps(deps, scope, par.Type, inProc); err != nil {
			return err
		}
	}
	if err := b.valueList(deps, scope, p.Out, inProc); err != nil {
		return err
	}

	inner, ok := g.scopeOf[p]
	if !ok {
		return nil
	}
	s := g.Scopes[inner]
	for _, par := range p.Params {
		if prev, ok := s.Names.Get(par.Name); ok {
			return redeclared(par.Name, par.Pos(), g, prev)
		}
		s.Names.Put(par.Name, Local)
	}
	var err error
	if body, ok := p.Body.(*syntax.Compound); ok {
		for _, st := range body.Stmts {
			if err = b.valueDeps(deps, inner, st, true); err != nil {
				break
			}
		}
	} else if p.Body != nil {
		err = b.valueDeps(deps, inner, p.Body, true)
	}
	s.removeLocals()
	return err
}

// bindLocal declares a local variable in scope. Shadowing another local
// is allowed; shadowing a node of the same scope is not.
func (b *builder) bindLocal(scope int, name string, pos syntax.Pos) error {
	s := b.g.Scopes[scope]
	if prev, ok := s.Names.Get(name); ok && !prev.IsLocal() {
		return redeclared(name, pos, b.g, prev)
	}
	s.Names.Put(name, Local)
	return nil
}

func (s *Scope) removeLocals() {
	var locals []string
	for name, r := range s.Names.All() {
		if r.IsLocal() {
			locals = append(locals, name)
		}
	}
	for _, name := range locals {
		s.Names.Remove(name)
	}
}

// typeDeps adds the vertices needed to compute the type of x.
func (b *builder) typeDeps(deps *[]NodeRef, scope int, x syntax.Expr) error {
	g := b.g
	switch x := x.(type) {
	case nil:
		return nil
	case *syntax.Ident:
		r, ok := g.Lookup(x.Name, scope, true)
		if !ok {
			return notDeclared(x)
		}
		if !r.IsLocal() {
			add(deps, NodeRef{Kind: Type, Index: r.Index})
		}
	case *syntax.Literal:
		for _, e := range x.Elems {
			if err := b.typeDeps(deps, scope, e); err != nil {
				return err
			}
		}
	case *syntax.Unary:
		return b.typeDeps(deps, scope, x.X)
	case *syntax.Binary:
		switch x.Op {
		case syntax.Cast:
			if err := b.typeDeps(deps, scope, x.X); err != nil {
				return err
			}
			return b.valueDeps(deps, scope, x.Y, false)
		case syntax.Dot:
			return b.typeDeps(deps, scope, x.X)
		}
		if err := b.typeDeps(deps, scope, x.X); err != nil {
			return err
		}
		return b.typeDeps(deps, scope, x.Y)
	case *syntax.Call:
		if err := b.typeDeps(deps, scope, x.Fun); err != nil {
			return err
		}
		for _, a := range x.Args {
			if err := b.typeDeps(deps, scope, a); err != nil {
				return err
			}
		}
	case *syntax.Proc:
		for _, par := range x.Params {
			if err := b.valueDeps(deps, scope, par.Type, false); err != nil {
				return err
			}
		}
		return b.valueList(deps, scope, x.Out, false)
	}
	// Literals, type constructors and directives have a fixed type.
	return nil
}
