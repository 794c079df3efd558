package depgraph

import (
	"github.com/you-not-fish/kai/internal/diag"
	"github.com/you-not-fish/kai/internal/syntax"
)

// builder carries the state of one Build call.
type builder struct {
	g *Graph
}

// Build creates the graph for the given trees and host imports. The
// builtin types occupy nodes 0 to types.NumBuiltins-1, imports follow in
// the order given, then declarations in source order. The first error
// stops the build.
func Build(trees []*syntax.Tree, imports []HostImport) (*Graph, error) {
	g := &Graph{scopeOf: make(map[syntax.Node]int)}
	g.newScope(-1, false)
	g.addBuiltins()

	b := &builder{g: g}
	for _, im := range imports {
		info := Info{
			Name:     im.Name,
			TypeExpr: im.Type,
			Pos:      im.Pos,
			Scope:    GlobalScope,
			Flags:    Import | Const,
			Host:     im.Value,
		}
		if err := b.declare(GlobalScope, info); err != nil {
			return nil, err
		}
	}
	for _, t := range trees {
		if t == nil || t.Root == nil {
			continue
		}
		for _, s := range t.Root.Stmts {
			if err := b.createNodes(s, GlobalScope, false); err != nil {
				return nil, err
			}
		}
	}

	for i := range g.Infos {
		if g.Infos[i].Flags&Builtin != 0 {
			continue
		}
		if err := b.insertDeps(uint32(i)); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// declare adds a node named info.Name to scope.
func (b *builder) declare(scope int, info Info) error {
	g := b.g
	s := g.Scopes[scope]
	if prev, ok := s.Names.Get(info.Name); ok {
		return redeclared(info.Name, info.Pos, g, prev)
	}
	index := g.addNode(info)
	s.Names.Put(info.Name, NodeRef{Kind: Value, Index: index})
	return nil
}

func redeclared(name string, pos syntax.Pos, g *Graph, prev NodeRef) error {
	err := diag.Errorf(diag.Semantic, pos, "indentifier %q is already declared", name)
	if !prev.IsLocal() {
		err.Note(g.Infos[prev.Index].Pos, "see original definition of %q", name)
	}
	return err
}

func notDeclared(x *syntax.Ident) error {
	err := diag.Errorf(diag.Semantic, x.Pos(), "indentifier %q not declared", x.Name)
	err.Span = x.Span()
	return err
}

// createNodes walks a statement, creating nodes for global and constant
// declarations and opening scopes for procedures and blocks.
func (b *builder) createNodes(s syntax.Stmt, scope int, inProc bool) error {
	switch s := s.(type) {
	case *syntax.Decl:
		if !inProc || s.IsConst() {
			info := Info{
				Name:     s.Name,
				Decl:     s,
				Expr:     s.Value,
				TypeExpr: s.Type,
				Pos:      s.Pos(),
				Scope:    scope,
				Tags:     s.Tags,
			}
			if s.IsConst() {
				info.Flags |= Const
			}
			if s.Flags&syntax.Export != 0 {
				info.Flags |= Export
			}
			if err := b.declare(scope, info); err != nil {
				return err
			}
		}
		if err := b.exprScopes(s.Type, scope); err != nil {
			return err
		}
		return b.exprScopes(s.Value, scope)
	case *syntax.Compound:
		inner := b.g.newScope(scope, false)
		b.g.scopeOf[s] = inner
		for _, st := range s.Stmts {
			if err := b.createNodes(st, inner, inProc); err != nil {
				return err
			}
		}
	case *syntax.If:
		if err := b.exprScopes(s.Cond, scope); err != nil {
			return err
		}
		if err := b.createNodes(s.Then, scope, inProc); err != nil {
			return err
		}
		if s.Else != nil {
			return b.createNodes(s.Else, scope, inProc)
		}
	case *syntax.While:
		if err := b.exprScopes(s.Cond, scope); err != nil {
			return err
		}
		return b.createNodes(s.Body, scope, inProc)
	case *syntax.For:
		inner := b.g.newScope(scope, false)
		b.g.scopeOf[s] = inner
		if err := b.exprScopes(s.From, scope); err != nil {
			return err
		}
		if err := b.exprScopes(s.To, scope); err != nil {
			return err
		}
		return b.createNodes(s.Body, inner, inProc)
	case *syntax.Assign:
		if err := b.exprScopes(s.Lhs, scope); err != nil {
			return err
		}
		return b.exprScopes(s.Rhs, scope)
	case *syntax.ExprStmt:
		return b.exprScopes(s.X, scope)
	case *syntax.Return:
		return b.exprScopes(s.Result, scope)
	case *syntax.Control:
		if s.Stmt != nil {
			return b.createNodes(s.Stmt, scope, inProc)
		}
	}
	return nil
}

// exprScopes opens a scope for every procedure literal in x and creates
// the nodes declared in its body.
func (b *builder) exprScopes(x syntax.Expr, scope int) error {
	if x == nil {
		return nil
	}
	var err error
	syntax.Walk(x, func(n syntax.Node) bool {
		if err != nil {
			return false
		}
		p, ok := n.(*syntax.Proc)
		if !ok {
			return true
		}
		inner := b.g.newScope(scope, true)
		b.g.scopeOf[p] = inner
		for _, par := range p.Params {
			if err = b.exprScopes(par.Type, scope); err != nil {
				return false
			}
		}
		if body, ok := p.Body.(*syntax.Compound); ok {
			// The body shares the procedure scope with the parameters.
			b.g.scopeOf[body] = inner
			for _, st := range body.Stmts {
				if err = b.createNodes(st, inner, true); err != nil {
					return false
				}
			}
		} else if p.Body != nil {
			err = b.createNodes(p.Body, inner, true)
		}
		return false
	})
	return err
}
