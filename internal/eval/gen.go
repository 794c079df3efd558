package eval

import (
	"math"

	"github.com/you-not-fish/kai/internal/bytecode"
	"github.com/you-not-fish/kai/internal/depgraph"
	"github.com/you-not-fish/kai/internal/syntax"
	"github.com/you-not-fish/kai/internal/value"
)

// generator emits the code of one procedure. Parameters occupy the first
// registers; every local and temporary takes the next free one.
type generator struct {
	e    *evaluator
	s    *bytecode.Stream
	proc *value.Procedure

	vars  []genVar
	next  bytecode.Reg
	loops []*genLoop
}

type genVar struct {
	name string
	reg  bytecode.Reg
	typ  bytecode.Type
}

type genLoop struct {
	breaks, continues []uint32
}

// genProc appends the code of proc to the stream. On failure the partial
// code is discarded and the procedure stays without code.
func (e *evaluator) genProc(proc *value.Procedure) (err error) {
	start := e.code.Len()
	nfix := len(e.fixups)
	defer func() {
		if err == nil {
			err = e.code.Err()
		}
		if err != nil {
			e.code.Truncate(start)
			e.fixups = e.fixups[:nfix]
			proc.HasCode = false
		}
	}()

	g := &generator{e: e, s: &e.code, proc: proc}
	p := proc.Node
	defer g.enter(p)()
	for i, par := range p.Params {
		bt, err := bcType(proc.Type.In()[i])
		if err != nil {
			return e.unsupported(par, "parameter %q: %v", par.Name, err)
		}
		g.vars = append(g.vars, genVar{name: par.Name, reg: bytecode.Reg(i), typ: bt})
	}
	g.next = bytecode.Reg(len(p.Params))

	if body, ok := p.Body.(*syntax.Compound); ok {
		err = g.stmts(body.Stmts)
	} else if p.Body != nil {
		err = g.stmt(p.Body)
	}
	if err != nil {
		return err
	}

	// Falling off the end returns the zero value.
	if r := proc.Type.Result(); r != nil {
		bt, err := bcType(r)
		if err != nil {
			return err
		}
		dst := g.alloc()
		g.s.LoadConstant(bt, dst, 0)
		g.s.Return(dst)
	} else {
		g.s.Return()
	}

	proc.Loc = start
	proc.HasCode = true
	e.log.Debug("code generated", "procedure", proc.String(), "loc", start, "size", e.code.Len()-start)
	return nil
}

// enter switches name lookup to the scope opened by n, if any, and
// returns a function restoring the previous scope.
func (g *generator) enter(n syntax.Node) func() {
	scope := g.e.scope
	if inner, ok := g.e.g.ScopeOf(n); ok {
		g.e.scope = inner
	}
	return func() { g.e.scope = scope }
}

func (g *generator) alloc() bytecode.Reg {
	r := g.next
	g.next++
	return r
}

func (g *generator) lookup(name string) (genVar, bool) {
	for i := len(g.vars) - 1; i >= 0; i-- {
		if g.vars[i].name == name {
			return g.vars[i], true
		}
	}
	return genVar{}, false
}

func (g *generator) typeOf(x syntax.Expr) (bytecode.Type, error) {
	t, err := bcType(g.e.types[x])
	if err != nil {
		return 0, g.e.unsupported(x, "%s in procedure: %v", describe(x), err)
	}
	return t, nil
}

// move copies src to dst.
func (g *generator) move(t bytecode.Type, dst, src bytecode.Reg) {
	switch {
	case dst == src:
	case t == bytecode.F32:
		g.s.MathValue(bytecode.OpMul, t, dst, src, bytecode.MakeF32(1))
	case t == bytecode.F64:
		g.s.MathValue(bytecode.OpMul, t, dst, src, bytecode.MakeF64(1))
	default:
		g.s.MathValue(bytecode.OpAdd, t, dst, src, 0)
	}
}

// ----------------------------------------------------------------------------
// Statements

func (g *generator) stmts(list []syntax.Stmt) error {
	for _, s := range list {
		if err := g.stmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) stmt(s syntax.Stmt) error {
	switch s := s.(type) {
	case *syntax.Decl:
		if s.IsConst() {
			return nil
		}
		bt, err := bcType(g.e.localTypes[s])
		if err != nil {
			return g.e.unsupported(s, "local %q: %v", s.Name, err)
		}
		dst := g.alloc()
		if s.Value != nil {
			r, err := g.expr(s.Value)
			if err != nil {
				return err
			}
			g.move(bt, dst, r)
		} else {
			g.s.LoadConstant(bt, dst, 0)
		}
		g.vars = append(g.vars, genVar{name: s.Name, reg: dst, typ: bt})
		return nil

	case *syntax.Assign:
		id, ok := s.Lhs.(*syntax.Ident)
		if !ok {
			return g.e.unsupported(s.Lhs, "assignment to %s", describe(s.Lhs))
		}
		v, ok := g.lookup(id.Name)
		if !ok {
			return g.e.unsupported(s.Lhs, "assignment to global %q", id.Name)
		}
		r, err := g.expr(s.Rhs)
		if err != nil {
			return err
		}
		g.move(v.typ, v.reg, r)
		return nil

	case *syntax.ExprStmt:
		_, err := g.expr(s.X)
		return err

	case *syntax.Return:
		if s.Result == nil {
			g.s.Return()
			return nil
		}
		r, err := g.expr(s.Result)
		if err != nil {
			return err
		}
		g.s.Return(r)
		return nil

	case *syntax.Compound:
		mark := len(g.vars)
		defer func() { g.vars = g.vars[:mark] }()
		defer g.enter(s)()
		return g.stmts(s.Stmts)

	case *syntax.If:
		skip, err := g.branchIfFalse(s.Cond)
		if err != nil {
			return err
		}
		if err := g.stmt(s.Then); err != nil {
			return err
		}
		if s.Else == nil {
			return g.s.SetBranch(skip, g.s.Len())
		}
		end := g.s.Jump()
		if err := g.s.SetBranch(skip, g.s.Len()); err != nil {
			return err
		}
		if err := g.stmt(s.Else); err != nil {
			return err
		}
		return g.s.SetBranch(end, g.s.Len())

	case *syntax.While:
		top := g.s.Len()
		exit, err := g.branchIfFalse(s.Cond)
		if err != nil {
			return err
		}
		return g.loop(s.Body, top, exit)

	case *syntax.For:
		return g.forStmt(s)

	case *syntax.Control:
		if len(g.loops) == 0 || s.Kind != syntax.Break && s.Kind != syntax.Continue {
			return g.e.unsupported(s, "%s statement", s.Kind)
		}
		l := g.loops[len(g.loops)-1]
		if s.Kind == syntax.Break {
			l.breaks = append(l.breaks, g.s.Jump())
		} else {
			l.continues = append(l.continues, g.s.Jump())
		}
		return nil
	}
	return g.e.unsupported(s, "statement %T", s)
}

// branchIfFalse evaluates cond and returns the patch site of a branch
// taken when it is false.
func (g *generator) branchIfFalse(cond syntax.Expr) (uint32, error) {
	c, err := g.expr(cond)
	if err != nil {
		return 0, err
	}
	n := g.alloc()
	g.s.CompareValue(bytecode.U8, bytecode.EQ, n, c, 0)
	return g.s.Branch(n), nil
}

// loop emits body followed by a jump to cont and patches the loop exits.
// Continue statements jump to cont.
func (g *generator) loop(body syntax.Stmt, cont, exit uint32) error {
	l := &genLoop{}
	g.loops = append(g.loops, l)
	err := g.stmt(body)
	g.loops = g.loops[:len(g.loops)-1]
	if err != nil {
		return err
	}
	g.s.JumpTo(cont)
	end := g.s.Len()
	for _, p := range append(l.breaks, exit) {
		if err := g.s.SetBranch(p, end); err != nil {
			return err
		}
	}
	for _, p := range l.continues {
		if err := g.s.SetBranch(p, cont); err != nil {
			return err
		}
	}
	return nil
}

// forStmt emits an inclusive counting loop. The upper bound is evaluated
// once.
func (g *generator) forStmt(s *syntax.For) error {
	bt, err := bcType(g.e.forTypes[s])
	if err != nil {
		return g.e.unsupported(s, "range of %s", g.e.forTypes[s])
	}
	iter := g.alloc()
	from, err := g.expr(s.From)
	if err != nil {
		return err
	}
	g.move(bt, iter, from)
	end := g.alloc()
	to, err := g.expr(s.To)
	if err != nil {
		return err
	}
	g.move(bt, end, to)

	mark := len(g.vars)
	defer func() { g.vars = g.vars[:mark] }()
	defer g.enter(s)()
	g.vars = append(g.vars, genVar{name: s.Iter, reg: iter, typ: bt})

	// The increment sits before the test so that continue reaches it.
	first := g.s.Jump()
	cont := g.s.Len()
	g.s.MathValue(bytecode.OpAdd, bt, iter, iter, 1)
	if err := g.s.SetBranch(first, g.s.Len()); err != nil {
		return err
	}
	done := g.alloc()
	g.s.Compare(bt, bytecode.GT, done, iter, end)
	exit := g.s.Branch(done)
	return g.loop(s.Body, cont, exit)
}

// ----------------------------------------------------------------------------
// Expressions

// foldable reports whether x refers to no locals and calls nothing, so
// its value is known at compile time.
func (g *generator) foldable(x syntax.Expr) bool {
	ok := true
	syntax.Walk(x, func(n syntax.Node) bool {
		switch n := n.(type) {
		case *syntax.Ident:
			if _, local := g.lookup(n.Name); local {
				ok = false
			}
		case *syntax.Call, *syntax.Proc, *syntax.Literal:
			ok = false
		case *syntax.Binary:
			if n.Op == syntax.Dot {
				// Member names are not identifiers in scope.
				syntax.Walk(n.X, func(m syntax.Node) bool {
					if id, isIdent := m.(*syntax.Ident); isIdent {
						if _, local := g.lookup(id.Name); local {
							ok = false
						}
					}
					return ok
				})
				return false
			}
		}
		return ok
	})
	return ok
}

// expr emits code computing x and returns the register holding it.
func (g *generator) expr(x syntax.Expr) (bytecode.Reg, error) {
	if id, ok := x.(*syntax.Ident); ok {
		if v, ok := g.lookup(id.Name); ok {
			return v.reg, nil
		}
	}
	if g.foldable(x) {
		return g.constant(x)
	}

	switch x := x.(type) {
	case *syntax.Unary:
		return g.unary(x)
	case *syntax.Binary:
		return g.binary(x)
	case *syntax.Call:
		return g.call(x)
	}
	return 0, g.e.unsupported(x, "%s in procedure", describe(x))
}

func (g *generator) constant(x syntax.Expr) (bytecode.Reg, error) {
	bt, err := g.typeOf(x)
	if err != nil {
		return 0, err
	}
	v, err := g.e.valueOf(x)
	if err != nil {
		return 0, err
	}
	dst := g.alloc()
	g.s.LoadConstant(bt, dst, bytecode.Value(v.Scalar))
	return dst, nil
}

func (g *generator) unary(x *syntax.Unary) (bytecode.Reg, error) {
	r, err := g.expr(x.X)
	if err != nil {
		return 0, err
	}
	bt, err := g.typeOf(x)
	if err != nil {
		return 0, err
	}
	if x.Op == syntax.Add {
		return r, nil
	}
	dst := g.alloc()
	switch x.Op {
	case syntax.Sub:
		switch bt {
		case bytecode.F32:
			g.s.MathValue(bytecode.OpMul, bt, dst, r, bytecode.MakeF32(-1))
		case bytecode.F64:
			g.s.MathValue(bytecode.OpMul, bt, dst, r, bytecode.MakeF64(-1))
		default:
			g.s.MathValue(bytecode.OpMul, bt, dst, r, math.MaxUint64)
		}
	case syntax.Not:
		g.s.CompareValue(bytecode.U8, bytecode.EQ, dst, r, 0)
	default:
		return 0, g.e.unsupported(x, "operator %s in procedure", x.Op)
	}
	return dst, nil
}

var mathOps = map[syntax.Operator]bytecode.Op{
	syntax.Add: bytecode.OpAdd,
	syntax.Sub: bytecode.OpSub,
	syntax.Mul: bytecode.OpMul,
	syntax.Div: bytecode.OpDiv,
}

var compareOps = map[syntax.Operator]bytecode.Cmp{
	syntax.Eql: bytecode.EQ,
	syntax.Neq: bytecode.NE,
	syntax.Lss: bytecode.LT,
	syntax.Leq: bytecode.LE,
	syntax.Gtr: bytecode.GT,
	syntax.Geq: bytecode.GE,
}

func (g *generator) binary(x *syntax.Binary) (bytecode.Reg, error) {
	switch x.Op {
	case syntax.AndAnd, syntax.OrOr:
		return g.logical(x)
	case syntax.Cast:
		from, err := g.typeOf(x.X)
		if err != nil {
			return 0, err
		}
		to, err := g.typeOf(x)
		if err != nil {
			return 0, err
		}
		if from != to {
			return 0, g.e.unsupported(x, "conversion from %s to %s in procedure", g.e.types[x.X], g.e.types[x])
		}
		return g.expr(x.X)
	}

	op, isMath := mathOps[x.Op]
	c, isCompare := compareOps[x.Op]
	if !isMath && !isCompare {
		return 0, g.e.unsupported(x, "operator %s in procedure", x.Op)
	}
	bt, err := g.typeOf(x.X)
	if err != nil {
		return 0, err
	}
	l, err := g.expr(x.X)
	if err != nil {
		return 0, err
	}
	r, err := g.expr(x.Y)
	if err != nil {
		return 0, err
	}
	dst := g.alloc()
	if isMath {
		g.s.Math(op, bt, dst, l, r)
	} else {
		g.s.Compare(bt, c, dst, l, r)
	}
	return dst, nil
}

// logical emits && and || with short-circuit evaluation.
func (g *generator) logical(x *syntax.Binary) (bytecode.Reg, error) {
	dst := g.alloc()
	l, err := g.expr(x.X)
	if err != nil {
		return 0, err
	}
	g.move(bytecode.U8, dst, l)

	var skip uint32
	if x.Op == syntax.OrOr {
		skip = g.s.Branch(dst)
	} else {
		n := g.alloc()
		g.s.CompareValue(bytecode.U8, bytecode.EQ, n, dst, 0)
		skip = g.s.Branch(n)
	}
	r, err := g.expr(x.Y)
	if err != nil {
		return 0, err
	}
	g.move(bytecode.U8, dst, r)
	return dst, g.s.SetBranch(skip, g.s.Len())
}

// callee resolves the procedure named by a call. Only constant
// procedures can be called from bytecode.
func (g *generator) callee(x *syntax.Call) (*value.Procedure, error) {
	id, ok := x.Fun.(*syntax.Ident)
	if !ok {
		return nil, g.e.unsupported(x.Fun, "call of %s", describe(x.Fun))
	}
	if _, local := g.lookup(id.Name); local {
		return nil, g.e.unsupported(x.Fun, "call through local %q", id.Name)
	}
	i, err := g.e.lookup(id)
	if err != nil {
		return nil, err
	}
	info := &g.e.g.Infos[i]
	if info.Flags&depgraph.Const == 0 {
		return nil, g.e.unsupported(x.Fun, "call through variable %q", id.Name)
	}
	if _, isLit := info.Expr.(*syntax.Proc); !isLit && info.Flags&depgraph.Import == 0 {
		return nil, g.e.unsupported(x.Fun, "call of %q", id.Name)
	}
	return g.e.nodeProcedure(i)
}

func (g *generator) call(x *syntax.Call) (bytecode.Reg, error) {
	p, err := g.callee(x)
	if err != nil {
		return 0, err
	}
	args := make([]bytecode.Reg, len(x.Args))
	for i, a := range x.Args {
		if args[i], err = g.expr(a); err != nil {
			return 0, err
		}
	}

	var rets []bytecode.Reg
	var dst bytecode.Reg
	if r := p.Type.Result(); r != nil {
		if _, err := bcType(r); err != nil {
			return 0, g.e.unsupported(x, "call of %s: %v", p, err)
		}
		dst = g.alloc()
		rets = []bytecode.Reg{dst}
	}

	if p.IsNative() {
		g.s.NativeCall(uint64(p.Native), len(rets) > 0, dst, args)
		return dst, nil
	}
	// Calls are patched when the call graph is linked; the callee may
	// still be waiting for its code.
	patch := g.s.Call(rets, args)
	g.e.fixups = append(g.e.fixups, fixup{patch: patch, caller: g.proc, proc: p, pos: x.Pos()})
	return dst, nil
}
