package eval

import (
	"github.com/you-not-fish/kai/internal/depgraph"
	"github.com/you-not-fish/kai/internal/diag"
	"github.com/you-not-fish/kai/internal/syntax"
	"github.com/you-not-fish/kai/internal/types"
)

// check infers the type of x and records it. When want is not nil the
// type must be assignable to want; an untyped #Number takes the wanted
// numeric type and procedure types match structurally.
func (e *evaluator) check(x syntax.Expr, want types.Type) (types.Type, error) {
	t, err := e.checkExpr(x, want)
	if err != nil {
		return nil, err
	}
	if want != nil && t != want {
		switch {
		case types.AssignableTo(t, want):
			t = want
		case t.Kind() == types.KindProc && types.Equivalent(t, want):
			t = want
		default:
			return nil, e.errorf(x, "cannot use %s (type %s) as type %s", describe(x), t, want)
		}
	}
	e.types[x] = t
	return t, nil
}

func (e *evaluator) checkExpr(x syntax.Expr, want types.Type) (types.Type, error) {
	switch x := x.(type) {
	case *syntax.Ident:
		return e.identType(x)
	case *syntax.NumberLit:
		return types.Number, nil
	case *syntax.StringLit:
		return types.String, nil
	case *syntax.BoolLit:
		return types.Bool, nil
	case *syntax.Literal:
		return e.checkLiteral(x, want)
	case *syntax.Unary:
		return e.checkUnary(x, want)
	case *syntax.Binary:
		return e.checkBinary(x, want)
	case *syntax.Call:
		return e.checkCall(x)
	case *syntax.Proc:
		return e.procType(x)
	case *syntax.ProcType, *syntax.Struct, *syntax.Enum, *syntax.ArrayType:
		return types.TypeType, nil
	case *syntax.Directive:
		if x.Name != "size" {
			return nil, e.unsupported(x, "directive #%s", x.Name)
		}
		if len(x.Args) != 1 {
			return nil, e.errorf(x, "#size expects one type")
		}
		if _, err := e.check(x.Args[0], types.TypeType); err != nil {
			return nil, err
		}
		return types.Number, nil
	}
	return nil, e.unsupported(x, "expression %s", describe(x))
}

func (e *evaluator) lookupLocal(name string) (local, bool) {
	for i := len(e.locals) - 1; i >= e.procBase; i-- {
		if e.locals[i].name == name {
			return e.locals[i], true
		}
	}
	return local{}, false
}

// lookup resolves a name that is not a local to its node.
func (e *evaluator) lookup(x *syntax.Ident) (uint32, error) {
	ref, ok := e.g.Lookup(x.Name, e.scope, false)
	if !ok {
		return 0, e.errorf(x, "indentifier %q not declared", x.Name)
	}
	return ref.Index, nil
}

func (e *evaluator) identType(x *syntax.Ident) (types.Type, error) {
	if l, ok := e.lookupLocal(x.Name); ok {
		return l.typ, nil
	}
	i, err := e.lookup(x)
	if err != nil {
		return nil, err
	}
	// Types needed only by directives and type constructors are not
	// ordered before their users.
	if err := e.ensure(depgraph.NodeRef{Kind: depgraph.Type, Index: i}); err != nil {
		return nil, err
	}
	return e.g.Types[i].Type, nil
}

func (e *evaluator) checkLiteral(x *syntax.Literal, want types.Type) (types.Type, error) {
	switch t := want.(type) {
	case *types.Struct:
		if t.Kind() == types.KindString {
			break
		}
		if len(x.Elems) != t.NumFields() {
			return nil, e.errorf(x, "%d values for %s with %d fields", len(x.Elems), t, t.NumFields())
		}
		for i, el := range x.Elems {
			if _, err := e.check(el, t.Field(i).Type); err != nil {
				return nil, err
			}
		}
		return t, nil
	case *types.Array:
		if len(x.Elems) != t.Len() {
			return nil, e.errorf(x, "%d values for %s with %d elements", len(x.Elems), t, t.Len())
		}
		for _, el := range x.Elems {
			if _, err := e.check(el, t.Elem()); err != nil {
				return nil, err
			}
		}
		return t, nil
	case nil:
		return nil, e.errorf(x, "cannot infer the type of %s", describe(x))
	}
	return nil, e.errorf(x, "cannot use %s as %s", describe(x), want)
}

// numericHint passes a wanted numeric type down to operands.
func numericHint(want types.Type) types.Type {
	if types.IsNumeric(want) {
		return want
	}
	return nil
}

// untypedOperand reports whether x keeps its own type regardless of the
// wanted one: a name or a number literal, possibly signed.
func untypedOperand(x syntax.Expr) bool {
	switch x := x.(type) {
	case *syntax.Ident, *syntax.NumberLit:
		return true
	case *syntax.Unary:
		return (x.Op == syntax.Add || x.Op == syntax.Sub) && untypedOperand(x.X)
	}
	return false
}

func (e *evaluator) checkUnary(x *syntax.Unary, want types.Type) (types.Type, error) {
	switch x.Op {
	case syntax.Add, syntax.Sub:
		hint := numericHint(want)
		if untypedOperand(x.X) {
			// Negate first, then convert: -128 fits s8 although 128 does not.
			hint = nil
		}
		t, err := e.check(x.X, hint)
		if err != nil {
			return nil, err
		}
		if !types.IsNumeric(t) && t != types.Number {
			return nil, e.unsupported(x, "operator %s on %s", x.Op, t)
		}
		return t, nil
	case syntax.Not:
		if _, err := e.check(x.X, types.Bool); err != nil {
			return nil, err
		}
		return types.Bool, nil
	case syntax.Mul:
		t, err := e.check(x.X, nil)
		if err != nil {
			return nil, err
		}
		if t != types.TypeType {
			return nil, e.unsupported(x, "dereference of %s", describe(x.X))
		}
		return types.TypeType, nil
	}
	return nil, e.unsupported(x, "unary operator %s", x.Op)
}

func (e *evaluator) checkBinary(x *syntax.Binary, want types.Type) (types.Type, error) {
	switch x.Op {
	case syntax.Cast:
		target, err := e.typeValue(x.Y)
		if err != nil {
			return nil, err
		}
		t, err := e.check(x.X, nil)
		if err != nil {
			return nil, err
		}
		if !convertible(t, target) {
			return nil, e.errorf(x, "cannot convert %s (type %s) to %s", describe(x.X), t, target)
		}
		return target, nil

	case syntax.Dot:
		t, err := e.check(x.X, nil)
		if err != nil {
			return nil, err
		}
		name, ok := x.Y.(*syntax.Ident)
		if !ok {
			return nil, e.errorf(x, "invalid member %s", describe(x.Y))
		}
		if t == types.TypeType {
			_, mt, err := e.enumMember(x)
			return mt, err
		}
		st, ok := t.(*types.Struct)
		if !ok {
			return nil, e.errorf(x, "%s (type %s) has no members", describe(x.X), t)
		}
		f, ok := st.Lookup(name.Name)
		if !ok {
			return nil, e.errorf(name, "%s has no member %q", t, name.Name)
		}
		return f.Type, nil

	case syntax.Index:
		return nil, e.unsupported(x, "indexing %s", describe(x.X))

	case syntax.AndAnd, syntax.OrOr:
		if _, err := e.check(x.X, types.Bool); err != nil {
			return nil, err
		}
		if _, err := e.check(x.Y, types.Bool); err != nil {
			return nil, err
		}
		return types.Bool, nil
	}

	if x.Op.IsComparison() {
		t, err := e.unify(x, nil)
		if err != nil {
			return nil, err
		}
		ordered := x.Op != syntax.Eql && x.Op != syntax.Neq
		if !types.Comparable(t) || ordered && !types.Ordered(t) {
			return nil, e.unsupported(x, "operator %s on %s", x.Op, t)
		}
		return types.Bool, nil
	}

	t, err := e.unify(x, numericHint(want))
	if err != nil {
		return nil, err
	}
	switch x.Op {
	case syntax.Add, syntax.Sub, syntax.Mul, syntax.Div:
		if types.IsNumeric(t) || t == types.Number {
			return t, nil
		}
	case syntax.Rem, syntax.And, syntax.Or, syntax.Xor, syntax.Shl, syntax.Shr:
		if types.IsInteger(t) || t == types.Number {
			return t, nil
		}
	}
	return nil, e.unsupported(x, "operator %s on %s", x.Op, t)
}

// unify checks both operands of x and gives them a common type. An
// untyped #Number operand takes the type of the other operand.
func (e *evaluator) unify(x *syntax.Binary, hint types.Type) (types.Type, error) {
	tx, err := e.check(x.X, hint)
	if err != nil {
		return nil, err
	}
	ty, err := e.check(x.Y, hint)
	if err != nil {
		return nil, err
	}
	switch {
	case types.Identical(tx, ty):
		return tx, nil
	case tx == types.Number && types.IsNumeric(ty):
		return e.check(x.X, ty)
	case ty == types.Number && types.IsNumeric(tx):
		return e.check(x.Y, tx)
	}
	return nil, e.errorf(x, "mismatched types %s and %s", tx, ty)
}

func convertible(from, to types.Type) bool {
	if types.Identical(from, to) {
		return true
	}
	numeric := func(t types.Type) bool { return types.IsNumeric(t) || t == types.Number }
	return numeric(from) && numeric(to)
}

func (e *evaluator) checkCall(x *syntax.Call) (types.Type, error) {
	ft, err := e.check(x.Fun, nil)
	if err != nil {
		return nil, err
	}
	pt, ok := ft.(*types.Proc)
	if !ok {
		return nil, e.errorf(x, "cannot call %s (type %s)", describe(x.Fun), ft)
	}
	if len(x.Args) != len(pt.In()) {
		return nil, e.errorf(x, "wrong number of arguments in call to %s: have %d, want %d",
			describe(x.Fun), len(x.Args), len(pt.In()))
	}
	for i, a := range x.Args {
		if _, err := e.check(a, pt.In()[i]); err != nil {
			return nil, err
		}
	}
	if r := pt.Result(); r != nil {
		return r, nil
	}
	return types.Void, nil
}

// procType builds the signature of a procedure literal.
func (e *evaluator) procType(p *syntax.Proc) (*types.Proc, error) {
	if t, ok := e.procTypes[p]; ok {
		return t, nil
	}
	in := make([]types.Type, len(p.Params))
	for i, par := range p.Params {
		t, err := e.typeValue(par.Type)
		if err != nil {
			return nil, err
		}
		in[i] = t
	}
	var out []types.Type
	for _, o := range p.Out {
		t, err := e.typeValue(o)
		if err != nil {
			return nil, err
		}
		if t != types.Void {
			out = append(out, t)
		}
	}
	t := types.NewProc(in, out)
	e.procTypes[p] = t
	return t, nil
}

// typeValue evaluates x, which must denote a type.
func (e *evaluator) typeValue(x syntax.Expr) (types.Type, error) {
	if _, err := e.check(x, types.TypeType); err != nil {
		return nil, err
	}
	v, err := e.valueOf(x)
	if err != nil {
		return nil, err
	}
	if v.Type == nil {
		return nil, e.errorf(x, "%s is not a type", describe(x))
	}
	return v.Type, nil
}

// ----------------------------------------------------------------------------
// Procedure bodies

func (e *evaluator) pushLocal(n syntax.Node, name string, t types.Type) error {
	if len(e.locals) >= e.conf.MaxLocals {
		d := diag.Errorf(diag.Memory, n.Pos(), "too many local variables (limit %d)", e.conf.MaxLocals)
		return d
	}
	e.locals = append(e.locals, local{name: name, typ: t})
	return nil
}

// checkBody type checks the body of p against its signature. Locals are
// pushed above those of any enclosing body and dropped afterwards.
func (e *evaluator) checkBody(p *syntax.Proc, pt *types.Proc) error {
	scope, procBase, result, loops := e.scope, e.procBase, e.result, e.loops
	defer func() {
		e.locals = e.locals[:e.procBase]
		e.scope, e.procBase, e.result, e.loops = scope, procBase, result, loops
	}()
	e.loops = 0

	if s, ok := e.g.ScopeOf(p); ok {
		e.scope = s
	}
	e.procBase = len(e.locals)
	e.result = pt.Out()
	for i, par := range p.Params {
		if err := e.pushLocal(par, par.Name, pt.In()[i]); err != nil {
			return err
		}
	}
	if p.Body == nil {
		return nil
	}
	if body, ok := p.Body.(*syntax.Compound); ok {
		// The body shares the scope of the parameters.
		return e.checkStmts(body.Stmts)
	}
	return e.checkStmt(p.Body)
}

func (e *evaluator) checkStmts(list []syntax.Stmt) error {
	for _, s := range list {
		if err := e.checkStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (e *evaluator) checkStmt(s syntax.Stmt) error {
	switch s := s.(type) {
	case *syntax.Decl:
		if s.IsConst() {
			return nil
		}
		t, err := e.localType(s)
		if err != nil {
			return err
		}
		e.localTypes[s] = t
		return e.pushLocal(s, s.Name, t)

	case *syntax.Assign:
		switch s.Lhs.(type) {
		case *syntax.Ident, *syntax.Binary, *syntax.Unary:
		default:
			return e.errorf(s.Lhs, "cannot assign to %s", describe(s.Lhs))
		}
		lt, err := e.check(s.Lhs, nil)
		if err != nil {
			return err
		}
		_, err = e.check(s.Rhs, lt)
		return err

	case *syntax.ExprStmt:
		_, err := e.check(s.X, nil)
		return err

	case *syntax.Return:
		switch {
		case s.Result == nil && len(e.result) > 0:
			return e.errorf(s, "missing return value")
		case s.Result != nil && len(e.result) == 0:
			return e.errorf(s.Result, "too many return values")
		case s.Result != nil:
			_, err := e.check(s.Result, e.result[0])
			return err
		}
		return nil

	case *syntax.Compound:
		mark, scope := len(e.locals), e.scope
		defer func() { e.locals, e.scope = e.locals[:mark], scope }()
		if inner, ok := e.g.ScopeOf(s); ok {
			e.scope = inner
		}
		return e.checkStmts(s.Stmts)

	case *syntax.If:
		if _, err := e.check(s.Cond, types.Bool); err != nil {
			return err
		}
		if err := e.checkStmt(s.Then); err != nil {
			return err
		}
		if s.Else != nil {
			return e.checkStmt(s.Else)
		}
		return nil

	case *syntax.While:
		if _, err := e.check(s.Cond, types.Bool); err != nil {
			return err
		}
		e.loops++
		defer func() { e.loops-- }()
		return e.checkStmt(s.Body)

	case *syntax.For:
		t, err := e.rangeType(s)
		if err != nil {
			return err
		}
		e.forTypes[s] = t
		mark, scope := len(e.locals), e.scope
		defer func() { e.locals, e.scope = e.locals[:mark], scope }()
		if inner, ok := e.g.ScopeOf(s); ok {
			e.scope = inner
		}
		if err := e.pushLocal(s, s.Iter, t); err != nil {
			return err
		}
		e.loops++
		defer func() { e.loops-- }()
		return e.checkStmt(s.Body)

	case *syntax.Control:
		switch s.Kind {
		case syntax.Break, syntax.Continue:
			if e.loops == 0 {
				return e.errorf(s, "%s is not in a loop", s.Kind)
			}
		case syntax.Defer:
			return e.checkStmt(s.Stmt)
		}
		return nil
	}
	return e.unsupported(s, "statement %T", s)
}

// localType determines the type of a local variable. Untyped numbers
// default to s64 when integral and f64 otherwise.
func (e *evaluator) localType(d *syntax.Decl) (types.Type, error) {
	if d.Type != nil {
		t, err := e.typeValue(d.Type)
		if err != nil {
			return nil, err
		}
		if d.Value != nil {
			if _, err := e.check(d.Value, t); err != nil {
				return nil, err
			}
		}
		return t, nil
	}
	t, err := e.check(d.Value, nil)
	if err != nil {
		return nil, err
	}
	switch t {
	case types.Void:
		return nil, e.errorf(d.Value, "%s does not produce a value", describe(d.Value))
	case types.Number:
		v, err := e.valueOf(d.Value)
		if err != nil {
			return nil, err
		}
		t = types.F64
		if v.Number.IsInteger() {
			t = types.S64
		}
		return e.check(d.Value, t)
	}
	return t, nil
}

// rangeType gives both bounds of a for statement a common integer type.
func (e *evaluator) rangeType(s *syntax.For) (types.Type, error) {
	tf, err := e.check(s.From, nil)
	if err != nil {
		return nil, err
	}
	tt, err := e.check(s.To, nil)
	if err != nil {
		return nil, err
	}
	switch {
	case tf == types.Number && tt == types.Number:
		if _, err := e.check(s.From, types.S64); err != nil {
			return nil, err
		}
		tf, err = e.check(s.To, types.S64)
	case tf == types.Number:
		tf, err = e.check(s.From, tt)
	case tt == types.Number:
		_, err = e.check(s.To, tf)
	case !types.Identical(tf, tt):
		return nil, e.errorf(s, "mismatched range types %s and %s", tf, tt)
	}
	if err != nil {
		return nil, err
	}
	if !types.IsInteger(tf) {
		return nil, e.errorf(s.From, "range bounds must be integers, not %s", tf)
	}
	return tf, nil
}
