package eval

import (
	"math"

	"github.com/you-not-fish/kai/internal/depgraph"
	"github.com/you-not-fish/kai/internal/number"
	"github.com/you-not-fish/kai/internal/syntax"
	"github.com/you-not-fish/kai/internal/types"
	"github.com/you-not-fish/kai/internal/value"
)

// valueOf computes the value of a checked expression, converted to the
// type recorded for it.
func (e *evaluator) valueOf(x syntax.Expr) (value.Value, error) {
	v, from, err := e.eval(x)
	if err != nil {
		return value.Value{}, err
	}
	to, ok := e.types[x]
	if !ok || from == nil || types.Identical(from, to) {
		return v, nil
	}
	if from.Kind() == types.KindProc && to.Kind() == types.KindProc {
		return v, nil
	}
	cv, err := value.Convert(v, from, to)
	if err != nil {
		d := e.errorf(x, "cannot use %s as %s: %v", value.Format(v, from), to, err)
		d.Err = err
		return value.Value{}, d
	}
	return cv, nil
}

// eval computes the value of x in its natural type.
func (e *evaluator) eval(x syntax.Expr) (value.Value, types.Type, error) {
	switch x := x.(type) {
	case *syntax.Ident:
		return e.identValue(x)
	case *syntax.NumberLit:
		return value.OfNumber(x.Value), types.Number, nil
	case *syntax.StringLit:
		return value.OfString(x.Value), types.String, nil
	case *syntax.BoolLit:
		return value.Bool(x.Value), types.Bool, nil
	case *syntax.Literal:
		return e.literalValue(x)
	case *syntax.Unary:
		return e.unaryValue(x)
	case *syntax.Binary:
		switch x.Op {
		case syntax.Cast:
			v, err := e.valueOf(x.X)
			if err != nil {
				return value.Value{}, nil, err
			}
			from := e.types[x.X]
			if from == types.Number && types.IsInteger(e.types[x]) && !v.Number.IsInteger() {
				// Casts truncate toward zero.
				return value.F64(v.Number.ToF64()), types.F64, nil
			}
			return v, from, nil
		case syntax.Dot:
			return e.memberValue(x)
		}
		v, err := e.binaryValue(x)
		return v, e.types[x], err
	case *syntax.Call:
		return e.callValue(x)
	case *syntax.Proc:
		p, err := e.literal(x)
		if err != nil {
			return value.Value{}, nil, err
		}
		return value.OfProc(p), p.Type, nil
	case *syntax.ProcType, *syntax.Struct, *syntax.Enum, *syntax.ArrayType:
		t, err := e.typeLit(x)
		return value.OfType(t), types.TypeType, err
	case *syntax.Directive:
		t, err := e.typeValue(x.Args[0])
		if err != nil {
			return value.Value{}, nil, err
		}
		return value.OfNumber(number.FromInt64(int64(types.Size(t)))), types.Number, nil
	}
	return value.Value{}, nil, e.unsupported(x, "evaluating %s", describe(x))
}

func (e *evaluator) identValue(x *syntax.Ident) (value.Value, types.Type, error) {
	if _, ok := e.lookupLocal(x.Name); ok {
		return value.Value{}, nil, e.unsupported(x, "local %q cannot be evaluated at compile time", x.Name)
	}
	i, err := e.lookup(x)
	if err != nil {
		return value.Value{}, nil, err
	}
	if err := e.ensure(depgraph.NodeRef{Kind: depgraph.Value, Index: i}); err != nil {
		return value.Value{}, nil, err
	}
	return e.g.Values[i].Value, e.g.Types[i].Type, nil
}

func (e *evaluator) literalValue(x *syntax.Literal) (value.Value, types.Type, error) {
	t := e.types[x]
	elems := make([]value.Value, len(x.Elems))
	for i, el := range x.Elems {
		v, err := e.valueOf(el)
		if err != nil {
			return value.Value{}, nil, err
		}
		elems[i] = v
	}
	return value.Value{Elems: elems}, t, nil
}

func (e *evaluator) unaryValue(x *syntax.Unary) (value.Value, types.Type, error) {
	if x.Op == syntax.Mul {
		elem, err := e.typeValue(x.X)
		if err != nil {
			return value.Value{}, nil, err
		}
		return value.OfType(e.pointer(elem)), types.TypeType, nil
	}

	v, err := e.valueOf(x.X)
	if err != nil {
		return value.Value{}, nil, err
	}
	t := e.types[x.X]
	switch x.Op {
	case syntax.Add:
		return v, t, nil
	case syntax.Not:
		return value.Bool(!v.Bool()), t, nil
	}

	switch t := t.(type) {
	case *types.Int:
		return value.Uint(t, -v.Scalar), t, nil
	case *types.Float:
		if t.Bits() == 32 {
			return value.F32(-v.Float32()), t, nil
		}
		return value.F64(-v.Float64()), t, nil
	}
	if t == types.Number {
		return value.OfNumber(v.Number.Negate()), t, nil
	}
	return value.Value{}, nil, e.unsupported(x, "operator %s on %s", x.Op, t)
}

func (e *evaluator) memberValue(x *syntax.Binary) (value.Value, types.Type, error) {
	if e.types[x.X] == types.TypeType {
		return e.enumMember(x)
	}
	v, err := e.valueOf(x.X)
	if err != nil {
		return value.Value{}, nil, err
	}
	st := e.types[x.X].(*types.Struct)
	name := x.Y.(*syntax.Ident).Name
	if st.Kind() == types.KindString {
		if name == "count" {
			return value.Uint(types.U64, uint64(len(v.Str))), types.U64, nil
		}
		return value.Value{}, nil, e.unsupported(x, "address of string data")
	}
	for i, f := range st.Fields() {
		if f.Name == name && i < len(v.Elems) {
			return v.Elems[i], f.Type, nil
		}
	}
	return value.Value{}, nil, e.errorf(x, "%s has no member %q", st, name)
}

func (e *evaluator) callValue(x *syntax.Call) (value.Value, types.Type, error) {
	fv, err := e.valueOf(x.Fun)
	if err != nil {
		return value.Value{}, nil, err
	}
	p := fv.Proc
	if p == nil {
		return value.Value{}, nil, e.errorf(x.Fun, "%s is not a procedure", describe(x.Fun))
	}
	args := make([]value.Value, len(x.Args))
	for i, a := range x.Args {
		if args[i], err = e.valueOf(a); err != nil {
			return value.Value{}, nil, err
		}
	}
	v, err := e.run(x.Pos(), p, args)
	if err != nil {
		return value.Value{}, nil, err
	}
	return v, e.types[x], nil
}

// ----------------------------------------------------------------------------
// Types

// pointer returns the pointer type to elem, creating it once per element.
func (e *evaluator) pointer(elem types.Type) *types.Pointer {
	if p, ok := e.pointers[elem]; ok {
		return p
	}
	p := types.NewPointer(elem)
	e.pointers[elem] = p
	return p
}

// typeLit builds the type denoted by a type constructor. Every
// constructor yields one type, however often it is evaluated.
func (e *evaluator) typeLit(x syntax.Expr) (types.Type, error) {
	if t, ok := e.typeCache[x]; ok {
		return t, nil
	}
	var t types.Type
	var err error
	switch x := x.(type) {
	case *syntax.ProcType:
		t, err = e.procTypeLit(x)
	case *syntax.Struct:
		t, err = e.structType(x)
	case *syntax.Enum:
		t, err = e.enumType(x)
	case *syntax.ArrayType:
		t, err = e.arrayType(x)
	}
	if err != nil {
		return nil, err
	}
	e.typeCache[x] = t
	e.log.Debug("type created", "type", t)
	return t, nil
}

func (e *evaluator) procTypeLit(x *syntax.ProcType) (types.Type, error) {
	in := make([]types.Type, len(x.In))
	for i, a := range x.In {
		t, err := e.typeValue(a)
		if err != nil {
			return nil, err
		}
		in[i] = t
	}
	var out []types.Type
	for _, a := range x.Out {
		t, err := e.typeValue(a)
		if err != nil {
			return nil, err
		}
		if t != types.Void {
			out = append(out, t)
		}
	}
	return types.NewProc(in, out), nil
}

func (e *evaluator) structType(x *syntax.Struct) (types.Type, error) {
	fields := make([]types.Field, len(x.Fields))
	for i, d := range x.Fields {
		if d.Type == nil {
			return nil, e.errorf(d, "member %q needs a type", d.Name)
		}
		for _, prev := range fields[:i] {
			if prev.Name == d.Name {
				return nil, e.errorf(d, "duplicate member %q", d.Name)
			}
		}
		t, err := e.typeValue(d.Type)
		if err != nil {
			return nil, err
		}
		if t == types.Void || t == types.Number {
			return nil, e.errorf(d.Type, "invalid member type %s", t)
		}
		fields[i] = types.Field{Name: d.Name, Type: t}
	}
	return types.NewStruct(fields), nil
}

// enumType returns the underlying integer type of an enum, s32 unless
// given. Explicit member values must fit it.
func (e *evaluator) enumType(x *syntax.Enum) (types.Type, error) {
	var t types.Type = types.S32
	if x.Type != nil {
		var err error
		if t, err = e.typeValue(x.Type); err != nil {
			return nil, err
		}
		if !types.IsInteger(t) {
			return nil, e.errorf(x.Type, "enum type must be an integer type, not %s", t)
		}
	}
	it, ok := t.(*types.Int)
	if !ok {
		return nil, e.errorf(x, "enum type must be an integer type, not %s", t)
	}
	members := make([]value.Value, len(x.Fields))
	next := uint64(0)
	for i, f := range x.Fields {
		if f.Value != nil {
			if _, err := e.check(f.Value, t); err != nil {
				return nil, err
			}
			v, err := e.valueOf(f.Value)
			if err != nil {
				return nil, err
			}
			next = v.Scalar
		}
		members[i] = value.Uint(it, next)
		next++
	}
	e.enums[x] = members
	return t, nil
}

// enumDecl returns the enum declared by the global that x names, if any.
func (e *evaluator) enumDecl(x syntax.Expr) *syntax.Enum {
	id, ok := x.(*syntax.Ident)
	if !ok {
		return nil
	}
	if _, local := e.lookupLocal(id.Name); local {
		return nil
	}
	i, err := e.lookup(id)
	if err != nil {
		return nil
	}
	en, _ := e.g.Infos[i].Expr.(*syntax.Enum)
	return en
}

// enumMember returns the value of member name of the enum x names.
func (e *evaluator) enumMember(x *syntax.Binary) (value.Value, types.Type, error) {
	t, err := e.typeValue(x.X)
	if err != nil {
		return value.Value{}, nil, err
	}
	en := e.enumDecl(x.X)
	if en == nil {
		return value.Value{}, nil, e.unsupported(x, "member access on type %s", describe(x.X))
	}
	name := x.Y.(*syntax.Ident).Name
	for i, f := range en.Fields {
		if f.Name == name && i < len(e.enums[en]) {
			return e.enums[en][i], t, nil
		}
	}
	return value.Value{}, nil, e.errorf(x.Y, "enum %s has no member %q", describe(x.X), name)
}

func (e *evaluator) arrayType(x *syntax.ArrayType) (types.Type, error) {
	rows, err := e.dimension(x.Rows)
	if err != nil {
		return nil, err
	}
	var cols uint32
	if x.Cols != nil {
		if cols, err = e.dimension(x.Cols); err != nil {
			return nil, err
		}
	}
	elem, err := e.typeValue(x.Elem)
	if err != nil {
		return nil, err
	}
	return types.NewArray(rows, cols, elem), nil
}

func (e *evaluator) dimension(x syntax.Expr) (uint32, error) {
	t, err := e.check(x, nil)
	if err != nil {
		return 0, err
	}
	v, err := e.valueOf(x)
	if err != nil {
		return 0, err
	}
	n, ok := value.ToNumber(v, t)
	if !ok {
		return 0, e.errorf(x, "array size %s is not a number", describe(x))
	}
	u, ok := n.ToUint64()
	if !ok || u == 0 || u > math.MaxUint32 {
		return 0, e.errorf(x, "invalid array size %s", n)
	}
	return uint32(u), nil
}
