package eval

import (
	"fmt"

	"github.com/you-not-fish/kai/internal/bytecode"
	"github.com/you-not-fish/kai/internal/depgraph"
	"github.com/you-not-fish/kai/internal/diag"
	"github.com/you-not-fish/kai/internal/syntax"
	"github.com/you-not-fish/kai/internal/types"
	"github.com/you-not-fish/kai/internal/value"
)

// procedure defines the procedure literal p declared by node i.
func (e *evaluator) procedure(p *syntax.Proc, i uint32) (*value.Procedure, error) {
	proc, err := e.nodeProcedure(i)
	if err != nil {
		return nil, err
	}
	return proc, e.define(proc, p)
}

// literal defines an anonymous procedure literal.
func (e *evaluator) literal(p *syntax.Proc) (*value.Procedure, error) {
	if proc, ok := e.procOf[p]; ok {
		return proc, nil
	}
	pt, err := e.procType(p)
	if err != nil {
		return nil, err
	}
	proc := &value.Procedure{Node: p, Type: pt, Native: -1}
	if p.Flags&syntax.Native != 0 {
		return nil, e.errorf(p, "#native procedure must be declared with a name")
	}
	e.procOf[p] = proc
	e.procs = append(e.procs, proc)
	return proc, e.define(proc, p)
}

// nodeProcedure returns the procedure of node i, creating it from the
// node's type. Calls may refer to a procedure before its body is defined.
func (e *evaluator) nodeProcedure(i uint32) (*value.Procedure, error) {
	if proc, ok := e.procNode[i]; ok {
		return proc, nil
	}
	info := &e.g.Infos[i]
	pt, ok := e.g.Types[i].Type.(*types.Proc)
	if !ok {
		return nil, diag.Errorf(diag.Fatal, info.Pos, "%q is not a procedure", info.Name)
	}
	proc := &value.Procedure{Name: info.Name, Type: pt, Native: -1}

	var host any
	switch {
	case info.Flags&depgraph.Import != 0:
		host = info.Host
		if f, ok := e.conf.Natives[info.Name]; ok && host == nil {
			host = f
		}
	default:
		lit, ok := info.Expr.(*syntax.Proc)
		if !ok {
			return nil, diag.Errorf(diag.Fatal, info.Pos, "%q is not a procedure literal", info.Name)
		}
		proc.Node = lit
		if lit.Flags&syntax.Native != 0 {
			f := e.conf.Natives[info.Name]
			if f == nil {
				return nil, diag.Errorf(diag.Semantic, info.Pos, "native procedure %q not provided", info.Name)
			}
			host = f
		}
	}
	if host != nil || info.Flags&depgraph.Import != 0 {
		if err := e.addNative(proc, host, info.Pos); err != nil {
			return nil, err
		}
	}

	e.procNode[i] = proc
	e.nodeOf[proc] = i
	if proc.Node != nil {
		e.procOf[proc.Node] = proc
	}
	e.procs = append(e.procs, proc)
	return proc, nil
}

// addNative binds proc to a host function and enters it in the native
// table.
func (e *evaluator) addNative(proc *value.Procedure, host any, pos syntax.Pos) error {
	var f bytecode.NativeFunc
	switch h := host.(type) {
	case bytecode.NativeFunc:
		f = h
	case func([]bytecode.Value) bytecode.Value:
		f = h
	default:
		return diag.Errorf(diag.Semantic, pos, "cannot import %q as %s: host value is %T", proc.Name, proc.Type, host)
	}
	in, err := bcTypes(proc.Type.In())
	if err != nil {
		return diag.Unsupported(pos, "native procedure %q: %v", proc.Name, err)
	}
	out, err := bcTypes(proc.Type.Out())
	if err != nil {
		return diag.Unsupported(pos, "native procedure %q: %v", proc.Name, err)
	}
	proc.Native = len(e.natives)
	e.natives = append(e.natives, bytecode.Native{Name: proc.Name, Func: f, In: in, Out: out})
	e.log.Debug("native bound", "name", proc.Name, "index", proc.Native)
	return nil
}

// define checks the body of proc and generates its code. A body the
// generator cannot handle leaves the procedure without code; it is only
// an error to call it at compile time.
func (e *evaluator) define(proc *value.Procedure, p *syntax.Proc) error {
	if e.defined[proc] || proc.IsNative() {
		return nil
	}
	e.defined[proc] = true
	if err := e.checkBody(p, proc.Type); err != nil {
		return err
	}
	e.pending = append(e.pending, proc)
	e.generate()
	return nil
}

// generate emits code for the pending procedures. It does not nest:
// procedures defined while generating are picked up by the running loop.
func (e *evaluator) generate() {
	if e.generating {
		return
	}
	e.generating = true
	defer func() { e.generating = false }()
	for len(e.pending) > 0 {
		proc := e.pending[0]
		e.pending = e.pending[1:]
		if err := e.genProc(proc); err != nil {
			e.log.Debug("no code generated", "procedure", proc.String(), "reason", err)
		}
	}
}

// bcType maps a scalar Kai type to its bytecode type.
func bcType(t types.Type) (bytecode.Type, error) {
	switch t := t.(type) {
	case *types.Int:
		base := bytecode.U8
		if t.Signed() {
			base = bytecode.S8
		}
		switch t.Bits() {
		case 8:
			return base, nil
		case 16:
			return base + 1, nil
		case 32:
			return base + 2, nil
		}
		return base + 3, nil
	case *types.Float:
		if t.Bits() == 32 {
			return bytecode.F32, nil
		}
		return bytecode.F64, nil
	}
	if t == types.Bool {
		return bytecode.U8, nil
	}
	return 0, fmt.Errorf("%s has no bytecode representation", t)
}

// BytecodeTypes maps scalar Kai types to the bytecode types that carry
// them in registers.
func BytecodeTypes(list []types.Type) ([]bytecode.Type, error) { return bcTypes(list) }

func bcTypes(list []types.Type) ([]bytecode.Type, error) {
	out := make([]bytecode.Type, len(list))
	for i, t := range list {
		bt, err := bcType(t)
		if err != nil {
			return nil, err
		}
		out[i] = bt
	}
	return out, nil
}

// run calls p with scalar arguments. Native procedures are called
// directly; others run in the interpreter after their call graph is
// linked.
func (e *evaluator) run(pos syntax.Pos, p *value.Procedure, args []value.Value) (value.Value, error) {
	pt := p.Type
	if len(args) != len(pt.In()) {
		return value.Value{}, diag.Errorf(diag.Semantic, pos, "wrong number of arguments in call to %s: have %d, want %d", p, len(args), len(pt.In()))
	}
	in := make([]bytecode.Value, len(args))
	for i, t := range pt.In() {
		bt, err := bcType(t)
		if err != nil {
			return value.Value{}, diag.Unsupported(pos, "compile-time call of %s: %v", p, err)
		}
		in[i] = bytecode.Value(args[i].Scalar).Truncate(bt)
	}
	var out bytecode.Type
	result := pt.Result()
	if result != nil {
		bt, err := bcType(result)
		if err != nil {
			return value.Value{}, diag.Unsupported(pos, "compile-time call of %s: %v", p, err)
		}
		out = bt
	}

	if p.IsNative() {
		r := e.natives[p.Native].Func(in)
		if result == nil {
			return value.Value{}, nil
		}
		return value.Value{Scalar: uint64(r.Truncate(out))}, nil
	}

	if err := e.link(pos, p); err != nil {
		return value.Value{}, err
	}
	if e.interp == nil {
		e.interp = bytecode.NewInterpreter(e.conf.Limits, e.natives)
	}
	ip := e.interp
	ip.SetNatives(e.natives)
	ip.Load(e.code.Bytes())
	ip.Reset(p.Loc)
	if result != nil {
		ip.PushOutput(0)
	}
	for i, v := range in {
		if !ip.SetInput(uint32(i), v) {
			return value.Value{}, diag.Errorf(diag.Memory, pos, "too many arguments in compile-time call of %s", p)
		}
	}
	steps, err := ip.Run(e.conf.MaxSteps)
	e.log.Debug("compile-time call", "procedure", p.String(), "steps", steps, "flags", ip.Flags())
	if err != nil {
		d := diag.Errorf(diag.Semantic, pos, "compile-time call of %s did not complete: %v", p, err)
		d.Err = err
		return value.Value{}, d
	}
	if result == nil {
		return value.Value{}, nil
	}
	return value.Value{Scalar: uint64(ip.Register(0).Truncate(out))}, nil
}

// link resolves the calls reachable from root. Every procedure on the way
// must have code.
func (e *evaluator) link(pos syntax.Pos, root *value.Procedure) error {
	seen := map[*value.Procedure]bool{root: true}
	work := []*value.Procedure{root}
	for len(work) > 0 {
		p := work[len(work)-1]
		work = work[:len(work)-1]
		if err := e.require(p); err != nil {
			return err
		}
		if !p.HasCode {
			return diag.Unsupported(pos, "%s cannot be evaluated at compile time", p)
		}
		for _, f := range e.fixups {
			if f.caller != p {
				continue
			}
			if err := e.require(f.proc); err != nil {
				return err
			}
			if !f.proc.HasCode {
				d := diag.Unsupported(pos, "%s cannot be evaluated at compile time", f.proc)
				return d.Note(f.pos, "called by %s", p)
			}
			if err := e.code.SetBranch(f.patch, f.proc.Loc); err != nil {
				return diag.Errorf(diag.Internal, f.pos, "linking %s: %v", f.proc, err)
			}
			if !seen[f.proc] {
				seen[f.proc] = true
				work = append(work, f.proc)
			}
		}
	}
	return nil
}

// require makes sure the body of p has been defined.
func (e *evaluator) require(p *value.Procedure) error {
	if e.defined[p] || p.IsNative() {
		return nil
	}
	if i, ok := e.nodeOf[p]; ok {
		if err := e.ensure(depgraph.NodeRef{Kind: depgraph.Value, Index: i}); err != nil {
			return err
		}
	}
	e.generate()
	return nil
}

// linkAll patches every call whose callee has code.
func (e *evaluator) linkAll() error {
	for _, f := range e.fixups {
		if !f.proc.HasCode {
			continue
		}
		if err := e.code.SetBranch(f.patch, f.proc.Loc); err != nil {
			d := diag.Errorf(diag.Internal, f.pos, "linking %s: %v", f.proc, err)
			d.Err = err
			return d
		}
	}
	return nil
}
