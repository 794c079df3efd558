// Package eval evaluates a Kai dependency graph: it infers and checks the
// type of every node, computes constant values, generates bytecode for
// procedures and runs compile-time procedure calls.
package eval

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/you-not-fish/kai/internal/arena"
	"github.com/you-not-fish/kai/internal/bytecode"
	"github.com/you-not-fish/kai/internal/depgraph"
	"github.com/you-not-fish/kai/internal/diag"
	"github.com/you-not-fish/kai/internal/syntax"
	"github.com/you-not-fish/kai/internal/table"
	"github.com/you-not-fish/kai/internal/types"
	"github.com/you-not-fish/kai/internal/value"
)

// Config controls an evaluation.
type Config struct {
	// MaxSteps bounds each compile-time procedure call.
	MaxSteps int

	// MaxLocals bounds the number of parameters and locals visible at
	// once while checking procedure bodies.
	MaxLocals int

	// DataLimit caps the data section in bytes. Zero means unlimited.
	DataLimit int

	// Limits size the interpreter used for compile-time calls.
	Limits bytecode.Limits

	// Natives provide the bodies of #native procedures by name.
	Natives map[string]bytecode.NativeFunc

	// Logger receives debug records. Nil discards them.
	Logger *slog.Logger
}

// Defaults.
const (
	DefaultMaxSteps  = 65536
	DefaultMaxLocals = 1024
)

// Variable locates an exported value in the data section.
type Variable struct {
	Type   types.Type
	Offset int
	Size   int
}

// Result is the outcome of a successful evaluation.
type Result struct {
	Graph *depgraph.Graph

	// Data holds every exported value; Vars locates them by name.
	Data []byte
	Vars table.Table[Variable]

	// Types and Procs resolve the handles stored in Data. Handle h refers
	// to element h-1; zero is null.
	Types []types.Type
	Procs []*value.Procedure

	Code    []byte
	Natives []bytecode.Native

	e *evaluator
}

// Lookup returns the global node called name.
func (r *Result) Lookup(name string) (uint32, bool) {
	ref, ok := r.Graph.Lookup(name, depgraph.GlobalScope, false)
	if !ok || r.Graph.Infos[ref.Index].Flags&depgraph.Builtin != 0 {
		return 0, false
	}
	return ref.Index, true
}

// Procedure returns the procedure named name, or nil.
func (r *Result) Procedure(name string) *value.Procedure {
	i, ok := r.Lookup(name)
	if !ok {
		return nil
	}
	if _, ok := r.Graph.Types[i].Type.(*types.Proc); !ok {
		return nil
	}
	return r.Graph.Values[i].Value.Proc
}

// Call runs p through the interpreter with the given arguments and
// returns its result. Arguments and the result are scalar values.
func (r *Result) Call(p *value.Procedure, args []value.Value) (value.Value, error) {
	return r.e.run(syntax.Pos{}, p, args)
}

// EvalType evaluates a type expression in the global scope.
func (r *Result) EvalType(x syntax.Expr) (types.Type, error) {
	return r.e.typeValue(x)
}

type local struct {
	name string
	typ  types.Type
}

// fixup is a call site waiting for the location of its callee.
type fixup struct {
	patch  uint32
	caller *value.Procedure
	proc   *value.Procedure
	pos    syntax.Pos
}

// evaluator holds the state of one evaluation.
type evaluator struct {
	g    *depgraph.Graph
	conf Config
	log  *slog.Logger

	types map[syntax.Expr]types.Type // recorded type of every checked expression
	scope int                        // scope for name lookup

	// Locals of the procedure bodies being checked; those of the
	// innermost procedure start at procBase.
	locals   []local
	procBase int
	result   []types.Type // declared results of the innermost procedure

	loops int // loops enclosing the statement being checked

	procTypes  map[*syntax.Proc]*types.Proc
	localTypes map[*syntax.Decl]types.Type
	forTypes   map[*syntax.For]types.Type
	typeCache  map[syntax.Expr]types.Type
	pointers   map[types.Type]*types.Pointer

	procs    []*value.Procedure
	procOf   map[*syntax.Proc]*value.Procedure
	procNode map[uint32]*value.Procedure
	nodeOf   map[*value.Procedure]uint32
	defined  map[*value.Procedure]bool

	pending    []*value.Procedure // defined procedures awaiting code
	generating bool

	code    bytecode.Stream
	fixups  []fixup
	natives []bytecode.Native
	interp  *bytecode.Interpreter

	data        arena.Buffer
	vars        table.Table[Variable]
	typeHandles []types.Type

	enums map[*syntax.Enum][]value.Value // member values in declaration order

	busy   map[depgraph.NodeRef]bool // vertices being evaluated on demand
	active []depgraph.NodeRef        // busy vertices in the order they started
}

// Evaluate evaluates every vertex of g in the given order.
func Evaluate(g *depgraph.Graph, order []depgraph.NodeRef, conf Config) (*Result, error) {
	if conf.MaxSteps <= 0 {
		conf.MaxSteps = DefaultMaxSteps
	}
	if conf.MaxLocals <= 0 {
		conf.MaxLocals = DefaultMaxLocals
	}
	log := conf.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	e := &evaluator{
		g:          g,
		conf:       conf,
		log:        log,
		types:      make(map[syntax.Expr]types.Type),
		procTypes:  make(map[*syntax.Proc]*types.Proc),
		localTypes: make(map[*syntax.Decl]types.Type),
		forTypes:   make(map[*syntax.For]types.Type),
		typeCache:  make(map[syntax.Expr]types.Type),
		enums:      make(map[*syntax.Enum][]value.Value),
		pointers:   make(map[types.Type]*types.Pointer),
		procOf:     make(map[*syntax.Proc]*value.Procedure),
		procNode:   make(map[uint32]*value.Procedure),
		nodeOf:     make(map[*value.Procedure]uint32),
		defined:    make(map[*value.Procedure]bool),
		busy:       make(map[depgraph.NodeRef]bool),
	}
	e.data.Limit = conf.DataLimit
	// string's data member shares the pointer type.
	if p, ok := types.String.Field(1).Type.(*types.Pointer); ok {
		e.pointers[types.U8] = p
	}

	for _, ref := range order {
		if err := e.ensure(ref); err != nil {
			return nil, err
		}
	}
	e.generate()
	if err := e.linkAll(); err != nil {
		return nil, err
	}

	res := &Result{
		Graph:   g,
		Data:    e.data.Bytes(),
		Vars:    e.vars,
		Types:   e.typeHandles,
		Procs:   e.procs,
		Code:    e.code.Bytes(),
		Natives: e.natives,
		e:       e,
	}
	return res, nil
}

// ensure evaluates ref after its dependencies, unless it already is.
// The scheduler's order makes the dependency walk trivial; it matters for
// procedures linked on demand by compile-time calls.
func (e *evaluator) ensure(ref depgraph.NodeRef) error {
	if e.evaluated(ref) {
		return nil
	}
	if e.busy[ref] {
		return e.cycle(ref)
	}
	e.busy[ref] = true
	e.active = append(e.active, ref)
	scope, procBase := e.scope, e.procBase
	e.procBase = len(e.locals)
	defer func() {
		delete(e.busy, ref)
		e.active = e.active[:len(e.active)-1]
		e.scope, e.procBase = scope, procBase
	}()

	for _, dep := range e.g.Deps(ref) {
		if err := e.ensure(dep); err != nil {
			return err
		}
	}
	if ref.Kind == depgraph.Type {
		return e.evalType(ref.Index)
	}
	return e.evalValue(ref.Index)
}

// cycle reports ref being needed again while it is evaluated, which
// happens when a compile-time call leads back to the declaration that
// makes it.
func (e *evaluator) cycle(ref depgraph.NodeRef) error {
	err := diag.Errorf(diag.Semantic, e.g.Infos[ref.Index].Pos, "%s cannot depend on itself", e.g.Describe(ref))
	start := slices.Index(e.active, ref)
	for _, r := range e.active[start+1:] {
		err.Note(e.g.Infos[r.Index].Pos, "see %s", e.g.Describe(r))
	}
	return err
}

func (e *evaluator) evaluated(ref depgraph.NodeRef) bool {
	if ref.Kind == depgraph.Type {
		return e.g.Types[ref.Index].Flags&depgraph.Evaluated != 0
	}
	return e.g.Values[ref.Index].Flags&depgraph.Evaluated != 0
}

// evalType computes the type of node i.
func (e *evaluator) evalType(i uint32) error {
	info := &e.g.Infos[i]
	e.scope = info.Scope

	var t types.Type
	var err error
	switch {
	case info.TypeExpr != nil:
		t, err = e.typeValue(info.TypeExpr)
		if err != nil {
			return err
		}
		if info.Expr != nil {
			_, err = e.check(info.Expr, t)
		}
	case info.Expr != nil:
		t, err = e.check(info.Expr, nil)
		if err == nil && t == types.Void {
			err = e.errorf(info.Expr, "%s does not produce a value", syntax.String(info.Expr))
		}
	default:
		err = diag.Errorf(diag.Fatal, info.Pos, "declaration of %q has neither type nor value", info.Name)
	}
	if err != nil {
		return err
	}

	e.g.Types[i].Type = t
	e.g.Types[i].Flags |= depgraph.Evaluated
	e.log.Debug("type evaluated", "node", info.Name, "type", t)
	return nil
}

// evalValue computes the value of node i and exports it when required.
func (e *evaluator) evalValue(i uint32) error {
	info := &e.g.Infos[i]
	t := e.g.Types[i].Type
	e.scope = info.Scope

	var v value.Value
	var err error
	switch {
	case info.Flags&depgraph.Import != 0:
		v, err = e.importValue(i)
	case info.Expr == nil:
		v = value.Zero(t)
	default:
		if p, ok := info.Expr.(*syntax.Proc); ok {
			var proc *value.Procedure
			proc, err = e.procedure(p, i)
			v = value.OfProc(proc)
		} else {
			v, err = e.valueOf(info.Expr)
		}
	}
	if err != nil {
		return err
	}

	e.g.Values[i].Value = v
	e.g.Values[i].Flags |= depgraph.Evaluated
	e.log.Debug("value evaluated", "node", info.Name, "value", value.Format(v, t))

	if info.Flags&depgraph.Export != 0 {
		return e.export(info, v, t)
	}
	return nil
}

func (e *evaluator) importValue(i uint32) (value.Value, error) {
	info := &e.g.Infos[i]
	t := e.g.Types[i].Type
	if _, ok := t.(*types.Proc); ok {
		p, err := e.nodeProcedure(i)
		return value.OfProc(p), err
	}
	v, err := value.FromGo(info.Host, t)
	if err != nil {
		d := diag.Errorf(diag.Semantic, info.Pos, "cannot import %q as %s: %v", info.Name, t, err)
		d.Err = err
		return value.Value{}, d
	}
	return v, nil
}

// export writes v to the data section and records it in the variable
// table.
func (e *evaluator) export(info *depgraph.Info, v value.Value, t types.Type) error {
	enc := &value.Encoder{Buf: &e.data, Types: e.typeHandle, Procs: e.procHandle}
	off, err := enc.Encode(v, t)
	if err != nil {
		d := diag.Errorf(diag.Memory, info.Pos, "cannot export %q: %v", info.Name, err)
		d.Err = err
		return d
	}
	e.vars.Put(info.Name, Variable{Type: t, Offset: off, Size: types.Size(t)})
	e.log.Debug("exported", "name", info.Name, "offset", off, "size", types.Size(t))
	return nil
}

func (e *evaluator) typeHandle(t types.Type) uint64 {
	for i, h := range e.typeHandles {
		if h == t {
			return uint64(i + 1)
		}
	}
	e.typeHandles = append(e.typeHandles, t)
	return uint64(len(e.typeHandles))
}

func (e *evaluator) procHandle(p *value.Procedure) uint64 {
	for i, h := range e.procs {
		if h == p {
			return uint64(i + 1)
		}
	}
	return 0
}

// errorf reports a semantic error at n.
func (e *evaluator) errorf(n syntax.Node, format string, args ...any) *diag.Error {
	d := diag.Errorf(diag.Semantic, n.Pos(), format, args...)
	d.Span = n.Span()
	return d
}

// unsupported reports an operation the evaluator does not implement.
func (e *evaluator) unsupported(n syntax.Node, format string, args ...any) *diag.Error {
	d := diag.Unsupported(n.Pos(), format, args...)
	d.Span = n.Span()
	return d
}

// describe names an expression in messages.
func describe(x syntax.Expr) string {
	s := syntax.String(x)
	if len(s) > 40 {
		s = s[:37] + "..."
	}
	return fmt.Sprintf("%q", s)
}
