package kai

import (
	"fmt"
	"io"
	"slices"

	"github.com/pkg/errors"

	"github.com/you-not-fish/kai/internal/bytecode"
	"github.com/you-not-fish/kai/internal/depgraph"
	"github.com/you-not-fish/kai/internal/eval"
	"github.com/you-not-fish/kai/internal/syntax"
	"github.com/you-not-fish/kai/internal/types"
	"github.com/you-not-fish/kai/internal/value"
)

// ErrNotFound is returned when a program has no declaration with the
// requested name or signature.
var ErrNotFound = errors.New("not found")

// Program is a compiled Kai program.
type Program struct {
	res   *eval.Result
	trees []*syntax.Tree
	order []depgraph.NodeRef
}

// Graph returns the dependency graph the program was compiled from.
func (p *Program) Graph() *depgraph.Graph { return p.res.Graph }

// Order returns the order in which the program's nodes were evaluated.
func (p *Program) Order() []depgraph.NodeRef { return p.order }

// Trees returns the parsed source files.
func (p *Program) Trees() []*syntax.Tree { return p.trees }

// Data returns the data section holding every exported value.
func (p *Program) Data() []byte { return p.res.Data }

// Variables returns the names of the exported values, sorted.
func (p *Program) Variables() []string {
	var names []string
	for name := range p.res.Vars.All() {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// FindVariable returns the bytes of the exported value called name and
// its type. The bytes alias the data section.
func (p *Program) FindVariable(name string) ([]byte, types.Type, bool) {
	v, ok := p.res.Vars.Get(name)
	if !ok {
		return nil, nil, false
	}
	return p.res.Data[v.Offset : v.Offset+v.Size : v.Offset+v.Size], v.Type, true
}

// Value decodes the exported value called name into its natural Go form
// (see value.ToGo).
func (p *Program) Value(name string) (any, error) {
	v, ok := p.res.Vars.Get(name)
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "variable %s", name)
	}
	dec := value.Decoder{
		Data:  p.res.Data,
		Types: p.typeHandle,
		Procs: p.procHandle,
	}
	x, err := dec.Decode(v.Offset, v.Type)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", name)
	}
	return value.ToGo(x, v.Type), nil
}

func (p *Program) typeHandle(h uint64) types.Type {
	if h == 0 || h > uint64(len(p.res.Types)) {
		return nil
	}
	return p.res.Types[h-1]
}

func (p *Program) procHandle(h uint64) *value.Procedure {
	if h == 0 || h > uint64(len(p.res.Procs)) {
		return nil
	}
	return p.res.Procs[h-1]
}

// FindProcedure returns the procedure called name whose type is
// equivalent to signature, written in Kai type syntax such as
// "(s64, s64) -> s64". An empty signature matches any type.
func (p *Program) FindProcedure(name, signature string) (*value.Procedure, error) {
	proc := p.res.Procedure(name)
	if proc == nil {
		return nil, errors.Wrapf(ErrNotFound, "procedure %s", name)
	}
	if signature == "" {
		return proc, nil
	}
	want, err := p.evalType(signature, "signature of "+name)
	if err != nil {
		return nil, err
	}
	if !types.Equivalent(want, proc.Type) {
		return nil, errors.Wrapf(ErrNotFound, "procedure %s with type %s (it has type %s)", name, want, proc.Type)
	}
	return proc, nil
}

// TypeHash evaluates the Kai type expression typ in the program's global
// scope and returns its structural hash. Equivalent types hash equally, so
// a host can match types without holding the compiler's values.
func (p *Program) TypeHash(typ string) (uint64, error) {
	t, err := p.evalType(typ, "type "+typ)
	if err != nil {
		return 0, err
	}
	return types.Hash(t), nil
}

func (p *Program) evalType(src, context string) (types.Type, error) {
	x, err := syntax.ParseExpr("type", []byte(src), nil)
	if err != nil {
		return nil, syntaxError(err, context)
	}
	return p.res.EvalType(x)
}

// Call runs the procedure called name through the interpreter. Arguments
// are converted with value.FromGo and the result with value.ToGo; a
// procedure without a result returns nil.
func (p *Program) Call(name string, args ...any) (any, error) {
	proc := p.res.Procedure(name)
	if proc == nil {
		return nil, errors.Wrapf(ErrNotFound, "procedure %s", name)
	}
	in := proc.Type.In()
	if len(args) != len(in) {
		return nil, errors.Errorf("%s takes %d arguments, got %d", name, len(in), len(args))
	}
	vals := make([]value.Value, len(args))
	for i, a := range args {
		v, err := value.FromGo(a, in[i])
		if err != nil {
			return nil, errors.Wrapf(err, "argument %d of %s", i+1, name)
		}
		vals[i] = v
	}
	out, err := p.res.Call(proc, vals)
	if err != nil {
		return nil, err
	}
	r := proc.Type.Result()
	if r == nil {
		return nil, nil
	}
	return value.ToGo(out, r), nil
}

// Disassemble writes the procedure locations followed by a listing of
// the program's bytecode.
func (p *Program) Disassemble(w io.Writer) error {
	for _, proc := range p.codeProcs() {
		if _, err := fmt.Fprintf(w, "; %04x  %s %s\n", proc.Loc, cName(proc), proc.Type); err != nil {
			return err
		}
	}
	return bytecode.Disassemble(w, p.res.Code, p.res.Natives)
}

// WriteC writes every procedure with code as a C function.
func (p *Program) WriteC(w io.Writer) error {
	for _, proc := range p.codeProcs() {
		if err := bytecode.WriteC(w, p.def(proc)); err != nil {
			return errors.Wrapf(err, "translating %s", proc.Name)
		}
	}
	return nil
}

// codeProcs returns the procedures with bytecode in code order.
func (p *Program) codeProcs() []*value.Procedure {
	var list []*value.Procedure
	for _, proc := range p.res.Procs {
		if proc.HasCode && !proc.IsNative() {
			list = append(list, proc)
		}
	}
	slices.SortFunc(list, func(a, b *value.Procedure) int {
		return int(a.Loc) - int(b.Loc)
	})
	return list
}

func (p *Program) def(proc *value.Procedure) bytecode.Def {
	procs := p.codeProcs()
	end := uint32(len(p.res.Code))
	if i := slices.Index(procs, proc); i >= 0 && i+1 < len(procs) {
		end = procs[i+1].Loc
	}
	targets := make(map[uint32]bytecode.Def, len(procs))
	for _, q := range procs {
		out, _ := eval.BytecodeTypes(q.Type.Out())
		targets[q.Loc] = bytecode.Def{Name: cName(q), Out: out}
	}
	in, _ := eval.BytecodeTypes(proc.Type.In())
	out, _ := eval.BytecodeTypes(proc.Type.Out())
	return bytecode.Def{
		Name:    cName(proc),
		Code:    p.res.Code,
		Start:   proc.Loc,
		End:     end,
		In:      in,
		Out:     out,
		Natives: p.res.Natives,
		Procs:   targets,
	}
}

func cName(proc *value.Procedure) string {
	if proc.Name == "" {
		return fmt.Sprintf("__proc_%d", proc.Loc)
	}
	return proc.Name
}
