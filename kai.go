// Package kai compiles Kai programs. A program is one or more source files
// plus values imported from the host; compiling it type checks every
// declaration, evaluates the constants (running procedures at compile
// time where needed) and exports the top-level values to a data section
// the host can read.
package kai

import (
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"

	"github.com/you-not-fish/kai/internal/bytecode"
	"github.com/you-not-fish/kai/internal/depgraph"
	"github.com/you-not-fish/kai/internal/diag"
	"github.com/you-not-fish/kai/internal/eval"
	"github.com/you-not-fish/kai/internal/syntax"
	"github.com/you-not-fish/kai/internal/table"
)

// Flags select compilation modes.
type Flags uint32

const (
	// NoCodeGen stops after evaluation. Native code generation is not
	// implemented, so every program must currently be created with it.
	NoCodeGen Flags = 1 << iota
)

// Source is one Kai source file.
type Source struct {
	Name     string
	Contents []byte
}

// ReadSource reads the source file at path.
func ReadSource(path string) (Source, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Source{}, errors.Wrapf(err, "reading source %s", path)
	}
	return Source{Name: path, Contents: b}, nil
}

// Import is a value supplied by the host. Type is Kai type syntax such as
// "s32" or "(s64) -> s64". Value may be a Go integer, float, bool or
// string, a types.Type, or a bytecode.NativeFunc for procedure types.
type Import struct {
	Name  string
	Type  string
	Value any
}

// Options configure a compilation.
type Options struct {
	Flags Flags

	// MaxSteps bounds each compile-time procedure call.
	MaxSteps int

	// Interpreter sizes the interpreter used for compile-time calls.
	Interpreter bytecode.Limits

	// Natives provide the bodies of #native procedures by name.
	Natives map[string]bytecode.NativeFunc

	// Logger receives debug records about each compilation phase. Nil
	// discards them.
	Logger *slog.Logger
}

// DefaultOptions returns the default limits with NoCodeGen set.
func DefaultOptions() Options {
	return Options{
		Flags:       NoCodeGen,
		MaxSteps:    eval.DefaultMaxSteps,
		Interpreter: bytecode.DefaultLimits,
	}
}

func (o *Options) setDefaults() {
	if o.MaxSteps <= 0 {
		o.MaxSteps = eval.DefaultMaxSteps
	}
	d := bytecode.DefaultLimits
	if o.Interpreter.Registers <= 0 {
		o.Interpreter.Registers = d.Registers
	}
	if o.Interpreter.Frames <= 0 {
		o.Interpreter.Frames = d.Frames
	}
	if o.Interpreter.Returns <= 0 {
		o.Interpreter.Returns = d.Returns
	}
	if o.Interpreter.Stack <= 0 {
		o.Interpreter.Stack = d.Stack
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// CreateProgram compiles sources against the host imports. Errors are
// *diag.Error chains; a syntax error stops at its file, any other error
// stops the compilation.
func CreateProgram(sources []Source, imports []Import, opts Options) (*Program, error) {
	opts.setDefaults()
	log := opts.Logger
	names := new(table.Interner)

	trees := make([]*syntax.Tree, 0, len(sources))
	for _, src := range sources {
		tree, err := syntax.Parse(src.Name, src.Contents, names)
		if err != nil {
			return nil, syntaxError(err, "")
		}
		trees = append(trees, tree)
	}

	deps := make([]depgraph.HostImport, len(imports))
	for i, im := range imports {
		x, err := syntax.ParseExpr("import "+im.Name, []byte(im.Type), names)
		if err != nil {
			return nil, syntaxError(err, "type of import "+im.Name)
		}
		deps[i] = depgraph.HostImport{Name: im.Name, Type: x, Value: im.Value}
	}

	g, err := depgraph.Build(trees, deps)
	if err != nil {
		return nil, err
	}
	log.Debug("graph built", "nodes", g.Len(), "sources", len(trees), "imports", len(deps))

	order, err := g.Order()
	if err != nil {
		return nil, err
	}
	log.Debug("compilation order", "order", depgraph.FormatOrder(order))

	res, err := eval.Evaluate(g, order, eval.Config{
		MaxSteps: opts.MaxSteps,
		Limits:   opts.Interpreter,
		Natives:  opts.Natives,
		Logger:   log,
	})
	if err != nil {
		return nil, err
	}
	log.Debug("evaluated", "data", len(res.Data), "code", len(res.Code), "procedures", len(res.Procs))

	if opts.Flags&NoCodeGen == 0 {
		return nil, diag.Errorf(diag.Fatal, syntax.Pos{}, "Code generation not currently supported")
	}
	return &Program{res: res, trees: trees, order: order}, nil
}

// syntaxError turns a parse failure into a diagnostic.
func syntaxError(err error, context string) error {
	var se *syntax.SyntaxError
	if !errors.As(err, &se) {
		return err
	}
	d := diag.Errorf(diag.Syntax, se.Pos, "%s", se.Msg)
	d.Span = se.Span
	d.Context = context
	d.Err = err
	return d
}
