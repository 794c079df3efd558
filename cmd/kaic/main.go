// Command kaic compiles Kai programs and dumps the intermediate results.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/you-not-fish/kai"
	"github.com/you-not-fish/kai/internal/depgraph"
	"github.com/you-not-fish/kai/internal/diag"
	"github.com/you-not-fish/kai/internal/syntax"
	"github.com/you-not-fish/kai/internal/table"
)

// Version information
const Version = "0.1.0-dev"

// Config is the optional YAML configuration named by -config.
type Config struct {
	Imports []ImportConfig `yaml:"imports"`
	Codegen bool           `yaml:"codegen"`
	Limits  LimitConfig    `yaml:"limits"`
}

// ImportConfig declares one host import.
type ImportConfig struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Value any    `yaml:"value"`
}

// LimitConfig overrides the compile-time execution limits. Zero keeps the
// default.
type LimitConfig struct {
	MaxSteps  int `yaml:"max_steps"`
	Registers int `yaml:"registers"`
	Frames    int `yaml:"frames"`
	Returns   int `yaml:"returns"`
	Stack     int `yaml:"stack"`
}

// loadConfig reads a YAML configuration file.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	var conf Config
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	for i, im := range conf.Imports {
		if im.Name == "" || im.Type == "" {
			return nil, errors.Errorf("%s: import %d needs a name and a type", path, i+1)
		}
	}
	return &conf, nil
}

// options converts the configuration to compiler options and imports.
func (c *Config) options() (kai.Options, []kai.Import) {
	opts := kai.DefaultOptions()
	if c == nil {
		return opts, nil
	}
	if c.Codegen {
		opts.Flags &^= kai.NoCodeGen
	}
	if c.Limits.MaxSteps > 0 {
		opts.MaxSteps = c.Limits.MaxSteps
	}
	if c.Limits.Registers > 0 {
		opts.Interpreter.Registers = c.Limits.Registers
	}
	if c.Limits.Frames > 0 {
		opts.Interpreter.Frames = c.Limits.Frames
	}
	if c.Limits.Returns > 0 {
		opts.Interpreter.Returns = c.Limits.Returns
	}
	if c.Limits.Stack > 0 {
		opts.Interpreter.Stack = c.Limits.Stack
	}
	imports := make([]kai.Import, len(c.Imports))
	for i, im := range c.Imports {
		imports[i] = kai.Import{Name: im.Name, Type: im.Type, Value: im.Value}
	}
	return opts, imports
}

// compiler holds the state of one kaic invocation.
type compiler struct {
	stdout io.Writer
	stderr io.Writer

	emitTokens   bool
	emitAST      bool
	emitGraph    bool
	emitOrder    bool
	emitValues   bool
	emitBytecode bool
	emitC        bool
	color        bool

	conf    *Config
	logger  *slog.Logger
	sources map[string][]byte
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("kaic", flag.ContinueOnError)
	fs.SetOutput(stderr)
	c := &compiler{stdout: stdout, stderr: stderr, sources: map[string][]byte{}}

	fs.BoolVar(&c.emitTokens, "emit-tokens", false, "Output token stream")
	fs.BoolVar(&c.emitAST, "emit-ast", false, "Output AST")
	fs.BoolVar(&c.emitGraph, "emit-graph", false, "Output dependency graph")
	fs.BoolVar(&c.emitOrder, "emit-order", false, "Output compilation order")
	fs.BoolVar(&c.emitValues, "emit-values", false, "Output exported values (default)")
	fs.BoolVar(&c.emitBytecode, "emit-bytecode", false, "Output bytecode listing")
	fs.BoolVar(&c.emitC, "emit-c", false, "Output bytecode translated to C")
	fs.BoolVar(&c.color, "color", false, "Colour diagnostics")
	configPath := fs.String("config", "", "YAML file with imports and limits")
	output := fs.String("o", "", "Output file")
	repl := fs.Bool("repl", false, "Start an interactive session")
	trace := fs.Bool("trace", false, "Log compilation phases to stderr")
	version := fs.Bool("version", false, "Print version")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Kai Compiler %s\n\n", Version)
		fmt.Fprintf(stderr, "Usage: kaic [options] <file.kai>...\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *version {
		fmt.Fprintf(stdout, "kaic version %s\n", Version)
		fmt.Fprintf(stdout, "go version %s\n", runtime.Version())
		return 0
	}

	if *trace {
		c.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	if *configPath != "" {
		conf, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		c.conf = conf
	}

	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		defer f.Close()
		c.stdout = f
	}

	if *repl {
		return c.runREPL()
	}

	files := fs.Args()
	if len(files) == 0 {
		fmt.Fprintln(stderr, "error: no input file")
		fmt.Fprintln(stderr, "usage: kaic [options] <file.kai>...")
		return 1
	}

	if c.emitTokens {
		return c.runEmitTokens(files)
	}
	if c.emitAST {
		return c.runEmitAST(files)
	}
	return c.runCompile(files)
}

func (c *compiler) printError(err error) {
	p := diag.Printer{
		Sources: func(name string) []byte { return c.sources[name] },
		Color:   c.color,
	}
	p.Fprint(c.stderr, err)
}

func (c *compiler) readSources(files []string) ([]kai.Source, error) {
	sources := make([]kai.Source, 0, len(files))
	for _, name := range files {
		src, err := kai.ReadSource(name)
		if err != nil {
			return nil, err
		}
		c.sources[src.Name] = src.Contents
		sources = append(sources, src)
	}
	return sources, nil
}

// runEmitTokens scans the input files and prints all tokens with positions.
func (c *compiler) runEmitTokens(files []string) int {
	sources, err := c.readSources(files)
	if err != nil {
		fmt.Fprintf(c.stderr, "error: %v\n", err)
		return 1
	}

	var errs []string
	errh := func(pos syntax.Pos, msg string) {
		errs = append(errs, fmt.Sprintf("%s: %s", pos, msg))
	}

	fmt.Fprintf(c.stdout, "%-20s %-12s %s\n", "POSITION", "TOKEN", "LITERAL")
	fmt.Fprintf(c.stdout, "%-20s %-12s %s\n", strings.Repeat("-", 20), strings.Repeat("-", 12), strings.Repeat("-", 20))
	names := new(table.Interner)
	for _, src := range sources {
		s := syntax.NewScanner(src.Name, src.Contents, names, errh)
		for {
			s.Next()
			tok := s.Token()
			fmt.Fprintf(c.stdout, "%-20s %-12s %s\n", s.Pos(), tok, formatLiteral(s.Literal()))
			if tok.IsEOF() {
				break
			}
		}
	}

	if len(errs) > 0 {
		fmt.Fprintln(c.stdout)
		fmt.Fprintln(c.stdout, "Errors:")
		for _, e := range errs {
			fmt.Fprintf(c.stdout, "  %s\n", e)
		}
		return 1
	}
	return 0
}

// formatLiteral formats a literal for display, escaping special characters.
func formatLiteral(lit string) string {
	if lit == "" {
		return `""`
	}
	var b strings.Builder
	b.WriteRune('"')
	for _, r := range lit {
		switch r {
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case 0:
			b.WriteString(`\0`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteRune('"')
	return b.String()
}

// runEmitAST parses the input files and prints their trees.
func (c *compiler) runEmitAST(files []string) int {
	sources, err := c.readSources(files)
	if err != nil {
		fmt.Fprintf(c.stderr, "error: %v\n", err)
		return 1
	}
	code := 0
	names := new(table.Interner)
	for _, src := range sources {
		tree, err := syntax.Parse(src.Name, src.Contents, names)
		if tree != nil && tree.Root != nil {
			fmt.Fprintf(c.stdout, "file %s\n", src.Name)
			syntax.Fprint(c.stdout, tree.Root)
		}
		if err != nil {
			fmt.Fprintln(c.stderr, err)
			code = 1
		}
	}
	return code
}

// runCompile compiles the input files and writes the requested dumps.
// Without an -emit flag the exported values are printed.
func (c *compiler) runCompile(files []string) int {
	sources, err := c.readSources(files)
	if err != nil {
		fmt.Fprintf(c.stderr, "error: %v\n", err)
		return 1
	}
	opts, imports := c.conf.options()
	opts.Logger = c.logger
	prog, err := kai.CreateProgram(sources, imports, opts)
	if err != nil {
		c.printError(err)
		return 1
	}

	dumps := c.emitGraph || c.emitOrder || c.emitBytecode || c.emitC
	if c.emitGraph {
		fmt.Fprintln(c.stdout, "=== Dependency Graph ===")
		if err := prog.Graph().Dump(c.stdout, false); err != nil {
			fmt.Fprintf(c.stderr, "error: %v\n", err)
			return 1
		}
	}
	if c.emitOrder {
		fmt.Fprintln(c.stdout, "=== Compilation Order ===")
		fmt.Fprintln(c.stdout, depgraph.FormatOrder(prog.Order()))
	}
	if c.emitValues || !dumps {
		if err := writeValues(c.stdout, prog); err != nil {
			fmt.Fprintf(c.stderr, "error: %v\n", err)
			return 1
		}
	}
	if c.emitBytecode {
		fmt.Fprintln(c.stdout, "=== Bytecode ===")
		if err := prog.Disassemble(c.stdout); err != nil {
			fmt.Fprintf(c.stderr, "error: %v\n", err)
			return 1
		}
	}
	if c.emitC {
		if err := prog.WriteC(c.stdout); err != nil {
			fmt.Fprintf(c.stderr, "error: %v\n", err)
			return 1
		}
	}
	return 0
}

// writeValues prints every exported value as "name: type = value".
func writeValues(w io.Writer, prog *kai.Program) error {
	for _, name := range prog.Variables() {
		_, typ, _ := prog.FindVariable(name)
		v, err := prog.Value(name)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s: %s = %v\n", name, typ, v); err != nil {
			return err
		}
	}
	return nil
}
