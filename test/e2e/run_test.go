package e2e

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"github.com/you-not-fish/kai"
	"github.com/you-not-fish/kai/internal/depgraph"
)

// TestE2E runs the test cases of every markdown document in testdata/.
// Each case compiles its kai fences with the imports it declares, then
// checks the exported values, the order of the global values, calls
// into the program, or the compile error.
func TestE2E(t *testing.T) {
	files, err := filepath.Glob("testdata/*.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no .md test files found in testdata/")
	}

	for _, file := range files {
		markdown, err := os.ReadFile(file)
		if err != nil {
			t.Fatal(err)
		}
		cases, err := extractTestCases(markdown)
		if err != nil {
			t.Fatalf("%s: %v", file, err)
		}
		doc := strings.TrimSuffix(filepath.Base(file), ".md")
		t.Run(doc, func(t *testing.T) {
			for _, tc := range cases {
				t.Run(tc.Name, func(t *testing.T) {
					runCase(t, tc)
				})
			}
		})
	}
}

func runCase(t *testing.T, tc testCase) {
	t.Helper()
	sources := make([]kai.Source, len(tc.Sources))
	for i, src := range tc.Sources {
		sources[i] = kai.Source{Name: fmt.Sprintf("case%d.kai", i+1), Contents: []byte(src)}
	}
	imports := make([]kai.Import, len(tc.Imports))
	for i, im := range tc.Imports {
		imports[i] = kai.Import{Name: im.Name, Type: im.Type, Value: im.Value}
	}

	prog, err := kai.CreateProgram(sources, imports, kai.DefaultOptions())
	if tc.CompileError != "" {
		if err == nil {
			t.Fatalf("expected compile error containing %q", tc.CompileError)
		}
		if !strings.Contains(err.Error(), tc.CompileError) {
			t.Fatalf("compile error:\n%v\nwant it to contain:\n%s", err, tc.CompileError)
		}
		return
	}
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	if tc.Values != "" {
		be.Equal(t, values(t, prog), tc.Values)
	}
	if tc.Order != "" {
		be.Equal(t, globalOrder(prog), tc.Order)
	}
	for _, call := range tc.Calls {
		checkCall(t, prog, call)
	}
}

// values formats every exported value, one per line.
func values(t *testing.T, prog *kai.Program) string {
	t.Helper()
	var lines []string
	for _, name := range prog.Variables() {
		_, typ, _ := prog.FindVariable(name)
		v, err := prog.Value(name)
		if err != nil {
			t.Fatalf("value of %s: %v", name, err)
		}
		lines = append(lines, fmt.Sprintf("%s: %s = %v", name, typ, v))
	}
	return strings.Join(lines, "\n")
}

// globalOrder names the global values in the order they were evaluated.
func globalOrder(prog *kai.Program) string {
	g := prog.Graph()
	var names []string
	for _, r := range prog.Order() {
		info := g.Infos[r.Index]
		if r.Kind != depgraph.Value || info.Scope != depgraph.GlobalScope || info.Flags&(depgraph.Builtin|depgraph.Import) != 0 {
			continue
		}
		names = append(names, info.Name)
	}
	return strings.Join(names, " ")
}

// checkCall runs a line of the form "proc arg... = result". Arguments
// are integers, floats or booleans.
func checkCall(t *testing.T, prog *kai.Program, line string) {
	t.Helper()
	lhs, want, ok := strings.Cut(line, "=")
	if !ok {
		t.Fatalf("malformed call %q", line)
	}
	fields := strings.Fields(lhs)
	if len(fields) == 0 {
		t.Fatalf("malformed call %q", line)
	}
	args := make([]any, len(fields)-1)
	for i, f := range fields[1:] {
		args[i] = parseArg(f)
	}
	got, err := prog.Call(fields[0], args...)
	if err != nil {
		t.Fatalf("%s: %v", line, err)
	}
	be.Equal(t, fmt.Sprint(got), strings.TrimSpace(want))
}

func parseArg(s string) any {
	if i, err := strconv.ParseInt(s, 0, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
