package e2e

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

// Fence languages understood inside a test case.
const (
	fenceKai          = "kai"           // a source file; several make a multi-file program
	fenceImports      = "imports"       // YAML list of {name, type, value}
	fenceValues       = "values"        // expected "name: type = value" lines
	fenceCompileError = "compile-error" // text the compile error must contain
	fenceOrder        = "order"         // expected order of the global values
	fenceCalls        = "calls"         // "proc arg... = result" lines
)

type hostImport struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Value any    `yaml:"value"`
}

// testCase is one "Test: name" section of a markdown document.
type testCase struct {
	Name         string
	Line         int
	Sources      []string
	Imports      []hostImport
	Values       string
	CompileError string
	Order        string
	Calls        []string
}

// extractTestCases parses a markdown document and returns its test cases.
// A case starts at a heading "Test: name" and collects the fences that
// follow it.
func extractTestCases(markdown []byte) ([]testCase, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(markdown))

	var cases []testCase
	var cur *testCase
	flush := func() error {
		if cur == nil {
			return nil
		}
		if len(cur.Sources) == 0 {
			return fmt.Errorf("line %d: test %q has no kai fence", cur.Line, cur.Name)
		}
		if cur.CompileError == "" && cur.Values == "" && cur.Order == "" && len(cur.Calls) == 0 {
			return fmt.Errorf("line %d: test %q has no assertions", cur.Line, cur.Name)
		}
		if cur.CompileError != "" && (cur.Values != "" || len(cur.Calls) > 0) {
			return fmt.Errorf("line %d: test %q expects both an error and results", cur.Line, cur.Name)
		}
		cases = append(cases, *cur)
		return nil
	}

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *ast.Heading:
			heading := nodeText(n, markdown)
			if !strings.HasPrefix(heading, "Test: ") {
				return ast.WalkContinue, nil
			}
			if err := flush(); err != nil {
				return ast.WalkStop, err
			}
			cur = &testCase{
				Name: strings.TrimPrefix(heading, "Test: "),
				Line: lineOf(n, markdown),
			}

		case *ast.FencedCodeBlock:
			lang := string(n.Language(markdown))
			content := blockContent(n, markdown)
			line := lineOf(n, markdown)
			if cur == nil {
				if lang != "" {
					return ast.WalkStop, fmt.Errorf("line %d: %s fence outside of a test case", line, lang)
				}
				return ast.WalkContinue, nil
			}
			if err := cur.add(lang, content); err != nil {
				return ast.WalkStop, fmt.Errorf("line %d: test %q: %w", line, cur.Name, err)
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return cases, nil
}

func (tc *testCase) add(lang, content string) error {
	trimmed := strings.TrimRight(content, "\n")
	switch lang {
	case fenceKai:
		tc.Sources = append(tc.Sources, content)
	case fenceImports:
		var list []hostImport
		if err := yaml.Unmarshal([]byte(content), &list); err != nil {
			return fmt.Errorf("imports: %w", err)
		}
		tc.Imports = append(tc.Imports, list...)
	case fenceValues:
		tc.Values = trimmed
	case fenceCompileError:
		tc.CompileError = trimmed
	case fenceOrder:
		tc.Order = trimmed
	case fenceCalls:
		for _, line := range strings.Split(trimmed, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				tc.Calls = append(tc.Calls, line)
			}
		}
	case "":
	default:
		return fmt.Errorf("unknown fence language %q", lang)
	}
	return nil
}

// nodeText returns the plain text of a markdown node.
func nodeText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := n.(*ast.Text); ok {
				buf.Write(t.Segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func blockContent(block *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}

// lineOf returns the 1-based line of the node's first segment.
func lineOf(node ast.Node, source []byte) int {
	var start int
	switch n := node.(type) {
	case *ast.FencedCodeBlock:
		if n.Info != nil {
			start = n.Info.Segment.Start
		} else if n.Lines().Len() > 0 {
			start = n.Lines().At(0).Start
		}
	default:
		if l := node.Lines(); l != nil && l.Len() > 0 {
			start = l.At(0).Start
		}
	}
	return bytes.Count(source[:start], []byte("\n")) + 1
}
