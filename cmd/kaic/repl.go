package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/pkg/errors"

	"github.com/you-not-fish/kai"
	"github.com/you-not-fish/kai/internal/depgraph"
)

const (
	historyFile = ".kai_history"
	promptMain  = "kai> "
	promptCont  = "...> "

	// replName is the file name given to the session's declarations.
	replName = "<repl>"

	// resultName holds an expression typed at the prompt.
	resultName = "__result"
)

const replHelp = `Declarations such as "x :: 3;" are added to the session.
Anything else is evaluated as an expression.

  :vars      list the session's values
  :order     print the compilation order
  :bytecode  disassemble the session's procedures
  :reset     forget every declaration
  :quit      leave
`

// session accumulates the declarations entered at the prompt. Every
// input recompiles the whole session.
type session struct {
	c     *compiler
	decls []string
}

func (s *session) source(extra string) []kai.Source {
	text := strings.Join(s.decls, "\n")
	if extra != "" {
		text += "\n" + extra
	}
	return []kai.Source{{Name: replName, Contents: []byte(text)}}
}

func (s *session) compile(extra string) (*kai.Program, error) {
	opts, imports := s.c.conf.options()
	opts.Flags |= kai.NoCodeGen
	opts.Logger = s.c.logger
	src := s.source(extra)
	s.c.sources[replName] = src[0].Contents
	return kai.CreateProgram(src, imports, opts)
}

// eval handles one complete input and writes its result to w.
func (s *session) eval(w io.Writer, input string) error {
	input = strings.TrimSpace(input)
	if isDecl(input) {
		before := map[string]bool{}
		if prev, err := s.compile(""); err == nil {
			for _, name := range prev.Variables() {
				before[name] = true
			}
		}
		prog, err := s.compile(input)
		if err != nil {
			return err
		}
		s.decls = append(s.decls, input)
		for _, name := range prog.Variables() {
			if before[name] {
				continue
			}
			if err := writeValue(w, prog, name); err != nil {
				return err
			}
		}
		return nil
	}

	prog, err := s.compile(fmt.Sprintf("%s :: %s;", resultName, strings.TrimSuffix(input, ";")))
	if err != nil {
		return err
	}
	_, typ, _ := prog.FindVariable(resultName)
	v, err := prog.Value(resultName)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%v (%s)\n", v, typ)
	return err
}

// command runs a ':' command and reports whether the session should end.
func (s *session) command(w io.Writer, line string) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":q":
		return true, nil
	case ":help", ":h":
		_, err := io.WriteString(w, replHelp)
		return false, err
	case ":reset":
		s.decls = nil
		return false, nil
	}

	prog, err := s.compile("")
	if err != nil {
		return false, err
	}
	switch fields[0] {
	case ":vars":
		for _, name := range prog.Variables() {
			if err := writeValue(w, prog, name); err != nil {
				return false, err
			}
		}
	case ":order":
		_, err = fmt.Fprintln(w, depgraph.FormatOrder(prog.Order()))
	case ":bytecode":
		err = prog.Disassemble(w)
	default:
		err = errors.Errorf("unknown command %s (try :help)", fields[0])
	}
	return false, err
}

func writeValue(w io.Writer, prog *kai.Program, name string) error {
	_, typ, _ := prog.FindVariable(name)
	v, err := prog.Value(name)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s: %s = %v\n", name, typ, v)
	return err
}

// isDecl reports whether input declares something rather than being a
// bare expression. Declarations name a binding with ':' before any
// other operator.
func isDecl(input string) bool {
	i := strings.IndexByte(input, ':')
	if i <= 0 {
		return false
	}
	name := strings.TrimSpace(input[:i])
	if name == "" {
		return false
	}
	for _, r := range name {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// incomplete reports whether src has unclosed braces or parentheses and
// more lines should be read.
func incomplete(src string) bool {
	depth := 0
	inString := false
	for i := 0; i < len(src); i++ {
		switch ch := src[i]; {
		case inString && ch == '\\':
			i++
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{' || ch == '(':
			depth++
		case ch == '}' || ch == ')':
			depth--
		}
	}
	return depth > 0 || inString
}

func (c *compiler) runREPL() int {
	fmt.Fprintf(c.stdout, "Kai %s. Type :help for help.\n", Version)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	s := &session{c: c}
	for {
		input, ok := readInput(ln)
		if !ok {
			fmt.Fprintln(c.stdout)
			break
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(input, "\n", " "))

		if strings.HasPrefix(strings.TrimSpace(input), ":") {
			done, err := s.command(c.stdout, strings.TrimSpace(input))
			if err != nil {
				c.printError(err)
			}
			if done {
				break
			}
			continue
		}
		if err := s.eval(c.stdout, input); err != nil {
			c.printError(err)
		}
	}

	if f, err := os.Create(histPath); err == nil {
		_, _ = ln.WriteHistory(f)
		_ = f.Close()
	}
	return 0
}

// readInput reads lines until the braces balance. It returns false at
// end of input.
func readInput(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl+C drops the pending input.
			return "", true
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if !incomplete(b.String()) {
			return b.String(), true
		}
	}
}
