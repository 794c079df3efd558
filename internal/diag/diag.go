// Package diag defines the diagnostics reported by the Kai compiler.
//
// A diagnostic is an Error; related notes hang off Next so one failure can
// carry its explanation (for example a redeclaration followed by a note
// pointing at the original declaration).
package diag

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/you-not-fish/kai/internal/syntax"
)

// Kind classifies a diagnostic.
type Kind uint8

const (
	Success  Kind = iota
	Memory        // an allocation or buffer limit was hit
	Syntax        // the source could not be parsed
	Semantic      // the program is well formed but invalid
	Info          // a note attached to another diagnostic
	Fatal         // a compiler invariant was broken
	Internal      // an internal limit or component failed
)

var kindNames = [...]string{
	Success:  "success",
	Memory:   "memory error",
	Syntax:   "syntax error",
	Semantic: "error",
	Info:     "info",
	Fatal:    "fatal error",
	Internal: "internal error",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// ErrUnsupported marks operations the evaluator does not implement.
// Match it with errors.Is.
var ErrUnsupported = errors.New("unsupported operation")

// Error is a single diagnostic and the head of its chain of notes.
type Error struct {
	Kind    Kind
	Pos     syntax.Pos
	Msg     string
	Context string // what the compiler was doing, if known
	Span    string // offending source text, if known
	Next    *Error
	Err     error // underlying cause
}

// Errorf creates a diagnostic of the given kind.
func Errorf(kind Kind, pos syntax.Pos, format string, args ...any) *Error {
	return &Error{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// Unsupported creates a semantic diagnostic wrapping ErrUnsupported.
func Unsupported(pos syntax.Pos, format string, args ...any) *Error {
	e := Errorf(Semantic, pos, format, args...)
	e.Err = ErrUnsupported
	return e
}

// Error formats the head of the chain followed by its notes, one per line.
func (e *Error) Error() string {
	var b strings.Builder
	for d := range e.All() {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		d.writeHeader(&b)
	}
	return b.String()
}

func (e *Error) writeHeader(b *strings.Builder) {
	if e.Pos.IsValid() {
		b.WriteString(e.Pos.String())
		b.WriteString(": ")
	}
	if e.Kind != Semantic {
		b.WriteString(e.Kind.String())
		b.WriteString(": ")
	}
	b.WriteString(e.Msg)
	if e.Context != "" {
		b.WriteString(" (")
		b.WriteString(e.Context)
		b.WriteString(")")
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Note appends an Info diagnostic to the end of the chain and returns e.
func (e *Error) Note(pos syntax.Pos, format string, args ...any) *Error {
	return e.Append(Errorf(Info, pos, format, args...))
}

// Append links next at the end of the chain and returns e.
func (e *Error) Append(next *Error) *Error {
	last := e
	for last.Next != nil {
		last = last.Next
	}
	last.Next = next
	return e
}

// All iterates over the chain starting at e.
func (e *Error) All() iter.Seq[*Error] {
	return func(yield func(*Error) bool) {
		for d := e; d != nil; d = d.Next {
			if !yield(d) {
				return
			}
		}
	}
}

// Len returns the number of diagnostics in the chain.
func (e *Error) Len() int {
	n := 0
	for range e.All() {
		n++
	}
	return n
}

// As extracts the diagnostic chain from err, if any.
func As(err error) (*Error, bool) {
	var d *Error
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

// KindOf returns the kind of the head diagnostic in err, or Internal for
// foreign errors and Success for nil.
func KindOf(err error) Kind {
	if err == nil {
		return Success
	}
	if d, ok := As(err); ok {
		return d.Kind
	}
	return Internal
}
