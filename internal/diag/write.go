package diag

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiRed    = "\x1b[31m"
	ansiCyan   = "\x1b[36m"
	ansiYellow = "\x1b[33m"
)

// Sources looks up the contents of a file by name for source excerpts.
type Sources func(filename string) []byte

// Printer renders diagnostic chains for humans.
type Printer struct {
	Sources Sources
	Color   bool
}

// Fprint writes err to w. Errors that are not diagnostics are written as is.
func (p *Printer) Fprint(w io.Writer, err error) {
	d, ok := As(err)
	if !ok {
		fmt.Fprintln(w, err)
		return
	}
	for e := range d.All() {
		p.write(w, e)
	}
}

func (p *Printer) write(w io.Writer, e *Error) {
	var b strings.Builder
	if e.Pos.IsValid() {
		b.WriteString(p.paint(ansiBold, e.Pos.String()+":"))
		b.WriteByte(' ')
	}
	color := ansiRed
	if e.Kind == Info {
		color = ansiCyan
	} else if e.Kind == Fatal || e.Kind == Internal {
		color = ansiYellow
	}
	b.WriteString(p.paint(color, e.Kind.String()+":"))
	b.WriteByte(' ')
	b.WriteString(e.Msg)
	if e.Context != "" {
		b.WriteString(" (")
		b.WriteString(e.Context)
		b.WriteByte(')')
	}
	b.WriteByte('\n')

	if line, ok := p.sourceLine(e); ok {
		prefix := fmt.Sprintf("%5d | ", e.Pos.Line())
		b.WriteString(prefix)
		b.WriteString(line)
		b.WriteByte('\n')
		col := int(e.Pos.Col())
		if col < 1 {
			col = 1
		}
		width := len(e.Span)
		if width == 0 || col-1+width > len(line) {
			width = 1
		}
		b.WriteString(strings.Repeat(" ", len(prefix)-2))
		b.WriteString("| ")
		for i := 0; i < col-1 && i < len(line); i++ {
			if line[i] == '\t' {
				b.WriteByte('\t')
			} else {
				b.WriteByte(' ')
			}
		}
		b.WriteString(p.paint(color, "^"+strings.Repeat("~", width-1)))
		b.WriteByte('\n')
	}
	io.WriteString(w, b.String())
}

func (p *Printer) sourceLine(e *Error) (string, bool) {
	if p.Sources == nil || !e.Pos.IsValid() {
		return "", false
	}
	src := p.Sources(e.Pos.Filename())
	if src == nil {
		return "", false
	}
	line := int(e.Pos.Line())
	for i := 1; i < line; i++ {
		j := bytes.IndexByte(src, '\n')
		if j < 0 {
			return "", false
		}
		src = src[j+1:]
	}
	if j := bytes.IndexByte(src, '\n'); j >= 0 {
		src = src[:j]
	}
	return strings.TrimRight(string(src), "\r"), true
}

func (p *Printer) paint(color, s string) string {
	if !p.Color {
		return s
	}
	return color + s + ansiReset
}
