package depgraph

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes one line per node: its index, V and T when the vertices are
// already evaluated, its name, its value dependencies and, in parentheses,
// its type dependencies. Builtins are skipped unless all is set.
func (g *Graph) Dump(w io.Writer, all bool) error {
	for i, info := range g.Infos {
		if info.Flags&Builtin != 0 && !all {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%2d ", i)
		b.WriteByte(flagChar(g.Values[i].Flags, 'V'))
		b.WriteByte(flagChar(g.Types[i].Flags, 'T'))
		fmt.Fprintf(&b, " %-12s", info.Name)
		writeRefs(&b, g.Values[i].Deps)
		if deps := g.Types[i].Deps; len(deps) > 0 {
			b.WriteString(" (")
			writeRefs(&b, deps)
			b.WriteString(")")
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(b.String(), " ")); err != nil {
			return err
		}
	}
	return nil
}

func flagChar(f NodeFlags, c byte) byte {
	if f&Evaluated != 0 {
		return c
	}
	return ' '
}

func writeRefs(b *strings.Builder, refs []NodeRef) {
	for i, r := range refs {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(r.String())
	}
}

// FormatOrder renders a compilation order on one line.
func FormatOrder(order []NodeRef) string {
	var b strings.Builder
	writeRefs(&b, order)
	return b.String()
}
