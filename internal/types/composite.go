package types

import (
	"strconv"
	"strings"
)

// Pointer represents a pointer type *T.
type Pointer struct {
	typ
	elem Type
}

// NewPointer creates a new pointer type.
func NewPointer(elem Type) *Pointer {
	return &Pointer{elem: elem}
}

// Kind implements Type.
func (*Pointer) Kind() Kind { return KindPointer }

// Elem returns the type the pointer points to.
func (p *Pointer) Elem() Type { return p.elem }

// String implements Type.
func (p *Pointer) String() string { return "*" + p.elem.String() }

// Proc represents a procedure signature.
type Proc struct {
	typ
	in  []Type
	out []Type
}

// NewProc creates a new procedure type. Kai procedures return at most one
// value but the type keeps a list so host signatures can be described.
func NewProc(in, out []Type) *Proc {
	return &Proc{in: in, out: out}
}

// Kind implements Type.
func (*Proc) Kind() Kind { return KindProc }

// In returns the parameter types.
func (p *Proc) In() []Type { return p.in }

// Out returns the result types.
func (p *Proc) Out() []Type { return p.out }

// Result returns the single result type, or nil for procedures without one.
func (p *Proc) Result() Type {
	if len(p.out) == 0 {
		return nil
	}
	return p.out[0]
}

// String implements Type.
func (p *Proc) String() string {
	var buf strings.Builder
	buf.WriteString("(")
	writeList(&buf, p.in)
	buf.WriteString(") -> (")
	writeList(&buf, p.out)
	buf.WriteString(")")
	return buf.String()
}

func writeList(buf *strings.Builder, list []Type) {
	for i, t := range list {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(t.String())
	}
}

// Array represents [Rows]Elem or the two dimensional [Rows, Cols]Elem.
type Array struct {
	typ
	rows uint32
	cols uint32 // zero for one dimensional arrays
	elem Type
}

// NewArray creates a new array type. Pass cols == 0 for a one dimensional
// array.
func NewArray(rows, cols uint32, elem Type) *Array {
	return &Array{rows: rows, cols: cols, elem: elem}
}

// Kind implements Type.
func (*Array) Kind() Kind { return KindArray }

func (a *Array) Rows() uint32 { return a.rows }
func (a *Array) Cols() uint32 { return a.cols }
func (a *Array) Elem() Type   { return a.elem }

// Len returns the number of elements.
func (a *Array) Len() int {
	if a.cols == 0 {
		return int(a.rows)
	}
	return int(a.rows) * int(a.cols)
}

// String implements Type.
func (a *Array) String() string {
	s := "[" + strconv.FormatUint(uint64(a.rows), 10)
	if a.cols != 0 {
		s += ", " + strconv.FormatUint(uint64(a.cols), 10)
	}
	return s + "]" + a.elem.String()
}

// Field is a member of a struct.
type Field struct {
	Name   string
	Offset int
	Type   Type
}

// Struct represents a struct type. Fields are laid out in declaration order
// with no padding, so each offset is the sum of the sizes before it.
type Struct struct {
	typ
	kind   Kind // KindStruct, or KindString for the builtin string
	name   string
	fields []Field
	size   int
}

// NewStruct creates a struct with the given members. Offsets in fields are
// ignored and recomputed.
func NewStruct(fields []Field) *Struct {
	s := &Struct{kind: KindStruct, fields: fields}
	s.layout()
	return s
}

func (s *Struct) layout() {
	off := 0
	for i := range s.fields {
		s.fields[i].Offset = off
		off += Size(s.fields[i].Type)
	}
	s.size = off
}

// Kind implements Type.
func (s *Struct) Kind() Kind { return s.kind }

// NumFields returns the number of fields.
func (s *Struct) NumFields() int { return len(s.fields) }

// Field returns the field at index i.
func (s *Struct) Field(i int) Field { return s.fields[i] }

// Fields returns all fields. The slice must not be modified.
func (s *Struct) Fields() []Field { return s.fields }

// Lookup returns the field called name.
func (s *Struct) Lookup(name string) (Field, bool) {
	for _, f := range s.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Size returns the size of the struct in bytes.
func (s *Struct) Size() int { return s.size }

// String implements Type.
func (s *Struct) String() string {
	if s.name != "" {
		return s.name
	}
	var buf strings.Builder
	buf.WriteString("struct {")
	for _, f := range s.fields {
		buf.WriteString(" ")
		buf.WriteString(f.Name)
		buf.WriteString(": ")
		buf.WriteString(f.Type.String())
		buf.WriteString(";")
	}
	buf.WriteString(" }")
	return buf.String()
}
