// Package types implements the Kai type model.
//
// Builtin types are singletons. Composite types (pointers, procedures,
// arrays, structs) are created by the evaluator and compare by identity:
// two structurally equal types built separately are different types.
// Hash gives a structural fingerprint for hosts that need to compare them.
package types

import "io"

// Kind identifies the shape of a type.
type Kind uint8

const (
	KindType Kind = iota // the type of types
	KindVoid
	KindBool
	KindInt
	KindFloat
	KindPointer
	KindProc
	KindArray
	KindStruct
	KindString
	KindNumber // untyped compile-time number
)

var kindNames = [...]string{
	KindType:    "type",
	KindVoid:    "void",
	KindBool:    "boolean",
	KindInt:     "integer",
	KindFloat:   "float",
	KindPointer: "pointer",
	KindProc:    "procedure",
	KindArray:   "array",
	KindStruct:  "struct",
	KindString:  "string",
	KindNumber:  "number",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// Type is the interface implemented by all types.
type Type interface {
	// Kind returns the shape of the type.
	Kind() Kind

	// String returns the type as it would be written in Kai source.
	String() string

	// aType is a marker method to restrict implementations to this package.
	aType()
}

// typ is a base struct for all type implementations.
type typ struct{}

func (typ) aType() {}

// Write writes the Kai spelling of t to w. A nil type is written as [null].
func Write(w io.Writer, t Type) error {
	s := "[null]"
	if t != nil {
		s = t.String()
	}
	_, err := io.WriteString(w, s)
	return err
}
