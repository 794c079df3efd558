package types

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestIdentical(t *testing.T) {
	p1 := NewPointer(S32)
	p2 := NewPointer(S32)

	be.True(t, Identical(S32, S32))
	be.True(t, !Identical(S32, U32))
	be.True(t, Identical(p1, p1))
	// Separately built composites are distinct.
	be.True(t, !Identical(p1, p2))
	be.True(t, Equivalent(p1, p2))
}

func TestEquivalent(t *testing.T) {
	mk := func(elem Type) *Struct {
		return NewStruct([]Field{{Name: "p", Type: NewPointer(elem)}, {Name: "n", Type: U32}})
	}
	tests := []struct {
		name string
		x, y Type
		want bool
	}{
		{"same struct", mk(U8), mk(U8), true},
		{"different element", mk(U8), mk(S8), false},
		{"renamed field", NewStruct([]Field{{Name: "a", Type: U8}}), NewStruct([]Field{{Name: "b", Type: U8}}), false},
		{"proc", NewProc([]Type{S32}, []Type{F32}), NewProc([]Type{S32}, []Type{F32}), true},
		{"proc arity", NewProc([]Type{S32}, nil), NewProc([]Type{S32, S32}, nil), false},
		{"array dims", NewArray(2, 2, U8), NewArray(4, 0, U8), false},
		{"kinds", NewPointer(U8), NewArray(1, 0, U8), false},
		{"nil", nil, U8, false},
		{"string", String, String, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be.Equal(t, Equivalent(tt.x, tt.y), tt.want)
		})
	}
}

func TestAssignableTo(t *testing.T) {
	be.True(t, AssignableTo(S32, S32))
	be.True(t, AssignableTo(Number, S32))
	be.True(t, AssignableTo(Number, F32))
	be.True(t, !AssignableTo(Number, Bool))
	be.True(t, !AssignableTo(S32, S64))
	be.True(t, !AssignableTo(S32, Number))
}

func TestComparableOrdered(t *testing.T) {
	be.True(t, Comparable(Bool))
	be.True(t, Comparable(TypeType))
	be.True(t, !Comparable(String))
	be.True(t, Ordered(F64))
	be.True(t, Ordered(Number))
	be.True(t, !Ordered(Bool))
}

func TestHash(t *testing.T) {
	a := NewProc([]Type{NewPointer(U8), S32}, []Type{S32})
	b := NewProc([]Type{NewPointer(U8), S32}, []Type{S32})
	c := NewProc([]Type{NewPointer(S8), S32}, []Type{S32})

	be.Equal(t, Hash(a), Hash(b))
	be.True(t, Hash(a) != Hash(c))
	be.True(t, Hash(S32) != Hash(U32))
	be.True(t, Hash(NewArray(2, 3, U8)) != Hash(NewArray(3, 2, U8)))
	be.True(t, Hash(NewStruct([]Field{{Name: "a", Type: U8}})) != Hash(NewStruct([]Field{{Name: "b", Type: U8}})))

	seen := map[uint64]Type{}
	for _, typ := range Builtins {
		h := Hash(typ)
		if prev, ok := seen[h]; ok {
			t.Fatalf("%s and %s share hash %016x", prev, typ, h)
		}
		seen[h] = typ
	}
}
