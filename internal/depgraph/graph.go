// Package depgraph builds the dependency graph of a Kai program and orders
// it for evaluation.
//
// Every named entity (builtin type, host import, global or constant
// declaration) owns two vertices: its VALUE and its TYPE. An edge u → v
// means v must be evaluated before u. The VALUE of a node always depends
// on its own TYPE.
package depgraph

import (
	"fmt"
	"math"

	"github.com/you-not-fish/kai/internal/syntax"
	"github.com/you-not-fish/kai/internal/table"
	"github.com/you-not-fish/kai/internal/types"
	"github.com/you-not-fish/kai/internal/value"
)

// Kind selects one of the two vertices of a node.
type Kind uint8

const (
	Value Kind = iota
	Type
)

func (k Kind) String() string {
	if k == Type {
		return "type"
	}
	return "value"
}

// NodeRef names a vertex: the VALUE or TYPE of the node at Index.
type NodeRef struct {
	Kind  Kind
	Index uint32
}

// Local is the sentinel a scope stores for parameters and local variables.
// Locals are resolved at run time and never produce edges.
var Local = NodeRef{Index: math.MaxUint32}

// IsLocal reports whether r is the local sentinel.
func (r NodeRef) IsLocal() bool { return r.Index == math.MaxUint32 }

// String renders a value vertex as its index and a type vertex as T and
// its index, as in the compilation order dump.
func (r NodeRef) String() string {
	if r.IsLocal() {
		return "local"
	}
	if r.Kind == Type {
		return fmt.Sprintf("T%d", r.Index)
	}
	return fmt.Sprintf("%d", r.Index)
}

// InfoFlags describe where a node came from.
type InfoFlags uint8

const (
	Const InfoFlags = 1 << iota
	Export
	Import
	Builtin
)

// Info is the static description of a node.
type Info struct {
	Name     string
	Decl     *syntax.Decl // nil for builtins and imports
	Expr     syntax.Expr  // initializer, nil if absent
	TypeExpr syntax.Expr  // explicit annotation or import type, nil if absent
	Pos      syntax.Pos
	Scope    int
	Flags    InfoFlags
	Tags     []*syntax.Tag
	Host     any // import value supplied by the host
}

// NodeFlags track evaluation progress.
type NodeFlags uint8

const (
	Evaluated NodeFlags = 1 << iota
)

// ValueNode is the VALUE vertex of a node.
type ValueNode struct {
	Deps  []NodeRef
	Flags NodeFlags
	Value value.Value
}

// TypeNode is the TYPE vertex of a node.
type TypeNode struct {
	Deps  []NodeRef
	Flags NodeFlags
	Type  types.Type
}

// Scope maps names to nodes. Scope 0 is the global scope; its parent
// is -1.
type Scope struct {
	Names  table.Table[NodeRef]
	Parent int
	IsProc bool // opened by a procedure literal
}

// GlobalScope is the index of the global scope.
const GlobalScope = 0

// HostImport is a host-supplied declaration.
type HostImport struct {
	Name  string
	Type  syntax.Expr
	Value any
	Pos   syntax.Pos
}

// Graph is the dependency graph of a program. Infos, Values and Types are
// parallel arrays indexed by node index.
type Graph struct {
	Infos  []Info
	Values []ValueNode
	Types  []TypeNode
	Scopes []*Scope

	scopeOf map[syntax.Node]int
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.Infos) }

// ScopeOf returns the scope opened by n, which is a procedure literal, a
// compound statement or a for statement.
func (g *Graph) ScopeOf(n syntax.Node) (int, bool) {
	s, ok := g.scopeOf[n]
	return s, ok
}

// Deps returns the dependencies of the vertex r.
func (g *Graph) Deps(r NodeRef) []NodeRef {
	if r.Kind == Type {
		return g.Types[r.Index].Deps
	}
	return g.Values[r.Index].Deps
}

// Lookup resolves name starting at scope. Locals are visible only until
// the search leaves the innermost procedure.
func (g *Graph) Lookup(name string, scope int, allowLocals bool) (NodeRef, bool) {
	for scope >= 0 {
		s := g.Scopes[scope]
		if r, ok := s.Names.Get(name); ok {
			if !r.IsLocal() || allowLocals {
				return r, true
			}
		}
		if s.IsProc {
			allowLocals = false
		}
		scope = s.Parent
	}
	return NodeRef{}, false
}

// Describe renders r for diagnostics: value of "x" or type of "x".
func (g *Graph) Describe(r NodeRef) string {
	return fmt.Sprintf("%s of %q", r.Kind, g.Infos[r.Index].Name)
}

func (g *Graph) newScope(parent int, isProc bool) int {
	g.Scopes = append(g.Scopes, &Scope{Parent: parent, IsProc: isProc})
	return len(g.Scopes) - 1
}

func (g *Graph) addNode(info Info) uint32 {
	index := uint32(len(g.Infos))
	g.Infos = append(g.Infos, info)
	g.Values = append(g.Values, ValueNode{})
	g.Types = append(g.Types, TypeNode{})
	return index
}

// builtinNames are the source names of types.Builtins, in order.
var builtinNames = [types.NumBuiltins]string{
	"type", "void",
	"s8", "s16", "s32", "s64",
	"u8", "u16", "u32", "u64",
	"f32", "f64",
	"bool", "#Number", "string",
}

func (g *Graph) addBuiltins() {
	global := g.Scopes[GlobalScope]
	for i, t := range types.Builtins {
		index := g.addNode(Info{Name: builtinNames[i], Scope: GlobalScope, Flags: Builtin | Const})
		g.Values[index] = ValueNode{Flags: Evaluated, Value: value.OfType(t)}
		g.Types[index] = TypeNode{Flags: Evaluated, Type: types.TypeType}
		global.Names.Put(builtinNames[i], NodeRef{Kind: Value, Index: index})
	}
}
