package depgraph

import (
	"github.com/you-not-fish/kai/internal/diag"
)

// dfs numbers the 2N vertices of a graph: VALUE(i) is i and TYPE(i) is
// N+i.
type dfs struct {
	g       *Graph
	post    []int
	prev    []int
	visited []bool
	next    int
}

func newDFS(g *Graph) *dfs {
	n := 2 * g.Len()
	d := &dfs{
		g:       g,
		post:    make([]int, n),
		prev:    make([]int, n),
		visited: make([]bool, n),
	}
	d.reset()
	return d
}

func (d *dfs) reset() {
	for i := range d.prev {
		d.prev[i] = -1
		d.visited[i] = false
	}
	d.next = 0
}

func (d *dfs) vertex(r NodeRef) int {
	if r.Kind == Type {
		return d.g.Len() + int(r.Index)
	}
	return int(r.Index)
}

func (d *dfs) ref(v int) NodeRef {
	if n := d.g.Len(); v >= n {
		return NodeRef{Kind: Type, Index: uint32(v - n)}
	}
	return NodeRef{Kind: Value, Index: uint32(v)}
}

func (d *dfs) explore(s int) {
	d.visited[s] = true
	for _, r := range d.g.Deps(d.ref(s)) {
		v := d.vertex(r)
		if !d.visited[v] {
			d.prev[v] = s
			d.explore(v)
		}
	}
	d.post[s] = d.next
	d.next++
}

// Order returns every vertex such that each one comes after all of its
// dependencies. The roots of the traversal are all VALUE vertices in
// index order followed by all TYPE vertices. A cycle is reported as a
// semantic error naming the first vertex involved, with one note per
// vertex on the path back to it.
func (g *Graph) Order() ([]NodeRef, error) {
	d := newDFS(g)
	for v := range d.post {
		if !d.visited[v] {
			d.explore(v)
		}
	}

	order := make([]NodeRef, len(d.post))
	for v, p := range d.post {
		order[p] = d.ref(v)
	}

	for u := range d.post {
		for _, r := range g.Deps(d.ref(u)) {
			v := d.vertex(r)
			if d.post[u] <= d.post[v] {
				return nil, d.cycle(u, v)
			}
		}
	}
	return order, nil
}

// cycle explains the back edge u → v. A fresh traversal from v finds a
// path to u; walking it backwards lists the vertices between them.
func (d *dfs) cycle(u, v int) error {
	g := d.g
	head := d.ref(v)
	err := diag.Errorf(diag.Semantic, g.Infos[head.Index].Pos, "%s cannot depend on itself", g.Describe(head))

	d.reset()
	d.explore(v)
	for w := u; w != v && w >= 0; w = d.prev[w] {
		r := d.ref(w)
		err.Note(g.Infos[r.Index].Pos, "see %s", g.Describe(r))
	}
	return err
}
