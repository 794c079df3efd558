package table

import (
	"testing"

	"github.com/nalgeon/be"
)

func TestFruit(t *testing.T) {
	var tab Table[int]
	fruit := []string{"apple", "grape", "orange", "banana", "strawberry", "blueberry", "mango"}
	for i, f := range fruit {
		_, existed := tab.Put(f, i)
		be.True(t, !existed)
	}
	be.Equal(t, tab.Len(), len(fruit))
	for i, f := range fruit {
		v, ok := tab.Get(f)
		be.True(t, ok)
		be.Equal(t, v, i)
	}
	_, ok := tab.Get("kiwi")
	be.True(t, !ok)

	old, existed := tab.Put("mango", 100)
	be.True(t, existed)
	be.Equal(t, old, 6)
	v, _ := tab.Get("mango")
	be.Equal(t, v, 100)
}

// odometer advances a lowercase key like a car odometer: the last letter
// rolls over from z to a and carries into the previous one.
func odometer(key []byte) {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] != 'z' {
			key[i]++
			return
		}
		key[i] = 'a'
	}
}

func TestStress(t *testing.T) {
	var tab Table[int]
	key := []byte("aaaaaaaaaaa")
	var keys []string
	for i := 0; i < 1024; i++ {
		k := string(key)
		keys = append(keys, k)
		tab.Put(k, i)
		for j, prev := range keys {
			v, ok := tab.Get(prev)
			if !ok || v != j {
				t.Fatalf("after inserting %q: lost %q (got %d, %v)", k, prev, v, ok)
			}
		}
		odometer(key)
	}
	be.Equal(t, tab.Len(), 1024)
	be.True(t, tab.Len()*loadDen <= tab.Cap()*loadNum)
}

func TestRemove(t *testing.T) {
	var tab Table[int]
	key := []byte("aaaa")
	var keys []string
	for i := 0; i < 200; i++ {
		keys = append(keys, string(key))
		tab.Put(string(key), i)
		odometer(key)
	}

	// Drop every third key and make sure the rest stay reachable.
	for i := 0; i < len(keys); i += 3 {
		be.True(t, tab.Remove(keys[i]))
	}
	be.True(t, !tab.Remove(keys[0]))

	for i, k := range keys {
		v, ok := tab.Get(k)
		if i%3 == 0 {
			be.True(t, !ok)
			continue
		}
		be.True(t, ok)
		be.Equal(t, v, i)
	}

	n := 0
	for range tab.All() {
		n++
	}
	be.Equal(t, n, tab.Len())
}

func TestCollidingRemove(t *testing.T) {
	var tab Table[string]
	// Force a single probe cluster by filling a small table.
	for _, k := range []string{"a", "b", "c", "d", "e"} {
		tab.Put(k, k)
	}
	for _, k := range []string{"b", "d"} {
		be.True(t, tab.Remove(k))
	}
	for _, k := range []string{"a", "c", "e"} {
		v, ok := tab.Get(k)
		be.True(t, ok)
		be.Equal(t, v, k)
	}
	tab.Clear()
	be.Equal(t, tab.Len(), 0)
	_, ok := tab.Get("a")
	be.True(t, !ok)
}

func TestInsert(t *testing.T) {
	var tab Table[int]
	v, added := tab.Insert("x", 1)
	be.True(t, added)
	be.Equal(t, v, 1)
	v, added = tab.Insert("x", 2)
	be.True(t, !added)
	be.Equal(t, v, 1)
}

func TestInterner(t *testing.T) {
	var in Interner
	a := in.Intern("hello")
	b := in.InternBytes([]byte("hello"))
	be.Equal(t, a, b)
	be.Equal(t, in.Len(), 1)
	in.Intern("world")
	be.Equal(t, in.Len(), 2)
}
