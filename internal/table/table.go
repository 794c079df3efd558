// Package table provides the string-keyed hash table used for scopes,
// variable tables and the identifier interner.
//
// Keys are hashed with the djb2 recurrence (h<<5)+h+c and stored with linear
// probing. Occupancy is tracked with a per-slot bit so removal can shift the
// following cluster back instead of leaving tombstones.
package table

import "iter"

const (
	minCapacity = 8
	loadNum     = 6 // grow once count reaches 6/8 of capacity
	loadDen     = 8
)

// Table maps strings to values of type V.
// The zero value is an empty table ready to use.
type Table[V any] struct {
	count    int
	occupied []bool
	hashes   []uint64
	keys     []string
	values   []V
}

// Hash returns the djb2 hash of s.
func Hash(s string) uint64 {
	h := uint64(5381)
	for i := 0; i < len(s); i++ {
		h = (h << 5) + h + uint64(s[i])
	}
	return h
}

// Len returns the number of entries.
func (t *Table[V]) Len() int { return t.count }

// Cap returns the number of slots.
func (t *Table[V]) Cap() int { return len(t.keys) }

// Get returns the value stored under key.
func (t *Table[V]) Get(key string) (V, bool) {
	if i, ok := t.find(key, Hash(key)); ok {
		return t.values[i], true
	}
	var zero V
	return zero, false
}

// Has reports whether key is present.
func (t *Table[V]) Has(key string) bool {
	_, ok := t.find(key, Hash(key))
	return ok
}

// Put stores v under key. It returns the previous value and true when key was
// already present, in which case the stored value is replaced.
func (t *Table[V]) Put(key string, v V) (V, bool) {
	h := Hash(key)
	if i, ok := t.find(key, h); ok {
		old := t.values[i]
		t.values[i] = v
		return old, true
	}
	if (t.count+1)*loadDen > len(t.keys)*loadNum {
		t.grow()
	}
	t.insert(h, key, v)
	var zero V
	return zero, false
}

// Insert stores v under key only when key is absent. It returns the existing
// value and false when key was already present.
func (t *Table[V]) Insert(key string, v V) (V, bool) {
	h := Hash(key)
	if i, ok := t.find(key, h); ok {
		return t.values[i], false
	}
	if (t.count+1)*loadDen > len(t.keys)*loadNum {
		t.grow()
	}
	t.insert(h, key, v)
	return v, true
}

// Remove deletes key and reports whether it was present.
func (t *Table[V]) Remove(key string) bool {
	i, ok := t.find(key, Hash(key))
	if !ok {
		return false
	}
	mask := len(t.keys) - 1
	var zero V
	// Backward-shift deletion: pull later members of the probe cluster into
	// the hole while doing so keeps them reachable from their home slot.
	j := i
	for {
		j = (j + 1) & mask
		if !t.occupied[j] {
			break
		}
		home := int(t.hashes[j]) & mask
		if (j > i && (home <= i || home > j)) || (j < i && home <= i && home > j) {
			t.occupied[i] = true
			t.hashes[i] = t.hashes[j]
			t.keys[i] = t.keys[j]
			t.values[i] = t.values[j]
			i = j
		}
	}
	t.occupied[i] = false
	t.hashes[i] = 0
	t.keys[i] = ""
	t.values[i] = zero
	t.count--
	return true
}

// Clear removes every entry while keeping the allocated slots.
func (t *Table[V]) Clear() {
	clear(t.occupied)
	clear(t.hashes)
	clear(t.keys)
	clear(t.values)
	t.count = 0
}

// All iterates over the entries in slot order.
func (t *Table[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for i, ok := range t.occupied {
			if ok && !yield(t.keys[i], t.values[i]) {
				return
			}
		}
	}
}

func (t *Table[V]) find(key string, h uint64) (int, bool) {
	if t.count == 0 {
		return 0, false
	}
	mask := len(t.keys) - 1
	for i := int(h) & mask; ; i = (i + 1) & mask {
		if !t.occupied[i] {
			return 0, false
		}
		if t.hashes[i] == h && t.keys[i] == key {
			return i, true
		}
	}
}

func (t *Table[V]) insert(h uint64, key string, v V) {
	mask := len(t.keys) - 1
	i := int(h) & mask
	for t.occupied[i] {
		i = (i + 1) & mask
	}
	t.occupied[i] = true
	t.hashes[i] = h
	t.keys[i] = key
	t.values[i] = v
	t.count++
}

func (t *Table[V]) grow() {
	n := len(t.keys) * 2
	if n < minCapacity {
		n = minCapacity
	}
	occupied, hashes, keys, values := t.occupied, t.hashes, t.keys, t.values
	t.occupied = make([]bool, n)
	t.hashes = make([]uint64, n)
	t.keys = make([]string, n)
	t.values = make([]V, n)
	t.count = 0
	for i, ok := range occupied {
		if ok {
			t.insert(hashes[i], keys[i], values[i])
		}
	}
}
