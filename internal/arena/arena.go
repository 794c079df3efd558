// Package arena provides bucketed allocation for objects that live as long
// as a compilation.
package arena

// DefaultBucketSize is the number of objects per bucket when none is given.
const DefaultBucketSize = 256

// Slab hands out pointers to zeroed T values carved from fixed-size buckets.
// Pointers stay valid until Reset. The zero value uses DefaultBucketSize.
type Slab[T any] struct {
	BucketSize int

	buckets [][]T
	used    int // objects used in the last bucket
	count   int
}

// New returns a pointer to a fresh zero T.
func (s *Slab[T]) New() *T {
	n := s.BucketSize
	if n <= 0 {
		n = DefaultBucketSize
	}
	if len(s.buckets) == 0 || s.used == n {
		s.buckets = append(s.buckets, make([]T, n))
		s.used = 0
	}
	b := s.buckets[len(s.buckets)-1]
	p := &b[s.used]
	s.used++
	s.count++
	return p
}

// Len returns the number of objects allocated since the last Reset.
func (s *Slab[T]) Len() int { return s.count }

// Buckets returns the number of buckets currently held.
func (s *Slab[T]) Buckets() int { return len(s.buckets) }

// Reset drops every bucket. Previously returned pointers must not be used.
func (s *Slab[T]) Reset() {
	s.buckets = nil
	s.used = 0
	s.count = 0
}
