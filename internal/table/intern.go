package table

// Interner hands out one canonical copy of each distinct string.
// Identifiers seen by the scanner are interned so equal names share storage
// and can be compared cheaply by the later phases.
type Interner struct {
	strings Table[string]
}

// Intern returns the canonical copy of s.
func (in *Interner) Intern(s string) string {
	if c, ok := in.strings.Get(s); ok {
		return c
	}
	c := string([]byte(s)) // detach from the source buffer
	in.strings.Put(c, c)
	return c
}

// InternBytes is Intern for a byte slice. Lookups do not allocate.
func (in *Interner) InternBytes(b []byte) string {
	if c, ok := in.strings.Get(string(b)); ok {
		return c
	}
	c := string(b)
	in.strings.Put(c, c)
	return c
}

// Len returns the number of distinct strings.
func (in *Interner) Len() int { return in.strings.Len() }
