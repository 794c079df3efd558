package types

import (
	"encoding/binary"
	"hash"

	"golang.org/x/crypto/blake2b"
)

// Hash returns a 64-bit structural fingerprint of t. Equivalent types have
// equal hashes, so hosts can match a type they describe against one the
// compiler built without sharing pointers.
func Hash(t Type) uint64 {
	h, err := blake2b.New(8, nil)
	if err != nil {
		// Only fails for sizes outside 1..64 or oversized keys.
		panic(err)
	}
	encode(h, t)
	return binary.LittleEndian.Uint64(h.Sum(nil))
}

// encode writes the canonical encoding of t: its kind byte followed by
// the parameters of that kind.
func encode(h hash.Hash, t Type) {
	var buf [8]byte
	u32 := func(v uint32) {
		binary.LittleEndian.PutUint32(buf[:4], v)
		h.Write(buf[:4])
	}
	if t == nil {
		h.Write([]byte{0xff})
		return
	}
	h.Write([]byte{byte(t.Kind())})
	switch t := t.(type) {
	case *Int:
		sign := byte(0)
		if t.signed {
			sign = 1
		}
		h.Write([]byte{t.bits, sign})
	case *Float:
		h.Write([]byte{t.bits})
	case *Pointer:
		encode(h, t.elem)
	case *Proc:
		u32(uint32(len(t.in)))
		u32(uint32(len(t.out)))
		for _, in := range t.in {
			encode(h, in)
		}
		for _, out := range t.out {
			encode(h, out)
		}
	case *Array:
		u32(t.rows)
		u32(t.cols)
		encode(h, t.elem)
	case *Struct:
		if t.kind == KindString {
			return
		}
		u32(uint32(len(t.fields)))
		for _, f := range t.fields {
			u32(uint32(len(f.Name)))
			h.Write([]byte(f.Name))
			encode(h, f.Type)
		}
	}
}
