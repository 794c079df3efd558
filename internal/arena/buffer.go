package arena

import (
	"encoding/binary"
	"errors"
)

// ErrLimit is returned when a Buffer would grow past its limit.
var ErrLimit = errors.New("arena: buffer limit exceeded")

// Buffer is a growable byte buffer addressed by offset. It backs the data
// section of a compiled program.
type Buffer struct {
	// Limit caps the buffer size in bytes. Zero means unlimited.
	Limit int

	data []byte
}

// Len returns the number of bytes written.
func (b *Buffer) Len() int { return len(b.data) }

// Bytes returns the buffer contents. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte { return b.data }

// Slice returns n bytes starting at off.
func (b *Buffer) Slice(off, n int) []byte { return b.data[off : off+n : off+n] }

// Align pads the buffer with zeros to a multiple of align.
func (b *Buffer) Align(align int) error {
	if align <= 1 {
		return nil
	}
	pad := (align - len(b.data)%align) % align
	return b.grow(pad)
}

// Append aligns the buffer and copies p to the end, returning its offset.
func (b *Buffer) Append(p []byte, align int) (int, error) {
	if err := b.Align(align); err != nil {
		return 0, err
	}
	off := len(b.data)
	if b.Limit > 0 && off+len(p) > b.Limit {
		return 0, ErrLimit
	}
	b.data = append(b.data, p...)
	return off, nil
}

// PutUint64 overwrites 8 bytes at off.
func (b *Buffer) PutUint64(off int, v uint64) {
	binary.LittleEndian.PutUint64(b.data[off:], v)
}

// Reset empties the buffer, keeping its storage.
func (b *Buffer) Reset() { b.data = b.data[:0] }

func (b *Buffer) grow(n int) error {
	if b.Limit > 0 && len(b.data)+n > b.Limit {
		return ErrLimit
	}
	for range n {
		b.data = append(b.data, 0)
	}
	return nil
}
