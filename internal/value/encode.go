package value

import (
	"encoding/binary"
	"fmt"

	"github.com/you-not-fish/kai/internal/arena"
	"github.com/you-not-fish/kai/internal/number"
	"github.com/you-not-fish/kai/internal/types"
)

// Encoder writes values into a data buffer using the runtime layout:
// integers and floats little endian at their width, bool as one byte,
// #Number as n u64, d u64, e s32, sign u8 and three bytes of padding,
// types and procedures as 8-byte handles, structs with fields at their
// offsets and arrays with elements packed.
//
// A string is {count u64, data u64}; data is the offset of the bytes in
// the same buffer, which are appended after the value holding the string.
type Encoder struct {
	Buf *arena.Buffer

	// Types and Procs map types and procedures to their handles.
	// Nil functions encode zero.
	Types func(types.Type) uint64
	Procs func(*Procedure) uint64
}

// Encode appends v, of type t, to the buffer and returns its offset.
func (e *Encoder) Encode(v Value, t types.Type) (int, error) {
	off, err := e.Buf.Append(make([]byte, types.Size(t)), 8)
	if err != nil {
		return 0, err
	}
	return off, e.put(off, v, t)
}

func (e *Encoder) put(off int, v Value, t types.Type) error {
	switch t := t.(type) {
	case *types.Struct:
		if t.Kind() == types.KindString {
			data, err := e.Buf.Append([]byte(v.Str), 1)
			if err != nil {
				return err
			}
			p := e.Buf.Slice(off, 16)
			binary.LittleEndian.PutUint64(p, uint64(len(v.Str)))
			binary.LittleEndian.PutUint64(p[8:], uint64(data))
			return nil
		}
		for i, f := range t.Fields() {
			if err := e.put(off+f.Offset, elem(v, i), f.Type); err != nil {
				return err
			}
		}
		return nil
	case *types.Array:
		size := types.Size(t.Elem())
		for i := range t.Len() {
			if err := e.put(off+i*size, elem(v, i), t.Elem()); err != nil {
				return err
			}
		}
		return nil
	case *types.Proc:
		var h uint64
		if e.Procs != nil && v.Proc != nil {
			h = e.Procs(v.Proc)
		}
		binary.LittleEndian.PutUint64(e.Buf.Slice(off, 8), h)
		return nil
	}
	switch t {
	case types.Number:
		putNumber(e.Buf.Slice(off, types.SizeNumber), v.Number)
		return nil
	case types.TypeType:
		var h uint64
		if e.Types != nil && v.Type != nil {
			h = e.Types(v.Type)
		}
		binary.LittleEndian.PutUint64(e.Buf.Slice(off, 8), h)
		return nil
	case types.Void:
		return nil
	}
	size := types.Size(t)
	if size == 0 {
		return fmt.Errorf("%w: cannot encode %s", ErrConvert, t)
	}
	putScalar(e.Buf.Slice(off, size), v.Scalar)
	return nil
}

func putScalar(p []byte, v uint64) {
	for i := range p {
		p[i] = byte(v >> (8 * i))
	}
}

func scalar(p []byte) uint64 {
	var v uint64
	for i := range p {
		v |= uint64(p[i]) << (8 * i)
	}
	return v
}

func putNumber(p []byte, n number.Number) {
	binary.LittleEndian.PutUint64(p, n.N)
	binary.LittleEndian.PutUint64(p[8:], n.D)
	binary.LittleEndian.PutUint32(p[16:], uint32(n.E))
	p[20] = 0
	if n.Neg {
		p[20] = 1
	}
}

// Decoder reads values laid out by an Encoder.
type Decoder struct {
	Data []byte

	Types func(uint64) types.Type
	Procs func(uint64) *Procedure
}

// Decode reads the value of type t at off.
func (d *Decoder) Decode(off int, t types.Type) (Value, error) {
	size := types.Size(t)
	if off < 0 || off+size > len(d.Data) {
		return Value{}, fmt.Errorf("%w: %d bytes at offset %d", ErrRange, size, off)
	}
	switch t := t.(type) {
	case *types.Struct:
		if t.Kind() == types.KindString {
			n := binary.LittleEndian.Uint64(d.Data[off:])
			data := binary.LittleEndian.Uint64(d.Data[off+8:])
			if data+n > uint64(len(d.Data)) {
				return Value{}, fmt.Errorf("%w: string data at offset %d", ErrRange, data)
			}
			return OfString(string(d.Data[data : data+n])), nil
		}
		elems := make([]Value, t.NumFields())
		for i, f := range t.Fields() {
			v, err := d.Decode(off+f.Offset, f.Type)
			if err != nil {
				return Value{}, err
			}
			elems[i] = v
		}
		return Value{Elems: elems}, nil
	case *types.Array:
		size := types.Size(t.Elem())
		elems := make([]Value, t.Len())
		for i := range elems {
			v, err := d.Decode(off+i*size, t.Elem())
			if err != nil {
				return Value{}, err
			}
			elems[i] = v
		}
		return Value{Elems: elems}, nil
	case *types.Proc:
		h := binary.LittleEndian.Uint64(d.Data[off:])
		if d.Procs == nil {
			return Value{}, nil
		}
		return OfProc(d.Procs(h)), nil
	}
	switch t {
	case types.Number:
		p := d.Data[off:]
		n := number.Number{
			N:   binary.LittleEndian.Uint64(p),
			D:   binary.LittleEndian.Uint64(p[8:]),
			E:   int32(binary.LittleEndian.Uint32(p[16:])),
			Neg: p[20] != 0,
		}
		return OfNumber(n.Normalize()), nil
	case types.TypeType:
		h := binary.LittleEndian.Uint64(d.Data[off:])
		if d.Types == nil {
			return Value{}, nil
		}
		return OfType(d.Types(h)), nil
	}
	return Value{Scalar: scalar(d.Data[off : off+size])}, nil
}
