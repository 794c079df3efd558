package types

// Sizes of the runtime representations, in bytes.
const (
	SizeType   = 8 // handle into the program's type table
	SizePtr    = 8
	SizeProc   = 8  // handle into the program's procedure table
	SizeNumber = 24 // n u64, d u64, e s32, sign u8, padding
)

// Size returns the size of a value of type t in bytes. void has size zero.
func Size(t Type) int {
	switch t := t.(type) {
	case *Basic:
		switch t.kind {
		case KindType:
			return SizeType
		case KindBool:
			return 1
		case KindNumber:
			return SizeNumber
		}
		return 0
	case *Int:
		return int(t.bits / 8)
	case *Float:
		return int(t.bits / 8)
	case *Pointer:
		return SizePtr
	case *Proc:
		return SizeProc
	case *Array:
		return t.Len() * Size(t.elem)
	case *Struct:
		return t.size
	}
	return 0
}
