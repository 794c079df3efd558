package bytecode

// NativeFunc is a host procedure callable from bytecode. It receives the
// argument registers and returns the value for the destination register.
type NativeFunc func(args []Value) Value

// Native describes a host procedure. NATIVE_CALL instructions refer to it
// by its index in the interpreter's table.
type Native struct {
	Name string
	Func NativeFunc
	In   []Type
	Out  []Type // empty for procedures without a result
}
