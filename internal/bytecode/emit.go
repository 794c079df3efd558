package bytecode

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// emitter wraps an io.Writer with helpers for writing listings.
type emitter struct {
	w   io.Writer
	err error // first write error
}

// emit writes a formatted line to the output (no indentation).
func (e *emitter) emit(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format+"\n", args...)
}

// emitInst writes an indented instruction line.
func (e *emitter) emitInst(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, "    "+format+"\n", args...)
}

func regList(regs []Reg, prefix string) string {
	parts := make([]string, len(regs))
	for i, r := range regs {
		parts[i] = fmt.Sprintf("%s%d", prefix, r)
	}
	return strings.Join(parts, ", ")
}

// Format renders the instruction in listing syntax. Native procedures are
// named from natives when the index is in range.
func (in Inst) Format(natives []Native) string {
	right := func() string {
		if in.Imm {
			return in.Value.Format(in.Type)
		}
		return fmt.Sprintf("%%%d", in.B)
	}
	switch in.Op {
	case OpNop:
		return "nop"
	case OpLoadConstant:
		return fmt.Sprintf("%%%d <- load_constant.%s %s", in.Dst, in.Type, in.Value.Format(in.Type))
	case OpAdd, OpSub, OpMul, OpDiv:
		return fmt.Sprintf("%%%d <- %s.%s %%%d, %s", in.Dst, in.Op, in.Type, in.A, right())
	case OpCompare:
		return fmt.Sprintf("%%%d <- compare.%s.%s %%%d, %s", in.Dst, in.Cmp, in.Type, in.A, right())
	case OpBranch:
		return fmt.Sprintf("branch %%%d {0x%04x}", in.A, in.Loc)
	case OpJump:
		return fmt.Sprintf("jump {0x%04x}", in.Loc)
	case OpCall:
		s := fmt.Sprintf("call {0x%04x} (%s)", in.Loc, regList(in.Args, "%"))
		if len(in.Rets) > 0 {
			s = regList(in.Rets, "%") + " <- " + s
		}
		return s
	case OpReturn:
		if len(in.Args) == 0 {
			return "ret"
		}
		return "ret " + regList(in.Args, "%")
	case OpNativeCall:
		name := fmt.Sprintf("#%d", in.Native)
		if in.Native < uint64(len(natives)) && natives[in.Native].Name != "" {
			name = natives[in.Native].Name
		}
		s := fmt.Sprintf("native_call {%s} (%s)", name, regList(in.Args, "%"))
		if in.HasDst {
			s = fmt.Sprintf("%%%d <- %s", in.Dst, s)
		}
		return s
	case OpLoad:
		return fmt.Sprintf("%%%d <- load.%s [%%%d + 0x%x]", in.Dst, in.Type, in.A, in.Offset)
	case OpStore:
		return fmt.Sprintf("store.%s [%%%d + 0x%x] <- %%%d", in.Type, in.A, in.Offset, in.Dst)
	case OpCheckAddress:
		return fmt.Sprintf("check_address.%s [%%%d + 0x%x]", in.Type, in.A, in.Offset)
	case OpStackAlloc:
		return fmt.Sprintf("%%%d <- stack_alloc %d", in.Dst, in.Offset)
	case OpStackFree:
		return fmt.Sprintf("stack_free %d", in.Offset)
	}
	return in.Op.String()
}

func (in Inst) String() string { return in.Format(nil) }

// Disassemble writes one line per instruction of code, prefixed with its
// location. It stops at the first instruction that cannot be decoded and
// returns the decoding error.
func Disassemble(w io.Writer, code []byte, natives []Native) error {
	e := &emitter{w: w}
	for pc := uint32(0); pc < uint32(len(code)); {
		in, next, err := Decode(code, pc)
		if err != nil {
			e.emit("%04x  ???", pc)
			if e.err != nil {
				return e.err
			}
			return err
		}
		e.emit("%04x  %s", pc, in.Format(natives))
		pc = next
	}
	return e.err
}

// Def describes one procedure for WriteC.
type Def struct {
	Name    string
	Code    []byte // the whole stream the procedure lives in
	Start   uint32 // first instruction of the procedure
	End     uint32 // end of the procedure, len(Code) if zero
	In      []Type
	Out     []Type
	Natives []Native
	Procs   map[uint32]Def // call targets by location; only Name and Out are used
}

// WriteC writes def as a C function. Each register becomes a local
// variable named __N and branch targets become __loc_N labels.
func WriteC(w io.Writer, def Def) error {
	end := def.End
	if end == 0 || end > uint32(len(def.Code)) {
		end = uint32(len(def.Code))
	}

	var insts []Inst
	labels := map[uint32]int{}
	locals := map[Reg]string{}
	for pc := def.Start; pc < end; {
		in, next, err := Decode(def.Code, pc)
		if err != nil {
			return err
		}
		insts = append(insts, in)
		if in.Op == OpBranch || in.Op == OpJump {
			if _, ok := labels[in.Loc]; !ok {
				labels[in.Loc] = len(labels)
			}
		}
		for r, ct := range cDefs(in, def) {
			if _, ok := locals[r]; !ok && int(r) >= len(def.In) {
				locals[r] = ct
			}
		}
		pc = next
	}

	e := &emitter{w: w}
	ret := "void"
	if len(def.Out) > 0 {
		ret = typeC[def.Out[0]]
	}
	params := make([]string, len(def.In))
	for i, t := range def.In {
		params[i] = fmt.Sprintf("%s __%d", typeC[t], i)
	}
	e.emit("%s %s(%s) {", ret, def.Name, strings.Join(params, ", "))

	regs := make([]Reg, 0, len(locals))
	for r := range locals {
		regs = append(regs, r)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i] < regs[j] })
	for _, r := range regs {
		e.emitInst("%s __%d;", locals[r], r)
	}

	for _, in := range insts {
		if n, ok := labels[in.PC]; ok {
			e.emit("__loc_%d:", n)
		}
		writeCInst(e, in, def, labels)
	}
	if n, ok := labels[end]; ok {
		e.emit("__loc_%d:;", n)
	}
	e.emit("}")
	return e.err
}

// cDefs returns the registers written by in and their C types.
func cDefs(in Inst, def Def) map[Reg]string {
	switch in.Op {
	case OpLoadConstant, OpAdd, OpSub, OpMul, OpDiv, OpLoad:
		return map[Reg]string{in.Dst: typeC[in.Type]}
	case OpCompare:
		return map[Reg]string{in.Dst: "uint8_t"}
	case OpStackAlloc:
		return map[Reg]string{in.Dst: "uint32_t"}
	case OpNativeCall:
		if in.HasDst {
			ct := "uint64_t"
			if in.Native < uint64(len(def.Natives)) && len(def.Natives[in.Native].Out) > 0 {
				ct = typeC[def.Natives[in.Native].Out[0]]
			}
			return map[Reg]string{in.Dst: ct}
		}
	case OpCall:
		out := calleeOut(in.Loc, def)
		m := map[Reg]string{}
		for i, r := range in.Rets {
			ct := "uint64_t"
			if i < len(out) {
				ct = typeC[out[i]]
			}
			m[r] = ct
		}
		return m
	}
	return nil
}

func calleeOut(loc uint32, def Def) []Type {
	if callee, ok := def.Procs[loc]; ok {
		return callee.Out
	}
	if loc == def.Start {
		return def.Out
	}
	return nil
}

func calleeName(loc uint32, def Def) string {
	if callee, ok := def.Procs[loc]; ok && callee.Name != "" {
		return callee.Name
	}
	if loc == def.Start {
		return def.Name
	}
	return fmt.Sprintf("proc_%04x", loc)
}

var cOps = map[Op]string{OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/"}

func writeCInst(e *emitter, in Inst, def Def, labels map[uint32]int) {
	right := func() string {
		if in.Imm {
			return in.Value.Format(in.Type)
		}
		return fmt.Sprintf("__%d", in.B)
	}
	switch in.Op {
	case OpNop:
	case OpLoadConstant:
		e.emitInst("__%d = %s;", in.Dst, in.Value.Format(in.Type))
	case OpAdd, OpSub, OpMul, OpDiv:
		e.emitInst("__%d = __%d %s %s;", in.Dst, in.A, cOps[in.Op], right())
	case OpCompare:
		sym := "?"
		if int(in.Cmp) < len(cmpSymbols) {
			sym = cmpSymbols[in.Cmp]
		}
		e.emitInst("__%d = __%d %s %s;", in.Dst, in.A, sym, right())
	case OpBranch:
		e.emitInst("if (__%d) goto __loc_%d;", in.A, labels[in.Loc])
	case OpJump:
		e.emitInst("goto __loc_%d;", labels[in.Loc])
	case OpCall:
		call := fmt.Sprintf("%s(%s)", calleeName(in.Loc, def), regList(in.Args, "__"))
		switch len(in.Rets) {
		case 0:
			e.emitInst("%s;", call)
		case 1:
			e.emitInst("__%d = %s;", in.Rets[0], call)
		default:
			e.emitInst("/* %s */ %s;", regList(in.Rets, "__"), call)
		}
	case OpReturn:
		if len(in.Args) == 0 {
			e.emitInst("return;")
		} else {
			e.emitInst("return __%d;", in.Args[0])
		}
	case OpNativeCall:
		name := fmt.Sprintf("native_%d", in.Native)
		if in.Native < uint64(len(def.Natives)) && def.Natives[in.Native].Name != "" {
			name = def.Natives[in.Native].Name
		}
		call := fmt.Sprintf("%s(%s)", name, regList(in.Args, "__"))
		if in.HasDst {
			e.emitInst("__%d = %s;", in.Dst, call)
		} else {
			e.emitInst("%s;", call)
		}
	case OpLoad:
		e.emitInst("__%d = *(%s*)(__stack + __%d + %d);", in.Dst, typeC[in.Type], in.A, in.Offset)
	case OpStore:
		e.emitInst("*(%s*)(__stack + __%d + %d) = __%d;", typeC[in.Type], in.A, in.Offset, in.Dst)
	case OpCheckAddress:
		e.emitInst("/* check_address.%s __%d + %d */", in.Type, in.A, in.Offset)
	case OpStackAlloc:
		e.emitInst("__%d = __stack_alloc(%d);", in.Dst, in.Offset)
	case OpStackFree:
		e.emitInst("__stack_free(%d);", in.Offset)
	}
}
