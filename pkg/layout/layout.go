// Package layout assigns byte offsets to every statement in a
// validated IR program, resolves label references against those
// offsets, and encodes instructions and static data into their final
// on-disk bytes.
//
// Bit layout of an encoded instruction word (64 bits, little-endian
// once stored to memory):
//
//	bits 63-52  opcode (12)
//	bits 51-48  arg_flags (4)
//	bits 47-32  arg0 (16)
//	bits 31-16  arg1 (16)
//	bits 15-0   arg2 (16)
//
// A Destination operand is always a register, so its slot needs no
// flag bits; arg_flags packs one 2-bit code per non-Destination
// operand, in argument order, low bits first. No instruction in the
// set has more than two non-Destination operands, so two 2-bit codes
// always fit in the 4-bit field. Codes: 0=unused, 1=register,
// 2=immediate, 3=absolute address (a resolved label).
//
// A register operand occupies its 16-bit slot as a 7-bit register
// index (0-63 numbered, 64=$sp, 65=$fp, 66=$ra) in the low bits, plus
// a 9-bit signed displacement in the high bits; a plain register
// (no offset) always has a zero displacement. An immediate operand's
// slot holds its value sign-extended from 16 bits. An absolute
// address holds the resolved label offset as an unsigned 16-bit
// value.
package layout

import (
	"encoding/binary"
	"fmt"

	"github.com/wolf-asm/wolf/pkg/diag"
	"github.com/wolf-asm/wolf/pkg/ir"
	"github.com/wolf-asm/wolf/pkg/isa"
	"github.com/wolf-asm/wolf/pkg/span"
)

const instrSize = 8

// opTrap is a reserved opcode outside the defined instruction set
// (the maximum value the 12-bit opcode field can hold). It is
// substituted for any instruction whose operand cannot be encoded, so
// that the VM's opcode lookup fails and the run traps at that PC
// instead of silently executing garbage.
const opTrap = 0xFFF

// Offsets maps every label in a program to its absolute byte offset
// in the loaded image.
type Offsets map[string]uint64

// Result is the output of laying out and encoding a validated
// program: the bytes of each section plus the label table used to
// produce them.
type Result struct {
	CodeBytes   []byte
	StaticBytes []byte
	Offsets     Offsets
}

// Run performs both layout passes: assigning offsets, then encoding
// every statement using those offsets. Errors (an unresolved label, a
// label or immediate too wide for its operand slot) are reported to
// sink; Run still returns a best-effort Result so that callers can
// decide whether sink.HasErrors() should suppress emission.
func Run(prog ir.Program, sink *diag.Sink) Result {
	offsets, _, _ := assignOffsets(prog)

	var codeBytes []byte
	if prog.Code != nil {
		codeBytes = encodeSection(*prog.Code, offsets, sink)
	}
	var staticBytes []byte
	if prog.Static != nil {
		staticBytes = encodeStaticSection(*prog.Static)
	}

	return Result{CodeBytes: codeBytes, StaticBytes: staticBytes, Offsets: offsets}
}

func stmtSize(s ir.Stmt) uint64 {
	switch s.Kind {
	case ir.StmtInstr:
		return instrSize
	case ir.StmtStaticData:
		return s.Static.Size()
	default:
		panic("bug: unknown ir.StmtKind")
	}
}

func assignOffsets(prog ir.Program) (Offsets, uint64, uint64) {
	offsets := make(Offsets)

	var codeLen uint64
	if prog.Code != nil {
		codeLen = layoutSection(*prog.Code, 0, offsets)
	}
	var staticLen uint64
	if prog.Static != nil {
		staticLen = layoutSection(*prog.Static, codeLen, offsets)
	}
	return offsets, codeLen, staticLen
}

// layoutSection binds every label in one section to an absolute
// offset and returns the section's total size in bytes.
func layoutSection(sec ir.Section, base uint64, offsets Offsets) uint64 {
	cur := base
	for _, stmt := range sec.Stmts {
		for _, name := range stmt.Labels {
			offsets[name] = cur
		}
		cur += stmtSize(stmt)
	}
	for _, name := range sec.TrailingLabels {
		offsets[name] = cur
	}
	return cur - base
}

func encodeStaticSection(sec ir.Section) []byte {
	var out []byte
	for _, stmt := range sec.Stmts {
		if stmt.Kind != ir.StmtStaticData {
			continue
		}
		out = append(out, encodeStatic(*stmt.Static)...)
	}
	return out
}

func encodeStatic(d ir.StaticData) []byte {
	switch d.Kind {
	case ir.StaticKindBytes, ir.StaticKindByteStr:
		return d.Bytes
	case ir.StaticKindZero, ir.StaticKindUninit:
		return make([]byte, d.NBytes)
	default:
		panic("bug: unknown ir.StaticDataKind")
	}
}

func encodeSection(sec ir.Section, offsets Offsets, sink *diag.Sink) []byte {
	out := make([]byte, 0, len(sec.Stmts)*instrSize)
	for _, stmt := range sec.Stmts {
		if stmt.Kind != ir.StmtInstr {
			continue
		}
		word := Encode(*stmt.Instr, offsets, sink)
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], word)
		out = append(out, buf[:]...)
	}
	return out
}

// Encode packs one instruction into its 64-bit word. Labels are
// resolved through offsets; a missing label or an operand too wide
// for its slot is reported to sink and the instruction is replaced
// with a trap.
func Encode(in ir.Instr, offsets Offsets, sink *diag.Sink) uint64 {
	var arg [3]uint16
	var flags uint8
	flagShift := 0
	trapped := false

	for i := 0; i < in.Def.Arity; i++ {
		isDestination := in.Def.Operand[i] == isa.Destination
		v, flagCode, ok := encodeOperand(in.Args[i], offsets, in.Span, sink)
		if !ok {
			trapped = true
			continue
		}
		arg[i] = v
		// A Destination slot is always a register, so the decoder
		// never needs to ask; only Source/Location slots spend a
		// 2-bit code, in argument order.
		if !isDestination {
			flags |= uint8(flagCode) << flagShift
			flagShift += 2
		}
	}

	opcode := uint16(in.Def.Opcode)
	if trapped {
		opcode = opTrap
	}
	return packWord(opcode, flags, arg)
}

func packWord(opcode uint16, flags uint8, arg [3]uint16) uint64 {
	w := uint64(opcode&0xFFF) << 52
	w |= uint64(flags&0xF) << 48
	w |= uint64(arg[0]) << 32
	w |= uint64(arg[1]) << 16
	w |= uint64(arg[2])
	return w
}

// DecodeWord splits a 64-bit instruction word back into its fields.
func DecodeWord(word uint64) (opcode uint16, flags uint8, arg [3]uint16) {
	opcode = uint16((word >> 52) & 0xFFF)
	flags = uint8((word >> 48) & 0xF)
	arg[0] = uint16((word >> 32) & 0xFFFF)
	arg[1] = uint16((word >> 16) & 0xFFFF)
	arg[2] = uint16(word & 0xFFFF)
	return
}

const (
	flagRegister uint16 = 1
	flagImmediate uint16 = 2
	flagAbsolute  uint16 = 3
)

func encodeOperand(op ir.Operand, offsets Offsets, instrSpan span.Span, sink *diag.Sink) (value uint16, flagCode uint16, ok bool) {
	switch op.Kind {
	case ir.OperandRegister:
		if op.HasOffset && (op.Offset < -256 || op.Offset > 255) {
			sink.SpanError(instrSpan, "register displacement does not fit in 9 bits")
			return 0, flagRegister, false
		}
		idx := registerIndex(op.Register)
		v := uint16(idx&0x7F) | (uint16(int16(op.Offset))&0x1FF)<<7
		return v, flagRegister, true

	case ir.OperandImmediate:
		if !op.Immediate.IsInt64() {
			sink.SpanError(instrSpan, "immediate value does not fit in a 16-bit operand slot")
			return 0, flagImmediate, false
		}
		n := op.Immediate.Int64()
		if n < -32768 || n > 32767 {
			sink.SpanError(instrSpan, "immediate value does not fit in a 16-bit operand slot")
			return 0, flagImmediate, false
		}
		return uint16(int16(n)), flagImmediate, true

	case ir.OperandLabel:
		off, found := offsets[op.Label]
		if !found {
			sink.SpanError(instrSpan, fmt.Sprintf("unresolved label `%s`", op.Label))
			return 0, flagAbsolute, false
		}
		if off > 0xFFFF {
			sink.SpanError(instrSpan, fmt.Sprintf("label `%s` offset does not fit in a 16-bit operand slot", op.Label))
			return 0, flagAbsolute, false
		}
		return uint16(off), flagAbsolute, true

	default:
		panic("bug: unknown ir.OperandKind")
	}
}

func registerIndex(r ir.RegisterName) int {
	return int(r)
}
