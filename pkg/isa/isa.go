// Package isa is the single source of truth for the Wolf ASM
// instruction set: mnemonic names, opcode numbers, and the operand
// class each argument slot accepts. Every other package that needs to
// know "how many operands does `divr` take" or "what is the opcode for
// `ret`" looks it up here rather than hard-coding it, mirroring the
// spec's own insistence that opcode numbering live in one place.
package isa

// OperandClass constrains which argument forms are legal in one
// instruction operand slot.
type OperandClass int

const (
	// Destination accepts only a register; it is written to.
	Destination OperandClass = iota
	// Source accepts a register, immediate, or label reference.
	Source
	// Location accepts a register (optionally offset), immediate, or
	// label reference, and denotes an effective address.
	Location
)

func (c OperandClass) String() string {
	switch c {
	case Destination:
		return "destination"
	case Source:
		return "source"
	case Location:
		return "location"
	default:
		return "operand"
	}
}

// Def describes one mnemonic: its opcode and the operand class of
// each of its (at most three) argument slots.
type Def struct {
	Name    string
	Opcode  uint16
	Operand [3]OperandClass
	Arity   int
}

// Opcode constants. Numbering is normative: nop=0, then every
// subsequent mnemonic in declaration order increments by 12.
const (
	OpNop = iota * 12
	OpAdd
	OpSub
	OpMul
	OpMull
	OpMulu
	OpMullu
	OpDiv
	OpDivr
	OpDivu
	OpDivru
	OpRem
	OpRemu
	OpAnd
	OpOr
	OpXor
	OpTest
	OpCmp
	OpMov
	OpLoad1
	OpLoad2
	OpLoad4
	OpLoad8
	OpLoadu1
	OpLoadu2
	OpLoadu4
	OpLoadu8
	OpStore1
	OpStore2
	OpStore4
	OpStore8
	OpPush
	OpPop
	OpJmp
	OpJe
	OpJne
	OpJg
	OpJge
	OpJa
	OpJae
	OpJl
	OpJle
	OpJb
	OpJbe
	OpJo
	OpJno
	OpJz
	OpJnz
	OpJs
	OpJns
	OpCall
	OpRet
)

// this block only works because Go scales each subsequent untyped
// const by the iota*12 expression; verify nothing else perturbs it by
// keeping every entry on its own line with no explicit value.

var defs = []Def{
	{Name: "nop", Opcode: OpNop, Arity: 0},
	{Name: "add", Opcode: OpAdd, Arity: 2, Operand: [3]OperandClass{Destination, Source}},
	{Name: "sub", Opcode: OpSub, Arity: 2, Operand: [3]OperandClass{Destination, Source}},
	{Name: "mul", Opcode: OpMul, Arity: 2, Operand: [3]OperandClass{Destination, Source}},
	{Name: "mull", Opcode: OpMull, Arity: 3, Operand: [3]OperandClass{Destination, Destination, Source}},
	{Name: "mulu", Opcode: OpMulu, Arity: 2, Operand: [3]OperandClass{Destination, Source}},
	{Name: "mullu", Opcode: OpMullu, Arity: 3, Operand: [3]OperandClass{Destination, Destination, Source}},
	{Name: "div", Opcode: OpDiv, Arity: 2, Operand: [3]OperandClass{Destination, Source}},
	{Name: "divr", Opcode: OpDivr, Arity: 3, Operand: [3]OperandClass{Destination, Destination, Source}},
	{Name: "divu", Opcode: OpDivu, Arity: 2, Operand: [3]OperandClass{Destination, Source}},
	{Name: "divru", Opcode: OpDivru, Arity: 3, Operand: [3]OperandClass{Destination, Destination, Source}},
	{Name: "rem", Opcode: OpRem, Arity: 2, Operand: [3]OperandClass{Destination, Source}},
	{Name: "remu", Opcode: OpRemu, Arity: 2, Operand: [3]OperandClass{Destination, Source}},
	{Name: "and", Opcode: OpAnd, Arity: 2, Operand: [3]OperandClass{Destination, Source}},
	{Name: "or", Opcode: OpOr, Arity: 2, Operand: [3]OperandClass{Destination, Source}},
	{Name: "xor", Opcode: OpXor, Arity: 2, Operand: [3]OperandClass{Destination, Source}},
	{Name: "test", Opcode: OpTest, Arity: 2, Operand: [3]OperandClass{Source, Source}},
	{Name: "cmp", Opcode: OpCmp, Arity: 2, Operand: [3]OperandClass{Source, Source}},
	{Name: "mov", Opcode: OpMov, Arity: 2, Operand: [3]OperandClass{Destination, Source}},
	{Name: "load1", Opcode: OpLoad1, Arity: 2, Operand: [3]OperandClass{Destination, Location}},
	{Name: "load2", Opcode: OpLoad2, Arity: 2, Operand: [3]OperandClass{Destination, Location}},
	{Name: "load4", Opcode: OpLoad4, Arity: 2, Operand: [3]OperandClass{Destination, Location}},
	{Name: "load8", Opcode: OpLoad8, Arity: 2, Operand: [3]OperandClass{Destination, Location}},
	{Name: "loadu1", Opcode: OpLoadu1, Arity: 2, Operand: [3]OperandClass{Destination, Location}},
	{Name: "loadu2", Opcode: OpLoadu2, Arity: 2, Operand: [3]OperandClass{Destination, Location}},
	{Name: "loadu4", Opcode: OpLoadu4, Arity: 2, Operand: [3]OperandClass{Destination, Location}},
	{Name: "loadu8", Opcode: OpLoadu8, Arity: 2, Operand: [3]OperandClass{Destination, Location}},
	{Name: "store1", Opcode: OpStore1, Arity: 2, Operand: [3]OperandClass{Location, Source}},
	{Name: "store2", Opcode: OpStore2, Arity: 2, Operand: [3]OperandClass{Location, Source}},
	{Name: "store4", Opcode: OpStore4, Arity: 2, Operand: [3]OperandClass{Location, Source}},
	{Name: "store8", Opcode: OpStore8, Arity: 2, Operand: [3]OperandClass{Location, Source}},
	{Name: "push", Opcode: OpPush, Arity: 1, Operand: [3]OperandClass{Source}},
	{Name: "pop", Opcode: OpPop, Arity: 1, Operand: [3]OperandClass{Destination}},
	{Name: "jmp", Opcode: OpJmp, Arity: 1, Operand: [3]OperandClass{Location}},
	{Name: "je", Opcode: OpJe, Arity: 1, Operand: [3]OperandClass{Location}},
	{Name: "jne", Opcode: OpJne, Arity: 1, Operand: [3]OperandClass{Location}},
	{Name: "jg", Opcode: OpJg, Arity: 1, Operand: [3]OperandClass{Location}},
	{Name: "jge", Opcode: OpJge, Arity: 1, Operand: [3]OperandClass{Location}},
	{Name: "ja", Opcode: OpJa, Arity: 1, Operand: [3]OperandClass{Location}},
	{Name: "jae", Opcode: OpJae, Arity: 1, Operand: [3]OperandClass{Location}},
	{Name: "jl", Opcode: OpJl, Arity: 1, Operand: [3]OperandClass{Location}},
	{Name: "jle", Opcode: OpJle, Arity: 1, Operand: [3]OperandClass{Location}},
	{Name: "jb", Opcode: OpJb, Arity: 1, Operand: [3]OperandClass{Location}},
	{Name: "jbe", Opcode: OpJbe, Arity: 1, Operand: [3]OperandClass{Location}},
	{Name: "jo", Opcode: OpJo, Arity: 1, Operand: [3]OperandClass{Location}},
	{Name: "jno", Opcode: OpJno, Arity: 1, Operand: [3]OperandClass{Location}},
	{Name: "jz", Opcode: OpJz, Arity: 1, Operand: [3]OperandClass{Location}},
	{Name: "jnz", Opcode: OpJnz, Arity: 1, Operand: [3]OperandClass{Location}},
	{Name: "js", Opcode: OpJs, Arity: 1, Operand: [3]OperandClass{Location}},
	{Name: "jns", Opcode: OpJns, Arity: 1, Operand: [3]OperandClass{Location}},
	{Name: "call", Opcode: OpCall, Arity: 1, Operand: [3]OperandClass{Location}},
	{Name: "ret", Opcode: OpRet, Arity: 0},
}

var (
	byName   = make(map[string]Def, len(defs))
	byOpcode = make(map[uint16]Def, len(defs))
)

func init() {
	for _, d := range defs {
		byName[d.Name] = d
		byOpcode[d.Opcode] = d
	}
}

// Lookup finds a mnemonic's definition by name.
func Lookup(name string) (Def, bool) {
	d, ok := byName[name]
	return d, ok
}

// ByOpcode finds a mnemonic's definition by its numeric opcode.
func ByOpcode(opcode uint16) (Def, bool) {
	d, ok := byOpcode[opcode]
	return d, ok
}

// Nop returns the definition for `nop`, used as the semantic
// validator's recovery instruction for unknown mnemonics.
func Nop() Def { return byName["nop"] }
