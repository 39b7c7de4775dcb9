// Package ir is the validated intermediate representation produced by
// pkg/validate and consumed by pkg/layout. Unlike the AST, every
// instruction here has been checked against its mnemonic's declared
// arity and operand classes, and every operand carries a concrete
// Operand value instead of raw syntax.
package ir

import (
	"math/big"

	"github.com/wolf-asm/wolf/pkg/isa"
	"github.com/wolf-asm/wolf/pkg/span"
)

// Program holds the two optional sections a Wolf ASM source may
// declare. A nil section means that section was never opened.
type Program struct {
	Code   *Section
	Static *Section
}

// Section is an ordered sequence of statements, each carrying the
// labels that precede it.
type Section struct {
	HeaderSpan span.Span
	Stmts      []Stmt
	// TrailingLabels holds labels that appear after the section's last
	// statement (or in an otherwise-empty section); they bind to the
	// section's end offset during layout.
	TrailingLabels []string
}

// Stmt is one statement in a section, together with the labels that
// were attached to its source line.
type Stmt struct {
	Labels []string
	Kind   StmtKind
	Static *StaticData
	Instr  *Instr
}

// StmtKind tags which variant a Stmt holds.
type StmtKind int

const (
	StmtStaticData StmtKind = iota
	StmtInstr
)

// StaticDataKind mirrors ast.StaticDataKind at the IR level.
type StaticDataKind int

const (
	StaticKindBytes StaticDataKind = iota
	StaticKindZero
	StaticKindUninit
	StaticKindByteStr
)

// StaticData is one static-section directive, already range-checked
// and (for StaticKindBytes) truncated to its declared width.
type StaticData struct {
	Kind StaticDataKind
	Span span.Span

	// Width in bytes of a StaticKindBytes value: 1, 2, 4, or 8.
	Width int
	// Bytes holds the little-endian encoded value for StaticKindBytes
	// (length == Width), the raw literal for StaticKindByteStr, and is
	// unused (nil) for StaticKindZero/StaticKindUninit.
	Bytes []byte
	// NBytes is the declared size for StaticKindZero/StaticKindUninit.
	NBytes uint64
}

// Size reports how many bytes this directive occupies in the loaded
// image.
func (s StaticData) Size() uint64 {
	switch s.Kind {
	case StaticKindBytes:
		return uint64(s.Width)
	case StaticKindZero, StaticKindUninit:
		return s.NBytes
	case StaticKindByteStr:
		return uint64(len(s.Bytes))
	default:
		panic("bug: unknown StaticDataKind")
	}
}

// Instr is one validated instruction: a fixed mnemonic plus exactly
// Def.Arity operands, each conforming to its declared OperandClass.
type Instr struct {
	Def  isa.Def
	Args [3]Operand
	Span span.Span
}

// OperandKind tags which variant an Operand holds.
type OperandKind int

const (
	OperandRegister OperandKind = iota
	OperandImmediate
	OperandLabel
)

// RegisterName identifies one of the 64 numbered registers or a named
// alias. Numbered registers use Index 0..63; the aliases use the
// reserved indices 64 ($sp), 65 ($fp), and 66 ($ra).
type RegisterName int

const (
	SP RegisterName = 64
	FP RegisterName = 65
	RA RegisterName = 66
)

// Operand is one argument to a validated instruction.
type Operand struct {
	Kind OperandKind

	// Register, valid when Kind == OperandRegister (always, and also
	// when a Location operand names a register with an optional
	// displacement).
	Register RegisterName
	// HasOffset/Offset apply only to Location-class register operands
	// of the form `imm(reg)`.
	HasOffset bool
	Offset    int64

	// Immediate, valid when Kind == OperandImmediate.
	Immediate *big.Int

	// Label, valid when Kind == OperandLabel: the referenced name,
	// resolved to an absolute offset during layout.
	Label string
}
