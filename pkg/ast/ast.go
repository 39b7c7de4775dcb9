// Package ast defines the syntax tree produced by pkg/parser and
// consumed by pkg/constexpand and pkg/validate.
package ast

import (
	"fmt"
	"math/big"

	"github.com/wolf-asm/wolf/pkg/span"
	"github.com/wolf-asm/wolf/pkg/token"
)

// Program is an ordered sequence of top-level statements.
type Program struct {
	Stmts []Stmt
}

// Stmt is one parsed line's worth of syntax. Exactly one of the
// pointer fields is non-nil, selected by Kind.
type Stmt struct {
	Kind       StmtKind
	Label      *Ident
	Section    *Section
	Include    *Include
	Const      *Const
	StaticData *StaticData
	Instr      *Instr
}

// StmtKind tags which variant a Stmt holds.
type StmtKind int

const (
	StmtLabel StmtKind = iota
	StmtSection
	StmtInclude
	StmtConst
	StmtStaticData
	StmtInstr
)

// SectionKind names one of the two sections a program may declare.
type SectionKind int

const (
	SectionCode SectionKind = iota
	SectionStatic
)

// Section is a `section .code` or `section .static` header.
type Section struct {
	Kind SectionKind
	Span span.Span
}

// Include is an `.include b"path"` directive.
type Include struct {
	Path Bytes
	Span span.Span
}

// Const is a `.const name value` directive.
type Const struct {
	Name  Ident
	Value Immediate
	Span  span.Span
}

// StaticData is one of the four `.b1`/`.b2`/`.b4`/`.b8`/`.zero`/
// `.uninit`/`.bytes` directives.
type StaticData struct {
	Kind    StaticDataKind
	Bytes   *StaticBytes
	Zero    *StaticZero
	Uninit  *StaticUninit
	ByteStr *StaticByteStr
}

// StaticDataKind tags which variant a StaticData holds.
type StaticDataKind int

const (
	StaticKindBytes StaticDataKind = iota
	StaticKindZero
	StaticKindUninit
	StaticKindByteStr
)

// StaticBytes is a `.b1`/`.b2`/`.b4`/`.b8` directive. Size is the
// declared width in bytes (1, 2, 4, or 8).
type StaticBytes struct {
	Size  int
	Value Immediate
	Span  span.Span
}

// StaticZero is a `.zero N` directive.
type StaticZero struct {
	NBytes Integer
	Span   span.Span
}

// StaticUninit is an `.uninit N` directive.
type StaticUninit struct {
	NBytes Integer
	Span   span.Span
}

// StaticByteStr is a `.bytes b"..."` directive.
type StaticByteStr struct {
	Bytes Bytes
	Span  span.Span
}

func (s StaticData) Span() span.Span {
	switch s.Kind {
	case StaticKindBytes:
		return s.Bytes.Span
	case StaticKindZero:
		return s.Zero.Span
	case StaticKindUninit:
		return s.Uninit.Span
	case StaticKindByteStr:
		return s.ByteStr.Span
	default:
		panic("bug: unknown StaticDataKind")
	}
}

// Instr is a parsed mnemonic plus its argument list, before constant
// expansion or semantic validation.
type Instr struct {
	Name Ident
	Args []InstrArg
}

func (i Instr) Span() span.Span {
	sp := i.Name.Span
	if len(i.Args) > 0 {
		sp = sp.To(i.Args[len(i.Args)-1].Span())
	}
	return sp
}

// InstrArgKind tags which variant an InstrArg holds.
type InstrArgKind int

const (
	ArgRegister InstrArgKind = iota
	ArgImmediate
	ArgName
)

// InstrArg is one parsed instruction argument: a (possibly offset)
// register, an immediate, or a bare name (a constant reference before
// expansion, or a label reference after).
type InstrArg struct {
	Kind      InstrArgKind
	Register  Register
	Immediate Immediate
	Name      Ident
}

func (a InstrArg) Span() span.Span {
	switch a.Kind {
	case ArgRegister:
		return a.Register.Span
	case ArgImmediate:
		return a.Immediate.Span
	case ArgName:
		return a.Name.Span
	default:
		panic("bug: unknown InstrArgKind")
	}
}

func (a InstrArg) String() string {
	switch a.Kind {
	case ArgRegister:
		return a.Register.String()
	case ArgImmediate:
		return a.Immediate.Value.String()
	case ArgName:
		return a.Name.Value
	default:
		return "<invalid arg>"
	}
}

// RegisterKind mirrors token.RegisterKind at the AST level.
type RegisterKind int

const (
	Numbered RegisterKind = iota
	StackPointer
	FramePointer
	ReturnAddress
)

func registerKindFrom(k token.RegisterKind) RegisterKind {
	switch k {
	case token.StackPointer:
		return StackPointer
	case token.FramePointer:
		return FramePointer
	case token.ReturnAddress:
		return ReturnAddress
	default:
		return Numbered
	}
}

// Register is a `$N`/`$sp`/`$fp`/`$ra` operand, with an optional
// displacement immediate when used as `imm(reg)`.
type Register struct {
	Kind   RegisterKind
	Number int // valid only when Kind == Numbered
	Offset *Immediate
	Span   span.Span
}

// RegisterFromToken builds a Register from a lexed token.Register token.
func RegisterFromToken(tk token.Token) Register {
	return Register{
		Kind:   registerKindFrom(tk.RegKind),
		Number: tk.RegNumber,
		Span:   tk.Span,
	}
}

func (r Register) String() string {
	switch r.Kind {
	case StackPointer:
		return "$sp"
	case FramePointer:
		return "$fp"
	case ReturnAddress:
		return "$ra"
	default:
		return fmt.Sprintf("$%d", r.Number)
	}
}

// Immediate is an integer literal used as an operand value.
type Immediate struct {
	Value *big.Int
	Span  span.Span
}

// Integer is an integer literal used for a size (e.g. `.zero N`).
type Integer struct {
	Value *big.Int
	Span  span.Span
}

// Bytes is a byte-string literal.
type Bytes struct {
	Value []byte
	Span  span.Span
}

// Ident is a bare identifier: an instruction mnemonic, a label name, a
// constant name, or (pre-expansion) a constant reference.
type Ident struct {
	Value string
	Span  span.Span
}
