// Package token defines the lexical tokens produced by pkg/lexer and
// consumed by pkg/parser.
package token

import (
	"fmt"
	"math/big"

	"github.com/wolf-asm/wolf/pkg/span"
)

// Kind identifies the lexical category of a Token.
type Kind int

const (
	Error Kind = iota
	Ident
	DotIdent
	Register
	IntegerLit
	BytesLit
	Colon
	Comma
	ParenOpen
	ParenClose
	Newline
	KeywordSection
	Eof
)

func (k Kind) String() string {
	switch k {
	case Error:
		return "an error"
	case Ident:
		return "an identifier"
	case DotIdent:
		return "a directive"
	case Register:
		return "a register"
	case IntegerLit:
		return "an integer literal"
	case BytesLit:
		return "a byte string literal"
	case Colon:
		return "`:`"
	case Comma:
		return "`,`"
	case ParenOpen:
		return "`(`"
	case ParenClose:
		return "`)`"
	case Newline:
		return "a newline"
	case KeywordSection:
		return "`section`"
	case Eof:
		return "end of file"
	default:
		return "an unknown token"
	}
}

// RegisterKind distinguishes numbered general-purpose registers from
// the three named aliases.
type RegisterKind int

const (
	Numbered RegisterKind = iota
	StackPointer
	FramePointer
	ReturnAddress
)

// Token is a single lexical unit. Depending on Kind, one of the
// payload fields below is meaningful: Ident for Ident/DotIdent,
// RegKind/RegNumber for Register, IntValue for IntegerLit, BytesValue
// for BytesLit.
type Token struct {
	Kind  Kind
	Span  span.Span
	Ident string

	RegKind   RegisterKind
	RegNumber int // valid only when RegKind == Numbered

	IntValue *big.Int

	BytesValue []byte
}

func (t Token) String() string {
	switch t.Kind {
	case DotIdent:
		return fmt.Sprintf("`%s`", t.Ident)
	default:
		return t.Kind.String()
	}
}
