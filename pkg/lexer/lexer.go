// Package lexer turns a source byte buffer into a stream of tokens.
package lexer

import (
	"math/big"

	"github.com/wolf-asm/wolf/pkg/diag"
	"github.com/wolf-asm/wolf/pkg/span"
	"github.com/wolf-asm/wolf/pkg/token"
)

// Lexer scans one Source and reports lex errors to a diag.Sink.
type Lexer struct {
	src  *span.Source
	diag *diag.Sink
	pos  int
}

// New creates a lexer over src, reporting errors to sink.
func New(src *span.Source, sink *diag.Sink) *Lexer {
	return &Lexer{src: src, diag: sink}
}

// Tokenize runs the lexer to completion and returns every token,
// terminated by a single Eof token.
func Tokenize(src *span.Source, sink *diag.Sink) []token.Token {
	lx := New(src, sink)
	var toks []token.Token
	for {
		tk := lx.Next()
		toks = append(toks, tk)
		if tk.Kind == token.Eof {
			return toks
		}
	}
}

func (lx *Lexer) bytes() []byte {
	return lx.src.Bytes
}

func (lx *Lexer) peek() byte {
	if lx.pos >= len(lx.bytes()) {
		return 0
	}
	return lx.bytes()[lx.pos]
}

func (lx *Lexer) peekAt(off int) byte {
	i := lx.pos + off
	if i >= len(lx.bytes()) {
		return 0
	}
	return lx.bytes()[i]
}

func (lx *Lexer) advance() byte {
	c := lx.peek()
	lx.pos++
	return c
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// Next scans and returns the next token, advancing the lexer's
// position. Returns a Kind == token.Eof token once the input is
// exhausted; calling Next again after that keeps returning Eof.
func (lx *Lexer) Next() token.Token {
	lx.skipInsignificant()

	start := lx.pos
	if lx.pos >= len(lx.bytes()) {
		return token.Token{Kind: token.Eof, Span: span.New(start, start)}
	}

	c := lx.peek()
	switch {
	case c == '\n':
		lx.advance()
		return token.Token{Kind: token.Newline, Span: span.New(start, lx.pos)}
	case c == ':':
		lx.advance()
		return token.Token{Kind: token.Colon, Span: span.New(start, lx.pos)}
	case c == ',':
		lx.advance()
		return token.Token{Kind: token.Comma, Span: span.New(start, lx.pos)}
	case c == '(':
		lx.advance()
		return token.Token{Kind: token.ParenOpen, Span: span.New(start, lx.pos)}
	case c == ')':
		lx.advance()
		return token.Token{Kind: token.ParenClose, Span: span.New(start, lx.pos)}
	case c == '$':
		return lx.lexRegister(start)
	case c == '.':
		return lx.lexDotIdent(start)
	case c == 'b' && lx.peekAt(1) == '"':
		lx.advance() // 'b'
		return lx.lexBytes(start)
	case c == '-' && isDigit(lx.peekAt(1)):
		return lx.lexInteger(start)
	case isDigit(c):
		return lx.lexInteger(start)
	case isIdentStart(c):
		return lx.lexIdent(start)
	default:
		lx.advance()
		lx.diag.SpanError(span.New(start, lx.pos), "unexpected character")
		return token.Token{Kind: token.Error, Span: span.New(start, lx.pos)}
	}
}

// skipInsignificant consumes spaces, tabs, and `#` line comments, but
// leaves newlines intact since they are significant tokens.
func (lx *Lexer) skipInsignificant() {
	for {
		switch lx.peek() {
		case ' ', '\t', '\r':
			lx.advance()
		case '#':
			for lx.peek() != '\n' && lx.pos < len(lx.bytes()) {
				lx.advance()
			}
		default:
			return
		}
	}
}

func (lx *Lexer) lexIdent(start int) token.Token {
	for isIdentCont(lx.peek()) {
		lx.advance()
	}
	name := string(lx.bytes()[start:lx.pos])
	sp := span.New(start, lx.pos)
	if name == "section" {
		return token.Token{Kind: token.KeywordSection, Span: sp, Ident: name}
	}
	return token.Token{Kind: token.Ident, Span: sp, Ident: name}
}

func (lx *Lexer) lexDotIdent(start int) token.Token {
	lx.advance() // '.'
	if !isIdentStart(lx.peek()) {
		lx.diag.SpanError(span.New(start, lx.pos), "expected an identifier after `.`")
		return token.Token{Kind: token.Error, Span: span.New(start, lx.pos)}
	}
	for isIdentCont(lx.peek()) {
		lx.advance()
	}
	sp := span.New(start, lx.pos)
	return token.Token{Kind: token.DotIdent, Span: sp, Ident: string(lx.bytes()[start:lx.pos])}
}

func (lx *Lexer) lexRegister(start int) token.Token {
	lx.advance() // '$'
	switch {
	case lx.peek() == 's' && lx.peekAt(1) == 'p':
		lx.advance()
		lx.advance()
		return token.Token{Kind: token.Register, Span: span.New(start, lx.pos), RegKind: token.StackPointer}
	case lx.peek() == 'f' && lx.peekAt(1) == 'p':
		lx.advance()
		lx.advance()
		return token.Token{Kind: token.Register, Span: span.New(start, lx.pos), RegKind: token.FramePointer}
	case lx.peek() == 'r' && lx.peekAt(1) == 'a':
		lx.advance()
		lx.advance()
		return token.Token{Kind: token.Register, Span: span.New(start, lx.pos), RegKind: token.ReturnAddress}
	case isDigit(lx.peek()):
		digitsStart := lx.pos
		for isDigit(lx.peek()) {
			lx.advance()
		}
		n := new(big.Int)
		n.SetString(string(lx.bytes()[digitsStart:lx.pos]), 10)
		return token.Token{
			Kind: token.Register, Span: span.New(start, lx.pos),
			RegKind: token.Numbered, RegNumber: int(n.Int64()),
		}
	default:
		lx.diag.SpanError(span.New(start, lx.pos), "expected a register name after `$`")
		lx.advance()
		return token.Token{Kind: token.Error, Span: span.New(start, lx.pos)}
	}
}

func (lx *Lexer) lexInteger(start int) token.Token {
	neg := false
	if lx.peek() == '-' {
		neg = true
		lx.advance()
	}
	digitsStart := lx.pos
	base := 10
	if lx.peek() == '0' && (lx.peekAt(1) == 'x' || lx.peekAt(1) == 'X') {
		lx.advance()
		lx.advance()
		base = 16
		digitsStart = lx.pos
		for isHexDigit(lx.peek()) {
			lx.advance()
		}
	} else {
		for isDigit(lx.peek()) {
			lx.advance()
		}
	}
	if lx.pos == digitsStart {
		lx.diag.SpanError(span.New(start, lx.pos), "invalid integer literal")
		return token.Token{Kind: token.Error, Span: span.New(start, lx.pos)}
	}
	n := new(big.Int)
	if _, ok := n.SetString(string(lx.bytes()[digitsStart:lx.pos]), base); !ok {
		lx.diag.SpanError(span.New(start, lx.pos), "invalid integer literal")
		return token.Token{Kind: token.Error, Span: span.New(start, lx.pos)}
	}
	if neg {
		n.Neg(n)
	}
	return token.Token{Kind: token.IntegerLit, Span: span.New(start, lx.pos), IntValue: n}
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func (lx *Lexer) lexBytes(start int) token.Token {
	lx.advance() // opening quote
	var out []byte
	for {
		if lx.pos >= len(lx.bytes()) {
			lx.diag.SpanError(span.New(start, lx.pos), "unterminated byte string literal")
			return token.Token{Kind: token.Error, Span: span.New(start, lx.pos)}
		}
		c := lx.advance()
		if c == '"' {
			return token.Token{Kind: token.BytesLit, Span: span.New(start, lx.pos), BytesValue: out}
		}
		if c != '\\' {
			out = append(out, c)
			continue
		}
		if lx.pos >= len(lx.bytes()) {
			lx.diag.SpanError(span.New(start, lx.pos), "unterminated byte string literal")
			return token.Token{Kind: token.Error, Span: span.New(start, lx.pos)}
		}
		esc := lx.advance()
		switch esc {
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case '\\':
			out = append(out, '\\')
		case '"':
			out = append(out, '"')
		case 'x':
			hiOk := isHexDigit(lx.peek())
			hi := lx.advance()
			loOk := isHexDigit(lx.peek())
			lo := lx.advance()
			if !hiOk || !loOk {
				lx.diag.SpanError(span.New(start, lx.pos), "invalid \\x escape in byte string literal")
				return token.Token{Kind: token.Error, Span: span.New(start, lx.pos)}
			}
			out = append(out, hexVal(hi)<<4|hexVal(lo))
		default:
			lx.diag.SpanError(span.New(start, lx.pos), "invalid escape sequence")
			return token.Token{Kind: token.Error, Span: span.New(start, lx.pos)}
		}
	}
}

func hexVal(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}
