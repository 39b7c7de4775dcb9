package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolf-asm/wolf/pkg/diag"
	"github.com/wolf-asm/wolf/pkg/span"
	"github.com/wolf-asm/wolf/pkg/token"
)

func tokenize(t *testing.T, src string) ([]token.Token, *diag.Sink) {
	t.Helper()
	sink := &diag.Sink{}
	toks := Tokenize(span.NewSource("test.wolf", []byte(src)), sink)
	require.NotEmpty(t, toks)
	assert.Equal(t, token.Eof, toks[len(toks)-1].Kind)
	return toks, sink
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, tk := range toks {
		out[i] = tk.Kind
	}
	return out
}

func TestTokenizeSectionHeader(t *testing.T) {
	toks, sink := tokenize(t, "section .code\n")
	assert.False(t, sink.HasErrors())
	assert.Equal(t, []token.Kind{token.KeywordSection, token.DotIdent, token.Newline, token.Eof}, kinds(toks))
	assert.Equal(t, ".code", toks[1].Ident)
}

func TestTokenizeInstructionWithArgs(t *testing.T) {
	toks, sink := tokenize(t, "add $1, $2\n")
	assert.False(t, sink.HasErrors())
	assert.Equal(t, []token.Kind{
		token.Ident, token.Register, token.Comma, token.Register, token.Newline, token.Eof,
	}, kinds(toks))
	assert.Equal(t, "add", toks[0].Ident)
	assert.Equal(t, token.Numbered, toks[1].RegKind)
	assert.Equal(t, 1, toks[1].RegNumber)
}

func TestTokenizeNamedRegisters(t *testing.T) {
	toks, sink := tokenize(t, "$sp $fp $ra\n")
	require.False(t, sink.HasErrors())
	assert.Equal(t, token.StackPointer, toks[0].RegKind)
	assert.Equal(t, token.FramePointer, toks[1].RegKind)
	assert.Equal(t, token.ReturnAddress, toks[2].RegKind)
}

func TestTokenizeNegativeAndHexIntegers(t *testing.T) {
	toks, sink := tokenize(t, "-7 0xFF\n")
	require.False(t, sink.HasErrors())
	require.Equal(t, token.IntegerLit, toks[0].Kind)
	assert.Equal(t, int64(-7), toks[0].IntValue.Int64())
	require.Equal(t, token.IntegerLit, toks[1].Kind)
	assert.Equal(t, int64(255), toks[1].IntValue.Int64())
}

func TestTokenizeByteStringWithEscapes(t *testing.T) {
	toks, sink := tokenize(t, `b"a\nb\x41"` + "\n")
	require.False(t, sink.HasErrors())
	require.Equal(t, token.BytesLit, toks[0].Kind)
	assert.Equal(t, []byte("a\nbA"), toks[0].BytesValue)
}

func TestTokenizeSkipsCommentsButKeepsNewlines(t *testing.T) {
	toks, sink := tokenize(t, "mov $0, 1 # comment\nret\n")
	require.False(t, sink.HasErrors())
	assert.Equal(t, []token.Kind{
		token.Ident, token.Register, token.Comma, token.IntegerLit, token.Newline,
		token.Ident, token.Newline, token.Eof,
	}, kinds(toks))
}

func TestTokenizeLabelColon(t *testing.T) {
	toks, sink := tokenize(t, "loop:\n")
	require.False(t, sink.HasErrors())
	assert.Equal(t, []token.Kind{token.Ident, token.Colon, token.Newline, token.Eof}, kinds(toks))
}

func TestTokenizeUnexpectedCharacterReportsError(t *testing.T) {
	_, sink := tokenize(t, "@\n")
	assert.True(t, sink.HasErrors())
}

func TestTokenizeUnterminatedByteStringReportsError(t *testing.T) {
	_, sink := tokenize(t, `b"unterminated`)
	assert.True(t, sink.HasErrors())
}

func TestTokenizeDotIdentWithoutNameReportsError(t *testing.T) {
	_, sink := tokenize(t, ".\n")
	assert.True(t, sink.HasErrors())
}

func TestNextKeepsReturningEofAfterExhaustion(t *testing.T) {
	lx := New(span.NewSource("t", []byte("")), &diag.Sink{})
	first := lx.Next()
	second := lx.Next()
	assert.Equal(t, token.Eof, first.Kind)
	assert.Equal(t, token.Eof, second.Kind)
}
