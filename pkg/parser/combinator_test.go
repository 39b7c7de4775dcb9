package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolf-asm/wolf/pkg/token"
)

func tok(kind token.Kind) token.Token { return token.Token{Kind: kind} }

func TestOrParsePrefersSuccessOverFailure(t *testing.T) {
	input := Input{tok(token.Comma)}
	failing := Fail[int](input, ParseError{Expected: []Expected{fromKind(token.Colon)}, Actual: input[0]})
	r := OrParse(failing, func() Result[int] {
		return Ok(input[1:], 42)
	})
	require.True(t, r.OK)
	assert.Equal(t, 42, r.Value)
}

func TestOrParseFarthestErrorWins(t *testing.T) {
	// Both branches fail on the same input, but the second branch
	// consumes a token before failing, so it has "gotten further" and
	// its error should win outright, not merge with the first.
	input := Input{tok(token.Ident), tok(token.Comma)}

	shallow := Fail[token.Token](input, ParseError{
		Expected: []Expected{fromKind(token.Register)},
		Actual:   input[0],
	})

	r := OrParse(shallow, func() Result[token.Token] {
		// Consumes the Ident, then fails on the Comma wanting a Colon.
		next, got := advance(input)
		return Fail[token.Token](next, ParseError{
			Expected: []Expected{fromKind(token.Colon)},
			Actual:   got,
		})
	})

	require.False(t, r.OK)
	require.Len(t, r.Err.Expected, 1)
	assert.Equal(t, fromKind(token.Colon), r.Err.Expected[0])
}

func TestOrParseTiesMergeExpectedSets(t *testing.T) {
	input := Input{tok(token.Comma)}
	first := Fail[token.Token](input, ParseError{
		Expected: []Expected{fromKind(token.Colon)},
		Actual:   input[0],
	})
	r := OrParse(first, func() Result[token.Token] {
		return Fail[token.Token](input, ParseError{
			Expected: []Expected{fromKind(token.Newline)},
			Actual:   input[0],
		})
	})
	require.False(t, r.OK)
	assert.ElementsMatch(t, []Expected{fromKind(token.Colon), fromKind(token.Newline)}, r.Err.Expected)
}

func TestAndParseFailsOnFirstFailure(t *testing.T) {
	input := Input{tok(token.Register)}
	r := AndParse(
		Fail[token.Token](input, ParseError{Expected: []Expected{fromKind(token.Ident)}, Actual: input[0]}),
		func(in Input) Result[token.Token] { t.Fatal("second parser should not run"); return Result[token.Token]{} },
	)
	assert.False(t, r.OK)
}

func TestAndParseSequencesBothOnSuccess(t *testing.T) {
	input := Input{tok(token.Ident), tok(token.Colon)}
	r := AndParse(
		tk(input, token.Ident),
		func(in Input) Result[token.Token] { return tk(in, token.Colon) },
	)
	require.True(t, r.OK)
	assert.Equal(t, token.Ident, r.Value.First.Kind)
	assert.Equal(t, token.Colon, r.Value.Second.Kind)
	assert.Empty(t, r.Input)
}

func TestParseErrorMessageListsAlternatives(t *testing.T) {
	err := ParseError{
		Expected: []Expected{fromKind(token.Colon), fromKind(token.Comma), fromSyntax(".code")},
		Actual:   tok(token.Newline),
	}
	msg := err.Error()
	assert.Contains(t, msg, "one of")
	assert.Contains(t, msg, "`.code`")
	assert.Contains(t, msg, "found a newline")
}
