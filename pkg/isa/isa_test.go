package isa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpcodeNumberingIsNormative(t *testing.T) {
	assert.Equal(t, uint16(0), uint16(OpNop))
	assert.Equal(t, uint16(12), uint16(OpAdd))
	assert.Equal(t, uint16(204), uint16(OpCmp))
	assert.Equal(t, uint16(612), uint16(OpRet))
}

func TestLookupRoundTripsEveryDef(t *testing.T) {
	for _, d := range defs {
		got, ok := Lookup(d.Name)
		assert.True(t, ok, "mnemonic %q should be registered", d.Name)
		assert.Equal(t, d.Opcode, got.Opcode)

		byOp, ok := ByOpcode(d.Opcode)
		assert.True(t, ok, "opcode %d should be registered", d.Opcode)
		assert.Equal(t, d.Name, byOp.Name)
	}
}

func TestLookupUnknownMnemonic(t *testing.T) {
	_, ok := Lookup("frobnicate")
	assert.False(t, ok)
}

func TestNonDestinationOperandCountNeverExceedsTwo(t *testing.T) {
	// arg_flags is 4 bits wide, 2 per non-Destination slot; this is the
	// invariant that makes that packing legal.
	for _, d := range defs {
		n := 0
		for i := 0; i < d.Arity; i++ {
			if d.Operand[i] != Destination {
				n++
			}
		}
		assert.LessOrEqual(t, n, 2, "mnemonic %q has too many non-destination operands to fit in arg_flags", d.Name)
	}
}

func TestNop(t *testing.T) {
	assert.Equal(t, "nop", Nop().Name)
	assert.Equal(t, 0, Nop().Arity)
}
