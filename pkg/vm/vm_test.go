package vm

import (
	"encoding/binary"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolf-asm/wolf/pkg/diag"
	"github.com/wolf-asm/wolf/pkg/exe"
	"github.com/wolf-asm/wolf/pkg/ir"
	"github.com/wolf-asm/wolf/pkg/isa"
	"github.com/wolf-asm/wolf/pkg/layout"
)

// assemble is a test-only helper that encodes a straight-line sequence
// of IR instructions into a code image, with no labels to resolve.
func assemble(t *testing.T, instrs ...ir.Instr) []byte {
	t.Helper()
	sink := &diag.Sink{}
	var out []byte
	for _, in := range instrs {
		word := layout.Encode(in, layout.Offsets{}, sink)
		require.False(t, sink.HasErrors())
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], word)
		out = append(out, buf[:]...)
	}
	return out
}

func mustDef(t *testing.T, name string) isa.Def {
	t.Helper()
	d, ok := isa.Lookup(name)
	require.True(t, ok)
	return d
}

func reg(n ir.RegisterName) ir.Operand { return ir.Operand{Kind: ir.OperandRegister, Register: n} }
func imm(n int64) ir.Operand {
	return ir.Operand{Kind: ir.OperandImmediate, Immediate: big.NewInt(n)}
}

func TestEmptyProgramQuitsImmediately(t *testing.T) {
	code := assemble(t, ir.Instr{Def: mustDef(t, "ret")})
	machine := New(64)
	require.NoError(t, machine.Load(exe.Executable{CodeBytes: code}))
	require.NoError(t, machine.Run())
}

func TestMovAddComputesExpectedRegister(t *testing.T) {
	code := assemble(t,
		ir.Instr{Def: mustDef(t, "mov"), Args: [3]ir.Operand{reg(0), imm(5)}},
		ir.Instr{Def: mustDef(t, "add"), Args: [3]ir.Operand{reg(0), imm(7)}},
		ir.Instr{Def: mustDef(t, "ret")},
	)
	machine := New(128)
	require.NoError(t, machine.Load(exe.Executable{CodeBytes: code}))
	require.NoError(t, machine.Run())
	assert.Equal(t, uint64(12), machine.Reg.Get(0))
}

func TestCmpJneLoopDecrementsToZero(t *testing.T) {
	// mov $0, 3
	// loop: sub $0, 1
	//       cmp $0, 0
	//       jne loop
	movDef := mustDef(t, "mov")
	subDef := mustDef(t, "sub")
	cmpDef := mustDef(t, "cmp")
	jneDef := mustDef(t, "jne")

	sink := &diag.Sink{}
	offsets := layout.Offsets{"loop": 8} // mov is 8 bytes, loop starts right after
	instrs := []ir.Instr{
		{Def: movDef, Args: [3]ir.Operand{reg(0), imm(3)}},
		{Def: subDef, Args: [3]ir.Operand{reg(0), imm(1)}},
		{Def: cmpDef, Args: [3]ir.Operand{reg(0), imm(0)}},
		{Def: jneDef, Args: [3]ir.Operand{{Kind: ir.OperandLabel, Label: "loop"}}},
	}
	var code []byte
	for _, in := range instrs {
		word := layout.Encode(in, offsets, sink)
		require.False(t, sink.HasErrors())
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], word)
		code = append(code, buf[:]...)
	}

	machine := New(128)
	require.NoError(t, machine.Load(exe.Executable{CodeBytes: code}))

	// Run a bounded number of steps rather than Run(), since this
	// program never issues a ret and would loop forever if the flags
	// logic were wrong.
	for i := 0; i < 20 && machine.PC < uint64(len(code)); i++ {
		_, err := machine.Step()
		require.NoError(t, err)
	}
	assert.Equal(t, uint64(0), machine.Reg.Get(0))
}

func TestLoad4ReadsLittleEndianStaticWord(t *testing.T) {
	load4 := mustDef(t, "load4")
	code := assemble(t, ir.Instr{Def: load4, Args: [3]ir.Operand{
		reg(0),
		{Kind: ir.OperandImmediate, Immediate: big.NewInt(0)}, // placeholder, overwritten below
	}}, ir.Instr{Def: mustDef(t, "ret")})
	// load4 takes a Location operand; encode it directly against a
	// known static offset instead of reusing assemble's zero-offset
	// helper, since the static section is appended after code.
	sink := &diag.Sink{}
	word := layout.Encode(ir.Instr{Def: load4, Args: [3]ir.Operand{
		reg(0),
		{Kind: ir.OperandImmediate, Immediate: big.NewInt(16)},
	}}, layout.Offsets{}, sink)
	require.False(t, sink.HasErrors())
	binary.LittleEndian.PutUint64(code[:8], word)

	static := []byte{0x78, 0x56, 0x34, 0x12}
	machine := New(128)
	require.NoError(t, machine.Load(exe.Executable{CodeBytes: code, StaticBytes: static}))
	require.NoError(t, machine.Run())
	assert.Equal(t, uint64(0x12345678), machine.Reg.Get(0))
}

func TestDivisionByZeroTraps(t *testing.T) {
	code := assemble(t,
		ir.Instr{Def: mustDef(t, "mov"), Args: [3]ir.Operand{reg(0), imm(10)}},
		ir.Instr{Def: mustDef(t, "div"), Args: [3]ir.Operand{reg(0), imm(0)}},
	)
	machine := New(128)
	require.NoError(t, machine.Load(exe.Executable{CodeBytes: code}))
	err := machine.Run()
	require.Error(t, err)

	var trap TrapError
	require.True(t, errors.As(err, &trap))
	assert.Equal(t, uint64(8), trap.PC)
	assert.ErrorIs(t, trap.Cause, ErrDivisionByZero)
}

func TestIllegalOpcodeTraps(t *testing.T) {
	machine := New(64)
	code := make([]byte, 8)
	binary.LittleEndian.PutUint64(code, uint64(0xFFF)<<52) // opTrap pattern
	require.NoError(t, machine.Load(exe.Executable{CodeBytes: code}))

	err := machine.Run()
	require.Error(t, err)
	var trap TrapError
	require.True(t, errors.As(err, &trap))
	assert.ErrorIs(t, trap.Cause, ErrIllegalOpcode)
}

func TestPushPopRoundTrip(t *testing.T) {
	code := assemble(t,
		ir.Instr{Def: mustDef(t, "mov"), Args: [3]ir.Operand{reg(0), imm(42)}},
		ir.Instr{Def: mustDef(t, "push"), Args: [3]ir.Operand{reg(0)}},
		ir.Instr{Def: mustDef(t, "mov"), Args: [3]ir.Operand{reg(0), imm(0)}},
		ir.Instr{Def: mustDef(t, "pop"), Args: [3]ir.Operand{reg(1)}},
		ir.Instr{Def: mustDef(t, "ret")},
	)
	machine := New(128)
	require.NoError(t, machine.Load(exe.Executable{CodeBytes: code}))
	require.NoError(t, machine.Run())
	assert.Equal(t, uint64(42), machine.Reg.Get(1))
}

func TestMulSignedOverflowSetsOverflowNotCarry(t *testing.T) {
	code := assemble(t,
		// 32767^2 and 32767^4 still fit in int64; 32767^8 does not.
		ir.Instr{Def: mustDef(t, "mov"), Args: [3]ir.Operand{reg(0), imm(32767)}},
		ir.Instr{Def: mustDef(t, "mul"), Args: [3]ir.Operand{reg(0), reg(0)}},
		ir.Instr{Def: mustDef(t, "mul"), Args: [3]ir.Operand{reg(0), reg(0)}},
		ir.Instr{Def: mustDef(t, "mul"), Args: [3]ir.Operand{reg(0), reg(0)}},
		ir.Instr{Def: mustDef(t, "ret")},
	)
	machine := New(128)
	require.NoError(t, machine.Load(exe.Executable{CodeBytes: code}))
	require.NoError(t, machine.Run())
	assert.True(t, machine.Flag.Overflow)
	assert.False(t, machine.Flag.Carry)
}
