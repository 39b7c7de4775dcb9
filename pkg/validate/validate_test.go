package validate

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolf-asm/wolf/pkg/ast"
	"github.com/wolf-asm/wolf/pkg/diag"
	"github.com/wolf-asm/wolf/pkg/ir"
	"github.com/wolf-asm/wolf/pkg/isa"
	"github.com/wolf-asm/wolf/pkg/lexer"
	"github.com/wolf-asm/wolf/pkg/parser"
	"github.com/wolf-asm/wolf/pkg/span"
)

func parseAndValidate(t *testing.T, src string) (ir.Program, *diag.Sink) {
	t.Helper()
	sink := &diag.Sink{}
	toks := lexer.Tokenize(span.NewSource("test.wolf", []byte(src)), sink)
	prog := parser.Parse(toks, sink)
	out := Validate(prog, sink)
	return out, sink
}

// A label preceding the file's very first section header must bind to
// the first statement of that section, not be dropped.
func TestLabelBeforeFirstSectionBindsToSectionsFirstStatement(t *testing.T) {
	out, sink := parseAndValidate(t, "start:\nsection .code\nmov $0, 1\njmp start\n")
	require.False(t, sink.HasErrors())
	require.NotNil(t, out.Code)
	require.Len(t, out.Code.Stmts, 2)
	assert.Contains(t, out.Code.Stmts[0].Labels, "start")

	jmp := out.Code.Stmts[1]
	require.Equal(t, ir.StmtInstr, jmp.Kind)
	op := jmp.Instr.Args[0]
	assert.Equal(t, ir.OperandLabel, op.Kind)
	assert.Equal(t, "start", op.Label)
}

func TestLabelBetweenStatementsBindsToFollowingStatement(t *testing.T) {
	out, sink := parseAndValidate(t, "section .code\nmov $0, 1\nloop:\nsub $0, 1\n")
	require.False(t, sink.HasErrors())
	require.Len(t, out.Code.Stmts, 2)
	assert.Empty(t, out.Code.Stmts[0].Labels)
	assert.Contains(t, out.Code.Stmts[1].Labels, "loop")
}

func TestTrailingLabelAtEndOfSectionBindsToTrailingLabels(t *testing.T) {
	out, sink := parseAndValidate(t, "section .code\nmov $0, 1\nend:\n")
	require.False(t, sink.HasErrors())
	require.Len(t, out.Code.Stmts, 1)
	assert.Contains(t, out.Code.TrailingLabels, "end")
}

func TestDuplicateLabelReportsError(t *testing.T) {
	_, sink := parseAndValidate(t, "section .code\na:\na:\nret\n")
	assert.True(t, sink.HasErrors())
}

func TestUnknownMnemonicRecoversAsNop(t *testing.T) {
	out, sink := parseAndValidate(t, "section .code\nbogus $0, 1\n")
	assert.True(t, sink.HasErrors())
	require.Len(t, out.Code.Stmts, 1)
	assert.Equal(t, isa.OpNop, int(out.Code.Stmts[0].Instr.Def.Opcode))
}

func TestMissingOperandFillsDefaultAndReportsError(t *testing.T) {
	out, sink := parseAndValidate(t, "section .code\nmov $0\n")
	assert.True(t, sink.HasErrors())
	require.Len(t, out.Code.Stmts, 1)
	args := out.Code.Stmts[0].Instr.Args
	assert.Equal(t, ir.OperandRegister, args[1].Kind)
}

func TestTooManyOperandsReportsErrorButKeepsInstruction(t *testing.T) {
	out, sink := parseAndValidate(t, "section .code\nret $0\n")
	assert.True(t, sink.HasErrors())
	require.Len(t, out.Code.Stmts, 1)
}

func TestDestinationOperandRejectsImmediate(t *testing.T) {
	out, sink := parseAndValidate(t, "section .code\nmov 5, 1\n")
	assert.True(t, sink.HasErrors())
	require.Len(t, out.Code.Stmts, 1)
	assert.Equal(t, ir.OperandRegister, out.Code.Stmts[0].Instr.Args[0].Kind)
}

func TestRegisterOffsetRejectedOnNonLocationOperand(t *testing.T) {
	out, sink := parseAndValidate(t, "section .code\nadd $0, -4($fp)\n")
	assert.True(t, sink.HasErrors())
	require.Len(t, out.Code.Stmts, 1)
	assert.False(t, out.Code.Stmts[0].Instr.Args[1].HasOffset)
}

func TestStaticDataOutOfRangeReportsErrorButStillTruncates(t *testing.T) {
	out, sink := parseAndValidate(t, "section .static\n.b1 1000\n")
	assert.True(t, sink.HasErrors())
	require.Len(t, out.Static.Stmts, 1)
	assert.Equal(t, []byte{0xE8}, out.Static.Stmts[0].Static.Bytes)
}

func TestStatementOutsideAnySectionReportsError(t *testing.T) {
	_, sink := parseAndValidate(t, "mov $0, 1\n")
	assert.True(t, sink.HasErrors())
}

func TestValidateBuildsBothSectionsWhenBothPresent(t *testing.T) {
	out, sink := parseAndValidate(t, "section .code\nret\nsection .static\n.b4 1\n")
	require.False(t, sink.HasErrors())
	require.NotNil(t, out.Code)
	require.NotNil(t, out.Static)
}

// Exercises validateArg's register path directly against a hand-built
// ast.Register, independent of the parser.
func TestValidateArgRegisterWithOffsetOnLocationOperand(t *testing.T) {
	v := &validator{sink: &diag.Sink{}, labelsSeen: make(map[string]bool)}
	offset := ast.Immediate{Value: big.NewInt(-8)}
	arg := ast.InstrArg{Kind: ast.ArgRegister, Register: ast.Register{Kind: ast.FramePointer, Offset: &offset}}
	op := v.validateArg(arg, isa.Location, "load4", 1)
	assert.False(t, v.sink.HasErrors())
	assert.True(t, op.HasOffset)
	assert.Equal(t, int64(-8), op.Offset)
}
