// Package validate converts a const-expanded AST into the typed IR
// described by pkg/ir: it resolves instruction mnemonics, enforces
// per-instruction arity and operand-class rules, and range-checks
// static data literals. Every problem it finds is reported to a
// diag.Sink and recovered from so that later statements are still
// checked.
package validate

import (
	"fmt"
	"math/big"

	"github.com/wolf-asm/wolf/pkg/ast"
	"github.com/wolf-asm/wolf/pkg/diag"
	"github.com/wolf-asm/wolf/pkg/ir"
	"github.com/wolf-asm/wolf/pkg/isa"
)

// Validate walks prog's statements and builds the IR Program.
func Validate(prog ast.Program, sink *diag.Sink) ir.Program {
	v := &validator{sink: sink, labelsSeen: make(map[string]bool)}
	return v.run(prog)
}

type validator struct {
	sink       *diag.Sink
	labelsSeen map[string]bool
}

func (v *validator) run(prog ast.Program) ir.Program {
	var out ir.Program
	var cur *ir.Section         // section currently being filled
	var pendingLabels []string  // labels seen since the last Stmt/section header

	flushTrailing := func() {
		if cur == nil {
			// No section has opened yet: pendingLabels carry forward
			// and bind to the first statement of whichever section
			// opens next, rather than being discarded here.
			return
		}
		cur.TrailingLabels = append(cur.TrailingLabels, pendingLabels...)
		pendingLabels = nil
	}

	for _, stmt := range prog.Stmts {
		switch stmt.Kind {
		case ast.StmtLabel:
			name := stmt.Label.Value
			if v.labelsSeen[name] {
				v.sink.SpanError(stmt.Label.Span, fmt.Sprintf("duplicate label `%s`", name))
				continue
			}
			v.labelsSeen[name] = true
			pendingLabels = append(pendingLabels, name)

		case ast.StmtSection:
			flushTrailing()
			switch stmt.Section.Kind {
			case ast.SectionCode:
				if out.Code == nil {
					out.Code = &ir.Section{HeaderSpan: stmt.Section.Span}
				}
				cur = out.Code
			case ast.SectionStatic:
				if out.Static == nil {
					out.Static = &ir.Section{HeaderSpan: stmt.Section.Span}
				}
				cur = out.Static
			}

		case ast.StmtInclude, ast.StmtConst:
			// Consts are resolved by pkg/constexpand before validation
			// runs; includes are a file-loading concern outside the
			// core. Neither produces an IR statement.

		case ast.StmtStaticData:
			labels := pendingLabels
			pendingLabels = nil
			data := v.validateStaticData(*stmt.StaticData)
			if cur == nil {
				v.sink.SpanError(stmt.StaticData.Span(), "static data outside of any section")
				continue
			}
			cur.Stmts = append(cur.Stmts, ir.Stmt{Labels: labels, Kind: ir.StmtStaticData, Static: &data})

		case ast.StmtInstr:
			labels := pendingLabels
			pendingLabels = nil
			instr := v.validateInstr(*stmt.Instr)
			if cur == nil {
				v.sink.SpanError(stmt.Instr.Span(), "instruction outside of any section")
				continue
			}
			cur.Stmts = append(cur.Stmts, ir.Stmt{Labels: labels, Kind: ir.StmtInstr, Instr: &instr})
		}
	}
	flushTrailing()
	return out
}

func (v *validator) validateInstr(node ast.Instr) ir.Instr {
	def, ok := isa.Lookup(node.Name.Value)
	if !ok {
		v.sink.SpanError(node.Name.Span, fmt.Sprintf("unknown instruction `%s`", node.Name.Value))
		def = isa.Nop()
	}

	if len(node.Args) > def.Arity {
		v.sink.SpanError(node.Span(), fmt.Sprintf("`%s` takes %d operand(s), found %d", def.Name, def.Arity, len(node.Args)))
	}

	var args [3]ir.Operand
	for i := 0; i < def.Arity; i++ {
		class := def.Operand[i]
		if i >= len(node.Args) {
			v.sink.SpanError(node.Span(), fmt.Sprintf("`%s` is missing its %s operand", def.Name, ordinal(i)))
			args[i] = defaultOperand(class)
			continue
		}
		args[i] = v.validateArg(node.Args[i], class, def.Name, i)
	}

	return ir.Instr{Def: def, Args: args, Span: node.Span()}
}

func ordinal(i int) string {
	switch i {
	case 0:
		return "first"
	case 1:
		return "second"
	case 2:
		return "third"
	default:
		return "extra"
	}
}

// defaultOperand is the recovery value substituted for a missing
// operand: register $0, regardless of operand class.
func defaultOperand(class isa.OperandClass) ir.Operand {
	return ir.Operand{Kind: ir.OperandRegister, Register: ir.RegisterName(0)}
}

func (v *validator) validateArg(arg ast.InstrArg, class isa.OperandClass, mnemonic string, slot int) ir.Operand {
	switch arg.Kind {
	case ast.ArgRegister:
		op := registerOperand(arg.Register)
		if op.HasOffset && class != isa.Location {
			v.sink.SpanError(arg.Span(), "a register offset is only valid on a location operand")
			op.HasOffset = false
			op.Offset = 0
		}
		return op

	case ast.ArgImmediate:
		if class == isa.Destination {
			v.sink.SpanError(arg.Span(), fmt.Sprintf("%s operand of `%s` expects a register, found an immediate", class, mnemonic))
			return defaultOperand(class)
		}
		return ir.Operand{Kind: ir.OperandImmediate, Immediate: arg.Immediate.Value}

	case ast.ArgName:
		if class == isa.Destination {
			v.sink.SpanError(arg.Span(), fmt.Sprintf("%s operand of `%s` expects a register, found a label", class, mnemonic))
			return defaultOperand(class)
		}
		return ir.Operand{Kind: ir.OperandLabel, Label: arg.Name.Value}

	default:
		panic("bug: unknown ast.InstrArgKind")
	}
}

func registerOperand(r ast.Register) ir.Operand {
	op := ir.Operand{Kind: ir.OperandRegister, Register: registerName(r)}
	if r.Offset != nil {
		op.HasOffset = true
		op.Offset = r.Offset.Value.Int64()
	}
	return op
}

func registerName(r ast.Register) ir.RegisterName {
	switch r.Kind {
	case ast.StackPointer:
		return ir.SP
	case ast.FramePointer:
		return ir.FP
	case ast.ReturnAddress:
		return ir.RA
	default:
		return ir.RegisterName(r.Number)
	}
}

var (
	minB1 = big.NewInt(-128)
	maxB1 = big.NewInt(255)
	minB2 = big.NewInt(-32768)
	maxB2 = big.NewInt(65535)
	minB4 = big.NewInt(-2147483648)
	maxB4 = big.NewInt(4294967295)
	minB8 = new(big.Int).Lsh(big.NewInt(-1), 63) // -2^63
	maxB8 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 64), big.NewInt(1))
)

func (v *validator) validateStaticData(node ast.StaticData) ir.StaticData {
	switch node.Kind {
	case ast.StaticKindBytes:
		return v.validateStaticBytes(*node.Bytes)
	case ast.StaticKindZero:
		return ir.StaticData{Kind: ir.StaticKindZero, Span: node.Zero.Span, NBytes: node.Zero.NBytes.Value.Uint64()}
	case ast.StaticKindUninit:
		return ir.StaticData{Kind: ir.StaticKindUninit, Span: node.Uninit.Span, NBytes: node.Uninit.NBytes.Value.Uint64()}
	case ast.StaticKindByteStr:
		return ir.StaticData{Kind: ir.StaticKindByteStr, Span: node.ByteStr.Span, Bytes: node.ByteStr.Bytes.Value}
	default:
		panic("bug: unknown ast.StaticDataKind")
	}
}

func (v *validator) validateStaticBytes(node ast.StaticBytes) ir.StaticData {
	var lo, hi *big.Int
	switch node.Size {
	case 1:
		lo, hi = minB1, maxB1
	case 2:
		lo, hi = minB2, maxB2
	case 4:
		lo, hi = minB4, maxB4
	case 8:
		lo, hi = minB8, maxB8
	default:
		panic("bug: unknown static bytes width")
	}

	val := node.Value.Value
	if val.Cmp(lo) < 0 || val.Cmp(hi) > 0 {
		v.sink.SpanError(node.Span, fmt.Sprintf(".b%d value %s out of range [%s, %s], truncated", node.Size, val, lo, hi))
	}

	buf := make([]byte, node.Size)
	mod := new(big.Int).Lsh(big.NewInt(1), uint(node.Size)*8)
	wrapped := new(big.Int).Mod(val, mod)
	for i := 0; i < node.Size; i++ {
		buf[i] = byte(new(big.Int).Rsh(wrapped, uint(i)*8).Uint64() & 0xff)
	}
	return ir.StaticData{Kind: ir.StaticKindBytes, Span: node.Span, Width: node.Size, Bytes: buf}
}
