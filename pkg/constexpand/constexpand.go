// Package constexpand implements the pre-validation pass that
// resolves `.const` directives and substitutes their uses throughout
// the AST with literal immediates.
package constexpand

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/wolf-asm/wolf/pkg/ast"
	"github.com/wolf-asm/wolf/pkg/diag"
)

// table maps a constant name to the immediate it was declared with.
type table struct {
	values map[string]ast.Immediate
}

// build scans every top-level `.const` statement, rejecting duplicate
// constant names and names that collide with a label declared
// anywhere in the program.
func build(prog ast.Program, sink *diag.Sink) table {
	labelStmts := lo.Filter(prog.Stmts, func(stmt ast.Stmt, _ int) bool {
		return stmt.Kind == ast.StmtLabel
	})
	labels := lo.SliceToMap(labelStmts, func(stmt ast.Stmt) (string, bool) {
		return stmt.Label.Value, true
	})

	t := table{values: make(map[string]ast.Immediate)}
	for _, stmt := range prog.Stmts {
		if stmt.Kind != ast.StmtConst {
			continue
		}
		c := stmt.Const
		if labels[c.Name.Value] {
			sink.SpanError(c.Name.Span, fmt.Sprintf("constant `%s` collides with a label of the same name", c.Name.Value))
			continue
		}
		if _, dup := t.values[c.Name.Value]; dup {
			sink.SpanError(c.Name.Span, fmt.Sprintf("duplicate constant `%s`", c.Name.Value))
			continue
		}
		t.values[c.Name.Value] = c.Value
	}
	return t
}

// Expand resolves every `.const` directive in prog and substitutes
// `Name(x)` instruction arguments where x names a known constant with
// the constant's literal value. The substituted argument keeps the
// span of the use-site reference, not the `.const` definition, so
// that diagnostics raised by later passes point at the textual
// use-site. Any Name left unresolved after this pass is a label
// reference.
func Expand(prog ast.Program, sink *diag.Sink) ast.Program {
	t := build(prog, sink)

	stmts := lo.Map(prog.Stmts, func(stmt ast.Stmt, _ int) ast.Stmt {
		if stmt.Kind != ast.StmtInstr {
			return stmt
		}
		instr := *stmt.Instr
		instr.Args = lo.Map(stmt.Instr.Args, func(arg ast.InstrArg, _ int) ast.InstrArg {
			return substArg(arg, t)
		})
		return ast.Stmt{Kind: ast.StmtInstr, Instr: &instr}
	})
	return ast.Program{Stmts: stmts}
}

func substArg(arg ast.InstrArg, t table) ast.InstrArg {
	if arg.Kind != ast.ArgName {
		return arg
	}
	val, ok := t.values[arg.Name.Value]
	if !ok {
		return arg
	}
	return ast.InstrArg{
		Kind:      ast.ArgImmediate,
		Immediate: ast.Immediate{Value: val.Value, Span: arg.Name.Span},
	}
}
