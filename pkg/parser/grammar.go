package parser

import (
	"github.com/wolf-asm/wolf/pkg/ast"
	"github.com/wolf-asm/wolf/pkg/diag"
	"github.com/wolf-asm/wolf/pkg/span"
	"github.com/wolf-asm/wolf/pkg/token"
)

// Parse parses a full token stream (terminated by Eof) into a
// Program, reporting any errors to sink. Parsing never fails outright
// -- malformed lines are recovered at the statement level so that one
// bad line does not prevent diagnostics about the rest of the file.
func Parse(tokens []token.Token, sink *diag.Sink) ast.Program {
	input := Input(tokens)
	var stmts []ast.Stmt
	for len(input) > 0 && input[0].Kind != token.Eof {
		input = extendStmts(input, sink, &stmts)
	}
	if r := tk(input, token.Eof); !r.OK {
		sink.SpanError(r.Err.Actual.Span, r.Err.Error())
	}
	return ast.Program{Stmts: stmts}
}

// extendStmts parses a single source line, which may append zero or
// more statements to stmts (a label-only line appends one Stmt per
// label; a line with a body appends the labels followed by the body).
func extendStmts(input Input, sink *diag.Sink, stmts *[]ast.Stmt) Input {
	var labelErr ParseError
	for {
		r := label(input)
		if !r.OK {
			labelErr = r.Err
			break
		}
		*stmts = append(*stmts, ast.Stmt{Kind: ast.StmtLabel, Label: &r.Value})
		input = r.Input
	}

	if r := newline(input); r.OK {
		return r.Input
	}

	labelAsStmt := Fail[Pair[ast.Stmt, struct{}]](input, labelErr)
	bodyThenNewline := AndParse(stmtBody(input), newline)
	result := OrParse(labelAsStmt, func() Result[Pair[ast.Stmt, struct{}]] {
		return bodyThenNewline
	})

	if result.OK {
		*stmts = append(*stmts, result.Value.First)
		return result.Input
	}

	sink.SpanError(result.Err.Actual.Span, result.Err.Error())

	// Statement-level recovery: discard tokens through the next
	// newline (inclusive) and resume parsing from there.
	recover := result.Input
	for len(recover) > 0 && recover[0].Kind != token.Newline && recover[0].Kind != token.Eof {
		recover, _ = advance(recover)
	}
	if len(recover) > 0 && recover[0].Kind == token.Newline {
		recover, _ = advance(recover)
	}
	return recover
}

func label(input Input) Result[ast.Ident] {
	return MapOutput(
		AndParse(ident(input), func(in Input) Result[token.Token] { return tk(in, token.Colon) }),
		func(p Pair[ast.Ident, token.Token]) ast.Ident { return p.First },
	)
}

// stmtBody parses the portion of a statement line after any labels
// and before the terminating newline.
func stmtBody(input Input) Result[ast.Stmt] {
	r := MapOutput(sectionHeader(input), func(s ast.Section) ast.Stmt {
		return ast.Stmt{Kind: ast.StmtSection, Section: &s}
	})
	r = OrParse(r, func() Result[ast.Stmt] {
		return MapOutput(include(input), func(v ast.Include) ast.Stmt {
			return ast.Stmt{Kind: ast.StmtInclude, Include: &v}
		})
	})
	r = OrParse(r, func() Result[ast.Stmt] {
		return MapOutput(constDirective(input), func(v ast.Const) ast.Stmt {
			return ast.Stmt{Kind: ast.StmtConst, Const: &v}
		})
	})
	r = OrParse(r, func() Result[ast.Stmt] {
		return MapOutput(staticData(input), func(v ast.StaticData) ast.Stmt {
			return ast.Stmt{Kind: ast.StmtStaticData, StaticData: &v}
		})
	})
	r = OrParse(r, func() Result[ast.Stmt] {
		return MapOutput(instr(input), func(v ast.Instr) ast.Stmt {
			return ast.Stmt{Kind: ast.StmtInstr, Instr: &v}
		})
	})
	return r
}

func sectionHeader(input Input) Result[ast.Section] {
	return MapOutput(
		AndParse(tk(input, token.KeywordSection), func(in Input) Result[ast.Section] {
			code := MapOutput(dotIdent(in, ".static"), func(t token.Token) ast.Section {
				return ast.Section{Kind: ast.SectionStatic, Span: t.Span}
			})
			return OrParse(code, func() Result[ast.Section] {
				return MapOutput(dotIdent(in, ".code"), func(t token.Token) ast.Section {
					return ast.Section{Kind: ast.SectionCode, Span: t.Span}
				})
			})
		}),
		func(p Pair[token.Token, ast.Section]) ast.Section {
			return ast.Section{Kind: p.Second.Kind, Span: p.First.Span.To(p.Second.Span)}
		},
	)
}

func include(input Input) Result[ast.Include] {
	return MapOutput(
		AndParse(dotIdent(input, ".include"), bytesLit),
		func(p Pair[token.Token, ast.Bytes]) ast.Include {
			return ast.Include{Path: p.Second, Span: p.First.Span.To(p.Second.Span)}
		},
	)
}

func constDirective(input Input) Result[ast.Const] {
	return MapOutput(
		AndParse(AndParse(dotIdent(input, ".const"), ident), immediate),
		func(p Pair[Pair[token.Token, ast.Ident], ast.Immediate]) ast.Const {
			return ast.Const{
				Name:  p.First.Second,
				Value: p.Second,
				Span:  p.First.First.Span.To(p.Second.Span),
			}
		},
	)
}

func staticData(input Input) Result[ast.StaticData] {
	r := MapOutput(staticBytes(input), func(v ast.StaticBytes) ast.StaticData {
		return ast.StaticData{Kind: ast.StaticKindBytes, Bytes: &v}
	})
	r = OrParse(r, func() Result[ast.StaticData] {
		return MapOutput(staticZero(input), func(v ast.StaticZero) ast.StaticData {
			return ast.StaticData{Kind: ast.StaticKindZero, Zero: &v}
		})
	})
	r = OrParse(r, func() Result[ast.StaticData] {
		return MapOutput(staticUninit(input), func(v ast.StaticUninit) ast.StaticData {
			return ast.StaticData{Kind: ast.StaticKindUninit, Uninit: &v}
		})
	})
	r = OrParse(r, func() Result[ast.StaticData] {
		return MapOutput(staticByteString(input), func(v ast.StaticByteStr) ast.StaticData {
			return ast.StaticData{Kind: ast.StaticKindByteStr, ByteStr: &v}
		})
	})
	return r
}

func staticBytesDirective(input Input) Result[Pair[int, span.Span]] {
	r := MapOutput(dotIdent(input, ".b1"), func(t token.Token) Pair[int, span.Span] { return Pair[int, span.Span]{1, t.Span} })
	r = OrParse(r, func() Result[Pair[int, span.Span]] {
		return MapOutput(dotIdent(input, ".b2"), func(t token.Token) Pair[int, span.Span] { return Pair[int, span.Span]{2, t.Span} })
	})
	r = OrParse(r, func() Result[Pair[int, span.Span]] {
		return MapOutput(dotIdent(input, ".b4"), func(t token.Token) Pair[int, span.Span] { return Pair[int, span.Span]{4, t.Span} })
	})
	r = OrParse(r, func() Result[Pair[int, span.Span]] {
		return MapOutput(dotIdent(input, ".b8"), func(t token.Token) Pair[int, span.Span] { return Pair[int, span.Span]{8, t.Span} })
	})
	return r
}

func staticBytes(input Input) Result[ast.StaticBytes] {
	return MapOutput(
		AndParse(staticBytesDirective(input), immediate),
		func(p Pair[Pair[int, span.Span], ast.Immediate]) ast.StaticBytes {
			return ast.StaticBytes{Size: p.First.First, Value: p.Second, Span: p.First.Second.To(p.Second.Span)}
		},
	)
}

func staticZero(input Input) Result[ast.StaticZero] {
	return MapOutput(
		AndParse(dotIdent(input, ".zero"), integerLit),
		func(p Pair[token.Token, ast.Integer]) ast.StaticZero {
			return ast.StaticZero{NBytes: p.Second, Span: p.First.Span.To(p.Second.Span)}
		},
	)
}

func staticUninit(input Input) Result[ast.StaticUninit] {
	return MapOutput(
		AndParse(dotIdent(input, ".uninit"), integerLit),
		func(p Pair[token.Token, ast.Integer]) ast.StaticUninit {
			return ast.StaticUninit{NBytes: p.Second, Span: p.First.Span.To(p.Second.Span)}
		},
	)
}

func staticByteString(input Input) Result[ast.StaticByteStr] {
	return MapOutput(
		AndParse(dotIdent(input, ".bytes"), bytesLit),
		func(p Pair[token.Token, ast.Bytes]) ast.StaticByteStr {
			return ast.StaticByteStr{Bytes: p.Second, Span: p.First.Span.To(p.Second.Span)}
		},
	)
}

// instr parses `ident (arg ("," arg)*)?`. This does not consume the
// trailing newline -- the caller (stmtBody's AndParse with newline)
// does, so that newline-vs-argument errors compose correctly.
func instr(input Input) Result[ast.Instr] {
	nameR := ident(input)
	if !nameR.OK {
		return Fail[ast.Instr](input, nameR.Err)
	}
	in := nameR.Input
	var args []ast.InstrArg

	if r := newline(in); r.OK {
		return Ok(in, ast.Instr{Name: nameR.Value, Args: args})
	}

	for {
		argR := instrArg(in)
		if !argR.OK {
			if len(argR.Input) != len(in) {
				// The argument got past its first token before failing,
				// so its error is farther along than the newline check.
				return Fail[ast.Instr](argR.Input, argR.Err)
			}
			return Fail[ast.Instr](argR.Input, mergeWithNewlineExpectation(in, argR.Err))
		}
		args = append(args, argR.Value)
		in = argR.Input

		if r := newline(in); r.OK {
			return Ok(in, ast.Instr{Name: nameR.Value, Args: args})
		}

		commaR := tk(in, token.Comma)
		if !commaR.OK {
			return Fail[ast.Instr](commaR.Input, mergeWithNewlineExpectation(in, commaR.Err))
		}
		in = commaR.Input
	}
}

// mergeWithNewlineExpectation folds "or a newline" into an error so
// that failing to find a comma or an argument still mentions the
// newline alternative, matching how the grammar treats the newline
// check as one of the alternatives at each point in the arg list.
func mergeWithNewlineExpectation(input Input, err ParseError) ParseError {
	newlineErr := newline(input)
	if newlineErr.OK {
		return err
	}
	return err.merge(newlineErr.Err)
}

func instrArg(input Input) Result[ast.InstrArg] {
	r := MapOutput(offsetRegister(input), func(reg ast.Register) ast.InstrArg {
		return ast.InstrArg{Kind: ast.ArgRegister, Register: reg}
	})
	r = OrParse(r, func() Result[ast.InstrArg] {
		return MapOutput(register(input), func(reg ast.Register) ast.InstrArg {
			return ast.InstrArg{Kind: ast.ArgRegister, Register: reg}
		})
	})
	r = OrParse(r, func() Result[ast.InstrArg] {
		return MapOutput(immediate(input), func(imm ast.Immediate) ast.InstrArg {
			return ast.InstrArg{Kind: ast.ArgImmediate, Immediate: imm}
		})
	})
	r = OrParse(r, func() Result[ast.InstrArg] {
		return MapOutput(ident(input), func(id ast.Ident) ast.InstrArg {
			return ast.InstrArg{Kind: ast.ArgName, Name: id}
		})
	})
	return r
}

func offsetRegister(input Input) Result[ast.Register] {
	return MapOutput(
		AndParse(
			AndParse(AndParse(immediate(input), func(in Input) Result[token.Token] { return tk(in, token.ParenOpen) }), register),
			func(in Input) Result[token.Token] { return tk(in, token.ParenClose) },
		),
		func(p Pair[Pair[Pair[ast.Immediate, token.Token], ast.Register], token.Token]) ast.Register {
			offset := p.First.First.First
			reg := p.First.Second
			reg.Offset = &offset
			reg.Span = offset.Span.To(p.Second.Span)
			return reg
		},
	)
}

func immediate(input Input) Result[ast.Immediate] {
	return MapOutput(integerLit(input), func(n ast.Integer) ast.Immediate {
		return ast.Immediate{Value: n.Value, Span: n.Span}
	})
}

func ident(input Input) Result[ast.Ident] {
	return MapOutput(tk(input, token.Ident), func(t token.Token) ast.Ident {
		return ast.Ident{Value: t.Ident, Span: t.Span}
	})
}

func register(input Input) Result[ast.Register] {
	return MapOutput(tk(input, token.Register), ast.RegisterFromToken)
}

func bytesLit(input Input) Result[ast.Bytes] {
	return MapOutput(tk(input, token.BytesLit), func(t token.Token) ast.Bytes {
		return ast.Bytes{Value: t.BytesValue, Span: t.Span}
	})
}

func integerLit(input Input) Result[ast.Integer] {
	return MapOutput(tk(input, token.IntegerLit), func(t token.Token) ast.Integer {
		return ast.Integer{Value: t.IntValue, Span: t.Span}
	})
}

func newline(input Input) Result[struct{}] {
	return MapOutput(tk(input, token.Newline), func(token.Token) struct{} { return struct{}{} })
}
