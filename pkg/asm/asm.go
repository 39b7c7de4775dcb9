// Package asm wires the lexer, parser, const-expansion, semantic
// validator, and layout/encoder passes together into the single
// entry point cmd/wolfasm calls: source bytes in, an Executable (or a
// sink full of diagnostics) out.
package asm

import (
	"github.com/wolf-asm/wolf/pkg/constexpand"
	"github.com/wolf-asm/wolf/pkg/diag"
	"github.com/wolf-asm/wolf/pkg/exe"
	"github.com/wolf-asm/wolf/pkg/layout"
	"github.com/wolf-asm/wolf/pkg/lexer"
	"github.com/wolf-asm/wolf/pkg/parser"
	"github.com/wolf-asm/wolf/pkg/span"
	"github.com/wolf-asm/wolf/pkg/validate"
)

// Assemble runs the full pipeline over one source file. If sink ends
// up with any errors, the returned Executable is the zero value and
// must not be written out: a single error anywhere in the pipeline
// suppresses emission.
func Assemble(path string, data []byte) (exe.Executable, *diag.Sink) {
	sink := &diag.Sink{}
	src := span.NewSource(path, data)

	tokens := lexer.Tokenize(src, sink)
	prog := parser.Parse(tokens, sink)
	expanded := constexpand.Expand(prog, sink)
	validated := validate.Validate(expanded, sink)
	result := layout.Run(validated, sink)

	if sink.HasErrors() {
		return exe.Executable{}, sink
	}
	return exe.Executable{
		CodeBytes:   result.CodeBytes,
		StaticBytes: result.StaticBytes,
		EntryPoint:  0,
	}, sink
}
