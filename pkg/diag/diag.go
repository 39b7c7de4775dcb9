// Package diag collects diagnostics produced while assembling a
// program. It is the one piece of mutable state shared across the
// lexer, parser, const-expansion, validation, and layout passes: each
// pass appends to it and later passes consult ErrorCount to decide
// whether it is still worth emitting an executable.
package diag

import "github.com/wolf-asm/wolf/pkg/span"

// Severity distinguishes a hard error from an informational note.
// The core only ever emits Error today; Note is reserved for
// diagnostics that annotate an existing error (e.g. "label defined
// here") without counting against ErrorCount.
type Severity int

const (
	Error Severity = iota
	Note
)

// Diagnostic is a single reported problem, keyed by the span of
// source text it concerns.
type Diagnostic struct {
	Severity Severity
	Span     span.Span
	Message  string
}

// Sink is an append-only collector of diagnostics. The zero value is
// ready to use.
type Sink struct {
	diagnostics []Diagnostic
}

// SpanError records an error at the given span.
func (s *Sink) SpanError(sp span.Span, message string) {
	s.diagnostics = append(s.diagnostics, Diagnostic{Severity: Error, Span: sp, Message: message})
}

// SpanNote records a note at the given span.
func (s *Sink) SpanNote(sp span.Span, message string) {
	s.diagnostics = append(s.diagnostics, Diagnostic{Severity: Note, Span: sp, Message: message})
}

// Diagnostics returns every diagnostic recorded so far, in emission
// order.
func (s *Sink) Diagnostics() []Diagnostic {
	return s.diagnostics
}

// ErrorCount returns how many Error-severity diagnostics have been
// recorded. A later pass should not run (or should not produce an
// executable) if this is non-zero.
func (s *Sink) ErrorCount() int {
	var n int
	for _, d := range s.diagnostics {
		if d.Severity == Error {
			n++
		}
	}
	return n
}

// HasErrors is a convenience for ErrorCount() > 0.
func (s *Sink) HasErrors() bool {
	return s.ErrorCount() > 0
}
