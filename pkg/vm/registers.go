package vm

import "github.com/wolf-asm/wolf/pkg/ir"

// Registers holds the 64 numbered general-purpose registers plus the
// three named aliases.
type Registers struct {
	GPR [64]uint64
	SP  uint64
	FP  uint64
	RA  uint64
}

// Get reads a register by its ir.RegisterName (a numbered index 0-63,
// or one of ir.SP/ir.FP/ir.RA).
func (r *Registers) Get(name ir.RegisterName) uint64 {
	switch {
	case name == ir.SP:
		return r.SP
	case name == ir.FP:
		return r.FP
	case name == ir.RA:
		return r.RA
	case name >= 0 && int(name) < len(r.GPR):
		return r.GPR[name]
	default:
		// An out-of-range index can only come from a corrupted or
		// hand-crafted instruction word; the assembler never emits
		// one. Reading such a register yields zero rather than
		// panicking the VM.
		return 0
	}
}

// Set writes a register by its ir.RegisterName.
func (r *Registers) Set(name ir.RegisterName, v uint64) {
	switch {
	case name == ir.SP:
		r.SP = v
	case name == ir.FP:
		r.FP = v
	case name == ir.RA:
		r.RA = v
	case name >= 0 && int(name) < len(r.GPR):
		r.GPR[name] = v
	}
}

// Flags holds the four condition flags set by arithmetic, logical,
// and comparison instructions.
type Flags struct {
	Zero     bool
	Sign     bool
	Carry    bool
	Overflow bool
}
