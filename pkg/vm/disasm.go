package vm

import (
	"fmt"
	"strings"

	"github.com/wolf-asm/wolf/pkg/isa"
	"github.com/wolf-asm/wolf/pkg/layout"
)

// Disassemble renders one encoded instruction word back to textual
// assembly, best-effort: an unrecognized opcode renders as a raw
// `.b8` word instead of failing.
func Disassemble(word uint64) string {
	opcode, flags, arg := layout.DecodeWord(word)
	def, ok := isa.ByOpcode(opcode)
	if !ok {
		return fmt.Sprintf(".b8 0x%x # illegal opcode 0x%x", word, opcode)
	}
	if def.Arity == 0 {
		return def.Name
	}

	parts := make([]string, 0, def.Arity)
	shift := 0
	for i := 0; i < def.Arity; i++ {
		if def.Operand[i] == isa.Destination {
			parts = append(parts, registerText(arg[i]&0x7F, 0, false))
			continue
		}
		code := (flags >> shift) & 0x3
		shift += 2
		switch code {
		case 1:
			disp := int64(int16(arg[i]&0xFF80) >> 7)
			parts = append(parts, registerText(arg[i]&0x7F, disp, disp != 0))
		case 2:
			parts = append(parts, fmt.Sprintf("%d", int16(arg[i])))
		case 3:
			parts = append(parts, fmt.Sprintf("0x%x", arg[i]))
		default:
			parts = append(parts, "?")
		}
	}
	return def.Name + " " + strings.Join(parts, ", ")
}

func registerText(idx uint16, disp int64, withDisp bool) string {
	var name string
	switch idx {
	case 64:
		name = "$sp"
	case 65:
		name = "$fp"
	case 66:
		name = "$ra"
	default:
		name = fmt.Sprintf("$%d", idx)
	}
	if withDisp {
		return fmt.Sprintf("%d(%s)", disp, name)
	}
	return name
}
