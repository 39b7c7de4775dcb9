package vm

import (
	"fmt"
	"math/big"

	"github.com/wolf-asm/wolf/pkg/exe"
	"github.com/wolf-asm/wolf/pkg/ir"
	"github.com/wolf-asm/wolf/pkg/isa"
	"github.com/wolf-asm/wolf/pkg/layout"
)

// Status is the outcome of one VM step.
type Status int

const (
	Continue Status = iota
	Quit
)

// TrapError wraps any fatal runtime condition with the PC of the
// instruction that caused it. Error() renders it as `failed to execute
// instruction at 0x<pc>: <cause>`; cmd/wolfvm capitalizes the first
// letter when printing it.
type TrapError struct {
	PC    uint64
	Cause error
}

func (e TrapError) Error() string {
	return fmt.Sprintf("failed to execute instruction at 0x%x: %v", e.PC, e.Cause)
}

func (e TrapError) Unwrap() error { return e.Cause }

var (
	ErrDivisionByZero = fmt.Errorf("division by zero")
	ErrIllegalOpcode  = fmt.Errorf("illegal opcode")
	ErrStackOverflow  = fmt.Errorf("stack overflow")
	ErrStackUnderflow = fmt.Errorf("stack underflow")
)

// VM is the fetch/decode/execute machine. It owns its Memory,
// Registers, and Flags exclusively for the duration of one run.
type VM struct {
	PC   uint64
	Mem  *Memory
	Reg  Registers
	Flag Flags

	quitAddr uint64
}

// New allocates a VM with the given memory capacity.
func New(capacity uint64) *VM {
	return &VM{Mem: NewMemory(capacity)}
}

// Load installs an Executable's image at address 0, initializes SP to
// the top of memory, and pushes the sentinel quit address so that a
// `ret` against the initial stack terminates the run cleanly.
func (vm *VM) Load(e exe.Executable) error {
	image := e.Image()
	if uint64(len(image)) > vm.Mem.Capacity() {
		return fmt.Errorf("executable image of %d bytes does not fit in %d bytes of memory", len(image), vm.Mem.Capacity())
	}
	if err := vm.Mem.LoadImage(image); err != nil {
		return err
	}
	vm.PC = e.EntryPoint
	vm.Reg = Registers{SP: vm.Mem.Capacity()}
	vm.Flag = Flags{}
	vm.quitAddr = vm.Mem.Capacity()
	return vm.pushU64(vm.quitAddr)
}

// Run steps the VM until it quits or traps.
func (vm *VM) Run() error {
	for {
		status, err := vm.Step()
		if err != nil {
			return err
		}
		if status == Quit {
			return nil
		}
	}
}

// Step fetches, decodes, and executes one instruction.
func (vm *VM) Step() (Status, error) {
	pc := vm.PC
	raw, err := vm.Mem.ReadU64(pc)
	if err != nil {
		return Continue, TrapError{PC: pc, Cause: err}
	}
	opcode, flags, arg := layout.DecodeWord(raw)
	vm.PC = pc + 8

	def, ok := isa.ByOpcode(opcode)
	if !ok {
		return Continue, TrapError{PC: pc, Cause: ErrIllegalOpcode}
	}

	status, err := vm.execute(def, flags, arg)
	if err != nil {
		return Continue, TrapError{PC: pc, Cause: err}
	}
	return status, nil
}

// decoded is one resolved operand at execution time.
type decoded struct {
	reg   ir.RegisterName
	value uint64 // register content, immediate value, or address
}

// decodeArgs resolves each argument slot according to the mnemonic's
// declared operand classes and the instruction word's arg_flags. A
// Destination slot is always a register and consumes no flag bits;
// Source/Location slots consume one 2-bit code each, in order.
func (vm *VM) decodeArgs(def isa.Def, flags uint8, arg [3]uint16) [3]decoded {
	var out [3]decoded
	shift := 0
	for i := 0; i < def.Arity; i++ {
		if def.Operand[i] == isa.Destination {
			idx := ir.RegisterName(arg[i] & 0x7F)
			out[i] = decoded{reg: idx, value: vm.Reg.Get(idx)}
			continue
		}
		code := (flags >> shift) & 0x3
		shift += 2
		switch code {
		case 1: // register, optionally with a 9-bit signed displacement
			idx := ir.RegisterName(arg[i] & 0x7F)
			disp := int64(int16(arg[i]&0xFF80) >> 7)
			out[i] = decoded{reg: idx, value: vm.Reg.Get(idx) + uint64(disp)}
		case 2: // immediate, sign-extended from 16 bits
			out[i] = decoded{value: uint64(int64(int16(arg[i])))}
		case 3: // absolute address (resolved label)
			out[i] = decoded{value: uint64(arg[i])}
		default:
			out[i] = decoded{}
		}
	}
	return out
}

func (vm *VM) pushU64(v uint64) error {
	if vm.Reg.SP < 8 {
		return ErrStackOverflow
	}
	vm.Reg.SP -= 8
	return vm.Mem.WriteU64(vm.Reg.SP, v)
}

func (vm *VM) popU64() (uint64, error) {
	if vm.Reg.SP+8 > vm.Mem.Capacity() {
		return 0, ErrStackUnderflow
	}
	v, err := vm.Mem.ReadU64(vm.Reg.SP)
	if err != nil {
		return 0, err
	}
	vm.Reg.SP += 8
	return v, nil
}

func (vm *VM) execute(def isa.Def, flags uint8, rawArg [3]uint16) (Status, error) {
	a := vm.decodeArgs(def, flags, rawArg)

	switch def.Opcode {
	case isa.OpNop:
		return Continue, nil

	case isa.OpAdd:
		vm.binOp(a, func(x, y uint64) uint64 {
			r, c, o := addWithFlags(x, y)
			vm.Flag.Carry, vm.Flag.Overflow = c, o
			return r
		})
		return Continue, nil
	case isa.OpSub:
		vm.binOp(a, func(x, y uint64) uint64 {
			r, c, o := subWithFlags(x, y)
			vm.Flag.Carry, vm.Flag.Overflow = c, o
			return r
		})
		return Continue, nil
	case isa.OpMul:
		vm.binOp(a, func(x, y uint64) uint64 {
			r, _, o := mulSigned(x, y)
			vm.Flag.Overflow, vm.Flag.Carry = o, false
			return r
		})
		return Continue, nil
	case isa.OpMulu:
		vm.binOp(a, func(x, y uint64) uint64 {
			r, c, _ := mulUnsigned(x, y)
			vm.Flag.Carry, vm.Flag.Overflow = c, false
			return r
		})
		return Continue, nil
	case isa.OpMull:
		return vm.mulLong(a, true)
	case isa.OpMullu:
		return vm.mulLong(a, false)

	case isa.OpDiv:
		return vm.divOp(a, true, false)
	case isa.OpDivu:
		return vm.divOp(a, false, false)
	case isa.OpRem:
		return vm.divOp(a, true, true)
	case isa.OpRemu:
		return vm.divOp(a, false, true)
	case isa.OpDivr:
		return vm.divRemLong(a, true)
	case isa.OpDivru:
		return vm.divRemLong(a, false)

	case isa.OpAnd:
		vm.binOp(a, func(x, y uint64) uint64 {
			vm.Flag.Carry, vm.Flag.Overflow = false, false
			return x & y
		})
		return Continue, nil
	case isa.OpOr:
		vm.binOp(a, func(x, y uint64) uint64 {
			vm.Flag.Carry, vm.Flag.Overflow = false, false
			return x | y
		})
		return Continue, nil
	case isa.OpXor:
		vm.binOp(a, func(x, y uint64) uint64 {
			vm.Flag.Carry, vm.Flag.Overflow = false, false
			return x ^ y
		})
		return Continue, nil

	case isa.OpTest:
		vm.Flag.Carry, vm.Flag.Overflow = false, false
		vm.setLogicFlags(a[0].value & a[1].value)
		return Continue, nil
	case isa.OpCmp:
		r, c, o := subWithFlags(a[0].value, a[1].value)
		vm.Flag.Carry, vm.Flag.Overflow = c, o
		vm.setLogicFlags(r)
		return Continue, nil

	case isa.OpMov:
		vm.Reg.Set(a[0].reg, a[1].value)
		return Continue, nil

	case isa.OpLoad1, isa.OpLoad2, isa.OpLoad4, isa.OpLoad8:
		return Continue, vm.loadOp(a, widthOf(def.Opcode), true)
	case isa.OpLoadu1, isa.OpLoadu2, isa.OpLoadu4, isa.OpLoadu8:
		return Continue, vm.loadOp(a, widthOf(def.Opcode), false)
	case isa.OpStore1, isa.OpStore2, isa.OpStore4, isa.OpStore8:
		return Continue, vm.Mem.WriteWidth(a[0].value, widthOf(def.Opcode), a[1].value)

	case isa.OpPush:
		return Continue, vm.pushU64(a[0].value)
	case isa.OpPop:
		v, err := vm.popU64()
		if err != nil {
			return Continue, err
		}
		vm.Reg.Set(a[0].reg, v)
		return Continue, nil

	case isa.OpCall:
		if err := vm.pushU64(vm.PC); err != nil {
			return Continue, err
		}
		vm.PC = a[0].value
		return Continue, nil
	case isa.OpRet:
		target, err := vm.popU64()
		if err != nil {
			return Continue, err
		}
		if target == vm.quitAddr {
			return Quit, nil
		}
		vm.PC = target
		return Continue, nil

	case isa.OpJmp:
		vm.PC = a[0].value
		return Continue, nil
	case isa.OpJe:
		return vm.jumpIf(vm.Flag.Zero, a)
	case isa.OpJne:
		return vm.jumpIf(!vm.Flag.Zero, a)
	case isa.OpJg:
		return vm.jumpIf(!vm.Flag.Zero && vm.Flag.Sign == vm.Flag.Overflow, a)
	case isa.OpJge:
		return vm.jumpIf(vm.Flag.Sign == vm.Flag.Overflow, a)
	case isa.OpJl:
		return vm.jumpIf(vm.Flag.Sign != vm.Flag.Overflow, a)
	case isa.OpJle:
		return vm.jumpIf(vm.Flag.Zero || vm.Flag.Sign != vm.Flag.Overflow, a)
	case isa.OpJa:
		return vm.jumpIf(!vm.Flag.Carry && !vm.Flag.Zero, a)
	case isa.OpJae:
		return vm.jumpIf(!vm.Flag.Carry, a)
	case isa.OpJb:
		return vm.jumpIf(vm.Flag.Carry, a)
	case isa.OpJbe:
		return vm.jumpIf(vm.Flag.Carry || vm.Flag.Zero, a)
	case isa.OpJo:
		return vm.jumpIf(vm.Flag.Overflow, a)
	case isa.OpJno:
		return vm.jumpIf(!vm.Flag.Overflow, a)
	case isa.OpJz:
		return vm.jumpIf(vm.Flag.Zero, a)
	case isa.OpJnz:
		return vm.jumpIf(!vm.Flag.Zero, a)
	case isa.OpJs:
		return vm.jumpIf(vm.Flag.Sign, a)
	case isa.OpJns:
		return vm.jumpIf(!vm.Flag.Sign, a)

	default:
		return Continue, ErrIllegalOpcode
	}
}

func (vm *VM) jumpIf(cond bool, a [3]decoded) (Status, error) {
	if cond {
		vm.PC = a[0].value
	}
	return Continue, nil
}

func (vm *VM) binOp(a [3]decoded, f func(x, y uint64) uint64) {
	r := f(a[0].value, a[1].value)
	vm.Reg.Set(a[0].reg, r)
	vm.setLogicFlags(r)
}

func (vm *VM) setLogicFlags(r uint64) {
	vm.Flag.Zero = r == 0
	vm.Flag.Sign = r>>63 == 1
}

func widthOf(opcode uint16) int {
	switch opcode {
	case isa.OpLoad1, isa.OpLoadu1, isa.OpStore1:
		return 1
	case isa.OpLoad2, isa.OpLoadu2, isa.OpStore2:
		return 2
	case isa.OpLoad4, isa.OpLoadu4, isa.OpStore4:
		return 4
	case isa.OpLoad8, isa.OpLoadu8, isa.OpStore8:
		return 8
	default:
		panic("bug: widthOf called with a non load/store opcode")
	}
}

func (vm *VM) loadOp(a [3]decoded, width int, signed bool) error {
	raw, err := vm.Mem.ReadWidth(a[1].value, width)
	if err != nil {
		return err
	}
	v := raw
	if signed {
		v = SignExtend(raw, width)
	}
	vm.Reg.Set(a[0].reg, v)
	vm.setLogicFlags(v)
	return nil
}

func (vm *VM) divOp(a [3]decoded, signed, remainder bool) (Status, error) {
	x, y := a[0].value, a[1].value
	if y == 0 {
		return Continue, ErrDivisionByZero
	}
	var r uint64
	if signed {
		xi, yi := int64(x), int64(y)
		if remainder {
			r = uint64(xi % yi)
		} else {
			r = uint64(xi / yi)
		}
	} else {
		if remainder {
			r = x % y
		} else {
			r = x / y
		}
	}
	vm.Reg.Set(a[0].reg, r)
	vm.Flag.Carry, vm.Flag.Overflow = false, false
	vm.setLogicFlags(r)
	return Continue, nil
}

// mulLong implements mull/mullu: dest gets the low 64 bits of the
// product of dest's original value and src, dest2 gets the high 64
// bits.
func (vm *VM) mulLong(a [3]decoded, signed bool) (Status, error) {
	x, y := a[0].value, a[2].value
	var lo, hi uint64
	var carry, overflow bool
	if signed {
		lo, hi, overflow = mulSignedFull(x, y)
	} else {
		lo, hi, carry = mulUnsignedFull(x, y)
	}
	vm.Reg.Set(a[0].reg, lo)
	vm.Reg.Set(a[1].reg, hi)
	vm.Flag.Carry, vm.Flag.Overflow = carry, overflow
	vm.setLogicFlags(lo)
	return Continue, nil
}

func (vm *VM) divRemLong(a [3]decoded, signed bool) (Status, error) {
	x, y := a[0].value, a[2].value
	if y == 0 {
		return Continue, ErrDivisionByZero
	}
	var q, rem uint64
	if signed {
		xi, yi := int64(x), int64(y)
		q, rem = uint64(xi/yi), uint64(xi%yi)
	} else {
		q, rem = x/y, x%y
	}
	vm.Reg.Set(a[0].reg, q)
	vm.Reg.Set(a[1].reg, rem)
	vm.Flag.Carry, vm.Flag.Overflow = false, false
	vm.setLogicFlags(q)
	return Continue, nil
}

func addWithFlags(a, b uint64) (result uint64, carry, overflow bool) {
	result = a + b
	carry = result < a
	sa, sb, sr := int64(a), int64(b), int64(result)
	overflow = (sa >= 0) == (sb >= 0) && (sr >= 0) != (sa >= 0)
	return
}

func subWithFlags(a, b uint64) (result uint64, carry, overflow bool) {
	result = a - b
	carry = a < b
	sa, sb, sd := int64(a), int64(b), int64(result)
	overflow = (sa >= 0) != (sb >= 0) && (sd >= 0) != (sa >= 0)
	return
}

var (
	minInt64Big = big.NewInt(-1 << 63)
	maxInt64Big = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 63), big.NewInt(1))
	mod64       = new(big.Int).Lsh(big.NewInt(1), 64)
)

func toSignedBig(v uint64) *big.Int {
	if v>>63 == 1 {
		return new(big.Int).Sub(new(big.Int).SetUint64(v), mod64)
	}
	return new(big.Int).SetUint64(v)
}

func toU64FromBig(v *big.Int) uint64 {
	m := new(big.Int).Mod(v, mod64)
	return m.Uint64()
}

// mulSigned returns the low 64 bits of a signed multiply and whether
// the true product overflows 64 signed bits.
func mulSigned(a, b uint64) (result uint64, carry, overflow bool) {
	full := new(big.Int).Mul(toSignedBig(a), toSignedBig(b))
	overflow = full.Cmp(minInt64Big) < 0 || full.Cmp(maxInt64Big) > 0
	result = toU64FromBig(full)
	return
}

// mulUnsigned returns the low 64 bits of an unsigned multiply and
// whether the true product overflows 64 unsigned bits.
func mulUnsigned(a, b uint64) (result uint64, carry, overflow bool) {
	full := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
	carry = full.BitLen() > 64
	result = toU64FromBig(full)
	return
}

func mulSignedFull(a, b uint64) (lo, hi uint64, overflow bool) {
	full := new(big.Int).Mul(toSignedBig(a), toSignedBig(b))
	overflow = full.Cmp(minInt64Big) < 0 || full.Cmp(maxInt64Big) > 0
	mod128 := new(big.Int).Lsh(big.NewInt(1), 128)
	wrapped := new(big.Int).Mod(full, mod128)
	lo = toU64FromBig(wrapped)
	hiBig := new(big.Int).Rsh(wrapped, 64)
	hi = hiBig.Uint64()
	return
}

func mulUnsignedFull(a, b uint64) (lo, hi uint64, carry bool) {
	full := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
	carry = full.BitLen() > 64
	lo = toU64FromBig(full)
	hiBig := new(big.Int).Rsh(full, 64)
	hi = hiBig.Uint64()
	return
}
