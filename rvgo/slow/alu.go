package slow

import "github.com/ethereum-optimism/rv32core/rvgo/riscv"

// compute is the ALU function table, in 32 bit yul-style math.
// Shift amounts use the low 5 bits of b, and unrecognized selectors yield zero.
func compute(fn, a, b U32) U32 {
	switch fn.val() {
	case riscv.ALUAdd:
		return add32(a, b)
	case riscv.ALUSub:
		return sub32(a, b)
	case riscv.ALUSlt:
		return slt32(a, b)
	case riscv.ALUSltu:
		return lt32(a, b)
	case riscv.ALUXor:
		return xor32(a, b)
	case riscv.ALUOr:
		return or32(a, b)
	case riscv.ALUAnd:
		return and32(a, b)
	case riscv.ALUSll:
		return shl32(and32(b, toU32(0x1F)), a)
	case riscv.ALUSrl:
		return shr32(and32(b, toU32(0x1F)), a)
	case riscv.ALUSra:
		return sar32(and32(b, toU32(0x1F)), a)
	default:
		return U32{}
	}
}
