package fast

import "github.com/ethereum-optimism/rv32core/rvgo/riscv"

// ALU captures its operands and function selector on Start.
// Result is a combinational function of that latch, valid until the next Start.
type ALU struct {
	A  U32 `json:"a"`
	B  U32 `json:"b"`
	Fn U32 `json:"fn"`
}

func (alu *ALU) Start(a, b, fn U32) {
	alu.A = a
	alu.B = b
	alu.Fn = and32(fn, toU32(0xF))
}

func (alu *ALU) Result() U32 {
	return Compute(alu.Fn, alu.A, alu.B)
}

// Compute applies an ALU function. Shift amounts use the low 5 bits of b,
// and unrecognized selectors yield zero.
func Compute(fn, a, b U32) U32 {
	switch fn {
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
		return 0
	}
}

// aluFunc maps an OP or OP-IMM instruction to its ALU selector.
// ok is false for funct3/funct7 combinations that are not RV32I instructions.
func aluFunc(d Instruction) (fn U32, ok bool) {
	imm := d.Opcode == riscv.OpImm
	switch d.Funct3 {
	case riscv.F3ADD: // 000 = ADD(I) / SUB
		switch {
		case imm:
			return riscv.ALUAdd, true
		case d.Funct7 == riscv.F7Base:
			return riscv.ALUAdd, true
		case d.Funct7 == riscv.F7Alt:
			return riscv.ALUSub, true
		}
	case riscv.F3SLL: // 001 = SLL(I)
		if d.Funct7 == riscv.F7Base {
			return riscv.ALUSll, true
		}
	case riscv.F3SLT: // 010 = SLT(I)
		if imm || d.Funct7 == riscv.F7Base {
			return riscv.ALUSlt, true
		}
	case riscv.F3SLTU: // 011 = SLT(I)U
		if imm || d.Funct7 == riscv.F7Base {
			return riscv.ALUSltu, true
		}
	case riscv.F3XOR: // 100 = XOR(I)
		if imm || d.Funct7 == riscv.F7Base {
			return riscv.ALUXor, true
		}
	case riscv.F3SR: // 101 = SRL(I) / SRA(I)
		switch d.Funct7 {
		case riscv.F7Base:
			return riscv.ALUSrl, true
		case riscv.F7Alt:
			return riscv.ALUSra, true
		}
	case riscv.F3OR: // 110 = OR(I)
		if imm || d.Funct7 == riscv.F7Base {
			return riscv.ALUOr, true
		}
	case riscv.F3AND: // 111 = AND(I)
		if imm || d.Funct7 == riscv.F7Base {
			return riscv.ALUAnd, true
		}
	}
	return 0, false
}
