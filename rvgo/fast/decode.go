package fast

import (
	"fmt"

	"github.com/ethereum-optimism/rv32core/rvgo/riscv"
)

// Reg is a general purpose register index. Only the low 5 bits are significant.
type Reg uint8

// Instruction is a decoded instruction word. Fields that do not apply to
// the format class of the opcode are still extracted, but carry no meaning.
type Instruction struct {
	Word   U32 `json:"word"`
	Opcode U32 `json:"opcode"`
	Funct3 U32 `json:"funct3"`
	Funct7 U32 `json:"funct7"`
	Rs1    Reg `json:"rs1"`
	Rs2    Reg `json:"rs2"`
	Rd     Reg `json:"rd"`
	// Imm is sign-extended per format class, and zero for R-type and SYSTEM instructions.
	Imm U32 `json:"imm"`
	// CSR holds bits 31:20 of SYSTEM instructions: the CSR address or the privileged sub-opcode.
	CSR U32 `json:"csr"`
}

// Decode is a pure function of the instruction word.
func Decode(instr U32) Instruction {
	d := Instruction{
		Word:   instr,
		Opcode: parseOpcode(instr),
		Funct3: parseFunct3(instr),
		Funct7: parseFunct7(instr),
		Rs1:    Reg(parseRs1(instr)),
		Rs2:    Reg(parseRs2(instr)),
		Rd:     Reg(parseRd(instr)),
	}
	switch d.Opcode {
	case riscv.OpImm: // 001_0011: I-type, shifts use an unsigned shamt
		switch d.Funct3 {
		case riscv.F3SLL, riscv.F3SR:
			d.Imm = parseShamt(instr)
		default:
			d.Imm = parseImmTypeI(instr)
		}
	case riscv.OpLoad, riscv.OpJALR: // 000_0011, 110_0111: I-type
		d.Imm = parseImmTypeI(instr)
	case riscv.OpStore: // 010_0011: S-type
		d.Imm = parseImmTypeS(instr)
	case riscv.OpBranch: // 110_0011: B-type
		d.Imm = parseImmTypeB(instr)
	case riscv.OpLUI, riscv.OpAUIPC: // 011_0111, 001_0111: U-type
		d.Imm = parseImmTypeU(instr)
	case riscv.OpJAL: // 110_1111: J-type
		d.Imm = parseImmTypeJ(instr)
	case riscv.OpSystem: // 111_0011: no immediate, but a 12 bit CSR / funct12 field
		d.CSR = parseFunct12(instr)
	}
	return d
}

func (d Instruction) String() string {
	return fmt.Sprintf("%08x op=%02x f3=%d f7=%02x rd=x%d rs1=x%d rs2=x%d imm=%08x",
		d.Word, d.Opcode, d.Funct3, d.Funct7, d.Rd, d.Rs1, d.Rs2, d.Imm)
}
