package fast_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ethereum-optimism/rv32core/rvgo/fast"
	"github.com/ethereum-optimism/rv32core/rvgo/riscv"
)

var _ = Describe("Decoder", func() {
	Describe("I-type", func() {
		It("should decode ADDI with a negative immediate", func() {
			// addi x1, x2, -1
			d := fast.Decode(0xfff10093)
			Expect(d.Opcode).To(Equal(fast.U32(riscv.OpImm)))
			Expect(d.Rd).To(Equal(fast.Reg(1)))
			Expect(d.Rs1).To(Equal(fast.Reg(2)))
			Expect(d.Funct3).To(Equal(fast.U32(riscv.F3ADD)))
			Expect(d.Imm).To(Equal(fast.U32(0xFFFF_FFFF)))
		})

		It("should decode shift amounts without sign extension", func() {
			// srai x3, x4, 31
			d := fast.Decode(0x41f25193)
			Expect(d.Imm).To(Equal(fast.U32(31)))
			Expect(d.Funct7).To(Equal(fast.U32(riscv.F7Alt)))
		})

		It("should decode LW", func() {
			// lw x5, 8(x6)
			d := fast.Decode(0x00832283)
			Expect(d.Opcode).To(Equal(fast.U32(riscv.OpLoad)))
			Expect(d.Funct3).To(Equal(fast.U32(riscv.F3LW)))
			Expect(d.Rs1).To(Equal(fast.Reg(6)))
			Expect(d.Rd).To(Equal(fast.Reg(5)))
			Expect(d.Imm).To(Equal(fast.U32(8)))
		})

		It("should decode JALR", func() {
			// jalr x0, 0(x1)
			d := fast.Decode(0x00008067)
			Expect(d.Opcode).To(Equal(fast.U32(riscv.OpJALR)))
			Expect(d.Rs1).To(Equal(fast.Reg(1)))
			Expect(d.Imm).To(BeZero())
		})
	})

	Describe("S-type", func() {
		It("should reassemble the split immediate", func() {
			// sw x7, -4(x2)
			d := fast.Decode(0xfe712e23)
			Expect(d.Opcode).To(Equal(fast.U32(riscv.OpStore)))
			Expect(d.Rs1).To(Equal(fast.Reg(2)))
			Expect(d.Rs2).To(Equal(fast.Reg(7)))
			Expect(d.Imm).To(Equal(fast.U32(0xFFFF_FFFC)))
		})
	})

	Describe("B-type", func() {
		It("should decode a forward branch offset in bytes", func() {
			// beq x0, x0, +8
			d := fast.Decode(0x00000463)
			Expect(d.Opcode).To(Equal(fast.U32(riscv.OpBranch)))
			Expect(d.Imm).To(Equal(fast.U32(8)))
		})

		It("should sign-extend a backward branch", func() {
			// bne x1, x2, -16
			d := fast.Decode(0xfe2098e3)
			Expect(d.Funct3).To(Equal(fast.U32(riscv.F3BNE)))
			Expect(d.Imm).To(Equal(fast.U32(0xFFFF_FFF0)))
		})
	})

	Describe("U-type", func() {
		It("should keep the upper 20 bits of LUI", func() {
			// lui x10, 0x12345
			d := fast.Decode(0x12345537)
			Expect(d.Opcode).To(Equal(fast.U32(riscv.OpLUI)))
			Expect(d.Rd).To(Equal(fast.Reg(10)))
			Expect(d.Imm).To(Equal(fast.U32(0x1234_5000)))
		})

		It("should decode AUIPC", func() {
			// auipc x1, 0xfffff
			d := fast.Decode(0xfffff097)
			Expect(d.Opcode).To(Equal(fast.U32(riscv.OpAUIPC)))
			Expect(d.Imm).To(Equal(fast.U32(0xFFFF_F000)))
		})
	})

	Describe("J-type", func() {
		It("should decode JAL offsets", func() {
			// jal x1, +8
			d := fast.Decode(0x008000ef)
			Expect(d.Opcode).To(Equal(fast.U32(riscv.OpJAL)))
			Expect(d.Rd).To(Equal(fast.Reg(1)))
			Expect(d.Imm).To(Equal(fast.U32(8)))
		})

		It("should sign-extend backward jumps", func() {
			// jal x0, -4
			d := fast.Decode(0xffdff06f)
			Expect(d.Imm).To(Equal(fast.U32(0xFFFF_FFFC)))
		})
	})

	Describe("SYSTEM", func() {
		It("should expose the CSR address", func() {
			// csrrw x1, mscratch, x2
			d := fast.Decode(0x340110f3)
			Expect(d.Opcode).To(Equal(fast.U32(riscv.OpSystem)))
			Expect(d.Funct3).To(Equal(fast.U32(riscv.F3CSRRW)))
			Expect(d.CSR).To(Equal(fast.U32(riscv.CSRMscratch)))
			Expect(d.Imm).To(BeZero())
		})

		It("should expose the privileged sub-opcode", func() {
			Expect(fast.Decode(0x00000073).CSR).To(Equal(fast.U32(riscv.Funct12ECALL)))
			Expect(fast.Decode(0x00100073).CSR).To(Equal(fast.U32(riscv.Funct12EBREAK)))
			Expect(fast.Decode(0x30200073).CSR).To(Equal(fast.U32(riscv.Funct12MRET)))
			Expect(fast.Decode(0x10500073).CSR).To(Equal(fast.U32(riscv.Funct12WFI)))
		})
	})

	It("should be a pure function of the word", func() {
		for _, w := range []fast.U32{0, 0xFFFF_FFFF, 0xfff10093, 0x340110f3} {
			Expect(fast.Decode(w)).To(Equal(fast.Decode(w)))
			Expect(fast.Decode(w).Word).To(Equal(w))
		}
	})

	It("should agree with the exported field parsers", func() {
		w := fast.U32(0xfe712e23)
		d := fast.Decode(w)
		Expect(d.Opcode).To(Equal(fast.ParseOpcode(w)))
		Expect(fast.U32(d.Rs1)).To(Equal(fast.ParseRs1(w)))
		Expect(fast.U32(d.Rs2)).To(Equal(fast.ParseRs2(w)))
		Expect(d.Imm).To(Equal(fast.ParseImmTypeS(w)))
	})
})
