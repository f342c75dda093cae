package fast

import (
	"fmt"

	"github.com/ethereum-optimism/rv32core/rvgo/riscv"
)

func CauseName(cause U32) string {
	switch cause {
	case riscv.CauseInstructionMisaligned:
		return "instruction-misaligned"
	case riscv.CauseIllegalInstruction:
		return "illegal-instruction"
	case riscv.CauseBreakpoint:
		return "breakpoint"
	case riscv.CauseLoadMisaligned:
		return "load-misaligned"
	case riscv.CauseStoreMisaligned:
		return "store-misaligned"
	case riscv.CauseECallMMode:
		return "ecall"
	default:
		return fmt.Sprintf("cause-%d", cause)
	}
}

// Trap describes a trap that was taken.
type Trap struct {
	Cause U32
	EPC   U32
	TVal  U32
	// Vector is the handler address
	Vector U32
}
