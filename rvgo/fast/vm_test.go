package fast

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/rv32core/rvgo/riscv"
)

const handlerAddr = 0x100

// withHandler places a trap handler at handlerAddr, padding the gap with nops.
func withHandler(main []U32, handler ...U32) []U32 {
	out := make([]U32, handlerAddr/4, handlerAddr/4+len(handler))
	for i := range out {
		out[i] = nop()
	}
	copy(out, main)
	return append(out, handler...)
}

// setMtvec is the two-instruction prologue pointing traps at handlerAddr.
func setMtvec(mode U32) []U32 {
	return []U32{addi(5, 0, handlerAddr|int32(mode)), csrrw(0, riscv.CSRMtvec, 5)}
}

func TestArithmetic(t *testing.T) {
	state := newTestState(t,
		addi(1, 0, 5),
		addi(2, 0, -3),
		add(3, 1, 2),
		sub(4, 2, 1),
		sltu(5, 1, 2),
		slli(6, 1, 4),
		srai(7, 2, 1),
		slti(8, 2, 0),
		lui(9, 0x12345000),
		auipc(10, 0x1000),
	)
	us := boot(t, state)
	runInstructions(t, us, 10)

	require.Equal(t, U32(5), state.Registers[1])
	require.Equal(t, U32(0xFFFF_FFFD), state.Registers[2])
	require.Equal(t, U32(2), state.Registers[3])
	require.Equal(t, U32(0xFFFF_FFF8), state.Registers[4])
	require.Equal(t, U32(1), state.Registers[5], "5 is below 0xfffffffd unsigned")
	require.Equal(t, U32(80), state.Registers[6])
	require.Equal(t, U32(0xFFFF_FFFE), state.Registers[7])
	require.Equal(t, U32(1), state.Registers[8])
	require.Equal(t, U32(0x12345000), state.Registers[9])
	require.Equal(t, U32(36+0x1000), state.Registers[10])
	require.Equal(t, U32(40), state.PC)
}

func TestZeroRegister(t *testing.T) {
	state := newTestState(t,
		addi(0, 0, 5),
		lui(0, 0xFFFFF000),
		jal(0, 8),
		nop(),
		lw(0, 0, 0),
		add(1, 0, 0),
	)
	us := boot(t, state)
	runInstructions(t, us, 5)
	require.Equal(t, U32(0), state.Registers[0])
	require.Equal(t, U32(0), state.Registers[1])
	require.Equal(t, U32(24), state.PC)
}

func TestBranches(t *testing.T) {
	t.Run("taken", func(t *testing.T) {
		state := newTestState(t,
			beq(0, 0, 8),
			addi(1, 0, 1), // skipped
			addi(2, 0, 2),
		)
		us := boot(t, state)
		runInstructions(t, us, 1)
		require.Equal(t, U32(8), state.PC, "branch target, not the next instruction")
		runInstructions(t, us, 1)
		require.Equal(t, U32(0), state.Registers[1])
		require.Equal(t, U32(2), state.Registers[2])
	})
	t.Run("not taken", func(t *testing.T) {
		state := newTestState(t,
			addi(1, 0, -1),
			bne(1, 1, 8),
			blt(0, 1, 8),   // 0 < -1 is false
			bgeu(0, 1, 8),  // 0 >= 0xffffffff is false
			blt(1, 0, -12), // -1 < 0, back to the bne
		)
		us := boot(t, state)
		runInstructions(t, us, 4)
		require.Equal(t, U32(16), state.PC)
		runInstructions(t, us, 1)
		require.Equal(t, U32(4), state.PC)
	})
}

func TestJumpAndLink(t *testing.T) {
	state := newTestState(t,
		jal(1, 8),
		nop(),
		jalr(2, 1, 13), // lowest bit of the target is dropped
		nop(),
		nop(),
	)
	us := boot(t, state)
	runInstructions(t, us, 1)
	require.Equal(t, U32(4), state.Registers[1])
	require.Equal(t, U32(8), state.PC)
	runInstructions(t, us, 1)
	require.Equal(t, U32(12), state.Registers[2])
	require.Equal(t, U32(16), state.PC)
}

func TestMisalignedJump(t *testing.T) {
	t.Run("jal", func(t *testing.T) {
		state := newTestState(t, withHandler(append(setMtvec(riscv.MtvecModeDirect), jal(1, 6)))...)
		us := boot(t, state)
		runInstructions(t, us, 3)
		require.Equal(t, U32(riscv.CauseInstructionMisaligned), state.CSR.Read(riscv.CSRMcause))
		require.Equal(t, U32(8), state.CSR.Read(riscv.CSRMepc), "mepc holds the jump itself")
		require.Equal(t, U32(14), state.CSR.Read(riscv.CSRMtval))
		require.Equal(t, U32(handlerAddr), state.PC)
		require.Equal(t, U32(0), state.Registers[1], "no link on a faulting jump")
		require.True(t, state.InTrap)
	})
	t.Run("jalr", func(t *testing.T) {
		main := append(setMtvec(riscv.MtvecModeDirect), addi(6, 0, 0x42), jalr(1, 6, 0))
		state := newTestState(t, withHandler(main)...)
		us := boot(t, state)
		runInstructions(t, us, 4)
		require.Equal(t, U32(riscv.CauseInstructionMisaligned), state.CSR.Read(riscv.CSRMcause))
		require.Equal(t, U32(12), state.CSR.Read(riscv.CSRMepc))
		require.Equal(t, U32(0x42), state.CSR.Read(riscv.CSRMtval))
		require.Equal(t, U32(handlerAddr), state.PC)
		require.Equal(t, U32(0), state.Registers[1])
	})
	t.Run("branch", func(t *testing.T) {
		main := append(setMtvec(riscv.MtvecModeDirect), beq(0, 0, 2))
		state := newTestState(t, withHandler(main)...)
		us := boot(t, state)
		runInstructions(t, us, 3)
		require.Equal(t, U32(riscv.CauseInstructionMisaligned), state.CSR.Read(riscv.CSRMcause))
		require.Equal(t, U32(10), state.CSR.Read(riscv.CSRMtval))
		require.Equal(t, U32(handlerAddr), state.PC)
	})
	t.Run("fetch", func(t *testing.T) {
		state := newTestState(t, nop())
		us := boot(t, state)
		state.PC = 2
		runInstructions(t, us, 1)
		require.Equal(t, U32(riscv.CauseInstructionMisaligned), state.CSR.Read(riscv.CSRMcause))
		require.Equal(t, U32(2), state.CSR.Read(riscv.CSRMtval))
		require.Equal(t, U32(0), state.PC, "mtvec resets to zero")
	})
}

func TestLoadStore(t *testing.T) {
	state := newTestState(t,
		lui(1, riscv.RAMBase),
		lui(2, 0xDEADC000),
		addi(2, 2, -0x111),
		sw(2, 1, 0),
		lb(3, 1, 0),
		lbu(4, 1, 0),
		lh(5, 1, 2),
		lw(6, 1, 0),
		sb(0, 1, 1),
		sh(2, 1, 6),
		lw(7, 1, 0),
		lw(8, 1, 4),
	)
	us := boot(t, state)
	runInstructions(t, us, 12)

	require.Equal(t, U32(0xDEADBEEF), state.Registers[2])
	require.Equal(t, U32(0xFFFF_FFEF), state.Registers[3], "low byte is sign-extended")
	require.Equal(t, U32(0xEF), state.Registers[4])
	require.Equal(t, U32(0xFFFF_DEAD), state.Registers[5])
	require.Equal(t, U32(0xDEADBEEF), state.Registers[6])
	require.Equal(t, U32(0xDEAD00EF), state.Registers[7])
	require.Equal(t, U32(0xBEEF0000), state.Registers[8])
	require.Equal(t, U32(0xDEAD00EF), state.Bus.RAM.ReadWord(0))
}

func TestMisalignedLoadStore(t *testing.T) {
	t.Run("load", func(t *testing.T) {
		main := append(setMtvec(riscv.MtvecModeDirect), lui(1, riscv.RAMBase), addi(3, 0, 7), lw(3, 1, 2))
		state := newTestState(t, withHandler(main)...)
		us := boot(t, state)
		runInstructions(t, us, 5)
		require.Equal(t, U32(riscv.CauseLoadMisaligned), state.CSR.Read(riscv.CSRMcause))
		require.Equal(t, U32(16), state.CSR.Read(riscv.CSRMepc))
		require.Equal(t, U32(riscv.RAMBase+2), state.CSR.Read(riscv.CSRMtval))
		require.Equal(t, U32(7), state.Registers[3], "destination is untouched")
	})
	t.Run("store", func(t *testing.T) {
		main := append(setMtvec(riscv.MtvecModeDirect), lui(1, riscv.RAMBase), addi(2, 0, -1), sh(2, 1, 1))
		state := newTestState(t, withHandler(main)...)
		us := boot(t, state)
		runInstructions(t, us, 5)
		require.Equal(t, U32(riscv.CauseStoreMisaligned), state.CSR.Read(riscv.CSRMcause))
		require.Equal(t, U32(riscv.RAMBase+1), state.CSR.Read(riscv.CSRMtval))
		require.Equal(t, 0, state.Bus.RAM.PageCount(), "nothing was stored")
	})
}

func TestEcallAndMret(t *testing.T) {
	main := append(setMtvec(riscv.MtvecModeDirect),
		csrrsi(0, riscv.CSRMstatus, riscv.MstatusMIE),
		ecall,
		addi(8, 0, 1),
	)
	handler := []U32{
		csrrs(9, riscv.CSRMstatus, 0),
		csrrs(7, riscv.CSRMepc, 0),
		addi(7, 7, 4),
		csrrw(0, riscv.CSRMepc, 7),
		mret,
	}
	state := newTestState(t, withHandler(main, handler...)...)
	us := boot(t, state)

	runInstructions(t, us, 4)
	require.Equal(t, U32(handlerAddr), state.PC)
	require.True(t, state.InTrap)
	require.Equal(t, U32(riscv.CauseECallMMode), state.CSR.Read(riscv.CSRMcause))
	require.Equal(t, U32(12), state.CSR.Read(riscv.CSRMepc))
	require.Equal(t, U32(0), state.CSR.Read(riscv.CSRMtval))

	runInstructions(t, us, 5)
	require.False(t, state.InTrap)
	require.Equal(t, U32(16), state.PC, "returns to the adjusted mepc")
	require.Zero(t, state.Registers[9]&riscv.MstatusMIE, "interrupts are disabled in the handler")
	require.NotZero(t, state.Registers[9]&riscv.MstatusMPIE, "previous enable is saved")
	status := state.CSR.Read(riscv.CSRMstatus)
	require.NotZero(t, status&riscv.MstatusMIE, "enable is restored")
	require.NotZero(t, status&riscv.MstatusMPIE)

	runInstructions(t, us, 1)
	require.Equal(t, U32(1), state.Registers[8])
}

func TestEbreak(t *testing.T) {
	state := newTestState(t, withHandler(append(setMtvec(riscv.MtvecModeDirect), ebreak))...)
	us := boot(t, state)
	runInstructions(t, us, 3)
	require.Equal(t, U32(riscv.CauseBreakpoint), state.CSR.Read(riscv.CSRMcause))
	require.Equal(t, U32(8), state.CSR.Read(riscv.CSRMepc))
	require.Equal(t, U32(8), state.CSR.Read(riscv.CSRMtval))
	require.Equal(t, U32(handlerAddr), state.PC)
}

func TestPrivilegedNoops(t *testing.T) {
	state := newTestState(t, mret, wfi, fence(), addi(1, 0, 1))
	us := boot(t, state)
	runInstructions(t, us, 4)
	require.False(t, state.InTrap)
	require.Equal(t, U32(1), state.Registers[1])
	require.Equal(t, U32(16), state.PC)
}

func TestVectoredTrap(t *testing.T) {
	state := newTestState(t, withHandler(append(setMtvec(riscv.MtvecModeVectored), ecall))...)
	us := boot(t, state)
	runInstructions(t, us, 3)
	require.Equal(t, U32(handlerAddr+4*riscv.CauseECallMMode), state.PC)
}

func TestIllegalInstruction(t *testing.T) {
	for _, word := range []U32{0xFFFF_FFFF, 0, sub(1, 1, 1) | 1<<26, encI(0, 0, 2, 0, riscv.OpJALR)} {
		state := newTestState(t, withHandler(append(setMtvec(riscv.MtvecModeDirect), word))...)
		us := boot(t, state)
		runInstructions(t, us, 3)
		require.Equal(t, U32(riscv.CauseIllegalInstruction), state.CSR.Read(riscv.CSRMcause), "word %08x", word)
		require.Equal(t, word, state.CSR.Read(riscv.CSRMtval))
		require.Equal(t, U32(8), state.CSR.Read(riscv.CSRMepc))
		require.Equal(t, U32(handlerAddr), state.PC)
	}

	t.Run("without trap", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ResetCycles = 1
		cfg.IllegalInstructionTrap = false
		state := newTestStateWithConfig(t, cfg, 0xFFFF_FFFF, addi(1, 0, 1))
		us := boot(t, state)
		runInstructions(t, us, 2)
		require.False(t, state.InTrap)
		require.Equal(t, U32(0), state.CSR.Read(riscv.CSRMcause))
		require.Equal(t, U32(1), state.Registers[1])
		require.Equal(t, U32(8), state.PC)
	})
}

func TestCSRInstructions(t *testing.T) {
	state := newTestState(t,
		csrrwi(1, riscv.CSRMscratch, 5),
		csrrsi(2, riscv.CSRMscratch, 0x18),
		addi(10, 0, 0x9),
		csrrc(3, riscv.CSRMscratch, 10),
		csrrs(4, riscv.CSRMscratch, 0),
		csrrs(5, riscv.CSRMisa, 0),
		csrrw(6, riscv.CSRMisa, 10),
		csrrs(7, riscv.CSRMisa, 0),
		csrrs(8, 0x7C0, 0), // not implemented
	)
	us := boot(t, state)
	runInstructions(t, us, 9)
	require.Equal(t, U32(0), state.Registers[1])
	require.Equal(t, U32(5), state.Registers[2])
	require.Equal(t, U32(0x1D), state.Registers[3])
	require.Equal(t, U32(0x14), state.Registers[4])
	require.Equal(t, U32(riscv.MisaRV32I), state.Registers[5])
	require.Equal(t, U32(riscv.MisaRV32I), state.Registers[7], "misa is read-only")
	require.Equal(t, U32(0), state.Registers[8])
}

func TestCounters(t *testing.T) {
	state := newTestState(t, nop(), nop(), nop(), csrrw(0, riscv.CSRMcycle, 0), nop())
	us := boot(t, state)
	runInstructions(t, us, 3)
	require.Equal(t, uint64(3), state.CSR.Retired())
	require.Equal(t, state.Step, state.CSR.Cycles(), "mcycle counts every clock from reset")

	runInstructions(t, us, 1)
	// the write lands in EXECUTE and wins, PC_ADVANCE counts once more
	require.Equal(t, uint64(1), state.CSR.Cycles())
	require.Equal(t, uint64(4), state.CSR.Retired())

	runInstructions(t, us, 1)
	require.Equal(t, uint64(6), state.CSR.Cycles())
}

func TestCounterInhibit(t *testing.T) {
	state := newTestState(t,
		csrrsi(0, riscv.CSRMcountinhibit, riscv.McountinhibitCY|riscv.McountinhibitIR),
		nop(),
		nop(),
	)
	us := boot(t, state)
	runInstructions(t, us, 1)
	cycles, retired := state.CSR.Cycles(), state.CSR.Retired()
	runInstructions(t, us, 2)
	require.Equal(t, cycles, state.CSR.Cycles())
	require.Equal(t, retired, state.CSR.Retired())
}

func TestCycleCounts(t *testing.T) {
	cycles := func(t *testing.T, us *InstrumentedState) uint64 {
		wit, err := us.Step(true)
		require.NoError(t, err)
		return wit.Cycles
	}

	state := newTestState(t, addi(1, 0, 1), beq(0, 0, 8), nop(), lui(2, riscv.RAMBase), lw(3, 2, 0))
	us := boot(t, state)
	require.Equal(t, uint64(5), cycles(t, us), "fetch takes two clocks without wait states")
	require.Equal(t, uint64(4), cycles(t, us), "taken branches skip PC_ADVANCE")
	require.Equal(t, uint64(5), cycles(t, us))
	require.Equal(t, uint64(5), cycles(t, us))

	cfg := DefaultConfig()
	state = newTestStateWithConfig(t, cfg, addi(1, 0, 1))
	require.Equal(t, StateReset, state.State)
	us = boot(t, state)
	require.Equal(t, uint64(cfg.ResetCycles), state.Step)
	require.Equal(t, uint64(5+cfg.ROMWaitStates), cycles(t, us))
}

func TestPeripheralAccess(t *testing.T) {
	state := newTestState(t,
		lui(1, riscv.PeripheralBase),
		addi(2, 0, 0x55),
		sw(2, 1, riscv.PeriphPWM1),
		lw(3, 1, riscv.PeriphPWM1),
	)
	us := boot(t, state)
	runInstructions(t, us, 4)
	pwm, ok := state.Bus.Peripherals.Block("pwm1")
	require.True(t, ok)
	require.Equal(t, U32(0x55), pwm.Regs[0])
	require.Equal(t, U32(0x55), state.Registers[3])
}

func TestInvalidState(t *testing.T) {
	state := newTestState(t, nop())
	state.State = CPUState(42)
	err := Step(state)
	require.ErrorIs(t, err, ErrInvalidState)
	require.ErrorContains(t, err, "revert badf5e00")

	state = newTestState(t, nop())
	require.NoError(t, state.Bus.Issue(riscv.RAMBase, 0, false, riscv.WidthWord))
	state.Bus.Txn.Remaining = 10
	state.State = StateDecode
	state.Pending.Instr = Decode(lw(1, 0, 0))
	err = Step(state)
	require.ErrorIs(t, err, ErrBusBusy)
}
