package fast

import (
	"errors"
	"fmt"

	"github.com/ethereum-optimism/rv32core/rvgo/riscv"
)

// Step advances the core by a single clock cycle.
// Architectural faults are traps. Errors are only returned when the state itself is inconsistent.
func Step(s *VMState) (outErr error) {
	var revertCode uint64
	defer func() {
		if err := recover(); err != nil {
			if e, ok := err.(error); ok {
				outErr = fmt.Errorf("err: %w", e)
			} else {
				outErr = fmt.Errorf("err: %v", err)
			}
		}
		if revertCode != 0 {
			outErr = fmt.Errorf("revert %x: %w", revertCode, outErr)
		}
	}()

	revertWithCode := func(code uint64, err error) {
		revertCode = code
		panic(err)
	}

	loadRegister := s.Registers.Read
	writeRegister := s.Registers.Write
	setPC := func(pc U32) {
		s.PC = pc
	}

	issue := func(addr U32, wdata U32, write bool, width U32) {
		if err := s.Bus.Issue(addr, wdata, write, width); err != nil {
			if errors.Is(err, ErrBusWidth) {
				revertWithCode(riscv.ErrInvalidBusWidth, err)
			}
			revertWithCode(riscv.ErrBusNotIdle, err)
		}
	}

	// raiseTrap abandons the instruction in flight. Nothing of it has been committed yet.
	raiseTrap := func(cause U32, tval U32) {
		s.Pending.TrapCause = cause
		s.Pending.TrapValue = tval
		s.State = StateTrapEnter
	}

	illegal := func() {
		if s.Config.IllegalInstructionTrap {
			raiseTrap(riscv.CauseIllegalInstruction, s.Pending.Instr.Word)
		} else {
			s.State = StatePCAdvance
		}
	}

	misaligned := func(addr U32, width U32) bool {
		return !iszero32(and32(addr, sub32(shl32(width, toU32(1)), toU32(1))))
	}

	// jump commits a JAL/JALR/branch redirect, unless the target is not word aligned
	jump := func(target U32, rd Reg, link U32) {
		if !iszero32(and32(target, toU32(3))) {
			raiseTrap(riscv.CauseInstructionMisaligned, target)
			return
		}
		writeRegister(rd, link)
		setPC(target)
		s.State = StateFetch
	}

	retired := false
	d := s.Pending.Instr
	ipc := s.Pending.IPC

	switch s.State {
	case StateReset:
		// hold while storage settles
		if s.ResetCountdown > 1 {
			s.ResetCountdown -= 1
			break
		}
		s.ResetCountdown = 0
		s.State = StateFetch
	case StateFetch:
		if !s.Bus.Busy() {
			pc := s.PC
			if !iszero32(and32(pc, toU32(3))) {
				s.Pending = Pending{IPC: pc}
				raiseTrap(riscv.CauseInstructionMisaligned, pc)
				break
			}
			issue(pc, 0, false, riscv.WidthWord)
			break
		}
		txn, ok := s.Bus.Retire()
		if !ok {
			break // wait for the instruction storage
		}
		retired = true
		s.Pending = Pending{Instr: Decode(txn.RData), IPC: txn.Addr}
		s.State = StateDecode
	case StateDecode:
		switch d.Opcode {
		case riscv.OpLUI: // 011_0111: LUI = Load upper immediate
			writeRegister(d.Rd, d.Imm)
			s.State = StatePCAdvance
		case riscv.OpAUIPC: // 001_0111: AUIPC = Add upper immediate to PC
			writeRegister(d.Rd, add32(ipc, d.Imm))
			s.State = StatePCAdvance
		case riscv.OpJAL: // 110_1111: JAL = Jump and link
			jump(add32(ipc, d.Imm), d.Rd, add32(ipc, toU32(4)))
		case riscv.OpJALR: // 110_0111: JALR = Jump and link register
			if d.Funct3 != 0 {
				illegal()
				break
			}
			// least significant bit is set to 0
			target := and32(add32(loadRegister(d.Rs1), d.Imm), not32(toU32(1)))
			jump(target, d.Rd, add32(ipc, toU32(4)))
		case riscv.OpBranch: // 110_0011: branching, compared by the ALU and resolved in EXECUTE
			var fn U32
			switch d.Funct3 {
			case riscv.F3BEQ, riscv.F3BNE:
				fn = riscv.ALUXor
			case riscv.F3BLT, riscv.F3BGE:
				fn = riscv.ALUSlt
			case riscv.F3BLTU, riscv.F3BGEU:
				fn = riscv.ALUSltu
			default:
				illegal()
			}
			if fn != 0 {
				s.ALU.Start(loadRegister(d.Rs1), loadRegister(d.Rs2), fn)
				s.State = StateExecute
			}
		case riscv.OpLoad: // 000_0011: memory loading
			// LB, LH, LW, LBU, LHU
			width := and32(d.Funct3, toU32(3))
			if width == 3 || d.Funct3 == 6 {
				illegal()
				break
			}
			addr := add32(loadRegister(d.Rs1), d.Imm)
			if misaligned(addr, width) {
				raiseTrap(riscv.CauseLoadMisaligned, addr)
				break
			}
			s.Pending.MemAddr = addr
			issue(addr, 0, false, width)
			s.State = StateLoadStore
		case riscv.OpStore: // 010_0011: memory storing
			// SB, SH, SW
			width := d.Funct3
			if width > riscv.WidthWord {
				illegal()
				break
			}
			addr := add32(loadRegister(d.Rs1), d.Imm)
			if misaligned(addr, width) {
				raiseTrap(riscv.CauseStoreMisaligned, addr)
				break
			}
			s.Pending.MemAddr = addr
			issue(addr, loadRegister(d.Rs2), true, width)
			s.State = StateLoadStore
		case riscv.OpImm: // 001_0011: immediate arithmetic and logic
			fn, ok := aluFunc(d)
			if !ok {
				illegal()
				break
			}
			s.ALU.Start(loadRegister(d.Rs1), d.Imm, fn)
			s.State = StateExecute
		case riscv.OpReg: // 011_0011: register arithmetic and logic
			fn, ok := aluFunc(d)
			if !ok {
				illegal()
				break
			}
			s.ALU.Start(loadRegister(d.Rs1), loadRegister(d.Rs2), fn)
			s.State = StateExecute
		case riscv.OpFence: // 000_1111: fence
			// single hart, no caches: nothing to synchronize
			s.State = StatePCAdvance
		case riscv.OpSystem: // 111_0011: environment things
			switch d.Funct3 {
			case riscv.F3Priv:
				if d.Rd != 0 || d.Rs1 != 0 {
					illegal()
					break
				}
				switch d.CSR {
				case riscv.Funct12ECALL:
					raiseTrap(riscv.CauseECallMMode, 0)
				case riscv.Funct12EBREAK:
					raiseTrap(riscv.CauseBreakpoint, ipc)
				case riscv.Funct12MRET:
					if s.InTrap {
						s.State = StateTrapExit
					} else {
						s.State = StatePCAdvance
					}
				case riscv.Funct12WFI:
					// no interrupt sources, waiting completes immediately
					s.State = StatePCAdvance
				default:
					illegal()
				}
			case riscv.F3CSRRW, riscv.F3CSRRS, riscv.F3CSRRC, riscv.F3CSRRWI, riscv.F3CSRRSI, riscv.F3CSRRCI:
				src := U32(d.Rs1) // zero-extended 5 bit immediate
				if iszero32(and32(d.Funct3, toU32(4))) {
					src = loadRegister(d.Rs1)
				}
				s.Pending.CSRAddr = d.CSR
				s.Pending.CSROp = CSROp(and32(d.Funct3, toU32(3)))
				s.Pending.CSRSrc = src
				s.State = StateExecute
			default:
				illegal()
			}
		default: // any other opcode
			illegal()
		}
	case StateExecute:
		switch d.Opcode {
		case riscv.OpBranch:
			r := s.ALU.Result()
			var taken bool
			switch d.Funct3 {
			case riscv.F3BEQ, riscv.F3BGE, riscv.F3BGEU:
				taken = iszero32(r)
			default: // BNE, BLT, BLTU
				taken = !iszero32(r)
			}
			if !taken {
				s.State = StatePCAdvance
				break
			}
			// imm is a signed offset, in multiples of 2 bytes. Nothing to link.
			target := add32(ipc, d.Imm)
			if !iszero32(and32(target, toU32(3))) {
				raiseTrap(riscv.CauseInstructionMisaligned, target)
				break
			}
			setPC(target)
			s.State = StateFetch
		case riscv.OpImm, riscv.OpReg:
			writeRegister(d.Rd, s.ALU.Result())
			s.State = StatePCAdvance
		case riscv.OpSystem:
			p := &s.Pending
			switch p.CSROp {
			case CSRWrite, CSRSet, CSRClear:
			default:
				revertWithCode(riscv.ErrUnknownCSRMode, fmt.Errorf("unknown CSR mode: %d", p.CSROp))
			}
			writeRegister(d.Rd, s.CSR.Access(p.CSRAddr, p.CSROp, p.CSRSrc))
			s.State = StatePCAdvance
		default:
			revertWithCode(riscv.ErrInvalidFSMState, fmt.Errorf("opcode %02x does not execute", d.Opcode))
		}
	case StateLoadStore:
		txn, ok := s.Bus.Retire()
		if !ok {
			break // wait for the data storage
		}
		if !txn.Write {
			var v U32
			switch d.Funct3 {
			case riscv.F3LB:
				v = signExtend32(and32(txn.RData, toU32(0xFF)), toU32(7))
			case riscv.F3LH:
				v = signExtend32(and32(txn.RData, shortToU32(0xFFFF)), toU32(15))
			case riscv.F3LW:
				v = txn.RData
			case riscv.F3LBU:
				v = and32(txn.RData, toU32(0xFF))
			case riscv.F3LHU:
				v = and32(txn.RData, shortToU32(0xFFFF))
			}
			writeRegister(d.Rd, v)
		}
		s.State = StatePCAdvance
	case StatePCAdvance:
		setPC(add32(ipc, toU32(4)))
		s.State = StateFetch
	case StateTrapEnter:
		cause := s.Pending.TrapCause
		s.CSR.EnterTrap(cause, ipc, s.Pending.TrapValue)
		s.InTrap = true
		setPC(s.CSR.TrapVector(cause))
		s.State = StateFetch
	case StateTrapExit:
		setPC(s.CSR.ExitTrap())
		s.InTrap = false
		s.State = StateFetch
	default:
		revertWithCode(riscv.ErrInvalidFSMState, fmt.Errorf("%w: unknown FSM state %d", ErrInvalidState, s.State))
	}

	// registered updates at the end of the clock
	s.Bus.Clock()
	s.CSR.Clock(retired)
	s.Step += 1
	return nil
}
