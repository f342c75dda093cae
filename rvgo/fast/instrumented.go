package fast

import (
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/rv32core/rvgo/riscv"
)

type InstrumentedState struct {
	state *VMState

	log log.Logger

	proofEnabled bool
	accesses     []BusAccess

	lastTrap *Trap
}

func NewInstrumentedState(state *VMState, logger log.Logger) *InstrumentedState {
	m := &InstrumentedState{
		state: state,
		log:   logger,
	}
	state.Bus.SetAccessHook(m.trackAccess)
	return m
}

// Step runs clock cycles until the core reaches the next instruction boundary.
// With proof enabled, the witness carries the pre-state and every bus access of the step.
func (m *InstrumentedState) Step(proof bool) (wit *StepWitness, err error) {
	m.proofEnabled = proof
	m.accesses = m.accesses[:0]
	m.lastTrap = nil

	if proof {
		wit = &StepWitness{
			State: m.state.EncodeWitness(), // we need the pre-state as wit-ness
		}
	}

	var cycles uint64
	for {
		if err = m.clock(); err != nil {
			return nil, err
		}
		cycles++
		if m.state.AtBoundary() {
			break
		}
	}

	if proof {
		wit.Cycles = cycles
		wit.Accesses = append(make([]BusAccess, 0, len(m.accesses)), m.accesses...)
	}
	return
}

// Clock runs a single clock cycle.
func (m *InstrumentedState) Clock() error {
	m.lastTrap = nil
	return m.clock()
}

func (m *InstrumentedState) clock() error {
	s := m.state
	trapping := s.State == StateTrapEnter
	var cause, epc, tval U32
	if trapping {
		cause, epc, tval = s.Pending.TrapCause, s.Pending.IPC, s.Pending.TrapValue
	}
	if err := Step(s); err != nil {
		return fmt.Errorf("cycle %d (state %s, PC: %08x): %w", s.Step, s.State, s.PC, err)
	}
	if trapping {
		m.lastTrap = &Trap{Cause: cause, EPC: epc, TVal: tval, Vector: s.PC}
		if m.log != nil {
			m.log.Debug("trap", "cause", CauseName(cause), "epc", fmt.Sprintf("%08x", epc),
				"tval", fmt.Sprintf("%08x", tval), "vector", fmt.Sprintf("%08x", s.PC))
		}
	}
	return nil
}

// trackAccess records a retired transaction, with a merkle proof of storage-backed words.
func (m *InstrumentedState) trackAccess(txn Transaction) {
	if !m.proofEnabled {
		return
	}
	a := BusAccess{Txn: txn}
	if st, ok := m.state.Bus.storage(txn.Addr); ok {
		proof := st.MerkleProof(and32(txn.Addr, riscv.RegionMask))
		a.Proof = proof[:]
	}
	m.accesses = append(m.accesses, a)
}

// LastTrap returns the trap taken during the last step, if any.
func (m *InstrumentedState) LastTrap() *Trap {
	return m.lastTrap
}

func (m *InstrumentedState) State() *VMState {
	return m.state
}
