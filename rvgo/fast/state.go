package fast

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ethereum-optimism/rv32core/rvgo/riscv"
)

// CPUState is the state of the control FSM.
type CPUState uint8

const (
	StateReset CPUState = iota
	StateFetch
	StateDecode
	StateExecute
	StateLoadStore
	StatePCAdvance
	StateTrapEnter
	StateTrapExit
)

var cpuStateNames = [...]string{
	StateReset:     "RESET",
	StateFetch:     "FETCH",
	StateDecode:    "DECODE",
	StateExecute:   "EXECUTE",
	StateLoadStore: "LOAD_STORE",
	StatePCAdvance: "PC_ADVANCE",
	StateTrapEnter: "TRAP_ENTER",
	StateTrapExit:  "TRAP_EXIT",
}

var ErrInvalidState = errors.New("invalid VM state")

func (s CPUState) String() string {
	if int(s) < len(cpuStateNames) {
		return cpuStateNames[s]
	}
	return fmt.Sprintf("CPUState(%d)", uint8(s))
}

func (s CPUState) MarshalText() ([]byte, error) {
	if int(s) >= len(cpuStateNames) {
		return nil, fmt.Errorf("%w: unknown FSM state %d", ErrInvalidState, uint8(s))
	}
	return []byte(cpuStateNames[s]), nil
}

func (s *CPUState) UnmarshalText(text []byte) error {
	for i, name := range cpuStateNames {
		if name == string(text) {
			*s = CPUState(i)
			return nil
		}
	}
	return fmt.Errorf("%w: unknown FSM state %q", ErrInvalidState, text)
}

// Config holds the static parameters of a core.
type Config struct {
	// ResetCycles is the number of clocks spent in RESET before the first fetch
	ResetCycles U32 `json:"resetCycles"`

	ROMWaitStates        U32 `json:"romWaitStates"`
	RAMWaitStates        U32 `json:"ramWaitStates"`
	PeripheralWaitStates U32 `json:"peripheralWaitStates"`

	ROMSize U32 `json:"romSize"`
	RAMSize U32 `json:"ramSize"`

	// IllegalInstructionTrap raises an illegal-instruction trap on unknown instructions.
	// When disabled, unknown instructions advance the PC without effect.
	IllegalInstructionTrap bool `json:"illegalInstructionTrap"`
}

func DefaultConfig() Config {
	return Config{
		ResetCycles:            3,
		ROMWaitStates:          2, // SPI flash style delayed word reads
		RAMWaitStates:          0,
		PeripheralWaitStates:   1,
		ROMSize:                1 << 20,
		RAMSize:                1 << 16,
		IllegalInstructionTrap: true,
	}
}

func (c *Config) Check() error {
	if c.ResetCycles == 0 {
		return fmt.Errorf("%w: at least one reset cycle is required", ErrInvalidState)
	}
	if c.ROMSize > riscv.RegionMask+1 || c.RAMSize > riscv.RegionMask+1 {
		return fmt.Errorf("%w: storage size exceeds region size", ErrInvalidState)
	}
	return nil
}

// Pending is the context of the instruction in flight.
type Pending struct {
	Instr Instruction `json:"instr"`
	// IPC is the address the instruction was fetched from
	IPC U32 `json:"ipc"`

	// CSR access latched at decode, performed at execute
	CSRAddr U32   `json:"csrAddr"`
	CSROp   CSROp `json:"csrOp"`
	CSRSrc  U32   `json:"csrSrc"`

	TrapCause U32 `json:"trapCause"`
	TrapValue U32 `json:"trapValue"`

	// effective address of a load or store
	MemAddr U32 `json:"memAddr"`
}

type VMState struct {
	Config Config `json:"config"`

	State CPUState `json:"state"`
	PC    U32      `json:"pc"`

	Registers Registers `json:"registers"`
	CSR       *CSRFile  `json:"csr"`
	ALU       ALU       `json:"alu"`

	Pending Pending `json:"pending"`
	InTrap  bool    `json:"inTrap"`

	ResetCountdown U32 `json:"resetCountdown"`

	Bus *Bus `json:"bus"`

	// Step counts clock cycles
	Step uint64 `json:"step"`
}

func NewVMState(cfg Config) (*VMState, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return &VMState{
		Config:         cfg,
		State:          StateReset,
		PC:             riscv.ROMBase,
		CSR:            NewCSRFile(),
		ResetCountdown: cfg.ResetCycles,
		Bus:            NewBus(cfg),
	}, nil
}

// Validate checks a state that was loaded from outside.
func (state *VMState) Validate() error {
	if state.CSR == nil || state.Bus == nil || state.Bus.ROM == nil || state.Bus.RAM == nil || state.Bus.Peripherals == nil {
		return fmt.Errorf("%w: incomplete state", ErrInvalidState)
	}
	if int(state.State) >= len(cpuStateNames) {
		return fmt.Errorf("%w: unknown FSM state %d", ErrInvalidState, state.State)
	}
	return state.Config.Check()
}

// AtBoundary reports whether the core is about to fetch a new instruction.
func (state *VMState) AtBoundary() bool {
	return state.State == StateFetch && !state.Bus.Busy()
}

// Instr returns the word at the PC, read directly from the backing storage.
func (state *VMState) Instr() U32 {
	return state.Bus.Peek(state.PC)
}

type StateWitness []byte

func (sw StateWitness) StateHash() common.Hash {
	return crypto.Keccak256Hash(sw)
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// EncodeWitness packs the full core state, committing to storage by merkle root, big endian.
func (state *VMState) EncodeWitness() StateWitness {
	out := make([]byte, 0, 512)
	out = binary.BigEndian.AppendUint64(out, state.Step)
	out = binary.BigEndian.AppendUint32(out, state.PC)
	out = append(out, byte(state.State), boolByte(state.InTrap), boolByte(state.Config.IllegalInstructionTrap))
	out = binary.BigEndian.AppendUint32(out, state.ResetCountdown)
	for _, r := range state.Registers {
		out = binary.BigEndian.AppendUint32(out, r)
	}
	out = state.CSR.encodeWitness(out)

	out = binary.BigEndian.AppendUint32(out, state.ALU.A)
	out = binary.BigEndian.AppendUint32(out, state.ALU.B)
	out = append(out, byte(state.ALU.Fn))

	p := &state.Pending
	out = binary.BigEndian.AppendUint32(out, p.Instr.Word)
	out = binary.BigEndian.AppendUint32(out, p.IPC)
	out = binary.BigEndian.AppendUint32(out, p.CSRAddr)
	out = append(out, byte(p.CSROp))
	out = binary.BigEndian.AppendUint32(out, p.CSRSrc)
	out = binary.BigEndian.AppendUint32(out, p.TrapCause)
	out = binary.BigEndian.AppendUint32(out, p.TrapValue)
	out = binary.BigEndian.AppendUint32(out, p.MemAddr)

	bus := state.Bus
	txn := &bus.Txn
	out = binary.BigEndian.AppendUint32(out, txn.Addr)
	out = binary.BigEndian.AppendUint32(out, txn.WData)
	out = binary.BigEndian.AppendUint32(out, txn.RData)
	out = append(out, boolByte(txn.Write), byte(txn.Width), boolByte(txn.Cyc), boolByte(txn.Ack))
	out = binary.BigEndian.AppendUint32(out, txn.Remaining)
	for _, w := range bus.WaitStates {
		out = binary.BigEndian.AppendUint32(out, w)
	}
	romRoot := bus.ROM.MerkleRoot()
	ramRoot := bus.RAM.MerkleRoot()
	periphHash := bus.Peripherals.Hash()
	out = append(out, romRoot[:]...)
	out = append(out, ramRoot[:]...)
	out = append(out, periphHash[:]...)
	return out
}
