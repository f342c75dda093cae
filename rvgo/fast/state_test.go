package fast

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/rv32core/rvgo/riscv"
)

func TestStateJSON(t *testing.T) {
	state := newTestState(t,
		lui(1, riscv.RAMBase),
		addi(2, 0, 0x123),
		sw(2, 1, 8),
		csrrw(0, riscv.CSRMscratch, 2),
		lw(3, 1, 8),
	)
	us := boot(t, state)
	runInstructions(t, us, 3)
	// stop in the middle of the load
	for state.State != StateLoadStore {
		require.NoError(t, us.Clock())
	}

	dat, err := json.Marshal(state)
	require.NoError(t, err)
	require.Contains(t, string(dat), `"state":"LOAD_STORE"`)
	require.Contains(t, string(dat), `"mscratch":291`)

	var state2 VMState
	require.NoError(t, json.Unmarshal(dat, &state2))
	require.NoError(t, state2.Validate())
	require.Equal(t, state.EncodeWitness(), state2.EncodeWitness(), "same state witness")

	// both copies continue identically
	us2 := NewInstrumentedState(&state2, nil)
	runInstructions(t, us, 1)
	runInstructions(t, us2, 1)
	require.Equal(t, U32(0x123), state2.Registers[3])
	require.Equal(t, state.EncodeWitness(), state2.EncodeWitness())
}

func TestStateJSONInvalid(t *testing.T) {
	var state VMState
	require.ErrorIs(t, json.Unmarshal([]byte(`{"state":"HALT"}`), &state), ErrInvalidState)
	require.ErrorContains(t, json.Unmarshal([]byte(`{"csr":{"mfoo":1}}`), &state), `unknown CSR "mfoo"`)

	_, err := CPUState(200).MarshalText()
	require.ErrorIs(t, err, ErrInvalidState)
	require.Equal(t, "CPUState(200)", CPUState(200).String())
}

func TestStateWitness(t *testing.T) {
	state := newTestState(t, addi(1, 0, 1))
	w := state.EncodeWitness()
	require.Len(t, w, 389)
	us := boot(t, state)
	require.NotEqual(t, w.StateHash(), state.EncodeWitness().StateHash())

	w = state.EncodeWitness()
	runInstructions(t, us, 1)
	w2 := state.EncodeWitness()
	require.Len(t, w2, 389)
	require.NotEqual(t, w.StateHash(), w2.StateHash())
}

func TestValidate(t *testing.T) {
	state := newTestState(t)
	require.NoError(t, state.Validate())

	state.CSR = nil
	require.ErrorIs(t, state.Validate(), ErrInvalidState)

	state = newTestState(t)
	state.State = CPUState(9)
	require.ErrorIs(t, state.Validate(), ErrInvalidState)

	state = newTestState(t)
	state.Config.ResetCycles = 0
	require.ErrorIs(t, state.Validate(), ErrInvalidState)
}

func TestNewVMState(t *testing.T) {
	cfg := DefaultConfig()
	state, err := NewVMState(cfg)
	require.NoError(t, err)
	require.Equal(t, StateReset, state.State)
	require.Equal(t, cfg.ResetCycles, state.ResetCountdown)
	require.Equal(t, U32(riscv.ROMBase), state.PC)
	require.Equal(t, U32(riscv.MisaRV32I), state.CSR.Read(riscv.CSRMisa))
	require.False(t, state.AtBoundary())

	cfg.RAMSize = riscv.RegionMask + 2
	_, err = NewVMState(cfg)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestLoadROMImage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ROMSize = 8
	_, err := LoadROMImage(bytes.NewReader(program(nop(), nop(), nop())), cfg)
	require.ErrorContains(t, err, "failed to load ROM image")

	state, err := LoadROMImage(bytes.NewReader(program(nop(), ecall)), cfg)
	require.NoError(t, err)
	require.Equal(t, nop(), state.Instr())
	state.PC = 4
	require.Equal(t, ecall, state.Instr())
}
