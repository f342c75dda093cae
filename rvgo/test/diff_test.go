package test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/rv32core/rvgo/fast"
	"github.com/ethereum-optimism/rv32core/rvgo/riscv"
	"github.com/ethereum-optimism/rv32core/rvgo/slow"
)

func FuzzParseTypeI(f *testing.F) {
	f.Fuzz(func(t *testing.T, instr uint32) {
		var slowOutput = slow.ParseImmTypeI(slow.NewU32(instr))
		var fastOutput = fast.ParseImmTypeI(instr)

		require.Equal(t, slow.Val(slowOutput), fastOutput)
	})
}
func FuzzParseShamt(f *testing.F) {
	f.Fuzz(func(t *testing.T, instr uint32) {
		var slowOutput = slow.ParseShamt(slow.NewU32(instr))
		var fastOutput = fast.ParseShamt(instr)

		require.Equal(t, slow.Val(slowOutput), fastOutput)
	})
}
func FuzzParseTypeS(f *testing.F) {
	f.Fuzz(func(t *testing.T, instr uint32) {
		var slowOutput = slow.ParseImmTypeS(slow.NewU32(instr))
		var fastOutput = fast.ParseImmTypeS(instr)

		require.Equal(t, slow.Val(slowOutput), fastOutput)
	})
}
func FuzzParseTypeB(f *testing.F) {
	f.Fuzz(func(t *testing.T, instr uint32) {
		var slowOutput = slow.ParseImmTypeB(slow.NewU32(instr))
		var fastOutput = fast.ParseImmTypeB(instr)

		require.Equal(t, slow.Val(slowOutput), fastOutput)
	})
}
func FuzzParseTypeU(f *testing.F) {
	f.Fuzz(func(t *testing.T, instr uint32) {
		var slowOutput = slow.ParseImmTypeU(slow.NewU32(instr))
		var fastOutput = fast.ParseImmTypeU(instr)

		require.Equal(t, slow.Val(slowOutput), fastOutput)
	})
}
func FuzzParseTypeJ(f *testing.F) {
	f.Fuzz(func(t *testing.T, instr uint32) {
		var slowOutput = slow.ParseImmTypeJ(slow.NewU32(instr))
		var fastOutput = fast.ParseImmTypeJ(instr)

		require.Equal(t, slow.Val(slowOutput), fastOutput)
	})
}
func FuzzParseOpcode(f *testing.F) {
	f.Fuzz(func(t *testing.T, instr uint32) {
		var slowOutput = slow.ParseOpcode(slow.NewU32(instr))
		var fastOutput = fast.ParseOpcode(instr)

		require.Equal(t, slow.Val(slowOutput), fastOutput)
	})
}
func FuzzParseRd(f *testing.F) {
	f.Fuzz(func(t *testing.T, instr uint32) {
		var slowOutput = slow.ParseRd(slow.NewU32(instr))
		var fastOutput = fast.ParseRd(instr)

		require.Equal(t, slow.Val(slowOutput), fastOutput)
	})
}
func FuzzParseFunct3(f *testing.F) {
	f.Fuzz(func(t *testing.T, instr uint32) {
		var slowOutput = slow.ParseFunct3(slow.NewU32(instr))
		var fastOutput = fast.ParseFunct3(instr)

		require.Equal(t, slow.Val(slowOutput), fastOutput)
	})
}
func FuzzParseRs1(f *testing.F) {
	f.Fuzz(func(t *testing.T, instr uint32) {
		var slowOutput = slow.ParseRs1(slow.NewU32(instr))
		var fastOutput = fast.ParseRs1(instr)

		require.Equal(t, slow.Val(slowOutput), fastOutput)
	})
}
func FuzzParseRs2(f *testing.F) {
	f.Fuzz(func(t *testing.T, instr uint32) {
		var slowOutput = slow.ParseRs2(slow.NewU32(instr))
		var fastOutput = fast.ParseRs2(instr)

		require.Equal(t, slow.Val(slowOutput), fastOutput)
	})
}
func FuzzParseFunct7(f *testing.F) {
	f.Fuzz(func(t *testing.T, instr uint32) {
		var slowOutput = slow.ParseFunct7(slow.NewU32(instr))
		var fastOutput = fast.ParseFunct7(instr)

		require.Equal(t, slow.Val(slowOutput), fastOutput)
	})
}
func FuzzParseFunct12(f *testing.F) {
	f.Fuzz(func(t *testing.T, instr uint32) {
		var slowOutput = slow.ParseFunct12(slow.NewU32(instr))
		var fastOutput = fast.ParseFunct12(instr)

		require.Equal(t, slow.Val(slowOutput), fastOutput)
	})
}

func FuzzCompute(f *testing.F) {
	f.Add(uint8(riscv.ALUAdd), uint32(0xFFFF_FFFF), uint32(1))
	f.Add(uint8(riscv.ALUSub), uint32(0), uint32(1))
	f.Add(uint8(riscv.ALUSra), uint32(0x8000_0000), uint32(31))
	f.Add(uint8(riscv.ALUSlt), uint32(0xFFFF_FFFF), uint32(0))
	f.Fuzz(func(t *testing.T, fn uint8, a uint32, b uint32) {
		fn &= 0xF
		var slowOutput = slow.Compute(slow.NewU32(uint32(fn)), slow.NewU32(a), slow.NewU32(b))
		var fastOutput = fast.Compute(uint32(fn), a, b)

		require.Equal(t, slow.Val(slowOutput), fastOutput, "fn %d, a %08x, b %08x", fn, a, b)
	})
}

func FuzzSignExtend(f *testing.F) {
	f.Fuzz(func(t *testing.T, v uint32, bit uint8) {
		bit &= 31
		var slowOutput = slow.SignExtend(slow.NewU32(v), slow.NewU32(uint32(bit)))
		var fastOutput = uint32(int32(v<<(31-bit)) >> (31 - bit))

		require.Equal(t, fastOutput, slow.Val(slowOutput))
	})
}

func TestComputeScenarios(t *testing.T) {
	// unsigned wraparound
	require.Equal(t, uint32(0), slow.Val(slow.Compute(slow.NewU32(riscv.ALUAdd), slow.NewU32(0xFFFF_FFFF), slow.NewU32(1))))
	require.Equal(t, uint32(0), fast.Compute(riscv.ALUAdd, 0xFFFF_FFFF, 1))
	// unassigned selectors
	for fn := uint32(11); fn < 16; fn++ {
		require.Equal(t, uint32(0), slow.Val(slow.Compute(slow.NewU32(fn), slow.NewU32(3), slow.NewU32(4))))
		require.Equal(t, uint32(0), fast.Compute(fn, 3, 4))
	}
}
