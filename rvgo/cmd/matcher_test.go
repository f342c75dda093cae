package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/rv32core/rvgo/fast"
)

func TestStepMatcher(t *testing.T) {
	st := &fast.VMState{PC: 0x40}

	never := MustStepMatcherFlag("never").Matcher()
	require.False(t, never(0, st))
	require.False(t, new(StepMatcherFlag).Matcher()(0, st), "unset matches nothing")

	always := MustStepMatcherFlag("always").Matcher()
	require.True(t, always(123, st))

	exact := MustStepMatcherFlag("=10").Matcher()
	require.False(t, exact(9, st))
	require.True(t, exact(10, st))
	require.False(t, exact(11, st))

	every := MustStepMatcherFlag("%0x10").Matcher()
	require.True(t, every(0, st))
	require.True(t, every(32, st))
	require.False(t, every(33, st))

	atPC := MustStepMatcherFlag("pc=0x40").Matcher()
	require.True(t, atPC(7, st))
	st.PC = 0x44
	require.False(t, atPC(7, st))
}

func TestStepMatcherInvalid(t *testing.T) {
	for _, pattern := range []string{"sometimes", "=x", "%0", "pc=0x100000000"} {
		require.Error(t, new(StepMatcherFlag).Set(pattern), pattern)
	}
}

func TestStepMatcherClone(t *testing.T) {
	m := MustStepMatcherFlag("=5")
	c := m.Clone().(*StepMatcherFlag)
	require.Equal(t, "=5", c.String())
	require.True(t, c.Matcher()(5, &fast.VMState{}))
}
