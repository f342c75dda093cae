package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/rv32core/rvgo/fast"
)

// StepMatcher selects instruction steps. step counts the instructions run so far.
type StepMatcher func(step uint64, st *fast.VMState) bool

// StepMatcherFlag parses a step pattern:
// 'never', 'always', '=123' at exactly step 123, '%123' every 123 steps, or 'pc=0x1234' whenever the PC is 0x1234.
type StepMatcherFlag struct {
	repr    string
	matcher StepMatcher
}

var _ cli.Generic = (*StepMatcherFlag)(nil)

func MustStepMatcherFlag(pattern string) *StepMatcherFlag {
	out := new(StepMatcherFlag)
	if err := out.Set(pattern); err != nil {
		panic(err)
	}
	return out
}

func (m *StepMatcherFlag) Set(value string) error {
	m.repr = value
	switch {
	case value == "" || value == "never":
		m.matcher = func(step uint64, st *fast.VMState) bool {
			return false
		}
	case value == "always":
		m.matcher = func(step uint64, st *fast.VMState) bool {
			return true
		}
	case strings.HasPrefix(value, "="):
		when, err := strconv.ParseUint(value[1:], 0, 64)
		if err != nil {
			return fmt.Errorf("failed to parse step number: %w", err)
		}
		m.matcher = func(step uint64, st *fast.VMState) bool {
			return step == when
		}
	case strings.HasPrefix(value, "%"):
		when, err := strconv.ParseUint(value[1:], 0, 64)
		if err != nil {
			return fmt.Errorf("failed to parse step interval: %w", err)
		}
		if when == 0 {
			return fmt.Errorf("step interval must be positive")
		}
		m.matcher = func(step uint64, st *fast.VMState) bool {
			return step%when == 0
		}
	case strings.HasPrefix(value, "pc="):
		pc, err := strconv.ParseUint(value[3:], 0, 32)
		if err != nil {
			return fmt.Errorf("failed to parse PC: %w", err)
		}
		m.matcher = func(step uint64, st *fast.VMState) bool {
			return st.PC == fast.U32(pc)
		}
	default:
		return fmt.Errorf("unrecognized step matcher: %q", value)
	}
	return nil
}

func (m *StepMatcherFlag) String() string {
	return m.repr
}

func (m *StepMatcherFlag) Matcher() StepMatcher {
	if m.matcher == nil { // no pattern set
		return func(step uint64, st *fast.VMState) bool {
			return false
		}
	}
	return m.matcher
}

func (m *StepMatcherFlag) Clone() any {
	var out StepMatcherFlag
	if err := out.Set(m.repr); err != nil {
		panic(fmt.Errorf("invalid repr: %w", err))
	}
	return &out
}
