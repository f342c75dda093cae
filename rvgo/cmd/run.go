package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/pkg/profile"

	cannon "github.com/ethereum-optimism/optimism/cannon/cmd"
	"github.com/ethereum-optimism/optimism/op-service/jsonutil"

	"github.com/ethereum-optimism/rv32core/rvgo/fast"
)

var (
	RunProofAtFlag = &cli.GenericFlag{
		Name:  "proof-at",
		Usage: "step pattern to output proof at: 'never' (default), 'always', '=123' at exactly step 123, '%123' for every 123 steps, 'pc=0x100' at a PC",
		Value: new(StepMatcherFlag),
	}
	RunSnapshotAtFlag = &cli.GenericFlag{
		Name:  "snapshot-at",
		Usage: "step pattern to output snapshots at: 'never' (default), 'always', '=123' at exactly step 123, '%123' for every 123 steps, 'pc=0x100' at a PC",
		Value: new(StepMatcherFlag),
	}
	RunStopAtFlag = &cli.GenericFlag{
		Name:  "stop-at",
		Usage: "step pattern to stop at: 'never' (default), 'always', '=123' at exactly step 123, '%123' for every 123 steps, 'pc=0x100' at a PC",
		Value: new(StepMatcherFlag),
	}
	RunInfoAtFlag = &cli.GenericFlag{
		Name:  "info-at",
		Usage: "step pattern to print info at: 'never' (default), 'always', '=123' at exactly step 123, '%123' for every 123 steps, 'pc=0x100' at a PC",
		Value: MustStepMatcherFlag("%100000"),
	}
	RunStopAtTrapFlag = &cli.BoolFlag{
		Name:  "stop-at-trap",
		Usage: "stop after the first step that takes a trap",
	}
	RunDebugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "log every trap",
	}
)

type Proof struct {
	Step uint64 `json:"step"`
	// Cycles is the number of clock cycles the step took
	Cycles uint64 `json:"cycles"`

	Pre  common.Hash `json:"pre"`
	Post common.Hash `json:"post"`

	StateData hexutil.Bytes `json:"state-data"`
	ProofData hexutil.Bytes `json:"proof-data"`
}

var OutFilePerm = os.FileMode(0o755)

func Run(ctx *cli.Context) error {
	if ctx.Bool(cannon.RunPProfCPU.Name) {
		defer profile.Start(profile.NoShutdownHook, profile.ProfilePath("."), profile.CPUProfile).Stop()
	}

	state, err := jsonutil.LoadJSON[fast.VMState](ctx.Path(cannon.RunInputFlag.Name))
	if err != nil {
		return err
	}
	if err := state.Validate(); err != nil {
		return fmt.Errorf("invalid input state: %w", err)
	}

	lvl := log.LevelInfo
	if ctx.Bool(RunDebugFlag.Name) {
		lvl = log.LevelDebug
	}
	l := Logger(os.Stderr, lvl)

	stopAt := ctx.Generic(RunStopAtFlag.Name).(*StepMatcherFlag).Matcher()
	proofAt := ctx.Generic(RunProofAtFlag.Name).(*StepMatcherFlag).Matcher()
	snapshotAt := ctx.Generic(RunSnapshotAtFlag.Name).(*StepMatcherFlag).Matcher()
	infoAt := ctx.Generic(RunInfoAtFlag.Name).(*StepMatcherFlag).Matcher()
	stopAtTrap := ctx.Bool(RunStopAtTrapFlag.Name)

	var meta *Metadata
	if metaPath := ctx.Path(cannon.RunMetaFlag.Name); metaPath == "" {
		l.Info("no metadata file specified, defaulting to empty metadata")
		meta = &Metadata{Symbols: nil} // provide empty metadata by default
	} else {
		if m, err := jsonutil.LoadJSON[Metadata](metaPath); err != nil {
			return fmt.Errorf("failed to load metadata: %w", err)
		} else {
			meta = m
		}
	}

	us := fast.NewInstrumentedState(state, l)
	proofFmt := ctx.String(cannon.RunProofFmtFlag.Name)
	snapshotFmt := ctx.String(cannon.RunSnapshotFmtFlag.Name)

	start := time.Now()
	startCycle := state.Step

	for step := uint64(0); ; step++ {
		if step%100 == 0 { // don't do the ctx err check (includes lock) too often
			if err := ctx.Context.Err(); err != nil {
				return err
			}
		}

		if infoAt(step, state) {
			delta := time.Since(start)
			l.Info("processing",
				"step", step,
				"cycle", state.Step,
				"pc", HexU32(state.PC),
				"insn", HexU32(state.Instr()),
				"cps", float64(state.Step-startCycle)/(float64(delta)/float64(time.Second)),
				"rom", state.Bus.ROM.Usage(),
				"ram", state.Bus.RAM.Usage(),
				"minstret", state.CSR.Retired(),
				"name", meta.LookupSymbol(state.PC),
			)
		}

		if stopAt(step, state) {
			break
		}

		if snapshotAt(step, state) {
			if err := jsonutil.WriteJSON(fmt.Sprintf(snapshotFmt, step), state, OutFilePerm); err != nil {
				return fmt.Errorf("failed to write state snapshot: %w", err)
			}
		}

		if proofAt(step, state) {
			preStateHash := state.EncodeWitness().StateHash()
			witness, err := us.Step(true)
			if err != nil {
				return fmt.Errorf("failed at proof-gen step %d (PC: %08x): %w", step, state.PC, err)
			}
			postStateHash := state.EncodeWitness().StateHash()
			proof := &Proof{
				Step:      step,
				Cycles:    witness.Cycles,
				Pre:       preStateHash,
				Post:      postStateHash,
				StateData: hexutil.Bytes(witness.State),
				ProofData: witness.EncodeAccesses(),
			}
			if err := jsonutil.WriteJSON(fmt.Sprintf(proofFmt, step), proof, OutFilePerm); err != nil {
				return fmt.Errorf("failed to write proof data: %w", err)
			}
		} else {
			if _, err := us.Step(false); err != nil {
				return fmt.Errorf("failed at step %d (PC: %08x): %w", step, state.PC, err)
			}
		}

		if trap := us.LastTrap(); trap != nil && stopAtTrap {
			l.Info("stopping at trap",
				"step", step,
				"cause", fast.CauseName(trap.Cause),
				"epc", HexU32(trap.EPC),
				"tval", HexU32(trap.TVal),
				"name", meta.LookupSymbol(trap.EPC),
			)
			break
		}
	}

	if err := jsonutil.WriteJSON(ctx.Path(cannon.RunOutputFlag.Name), state, OutFilePerm); err != nil {
		return fmt.Errorf("failed to write state output: %w", err)
	}
	return nil
}

var RunCommand = &cli.Command{
	Name:        "run",
	Usage:       "Run core step(s) and generate proof data.",
	Description: "Run core step(s), one instruction each, and generate proof data. See flags to match when to output a proof, a snapshot, or to stop early.",
	Action:      Run,
	Flags: []cli.Flag{
		cannon.RunInputFlag,
		cannon.RunOutputFlag,
		RunProofAtFlag,
		cannon.RunProofFmtFlag,
		RunSnapshotAtFlag,
		cannon.RunSnapshotFmtFlag,
		RunStopAtFlag,
		RunStopAtTrapFlag,
		cannon.RunMetaFlag,
		RunInfoAtFlag,
		RunDebugFlag,
		cannon.RunPProfCPU,
	},
}
