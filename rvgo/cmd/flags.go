package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/rv32core/rvgo/fast"
)

var defaultConfig = fast.DefaultConfig()

var (
	ResetCyclesFlag = &cli.UintFlag{
		Name:  "reset-cycles",
		Usage: "clock cycles held in RESET before the first fetch",
		Value: uint(defaultConfig.ResetCycles),
	}
	ROMWaitStatesFlag = &cli.UintFlag{
		Name:  "rom-wait",
		Usage: "wait states of every ROM access",
		Value: uint(defaultConfig.ROMWaitStates),
	}
	RAMWaitStatesFlag = &cli.UintFlag{
		Name:  "ram-wait",
		Usage: "wait states of every RAM access",
		Value: uint(defaultConfig.RAMWaitStates),
	}
	PeripheralWaitStatesFlag = &cli.UintFlag{
		Name:  "peripheral-wait",
		Usage: "wait states of every peripheral register access",
		Value: uint(defaultConfig.PeripheralWaitStates),
	}
	ROMSizeFlag = &cli.UintFlag{
		Name:  "rom-size",
		Usage: "ROM size in bytes",
		Value: uint(defaultConfig.ROMSize),
	}
	RAMSizeFlag = &cli.UintFlag{
		Name:  "ram-size",
		Usage: "RAM size in bytes",
		Value: uint(defaultConfig.RAMSize),
	}
	NoIllegalTrapFlag = &cli.BoolFlag{
		Name:  "no-illegal-trap",
		Usage: "skip over unknown instructions instead of raising an illegal-instruction trap",
	}
)

var ConfigFlags = []cli.Flag{
	ResetCyclesFlag,
	ROMWaitStatesFlag,
	RAMWaitStatesFlag,
	PeripheralWaitStatesFlag,
	ROMSizeFlag,
	RAMSizeFlag,
	NoIllegalTrapFlag,
}

// ConfigFromCLI reads the core configuration flags.
func ConfigFromCLI(ctx *cli.Context) fast.Config {
	return fast.Config{
		ResetCycles:            fast.U32(ctx.Uint(ResetCyclesFlag.Name)),
		ROMWaitStates:          fast.U32(ctx.Uint(ROMWaitStatesFlag.Name)),
		RAMWaitStates:          fast.U32(ctx.Uint(RAMWaitStatesFlag.Name)),
		PeripheralWaitStates:   fast.U32(ctx.Uint(PeripheralWaitStatesFlag.Name)),
		ROMSize:                fast.U32(ctx.Uint(ROMSizeFlag.Name)),
		RAMSize:                fast.U32(ctx.Uint(RAMSizeFlag.Name)),
		IllegalInstructionTrap: !ctx.Bool(NoIllegalTrapFlag.Name),
	}
}
