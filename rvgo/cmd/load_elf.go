package cmd

import (
	"debug/elf"
	"fmt"

	cannon "github.com/ethereum-optimism/optimism/cannon/cmd"
	"github.com/ethereum-optimism/optimism/op-service/jsonutil"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/rv32core/rvgo/fast"
)

var LoadELFMetaFlag = &cli.PathFlag{
	Name:      "meta",
	Usage:     "Write metadata file, for symbol lookup during program execution. None if empty.",
	TakesFile: true,
	Value:     "meta.json",
}

func LoadELF(ctx *cli.Context) error {
	elfPath := ctx.Path(cannon.LoadELFPathFlag.Name)
	elfProgram, err := elf.Open(elfPath)
	if err != nil {
		return fmt.Errorf("failed to open ELF file %q: %w", elfPath, err)
	}
	defer elfProgram.Close()
	if elfProgram.Machine != elf.EM_RISCV {
		return fmt.Errorf("ELF is not RISC-V, but got %q", elfProgram.Machine.String())
	}
	state, err := fast.LoadELF(elfProgram, ConfigFromCLI(ctx))
	if err != nil {
		return fmt.Errorf("failed to load ELF data into VM state: %w", err)
	}
	meta, err := MakeMetadata(elfProgram)
	if err != nil {
		return fmt.Errorf("failed to compute program metadata: %w", err)
	}
	if err := jsonutil.WriteJSON[*Metadata](ctx.Path(LoadELFMetaFlag.Name), meta, OutFilePerm); err != nil {
		return fmt.Errorf("failed to output metadata: %w", err)
	}
	return jsonutil.WriteJSON[*fast.VMState](ctx.Path(cannon.LoadELFOutFlag.Name), state, OutFilePerm)
}

var LoadELFCommand = &cli.Command{
	Name:        "load-elf",
	Usage:       "Load ELF file into core JSON state",
	Description: "Load a 32 bit RISC-V ELF file into core JSON state. Segments are placed at their load address, and at their run address if different.",
	Action:      LoadELF,
	Flags: append([]cli.Flag{
		cannon.LoadELFPathFlag,
		cannon.LoadELFOutFlag,
		LoadELFMetaFlag,
	}, ConfigFlags...),
}
