package cmd

import (
	"fmt"
	"os"

	cannon "github.com/ethereum-optimism/optimism/cannon/cmd"
	"github.com/ethereum-optimism/optimism/op-service/jsonutil"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/rv32core/rvgo/fast"
)

var LoadBinPathFlag = &cli.PathFlag{
	Name:      "path",
	Usage:     "Path to raw little-endian ROM image, executed from address 0",
	TakesFile: true,
	Required:  true,
}

func LoadBin(ctx *cli.Context) error {
	binPath := ctx.Path(LoadBinPathFlag.Name)
	f, err := os.Open(binPath)
	if err != nil {
		return fmt.Errorf("failed to open ROM image %q: %w", binPath, err)
	}
	defer f.Close()
	state, err := fast.LoadROMImage(f, ConfigFromCLI(ctx))
	if err != nil {
		return err
	}
	return jsonutil.WriteJSON[*fast.VMState](ctx.Path(cannon.LoadELFOutFlag.Name), state, OutFilePerm)
}

var LoadBinCommand = &cli.Command{
	Name:        "load-bin",
	Usage:       "Load raw ROM image into core JSON state",
	Description: "Load a raw ROM image into core JSON state, for programs without an ELF container.",
	Action:      LoadBin,
	Flags: append([]cli.Flag{
		LoadBinPathFlag,
		cannon.LoadELFOutFlag,
	}, ConfigFlags...),
}
