package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/rv32core/rvgo/cmd"
)

func main() {
	app := cli.NewApp()
	app.Name = "rv32core"
	app.Usage = "Cycle-stepped RV32I machine-mode core"
	app.Description = "Cycle-stepped RV32I machine-mode core, with per-instruction state witnesses and bus access proofs"
	app.Commands = []*cli.Command{
		cmd.LoadELFCommand,
		cmd.LoadBinCommand,
		cmd.RunCommand,
		cmd.WitnessCommand,
	}
	ctx, cancel := context.WithCancel(context.Background())

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for {
			<-c
			cancel()
			fmt.Println("\r\nExiting...")
		}
	}()

	err := app.RunContext(ctx, os.Args)
	if err != nil {
		if errors.Is(err, ctx.Err()) {
			_, _ = fmt.Fprintf(os.Stderr, "command interrupted")
			os.Exit(130)
		} else {
			_, _ = fmt.Fprintf(os.Stderr, "error: %v", err)
			os.Exit(1)
		}
	}
}
