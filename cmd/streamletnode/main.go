// Copyright 2026 The streamlet Authors
// This file is part of the streamlet library.
//
// The streamlet library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The streamlet library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the streamlet library. If not, see <http://www.gnu.org/licenses/>.

// Command streamletnode launches a single participant of the network:
// which participant this process is, where its config lives, and how
// verbose to log.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ground-x/streamlet/config"
	"github.com/ground-x/streamlet/log"
	"github.com/ground-x/streamlet/node"
	"gopkg.in/urfave/cli.v1"
)

var logger = log.NewModuleLogger(log.CmdModule)

var (
	idFlag = cli.UintFlag{
		Name:  "id",
		Usage: "this process's node id, must appear in the config's node roster",
	}
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to the node's TOML configuration file",
		Value: "streamlet.toml",
	}
	verbosityFlag = cli.StringFlag{
		Name:  "verbosity",
		Usage: "log level: crit, error, warn, info, debug, trace",
		Value: "info",
	}
	genIntervalFlag = cli.DurationFlag{
		Name:  "gen-interval",
		Usage: "interval between synthetic transactions this node generates; 0 disables, defaults to half an epoch",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "streamletnode"
	app.Usage = "run one participant of a Streamlet consensus network"
	app.Flags = []cli.Flag{idFlag, configFlag, verbosityFlag, genIntervalFlag}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	log.SetLevel(ctx.String(verbosityFlag.Name))

	if !ctx.IsSet(idFlag.Name) {
		return cli.NewExitError("streamletnode: --id is required", 1)
	}
	id := uint32(ctx.Uint(idFlag.Name))

	cfg, err := config.Load(ctx.String(configFlag.Name))
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("streamletnode: %v", err), 1)
	}

	n, err := node.New(id, cfg)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("streamletnode: %v", err), 1)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig)
		cancel()
	}()

	genInterval := cfg.EpochDuration() / 2
	if ctx.IsSet(genIntervalFlag.Name) {
		genInterval = ctx.Duration(genIntervalFlag.Name)
	}

	if err := n.Start(runCtx, cfg.ReconnectEvery(), genInterval); err != nil {
		return cli.NewExitError(fmt.Sprintf("streamletnode: %v", err), 1)
	}

	logger.Info("node running", "id", id, "state", n.State())
	<-runCtx.Done()
	n.Stop()
	logger.Info("node stopped", "id", id)
	return nil
}
