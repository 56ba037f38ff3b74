// Copyright (c) 2025 The MeridianStake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// poolsim runs the liquid-staking engine against simulated collaborators:
// an epoch ticker stands in for the staking system, delegation contracts
// accrue synthetic rewards and random users deposit and withdraw. The
// read-only API is served while the simulation runs.
package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	cli "gopkg.in/urfave/cli.v1"
)

var version = "1.0.0"

var logger = log.New("pkg", "poolsim")

func main() {
	app := cli.App{
		Version:   version,
		Name:      "poolsim",
		Usage:     "liquid-staking pool simulator",
		Copyright: "2025 The MeridianStake developers",
		Flags: []cli.Flag{
			configFlag,
			apiAddrFlag,
			apiCorsFlag,
			verbosityFlag,
			enableReqLoggerFlag,
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	defer logger.Info("exited")
	initLogger(ctx)

	cfg, err := loadConfig(ctx.String(configFlag.Name))
	if err != nil {
		return err
	}

	sim, err := newSimulation(cfg)
	if err != nil {
		return err
	}
	return sim.Run(ctx.String(apiAddrFlag.Name), ctx.String(apiCorsFlag.Name), ctx.Bool(enableReqLoggerFlag.Name))
}

func initLogger(ctx *cli.Context) {
	level := log.FromLegacyLevel(ctx.Int(verbosityFlag.Name))
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, level, true)))
}
