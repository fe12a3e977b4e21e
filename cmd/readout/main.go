// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/relabs-tech/accel_readout/internal/app"
	"github.com/relabs-tech/accel_readout/internal/config"
)

func main() {
	cliApp := &cli.App{
		Name:  "readout",
		Usage: "show accelerometer readings while the readout is visible",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: "./readout_config.txt",
				Usage: "path to configuration file",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Action: run,
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(c *cli.Context) error {
	zcfg := zap.NewDevelopmentConfig()
	if !c.Bool("debug") {
		zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	base, err := zcfg.Build()
	if err != nil {
		return err
	}
	defer base.Sync()
	logger := base.Sugar()

	logger.Info("starting accelerometer readout")

	// Load configuration
	if err := config.InitGlobal(c.String("config")); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.RunReadout(ctx, config.Get(), logger)
}
