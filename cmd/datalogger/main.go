// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"fmt"
	"os"

	"github.com/relabs-tech/imu_logger/internal/app"
	"github.com/relabs-tech/imu_logger/internal/config"
	"github.com/relabs-tech/imu_logger/internal/errors"
	"github.com/relabs-tech/imu_logger/internal/logger"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// exitReprogram tells the supervisor to hand the device over for flashing.
const exitReprogram = 3

var (
	configPath string
	debug      bool
	verbose    bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.HasCode(err, errors.ErrReprogram) {
			os.Exit(exitReprogram)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "datalogger",
		Short:         "IMU data logger: samples a motion sensor into CSV files on removable storage",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(debug, verbose, logger.IsService())
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to KEY=VALUE configuration file (defaults and DATALOGGER_* environment when empty)")
	root.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable info logging")

	root.AddCommand(newRunCmd(), newInspectCmd(), newWebCmd())
	return root
}

func loadConfig() (*config.Config, error) {
	if err := config.InitGlobal(configPath); err != nil {
		logger.Error().Err(err).Str("path", configPath).Msg("failed to load config")
		return nil, err
	}
	return config.Get(), nil
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the control loop until interrupted or a reprogram request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			err = app.RunLogger(cfg)
			switch {
			case err == nil:
				return nil
			case errors.HasCode(err, errors.ErrReprogram):
				logger.Warn().Msg("leaving for reprogram mode")
			default:
				logger.Error().Err(err).Msg("data logger stopped")
			}
			return err
		},
	}
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.csv>",
		Short: "Validate a log file and print per-column statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.RunInspect(afero.NewOsFs(), args[0], cmd.OutOrStdout()); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", args[0], err)
				return err
			}
			return nil
		},
	}
}

func newWebCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "web",
		Short: "Serve the live status of a logger from its MQTT telemetry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := app.RunWeb(cfg); err != nil {
				logger.Error().Err(err).Msg("web server stopped")
				return err
			}
			return nil
		},
	}
}
