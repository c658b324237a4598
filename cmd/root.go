// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/Thermoquad/ubxstat/internal/config"
	"github.com/Thermoquad/ubxstat/internal/logging"
	"github.com/spf13/cobra"
)

var (
	// configPath is the optional YAML config file
	configPath string

	// cfg is the effective configuration, loaded before any command runs
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ubxstat",
	Short: "UBX GNSS Protocol Analyzer",
	Long: `ubxstat - A CLI tool for decoding and monitoring u-blox UBX navigation messages.

Decodes NAV-POSLLH, NAV-DOP, NAV-VELNED and NAV-SOL from a receiver byte
stream, validates their contents and reports framing errors.

Sources:
  Serial:    --port /dev/ttyACM0 [--baud 9600]
  WebSocket: --url ws://host/path [--username user]
  Replay:    --replay capture.cbor [--speed 2]

Settings can also come from a YAML file (--config) or UBXSTAT_* environment
variables, e.g. UBXSTAT_SERIAL_BAUD=115200. Flags win over environment, which
wins over the file.

For WebSocket authentication, the password is read from the UBXSTAT_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:      "1.0.0",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath, cmd.Flags())
		if err != nil {
			return err
		}
		cfg = loaded
		return logging.Initialize(cfg.Log.Level)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	config.RegisterFlags(rootCmd.PersistentFlags())
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
