// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"log/slog"

	"github.com/dotandev/retrace/internal/config"
	"github.com/dotandev/retrace/internal/logger"
	"github.com/spf13/cobra"
)

// Global flag variables
var (
	verboseFlag bool
	configFlag  string
)

// cfg is the configuration loaded before any subcommand runs.
var cfg = config.DefaultConfig()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "retrace",
	Short: "Deobfuscate Minecraft Java stack traces",
	Long: `Retrace rewrites the class, method and field names of a Java stack trace
from one Minecraft naming scheme to another: obfuscated (obf), Mojang's
official names (mojang) or Fabric intermediary names (fabric).

Mapping files are downloaded on first use, verified against their published
hashes and cached for later runs. Your own ProGuard or Tiny v2 files can be
used instead.

Examples:
  retrace remap 1.20.1 obf mojang < crash.txt       Remap a crash log
  retrace remap 1.20.1 fabric mojang --file log.txt  Remap a Fabric trace
  retrace remap --mapping client.txt < crash.txt     Use a local mapping file
  retrace check client.txt                           Validate a mapping file
  retrace cache status                               Check cache usage

Get started with 'retrace remap --help'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = loaded

		if lvl, ok := logger.ParseLevel(cfg.LogLevel); ok {
			logger.SetLevel(lvl)
		}
		if verboseFlag {
			logger.SetLevel(slog.LevelDebug)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func loadConfig() (*config.Config, error) {
	if configFlag == "" {
		return config.Load()
	}
	return config.LoadPath(configFlag)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx available to every
// subcommand through cmd.Context().
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(
		&verboseFlag,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)

	rootCmd.PersistentFlags().StringVar(
		&configFlag,
		"config",
		"",
		"Path to a config file (default $XDG_CONFIG_HOME/retrace/config.json)",
	)
}
