// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dotandev/retrace/internal/diag"
	"github.com/dotandev/retrace/internal/mappings"
	"github.com/spf13/cobra"
)

var (
	checkFormatFlag string
	checkJSONFlag   bool
)

var checkCmd = &cobra.Command{
	Use:   "check FILE...",
	Short: "Validate mapping files",
	Long: `Parse ProGuard or Tiny v2 mapping files and report every error found,
with the offending line and a caret under the failing span. Parsing does
not stop at the first error.`,
	Example: `  # Check a Mojang mapping file
  retrace check client.txt

  # Check several files, JSON output
  retrace check --json mappings.tiny client.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dialect, err := mappings.ParseDialect(checkFormatFlag)
		if err != nil {
			return err
		}

		if checkJSONFlag {
			return checkJSON(cmd, args)
		}

		out := cmd.OutOrStdout()
		printer := diag.NewPrinter(cmd.ErrOrStderr())
		failed := 0
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read mapping file: %w", err)
			}
			src := string(data)

			d := dialect
			if d == mappings.DialectAuto {
				d = mappings.Detect(src)
			}
			table, err := mappings.Parse(src, mappings.ParseOptions{File: path, Dialect: d})
			if err != nil {
				printer.AddSource(path, src)
				n := printer.Print(err)
				fmt.Fprintf(out, "%s: %d error(s)\n", path, n)
				failed++
				continue
			}
			fmt.Fprintf(out, "%s: valid %s mappings, %d entries\n", path, d, table.Len())
		}

		if failed > 0 {
			return ErrReported
		}
		return nil
	},
}

func checkJSON(cmd *cobra.Command, paths []string) error {
	reports := make([]*diag.Report, 0, len(paths))
	valid := true
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read mapping file: %w", err)
		}
		r, err := diag.CheckMappings(path, string(data), checkFormatFlag)
		if err != nil {
			return err
		}
		valid = valid && r.Valid
		reports = append(reports, r)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(reports); err != nil {
		return err
	}
	if !valid {
		return ErrReported
	}
	return nil
}

func init() {
	checkCmd.Flags().StringVar(&checkFormatFlag, "format", "auto", "Mapping format (auto, proguard, tiny)")
	checkCmd.Flags().BoolVar(&checkJSONFlag, "json", false, "Print one JSON report per file")

	rootCmd.AddCommand(checkCmd)
}
