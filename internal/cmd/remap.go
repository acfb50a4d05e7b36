// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dotandev/retrace/internal/diag"
	"github.com/dotandev/retrace/internal/errors"
	"github.com/dotandev/retrace/internal/logger"
	"github.com/dotandev/retrace/internal/mappings"
	"github.com/dotandev/retrace/internal/names"
	"github.com/dotandev/retrace/internal/provider"
	"github.com/dotandev/retrace/internal/remap"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	remapFileFlag      string
	remapMappingFlags  []string
	remapFormatFlag    string
	remapReverseFlag   bool
	remapFromNSFlag    string
	remapToNSFlag      string
	remapFileNamesFlag bool
	remapJoinFlag      bool
	remapSummaryFlag   string
)

var warnColor = color.New(color.FgYellow)

var remapCmd = &cobra.Command{
	Use:   "remap [<version> <from> <to>]",
	Short: "Rewrite the names in a stack trace",
	Long: `Read a Java stack trace from stdin (or --file) and print it with class,
method and field names rewritten from one namespace to another.

Namespaces:
  obf     names in the shipped game jar
  mojang  Mojang's official mappings
  fabric  Fabric intermediary names

Mappings for <version> are downloaded and cached on first use. With
--mapping the given files are used instead and no version is needed; the
first file is the base and later files overlay it.

A summary of unresolved symbols is written to stderr.`,
	Example: `  # Remap a vanilla crash log
  retrace remap 1.20.1 obf mojang < crash.txt

  # Remap a Fabric trace in place of intermediary names
  retrace remap 1.20.1 fabric mojang --file latest.log

  # Use a local ProGuard file, obfuscated names first
  retrace remap --mapping client.txt --file crash.txt

  # Machine readable summary
  retrace remap 1.20.1 obf mojang --summary json < crash.txt`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(remapMappingFlags) > 0 {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(3)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		switch remapSummaryFlag {
		case "text", "json", "none":
		default:
			return errors.WrapValidationError(fmt.Sprintf("invalid --summary %q: must be text, json or none", remapSummaryFlag))
		}

		src, err := readTrace(cmd)
		if err != nil {
			return err
		}

		opts := remap.Options{
			RemapFileNames: remapFileNamesFlag || cfg.RemapFileNames,
			JoinAmbiguous:  remapJoinFlag || cfg.JoinAmbiguous,
		}

		printer := diag.NewPrinter(cmd.ErrOrStderr())
		var chain remap.Chain
		if len(remapMappingFlags) > 0 {
			chain, err = localChain(printer, opts)
		} else {
			chain, err = remoteChain(cmd, args, opts)
		}
		if err != nil {
			return err
		}

		out, summary, err := remap.Text(chain, src)
		if err != nil {
			printer.AddSource("", src)
			printer.Print(err)
			return ErrReported
		}

		fmt.Fprint(cmd.OutOrStdout(), out)
		return printSummary(cmd.ErrOrStderr(), summary)
	},
}

func readTrace(cmd *cobra.Command) (string, error) {
	var (
		data []byte
		err  error
	)
	if remapFileFlag == "" || remapFileFlag == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(remapFileFlag)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read stack trace: %w", err)
	}
	return string(data), nil
}

func remoteChain(cmd *cobra.Command, args []string, opts remap.Options) (remap.Chain, error) {
	version := args[0]
	from, err := names.ParseNamespace(args[1])
	if err != nil {
		return nil, err
	}
	to, err := names.ParseNamespace(args[2])
	if err != nil {
		return nil, err
	}

	p, cleanup, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return p.Chain(cmd.Context(), version, from, to, opts)
}

// localChain builds a single stage from the --mapping files. Every
// problem of every file is printed before giving up.
func localChain(printer *diag.Printer, opts remap.Options) (remap.Chain, error) {
	from, err := names.ParseNamespace(remapFromNSFlag)
	if err != nil {
		return nil, err
	}
	to, err := names.ParseNamespace(remapToNSFlag)
	if err != nil {
		return nil, err
	}
	dialect, err := mappings.ParseDialect(remapFormatFlag)
	if err != nil {
		return nil, err
	}

	sources := make([]mappings.Source, 0, len(remapMappingFlags))
	for _, path := range remapMappingFlags {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read mapping file: %w", err)
		}
		printer.AddSource(path, string(data))
		sources = append(sources, mappings.Source{
			Data: data,
			Options: mappings.ParseOptions{
				File:       path,
				Dialect:    dialect,
				Reverse:    remapReverseFlag,
				FromColumn: from.TinyName(),
				ToColumn:   to.TinyName(),
				From:       from,
				To:         to,
			},
		})
	}

	c, err := provider.LoadLocal(sources)
	if err != nil {
		printer.Print(err)
		return nil, ErrReported
	}
	logger.Logger.Debug("Local mappings loaded", "files", len(sources), "classes", c.Graph.Len())
	return remap.Chain{remap.New(c.Resolver, opts)}, nil
}

func printSummary(w io.Writer, summary remap.Summary) error {
	switch remapSummaryFlag {
	case "none":
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	if summary.UnresolvedCount > 0 {
		warnColor.Fprintln(w, summary.String())
		return nil
	}
	fmt.Fprintln(w, summary.String())
	return nil
}

func init() {
	remapCmd.Flags().StringVarP(&remapFileFlag, "file", "f", "", "Read the stack trace from a file instead of stdin")
	remapCmd.Flags().StringArrayVarP(&remapMappingFlags, "mapping", "m", nil, "Local mapping file; repeat to add overlays")
	remapCmd.Flags().StringVar(&remapFormatFlag, "mapping-format", "auto", "Format of --mapping files (auto, proguard, tiny)")
	remapCmd.Flags().BoolVar(&remapReverseFlag, "reverse", true, "Read ProGuard --mapping files obfuscated side first")
	remapCmd.Flags().StringVar(&remapFromNSFlag, "from-ns", string(names.Obfuscated), "Namespace the --mapping files map from")
	remapCmd.Flags().StringVar(&remapToNSFlag, "to-ns", string(names.Mojang), "Namespace the --mapping files map to")
	remapCmd.Flags().BoolVar(&remapFileNamesFlag, "remap-files", false, "Also rewrite the source file names of frames")
	remapCmd.Flags().BoolVar(&remapJoinFlag, "join-ambiguous", false, "Print ambiguous overloads as name1/name2")
	remapCmd.Flags().StringVar(&remapSummaryFlag, "summary", "text", "Summary format on stderr (text, json, none)")

	rootCmd.AddCommand(remapCmd)
}
