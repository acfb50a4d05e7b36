// Copyright (c) 2026 dotandev
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"bufio"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dotandev/retrace/internal/mapsource"
	"github.com/spf13/cobra"
)

var (
	cacheForceFlag bool
	cacheKindFlag  string
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage downloaded mapping files",
	Long: `Manage the local cache of downloaded mapping files. Every file is verified
against its published hash before it is used and recorded in an index.

Cache location: the cache_dir config setting (override with RETRACE_CACHE_DIR)

Available subcommands:
  status  - View cache size and file count
  list    - List cached mappings, newest game version first
  clear   - Delete all cached mappings`,
	Example: `  # Check cache status
  retrace cache status

  # List cached Fabric intermediary files
  retrace cache list --kind fabric_intermediary

  # Clear all cache without confirmation
  retrace cache clear --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display cache statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := mapsource.Status(cfg.CacheDir)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Cache directory: %s\n", st.Dir)
		fmt.Fprintf(out, "Cache size: %s\n", mapsource.FormatBytes(st.Bytes))
		fmt.Fprintf(out, "Files cached: %d\n", st.Files)
		return nil
	},
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached mapping files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := openIndex(cfg)
		if err != nil {
			return err
		}
		defer idx.Close()

		entries, err := idx.List(cacheKindFlag)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "No cached mappings.")
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "VERSION\tKIND\tSIZE\tHASH\tFETCHED")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s:%s\t%s\n",
				e.Version, e.Kind, mapsource.FormatBytes(e.Size), e.Algorithm, shortHash(e.Hash),
				e.FetchedAt.Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cached mapping files",
	Long: `Delete every cached mapping file and its index row. They are downloaded
again on next use.

Use --force to skip the confirmation prompt.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if !cacheForceFlag {
			fmt.Fprintf(out, "Delete all cached mappings in %s? [y/N] ", cfg.CacheDir)
			answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			answer = strings.ToLower(strings.TrimSpace(answer))
			if answer != "y" && answer != "yes" {
				fmt.Fprintln(out, "Cancelled.")
				return nil
			}
		}

		idx, err := openIndex(cfg)
		if err != nil {
			return err
		}
		defer idx.Close()

		st, err := mapsource.Clear(cfg.CacheDir, idx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %d file(s), freed %s\n", st.Files, mapsource.FormatBytes(st.Bytes))
		return nil
	},
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func init() {
	cacheListCmd.Flags().StringVar(&cacheKindFlag, "kind", "", "Only list one kind (mojang, fabric_intermediary)")
	cacheClearCmd.Flags().BoolVarP(&cacheForceFlag, "force", "f", false, "Skip confirmation prompt")

	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
