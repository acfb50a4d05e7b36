// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/dotandev/retrace/internal/mcpserver"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve retrace as Model Context Protocol tools on stdio",
	Long: `Run an MCP server on stdin and stdout so that AI assistants and editors can
call retrace directly.

Tools:
  - remap_stacktrace: remap a stack trace between namespaces
  - check_mappings: validate a mapping file

Logs go to stderr; stdout carries only protocol messages.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		chains, closeIndex, err := newProvider(cfg)
		if err != nil {
			return err
		}
		defer closeIndex()

		return mcpserver.New(chains, Version).Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
