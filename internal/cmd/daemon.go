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
	"fmt"
	"strconv"

	"github.com/dotandev/retrace/internal/config"
	"github.com/dotandev/retrace/internal/daemon"
	"github.com/dotandev/retrace/internal/remap"
	"github.com/dotandev/retrace/internal/telemetry"
	"github.com/spf13/cobra"
)

var (
	daemonPort      string
	daemonAuthToken string
	daemonTracing   bool
	daemonOTLPURL   string
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Start JSON-RPC server for remote remapping",
	Long: `Start a JSON-RPC 2.0 server that exposes retrace to editors and log tools.

Endpoints:
  - Retrace.Remap: remap a stack trace between namespaces
  - Retrace.Check: validate a mapping file

Requests are served at /rpc; /health reports liveness. Loaded mappings are
kept in memory between requests.

Example:
  retrace daemon --port 8080
  retrace daemon --port 8080 --auth-token secret123`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Initialize OpenTelemetry if enabled
		if daemonTracing {
			otlpURL := daemonOTLPURL
			if !cmd.Flags().Changed("otlp-url") && cfg.OTLPURL != "" {
				otlpURL = cfg.OTLPURL
			}
			cleanup, err := telemetry.Init(ctx, telemetry.Config{
				Enabled:     true,
				ExporterURL: otlpURL,
				ServiceName: "retrace-daemon",
				Version:     Version,
			})
			if err != nil {
				return fmt.Errorf("failed to initialize telemetry: %w", err)
			}
			defer cleanup()
		}

		port := daemonPort
		if !cmd.Flags().Changed("port") {
			port = strconv.Itoa(cfg.DaemonPort)
		}
		token := daemonAuthToken
		if token == "" {
			token = cfg.DaemonAuthToken
		}

		chains, closeIndex, err := newProvider(cfg)
		if err != nil {
			return err
		}
		defer closeIndex()

		server := daemon.NewServer(chains, daemon.Config{
			Port:      port,
			AuthToken: token,
			Defaults: remap.Options{
				RemapFileNames: cfg.RemapFileNames,
				JoinAmbiguous:  cfg.JoinAmbiguous,
			},
		})

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Starting retrace daemon on port %s\n", port)
		fmt.Fprintf(out, "Cache directory: %s\n", cfg.CacheDir)
		if token != "" {
			fmt.Fprintln(out, "Authentication: enabled")
		}

		// Start server
		return server.Start(ctx, port)
	},
}

func init() {
	daemonCmd.Flags().StringVarP(&daemonPort, "port", "p", strconv.Itoa(config.DefaultDaemonPort), "Port to listen on")
	daemonCmd.Flags().StringVar(&daemonAuthToken, "auth-token", "", "Authentication token for API access")
	daemonCmd.Flags().BoolVar(&daemonTracing, "tracing", false, "Enable OpenTelemetry tracing")
	daemonCmd.Flags().StringVar(&daemonOTLPURL, "otlp-url", "http://localhost:4318", "OTLP exporter URL")

	rootCmd.AddCommand(daemonCmd)
}
