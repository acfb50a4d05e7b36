// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dotandev/retrace/internal/cmd"
	"github.com/fatih/color"
)

// Build-time variables injected via -ldflags.
var Version = "dev"

func main() {
	cmd.Version = Version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.ExecuteContext(ctx)
	stop()

	if err != nil && !cmd.IsReported(err) && !cmd.IsCancellation(err) {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.New(color.Bold, color.FgHiRed).Sprint("error:"), err)
	}
	os.Exit(cmd.ExitCode(err))
}
