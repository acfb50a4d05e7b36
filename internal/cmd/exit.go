// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	stderrors "errors"
)

const (
	FailureExitCode   = 1
	InterruptExitCode = 130
)

// ErrReported is returned by commands that already printed their
// diagnostics. Callers exit non-zero without printing it again.
var ErrReported = stderrors.New("errors reported")

func IsReported(err error) bool {
	return stderrors.Is(err, ErrReported)
}

func IsCancellation(err error) bool {
	return stderrors.Is(err, context.Canceled)
}

// ExitCode maps the error returned by Execute to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case IsCancellation(err):
		return InterruptExitCode
	default:
		return FailureExitCode
	}
}
