// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	stderrors "errors"
)

// InterruptExitCode is the conventional exit status for SIGINT (128 + 2).
const InterruptExitCode = 130

// ErrInterrupted marks a run that was stopped by a signal rather than by a
// command failure. main treats it as a quiet exit.
var ErrInterrupted = stderrors.New("interrupt received")

func IsInterrupted(err error) bool {
	return stderrors.Is(err, ErrInterrupted)
}

func IsCancellation(err error) bool {
	return stderrors.Is(err, context.Canceled)
}
