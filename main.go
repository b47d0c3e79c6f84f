// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/dotandev/wasmdec/internal/cmd"
	"github.com/dotandev/wasmdec/internal/config"
	"github.com/dotandev/wasmdec/internal/crashreport"
)

// Build-time variables injected via -ldflags.
var (
	version   = "dev"
	commitSHA = "unknown"
)

func main() {
	ctx := context.Background()

	// Load config to determine whether crash reporting is opted in.
	cfg, err := config.LoadConfig()
	if err != nil {
		// Non-fatal: fall back to a reporter that is disabled by default.
		cfg = config.DefaultConfig()
	}

	cmd.Version = version

	reporter := crashreport.New(crashreport.Config{
		Enabled:   cfg.CrashReporting,
		SentryDSN: cfg.CrashSentryDSN,
		Endpoint:  cfg.CrashEndpoint,
		Version:   version,
		CommitSHA: commitSHA,
	})

	// Catch any unrecovered panic, report it, then re-panic.
	defer reporter.HandlePanic(ctx, "wasmdec")

	os.Exit(run(func() error {
		execErr := cmd.Execute()
		if execErr != nil && !cmd.IsInterrupted(execErr) && reporter.IsEnabled() {
			// Report fatal command errors that were not recovered as panics.
			_ = reporter.Send(ctx, execErr, debug.Stack(), "wasmdec")
		}
		return execErr
	}, os.Stderr))
}

// run maps the command's outcome to an exit code: 0 on success, 130 on
// interrupt, 1 otherwise.
func run(exec func() error, stderr io.Writer) int {
	err := exec()
	if err == nil {
		return 0
	}
	if cmd.IsInterrupted(err) {
		fmt.Fprintln(stderr, "Interrupted. Shutting down...")
		return cmd.InterruptExitCode
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}
