// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dotandev/wasmdec/internal/config"
	"github.com/dotandev/wasmdec/internal/logger"
	"github.com/dotandev/wasmdec/internal/shutdown"
	"github.com/dotandev/wasmdec/internal/updater"
)

// Global flag variables
var (
	LogLevelFlag string
	NoColorFlag  bool
)

// appConfig is resolved once in PersistentPreRunE and read by subcommands.
var appConfig *config.Config

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wasmdec",
	Short: "WebAssembly decompiler",
	Long: `Wasmdec lifts WebAssembly bytecode back into readable pseudo-code. It folds
the operand stack into expression trees, normalizes the control-flow graph,
and recovers structured if/loop/switch statements wherever the graph allows.

Key features:
  - Decompile whole modules or single functions
  - List functions with names, signatures and body sizes
  - Dump control-flow graphs as Graphviz dot
  - Re-decompile automatically while you edit (watch mode)
  - Serve decompilation over JSON-RPC for editor integrations
  - Cache rendered output so unchanged modules come back instantly

Examples:
  wasmdec decompile ./contract.wasm          Decompile a module
  wasmdec decompile -f 3 ./contract.wasm     Decompile one function
  wasmdec funcs ./contract.wasm              List functions
  wasmdec graph -f 3 ./contract.wasm         Dump a function's CFG as dot
  wasmdec watch ./contract.wasm              Re-decompile on change
  wasmdec cache status                       Check cache usage

Get started with 'wasmdec decompile --help' or visit the documentation.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		appConfig = cfg

		level := cfg.LogLevel
		if LogLevelFlag != "" {
			level = LogLevelFlag
		}
		logger.SetLevelFromString(level)

		if NoColorFlag {
			color.NoColor = true
		}

		// Check for updates asynchronously (non-blocking)
		checkForUpdatesAsync()

		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command under signal supervision: an interrupt
// cancels the command context, drains the shutdown hooks and surfaces
// ErrInterrupted to main. This is called by main.main().
func Execute() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	coordinator := shutdown.NewCoordinator()
	setShutdownCoordinator(coordinator)
	defer clearShutdownCoordinator()

	return executeWithSignals(ctx, cancel, sigCh, coordinator, func(execCtx context.Context) error {
		return rootCmd.ExecuteContext(execCtx)
	})
}

// executeWithSignals runs exec in a goroutine and arbitrates between its
// completion and an incoming signal. Shutdown hooks run exactly once on
// either path; the coordinator guarantees that.
func executeWithSignals(ctx context.Context, cancel context.CancelFunc, sigCh <-chan os.Signal, coordinator *shutdown.Coordinator, exec func(context.Context) error) error {
	done := make(chan error, 1)
	go func() {
		done <- exec(ctx)
	}()

	select {
	case sig := <-sigCh:
		logger.Logger.Debug("signal received, shutting down", "signal", sig.String())
		cancel()
		runShutdownHooksWithTimeout(coordinator, shutdownTimeout)

		// Give the command a bounded window to unwind after cancellation.
		select {
		case <-done:
		case <-time.After(shutdownTimeout):
			logger.Logger.Warn("command did not stop before the shutdown deadline")
		}
		return ErrInterrupted
	case err := <-done:
		runShutdownHooksWithTimeout(coordinator, shutdownTimeout)
		return err
	}
}

// checkForUpdatesAsync runs the update check in a goroutine to not block CLI startup
func checkForUpdatesAsync() {
	// Run update check in background goroutine
	go func() {
		// Use the Version variable from version.go
		checker := updater.NewChecker(Version)
		checker.CheckForUpdates()
	}()
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "core", Title: "Decompilation Commands:"},
		&cobra.Group{ID: "utility", Title: "Utility Commands:"},
	)

	rootCmd.PersistentFlags().StringVar(
		&LogLevelFlag,
		"log-level",
		"",
		"Override the configured log level (debug, info, warn, error)",
	)

	rootCmd.PersistentFlags().BoolVar(
		&NoColorFlag,
		"no-color",
		false,
		"Disable ANSI colors in rendered output",
	)

	_ = rootCmd.RegisterFlagCompletionFunc("log-level", completeLogLevelFlag)
}
