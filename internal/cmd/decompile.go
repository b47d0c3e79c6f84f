// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dotandev/wasmdec/internal/cache"
	"github.com/dotandev/wasmdec/internal/decompiler"
	"github.com/dotandev/wasmdec/internal/logger"
	"github.com/dotandev/wasmdec/internal/wasm"
)

var (
	decompileFunc    int
	decompileOutput  string
	decompileWorkers int
	decompileNoCache bool
)

var decompileCmd = &cobra.Command{
	Use:     "decompile <module.wasm>",
	GroupID: "core",
	Short:   "Decompile a WebAssembly module to pseudo-code",
	Long: `Lift a compiled WebAssembly module back into readable pseudo-code.

The whole module is decompiled by default; pass -f to pick one function by
its module-wide index. Functions whose control flow cannot be structured are
rendered as labeled blocks instead of failing the run.

Rendered output is cached under ~/.wasmdec/cache keyed by module content, so
repeat runs on an unchanged module skip the pipeline entirely.

Examples:
  wasmdec decompile ./contract.wasm
  wasmdec decompile -f 3 ./contract.wasm
  wasmdec decompile ./contract.wasm -o ./contract.txt
  wasmdec decompile --no-cache ./contract.wasm`,
	Args: cobra.ExactArgs(1),
	RunE: decompileExec,
}

func decompileExec(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading module: %w", err)
	}

	// Files get plain text; ANSI escapes are for terminals only.
	if decompileOutput != "" {
		color.NoColor = true
	}

	store := openStore(decompileNoCache)
	res, err := renderModule(cmd.Context(), data, decompileFunc, resolveWorkers(decompileWorkers), store)
	if err != nil {
		return err
	}

	if decompileOutput == "" {
		fmt.Print(res.text)
	} else {
		if err := os.WriteFile(decompileOutput, []byte(res.text), 0644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		fmt.Printf("Written to: %s\n", decompileOutput)
	}

	printRenderSummary(res)
	return nil
}

// renderResult is what a render run hands back to the command layer.
type renderResult struct {
	text     string
	degraded int
	failed   int
	cached   bool
}

// renderModule decompiles module bytes, consulting the cache first when a
// store is given. funcIdx < 0 means the whole module. Cache failures are
// soft: the run continues uncached.
func renderModule(ctx context.Context, data []byte, funcIdx, workers int, store *cache.Store) (*renderResult, error) {
	opts := cacheOptions(funcIdx)
	var hash string
	if store != nil {
		hash = cache.HashModule(data)
		text, ok, err := store.Get(hash, opts)
		if err != nil {
			logger.Logger.Warn("cache read failed, decompiling uncached", "error", err)
		} else if ok {
			logger.Logger.Debug("cache hit", "hash", hash[:12], "options", opts)
			return &renderResult{text: text, cached: true}, nil
		}
	}

	mod, err := wasm.ParseModule(data)
	if err != nil {
		return nil, err
	}

	dec := &decompiler.Decompiler{Workers: workers}
	res := &renderResult{}
	if funcIdx >= 0 {
		fr, err := dec.Function(ctx, mod, uint32(funcIdx))
		if err != nil {
			return nil, err
		}
		res.text = fr.Text
		if fr.Degraded {
			res.degraded = 1
		}
	} else {
		out, err := dec.Module(ctx, mod)
		if err != nil {
			return nil, err
		}
		res.text = out.Text
		res.degraded = out.Degraded
		res.failed = out.Failed
	}

	// Partial renders stay uncached so a later run re-reports the failures.
	if store != nil && res.failed == 0 {
		if err := store.Put(hash, opts, res.text); err != nil {
			logger.Logger.Warn("cache write failed", "error", err)
		}
	}

	return res, nil
}

// cacheOptions keys a cache entry by everything besides module content that
// changes the rendered text.
func cacheOptions(funcIdx int) string {
	opts := "module"
	if funcIdx >= 0 {
		opts = fmt.Sprintf("func=%d", funcIdx)
	}
	if !color.NoColor {
		opts += ",color"
	}
	return opts
}

// openStore opens the configured cache, or returns nil when caching is off
// or the store cannot be opened. A nil store renders uncached.
func openStore(disabled bool) *cache.Store {
	if disabled {
		return nil
	}

	cfg := appConfig
	if cfg == nil {
		return nil
	}

	store, err := cache.Open(cfg.CachePath, cfg.CacheMaxEntries)
	if err != nil {
		logger.Logger.Warn("cache unavailable, decompiling uncached", "error", err)
		return nil
	}
	registerStoreCloseHook("cache-close", store)
	return store
}

// resolveWorkers prefers the flag, then config; zero lets the decompiler
// fall back to GOMAXPROCS.
func resolveWorkers(flag int) int {
	if flag > 0 {
		return flag
	}
	if appConfig != nil {
		return appConfig.Workers
	}
	return 0
}

func printRenderSummary(res *renderResult) {
	if res.degraded > 0 {
		fmt.Fprintln(os.Stderr, color.YellowString("%d function(s) degraded to labeled blocks", res.degraded))
	}
	if res.failed > 0 {
		fmt.Fprintln(os.Stderr, color.RedString("%d function(s) failed to decompile", res.failed))
	}
}

func init() {
	decompileCmd.Flags().IntVarP(&decompileFunc, "func", "f", -1, "Decompile a single function by module-wide index")
	decompileCmd.Flags().StringVarP(&decompileOutput, "output", "o", "", "Write output to a file instead of stdout")
	decompileCmd.Flags().IntVar(&decompileWorkers, "workers", 0, "Bound the per-module worker pool (0 = configured value or all CPUs)")
	decompileCmd.Flags().BoolVar(&decompileNoCache, "no-cache", false, "Skip the decompilation cache")

	rootCmd.AddCommand(decompileCmd)
}
