// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dotandev/wasmdec/internal/watch"
)

var (
	watchFunc     int
	watchOutput   string
	watchInterval time.Duration
)

var watchCmd = &cobra.Command{
	Use:     "watch <module.wasm>",
	GroupID: "core",
	Short:   "Re-decompile a module whenever it changes on disk",
	Long: `Watch a module file and re-run decompilation on every change. The file is
polled by modification time, so it may not exist yet when the watch starts;
the first decompilation runs as soon as it appears.

A failing decompilation (a half-written save, usually) is reported and the
watch keeps going. Stop with Ctrl-C.

Examples:
  wasmdec watch ./contract.wasm
  wasmdec watch -f 3 ./contract.wasm
  wasmdec watch ./contract.wasm -o ./contract.txt
  wasmdec watch --interval 2s ./contract.wasm`,
	Args: cobra.ExactArgs(1),
	RunE: watchExec,
}

func watchExec(cmd *cobra.Command, args []string) error {
	path := args[0]

	if watchOutput != "" {
		// The output file is the display surface; keep it plain.
		color.NoColor = true
	}

	workers := resolveWorkers(0)
	fmt.Printf("Watching %s (interval %s, Ctrl-C to stop)\n", path, watcherInterval())

	w := watch.NewWatcher(path, watchInterval)
	sp := watch.NewSpinner()

	return w.Run(cmd.Context(), func(ev watch.Event) error {
		sp.Start("decompiling " + filepath.Base(ev.Path))

		data, err := os.ReadFile(ev.Path)
		if err != nil {
			sp.StopWithError("read failed: " + err.Error())
			return err
		}

		res, err := renderModule(cmd.Context(), data, watchFunc, workers, nil)
		if err != nil {
			sp.StopWithError("decompile failed: " + err.Error())
			return err
		}

		if watchOutput != "" {
			if err := os.WriteFile(watchOutput, []byte(res.text), 0644); err != nil {
				sp.StopWithError("write failed: " + err.Error())
				return err
			}
			sp.StopWithMessage(fmt.Sprintf("%s -> %s at %s", filepath.Base(ev.Path), watchOutput, ev.ModTime.Format("15:04:05")))
		} else {
			sp.StopWithMessage(fmt.Sprintf("decompiled %s at %s", filepath.Base(ev.Path), ev.ModTime.Format("15:04:05")))
			fmt.Print(res.text)
		}

		printRenderSummary(res)
		return nil
	})
}

func watcherInterval() time.Duration {
	if watchInterval <= 0 {
		return 500 * time.Millisecond
	}
	return watchInterval
}

func init() {
	watchCmd.Flags().IntVarP(&watchFunc, "func", "f", -1, "Decompile a single function by module-wide index")
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "", "Write each render to a file instead of stdout")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 500*time.Millisecond, "Poll interval")

	rootCmd.AddCommand(watchCmd)
}
