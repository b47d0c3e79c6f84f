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

	"github.com/spf13/cobra"

	"github.com/dotandev/wasmdec/internal/cache"
	"github.com/dotandev/wasmdec/internal/config"
)

var (
	cacheForceFlag bool
)

// cacheSettings resolves the cache location and bound, falling back to
// defaults when a subcommand runs outside PersistentPreRunE.
func cacheSettings() (string, int) {
	cfg := appConfig
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return cfg.CachePath, cfg.CacheMaxEntries
}

var cacheCmd = &cobra.Command{
	Use:     "cache",
	GroupID: "utility",
	Short:   "Manage the decompilation cache",
	Long: `Manage the local cache that stores rendered decompilation output. Repeat
runs on an unchanged module come straight from the cache instead of
re-running the pipeline.

Cache location: ~/.wasmdec/cache (configurable via WASMDEC_CACHE_PATH)

Available subcommands:
  status  - View entry count and disk usage
  clear   - Delete all cached output`,
	Example: `  # Check cache status
  wasmdec cache status

  # Clear all cached output
  wasmdec cache clear --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display cache statistics",
	Long:  `Display the cache database location, entry count and disk usage.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, maxEntries := cacheSettings()
		store, err := cache.Open(dir, maxEntries)
		if err != nil {
			return err
		}
		defer store.Close()

		status, err := store.Status()
		if err != nil {
			return err
		}

		fmt.Printf("Cache database: %s\n", status.Path)
		fmt.Printf("Entries: %d\n", status.Entries)
		fmt.Printf("Size: %s\n", cache.FormatBytes(status.SizeBytes))
		if maxEntries > 0 {
			fmt.Printf("Maximum entries: %d\n", maxEntries)
		}

		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cached output",
	Long: `Remove every entry from the decompilation cache and compact the database.

⚠️  Warning: This action cannot be undone. Use --force to skip confirmation.`,
	Example: `  # Clear cache with confirmation
  wasmdec cache clear

  # Force clear without prompt
  wasmdec cache clear --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, maxEntries := cacheSettings()

		// Get confirmation unless force flag is set
		if !cacheForceFlag {
			fmt.Printf("This will delete all cached output under %s\n", dir)
			fmt.Print("Are you sure? (yes/no): ")
			var response string
			if _, err := fmt.Scanln(&response); err != nil {
				return fmt.Errorf("failed to read confirmation input: %w", err)
			}
			if response != "yes" && response != "y" {
				fmt.Println("Cache clear cancelled")
				return nil
			}
		}

		store, err := cache.Open(dir, maxEntries)
		if err != nil {
			return err
		}
		defer store.Close()

		removed, err := store.Clear()
		if err != nil {
			return err
		}

		fmt.Printf("Cache cleared: %d entries removed\n", removed)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheClearCmd)

	cacheClearCmd.Flags().BoolVarP(&cacheForceFlag, "force", "f", false, "Skip confirmation prompt")

	rootCmd.AddCommand(cacheCmd)
}
