// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sirseerhq/sirseer-report/internal/cache"
	"github.com/sirseerhq/sirseer-report/internal/config"
)

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local history cache",
	}
	cmd.AddCommand(newCacheClearCommand())
	return cmd
}

func newCacheClearCommand() *cobra.Command {
	var configPath, cacheDir string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached history",
		Long: `Remove every cached issue and pull request history from the cache
directory. Fetch metadata records are kept. The next fetch for any
repository pages its full history again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheClear(configPath, cacheDir, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Configuration file (YAML or TOML)")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Cache directory (overrides defaults.cache_dir)")
	return cmd
}

func runCacheClear(configPath, cacheDir string, out io.Writer) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if cacheDir != "" {
		cfg.Defaults.CacheDir = cacheDir
	}

	store, err := cache.NewFileStore(cfg.Defaults.CacheDir)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}

	removed, err := store.Clear()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Removed %d cache entries from %s\n", removed, store.Dir())
	return nil
}
