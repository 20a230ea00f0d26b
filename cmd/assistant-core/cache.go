// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the answer cache",
	Long: `Cache reports hit/miss counters for the multi-tier answer cache and can
invalidate individual entries. Counters cover this process; the durable
SQLite tier persists across runs when cache.durable_path is configured.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print cache hit/miss counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, _, err := buildManager()
		if err != nil {
			return err
		}
		defer m.Shutdown(cmd.Context())

		stats := m.CacheStats()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		}
		fmt.Printf("hits:      %d\n", stats.Hits)
		fmt.Printf("misses:    %d\n", stats.Misses)
		fmt.Printf("sets:      %d\n", stats.Sets)
		fmt.Printf("evictions: %d\n", stats.Evictions)
		fmt.Printf("hit rate:  %.1f%%\n", stats.HitRate*100)
		return nil
	},
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate <key>",
	Short: "Remove one cached entry from every tier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, _, err := buildManager()
		if err != nil {
			return err
		}
		defer m.Shutdown(cmd.Context())

		m.InvalidateCache(args[0])
		fmt.Printf("invalidated %s\n", args[0])
		return nil
	},
}

func init() {
	cacheStatsCmd.Flags().Bool("json", false, "output counters as JSON")

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheInvalidateCmd)
	rootCmd.AddCommand(cacheCmd)
}
