// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Show retrieval source status and provider health",
	Long: `Sources lists every configured data source in priority order with its
availability, failure count, and circuit state, followed by the health of
each registered provider.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, _, err := buildManager()
		if err != nil {
			return err
		}
		defer m.Shutdown(cmd.Context())

		statuses := m.SourceStatuses()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(statuses)
		}

		if len(statuses) == 0 {
			fmt.Println("retrieval is disabled; no sources configured")
		}
		for _, s := range statuses {
			state := "available"
			if s.CircuitOpen {
				state = "circuit open"
			} else if !s.Available {
				state = "unavailable"
			}
			fmt.Printf("%d. %-20s %-13s failures=%d", s.Priority, s.ID, state, s.FailureCount)
			if s.CostPerQuery > 0 {
				fmt.Printf("  cost=$%.4f/query", s.CostPerQuery)
			}
			fmt.Println()
		}

		fmt.Println("\nproviders:")
		report := m.HealthReport()
		ids := make([]string, 0, len(report))
		for id := range report {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			h := report[id]
			state := "healthy"
			if !h.Healthy {
				state = "unhealthy"
			}
			fmt.Printf("  %-20s %s", id, state)
			if h.Details != "" {
				fmt.Printf("  (%s)", h.Details)
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	sourcesCmd.Flags().Bool("json", false, "output source status as JSON")

	rootCmd.AddCommand(sourcesCmd)
}
