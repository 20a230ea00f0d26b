// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/assistant-core/pkg/types"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the assistant a research question",
	Long: `Ask runs one question through the full pipeline: cache lookup, prioritized
source retrieval, content validation, and error translation. The command
always produces an answer; degraded answers carry a lower confidence.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, _, err := buildManager()
		if err != nil {
			return err
		}
		defer m.Shutdown(cmd.Context())

		req := &types.Request{
			Message: strings.Join(args, " "),
		}
		req.SessionID, _ = cmd.Flags().GetString("session")
		req.UserID, _ = cmd.Flags().GetString("user")
		req.Specialization, _ = cmd.Flags().GetString("specialization")

		if title, _ := cmd.Flags().GetString("paper-title"); title != "" {
			req.Paper = &types.ResearchPaper{Title: title}
			req.Paper.DOI, _ = cmd.Flags().GetString("paper-doi")
			req.Paper.Year, _ = cmd.Flags().GetInt("paper-year")
		}

		resp := m.Handle(cmd.Context(), req)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		}

		fmt.Println(resp.Content)
		fmt.Printf("\nconfidence: %.2f", resp.Confidence)
		if len(resp.Sources) > 0 {
			fmt.Printf("  sources: %s", strings.Join(resp.Sources, ", "))
		}
		fmt.Println()
		if resp.Metadata.Cached {
			fmt.Println("served from cache")
		}
		if resp.Metadata.Validated {
			fmt.Printf("quality score: %.2f\n", resp.Metadata.QualityScore)
		}
		if resp.Error != "" {
			fmt.Fprintf(os.Stderr, "degraded: %s\n", resp.Error)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().String("session", "default", "session identifier for the conversation")
	askCmd.Flags().String("user", "", "user identifier (scopes the cache)")
	askCmd.Flags().String("specialization", "", "assistant specialization, e.g. cardiology")
	askCmd.Flags().String("paper-title", "", "title of the paper the question is about")
	askCmd.Flags().String("paper-doi", "", "DOI of the referenced paper")
	askCmd.Flags().Int("paper-year", 0, "publication year of the referenced paper")
	askCmd.Flags().Bool("json", false, "output the full response as JSON")

	rootCmd.AddCommand(askCmd)
}
