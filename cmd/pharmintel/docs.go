// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meshintel/pharmintel/internal/docs"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Maintain and query the internal document index",
}

var docsIngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index YAML document sets from the docs directory",
	Long: `Ingest scans the configured docs directory for YAML document sets and
indexes them into the SQLite full-text index. Files already indexed at their
current modification time are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadPipelineConfig()
		store, err := docs.NewStore(cfg.Docs)
		if err != nil {
			return err
		}
		defer store.Close()

		summary, err := store.Ingest(cmd.Context(), os.Stderr)
		if err != nil {
			return err
		}
		fmt.Printf("Indexed %d, updated %d, skipped %d, failed %d (%d files)\n",
			summary.Indexed, summary.Updated, summary.Skipped, summary.Failed, summary.Total())
		return nil
	},
}

var docsSearchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Full-text search over indexed documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg := loadPipelineConfig()
		store, err := docs.NewStore(cfg.Docs)
		if err != nil {
			return err
		}
		defer store.Close()

		results, err := store.Search(cmd.Context(), args[0], limit)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No documents matched.")
			return nil
		}
		for _, doc := range results {
			fmt.Printf("%s  [%s, %d] %s\n    %s\n", doc.ID, doc.DocType, doc.Year, doc.Title, doc.Summary)
		}
		return nil
	},
}

func init() {
	docsSearchCmd.Flags().Int("limit", 10, "maximum number of documents to return")

	docsCmd.AddCommand(docsIngestCmd)
	docsCmd.AddCommand(docsSearchCmd)
	rootCmd.AddCommand(docsCmd)
}
