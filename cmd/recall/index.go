package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the search index now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := application.IndexService.RebuildNow(context.Background()); err != nil {
			return fmt.Errorf("index rebuild failed: %w", err)
		}
		cmd.Printf("Index rebuilt: %d terms\n", application.IndexService.TermCount())
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus and index statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := application.DocumentService.Stats(context.Background())
		if err != nil {
			return fmt.Errorf("failed to read stats: %w", err)
		}

		cmd.Printf("Documents:     %d\n", stats.TotalDocuments)
		cmd.Printf("Chunks:        %d\n", stats.TotalChunks)
		cmd.Printf("Indexed terms: %d\n", stats.IndexedTerms)
		if !stats.IndexBuiltAt.IsZero() {
			cmd.Printf("Index built:   %s\n", stats.IndexBuiltAt.Format("2006-01-02 15:04:05"))
		} else {
			cmd.Println("Index built:   never (no snapshot published)")
		}
		if !stats.LastUpdated.IsZero() {
			cmd.Printf("Last updated:  %s\n", stats.LastUpdated.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var clearCachesCmd = &cobra.Command{
	Use:   "clear-caches",
	Short: "Empty the caches and drop the index snapshot",
	Long: `Clears the metadata and chunk caches and invalidates the index
snapshot. Stored documents are untouched; the next search rebuilds the
index from the store.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := application.DocumentService.ClearCaches(context.Background()); err != nil {
			return fmt.Errorf("failed to clear caches: %w", err)
		}
		cmd.Println("Caches cleared.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rebuildCmd, statsCmd, clearCachesCmd)
}
