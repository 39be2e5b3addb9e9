package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ternarybob/recall/internal/models"
)

var (
	searchTopK     int
	searchMinScore float64
	searchDocs     []string
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search stored chunks",
	Long: `Ranks all stored chunks against the query using TF-IDF scoring
and prints the top matches.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top", "n", 0, "maximum number of results (default from config)")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", 0, "minimum score threshold")
	searchCmd.Flags().StringSliceVar(&searchDocs, "docs", nil, "restrict results to these document IDs")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	results, err := application.DocumentService.Search(context.Background(), query, &models.SearchOptions{
		TopK:        searchTopK,
		MinScore:    searchMinScore,
		DocumentIDs: searchDocs,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	for i, result := range results {
		cmd.Printf("[%d] %s #%d (%.4f)\n", i+1, result.Chunk.Filename, result.Chunk.Seq, result.Score)
		cmd.Printf("    %s\n\n", snippet(result.Chunk.Content, 200))
	}
	return nil
}

// snippet truncates content to at most n runes on a single line
func snippet(content string, n int) string {
	runes := []rune(content)
	if len(runes) > n {
		runes = append(runes[:n], []rune("...")...)
	}
	return strings.Join(strings.Fields(string(runes)), " ")
}
