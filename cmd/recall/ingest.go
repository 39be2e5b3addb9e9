package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/ternarybob/recall/internal/models"
)

var (
	ingestChunkSize    int
	ingestChunkOverlap int
	ingestChunkMode    string
	ingestWait         bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Ingest one or more documents",
	Long: `Reads each file, normalizes it by extension (.html/.htm and
.md/.markdown are converted to plain text), chunks it and stores it.
The document ID is a hash of the normalized content, so re-ingesting an
unchanged file overwrites the existing record.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().IntVar(&ingestChunkSize, "chunk-size", 0, "chunk size in characters (default from config)")
	ingestCmd.Flags().IntVar(&ingestChunkOverlap, "chunk-overlap", 0, "overlap between chunks in characters (default from config)")
	ingestCmd.Flags().StringVar(&ingestChunkMode, "mode", "", "chunking mode: fixed or structure (default from config)")
	ingestCmd.Flags().BoolVar(&ingestWait, "wait", false, "wait for the index rebuild so the document is immediately searchable")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	opts := &models.IngestOptions{
		ChunkSize:    ingestChunkSize,
		ChunkMode:    ingestChunkMode,
		WaitForIndex: ingestWait,
	}
	// Only an explicitly set flag overrides the configured overlap;
	// zero is a valid override.
	if cmd.Flags().Changed("chunk-overlap") {
		opts.ChunkOverlap = &ingestChunkOverlap
	}

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		doc, err := application.DocumentService.Ingest(ctx, string(data), filepath.Base(path), opts)
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", path, err)
		}

		cmd.Printf("%s  %s (%s, %d chunks, %d chars)\n",
			doc.ID[:12], doc.Filename, doc.FileType, doc.TotalChunks, doc.TotalChars)
	}
	return nil
}
