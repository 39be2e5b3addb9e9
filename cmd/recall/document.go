package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ternarybob/recall/internal/models"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		docs, err := application.DocumentService.ListDocuments(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}

		if len(docs) == 0 {
			cmd.Println("No documents stored.")
			return nil
		}

		for _, doc := range docs {
			cmd.Printf("%s  %-30s %-8s %4d chunks  %s\n",
				doc.ID[:12], doc.Filename, doc.FileType, doc.TotalChunks,
				doc.CreatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show document metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := application.DocumentService.GetDocument(context.Background(), args[0])
		if errors.Is(err, models.ErrNotFound) {
			cmd.Printf("Document %s not found.\n", args[0])
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get document: %w", err)
		}

		cmd.Printf("ID:        %s\n", doc.ID)
		cmd.Printf("Filename:  %s\n", doc.Filename)
		cmd.Printf("Type:      %s\n", doc.FileType)
		if doc.Title != "" {
			cmd.Printf("Title:     %s\n", doc.Title)
		}
		cmd.Printf("Chunks:    %d (size %d, overlap %d, mode %s)\n",
			doc.TotalChunks, doc.ChunkSize, doc.ChunkOverlap, doc.ChunkMode)
		cmd.Printf("Chars:     %d\n", doc.TotalChars)
		cmd.Printf("Created:   %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}

var chunksCmd = &cobra.Command{
	Use:   "chunks [id]",
	Short: "Show a document's chunks in order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chunks, err := application.DocumentService.GetChunks(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get chunks: %w", err)
		}

		if len(chunks) == 0 {
			cmd.Println("No chunks found.")
			return nil
		}

		for _, chunk := range chunks {
			cmd.Printf("--- chunk %d [%d:%d] ---\n%s\n\n",
				chunk.Seq, chunk.StartChar, chunk.EndChar, chunk.Content)
		}
		return nil
	},
}

var clearForce bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all documents, chunks and corpus statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearForce {
			return fmt.Errorf("refusing to clear the store without --force")
		}
		if err := application.StorageManager.DocumentStorage().ClearAll(); err != nil {
			return fmt.Errorf("failed to clear store: %w", err)
		}
		if err := application.DocumentService.ClearCaches(context.Background()); err != nil {
			return fmt.Errorf("failed to clear caches: %w", err)
		}
		cmd.Println("Store cleared.")
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		existed, err := application.DocumentService.DeleteDocument(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to delete document: %w", err)
		}
		if !existed {
			cmd.Printf("Document %s not found.\n", args[0])
			return nil
		}
		cmd.Printf("Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	clearCmd.Flags().BoolVar(&clearForce, "force", false, "confirm clearing the whole store")
	rootCmd.AddCommand(listCmd, getCmd, chunksCmd, deleteCmd, clearCmd)
}
