package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/recall/internal/models"
)

// ChunkerService splits normalized text into retrieval chunks.
type ChunkerService interface {
	// Chunk splits text using the given parameters. Mode is one of the
	// models.ChunkMode* constants. Empty text yields zero chunks.
	Chunk(text string, size, overlap int, mode string) []*models.Chunk
}

// TransformService normalizes raw uploads into plain text for chunking.
type TransformService interface {
	// Normalize converts content based on the filename extension and
	// returns the normalized text, detected file type and any title.
	Normalize(content, filename string) (*models.NormalizedContent, error)
}

// IndexService maintains the TF-IDF inverted index over all chunks.
type IndexService interface {
	// Lookup returns the per-chunk scores for a single index term.
	// Keys are chunk storage keys. Returns nil when the term is absent
	// or no snapshot is published.
	Lookup(term string) map[string]float64

	// Postings returns the per-chunk scores for every given term, all
	// read from the same published snapshot, so a caller scoring several
	// terms never observes a snapshot swap mid-query. Absent terms have
	// no entry. Returns nil when no snapshot is published.
	Postings(terms []string) map[string]map[string]float64

	// Ready reports whether a snapshot is currently published.
	Ready() bool

	// TermCount returns the number of distinct indexed terms.
	TermCount() int

	// BuiltAt returns when the published snapshot was built.
	BuiltAt() (time.Time, bool)

	// Rebuild performs a full rebuild unless one completed within the
	// refresh interval or another rebuild is already running.
	Rebuild(ctx context.Context) error

	// RebuildNow bypasses the debounce window and waits for completion.
	RebuildNow(ctx context.Context) error

	// MarkStale records that the corpus changed and kicks an async
	// debounced rebuild.
	MarkStale()

	// Invalidate drops the published snapshot. The next search triggers
	// a synchronous rebuild.
	Invalidate()
}

// SearchService ranks chunks against a natural-language query.
type SearchService interface {
	Search(ctx context.Context, query string, opts *models.SearchOptions) ([]*models.SearchResult, error)
}

// DocumentService orchestrates ingestion, lookup and deletion.
type DocumentService interface {
	Ingest(ctx context.Context, content, filename string, opts *models.IngestOptions) (*models.Document, error)
	Search(ctx context.Context, query string, opts *models.SearchOptions) ([]*models.SearchResult, error)
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	GetChunks(ctx context.Context, documentID string) ([]*models.Chunk, error)
	ListDocuments(ctx context.Context) ([]*models.Document, error)
	DeleteDocument(ctx context.Context, id string) (bool, error)
	ClearCaches(ctx context.Context) error
	Stats(ctx context.Context) (*models.DocumentStats, error)
}
