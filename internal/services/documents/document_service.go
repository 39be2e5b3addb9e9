// Package documents orchestrates the ingestion pipeline and fronts the
// store with the two cache tiers.
package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/recall/internal/common"
	"github.com/ternarybob/recall/internal/interfaces"
	"github.com/ternarybob/recall/internal/models"
	"github.com/ternarybob/recall/internal/services/cache"
)

// Service implements DocumentService
type Service struct {
	storage   interfaces.DocumentStorage
	chunker   interfaces.ChunkerService
	transform interfaces.TransformService
	index     interfaces.IndexService
	search    interfaces.SearchService
	events    interfaces.EventService

	metaCache  *cache.Cache[*models.Document]
	chunkCache *cache.Cache[[]*models.Chunk]

	chunking *common.ChunkingConfig
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewService creates a new document service
func NewService(
	storage interfaces.DocumentStorage,
	chunkerService interfaces.ChunkerService,
	transformService interfaces.TransformService,
	indexService interfaces.IndexService,
	searchService interfaces.SearchService,
	eventService interfaces.EventService,
	metaCache *cache.Cache[*models.Document],
	chunkCache *cache.Cache[[]*models.Chunk],
	chunking *common.ChunkingConfig,
	logger arbor.ILogger,
) interfaces.DocumentService {
	return &Service{
		storage:    storage,
		chunker:    chunkerService,
		transform:  transformService,
		index:      indexService,
		search:     searchService,
		events:     eventService,
		metaCache:  metaCache,
		chunkCache: chunkCache,
		chunking:   chunking,
		validate:   validator.New(),
		logger:     logger,
	}
}

// Ingest normalizes, chunks and persists one document, then marks the
// index stale. With opts.WaitForIndex the call blocks until the index
// has been rebuilt, so a subsequent search is guaranteed to see the new
// content.
func (s *Service) Ingest(ctx context.Context, content, filename string, opts *models.IngestOptions) (*models.Document, error) {
	if opts == nil {
		opts = &models.IngestOptions{}
	}
	if err := s.validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("invalid ingest options: %w", err)
	}

	size := opts.ChunkSize
	if size <= 0 {
		size = s.chunking.Size
	}
	overlap := s.chunking.Overlap
	if opts.ChunkOverlap != nil {
		overlap = *opts.ChunkOverlap
	}
	mode := opts.ChunkMode
	if mode == "" {
		mode = s.chunking.Mode
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", overlap, size)
	}

	started := time.Now()

	normalized, err := s.transform.Normalize(content, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize %s: %w", filename, err)
	}

	id := common.ContentID(normalized.Text)

	chunks := s.chunker.Chunk(normalized.Text, size, overlap, mode)
	for _, chunk := range chunks {
		chunk.DocumentID = id
		chunk.Filename = filename
	}

	doc := &models.Document{
		ID:           id,
		Filename:     filename,
		FileType:     normalized.FileType,
		Title:        normalized.Title,
		ChunkSize:    size,
		ChunkOverlap: overlap,
		ChunkMode:    mode,
		TotalChunks:  len(chunks),
		TotalChars:   len([]rune(normalized.Text)),
		ProcessingMS: time.Since(started).Milliseconds(),
		CreatedAt:    time.Now(),
	}

	if err := s.storage.SaveDocument(doc, chunks); err != nil {
		return nil, fmt.Errorf("failed to persist document: %w", err)
	}

	s.metaCache.Put(id, doc)
	s.chunkCache.Put(id, chunks)

	s.publishEvent(ctx, interfaces.EventDocumentIngested, id)
	s.publishEvent(ctx, interfaces.EventIndexStale, id)

	if opts.WaitForIndex {
		if err := s.index.RebuildNow(ctx); err != nil {
			return nil, fmt.Errorf("failed to rebuild index after ingest: %w", err)
		}
	}

	s.logger.Info().
		Str("doc_id", id).
		Str("filename", filename).
		Str("file_type", doc.FileType).
		Int("chunks", len(chunks)).
		Int64("processing_ms", doc.ProcessingMS).
		Msg("Document ingested")

	return doc, nil
}

// Search delegates to the search service
func (s *Service) Search(ctx context.Context, query string, opts *models.SearchOptions) ([]*models.SearchResult, error) {
	return s.search.Search(ctx, query, opts)
}

// GetDocument returns document metadata, cache first
func (s *Service) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	if doc, ok := s.metaCache.Get(id); ok {
		return doc, nil
	}

	doc, err := s.storage.GetDocument(id)
	if err != nil {
		return nil, err
	}
	s.metaCache.Put(id, doc)
	return doc, nil
}

// GetChunks returns a document's chunks in order, cache first
func (s *Service) GetChunks(ctx context.Context, documentID string) ([]*models.Chunk, error) {
	if chunks, ok := s.chunkCache.Get(documentID); ok {
		return chunks, nil
	}

	chunks, err := s.storage.GetChunks(documentID)
	if err != nil {
		return nil, err
	}
	s.chunkCache.Put(documentID, chunks)
	return chunks, nil
}

// ListDocuments returns all document metadata
func (s *Service) ListDocuments(ctx context.Context) ([]*models.Document, error) {
	return s.storage.ListDocuments()
}

// DeleteDocument removes a document and its chunks. It returns whether
// the document existed.
func (s *Service) DeleteDocument(ctx context.Context, id string) (bool, error) {
	existed, err := s.storage.DeleteDocument(id)
	if err != nil {
		return false, err
	}

	s.metaCache.Invalidate(id)
	s.chunkCache.Invalidate(id)

	if existed {
		s.publishEvent(ctx, interfaces.EventDocumentDeleted, id)
		s.publishEvent(ctx, interfaces.EventIndexStale, id)
		s.logger.Info().Str("doc_id", id).Msg("Document deleted")
	}

	return existed, nil
}

// ClearCaches empties both cache tiers and drops the index snapshot.
// Stored documents are untouched; the next search rebuilds from disk.
func (s *Service) ClearCaches(ctx context.Context) error {
	s.metaCache.Clear()
	s.chunkCache.Clear()
	s.index.Invalidate()
	s.logger.Info().Msg("Caches cleared and index invalidated")
	return nil
}

// Stats summarizes the corpus and index state
func (s *Service) Stats(ctx context.Context) (*models.DocumentStats, error) {
	totalDocs, err := s.storage.CountDocuments()
	if err != nil {
		return nil, err
	}
	totalChunks, err := s.storage.CountChunks()
	if err != nil {
		return nil, err
	}

	stats := &models.DocumentStats{
		TotalDocuments: totalDocs,
		TotalChunks:    totalChunks,
		IndexedTerms:   s.index.TermCount(),
	}
	if builtAt, ok := s.index.BuiltAt(); ok {
		stats.IndexBuiltAt = builtAt
	}

	if corpus, err := s.storage.GetCorpusStats(); err == nil {
		stats.LastUpdated = corpus.UpdatedAt
	} else if !errors.Is(err, models.ErrNotFound) {
		s.logger.Warn().Err(err).Msg("Failed to read corpus stats")
	}

	return stats, nil
}

func (s *Service) publishEvent(ctx context.Context, eventType interfaces.EventType, docID string) {
	if err := s.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: docID}); err != nil {
		s.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to publish event")
	}
}

var _ interfaces.DocumentService = (*Service)(nil)
