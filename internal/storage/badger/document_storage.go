package badger

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/recall/internal/interfaces"
	"github.com/ternarybob/recall/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// corpusStatsKey is the key of the single persisted CorpusStats record.
const corpusStatsKey = "corpus_stats"

// DocumentStorage implements the DocumentStorage interface for Badger
type DocumentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewDocumentStorage creates a new DocumentStorage instance
func NewDocumentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.DocumentStorage {
	return &DocumentStorage{
		db:     db,
		logger: logger,
	}
}

// SaveDocument persists the document and its chunks, replacing any chunks
// stored for the same ID by a previous ingestion.
func (s *DocumentStorage) SaveDocument(doc *models.Document, chunks []*models.Chunk) error {
	if doc.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	// Drop chunks from a prior ingestion first so a smaller re-chunk
	// leaves no orphans behind.
	if err := s.deleteChunks(doc.ID); err != nil {
		return fmt.Errorf("failed to clear existing chunks: %w", err)
	}

	if err := s.db.Store().Upsert(doc.ID, doc); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}

	for _, chunk := range chunks {
		if err := s.db.Store().Upsert(chunk.Key(), chunk); err != nil {
			return fmt.Errorf("failed to save chunk %s: %w", chunk.Key(), err)
		}
	}
	return nil
}

func (s *DocumentStorage) GetDocument(id string) (*models.Document, error) {
	var doc models.Document
	if err := s.db.Store().Get(id, &doc); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// ListDocuments returns all documents. Unreadable records are logged and
// skipped rather than failing the whole listing.
func (s *DocumentStorage) ListDocuments() ([]*models.Document, error) {
	var docs []models.Document
	if err := s.db.Store().Find(&docs, nil); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	result := make([]*models.Document, 0, len(docs))
	for i := range docs {
		if docs[i].ID == "" {
			s.logger.Warn().Str("filename", docs[i].Filename).Msg("Skipping document record with empty ID")
			continue
		}
		result = append(result, &docs[i])
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// DeleteDocument removes the document and all its chunks. It returns
// whether a document existed.
func (s *DocumentStorage) DeleteDocument(id string) (bool, error) {
	existed := true
	if err := s.db.Store().Delete(id, &models.Document{}); err != nil {
		if !errors.Is(err, badgerhold.ErrNotFound) {
			return false, fmt.Errorf("failed to delete document: %w", err)
		}
		existed = false
	}

	if err := s.deleteChunks(id); err != nil {
		return existed, fmt.Errorf("failed to delete chunks: %w", err)
	}
	return existed, nil
}

func (s *DocumentStorage) CountDocuments() (int, error) {
	count, err := s.db.Store().Count(&models.Document{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return int(count), nil
}

// GetChunks returns the chunks of a document ordered by sequence number.
func (s *DocumentStorage) GetChunks(documentID string) ([]*models.Chunk, error) {
	var chunks []models.Chunk
	if err := s.db.Store().Find(&chunks, badgerhold.Where("DocumentID").Eq(documentID)); err != nil {
		return nil, fmt.Errorf("failed to get chunks: %w", err)
	}

	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Seq < chunks[j].Seq
	})

	result := make([]*models.Chunk, len(chunks))
	for i := range chunks {
		result[i] = &chunks[i]
	}
	return result, nil
}

func (s *DocumentStorage) GetChunk(documentID string, seq int) (*models.Chunk, error) {
	var chunk models.Chunk
	if err := s.db.Store().Get(models.ChunkKey(documentID, seq), &chunk); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get chunk: %w", err)
	}
	return &chunk, nil
}

func (s *DocumentStorage) CountChunks() (int, error) {
	count, err := s.db.Store().Count(&models.Chunk{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return int(count), nil
}

// SaveCorpusStats rewrites the single corpus statistics record.
func (s *DocumentStorage) SaveCorpusStats(stats *models.CorpusStats) error {
	stats.UpdatedAt = time.Now()
	if err := s.db.Store().Upsert(corpusStatsKey, stats); err != nil {
		return fmt.Errorf("failed to save corpus stats: %w", err)
	}
	return nil
}

func (s *DocumentStorage) GetCorpusStats() (*models.CorpusStats, error) {
	var stats models.CorpusStats
	if err := s.db.Store().Get(corpusStatsKey, &stats); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get corpus stats: %w", err)
	}
	return &stats, nil
}

// ClearAll removes all documents, chunks and corpus statistics.
func (s *DocumentStorage) ClearAll() error {
	if err := s.db.Store().DeleteMatching(&models.Chunk{}, nil); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}
	if err := s.db.Store().DeleteMatching(&models.Document{}, nil); err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}
	if err := s.db.Store().DeleteMatching(&models.CorpusStats{}, nil); err != nil {
		return fmt.Errorf("failed to clear corpus stats: %w", err)
	}
	return nil
}

func (s *DocumentStorage) deleteChunks(documentID string) error {
	if err := s.db.Store().DeleteMatching(&models.Chunk{}, badgerhold.Where("DocumentID").Eq(documentID)); err != nil {
		return err
	}
	return nil
}
