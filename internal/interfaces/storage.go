package interfaces

import (
	"github.com/ternarybob/recall/internal/models"
)

// DocumentStorage - interface for document and chunk persistence
type DocumentStorage interface {
	// Document operations
	SaveDocument(doc *models.Document, chunks []*models.Chunk) error
	GetDocument(id string) (*models.Document, error)
	ListDocuments() ([]*models.Document, error)
	DeleteDocument(id string) (bool, error)
	CountDocuments() (int, error)

	// Chunk operations
	GetChunks(documentID string) ([]*models.Chunk, error)
	GetChunk(documentID string, seq int) (*models.Chunk, error)
	CountChunks() (int, error)

	// Corpus statistics (single persisted record)
	SaveCorpusStats(stats *models.CorpusStats) error
	GetCorpusStats() (*models.CorpusStats, error)

	// Bulk operations
	ClearAll() error
}

// StorageManager - composite interface for storage lifecycle
type StorageManager interface {
	DocumentStorage() DocumentStorage
	DB() interface{}

	// RunGC performs storage-engine garbage collection. Safe to call
	// periodically; a cycle with nothing to reclaim is not an error.
	RunGC() error

	Close() error
}
