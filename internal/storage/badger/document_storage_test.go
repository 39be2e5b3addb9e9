package badger

import (
	"errors"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/recall/internal/common"
	"github.com/ternarybob/recall/internal/interfaces"
	"github.com/ternarybob/recall/internal/models"
)

func newTestStorage(t *testing.T) interfaces.DocumentStorage {
	t.Helper()

	logger := arbor.NewLogger()
	db, err := NewBadgerDB(logger, &common.BadgerConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewDocumentStorage(db, logger)
}

func testDocument(id string) (*models.Document, []*models.Chunk) {
	doc := &models.Document{
		ID:           id,
		Filename:     "notes.txt",
		FileType:     models.FileTypeText,
		ChunkSize:    100,
		ChunkOverlap: 20,
		ChunkMode:    models.ChunkModeFixed,
		TotalChunks:  3,
		TotalChars:   260,
	}
	chunks := []*models.Chunk{
		{DocumentID: id, Seq: 0, Content: "first chunk", StartChar: 0, EndChar: 100, Filename: "notes.txt"},
		{DocumentID: id, Seq: 1, Content: "second chunk", StartChar: 80, EndChar: 180, Filename: "notes.txt"},
		{DocumentID: id, Seq: 2, Content: "third chunk", StartChar: 160, EndChar: 260, Filename: "notes.txt"},
	}
	return doc, chunks
}

func TestDocumentRoundTrip(t *testing.T) {
	storage := newTestStorage(t)

	doc, chunks := testDocument("doc-1")
	if err := storage.SaveDocument(doc, chunks); err != nil {
		t.Fatalf("Failed to save document: %v", err)
	}

	got, err := storage.GetDocument("doc-1")
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if got.Filename != "notes.txt" || got.TotalChunks != 3 {
		t.Errorf("Unexpected document: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should have been set on save")
	}

	gotChunks, err := storage.GetChunks("doc-1")
	if err != nil {
		t.Fatalf("Failed to get chunks: %v", err)
	}
	if len(gotChunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(gotChunks))
	}
	for i, chunk := range gotChunks {
		if chunk.Seq != i {
			t.Errorf("Chunks out of order: position %d has seq %d", i, chunk.Seq)
		}
	}

	count, err := storage.CountChunks()
	if err != nil {
		t.Fatalf("Failed to count chunks: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 chunks counted, got %d", count)
	}
}

func TestSaveDocumentReplacesChunks(t *testing.T) {
	storage := newTestStorage(t)

	doc, chunks := testDocument("doc-1")
	if err := storage.SaveDocument(doc, chunks); err != nil {
		t.Fatalf("Failed to save document: %v", err)
	}

	// Re-ingest with fewer chunks; the old tail must not survive
	doc2, chunks2 := testDocument("doc-1")
	doc2.TotalChunks = 2
	if err := storage.SaveDocument(doc2, chunks2[:2]); err != nil {
		t.Fatalf("Failed to re-save document: %v", err)
	}

	gotChunks, err := storage.GetChunks("doc-1")
	if err != nil {
		t.Fatalf("Failed to get chunks: %v", err)
	}
	if len(gotChunks) != 2 {
		t.Errorf("Expected 2 chunks after re-save, got %d", len(gotChunks))
	}
}

func TestDeleteDocument(t *testing.T) {
	storage := newTestStorage(t)

	doc, chunks := testDocument("doc-1")
	if err := storage.SaveDocument(doc, chunks); err != nil {
		t.Fatalf("Failed to save document: %v", err)
	}

	existed, err := storage.DeleteDocument("doc-1")
	if err != nil {
		t.Fatalf("Failed to delete document: %v", err)
	}
	if !existed {
		t.Error("Delete should report the document existed")
	}

	if _, err := storage.GetDocument("doc-1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}

	gotChunks, err := storage.GetChunks("doc-1")
	if err != nil {
		t.Fatalf("Failed to get chunks: %v", err)
	}
	if len(gotChunks) != 0 {
		t.Errorf("Expected no chunks after delete, got %d", len(gotChunks))
	}

	existed, err = storage.DeleteDocument("doc-1")
	if err != nil {
		t.Fatalf("Second delete failed: %v", err)
	}
	if existed {
		t.Error("Second delete should report the document was absent")
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	storage := newTestStorage(t)

	if _, err := storage.GetDocument("missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := storage.GetChunk("missing", 0); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for chunk, got %v", err)
	}
}

func TestClearAll(t *testing.T) {
	storage := newTestStorage(t)

	doc, chunks := testDocument("doc-1")
	if err := storage.SaveDocument(doc, chunks); err != nil {
		t.Fatalf("Failed to save document: %v", err)
	}
	if err := storage.SaveCorpusStats(&models.CorpusStats{TotalDocuments: 1}); err != nil {
		t.Fatalf("Failed to save corpus stats: %v", err)
	}

	if err := storage.ClearAll(); err != nil {
		t.Fatalf("Failed to clear store: %v", err)
	}

	count, err := storage.CountDocuments()
	if err != nil {
		t.Fatalf("Failed to count documents: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 documents after clear, got %d", count)
	}
	count, err = storage.CountChunks()
	if err != nil {
		t.Fatalf("Failed to count chunks: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 chunks after clear, got %d", count)
	}
	if _, err := storage.GetCorpusStats(); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for corpus stats after clear, got %v", err)
	}
}

func TestCorpusStatsRoundTrip(t *testing.T) {
	storage := newTestStorage(t)

	if _, err := storage.GetCorpusStats(); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound before first save, got %v", err)
	}

	stats := &models.CorpusStats{
		DocumentFrequency: map[string]int{"fox": 2, "dog": 1},
		TotalDocuments:    2,
	}
	if err := storage.SaveCorpusStats(stats); err != nil {
		t.Fatalf("Failed to save corpus stats: %v", err)
	}

	got, err := storage.GetCorpusStats()
	if err != nil {
		t.Fatalf("Failed to get corpus stats: %v", err)
	}
	if got.TotalDocuments != 2 || got.DocumentFrequency["fox"] != 2 {
		t.Errorf("Unexpected corpus stats: %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should have been set on save")
	}
}
