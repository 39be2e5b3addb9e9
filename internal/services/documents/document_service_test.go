package documents

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/recall/internal/common"
	"github.com/ternarybob/recall/internal/interfaces"
	"github.com/ternarybob/recall/internal/models"
	"github.com/ternarybob/recall/internal/services/cache"
	"github.com/ternarybob/recall/internal/services/chunker"
	"github.com/ternarybob/recall/internal/services/events"
	"github.com/ternarybob/recall/internal/services/index"
	"github.com/ternarybob/recall/internal/services/search"
	"github.com/ternarybob/recall/internal/services/transform"
	badgerstore "github.com/ternarybob/recall/internal/storage/badger"
)

func newTestService(t *testing.T) (interfaces.DocumentService, interfaces.DocumentStorage) {
	t.Helper()

	logger := arbor.NewLogger()
	db, err := badgerstore.NewBadgerDB(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	storage := badgerstore.NewDocumentStorage(db, logger)
	eventService := events.NewService(logger)
	t.Cleanup(func() { eventService.Close() })

	indexService := index.NewService(storage, &common.IndexConfig{RefreshInterval: time.Hour, Workers: 2}, logger)
	metaCache := cache.New[*models.Document]("metadata", 64, time.Minute, logger)
	chunkCache := cache.New[[]*models.Chunk]("chunks", 64, time.Minute, logger)
	searchService := search.NewService(storage, indexService, chunkCache, &common.SearchConfig{TopK: 3}, logger)

	svc := NewService(
		storage,
		chunker.NewService(logger),
		transform.NewService(logger),
		indexService,
		searchService,
		eventService,
		metaCache,
		chunkCache,
		&common.ChunkingConfig{Size: 1000, Overlap: 200, Mode: models.ChunkModeStructure},
		logger,
	)
	return svc, storage
}

func TestIngestAndSearch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Ingest(ctx,
		"The quick brown fox jumps over the lazy dog.",
		"animals.txt",
		&models.IngestOptions{WaitForIndex: true})
	require.NoError(t, err)
	require.NotNil(t, doc)

	assert.Len(t, doc.ID, 64, "document ID is the content hash")
	assert.Equal(t, models.FileTypeText, doc.FileType)
	assert.Equal(t, 1, doc.TotalChunks)

	results, err := svc.Search(ctx, "brown fox", nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, doc.ID, results[0].Chunk.DocumentID)
}

func TestIngestSameContentSameID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Ingest(ctx, "identical content here", "a.txt", nil)
	require.NoError(t, err)

	// Same text under a different filename resolves to the same document
	second, err := svc.Ingest(ctx, "identical content here", "b.txt", nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	docs, err := svc.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	assert.Equal(t, "b.txt", docs[0].Filename, "re-ingest overwrites metadata")
}

func TestIngestCustomChunking(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	text := strings.Repeat("x", 250)
	overlap := 20

	doc, err := svc.Ingest(ctx, text, "big.txt", &models.IngestOptions{
		ChunkSize:    100,
		ChunkOverlap: &overlap,
		ChunkMode:    models.ChunkModeFixed,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, doc.TotalChunks)
	assert.Equal(t, 100, doc.ChunkSize)
	assert.Equal(t, 20, doc.ChunkOverlap)

	chunks, err := svc.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Seq)
		assert.Equal(t, doc.ID, chunk.DocumentID)
	}
}

func TestIngestExplicitZeroOverlap(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	text := strings.Repeat("x", 250)
	overlap := 0

	// An explicit zero must not fall back to the configured default
	doc, err := svc.Ingest(ctx, text, "flat.txt", &models.IngestOptions{
		ChunkSize:    100,
		ChunkOverlap: &overlap,
		ChunkMode:    models.ChunkModeFixed,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, doc.ChunkOverlap)
	assert.Equal(t, 3, doc.TotalChunks)

	chunks, err := svc.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, 100, chunks[1].StartChar, "zero overlap means adjacent windows")
	assert.Equal(t, 200, chunks[2].StartChar)
}

func TestIngestRejectsOverlapNotSmallerThanSize(t *testing.T) {
	svc, _ := newTestService(t)

	overlap := 100
	_, err := svc.Ingest(context.Background(), "some text", "bad.txt", &models.IngestOptions{
		ChunkSize:    100,
		ChunkOverlap: &overlap,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlap")
}

func TestDeleteDocument(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Ingest(ctx, "searchable ferret facts", "ferret.txt", &models.IngestOptions{WaitForIndex: true})
	require.NoError(t, err)

	existed, err := svc.DeleteDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, existed)

	_, err = svc.GetDocument(ctx, doc.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	// Stale postings may linger until the next rebuild, but chunks that
	// no longer materialize from the store are dropped from results
	results, err := svc.Search(ctx, "ferret", nil)
	require.NoError(t, err)
	assert.Empty(t, results)

	existed, err = svc.DeleteDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.False(t, existed, "second delete reports the document missing")
}

func TestClearCaches(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Ingest(ctx, "persistent badger content", "badger.txt", &models.IngestOptions{WaitForIndex: true})
	require.NoError(t, err)

	require.NoError(t, svc.ClearCaches(ctx))

	// Documents survive a cache clear; the index rebuilds on demand
	got, err := svc.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)

	results, err := svc.Search(ctx, "badger", nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, doc.ID, results[0].Chunk.DocumentID)
}

func TestStats(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, "first document about foxes", "one.txt", &models.IngestOptions{WaitForIndex: true})
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, "second document about badgers", "two.txt", &models.IngestOptions{WaitForIndex: true})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalDocuments)
	assert.Equal(t, 2, stats.TotalChunks)
	assert.Greater(t, stats.IndexedTerms, 0)
	assert.False(t, stats.IndexBuiltAt.IsZero())
}

func TestIngestPersistsProcessingTime(t *testing.T) {
	svc, storage := newTestService(t)

	doc, err := svc.Ingest(context.Background(), "timed content for the store", "timed.txt", nil)
	require.NoError(t, err)

	// The stored record must carry the same duration the caller saw,
	// not a zero written before the measurement
	stored, err := storage.GetDocument(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ProcessingMS, stored.ProcessingMS)
	assert.GreaterOrEqual(t, stored.ProcessingMS, int64(0))
}

func TestIngestMarkdownExtractsTitle(t *testing.T) {
	svc, _ := newTestService(t)

	doc, err := svc.Ingest(context.Background(),
		"# Release Notes\n\nFixed the login bug.\n",
		"notes.md", nil)
	require.NoError(t, err)
	assert.Equal(t, models.FileTypeMarkdown, doc.FileType)
	assert.Equal(t, "Release Notes", doc.Title)
}
