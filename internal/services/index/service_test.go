package index

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/recall/internal/common"
	"github.com/ternarybob/recall/internal/interfaces"
	"github.com/ternarybob/recall/internal/models"
	badgerstore "github.com/ternarybob/recall/internal/storage/badger"
)

func newTestIndex(t *testing.T) (*Service, interfaces.DocumentStorage) {
	t.Helper()

	logger := arbor.NewLogger()
	db, err := badgerstore.NewBadgerDB(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	storage := badgerstore.NewDocumentStorage(db, logger)
	svc := NewService(storage, &common.IndexConfig{RefreshInterval: time.Hour, Workers: 2}, logger)
	return svc, storage
}

func saveDoc(t *testing.T, storage interfaces.DocumentStorage, id string, contents ...string) {
	t.Helper()

	doc := &models.Document{ID: id, Filename: id + ".txt", FileType: models.FileTypeText, TotalChunks: len(contents)}
	chunks := make([]*models.Chunk, len(contents))
	for i, content := range contents {
		chunks[i] = &models.Chunk{DocumentID: id, Seq: i, Content: content, Filename: doc.Filename}
	}
	require.NoError(t, storage.SaveDocument(doc, chunks))
}

func TestIndexNotReadyBeforeBuild(t *testing.T) {
	svc, _ := newTestIndex(t)

	assert.False(t, svc.Ready())
	assert.Nil(t, svc.Lookup("fox"))
	assert.Equal(t, 0, svc.TermCount())
	_, ok := svc.BuiltAt()
	assert.False(t, ok)
}

func TestRebuildScoring(t *testing.T) {
	svc, storage := newTestIndex(t)

	saveDoc(t, storage, "aaa", "the quick brown fox")
	saveDoc(t, storage, "bbb", "lazy dog sleeps")

	require.NoError(t, svc.RebuildNow(context.Background()))
	require.True(t, svc.Ready())

	// fox appears once among 3 surviving tokens of chunk aaa:0, in 1 of
	// 2 documents: tf * ln(N/df + 1) = (1/3) * ln(3)
	postings := svc.Lookup("fox")
	require.NotNil(t, postings)
	assert.InDelta(t, math.Log(3)/3, postings["aaa:0"], 1e-9)

	// Stop words and short tokens never reach the index
	assert.Nil(t, svc.Lookup("the"))

	assert.Nil(t, svc.Lookup("unicorn"))
	assert.Greater(t, svc.TermCount(), 0)
}

func TestPostingsBeforeBuild(t *testing.T) {
	svc, _ := newTestIndex(t)

	assert.Nil(t, svc.Postings([]string{"fox"}))
}

func TestPostingsResolvesAllTermsFromOneSnapshot(t *testing.T) {
	svc, storage := newTestIndex(t)

	saveDoc(t, storage, "aaa", "quick brown fox")
	saveDoc(t, storage, "bbb", "lazy dog sleeps")
	require.NoError(t, svc.RebuildNow(context.Background()))

	postings := svc.Postings([]string{"fox", "dog", "unicorn"})
	require.NotNil(t, postings)

	assert.Contains(t, postings, "fox")
	assert.Contains(t, postings, "dog")
	assert.NotContains(t, postings, "unicorn")

	// Matches the single-term view of the same snapshot
	assert.Equal(t, svc.Lookup("fox"), postings["fox"])
	assert.Equal(t, svc.Lookup("dog"), postings["dog"])
}

func TestRebuildDebounce(t *testing.T) {
	svc, storage := newTestIndex(t)
	saveDoc(t, storage, "aaa", "quick brown fox")

	require.NoError(t, svc.RebuildNow(context.Background()))
	first, ok := svc.BuiltAt()
	require.True(t, ok)

	// Within the refresh interval the rebuild is a no-op
	require.NoError(t, svc.Rebuild(context.Background()))
	second, ok := svc.BuiltAt()
	require.True(t, ok)
	assert.True(t, first.Equal(second), "debounced rebuild must not replace the snapshot")

	// RebuildNow bypasses the debounce
	require.NoError(t, svc.RebuildNow(context.Background()))
	third, ok := svc.BuiltAt()
	require.True(t, ok)
	assert.True(t, third.After(first))
}

func TestRebuildSingleFlight(t *testing.T) {
	svc, storage := newTestIndex(t)
	saveDoc(t, storage, "aaa", "quick brown fox")

	// Simulate an in-flight rebuild by holding the build lock
	svc.buildMu.Lock()
	require.NoError(t, svc.Rebuild(context.Background()))
	assert.False(t, svc.Ready(), "concurrent rebuild request must return without building")
	svc.buildMu.Unlock()

	require.NoError(t, svc.RebuildNow(context.Background()))
	assert.True(t, svc.Ready())
}

func TestMarkStaleTriggersAsyncRebuild(t *testing.T) {
	svc, storage := newTestIndex(t)

	saveDoc(t, storage, "aaa", "quick brown fox")
	require.NoError(t, svc.RebuildNow(context.Background()))
	first, _ := svc.BuiltAt()

	saveDoc(t, storage, "bbb", "lazy dog sleeps")
	svc.MarkStale()

	assert.Eventually(t, func() bool {
		builtAt, ok := svc.BuiltAt()
		return ok && builtAt.After(first)
	}, 5*time.Second, 20*time.Millisecond, "MarkStale should kick a background rebuild")

	assert.NotNil(t, svc.Lookup("dog"))
}

func TestInvalidateDropsSnapshot(t *testing.T) {
	svc, storage := newTestIndex(t)

	saveDoc(t, storage, "aaa", "quick brown fox")
	require.NoError(t, svc.RebuildNow(context.Background()))
	require.True(t, svc.Ready())

	svc.Invalidate()
	assert.False(t, svc.Ready())
	assert.Nil(t, svc.Lookup("fox"))

	// Invalidate also resets the debounce, so a plain Rebuild works
	require.NoError(t, svc.Rebuild(context.Background()))
	assert.True(t, svc.Ready())
}

func TestRebuildPersistsCorpusStats(t *testing.T) {
	svc, storage := newTestIndex(t)

	saveDoc(t, storage, "aaa", "quick brown fox", "fox again here")
	saveDoc(t, storage, "bbb", "lazy dog sleeps")

	require.NoError(t, svc.RebuildNow(context.Background()))

	stats, err := storage.GetCorpusStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalDocuments)
	assert.Equal(t, 1, stats.DocumentFrequency["fox"], "df counts documents, not occurrences")
	assert.Equal(t, 1, stats.DocumentFrequency["dog"])
}

func TestRebuildEmptyCorpus(t *testing.T) {
	svc, _ := newTestIndex(t)

	require.NoError(t, svc.RebuildNow(context.Background()))
	assert.True(t, svc.Ready())
	assert.Equal(t, 0, svc.TermCount())
}
