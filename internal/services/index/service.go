// Package index maintains an inverted TF-IDF index over all stored
// chunks. The index is rebuilt from the store as a whole and published
// as an immutable snapshot, so searches never observe a half-built
// index.
package index

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/recall/internal/common"
	"github.com/ternarybob/recall/internal/interfaces"
	"github.com/ternarybob/recall/internal/models"
	"golang.org/x/sync/errgroup"
)

// maxRebuildWorkers caps the rebuild fan-out regardless of core count.
const maxRebuildWorkers = 8

// snapshot is one immutable build of the inverted index.
type snapshot struct {
	// postings maps term -> chunk key -> tf-idf score
	postings map[string]map[string]float64
	builtAt  time.Time
}

// Service implements IndexService
type Service struct {
	storage         interfaces.DocumentStorage
	logger          arbor.ILogger
	refreshInterval time.Duration
	workers         int

	// snapMu guards the published snapshot; searches take the read lock
	snapMu sync.RWMutex
	snap   *snapshot

	// buildMu serializes rebuilds. Rebuild uses TryLock for
	// single-flight semantics; RebuildNow blocks on it.
	buildMu sync.Mutex

	// stateMu guards lastBuilt, the debounce marker
	stateMu   sync.Mutex
	lastBuilt time.Time
}

// NewService creates a new index service
func NewService(storage interfaces.DocumentStorage, config *common.IndexConfig, logger arbor.ILogger) *Service {
	workers := config.Workers
	if workers <= 0 {
		workers = 2 * runtime.GOMAXPROCS(0)
		if workers > maxRebuildWorkers {
			workers = maxRebuildWorkers
		}
	}
	return &Service{
		storage:         storage,
		logger:          logger,
		refreshInterval: config.RefreshInterval,
		workers:         workers,
	}
}

// Lookup returns the per-chunk scores for one term from the published
// snapshot. The returned map is shared and must not be mutated.
func (s *Service) Lookup(term string) map[string]float64 {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	if s.snap == nil {
		return nil
	}
	return s.snap.postings[term]
}

// Postings resolves all terms against the same published snapshot under
// one read lock. The returned inner maps are shared and must not be
// mutated.
func (s *Service) Postings(terms []string) map[string]map[string]float64 {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	if s.snap == nil {
		return nil
	}
	out := make(map[string]map[string]float64, len(terms))
	for _, term := range terms {
		if postings, ok := s.snap.postings[term]; ok {
			out[term] = postings
		}
	}
	return out
}

// Ready reports whether a snapshot is published
func (s *Service) Ready() bool {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap != nil
}

// TermCount returns the number of distinct indexed terms
func (s *Service) TermCount() int {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	if s.snap == nil {
		return 0
	}
	return len(s.snap.postings)
}

// BuiltAt returns when the published snapshot was built
func (s *Service) BuiltAt() (time.Time, bool) {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	if s.snap == nil {
		return time.Time{}, false
	}
	return s.snap.builtAt, true
}

// Rebuild performs a full index rebuild unless one completed within the
// refresh interval or another rebuild is already in flight. Both cases
// return nil: the caller asked for a fresh index and one is either
// recent enough or on the way.
func (s *Service) Rebuild(ctx context.Context) error {
	s.stateMu.Lock()
	recent := !s.lastBuilt.IsZero() && time.Since(s.lastBuilt) < s.refreshInterval
	s.stateMu.Unlock()
	if recent {
		s.logger.Debug().Msg("Index rebuild skipped, last build within refresh interval")
		return nil
	}

	if !s.buildMu.TryLock() {
		s.logger.Debug().Msg("Index rebuild skipped, another rebuild in flight")
		return nil
	}
	defer s.buildMu.Unlock()

	return s.build(ctx)
}

// RebuildNow bypasses the debounce window, waits for any in-flight
// rebuild to finish and then rebuilds. Used for read-your-writes
// ingestion and for searches that find no published snapshot.
func (s *Service) RebuildNow(ctx context.Context) error {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()
	return s.build(ctx)
}

// MarkStale records that the corpus changed and kicks an asynchronous
// rebuild. Resetting the debounce marker means the next rebuild request
// is never skipped as "recent".
func (s *Service) MarkStale() {
	s.stateMu.Lock()
	s.lastBuilt = time.Time{}
	s.stateMu.Unlock()

	common.SafeGo(s.logger, "indexRebuild", func() {
		if err := s.Rebuild(context.Background()); err != nil {
			s.logger.Error().Err(err).Msg("Background index rebuild failed")
		}
	})
}

// Invalidate drops the published snapshot and the debounce marker. The
// next search will rebuild synchronously.
func (s *Service) Invalidate() {
	s.snapMu.Lock()
	s.snap = nil
	s.snapMu.Unlock()

	s.stateMu.Lock()
	s.lastBuilt = time.Time{}
	s.stateMu.Unlock()

	s.logger.Debug().Msg("Index snapshot invalidated")
}

// build scans the whole store and publishes a new snapshot. Callers
// must hold buildMu.
func (s *Service) build(ctx context.Context) error {
	runID := uuid.New().String()[:8]
	started := time.Now()

	docs, err := s.storage.ListDocuments()
	if err != nil {
		return fmt.Errorf("failed to list documents for rebuild: %w", err)
	}

	type docChunks struct {
		doc    *models.Document
		chunks []*models.Chunk
	}

	results := make([]docChunks, len(docs))

	// Fan the chunk reads out over a bounded pool. Unreadable documents
	// are logged and skipped so one bad record cannot block the rebuild.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			chunks, err := s.storage.GetChunks(doc.ID)
			if err != nil {
				s.logger.Warn().
					Err(err).
					Str("doc_id", doc.ID).
					Str("run_id", runID).
					Msg("Skipping unreadable document during index rebuild")
				return nil
			}
			results[i] = docChunks{doc: doc, chunks: chunks}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("index rebuild cancelled: %w", err)
	}

	// Document frequency: distinct documents containing each term
	df := make(map[string]int)
	totalDocs := 0
	for _, dc := range results {
		if dc.doc == nil {
			continue
		}
		totalDocs++
		seen := make(map[string]struct{})
		for _, chunk := range dc.chunks {
			for _, token := range Tokenize(chunk.Content) {
				seen[token] = struct{}{}
			}
		}
		for token := range seen {
			df[token]++
		}
	}

	// Scoring pass, single threaded over the collected chunks
	postings := make(map[string]map[string]float64)
	totalChunks := 0
	for _, dc := range results {
		if dc.doc == nil {
			continue
		}
		for _, chunk := range dc.chunks {
			counts, total := TokenCounts(chunk.Content)
			if total == 0 {
				continue
			}
			totalChunks++
			key := chunk.Key()
			for token, count := range counts {
				tf := float64(count) / float64(total)
				idf := math.Log(float64(totalDocs)/float64(df[token]) + 1)
				if postings[token] == nil {
					postings[token] = make(map[string]float64)
				}
				postings[token][key] = tf * idf
			}
		}
	}

	next := &snapshot{postings: postings, builtAt: time.Now()}

	s.snapMu.Lock()
	s.snap = next
	s.snapMu.Unlock()

	s.stateMu.Lock()
	s.lastBuilt = next.builtAt
	s.stateMu.Unlock()

	if err := s.storage.SaveCorpusStats(&models.CorpusStats{
		DocumentFrequency: df,
		TotalDocuments:    totalDocs,
	}); err != nil {
		s.logger.Warn().Err(err).Str("run_id", runID).Msg("Failed to persist corpus stats")
	}

	s.logger.Info().
		Str("run_id", runID).
		Int("documents", totalDocs).
		Int("chunks", totalChunks).
		Int("terms", len(postings)).
		Int64("elapsed_ms", time.Since(started).Milliseconds()).
		Msg("Index rebuild complete")

	return nil
}

var _ interfaces.IndexService = (*Service)(nil)
