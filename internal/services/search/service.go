// Package search ranks stored chunks against natural-language queries
// using the inverted index built by the index service.
package search

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/recall/internal/common"
	"github.com/ternarybob/recall/internal/interfaces"
	"github.com/ternarybob/recall/internal/models"
	"github.com/ternarybob/recall/internal/services/cache"
	"github.com/ternarybob/recall/internal/services/index"
	"golang.org/x/sync/errgroup"
)

// materializeWorkers bounds the chunk fetch fan-out when filling result
// content from the store.
const materializeWorkers = 4

// Service implements SearchService
type Service struct {
	storage    interfaces.DocumentStorage
	index      interfaces.IndexService
	chunkCache *cache.Cache[[]*models.Chunk]
	config     *common.SearchConfig
	logger     arbor.ILogger
}

// NewService creates a new search service. The chunk cache is shared
// with the document service so both sides see the same entries.
func NewService(
	storage interfaces.DocumentStorage,
	indexService interfaces.IndexService,
	chunkCache *cache.Cache[[]*models.Chunk],
	config *common.SearchConfig,
	logger arbor.ILogger,
) interfaces.SearchService {
	return &Service{
		storage:    storage,
		index:      indexService,
		chunkCache: chunkCache,
		config:     config,
		logger:     logger,
	}
}

// Search tokenizes the query, scores candidate chunks from the index
// and returns the top results with their content filled in. A query
// whose tokens are all stop words or too short returns an empty result
// without touching the index.
func (s *Service) Search(ctx context.Context, query string, opts *models.SearchOptions) ([]*models.SearchResult, error) {
	if opts == nil {
		opts = &models.SearchOptions{}
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = s.config.TopK
	}
	minScore := opts.MinScore
	if minScore <= 0 {
		minScore = s.config.MinScore
	}

	weights, distinct := queryWeights(query)
	if distinct == 0 {
		s.logger.Debug().Str("query", query).Msg("Query has no usable terms")
		return []*models.SearchResult{}, nil
	}

	// No published snapshot, e.g. first search after startup or after
	// clear_caches. Build one synchronously rather than serving nothing.
	if !s.index.Ready() {
		if err := s.index.RebuildNow(ctx); err != nil {
			return nil, fmt.Errorf("failed to build index for search: %w", err)
		}
	}

	allowed := allowSet(opts.DocumentIDs)

	type candidate struct {
		key     string
		score   float64
		matched int
	}

	// Resolve all terms against one published snapshot so a rebuild
	// landing mid-query cannot mix two index versions in one result.
	terms := make([]string, 0, len(weights))
	for term := range weights {
		terms = append(terms, term)
	}
	postingsByTerm := s.index.Postings(terms)

	scores := make(map[string]*candidate)
	for term, weight := range weights {
		for key, indexScore := range postingsByTerm[term] {
			if allowed != nil {
				docID, _, err := models.ParseChunkKey(key)
				if err != nil {
					continue
				}
				if _, ok := allowed[docID]; !ok {
					continue
				}
			}
			c := scores[key]
			if c == nil {
				c = &candidate{key: key}
				scores[key] = c
			}
			c.score += indexScore * weight
			c.matched++
		}
	}

	results := make([]*candidate, 0, len(scores))
	for _, c := range scores {
		// Chunks matching more of the query's distinct terms rank above
		// chunks that merely repeat one term.
		c.score *= 1 + float64(c.matched)/float64(distinct)
		if c.score < minScore {
			continue
		}
		results = append(results, c)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].key < results[j].key
	})
	if len(results) > topK {
		results = results[:topK]
	}

	keys := make([]string, len(results))
	scoreByKey := make(map[string]float64, len(results))
	for i, c := range results {
		keys[i] = c.key
		scoreByKey[c.key] = c.score
	}

	chunks, err := s.materialize(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := make([]*models.SearchResult, 0, len(keys))
	for _, key := range keys {
		chunk, ok := chunks[key]
		if !ok {
			// Index lag: the chunk was deleted after the snapshot was
			// built. Drop it from the result rather than failing.
			s.logger.Debug().Str("chunk_key", key).Msg("Indexed chunk no longer in store")
			continue
		}
		out = append(out, &models.SearchResult{Chunk: *chunk, Score: scoreByKey[key]})
	}

	s.logger.Debug().
		Str("query", query).
		Int("candidates", len(scores)).
		Int("returned", len(out)).
		Msg("Search complete")

	return out, nil
}

// materialize resolves chunk keys to full chunks, going through the
// chunk cache first and fanning document reads out over a small pool.
func (s *Service) materialize(ctx context.Context, keys []string) (map[string]*models.Chunk, error) {
	byDoc := make(map[string][]int)
	docIDs := make([]string, 0)
	seqs := make([]int, len(keys))
	for i, key := range keys {
		docID, seq, err := models.ParseChunkKey(key)
		if err != nil {
			s.logger.Warn().Str("chunk_key", key).Msg("Skipping malformed chunk key")
			continue
		}
		if _, ok := byDoc[docID]; !ok {
			docIDs = append(docIDs, docID)
		}
		byDoc[docID] = append(byDoc[docID], i)
		seqs[i] = seq
	}

	var mu sync.Mutex
	out := make(map[string]*models.Chunk, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(materializeWorkers)
	for _, docID := range docIDs {
		docID := docID
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			chunks, ok := s.chunkCache.Get(docID)
			if !ok {
				var err error
				chunks, err = s.storage.GetChunks(docID)
				if err != nil {
					return fmt.Errorf("failed to load chunks for %s: %w", docID, err)
				}
				s.chunkCache.Put(docID, chunks)
			}
			bySeq := make(map[int]*models.Chunk, len(chunks))
			for _, chunk := range chunks {
				bySeq[chunk.Seq] = chunk
			}
			mu.Lock()
			for _, i := range byDoc[docID] {
				if chunk, ok := bySeq[seqs[i]]; ok {
					out[keys[i]] = chunk
				}
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// queryWeights tokenizes the query and weights each distinct term by
// its share of the query: 1 + occurrences/totalTokens. Returns the
// weight map and the distinct term count.
func queryWeights(query string) (map[string]float64, int) {
	counts, total := index.TokenCounts(query)
	if total == 0 {
		return nil, 0
	}
	weights := make(map[string]float64, len(counts))
	for term, count := range counts {
		weights[term] = 1 + float64(count)/float64(total)
	}
	return weights, len(counts)
}

func allowSet(ids []string) map[string]struct{} {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

var _ interfaces.SearchService = (*Service)(nil)
