package models

import (
	"fmt"
	"strconv"
	"strings"
)

// IngestOptions controls how a document is chunked at ingestion time.
// Unset values fall back to the configured defaults. ChunkOverlap is a
// pointer so an explicit zero overlap is distinguishable from "use the
// default".
type IngestOptions struct {
	ChunkSize    int    `json:"chunk_size" validate:"gte=0"`
	ChunkOverlap *int   `json:"chunk_overlap,omitempty" validate:"omitempty,gte=0"`
	ChunkMode    string `json:"chunk_mode" validate:"omitempty,oneof=fixed structure"`

	// WaitForIndex blocks the ingest call until the inverted index has
	// been rebuilt, giving read-your-writes search consistency. The
	// default is the relaxed model: the rebuild happens asynchronously
	// and searches may briefly observe a stale index.
	WaitForIndex bool `json:"wait_for_index"`
}

// SearchOptions controls ranking and result selection for a query.
type SearchOptions struct {
	// TopK is the maximum number of chunks to return (default 3).
	TopK int `json:"top_k"`

	// MinScore drops candidates scoring below the floor.
	MinScore float64 `json:"min_score"`

	// DocumentIDs restricts candidates to the given documents when non-empty.
	DocumentIDs []string `json:"document_ids,omitempty"`
}

// SearchResult is one ranked chunk returned from a query.
type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// ChunkKey builds the storage key for a chunk from its document ID and
// sequence number.
func ChunkKey(documentID string, seq int) string {
	return documentID + ":" + strconv.Itoa(seq)
}

// ParseChunkKey splits a chunk key back into document ID and sequence number.
func ParseChunkKey(key string) (string, int, error) {
	idx := strings.LastIndex(key, ":")
	if idx <= 0 || idx == len(key)-1 {
		return "", 0, fmt.Errorf("malformed chunk key: %q", key)
	}
	seq, err := strconv.Atoi(key[idx+1:])
	if err != nil {
		return "", 0, fmt.Errorf("malformed chunk key: %q", key)
	}
	return key[:idx], seq, nil
}
