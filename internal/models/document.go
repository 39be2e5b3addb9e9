package models

import "time"

// Chunking modes supported by the ingestion pipeline.
const (
	// ChunkModeFixed slides a fixed-size character window across the text.
	ChunkModeFixed = "fixed"
	// ChunkModeStructure respects paragraph and sentence boundaries where possible.
	ChunkModeStructure = "structure"
)

// File type tags assigned by the transform service at ingestion time.
const (
	FileTypeText     = "text"
	FileTypeMarkdown = "markdown"
	FileTypeHTML     = "html"
)

// Document holds the metadata for one ingested document.
// The ID is a content hash of the normalized text, so ingesting
// byte-identical content always maps to the same record.
type Document struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	FileType string `json:"file_type"`

	// Title extracted at normalization time: the HTML <title> or the
	// first level-1 markdown heading. Empty when the source has neither.
	Title string `json:"title,omitempty"`

	// Chunking parameters used at ingestion time
	ChunkSize    int    `json:"chunk_size"`
	ChunkOverlap int    `json:"chunk_overlap"`
	ChunkMode    string `json:"chunk_mode"`

	TotalChunks int `json:"total_chunks"`
	TotalChars  int `json:"total_chars"`

	// ProcessingMS is how long normalization and chunking took. Set
	// before the record is persisted so stored metadata carries it.
	ProcessingMS int64 `json:"processing_ms"`

	CreatedAt time.Time `json:"created_at"`
}

// Chunk is the unit of retrieval: a contiguous slice of a document's text.
// Chunks are identified by (DocumentID, Seq) and totally ordered by Seq
// within a document.
type Chunk struct {
	DocumentID string `json:"doc_id"`
	Seq        int    `json:"seq"`
	Content    string `json:"content"`

	// StartChar/EndChar are rune offsets into the normalized document text
	StartChar int `json:"start_char"`
	EndChar   int `json:"end_char"`

	Filename string `json:"filename"`
}

// Key returns the storage key for the chunk.
func (c *Chunk) Key() string {
	return ChunkKey(c.DocumentID, c.Seq)
}

// NormalizedContent is the output of ingest-time normalization: plain
// text ready for chunking plus the detected file type and any title.
type NormalizedContent struct {
	Text     string `json:"text"`
	FileType string `json:"file_type"`
	Title    string `json:"title,omitempty"`
}

// CorpusStats holds corpus-wide term statistics used for TF-IDF scoring.
// It is a single persisted record, read at startup and rewritten after
// every ingestion, deletion and index rebuild.
type CorpusStats struct {
	// DocumentFrequency maps a term to the number of distinct documents
	// containing it at least once in any chunk.
	DocumentFrequency map[string]int `json:"document_frequency"`
	TotalDocuments    int            `json:"total_documents"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// DocumentStats summarizes the current state of the corpus.
type DocumentStats struct {
	TotalDocuments int       `json:"total_documents"`
	TotalChunks    int       `json:"total_chunks"`
	IndexedTerms   int       `json:"indexed_terms"`
	IndexBuiltAt   time.Time `json:"index_built_at"`
	LastUpdated    time.Time `json:"last_updated"`
}
