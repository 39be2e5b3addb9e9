// Package chunker splits normalized document text into overlapping
// retrieval chunks. Every chunk is a contiguous rune slice of the source
// text, so concatenating the chunks with their overlaps removed always
// reproduces the original text exactly.
package chunker

import (
	"unicode"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/recall/internal/interfaces"
	"github.com/ternarybob/recall/internal/models"
)

// Service implements ChunkerService
type Service struct {
	logger arbor.ILogger
}

// NewService creates a new chunker service
func NewService(logger arbor.ILogger) interfaces.ChunkerService {
	return &Service{logger: logger}
}

// Chunk splits text into chunks of at most size runes with the given
// overlap between consecutive chunks. In structure mode the window end
// snaps back to the last paragraph boundary inside the window, then to
// the last sentence boundary, then falls back to a hard cut. Offsets are
// rune offsets into text. Empty text yields no chunks; text that fits in
// a single window yields exactly one.
func (s *Service) Chunk(text string, size, overlap int, mode string) []*models.Chunk {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var chunks []*models.Chunk
	start := 0
	seq := 0
	for start < n {
		end := start + size
		if end >= n {
			end = n
		} else if mode == models.ChunkModeStructure {
			end = snapToBoundary(runes, start, end, overlap)
		}

		chunks = append(chunks, &models.Chunk{
			Seq:       seq,
			Content:   string(runes[start:end]),
			StartChar: start,
			EndChar:   end,
		})
		seq++

		if end >= n {
			break
		}
		start = end - overlap
	}

	return chunks
}

// snapToBoundary moves the window end back to the last structural break
// inside [start, end). A candidate break is only accepted when it leaves
// the next window start strictly ahead of the current one, otherwise the
// loop would stop making progress.
func snapToBoundary(runes []rune, start, end, overlap int) int {
	minEnd := start + overlap + 1

	// Paragraph boundary: a blank line. The separator stays with the
	// chunk that precedes it.
	for i := end - 1; i > start; i-- {
		if runes[i] == '\n' && runes[i-1] == '\n' {
			if i+1 >= minEnd {
				return i + 1
			}
			break
		}
	}

	// Sentence boundary: terminal punctuation followed by whitespace.
	for i := end - 2; i > start; i-- {
		if isSentenceEnd(runes[i]) && unicode.IsSpace(runes[i+1]) {
			if i+1 >= minEnd {
				return i + 1
			}
			break
		}
	}

	// Hard cut
	return end
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

var _ interfaces.ChunkerService = (*Service)(nil)
