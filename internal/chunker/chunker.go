package chunker

import (
	"fmt"
	"strings"

	"docchat/pkg/types"
)

const (
	// DefaultChunkSize is the maximum chunk length in runes.
	DefaultChunkSize = 800

	// DefaultOverlap is the number of runes shared by consecutive chunks.
	DefaultOverlap = 150

	// DefaultMinDocumentLength is the minimum trimmed document length; any
	// shorter document is rejected as empty.
	DefaultMinDocumentLength = 50
)

// Chunker splits document text into overlapping fixed-size chunks.
type Chunker struct {
	size    int
	overlap int
	minLen  int
}

// New creates a Chunker with the default window geometry (800/150).
func New() *Chunker {
	return NewWithSize(DefaultChunkSize, DefaultOverlap, DefaultMinDocumentLength)
}

// NewWithSize creates a Chunker with an explicit window geometry. The
// overlap must be smaller than the chunk size.
func NewWithSize(size, overlap, minLen int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultOverlap
	}
	if minLen < 0 {
		minLen = DefaultMinDocumentLength
	}
	return &Chunker{size: size, overlap: overlap, minLen: minLen}
}

// Size returns the maximum chunk length in runes.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the overlap between consecutive chunks in runes.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits the document's text into ordered chunks. Documents whose
// trimmed text is shorter than the minimum length fail with an error
// wrapping types.ErrEmptyDocument.
func (c *Chunker) Chunk(doc types.Document) ([]types.Chunk, error) {
	if len(strings.TrimSpace(doc.Text)) < c.minLen {
		return nil, fmt.Errorf("%w: document %q has fewer than %d characters",
			types.ErrEmptyDocument, doc.Title, c.minLen)
	}

	runes := []rune(doc.Text)
	step := c.size - c.overlap

	var chunks []types.Chunk
	for start := 0; ; start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, types.Chunk{
			DocumentID:    doc.ID,
			DocumentTitle: doc.Title,
			Index:         len(chunks),
			Text:          string(runes[start:end]),
			StartOffset:   start,
			EndOffset:     end,
		})
		if end == len(runes) {
			break
		}
	}

	return chunks, nil
}
