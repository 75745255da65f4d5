package types

import "errors"

// Chunk is a bounded contiguous span of a document's text, independently
// embeddable and retrievable. Offsets are rune offsets into the document
// text, with EndOffset-StartOffset equal to the chunk length in runes.
type Chunk struct {
	DocumentID    string
	DocumentTitle string
	Index         int // position within the document, starting at 0
	Text          string
	StartOffset   int
	EndOffset     int
	Vector        []float32
}

// Validate checks the chunk's structural invariants.
func (c *Chunk) Validate() error {
	if c.Text == "" {
		return errors.New("chunk text cannot be empty")
	}
	if c.DocumentID == "" {
		return errors.New("chunk document ID is required")
	}
	if c.Index < 0 {
		return errors.New("chunk index must be >= 0")
	}
	if c.StartOffset < 0 || c.EndOffset <= c.StartOffset {
		return errors.New("chunk offsets are invalid")
	}
	if c.EndOffset-c.StartOffset != len([]rune(c.Text)) {
		return errors.New("chunk offsets do not match text length")
	}
	return nil
}
