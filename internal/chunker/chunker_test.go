package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/pkg/types"
)

func testDoc(text string) types.Document {
	return types.Document{ID: "doc-1", Title: "Test Document", Text: text}
}

func TestNew(t *testing.T) {
	c := New()
	assert.Equal(t, 800, c.Size())
	assert.Equal(t, 150, c.Overlap())
}

func TestChunk_ShortDocumentRejected(t *testing.T) {
	c := New()

	_, err := c.Chunk(testDoc("too short"))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrEmptyDocument)

	// Whitespace padding does not rescue a short document.
	_, err = c.Chunk(testDoc("   " + strings.Repeat(" ", 100) + "short"))
	assert.ErrorIs(t, err, types.ErrEmptyDocument)
}

func TestChunk_SingleChunk(t *testing.T) {
	c := New()
	text := strings.Repeat("a", 800)

	chunks, err := c.Chunk(testDoc(text))
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, 800, chunks[0].EndOffset)
	assert.Equal(t, text, chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestChunk_TwoChunksWithOverlap(t *testing.T) {
	c := New()
	text := strings.Repeat("a", 1000)

	chunks, err := c.Chunk(testDoc(text))
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, 800, chunks[0].EndOffset)
	assert.Equal(t, 650, chunks[1].StartOffset)
	assert.Equal(t, 1000, chunks[1].EndOffset)
	assert.Len(t, chunks[1].Text, 350)
}

func TestChunk_OffsetsMapBackToText(t *testing.T) {
	c := NewWithSize(100, 20, 50)
	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 30)
	runes := []rune(text)

	chunks, err := c.Chunk(testDoc(text))
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, string(runes[chunk.StartOffset:chunk.EndOffset]), chunk.Text)
		require.NoError(t, chunk.Validate())
	}

	// Full coverage: first chunk starts at 0, last ends at the text end.
	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, len(runes), chunks[len(chunks)-1].EndOffset)

	// Consecutive chunks share exactly the configured overlap.
	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, chunks[i-1].EndOffset-20, chunks[i].StartOffset)
	}
}

func TestChunk_MultiByteRunes(t *testing.T) {
	c := NewWithSize(100, 20, 50)
	text := strings.Repeat("日本語のテキストで分割を確認する。", 20)
	runes := []rune(text)

	chunks, err := c.Chunk(testDoc(text))
	require.NoError(t, err)

	for _, chunk := range chunks {
		assert.Equal(t, string(runes[chunk.StartOffset:chunk.EndOffset]), chunk.Text)
		assert.LessOrEqual(t, chunk.EndOffset-chunk.StartOffset, 100)
	}
}

func TestChunk_CountLaw(t *testing.T) {
	c := New()
	step := c.Size() - c.Overlap()

	for _, length := range []int{50, 800, 801, 1450, 1451, 5000} {
		chunks, err := c.Chunk(testDoc(strings.Repeat("x", length)))
		require.NoError(t, err, "length %d", length)

		want := 1
		if length > c.Size() {
			want = 1 + (length-c.Size()+step-1)/step
		}
		assert.Len(t, chunks, want, "length %d", length)
	}
}

func TestNewWithSize_InvalidGeometryFallsBack(t *testing.T) {
	c := NewWithSize(0, 900, -1)
	assert.Equal(t, DefaultChunkSize, c.Size())
	assert.Equal(t, DefaultOverlap, c.Overlap())
}
