package vectorindex

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/pkg/types"
)

func chunkAt(docID string, index int, vector []float32) types.Chunk {
	return types.Chunk{
		DocumentID:    docID,
		DocumentTitle: "Title " + docID,
		Index:         index,
		Text:          "chunk text",
		StartOffset:   0,
		EndOffset:     10,
		Vector:        vector,
	}
}

func TestSearch_NotBuilt(t *testing.T) {
	ix := New()
	_, err := ix.Search([]float32{1, 0}, 3)
	assert.ErrorIs(t, err, types.ErrIndexNotBuilt)
	assert.Nil(t, ix.Snapshot())
}

func TestSearch_OrdersByDistance(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Rebuild([]types.Chunk{
		chunkAt("a", 0, []float32{10, 0}),
		chunkAt("a", 1, []float32{1, 0}),
		chunkAt("b", 0, []float32{5, 0}),
	}, 2))

	results, err := ix.Search([]float32{0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, 1, results[0].Chunk.Index)
	assert.Equal(t, "a", results[0].Chunk.DocumentID)
	assert.Equal(t, "b", results[1].Chunk.DocumentID)
	assert.Equal(t, 0, results[2].Chunk.Index)
	assert.Equal(t, "a", results[2].Chunk.DocumentID)

	assert.InDelta(t, 1.0, results[0].Distance, 1e-9)
	assert.InDelta(t, 5.0, results[1].Distance, 1e-9)
	assert.InDelta(t, 10.0, results[2].Distance, 1e-9)
}

func TestSearch_TieBreak(t *testing.T) {
	ix := New()
	// All four chunks are equidistant from the query; order must be
	// deterministic: ascending chunk index, then document ID.
	require.NoError(t, ix.Rebuild([]types.Chunk{
		chunkAt("b", 1, []float32{0, 1}),
		chunkAt("a", 1, []float32{0, -1}),
		chunkAt("b", 0, []float32{1, 0}),
		chunkAt("a", 0, []float32{-1, 0}),
	}, 2))

	results, err := ix.Search([]float32{0, 0}, 4)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, "a", results[0].Chunk.DocumentID)
	assert.Equal(t, 0, results[0].Chunk.Index)
	assert.Equal(t, "b", results[1].Chunk.DocumentID)
	assert.Equal(t, 0, results[1].Chunk.Index)
	assert.Equal(t, "a", results[2].Chunk.DocumentID)
	assert.Equal(t, 1, results[2].Chunk.Index)
	assert.Equal(t, "b", results[3].Chunk.DocumentID)
	assert.Equal(t, 1, results[3].Chunk.Index)
}

func TestSearch_KLargerThanIndex(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Rebuild([]types.Chunk{
		chunkAt("a", 0, []float32{1, 0}),
		chunkAt("a", 1, []float32{0, 1}),
	}, 1))

	results, err := ix.Search([]float32{0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearch_DimensionMismatch(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Rebuild([]types.Chunk{chunkAt("a", 0, []float32{1, 0})}, 1))

	_, err := ix.Search([]float32{1, 0, 0}, 1)
	assert.Error(t, err)
}

func TestRebuild_ValidationKeepsOldSnapshot(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Rebuild([]types.Chunk{chunkAt("a", 0, []float32{1, 0})}, 1))

	bad := chunkAt("b", 0, []float32{1, 0, 0}) // wrong dimension
	err := ix.Rebuild([]types.Chunk{chunkAt("a", 0, []float32{0, 1}), bad}, 2)
	require.Error(t, err)

	// Old snapshot still serves.
	results, err := ix.Search([]float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Chunk.DocumentID)
}

func TestRebuild_RejectsMissingVector(t *testing.T) {
	ix := New()
	err := ix.Rebuild([]types.Chunk{chunkAt("a", 0, nil)}, 1)
	assert.Error(t, err)
}

func TestClear_EmptySnapshotNotError(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Rebuild([]types.Chunk{chunkAt("a", 0, []float32{1, 0})}, 1))

	ix.Clear()

	results, err := ix.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, results)

	snap := ix.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, 0, snap.Len())
	assert.Equal(t, 0, snap.DocumentCount())
}

func TestSnapshot_Metadata(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Rebuild([]types.Chunk{
		chunkAt("a", 0, []float32{1, 0, 0}),
		chunkAt("b", 0, []float32{0, 1, 0}),
	}, 5))

	snap := ix.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, 2, snap.Len())
	assert.Equal(t, 5, snap.DocumentCount())
	assert.Equal(t, 3, snap.Dimension())
	assert.False(t, snap.BuiltAt().IsZero())
}

func TestSearch_ConcurrentWithRebuild(t *testing.T) {
	ix := New()
	require.NoError(t, ix.Rebuild([]types.Chunk{chunkAt("a", 0, []float32{1, 0})}, 1))

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				results, err := ix.Search([]float32{0, 0}, 1)
				assert.NoError(t, err)
				assert.NotEmpty(t, results)
			}
		}()
	}
	for i := 0; i < 50; i++ {
		doc := fmt.Sprintf("doc-%d", i)
		require.NoError(t, ix.Rebuild([]types.Chunk{chunkAt(doc, 0, []float32{1, 0})}, 1))
	}
	wg.Wait()
}
