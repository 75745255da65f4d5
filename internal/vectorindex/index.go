package vectorindex

import (
	"fmt"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"docchat/pkg/types"
)

// SearchResult pairs a chunk with its L2 distance from the query vector.
type SearchResult struct {
	Chunk    types.Chunk
	Distance float64
}

// Snapshot is an immutable, fully-built version of the index. Callers must
// not modify the chunks it returns.
type Snapshot struct {
	chunks        []types.Chunk
	builtAt       time.Time
	documentCount int
	dimension     int
}

// Len returns the number of chunks in the snapshot.
func (s *Snapshot) Len() int { return len(s.chunks) }

// BuiltAt returns when the snapshot was published.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// DocumentCount returns the number of source documents the snapshot was
// built from.
func (s *Snapshot) DocumentCount() int { return s.documentCount }

// Dimension returns the embedding dimensionality, or 0 for an empty
// snapshot.
func (s *Snapshot) Dimension() int { return s.dimension }

// Chunks returns the snapshot's chunks in index order.
func (s *Snapshot) Chunks() []types.Chunk { return s.chunks }

// Index owns the currently published snapshot. Only the indexing pipeline
// writes it; any number of readers may search concurrently.
type Index struct {
	current atomic.Pointer[Snapshot]
}

// New creates an Index with no published snapshot.
func New() *Index {
	return &Index{}
}

// Rebuild validates the chunks, builds a brand-new snapshot, and publishes
// it atomically. On any validation failure the previously published
// snapshot remains visible.
func (ix *Index) Rebuild(chunks []types.Chunk, documentCount int) error {
	return ix.rebuild(chunks, documentCount, time.Now())
}

// Restore publishes a previously persisted snapshot, keeping its original
// build time. Validation is the same as Rebuild.
func (ix *Index) Restore(chunks []types.Chunk, documentCount int, builtAt time.Time) error {
	return ix.rebuild(chunks, documentCount, builtAt)
}

func (ix *Index) rebuild(chunks []types.Chunk, documentCount int, builtAt time.Time) error {
	snap := &Snapshot{
		chunks:        make([]types.Chunk, len(chunks)),
		builtAt:       builtAt,
		documentCount: documentCount,
	}
	for i := range chunks {
		if err := chunks[i].Validate(); err != nil {
			return fmt.Errorf("chunk %d of document %q: %w", chunks[i].Index, chunks[i].DocumentID, err)
		}
		if len(chunks[i].Vector) == 0 {
			return fmt.Errorf("chunk %d of document %q has no vector", chunks[i].Index, chunks[i].DocumentID)
		}
		if snap.dimension == 0 {
			snap.dimension = len(chunks[i].Vector)
		} else if len(chunks[i].Vector) != snap.dimension {
			return fmt.Errorf("chunk %d of document %q: vector dimension %d, want %d",
				chunks[i].Index, chunks[i].DocumentID, len(chunks[i].Vector), snap.dimension)
		}
		snap.chunks[i] = chunks[i]
	}

	ix.current.Store(snap)
	return nil
}

// Clear publishes an empty snapshot. Searches then return zero results
// rather than a not-built error.
func (ix *Index) Clear() {
	ix.current.Store(&Snapshot{builtAt: time.Now()})
}

// Snapshot returns the currently published snapshot, or nil if none has
// been published yet.
func (ix *Index) Snapshot() *Snapshot {
	return ix.current.Load()
}

// Search returns the k chunks nearest to query by L2 distance from the
// currently published snapshot. Ties are broken by ascending chunk index,
// then document ID, for determinism. Fails with types.ErrIndexNotBuilt
// when no snapshot has ever been published.
func (ix *Index) Search(query []float32, k int) ([]SearchResult, error) {
	snap := ix.current.Load()
	if snap == nil {
		return nil, types.ErrIndexNotBuilt
	}
	return snap.Search(query, k)
}

// Search runs the nearest-neighbor scan against this snapshot.
func (s *Snapshot) Search(query []float32, k int) ([]SearchResult, error) {
	if k <= 0 || len(s.chunks) == 0 {
		return nil, nil
	}
	if len(query) != s.dimension {
		return nil, fmt.Errorf("query vector dimension %d, index dimension %d", len(query), s.dimension)
	}

	results := make([]SearchResult, len(s.chunks))
	for i := range s.chunks {
		results[i] = SearchResult{
			Chunk:    s.chunks[i],
			Distance: l2Distance(query, s.chunks[i].Vector),
		}
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		if a.Chunk.Index != b.Chunk.Index {
			return a.Chunk.Index < b.Chunk.Index
		}
		return a.Chunk.DocumentID < b.Chunk.DocumentID
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// l2Distance computes the Euclidean distance between two equal-length
// vectors.
func l2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
