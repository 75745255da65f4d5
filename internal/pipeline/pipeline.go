// Package pipeline runs full indexing passes: fetch documents from a
// source, chunk and embed them, and publish the result as a new index
// snapshot. At most one pass runs at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"docchat/internal/chunker"
	"docchat/internal/embedder"
	"docchat/internal/source"
	"docchat/internal/storage"
	"docchat/internal/vectorindex"
	"docchat/pkg/types"
)

// MaxConcurrentDocuments bounds how many documents are chunked and
// embedded in parallel during a pass.
const MaxConcurrentDocuments = 4

// Pipeline coordinates indexing runs over a document source.
type Pipeline struct {
	source   source.Source
	chunker  *chunker.Chunker
	embedder embedder.Embedder
	index    *vectorindex.Index
	store    *storage.Store // optional, nil disables persistence
	lock     IndexLock
	logger   *slog.Logger
}

// New creates a Pipeline. store may be nil to disable snapshot
// persistence.
func New(src source.Source, ch *chunker.Chunker, emb embedder.Embedder, idx *vectorindex.Index, store *storage.Store, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		source:   src,
		chunker:  ch,
		embedder: emb,
		index:    idx,
		store:    store,
		logger:   logger,
	}
}

// docResult holds the embedded chunks of one document, kept in document
// order so the published snapshot is deterministic across runs.
type docResult struct {
	chunks  []types.Chunk
	skipped bool
}

// IndexAll fetches every document from the source, chunks and embeds
// them, and atomically publishes a new snapshot. Documents too short to
// chunk are skipped and counted, not treated as failures. Returns
// types.ErrIndexBusy if a pass is already running.
func (p *Pipeline) IndexAll(ctx context.Context) (types.IndexStats, error) {
	if !p.lock.TryAcquire() {
		return types.IndexStats{}, types.ErrIndexBusy
	}
	defer p.lock.Release()

	start := time.Now()

	docs, err := p.source.ListDocuments(ctx)
	if err != nil {
		return types.IndexStats{}, fmt.Errorf("list documents: %w", err)
	}
	p.logger.Info("indexing started", "documents", len(docs))

	results := make([]docResult, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxConcurrentDocuments)
	for i := range docs {
		g.Go(func() error {
			res, err := p.processDocument(gctx, docs[i])
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return types.IndexStats{}, err
	}

	var allChunks []types.Chunk
	skipped := 0
	for i := range results {
		if results[i].skipped {
			skipped++
			continue
		}
		allChunks = append(allChunks, results[i].chunks...)
	}

	if err := p.index.Rebuild(allChunks, len(docs)); err != nil {
		return types.IndexStats{}, fmt.Errorf("publish snapshot: %w", err)
	}

	p.persist(ctx, allChunks, len(docs))

	stats := types.IndexStats{
		DocumentCount:    len(docs),
		SkippedDocuments: skipped,
		ChunkCount:       len(allChunks),
		Duration:         time.Since(start),
	}
	p.logger.Info("indexing finished",
		"documents", stats.DocumentCount,
		"skipped", stats.SkippedDocuments,
		"chunks", stats.ChunkCount,
		"duration", stats.Duration)
	return stats, nil
}

// Reindex discards the current snapshot contents by running a full pass.
// Readers keep seeing the old snapshot until the new one is published.
func (p *Pipeline) Reindex(ctx context.Context) (types.IndexStats, error) {
	return p.IndexAll(ctx)
}

// ClearIndex publishes an empty snapshot and removes any persisted one.
// Idempotent.
func (p *Pipeline) ClearIndex(ctx context.Context) error {
	if !p.lock.TryAcquire() {
		return types.ErrIndexBusy
	}
	defer p.lock.Release()

	p.index.Clear()
	if p.store != nil {
		if err := p.store.Clear(ctx); err != nil {
			return fmt.Errorf("clear persisted snapshot: %w", err)
		}
	}
	p.logger.Info("index cleared")
	return nil
}

// Restore loads a persisted snapshot, if any, and publishes it. Called
// once at startup so a restarted process can answer immediately. A
// missing or empty store is not an error.
func (p *Pipeline) Restore(ctx context.Context) (bool, error) {
	if p.store == nil {
		return false, nil
	}
	snap, err := p.store.LoadSnapshot(ctx)
	if err != nil {
		return false, fmt.Errorf("load persisted snapshot: %w", err)
	}
	if snap == nil {
		return false, nil
	}
	if err := p.index.Restore(snap.Chunks, snap.DocumentCount, snap.BuiltAt); err != nil {
		return false, fmt.Errorf("publish persisted snapshot: %w", err)
	}
	p.logger.Info("restored persisted snapshot",
		"documents", snap.DocumentCount,
		"chunks", len(snap.Chunks),
		"built_at", snap.BuiltAt)
	return true, nil
}

// processDocument chunks one document and embeds all of its chunks in a
// single batch.
func (p *Pipeline) processDocument(ctx context.Context, doc types.Document) (docResult, error) {
	chunks, err := p.chunker.Chunk(doc)
	if err != nil {
		if errors.Is(err, types.ErrEmptyDocument) {
			p.logger.Warn("skipping document", "id", doc.ID, "title", doc.Title, "reason", err)
			return docResult{skipped: true}, nil
		}
		return docResult{}, fmt.Errorf("chunk document %q: %w", doc.ID, err)
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return docResult{}, fmt.Errorf("embed document %q: %w", doc.ID, err)
	}
	if len(vectors) != len(chunks) {
		return docResult{}, fmt.Errorf("embed document %q: got %d vectors for %d chunks", doc.ID, len(vectors), len(chunks))
	}
	for i := range chunks {
		chunks[i].Vector = vectors[i]
	}
	return docResult{chunks: chunks}, nil
}

// persist writes the published snapshot to the store. Persistence is
// best effort: a failure is logged but does not fail the pass, since the
// in-memory snapshot is already serving.
func (p *Pipeline) persist(ctx context.Context, chunks []types.Chunk, documentCount int) {
	if p.store == nil {
		return
	}
	snap := p.index.Snapshot()
	if err := p.store.SaveSnapshot(ctx, chunks, documentCount, snap.BuiltAt()); err != nil {
		p.logger.Warn("failed to persist snapshot", "error", err)
	}
}
