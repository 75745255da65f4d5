// Package retriever composes query rewriting, embedding, and index search
// into a ranked context set for answer generation.
package retriever

import (
	"context"
	"fmt"
	"log/slog"

	"docchat/internal/conversation"
	"docchat/internal/embedder"
	"docchat/internal/rewriter"
	"docchat/internal/vectorindex"
	"docchat/pkg/types"
)

// DefaultTopK is how many chunks are retrieved per question.
const DefaultTopK = 3

// Result holds the query actually searched and the ranked chunks found.
type Result struct {
	Query     string // the searched question, rewritten when history allowed it
	Rewritten bool
	Chunks    []vectorindex.SearchResult
}

// Retriever runs rewrite, embed, and search for one question.
type Retriever struct {
	rewriter *rewriter.Rewriter
	embedder embedder.Embedder
	index    *vectorindex.Index
	topK     int
	logger   *slog.Logger
}

// New creates a Retriever. topK <= 0 selects DefaultTopK.
func New(rw *rewriter.Rewriter, emb embedder.Embedder, index *vectorindex.Index, topK int, logger *slog.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{rewriter: rw, embedder: emb, index: index, topK: topK, logger: logger}
}

// Retrieve finds the chunks most relevant to question. With an empty
// history the raw question is embedded directly; otherwise it is rewritten
// into a self-contained query first. Fails with types.ErrIndexNotBuilt
// when no index has been published.
func (r *Retriever) Retrieve(ctx context.Context, question string, history *conversation.History) (Result, error) {
	res := Result{Query: question}

	if history.Len() > 0 {
		rewritten := r.rewriter.Rewrite(ctx, question, history.Recent(conversation.MaxTurns))
		if rewritten != question {
			r.logger.Debug("question rewritten", "original", question, "rewritten", rewritten)
			res.Query = rewritten
			res.Rewritten = true
		}
	}

	vectors, err := r.embedder.Embed(ctx, []string{res.Query})
	if err != nil {
		return Result{}, err
	}
	if len(vectors) != 1 {
		return Result{}, fmt.Errorf("%w: expected one query vector, got %d", types.ErrEmbedding, len(vectors))
	}

	chunks, err := r.index.Search(vectors[0], r.topK)
	if err != nil {
		return Result{}, err
	}
	res.Chunks = chunks
	return res, nil
}
