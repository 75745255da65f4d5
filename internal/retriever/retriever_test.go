package retriever

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/conversation"
	"docchat/internal/embedder"
	"docchat/internal/llm"
	"docchat/internal/log"
	"docchat/internal/rewriter"
	"docchat/internal/vectorindex"
	"docchat/pkg/types"
)

// scriptedGenerator returns a fixed rewrite and records invocations.
type scriptedGenerator struct {
	output string
	calls  int
}

func (g *scriptedGenerator) Generate(ctx context.Context, req llm.Request) (string, error) {
	g.calls++
	return g.output, nil
}

func builtIndex(t *testing.T, emb embedder.Embedder, texts ...string) *vectorindex.Index {
	t.Helper()
	vectors, err := emb.Embed(context.Background(), texts)
	require.NoError(t, err)

	chunks := make([]types.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = types.Chunk{
			DocumentID:    "doc",
			DocumentTitle: "Doc",
			Index:         i,
			Text:          text,
			StartOffset:   0,
			EndOffset:     len([]rune(text)),
			Vector:        vectors[i],
		}
	}
	ix := vectorindex.New()
	require.NoError(t, ix.Rebuild(chunks, 1))
	return ix
}

func TestRetrieve_EmptyHistorySkipsRewrite(t *testing.T) {
	gen := &scriptedGenerator{output: "should not be called"}
	emb := embedder.NewLocalProvider(nil)
	ix := builtIndex(t, emb, "yoga classes run daily", "pricing starts at ten dollars")

	r := New(rewriter.New(gen, log.NewNop()), emb, ix, 3, log.NewNop())
	res, err := r.Retrieve(context.Background(), "what classes are there?", conversation.NewHistory())
	require.NoError(t, err)

	assert.Equal(t, 0, gen.calls)
	assert.Equal(t, "what classes are there?", res.Query)
	assert.False(t, res.Rewritten)
	assert.Len(t, res.Chunks, 2)
}

func TestRetrieve_RewritesWithHistory(t *testing.T) {
	gen := &scriptedGenerator{output: "What are the benefits of yoga classes?"}
	emb := embedder.NewLocalProvider(nil)
	ix := builtIndex(t, emb, "yoga has many benefits", "pricing starts at ten dollars")

	history := conversation.NewHistory()
	history.Append(types.Turn{Question: "tell me about yoga classes", Answer: "We run daily yoga classes."})

	r := New(rewriter.New(gen, log.NewNop()), emb, ix, 3, log.NewNop())
	res, err := r.Retrieve(context.Background(), "benefits?", history)
	require.NoError(t, err)

	assert.Equal(t, 1, gen.calls)
	assert.True(t, res.Rewritten)
	assert.Equal(t, "What are the benefits of yoga classes?", res.Query)
}

func TestRetrieve_RewriteNoChangeKeepsRaw(t *testing.T) {
	gen := &scriptedGenerator{output: "what is the cancellation policy?"}
	emb := embedder.NewLocalProvider(nil)
	ix := builtIndex(t, emb, "cancel anytime with a week of notice")

	history := conversation.NewHistory()
	history.Append(types.Turn{Question: "how do refunds work", Answer: "Refunds are issued in a week."})

	r := New(rewriter.New(gen, log.NewNop()), emb, ix, 3, log.NewNop())
	res, err := r.Retrieve(context.Background(), "what is the cancellation policy?", history)
	require.NoError(t, err)

	assert.False(t, res.Rewritten)
	assert.Equal(t, "what is the cancellation policy?", res.Query)
}

func TestRetrieve_IndexNotBuilt(t *testing.T) {
	gen := &scriptedGenerator{}
	emb := embedder.NewLocalProvider(nil)

	r := New(rewriter.New(gen, log.NewNop()), emb, vectorindex.New(), 3, log.NewNop())
	_, err := r.Retrieve(context.Background(), "anything at all?", conversation.NewHistory())
	assert.ErrorIs(t, err, types.ErrIndexNotBuilt)
}

func TestRetrieve_TopKLimit(t *testing.T) {
	gen := &scriptedGenerator{}
	emb := embedder.NewLocalProvider(nil)
	ix := builtIndex(t, emb,
		"first passage", "second passage", "third passage", "fourth passage", "fifth passage")

	r := New(rewriter.New(gen, log.NewNop()), emb, ix, 0, log.NewNop())
	res, err := r.Retrieve(context.Background(), "passage", conversation.NewHistory())
	require.NoError(t, err)
	assert.Len(t, res.Chunks, DefaultTopK)
}
