package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/chunker"
	"docchat/internal/conversation"
	"docchat/internal/embedder"
	"docchat/internal/llm"
	"docchat/internal/log"
	"docchat/internal/orchestrator"
	"docchat/internal/pipeline"
	"docchat/internal/retriever"
	"docchat/internal/rewriter"
	"docchat/internal/vectorindex"
	"docchat/pkg/types"
)

type staticSource struct {
	docs []types.Document
	err  error
}

func (s *staticSource) ListDocuments(ctx context.Context) ([]types.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.docs, nil
}

type staticGenerator struct {
	answer string
}

func (g *staticGenerator) Generate(ctx context.Context, req llm.Request) (string, error) {
	return g.answer, nil
}

func newTestServer(t *testing.T, src *staticSource, gen llm.Generator) *Server {
	t.Helper()
	logger := log.NewNop()
	emb := embedder.NewLocalProvider(nil)
	index := vectorindex.New()
	pipe := pipeline.New(src, chunker.New(), emb, index, nil, logger)
	rw := rewriter.New(gen, logger)
	retr := retriever.New(rw, emb, index, 3, logger)
	orch := orchestrator.New(rw, retr, gen, logger)

	return NewServer(Deps{
		Pipeline:     pipe,
		Orchestrator: orch,
		Source:       src,
		Index:        index,
		History:      conversation.NewHistory(),
		Logger:       logger,
	})
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &parsed))
	return parsed
}

func sampleDocs() []types.Document {
	return []types.Document{
		{ID: "a", Title: "Schedule", Text: strings.Repeat("classes run daily from seven ", 40)},
		{ID: "b", Title: "Pricing", Text: strings.Repeat("a single class costs ten dollars ", 40)},
	}
}

func TestHandleIndexAll(t *testing.T) {
	s := newTestServer(t, &staticSource{docs: sampleDocs()}, &staticGenerator{})

	result, err := s.handleIndexAll(context.Background(), callRequest(nil))
	require.NoError(t, err)

	parsed := resultText(t, result)
	assert.Equal(t, true, parsed["indexed"])
	assert.Equal(t, float64(2), parsed["documents_indexed"])
	assert.Equal(t, float64(0), parsed["documents_skipped"])
	assert.Greater(t, parsed["chunks_created"], float64(0))
}

func TestHandleIndexAll_SourceError(t *testing.T) {
	s := newTestServer(t, &staticSource{err: types.ErrPermission}, &staticGenerator{})

	_, err := s.handleIndexAll(context.Background(), callRequest(nil))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodePermissionDenied, mcpErr.Code)

	data, ok := mcpErr.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, data["remediation"], "Permission denied")
}

func TestHandleChat_RequiresQuestion(t *testing.T) {
	s := newTestServer(t, &staticSource{}, &staticGenerator{})

	_, err := s.handleChat(context.Background(), callRequest(map[string]interface{}{}))
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeEmptyQuery, mcpErr.Code)

	_, err = s.handleChat(context.Background(), callRequest(map[string]interface{}{"question": "   "}))
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeEmptyQuery, mcpErr.Code)
}

func TestHandleChat_BeforeIndexing(t *testing.T) {
	s := newTestServer(t, &staticSource{docs: sampleDocs()}, &staticGenerator{answer: "hello"})

	_, err := s.handleChat(context.Background(), callRequest(map[string]interface{}{
		"question": "when do classes run?",
	}))
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeNotIndexed, mcpErr.Code)
}

func TestHandleChat_AnswersAfterIndexing(t *testing.T) {
	s := newTestServer(t, &staticSource{docs: sampleDocs()}, &staticGenerator{answer: "Classes run daily."})

	_, err := s.handleIndexAll(context.Background(), callRequest(nil))
	require.NoError(t, err)

	result, err := s.handleChat(context.Background(), callRequest(map[string]interface{}{
		"question": "when do classes run?",
	}))
	require.NoError(t, err)

	parsed := resultText(t, result)
	assert.Equal(t, "Classes run daily.", parsed["answer"])
	assert.Equal(t, false, parsed["is_clarification"])
	assert.NotEmpty(t, parsed["cited_titles"])
	assert.Equal(t, 1, s.history.Len())
}

func TestHandleClearIndex(t *testing.T) {
	s := newTestServer(t, &staticSource{docs: sampleDocs()}, &staticGenerator{})

	_, err := s.handleIndexAll(context.Background(), callRequest(nil))
	require.NoError(t, err)

	result, err := s.handleClearIndex(context.Background(), callRequest(nil))
	require.NoError(t, err)
	parsed := resultText(t, result)
	assert.Equal(t, true, parsed["cleared"])
}

func TestHandleListDocuments(t *testing.T) {
	s := newTestServer(t, &staticSource{docs: sampleDocs()}, &staticGenerator{})

	result, err := s.handleListDocuments(context.Background(), callRequest(nil))
	require.NoError(t, err)

	parsed := resultText(t, result)
	assert.Equal(t, float64(2), parsed["count"])
	docs, ok := parsed["documents"].([]interface{})
	require.True(t, ok)
	require.Len(t, docs, 2)
	first, ok := docs[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Schedule", first["title"])
	assert.Equal(t, false, first["indexed"])

	_, err = s.handleIndexAll(context.Background(), callRequest(nil))
	require.NoError(t, err)

	result, err = s.handleListDocuments(context.Background(), callRequest(nil))
	require.NoError(t, err)
	parsed = resultText(t, result)
	docs = parsed["documents"].([]interface{})
	first = docs[0].(map[string]interface{})
	assert.Equal(t, true, first["indexed"])
}

func TestHandleGetStatus(t *testing.T) {
	s := newTestServer(t, &staticSource{docs: sampleDocs()}, &staticGenerator{})

	result, err := s.handleGetStatus(context.Background(), callRequest(nil))
	require.NoError(t, err)
	parsed := resultText(t, result)
	assert.Equal(t, false, parsed["indexed"])

	_, err = s.handleIndexAll(context.Background(), callRequest(nil))
	require.NoError(t, err)

	result, err = s.handleGetStatus(context.Background(), callRequest(nil))
	require.NoError(t, err)
	parsed = resultText(t, result)
	assert.Equal(t, true, parsed["indexed"])

	index, ok := parsed["index"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), index["documents"])
	assert.Greater(t, index["chunks"], float64(0))
}

func TestNewServer_RegistersComponents(t *testing.T) {
	s := newTestServer(t, &staticSource{}, &staticGenerator{})
	assert.NotNil(t, s.mcp)
	assert.NotNil(t, s.pipeline)
	assert.NotNil(t, s.orchestrator)
	assert.NotNil(t, s.history)
}
