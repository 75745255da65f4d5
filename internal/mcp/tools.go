package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"docchat/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeSourceNotFound     = -32001 // Source folder missing or empty
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // No index has been built yet
	ErrorCodeEmptyQuery         = -32004 // Question parameter is empty
	ErrorCodePermissionDenied   = -32005 // Source rejected our credentials
	ErrorCodeRateLimited        = -32006 // Upstream service rate limited us
)

// handleIndexAll handles the index_all tool invocation
func (s *Server) handleIndexAll(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.pipeline.IndexAll(ctx)
	if err != nil {
		return nil, classifyError("indexing failed", err)
	}
	return mcp.NewToolResultText(formatJSON(indexStatsResponse(stats))), nil
}

// handleReindex handles the reindex tool invocation
func (s *Server) handleReindex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.pipeline.Reindex(ctx)
	if err != nil {
		return nil, classifyError("reindexing failed", err)
	}
	return mcp.NewToolResultText(formatJSON(indexStatsResponse(stats))), nil
}

// handleClearIndex handles the clear_index tool invocation
func (s *Server) handleClearIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.pipeline.ClearIndex(ctx); err != nil {
		return nil, classifyError("clearing index failed", err)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"cleared": true,
	})), nil
}

// handleChat handles the chat tool invocation
func (s *Server) handleChat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	question, ok := args["question"].(string)
	if !ok || strings.TrimSpace(question) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "question parameter is required and cannot be empty", map[string]interface{}{
			"param":  "question",
			"reason": "missing or empty",
		})
	}

	result, err := s.orchestrator.Answer(ctx, question, s.history)
	if err != nil {
		return nil, classifyError("answering failed", err)
	}

	response := map[string]interface{}{
		"answer":           result.Answer,
		"is_clarification": result.IsClarification,
	}
	if len(result.CitedTitles) > 0 {
		response["cited_titles"] = result.CitedTitles
	}
	if result.RewrittenQuestion != "" {
		response["rewritten_question"] = result.RewrittenQuestion
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListDocuments handles the list_documents tool invocation
func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.source.ListDocuments(ctx)
	if err != nil {
		return nil, classifyError("listing documents failed", err)
	}

	indexed := make(map[string]bool)
	if snap := s.index.Snapshot(); snap != nil {
		for _, c := range snap.Chunks() {
			indexed[c.DocumentID] = true
		}
	}

	entries := make([]map[string]interface{}, 0, len(docs))
	for _, d := range docs {
		entry := map[string]interface{}{
			"id":      d.ID,
			"title":   d.Title,
			"indexed": indexed[d.ID],
		}
		if d.Modified != "" {
			entry["modified"] = d.Modified
		}
		entries = append(entries, entry)
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"count":     len(docs),
		"documents": entries,
	})), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap := s.index.Snapshot()
	if snap == nil {
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"indexed": false,
			"message": "No index built. Use the index_all tool to index your documents.",
		})), nil
	}

	response := map[string]interface{}{
		"indexed": true,
		"index": map[string]interface{}{
			"documents": snap.DocumentCount(),
			"chunks":    snap.Len(),
			"dimension": snap.Dimension(),
			"built_at":  snap.BuiltAt().Format("2006-01-02T15:04:05Z07:00"),
		},
		"conversation": map[string]interface{}{
			"turns": s.history.Len(),
		},
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// classifyError maps a classified pipeline error to an MCP error whose
// data carries a user-facing remediation message.
func classifyError(message string, err error) error {
	code := ErrorCodeInternalError
	switch {
	case errors.Is(err, types.ErrIndexBusy):
		code = ErrorCodeIndexingInProgress
	case errors.Is(err, types.ErrIndexNotBuilt):
		code = ErrorCodeNotIndexed
	case types.IsNotFound(err):
		code = ErrorCodeSourceNotFound
	case types.IsPermission(err):
		code = ErrorCodePermissionDenied
	case types.IsRateLimit(err):
		code = ErrorCodeRateLimited
	}

	data := map[string]interface{}{
		"error": err.Error(),
	}
	if remediation := types.Remediation(err); remediation != "" {
		data["remediation"] = remediation
	}
	return newMCPError(code, message, data)
}

// indexStatsResponse formats indexing statistics for a tool result.
func indexStatsResponse(stats types.IndexStats) map[string]interface{} {
	return map[string]interface{}{
		"indexed":           true,
		"documents_indexed": stats.DocumentCount,
		"documents_skipped": stats.SkippedDocuments,
		"chunks_created":    stats.ChunkCount,
		"duration_ms":       stats.Duration.Milliseconds(),
	}
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}
