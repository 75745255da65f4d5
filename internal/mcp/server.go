package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"docchat/internal/conversation"
	"docchat/internal/orchestrator"
	"docchat/internal/pipeline"
	"docchat/internal/source"
	"docchat/internal/vectorindex"
)

const (
	// ServerName is the MCP server name
	ServerName = "docchat"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Deps collects the wired application components the server exposes.
type Deps struct {
	Pipeline     *pipeline.Pipeline
	Orchestrator *orchestrator.Orchestrator
	Source       source.Source
	Index        *vectorindex.Index
	History      *conversation.History
	Logger       *slog.Logger
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp          *server.MCPServer
	pipeline     *pipeline.Pipeline
	orchestrator *orchestrator.Orchestrator
	source       source.Source
	index        *vectorindex.Index
	history      *conversation.History
	logger       *slog.Logger
}

// NewServer creates a new MCP server instance over pre-wired components.
func NewServer(deps Deps) *Server {
	s := &Server{
		mcp:          server.NewMCPServer(ServerName, ServerVersion),
		pipeline:     deps.Pipeline,
		orchestrator: deps.Orchestrator,
		source:       deps.Source,
		index:        deps.Index,
		history:      deps.History,
		logger:       deps.Logger,
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexAllTool(), s.handleIndexAll)
	s.mcp.AddTool(chatTool(), s.handleChat)
	s.mcp.AddTool(reindexTool(), s.handleReindex)
	s.mcp.AddTool(clearIndexTool(), s.handleClearIndex)
	s.mcp.AddTool(listDocumentsTool(), s.handleListDocuments)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
