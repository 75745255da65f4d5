package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"docchat/internal/chunker"
	"docchat/internal/config"
	"docchat/internal/conversation"
	"docchat/internal/embedder"
	"docchat/internal/llm"
	"docchat/internal/log"
	"docchat/internal/mcp"
	"docchat/internal/orchestrator"
	"docchat/internal/pipeline"
	"docchat/internal/retriever"
	"docchat/internal/rewriter"
	"docchat/internal/source"
	"docchat/internal/source/fsys"
	"docchat/internal/source/gdrive"
	"docchat/internal/storage"
	"docchat/internal/vectorindex"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("DocChat MCP Server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		os.Exit(0)
	}

	// Optional .env for local development; missing file is fine.
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Stdout is reserved for the MCP protocol, logs go to stderr.
	logger := log.New(log.Config{Level: logLevel(cfg.LogLevel), JSON: true})
	logger.Info("starting", "version", version, "source", cfg.Source)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	src, err := newSource(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("create document source: %w", err)
	}

	emb, err := newEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("create embedder: %w", err)
	}
	defer func() { _ = emb.Close() }()
	logger.Info("embedder ready", "provider", emb.Provider(), "dimension", emb.Dimension())

	gen, err := llm.NewClient(llm.Config{APIKey: cfg.GroqAPIKey})
	if err != nil {
		return fmt.Errorf("create completion client: %w", err)
	}

	var store *storage.Store
	if cfg.DBPath != "" {
		store, err = storage.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open snapshot store: %w", err)
		}
		defer func() { _ = store.Close() }()
	}

	index := vectorindex.New()
	ch := chunker.NewWithSize(cfg.ChunkSize, cfg.ChunkOverlap, chunker.DefaultMinDocumentLength)
	pipe := pipeline.New(src, ch, emb, index, store, logger)

	if restored, err := pipe.Restore(ctx); err != nil {
		logger.Warn("could not restore persisted snapshot", "error", err)
	} else if restored {
		logger.Info("serving restored snapshot")
	}

	rw := rewriter.New(gen, logger)
	retr := retriever.New(rw, emb, index, cfg.TopK, logger)
	orch := orchestrator.New(rw, retr, gen, logger)
	history := conversation.NewHistory()

	srv := mcp.NewServer(mcp.Deps{
		Pipeline:     pipe,
		Orchestrator: orch,
		Source:       src,
		Index:        index,
		History:      history,
		Logger:       logger,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("MCP server ready, listening on stdio")
		errChan <- srv.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", "signal", sig)
		return nil
	case err := <-errChan:
		return err
	}
}

func newSource(ctx context.Context, cfg config.Config, logger *slog.Logger) (source.Source, error) {
	switch cfg.Source {
	case config.SourceGoogleDrive:
		return gdrive.New(ctx, cfg.DriveCredentials, cfg.DriveFolderID, logger)
	case config.SourceFolder:
		return fsys.New(cfg.FolderPath, logger), nil
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}

func newEmbedder(cfg config.Config) (embedder.Embedder, error) {
	cache := embedder.NewCache(embedder.DefaultCacheSize)

	provider := cfg.EmbeddingProvider
	if provider == "" {
		if cfg.OpenAIAPIKey != "" {
			provider = embedder.ProviderOpenAI
		} else {
			provider = embedder.ProviderLocal
		}
	}

	switch provider {
	case embedder.ProviderOpenAI:
		return embedder.NewOpenAIProvider(embedder.OpenAIConfig{APIKey: cfg.OpenAIAPIKey}, cache)
	case embedder.ProviderLocal:
		return embedder.NewLocalProvider(cache), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
