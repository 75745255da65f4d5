// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Document source kinds.
const (
	SourceGoogleDrive = "gdrive"
	SourceFolder      = "folder"
)

// Environment variable names.
const (
	EnvSource            = "DOCCHAT_SOURCE"
	EnvFolderPath        = "DOCCHAT_FOLDER_PATH"
	EnvDriveFolderID     = "GOOGLE_DRIVE_FOLDER_ID"
	EnvDriveCredentials  = "GOOGLE_APPLICATION_CREDENTIALS"
	EnvEmbeddingProvider = "DOCCHAT_EMBEDDING_PROVIDER"
	EnvOpenAIAPIKey      = "OPENAI_API_KEY"
	EnvGroqAPIKey        = "GROQ_API_KEY"
	EnvDBPath            = "DOCCHAT_DB_PATH"
	EnvChunkSize         = "DOCCHAT_CHUNK_SIZE"
	EnvChunkOverlap      = "DOCCHAT_CHUNK_OVERLAP"
	EnvTopK              = "DOCCHAT_TOP_K"
	EnvLogLevel          = "DOCCHAT_LOG_LEVEL"
)

// DefaultDBPath is used when DOCCHAT_DB_PATH is unset. An empty
// configured path ("-") disables persistence entirely.
const DefaultDBPath = "docchat.db"

// Config holds everything the server needs to start.
type Config struct {
	Source           string // gdrive or folder
	FolderPath       string // local folder source
	DriveFolderID    string // google drive source
	DriveCredentials string

	EmbeddingProvider string // openai or local, empty means auto-detect
	OpenAIAPIKey      string
	GroqAPIKey        string

	DBPath string // empty disables persistence

	ChunkSize    int
	ChunkOverlap int
	TopK         int

	LogLevel string
}

// FromEnv reads the environment and validates the result.
func FromEnv() (Config, error) {
	cfg := Config{
		Source:            strings.ToLower(os.Getenv(EnvSource)),
		FolderPath:        os.Getenv(EnvFolderPath),
		DriveFolderID:     os.Getenv(EnvDriveFolderID),
		DriveCredentials:  os.Getenv(EnvDriveCredentials),
		EmbeddingProvider: strings.ToLower(os.Getenv(EnvEmbeddingProvider)),
		OpenAIAPIKey:      os.Getenv(EnvOpenAIAPIKey),
		GroqAPIKey:        os.Getenv(EnvGroqAPIKey),
		DBPath:            os.Getenv(EnvDBPath),
		LogLevel:          os.Getenv(EnvLogLevel),
	}

	if cfg.Source == "" {
		if cfg.DriveFolderID != "" {
			cfg.Source = SourceGoogleDrive
		} else {
			cfg.Source = SourceFolder
		}
	}

	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath
	} else if cfg.DBPath == "-" {
		cfg.DBPath = ""
	}

	var err error
	if cfg.ChunkSize, err = intEnv(EnvChunkSize, 800); err != nil {
		return Config{}, err
	}
	if cfg.ChunkOverlap, err = intEnv(EnvChunkOverlap, 150); err != nil {
		return Config{}, err
	}
	if cfg.TopK, err = intEnv(EnvTopK, 3); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Source {
	case SourceGoogleDrive:
		if c.DriveFolderID == "" {
			return fmt.Errorf("%s source requires %s", SourceGoogleDrive, EnvDriveFolderID)
		}
		if c.DriveCredentials == "" {
			return fmt.Errorf("%s source requires %s", SourceGoogleDrive, EnvDriveCredentials)
		}
	case SourceFolder:
		if c.FolderPath == "" {
			return fmt.Errorf("%s source requires %s", SourceFolder, EnvFolderPath)
		}
	default:
		return fmt.Errorf("unknown source %q, want %s or %s", c.Source, SourceGoogleDrive, SourceFolder)
	}

	switch c.EmbeddingProvider {
	case "", "openai", "local":
	default:
		return fmt.Errorf("unknown embedding provider %q, want openai or local", c.EmbeddingProvider)
	}
	if c.EmbeddingProvider == "openai" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("openai embedding provider requires %s", EnvOpenAIAPIKey)
	}

	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", c.ChunkOverlap, c.ChunkSize)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("top-k must be positive, got %d", c.TopK)
	}
	return nil
}

func intEnv(name string, def int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", name, raw)
	}
	return v, nil
}
