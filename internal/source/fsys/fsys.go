// Package fsys reads documents from a local folder. Plain-text and
// markdown files become documents titled by their base name.
package fsys

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docchat/pkg/types"
)

// Folder is a document source backed by a directory on disk.
type Folder struct {
	dir    string
	logger *slog.Logger
}

// New creates a folder source rooted at dir.
func New(dir string, logger *slog.Logger) *Folder {
	return &Folder{dir: dir, logger: logger}
}

// ListDocuments implements source.Source. Unreadable files are skipped
// and logged; a missing or unreadable folder fails the listing.
func (f *Folder) ListDocuments(ctx context.Context) ([]types.Document, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, classify(err, f.dir)
	}

	var docs []types.Document
	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if entry.IsDir() || !isTextFile(entry.Name()) {
			continue
		}

		path := filepath.Join(f.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			f.logger.Warn("skipping unreadable file", "path", path, "error", err)
			continue
		}

		modified := ""
		if info, err := entry.Info(); err == nil {
			modified = info.ModTime().UTC().Format(time.RFC3339)
		}

		docs = append(docs, types.Document{
			ID:       entry.Name(),
			Title:    strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())),
			Text:     string(data),
			Modified: modified,
			Metadata: map[string]string{"path": path},
		})
	}
	return docs, nil
}

func isTextFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".markdown":
		return true
	}
	return false
}

func classify(err error, dir string) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: folder %q does not exist", types.ErrNotFound, dir)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: folder %q is not readable", types.ErrPermission, dir)
	default:
		return fmt.Errorf("list folder %q: %w", dir, err)
	}
}
