// Package source defines the external document source consumed by the
// indexing pipeline, plus implementations for a Google Drive folder and a
// local filesystem folder.
package source

import (
	"context"

	"docchat/pkg/types"
)

// Source lists the documents of one configured folder. Implementations
// classify missing folders as types.ErrNotFound and credential problems
// as types.ErrPermission. A failure to read an individual document is
// recovered by skipping it, not by failing the listing.
type Source interface {
	ListDocuments(ctx context.Context) ([]types.Document, error)
}
