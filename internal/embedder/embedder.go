// Package embedder wraps the external embedding capability with batching,
// validation, caching, and rate-limit aware retry.
package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"docchat/pkg/types"
)

// Embedder turns texts into fixed-dimension vectors, one per input in the
// same order. Implementations must be deterministic for identical input
// text and model version.
type Embedder interface {
	// Embed embeds one or many texts. Fails with an error wrapping
	// types.ErrEmbedding on an empty input list or upstream failure, and
	// types.ErrRateLimit when the upstream rejected the call with a rate
	// limit so callers can back off.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the vector dimensionality this embedder produces.
	Dimension() int

	// Provider returns the provider name.
	Provider() string

	// Close releases any resources held by the embedder.
	Close() error
}

// validateTexts rejects empty batches and empty elements before any
// upstream call is made.
func validateTexts(texts []string) error {
	if len(texts) == 0 {
		return fmt.Errorf("%w: no texts provided", types.ErrEmbedding)
	}
	for i, text := range texts {
		if text == "" {
			return fmt.Errorf("%w: text at index %d is empty", types.ErrEmbedding, i)
		}
	}
	return nil
}

// contentHash computes the SHA-256 hex digest of text, used as cache key.
func contentHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
