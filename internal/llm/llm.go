// Package llm wraps the external answer-generation capability behind a
// small interface with rate-limit aware retry.
package llm

import "context"

// Request is one completion request. System may be empty.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Generator produces text from a prompt. Implementations classify upstream
// rate limits as types.ErrRateLimit and other failures as
// types.ErrGeneration.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
