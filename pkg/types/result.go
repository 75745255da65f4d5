package types

import "time"

// AnswerResult is the outcome of one chat operation. When IsClarification
// is set, Answer holds a clarifying follow-up question instead of a
// grounded answer and CitedTitles is empty.
type AnswerResult struct {
	Answer            string
	CitedTitles       []string
	IsClarification   bool
	RewrittenQuestion string // set only when the question was rewritten
}

// IndexStats summarizes one indexing run. DocumentCount covers every
// document fetched from the source, including ones skipped as too short.
type IndexStats struct {
	DocumentCount    int
	SkippedDocuments int
	ChunkCount       int
	Duration         time.Duration
}
