package types

import "errors"

// Classified errors. Every failure that crosses an operation boundary is
// wrapped around exactly one of these sentinels so callers can branch with
// errors.Is instead of string matching.
var (
	// ErrNotFound indicates the document source folder or document does
	// not exist or is empty.
	ErrNotFound = errors.New("not found")

	// ErrPermission indicates the document source rejected our credentials.
	ErrPermission = errors.New("permission denied")

	// ErrEmptyDocument marks a document whose text is too short to chunk.
	// It is recovered per document during indexing and never reaches the
	// batch caller.
	ErrEmptyDocument = errors.New("document is empty or too short")

	// ErrEmbedding indicates the embedding provider failed after retries.
	ErrEmbedding = errors.New("embedding failed")

	// ErrGeneration indicates the language model failed after retries.
	ErrGeneration = errors.New("generation failed")

	// ErrRateLimit marks an upstream 429. It is retried with backoff
	// before escalating, and remains retryable for the end user.
	ErrRateLimit = errors.New("rate limited")

	// ErrIndexNotBuilt is returned when a query arrives before any
	// successful indexing run.
	ErrIndexNotBuilt = errors.New("index not built")

	// ErrIndexBusy is returned when an indexing run is requested while
	// another is in flight.
	ErrIndexBusy = errors.New("indexing already in progress")
)

// IsRateLimit reports whether err is classified as an upstream rate limit.
func IsRateLimit(err error) bool {
	return errors.Is(err, ErrRateLimit)
}

// IsNotFound reports whether err is classified as a missing source resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsPermission reports whether err is classified as a source permission
// failure.
func IsPermission(err error) bool {
	return errors.Is(err, ErrPermission)
}

// Remediation returns an actionable, user-facing message for a classified
// error, or an empty string when the error carries no known classification.
func Remediation(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "The folder has no accessible documents. Check that the folder ID is correct and the folder exists."
	case errors.Is(err, ErrPermission):
		return "Permission denied. Ensure the folder is shared with your service account with at least viewer access."
	case errors.Is(err, ErrIndexNotBuilt):
		return "No documents indexed. Please run index_all before chatting."
	case errors.Is(err, ErrIndexBusy):
		return "An indexing run is already in progress. Wait for it to finish and try again."
	case errors.Is(err, ErrRateLimit):
		return "The upstream service is rate limiting requests. Please retry in a moment."
	case errors.Is(err, ErrEmbedding):
		return "The embedding service is currently unavailable. Please retry later."
	case errors.Is(err, ErrGeneration):
		return "The language model is currently unavailable. Please retry later."
	default:
		return ""
	}
}
