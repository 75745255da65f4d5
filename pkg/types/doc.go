// Package types contains the shared domain types for docchat: documents,
// chunks, conversation turns, operation results, and the error taxonomy
// used to classify failures across the pipeline.
package types
