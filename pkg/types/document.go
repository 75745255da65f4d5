package types

// Document is a single document read from the external source. It is
// immutable once handed to the indexing pipeline for one pass.
type Document struct {
	ID       string
	Title    string
	Text     string
	Modified string
	Metadata map[string]string
}
