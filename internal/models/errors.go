package models

import "fmt"

// Error taxonomy shared across the pipeline. Each type is mapped to an HTTP
// status exactly once, at the transport boundary.

// ValidationError reports bad input: non-PDF upload, oversized file, blank
// question. Never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError reports an unknown document id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("document %s not found", e.ID) }

// ExtractionError reports an unreadable source document. The upload is
// rolled back before this is returned.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract text from %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmptyContentError reports a document with no extractable text.
type EmptyContentError struct {
	Path string
}

func (e *EmptyContentError) Error() string {
	return fmt.Sprintf("no text content found in %s", e.Path)
}

// IndexingError reports an embedding or vector-store failure during
// ingestion. The upload is rolled back before this is returned.
type IndexingError struct {
	DocumentID string
	Err        error
}

func (e *IndexingError) Error() string {
	return fmt.Sprintf("failed to index document %s: %v", e.DocumentID, e.Err)
}

func (e *IndexingError) Unwrap() error { return e.Err }
