package types

import (
	"context"

	"github.com/kbase/kbsearch/internal/models"
)

// Core interfaces

// Embedder turns text into vectors. Implementations wrap a hosted or local
// embedding model.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex stores chunk embeddings plus metadata and answers similarity
// queries. Implementations are safe for concurrent use.
type VectorIndex interface {
	// Upsert embeds and stores all chunks of one document under composite
	// keys {documentID}_{chunkIndex}. The whole batch fails on any error.
	Upsert(ctx context.Context, documentID string, chunks []models.Chunk) error

	// Search returns up to k results ordered by ascending distance.
	// A blank query yields an empty result, not an error.
	Search(ctx context.Context, query string, k int) ([]models.SearchResult, error)

	// DeleteByDocument removes every chunk of the document. The boolean
	// reports whether anything matched.
	DeleteByDocument(ctx context.Context, documentID string) (bool, error)

	// Count reports the total number of indexed chunks.
	Count(ctx context.Context) (int, error)

	Close()
}

// Generator produces a grounded answer from a question and retrieved context.
type Generator interface {
	Generate(ctx context.Context, question string, results []models.SearchResult) (string, error)
}

// Extractor pulls plain text out of an uploaded document.
type Extractor interface {
	// Validate rejects files that are not well-formed documents of the
	// supported format.
	Validate(path string) error

	ExtractText(path string) (string, error)
}
