package store

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/philippgille/chromem-go"

	"github.com/kbase/kbsearch/internal/models"
	"github.com/kbase/kbsearch/internal/types"
)

type ChromemConfig struct {
	Path           string // empty means in-memory
	CollectionName string
	Compress       bool
}

// ChromemStore is the embedded vector index. Collection contents persist
// under Path across restarts.
type ChromemStore struct {
	config     ChromemConfig
	db         *chromem.DB
	collection *chromem.Collection
}

func NewChromemWithConfig(config ChromemConfig, embedder types.Embedder) (*ChromemStore, error) {
	if config.CollectionName == "" {
		config.CollectionName = "documents"
	}

	var db *chromem.DB
	var err error
	if config.Path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(config.Path, config.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector store at %s: %w", config.Path, err)
		}
	}

	embedFn := func(ctx context.Context, text string) ([]float32, error) {
		vectors, err := embedder.CreateEmbedding(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		return vectors[0], nil
	}

	collection, err := db.GetOrCreateCollection(config.CollectionName, nil, embedFn)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", config.CollectionName, err)
	}

	return &ChromemStore{
		config:     config,
		db:         db,
		collection: collection,
	}, nil
}

func (s *ChromemStore) Upsert(ctx context.Context, documentID string, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks provided for indexing")
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for _, chunk := range chunks {
		docs = append(docs, chromem.Document{
			ID:      fmt.Sprintf("%s_%d", documentID, chunk.ChunkIndex),
			Content: chunk.Text,
			Metadata: map[string]string{
				"document_id": documentID,
				"chunk_index": strconv.Itoa(chunk.ChunkIndex),
				"word_count":  strconv.Itoa(chunk.WordCount),
				"chunk_id":    chunk.ID,
			},
		})
	}

	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents to vector store: %w", err)
	}

	return nil
}

func (s *ChromemStore) Search(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	// chromem rejects nResults greater than the collection size
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	hits, err := s.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}

	results := make([]models.SearchResult, 0, len(hits))
	for _, hit := range hits {
		chunkIndex, _ := strconv.Atoi(hit.Metadata["chunk_index"])
		wordCount, _ := strconv.Atoi(hit.Metadata["word_count"])

		results = append(results, models.SearchResult{
			ID:   hit.ID,
			Text: hit.Content,
			Metadata: models.ChunkMetadata{
				DocumentID: hit.Metadata["document_id"],
				ChunkIndex: chunkIndex,
				WordCount:  wordCount,
				ChunkID:    hit.Metadata["chunk_id"],
			},
			Distance: 1 - hit.Similarity,
		})
	}

	return results, nil
}

func (s *ChromemStore) DeleteByDocument(ctx context.Context, documentID string) (bool, error) {
	before := s.collection.Count()
	if before == 0 {
		return false, nil
	}

	err := s.collection.Delete(ctx, map[string]string{"document_id": documentID}, nil)
	if err != nil {
		return false, fmt.Errorf("failed to delete document %s from vector store: %w", documentID, err)
	}

	return s.collection.Count() < before, nil
}

func (s *ChromemStore) Count(ctx context.Context) (int, error) {
	return s.collection.Count(), nil
}

// Close is a no-op: the persistent DB writes through on every mutation.
func (s *ChromemStore) Close() {}

// CollectionName reports the collection this store writes to.
func (s *ChromemStore) CollectionName() string { return s.config.CollectionName }
