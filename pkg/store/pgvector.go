package store

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/kbase/kbsearch/internal/models"
	"github.com/kbase/kbsearch/internal/types"
)

type PgVectorConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
}

// PgVectorStore is the Postgres-backed vector index.
type PgVectorStore struct {
	config   PgVectorConfig
	pool     *pgxpool.Pool
	embedder types.Embedder
}

func NewPgVectorWithConfig(config PgVectorConfig, embedder types.Embedder) (*PgVectorStore, error) {
	if config.TableName == "" {
		config.TableName = "chunks"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	vs := &PgVectorStore{
		config:   config,
		pool:     pool,
		embedder: embedder,
	}

	if err := vs.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *PgVectorStore) initialize() error {
	ctx := context.Background()

	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			chunk_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			word_count INTEGER NOT NULL,
			content TEXT,
			embedding vector(%d)
		)`, vs.config.TableName, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	createDocIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_document_id_idx
		ON %s (document_id)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createDocIndex)
	if err != nil {
		return fmt.Errorf("failed to create document index: %w", err)
	}

	return nil
}

func (vs *PgVectorStore) Upsert(ctx context.Context, documentID string, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks provided for indexing")
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = sanitizeUTF8(chunk.Text)
	}

	embeddings, err := vs.embedder.CreateEmbedding(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to create embeddings: %w", err)
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, chunk_id, chunk_index, word_count, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			word_count = EXCLUDED.word_count,
			embedding = EXCLUDED.embedding`,
		vs.config.TableName)

	for i, chunk := range chunks {
		id := fmt.Sprintf("%s_%d", documentID, chunk.ChunkIndex)

		_, err = tx.Exec(ctx, stmt,
			id,
			documentID,
			chunk.ID,
			chunk.ChunkIndex,
			chunk.WordCount,
			texts[i],
			pgvector.NewVector(embeddings[i]),
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (vs *PgVectorStore) Search(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	embeddings, err := vs.embedder.CreateEmbedding(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	sql := fmt.Sprintf(`
		SELECT id, document_id, chunk_id, chunk_index, word_count, content,
		       embedding <=> $1 AS distance
		FROM %s
		ORDER BY distance
		LIMIT $2`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, sql, pgvector.NewVector(embeddings[0]), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var results []models.SearchResult
	for rows.Next() {
		var r models.SearchResult
		var distance float64
		err := rows.Scan(
			&r.ID,
			&r.Metadata.DocumentID,
			&r.Metadata.ChunkID,
			&r.Metadata.ChunkIndex,
			&r.Metadata.WordCount,
			&r.Text,
			&distance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.Distance = float32(distance)
		results = append(results, r)
	}

	return results, rows.Err()
}

func (vs *PgVectorStore) DeleteByDocument(ctx context.Context, documentID string) (bool, error) {
	sql := fmt.Sprintf("DELETE FROM %s WHERE document_id = $1", vs.config.TableName)

	tag, err := vs.pool.Exec(ctx, sql, documentID)
	if err != nil {
		return false, fmt.Errorf("failed to delete document %s: %w", documentID, err)
	}

	return tag.RowsAffected() > 0, nil
}

func (vs *PgVectorStore) Count(ctx context.Context) (int, error) {
	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s", vs.config.TableName)

	var count int
	if err := vs.pool.QueryRow(ctx, sql).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}

	return count, nil
}

func (vs *PgVectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
