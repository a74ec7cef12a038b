package models

import "time"

// Chunk is a bounded, overlapping slice of a document's text. Chunks are
// immutable once produced; ChunkIndex is contiguous within a document.
type Chunk struct {
	ID         string
	Text       string
	ChunkIndex int
	WordCount  int
}

// DocumentStatus values for DocumentRecord.Status.
const (
	StatusProcessed = "processed"
	StatusFailed    = "failed"
)

// DocumentRecord is the registry entry for one ingested document. A record
// exists iff its chunks are in the index iff its file is on disk.
type DocumentRecord struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	FilePath   string    `json:"-"`
	SizeBytes  int64     `json:"size"`
	UploadTime time.Time `json:"upload_time"`
	ChunkCount int       `json:"chunk_count"`
	Status     string    `json:"status"`
	FullText   string    `json:"-"`
}

// ChunkMetadata travels with every indexed chunk.
type ChunkMetadata struct {
	DocumentID string
	ChunkIndex int
	WordCount  int
	ChunkID    string
}

// SearchResult is one similarity hit, ephemeral per query.
// Distance is the vector-space distance; smaller is more similar.
type SearchResult struct {
	ID       string
	Text     string
	Metadata ChunkMetadata
	Distance float32
}

// SourceRef is the display form of a search result attached to an answer.
type SourceRef struct {
	Text            string  `json:"text"`
	DocumentID      string  `json:"document_id"`
	ChunkIndex      int     `json:"chunk_index"`
	SimilarityScore float32 `json:"similarity_score"`
}

// QueryHistoryEntry is one row of the bounded query log.
type QueryHistoryEntry struct {
	Timestamp      time.Time `json:"timestamp"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`
	SourcesCount   int       `json:"sources_count"`
	ProcessingTime float64   `json:"processing_time"`
}
