package rag

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kbase/kbsearch/internal/models"
	"github.com/kbase/kbsearch/internal/types"
)

const (
	// maxResultsCeiling bounds retrieval fan-out per query.
	maxResultsCeiling = 10

	// sourcePreviewLength is the display truncation for source text, in
	// characters; the generator always receives the full chunk.
	sourcePreviewLength = 200

	noEvidenceAnswer = "I couldn't find any relevant information in the uploaded documents " +
		"to answer your question. Please make sure you have uploaded relevant documents " +
		"or try rephrasing your question."
)

// EngineConfig configures the retrieval orchestrator.
type EngineConfig struct {
	MaxResults int // default result count when the request leaves it unset
}

// Engine answers questions by retrieving relevant chunks and asking the
// generator for an answer grounded in them.
type Engine struct {
	config    EngineConfig
	index     types.VectorIndex
	generator types.Generator
	history   *History
}

// QueryResponse is the full answer payload for one question.
type QueryResponse struct {
	Question       string             `json:"question"`
	Answer         string             `json:"answer"`
	Sources        []models.SourceRef `json:"sources"`
	ProcessingTime float64            `json:"processing_time"`
}

func NewEngine(index types.VectorIndex, generator types.Generator, config EngineConfig) *Engine {
	if config.MaxResults == 0 {
		config.MaxResults = 5
	}

	return &Engine{
		config:    config,
		index:     index,
		generator: generator,
		history:   NewHistory(),
	}
}

// History exposes the bounded query log.
func (e *Engine) History() *History { return e.history }

// Answer retrieves up to maxResults chunks for the question and produces a
// grounded answer. With no retrieved evidence the generator is never called
// and a fixed fallback answer is returned. Generation failures degrade into
// an explanatory answer string rather than an error.
func (e *Engine) Answer(ctx context.Context, question string, maxResults int) (QueryResponse, error) {
	start := time.Now()

	if strings.TrimSpace(question) == "" {
		return QueryResponse{}, &models.ValidationError{Message: "question cannot be empty"}
	}

	if maxResults <= 0 {
		maxResults = e.config.MaxResults
	}
	if maxResults > maxResultsCeiling {
		maxResults = maxResultsCeiling
	}

	results, err := e.index.Search(ctx, question, maxResults)
	if err != nil {
		return QueryResponse{}, fmt.Errorf("search failed: %w", err)
	}

	var answer string
	sources := []models.SourceRef{}

	if len(results) == 0 {
		answer = noEvidenceAnswer
	} else {
		answer, err = e.generator.Generate(ctx, question, results)
		if err != nil {
			// degrade, don't fail: the caller still gets a response and the
			// query is logged
			log.Printf("generation failed: %v", err)
			answer = fmt.Sprintf("Error generating response: %v", err)
		}
		sources = formatSources(results)
	}

	processingTime := time.Since(start).Seconds()

	e.history.Append(models.QueryHistoryEntry{
		Timestamp:      time.Now(),
		Question:       question,
		Answer:         answer,
		SourcesCount:   len(sources),
		ProcessingTime: processingTime,
	})

	return QueryResponse{
		Question:       question,
		Answer:         answer,
		Sources:        sources,
		ProcessingTime: processingTime,
	}, nil
}

func formatSources(results []models.SearchResult) []models.SourceRef {
	sources := make([]models.SourceRef, 0, len(results))
	for _, r := range results {
		text := r.Text
		// truncate on rune boundaries so multi-byte text stays valid UTF-8
		if runes := []rune(text); len(runes) > sourcePreviewLength {
			text = string(runes[:sourcePreviewLength]) + "..."
		}

		sources = append(sources, models.SourceRef{
			Text:            text,
			DocumentID:      r.Metadata.DocumentID,
			ChunkIndex:      r.Metadata.ChunkIndex,
			SimilarityScore: 1 - r.Distance,
		})
	}
	return sources
}
