package processor

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kbase/kbsearch/internal/models"
)

type ProcessorConfig struct {
	ChunkSize    int // window size in words
	ChunkOverlap int // words shared between consecutive windows
}

// Processor splits extracted text into overlapping word windows.
type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) (Processor, error) {
	if config.ChunkSize == 0 {
		config.ChunkSize = 1000
	}
	if config.ChunkSize < 0 {
		return Processor{}, fmt.Errorf("chunk size must be positive, got %d", config.ChunkSize)
	}
	if config.ChunkOverlap < 0 {
		return Processor{}, fmt.Errorf("chunk overlap cannot be negative, got %d", config.ChunkOverlap)
	}
	// overlap >= size would make the window stall or move backwards
	if config.ChunkOverlap >= config.ChunkSize {
		return Processor{}, fmt.Errorf("chunk overlap %d must be less than chunk size %d",
			config.ChunkOverlap, config.ChunkSize)
	}

	return Processor{config: config}, nil
}

// Chunk splits text on whitespace into overlapping windows of ChunkSize
// words, each window starting ChunkSize-ChunkOverlap words after the last.
// Deterministic: the same text always yields the same chunk sequence, except
// for the generated chunk IDs.
func (p *Processor) Chunk(text string) []models.Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []models.Chunk
	step := p.config.ChunkSize - p.config.ChunkOverlap

	for i := 0; ; i += step {
		end := i + p.config.ChunkSize
		if end > len(words) {
			end = len(words)
		}

		joined := strings.Join(words[i:end], " ")
		// indices count emitted chunks only
		if strings.TrimSpace(joined) != "" {
			chunks = append(chunks, models.Chunk{
				ID:         uuid.NewString(),
				Text:       joined,
				ChunkIndex: len(chunks),
				WordCount:  end - i,
			})
		}

		if i+p.config.ChunkSize >= len(words) {
			break
		}
	}

	return chunks
}

// ChunkSize reports the configured window size.
func (p *Processor) ChunkSize() int { return p.config.ChunkSize }

// ChunkOverlap reports the configured window overlap.
func (p *Processor) ChunkOverlap() int { return p.config.ChunkOverlap }
