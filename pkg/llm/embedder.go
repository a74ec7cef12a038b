package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// EmbedderConfig selects the embedding backend.
type EmbedderConfig struct {
	Provider string // "ollama" or "openai"
	Model    string
	BaseURL  string // Ollama server URL
	APIKey   string // OpenAI key, required for the openai provider
}

type embeddingClient interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Embedder wraps an embedding model behind a single CreateEmbedding call.
type Embedder struct {
	config EmbedderConfig
	client embeddingClient
}

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Provider == "" {
		config.Provider = "ollama"
	}

	var client embeddingClient
	var err error

	switch config.Provider {
	case "ollama":
		if config.Model == "" {
			config.Model = "nomic-embed-text:latest"
		}
		if config.BaseURL == "" {
			config.BaseURL = "http://localhost:11434"
		}
		client, err = ollama.New(
			ollama.WithModel(config.Model),
			ollama.WithServerURL(config.BaseURL),
		)
	case "openai":
		if config.Model == "" {
			config.Model = "text-embedding-3-small"
		}
		if config.APIKey == "" {
			return nil, fmt.Errorf("openai embedding provider requires an API key")
		}
		client, err = openai.New(
			openai.WithToken(config.APIKey),
			openai.WithEmbeddingModel(config.Model),
		)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", config.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding model: %w", err)
	}

	return &Embedder{config: config, client: client}, nil
}

// CreateEmbedding embeds each text and returns one vector per input.
func (e *Embedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embeddings, err := e.client.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding model returned %d vectors for %d texts",
			len(embeddings), len(texts))
	}

	return embeddings, nil
}

// EmbedQuery embeds a single query string.
func (e *Embedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	embeddings, err := e.CreateEmbedding(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}
