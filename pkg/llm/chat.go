package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"github.com/kbase/kbsearch/internal/models"
)

// maxContextChunks bounds how many retrieved chunks reach the model;
// results beyond this are kept for source display only.
const maxContextChunks = 5

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Model          string
	Temperature    float64
	MaxTokens      int
	APIKey         string
	SystemTemplate string
	Timeout        time.Duration // per-generation deadline
	RateLimit      float64       // generations per second, 0 disables
}

// ChatEngine generates answers grounded in retrieved context.
type ChatEngine struct {
	config  ChatConfig
	llm     llms.Model
	limiter *rate.Limiter
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.Temperature < 0 || config.Temperature > 1 {
		return nil, fmt.Errorf("temperature must be between 0 and 1")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("generation API key is required")
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = "You are a helpful assistant. Answer the question using ONLY the context below. " +
			"If the context is insufficient, say you don't have enough information."
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	model, err := openai.New(
		openai.WithToken(config.APIKey),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}

	return &ChatEngine{
		config:  config,
		llm:     model,
		limiter: limiter,
	}, nil
}

// Generate produces an answer from the question and up to maxContextChunks of
// the retrieved results. Full chunk text is sent, not the truncated display
// form.
func (ce *ChatEngine) Generate(ctx context.Context, question string, results []models.SearchResult) (string, error) {
	if ce.limiter != nil {
		if err := ce.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, ce.config.Timeout)
	defer cancel()

	prompt := ce.buildPrompt(question, results)

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, ce.config.SystemTemplate),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	response, err := ce.llm.GenerateContent(ctx, content,
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}
	if response == nil || len(response.Choices) == 0 {
		return "", fmt.Errorf("no response from LLM")
	}

	return strings.TrimSpace(response.Choices[0].Content), nil
}

func (ce *ChatEngine) buildPrompt(question string, results []models.SearchResult) string {
	var contextBuilder strings.Builder

	n := len(results)
	if n > maxContextChunks {
		n = maxContextChunks
	}
	for i := 0; i < n; i++ {
		contextBuilder.WriteString(fmt.Sprintf("Context %d (chunk_index=%d):\n%s\n\n",
			i+1, results[i].Metadata.ChunkIndex, results[i].Text))
	}
	if contextBuilder.Len() == 0 {
		contextBuilder.WriteString("No relevant context.\n\n")
	}

	return fmt.Sprintf("CONTEXT:\n%s\nQUESTION:\n%s\n\nANSWER:", contextBuilder.String(), question)
}
