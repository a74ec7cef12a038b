package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// The generation credential is mandatory: without it the service cannot
	// answer anything, so absence is a startup failure, not a runtime 500.
	if c.APIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "OPENAI_API_KEY",
			Message: "generation API key is required",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 1 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 1",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.LLM.TimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "llm.timeout_seconds",
			Message: "timeout_seconds must be positive",
		})
	}

	switch c.Embedding.Provider {
	case "ollama", "openai":
	default:
		errors = append(errors, ValidationError{
			Field:   "embedding.provider",
			Message: fmt.Sprintf("unknown provider: %s", c.Embedding.Provider),
		})
	}

	switch c.Vector.Backend {
	case "chromem":
		if c.Vector.Path == "" {
			errors = append(errors, ValidationError{
				Field:   "vector.path",
				Message: "chromem backend requires a persistence path",
			})
		}
	case "pgvector":
		if c.Vector.DatabaseURL == "" {
			errors = append(errors, ValidationError{
				Field:   "vector.database_url",
				Message: "pgvector backend requires a database URL",
			})
		} else if _, err := url.Parse(c.Vector.DatabaseURL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "vector.database_url",
				Message: "invalid database URL",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "vector.backend",
			Message: fmt.Sprintf("unknown backend: %s", c.Vector.Backend),
		})
	}

	if c.Vector.Dim < 1 {
		errors = append(errors, ValidationError{
			Field:   "vector.dim",
			Message: "dim must be positive",
		})
	}

	if c.Processor.ChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if c.Processor.ChunkOverlap < 0 || c.Processor.ChunkOverlap >= c.Processor.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}

	if c.Query.MaxResults < 1 || c.Query.MaxResults > 10 {
		errors = append(errors, ValidationError{
			Field:   "query.max_results",
			Message: "max_results must be between 1 and 10",
		})
	}

	return errors
}
