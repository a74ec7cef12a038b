package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
server:
  port: "9000"

llm:
  model: "gpt-4o"
  temperature: 0.5
  max_tokens: 1000

embedding:
  provider: "openai"
  model: "text-embedding-3-small"

vector:
  backend: "pgvector"
  database_url: "postgres://localhost:5432/test"
  table_name: "test_chunks"
  dim: 1536

processor:
  chunk_size: 500
  chunk_overlap: 100

query:
  max_results: 3

upload:
  dir: "/tmp/uploads"
`
	err := os.WriteFile(configPath, []byte(configData), 0o644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "9000", config.Server.Port)
	assert.Equal(t, "gpt-4o", config.LLM.Model)
	assert.Equal(t, 0.5, config.LLM.Temperature)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, "openai", config.Embedding.Provider)
	assert.Equal(t, "pgvector", config.Vector.Backend)
	assert.Equal(t, "test_chunks", config.Vector.TableName)
	assert.Equal(t, 1536, config.Vector.Dim)
	assert.Equal(t, 500, config.Processor.ChunkSize)
	assert.Equal(t, 100, config.Processor.ChunkOverlap)
	assert.Equal(t, 3, config.Query.MaxResults)
	assert.Equal(t, "/tmp/uploads", config.Upload.Dir)

	// defaults fill what the file leaves unset
	assert.Equal(t, 60, config.LLM.TimeoutSeconds)
	assert.Equal(t, "documents", config.Vector.CollectionName)
}

func TestDefaults(t *testing.T) {
	config := &Config{}
	applyDefaults(config)

	assert.Equal(t, "8080", config.Server.Port)
	assert.Equal(t, "ollama", config.Embedding.Provider)
	assert.Equal(t, "chromem", config.Vector.Backend)
	assert.Equal(t, "./vector_db", config.Vector.Path)
	assert.Equal(t, 1000, config.Processor.ChunkSize)
	assert.Equal(t, 200, config.Processor.ChunkOverlap)
	assert.Equal(t, 5, config.Query.MaxResults)
	assert.Equal(t, "./uploads", config.Upload.Dir)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CHUNK_SIZE", "750")
	t.Setenv("CHUNK_OVERLAP", "150")
	t.Setenv("MAX_RESULTS", "7")
	t.Setenv("VECTOR_BACKEND", "pgvector")
	t.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	t.Setenv("UPLOAD_DIR", "/data/uploads")
	t.Setenv("PORT", "3000")

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "sk-test", config.APIKey)
	assert.Equal(t, 750, config.Processor.ChunkSize)
	assert.Equal(t, 150, config.Processor.ChunkOverlap)
	assert.Equal(t, 7, config.Query.MaxResults)
	assert.Equal(t, "pgvector", config.Vector.Backend)
	assert.Equal(t, "postgres://env-db:5432/test", config.Vector.DatabaseURL)
	assert.Equal(t, "/data/uploads", config.Upload.Dir)
	assert.Equal(t, "3000", config.Server.Port)
}

func TestConfigValidation(t *testing.T) {
	valid := func() *Config {
		c := &Config{APIKey: "sk-test"}
		applyDefaults(c)
		return c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		fields []string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:   "missing api key",
			mutate: func(c *Config) { c.APIKey = "" },
			fields: []string{"OPENAI_API_KEY"},
		},
		{
			name:   "bad temperature",
			mutate: func(c *Config) { c.LLM.Temperature = 1.5 },
			fields: []string{"llm.temperature"},
		},
		{
			name:   "overlap not below size",
			mutate: func(c *Config) { c.Processor.ChunkOverlap = c.Processor.ChunkSize },
			fields: []string{"processor.chunk_overlap"},
		},
		{
			name:   "max results out of range",
			mutate: func(c *Config) { c.Query.MaxResults = 25 },
			fields: []string{"query.max_results"},
		},
		{
			name:   "pgvector without database url",
			mutate: func(c *Config) { c.Vector.Backend = "pgvector" },
			fields: []string{"vector.database_url"},
		},
		{
			name:   "unknown backend",
			mutate: func(c *Config) { c.Vector.Backend = "faiss" },
			fields: []string{"vector.backend"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)

			errs := c.Validate()
			assert.Len(t, errs, len(tt.fields))
			for i, field := range tt.fields {
				assert.Equal(t, field, errs[i].Field)
			}
		})
	}
}
