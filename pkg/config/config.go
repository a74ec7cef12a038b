package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// MaxFileSize caps uploads at 10 MiB; this is fixed, not configurable.
const MaxFileSize = 10 * 1024 * 1024

const Version = "1.0.0"

type ServerConfig struct {
	Port string `yaml:"port"`
}

type LLMConfig struct {
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RateLimit      float64 `yaml:"rate_limit"`
}

type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "ollama" or "openai"
	Model     string `yaml:"model"`
	OllamaURL string `yaml:"ollama_url"`
}

type VectorConfig struct {
	Backend        string `yaml:"backend"` // "chromem" or "pgvector"
	Path           string `yaml:"path"`    // chromem persistence directory
	DatabaseURL    string `yaml:"database_url"`
	TableName      string `yaml:"table_name"`
	CollectionName string `yaml:"collection_name"`
	Dim            int    `yaml:"dim"`
}

type ProcessorConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

type QueryConfig struct {
	MaxResults int `yaml:"max_results"`
}

type UploadConfig struct {
	Dir string `yaml:"dir"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vector    VectorConfig    `yaml:"vector"`
	Processor ProcessorConfig `yaml:"processor"`
	Query     QueryConfig     `yaml:"query"`
	Upload    UploadConfig    `yaml:"upload"`

	// APIKey comes from the environment only, never from the file.
	APIKey string `yaml:"-"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/kbsearch/config.yaml"),
			"/etc/kbsearch/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	config := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	mergeWithEnv(config)
	applyDefaults(config)

	return config, nil
}

func applyDefaults(config *Config) {
	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}

	if config.LLM.Model == "" {
		config.LLM.Model = "gpt-4o-mini"
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.2
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.TimeoutSeconds == 0 {
		config.LLM.TimeoutSeconds = 60
	}

	if config.Embedding.Provider == "" {
		config.Embedding.Provider = "ollama"
	}
	if config.Embedding.OllamaURL == "" {
		config.Embedding.OllamaURL = "http://localhost:11434"
	}

	if config.Vector.Backend == "" {
		config.Vector.Backend = "chromem"
	}
	if config.Vector.Path == "" {
		config.Vector.Path = "./vector_db"
	}
	if config.Vector.TableName == "" {
		config.Vector.TableName = "chunks"
	}
	if config.Vector.CollectionName == "" {
		config.Vector.CollectionName = "documents"
	}
	if config.Vector.Dim == 0 {
		config.Vector.Dim = 768
	}

	if config.Processor.ChunkSize == 0 {
		config.Processor.ChunkSize = 1000
	}
	if config.Processor.ChunkOverlap == 0 {
		config.Processor.ChunkOverlap = 200
	}

	if config.Query.MaxResults == 0 {
		config.Query.MaxResults = 5
	}

	if config.Upload.Dir == "" {
		config.Upload.Dir = "./uploads"
	}
}

func mergeWithEnv(config *Config) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.APIKey = key
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
	if provider := os.Getenv("EMBEDDING_PROVIDER"); provider != "" {
		config.Embedding.Provider = provider
	}
	if model := os.Getenv("EMBEDDING_MODEL"); model != "" {
		config.Embedding.Model = model
	}
	if url := os.Getenv("OLLAMA_BASE_URL"); url != "" {
		config.Embedding.OllamaURL = url
	}
	if backend := os.Getenv("VECTOR_BACKEND"); backend != "" {
		config.Vector.Backend = backend
	}
	if path := os.Getenv("VECTOR_DB_PATH"); path != "" {
		config.Vector.Path = path
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Vector.DatabaseURL = dbURL
	}
	if dir := os.Getenv("UPLOAD_DIR"); dir != "" {
		config.Upload.Dir = dir
	}
	if v := envInt("CHUNK_SIZE"); v != 0 {
		config.Processor.ChunkSize = v
	}
	if v := envInt("CHUNK_OVERLAP"); v != 0 {
		config.Processor.ChunkOverlap = v
	}
	if v := envInt("MAX_RESULTS"); v != 0 {
		config.Query.MaxResults = v
	}
}

func envInt(name string) int {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
