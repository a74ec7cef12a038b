package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"

	"github.com/kbase/kbsearch/internal/types"
	"github.com/kbase/kbsearch/pkg/config"
	"github.com/kbase/kbsearch/pkg/extract"
	"github.com/kbase/kbsearch/pkg/ingest"
	"github.com/kbase/kbsearch/pkg/llm"
	"github.com/kbase/kbsearch/pkg/processor"
	"github.com/kbase/kbsearch/pkg/rag"
	"github.com/kbase/kbsearch/pkg/registry"
	"github.com/kbase/kbsearch/pkg/store"
	"github.com/kbase/kbsearch/server"
)

type flags struct {
	configPath string
	ingestGlob string
	port       string
}

func main() {
	f := parseFlags()

	if err := run(f); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() flags {
	var f flags

	flag.StringVar(&f.configPath, "config", "", "Path to config file")
	flag.StringVar(&f.ingestGlob, "ingest", "", "Glob of local PDF files to ingest at startup")
	flag.StringVar(&f.port, "port", "", "HTTP listen port (overrides config)")
	flag.Parse()

	return f
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(f flags) error {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(f.configPath)
	if err != nil {
		return err
	}
	if f.port != "" {
		cfg.Server.Port = f.port
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		return fmt.Errorf("invalid configuration")
	}

	for _, dir := range []string{cfg.Upload.Dir, cfg.Vector.Path} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Provider: cfg.Embedding.Provider,
		Model:    cfg.Embedding.Model,
		BaseURL:  cfg.Embedding.OllamaURL,
		APIKey:   cfg.APIKey,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %w", err)
	}

	index, err := newIndex(cfg, embedder)
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %w", err)
	}
	defer index.Close()

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		APIKey:      cfg.APIKey,
		Timeout:     time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		RateLimit:   cfg.LLM.RateLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize chat engine: %w", err)
	}

	proc, err := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    cfg.Processor.ChunkSize,
		ChunkOverlap: cfg.Processor.ChunkOverlap,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize processor: %w", err)
	}

	reg := registry.New()
	pipeline := ingest.New(extract.NewPDFExtractor(), proc, index, reg)
	engine := rag.NewEngine(index, chatEngine, rag.EngineConfig{
		MaxResults: cfg.Query.MaxResults,
	})

	if f.ingestGlob != "" {
		if err := bulkIngest(pipeline, cfg.Upload.Dir, f.ingestGlob); err != nil {
			return err
		}
	}

	srv := server.New(server.Config{
		Port:           cfg.Server.Port,
		UploadDir:      cfg.Upload.Dir,
		CollectionName: cfg.Vector.CollectionName,
	}, pipeline, engine, reg, index)

	color.Cyan("Knowledge base search listening on port %s", cfg.Server.Port)
	return srv.ListenAndServe()
}

func newIndex(cfg *config.Config, embedder types.Embedder) (types.VectorIndex, error) {
	switch cfg.Vector.Backend {
	case "pgvector":
		return store.NewPgVectorWithConfig(store.PgVectorConfig{
			ConnString: cfg.Vector.DatabaseURL,
			TableName:  cfg.Vector.TableName,
			VectorDim:  cfg.Vector.Dim,
		}, embedder)
	default:
		return store.NewChromemWithConfig(store.ChromemConfig{
			Path:           cfg.Vector.Path,
			CollectionName: cfg.Vector.CollectionName,
		}, embedder)
	}
}

// bulkIngest copies each matched PDF into the upload directory and runs it
// through the pipeline, the same path uploads take over HTTP.
func bulkIngest(pipeline *ingest.Pipeline, uploadDir, glob string) error {
	paths, err := filepath.Glob(glob)
	if err != nil {
		return fmt.Errorf("invalid ingest glob: %w", err)
	}
	if len(paths) == 0 {
		color.Yellow("No files matched %s", glob)
		return nil
	}

	color.Blue("\nIngesting %d documents\n", len(paths))
	bar := getProgressBar(len(paths), "Processing documents...")

	ctx := context.Background()
	failed := 0
	for _, src := range paths {
		dst, path, err := ingest.CreateUpload(uploadDir, filepath.Base(src))
		if err != nil {
			color.Red("\nFailed to create %s: %v", src, err)
			failed++
			bar.Add(1)
			continue
		}

		if err := copyInto(src, dst); err != nil {
			os.Remove(path)
			color.Red("\nFailed to copy %s: %v", src, err)
			failed++
			bar.Add(1)
			continue
		}

		if _, err := pipeline.Ingest(ctx, path, filepath.Base(src)); err != nil {
			color.Red("\nFailed to ingest %s: %v", src, err)
			failed++
		}
		bar.Add(1)
	}
	bar.Finish()

	if failed > 0 {
		color.Yellow("\n%d of %d documents failed\n", failed, len(paths))
	} else {
		color.Green("\nAll %d documents ingested\n", len(paths))
	}

	return nil
}

func copyInto(src string, dst *os.File) error {
	defer dst.Close()

	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	_, err = dst.Write(data)
	return err
}
