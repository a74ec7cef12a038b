package ingest

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kbase/kbsearch/internal/models"
	"github.com/kbase/kbsearch/internal/types"
	"github.com/kbase/kbsearch/pkg/processor"
	"github.com/kbase/kbsearch/pkg/registry"
)

// Pipeline owns the document lifecycle: extract, chunk, index, register.
// Within one call either all three of file, index entries, and registry
// record exist afterwards, or none do.
type Pipeline struct {
	extractor types.Extractor
	processor processor.Processor
	index     types.VectorIndex
	registry  *registry.Registry
}

func New(extractor types.Extractor, proc processor.Processor, index types.VectorIndex, reg *registry.Registry) *Pipeline {
	return &Pipeline{
		extractor: extractor,
		processor: proc,
		index:     index,
		registry:  reg,
	}
}

// CreateUpload creates a destination file inside dir that does not collide
// with an existing file, suffixing `name_1.ext`, `name_2.ext`, … until a free
// name is found. Creation is exclusive, so concurrent uploads of the same
// filename each get their own file. The caller owns the returned handle.
func CreateUpload(dir, filename string) (*os.File, string, error) {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	name := filename
	for counter := 1; ; counter++ {
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !os.IsExist(err) {
			return nil, "", fmt.Errorf("failed to create upload file: %w", err)
		}
		name = fmt.Sprintf("%s_%d%s", base, counter, ext)
	}
}

// Ingest processes the already-saved upload at filePath. On any failure the
// file is removed and no index entries or registry record remain.
func (p *Pipeline) Ingest(ctx context.Context, filePath, filename string) (models.DocumentRecord, error) {
	if err := p.extractor.Validate(filePath); err != nil {
		p.removeFile(filePath)
		return models.DocumentRecord{}, &models.ValidationError{
			Message: fmt.Sprintf("invalid or corrupted PDF file: %v", err),
		}
	}

	text, err := p.extractor.ExtractText(filePath)
	if err != nil {
		p.removeFile(filePath)
		return models.DocumentRecord{}, &models.ExtractionError{Path: filePath, Err: err}
	}

	if strings.TrimSpace(text) == "" {
		p.removeFile(filePath)
		return models.DocumentRecord{}, &models.EmptyContentError{Path: filePath}
	}

	chunks := p.processor.Chunk(text)
	if len(chunks) == 0 {
		p.removeFile(filePath)
		return models.DocumentRecord{}, &models.EmptyContentError{Path: filePath}
	}

	docID := uuid.NewString()

	if err := p.index.Upsert(ctx, docID, chunks); err != nil {
		p.removeFile(filePath)
		return models.DocumentRecord{}, &models.IndexingError{DocumentID: docID, Err: err}
	}

	info, err := os.Stat(filePath)
	if err != nil {
		// file vanished under us: unwind the index writes too
		if _, derr := p.index.DeleteByDocument(ctx, docID); derr != nil {
			log.Printf("rollback failed for document %s: %v", docID, derr)
		}
		return models.DocumentRecord{}, &models.ExtractionError{Path: filePath, Err: err}
	}

	rec := models.DocumentRecord{
		ID:         docID,
		Filename:   filename,
		FilePath:   filePath,
		SizeBytes:  info.Size(),
		UploadTime: time.Now(),
		ChunkCount: len(chunks),
		Status:     models.StatusProcessed,
		FullText:   text,
	}

	p.registry.Put(rec)

	log.Printf("Successfully processed document %s: %d chunks created", filename, len(chunks))
	return rec, nil
}

// Delete removes a document's index entries, its backing file, and its
// registry record, keeping the three stores consistent.
func (p *Pipeline) Delete(ctx context.Context, id string) (models.DocumentRecord, error) {
	rec, err := p.registry.Get(id)
	if err != nil {
		return models.DocumentRecord{}, err
	}

	if _, err := p.index.DeleteByDocument(ctx, id); err != nil {
		return models.DocumentRecord{}, fmt.Errorf("failed to remove index entries: %w", err)
	}

	p.removeFile(rec.FilePath)

	if _, err := p.registry.Delete(id); err != nil {
		return models.DocumentRecord{}, err
	}

	return rec, nil
}

func (p *Pipeline) removeFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to remove %s: %v", path, err)
	}
}
