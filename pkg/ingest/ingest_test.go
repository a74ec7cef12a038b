package ingest_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbase/kbsearch/internal/models"
	"github.com/kbase/kbsearch/pkg/ingest"
	"github.com/kbase/kbsearch/pkg/processor"
	"github.com/kbase/kbsearch/pkg/registry"
)

type fakeExtractor struct {
	validateErr error
	text        string
	extractErr  error
}

func (f *fakeExtractor) Validate(path string) error { return f.validateErr }

func (f *fakeExtractor) ExtractText(path string) (string, error) {
	return f.text, f.extractErr
}

type fakeIndex struct {
	chunks    map[string][]models.Chunk
	upsertErr error
	deletes   []string
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{chunks: make(map[string][]models.Chunk)}
}

func (f *fakeIndex) Upsert(ctx context.Context, documentID string, chunks []models.Chunk) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.chunks[documentID] = chunks
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	return nil, nil
}

func (f *fakeIndex) DeleteByDocument(ctx context.Context, documentID string) (bool, error) {
	f.deletes = append(f.deletes, documentID)
	_, ok := f.chunks[documentID]
	delete(f.chunks, documentID)
	return ok, nil
}

func (f *fakeIndex) Count(ctx context.Context) (int, error) {
	n := 0
	for _, cs := range f.chunks {
		n += len(cs)
	}
	return n, nil
}

func (f *fakeIndex) Close() {}

func newPipeline(t *testing.T, extractor *fakeExtractor, index *fakeIndex) (*ingest.Pipeline, *registry.Registry) {
	t.Helper()
	proc, err := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    10,
		ChunkOverlap: 2,
	})
	require.NoError(t, err)

	reg := registry.New()
	return ingest.New(extractor, proc, index, reg), reg
}

func writeUpload(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 fake body"), 0o644))
	return path
}

func TestIngest_Success(t *testing.T) {
	extractor := &fakeExtractor{text: "one two three four five six seven eight nine ten eleven twelve"}
	index := newFakeIndex()
	pipeline, reg := newPipeline(t, extractor, index)

	path := writeUpload(t, "report.pdf")

	rec, err := pipeline.Ingest(context.Background(), path, "report.pdf")
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "report.pdf", rec.Filename)
	assert.Equal(t, models.StatusProcessed, rec.Status)
	assert.Equal(t, 2, rec.ChunkCount)
	assert.Equal(t, extractor.text, rec.FullText)

	// file, index entries, and registry record all exist
	assert.FileExists(t, path)
	assert.Len(t, index.chunks[rec.ID], 2)
	got, err := reg.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
}

func TestIngest_InvalidFileRollsBack(t *testing.T) {
	extractor := &fakeExtractor{validateErr: fmt.Errorf("bad header")}
	index := newFakeIndex()
	pipeline, reg := newPipeline(t, extractor, index)

	path := writeUpload(t, "broken.pdf")

	_, err := pipeline.Ingest(context.Background(), path, "broken.pdf")

	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.NoFileExists(t, path)
	assert.Equal(t, 0, reg.Len())
	assert.Empty(t, index.chunks)
}

func TestIngest_EmptyContentRollsBack(t *testing.T) {
	extractor := &fakeExtractor{text: "   \n "}
	index := newFakeIndex()
	pipeline, reg := newPipeline(t, extractor, index)

	path := writeUpload(t, "blank.pdf")

	_, err := pipeline.Ingest(context.Background(), path, "blank.pdf")

	var emptyErr *models.EmptyContentError
	require.ErrorAs(t, err, &emptyErr)
	assert.NoFileExists(t, path)
	assert.Equal(t, 0, reg.Len())
}

func TestIngest_IndexingFailureRollsBack(t *testing.T) {
	extractor := &fakeExtractor{text: "enough words to produce a chunk for the index"}
	index := newFakeIndex()
	index.upsertErr = fmt.Errorf("store unavailable")
	pipeline, reg := newPipeline(t, extractor, index)

	path := writeUpload(t, "doc.pdf")

	_, err := pipeline.Ingest(context.Background(), path, "doc.pdf")

	var indexErr *models.IndexingError
	require.ErrorAs(t, err, &indexErr)
	assert.NoFileExists(t, path)
	assert.Equal(t, 0, reg.Len())
}

func TestIngest_ExtractionFailureRollsBack(t *testing.T) {
	extractor := &fakeExtractor{extractErr: fmt.Errorf("parse error")}
	index := newFakeIndex()
	pipeline, reg := newPipeline(t, extractor, index)

	path := writeUpload(t, "doc.pdf")

	_, err := pipeline.Ingest(context.Background(), path, "doc.pdf")

	var extractionErr *models.ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.NoFileExists(t, path)
	assert.Equal(t, 0, reg.Len())
}

func TestDelete_RemovesAllThree(t *testing.T) {
	extractor := &fakeExtractor{text: "some searchable words in this document body"}
	index := newFakeIndex()
	pipeline, reg := newPipeline(t, extractor, index)

	path := writeUpload(t, "doc.pdf")
	rec, err := pipeline.Ingest(context.Background(), path, "doc.pdf")
	require.NoError(t, err)

	removed, err := pipeline.Delete(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, removed.ID)

	assert.NoFileExists(t, path)
	assert.Equal(t, 0, reg.Len())
	assert.Empty(t, index.chunks)
	assert.Contains(t, index.deletes, rec.ID)
}

func TestDelete_UnknownID(t *testing.T) {
	pipeline, _ := newPipeline(t, &fakeExtractor{}, newFakeIndex())

	_, err := pipeline.Delete(context.Background(), "nope")

	var notFound *models.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestCreateUpload_Suffixing(t *testing.T) {
	dir := t.TempDir()

	f, first, err := ingest.CreateUpload(dir, "name.pdf")
	require.NoError(t, err)
	f.Close()
	assert.Equal(t, filepath.Join(dir, "name.pdf"), first)

	f, second, err := ingest.CreateUpload(dir, "name.pdf")
	require.NoError(t, err)
	f.Close()
	assert.Equal(t, filepath.Join(dir, "name_1.pdf"), second)

	f, third, err := ingest.CreateUpload(dir, "name.pdf")
	require.NoError(t, err)
	f.Close()
	assert.Equal(t, filepath.Join(dir, "name_2.pdf"), third)
}

func TestCreateUpload_ConcurrentSameFilename(t *testing.T) {
	dir := t.TempDir()

	const workers = 20
	paths := make([]string, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f, path, err := ingest.CreateUpload(dir, "name.pdf")
			if assert.NoError(t, err) {
				f.Close()
				paths[i] = path
			}
		}(i)
	}
	wg.Wait()

	// every caller must end up with its own file
	seen := make(map[string]bool, workers)
	for _, path := range paths {
		require.NotEmpty(t, path)
		assert.False(t, seen[path], "path %s handed out twice", path)
		seen[path] = true
		assert.FileExists(t, path)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, workers)
}
