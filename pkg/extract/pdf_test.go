package extract_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbase/kbsearch/pkg/extract"
)

func TestValidate_RejectsWrongMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is plain text, not a PDF"), 0o644))

	err := extract.NewPDFExtractor().Validate(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "%PDF")
}

func TestValidate_RejectsFileShorterThanMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%P"), 0o644))

	err := extract.NewPDFExtractor().Validate(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "%PDF")
}

func TestValidate_RejectsTruncatedPDF(t *testing.T) {
	// correct magic but no parseable document body
	path := filepath.Join(t.TempDir(), "truncated.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n"), 0o644))

	err := extract.NewPDFExtractor().Validate(path)
	assert.Error(t, err)
}

func TestValidate_MissingFile(t *testing.T) {
	err := extract.NewPDFExtractor().Validate(filepath.Join(t.TempDir(), "nope.pdf"))
	assert.Error(t, err)
}

func TestExtractText_MissingFile(t *testing.T) {
	_, err := extract.NewPDFExtractor().ExtractText(filepath.Join(t.TempDir(), "nope.pdf"))
	assert.Error(t, err)
}
