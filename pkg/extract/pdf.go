package extract

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfMagic is the canonical header every well-formed PDF starts with.
var pdfMagic = []byte("%PDF")

// PDFExtractor validates and extracts text from PDF files.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Validate checks the magic bytes and that the file parses as a PDF with at
// least one page. It reads nothing beyond what the parser needs.
func (e *PDFExtractor) Validate(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}

	// ReadFull: a plain Read may legally return fewer bytes without error
	header := make([]byte, len(pdfMagic))
	_, err = io.ReadFull(f, header)
	f.Close()
	if err != nil || !bytes.Equal(header, pdfMagic) {
		return fmt.Errorf("file is not a valid PDF: missing %%PDF header")
	}

	src, reader, err := pdf.Open(path)
	if err != nil {
		return fmt.Errorf("failed to parse PDF: %w", err)
	}
	defer src.Close()

	if reader.NumPage() == 0 {
		return fmt.Errorf("PDF has no pages")
	}

	return nil
}

// ExtractText returns the concatenated plain text of all pages.
func (e *PDFExtractor) ExtractText(path string) (string, error) {
	src, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	defer src.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract text from PDF %s: %w", path, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}

	return strings.TrimSpace(buf.String()), nil
}
