// Package extract streams per-page text out of document files.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for a file extension no extractor handles.
var ErrUnsupportedFormat = errors.New("unsupported format")

// PageFunc receives each page as it is extracted. Numbers start at 1 and are
// contiguous; text may be empty. Returning an error stops extraction.
type PageFunc func(number int, text string) error

type pageExtractor func(ctx context.Context, content []byte, fn PageFunc) error

// Extractor extracts page text from document files.
type Extractor struct {
	byExt map[string]pageExtractor
}

// NewExtractor returns an Extractor for every supported format.
func NewExtractor() *Extractor {
	return &Extractor{byExt: map[string]pageExtractor{
		".pdf":  eachPDFPage,
		".pptx": eachPPTXSlide,
		".xlsx": eachExcelSheet,
		".docx": eachDOCXPage,
		".odp":  eachODPSlide,
		".ods":  eachODSSheet,
		".odt":  eachCatPage,
		".rtf":  eachCatPage,
		".txt":  eachPlainPage,
		".md":   eachPlainPage,
		".rst":  eachPlainPage,
	}}
}

// Supports reports whether ext (with leading dot, any case) has an extractor.
func (e *Extractor) Supports(ext string) bool {
	_, ok := e.byExt[strings.ToLower(ext)]
	return ok
}

// EachPage reads the file at path and calls fn once per page, in document order.
// Pages map to the format's natural unit: PDF pages, PPTX slides, XLSX sheets,
// form-feed separated chunks of plain text. DOCX, ODT and RTF have no stored
// pagination and yield a single page.
func (e *Extractor) EachPage(ctx context.Context, path string, fn PageFunc) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !e.Supports(ext) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	return e.EachPageBytes(ctx, content, ext, fn)
}

// EachPageBytes is EachPage over in-memory content. ext includes the leading dot.
func (e *Extractor) EachPageBytes(ctx context.Context, content []byte, ext string, fn PageFunc) error {
	extract, ok := e.byExt[strings.ToLower(ext)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return extract(ctx, content, fn)
}
